package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusIsTerminal(t *testing.T) {
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusFailed.IsTerminal())
}

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, CanTransitionTo(OrderStatusPending, OrderStatusCompleted))
	assert.True(t, CanTransitionTo(OrderStatusPending, OrderStatusFailed))
	assert.False(t, CanTransitionTo(OrderStatusPending, OrderStatusPending))

	// terminal states never move again
	assert.False(t, CanTransitionTo(OrderStatusCompleted, OrderStatusFailed))
	assert.False(t, CanTransitionTo(OrderStatusFailed, OrderStatusCompleted))
}
