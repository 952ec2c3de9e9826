package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hkilla-ux/shopsmart/internal/domain"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client), mr
}

func TestRedisCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	product := &domain.Product{
		ID:    "p1",
		Name:  "Widget",
		Price: decimal.RequireFromString("10.00"),
	}
	require.NoError(t, c.Set(ctx, "p1", product))

	got, err := c.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, "Widget", got.Name)
	assert.True(t, got.Price.Equal(product.Price))
}

func TestRedisCache_GetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_SetAppliesJitteredTTL(t *testing.T) {
	c, mr := newTestCache(t)

	product := &domain.Product{ID: "p1", Price: decimal.New(1, 0)}
	require.NoError(t, c.Set(context.Background(), "p1", product))

	ttl := mr.TTL("product:p1")
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)
}

func TestRedisCache_Delete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	product := &domain.Product{ID: "p1", Price: decimal.New(1, 0)}
	require.NoError(t, c.Set(ctx, "p1", product))
	require.NoError(t, c.Delete(ctx, "p1"))

	_, err := c.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// deleting a missing key is not an error
	assert.NoError(t, c.Delete(ctx, "p1"))
}

func TestRedisCache_GetCorruptEntry(t *testing.T) {
	c, mr := newTestCache(t)

	mr.Set("product:p1", "{not json")

	_, err := c.Get(context.Background(), "p1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
