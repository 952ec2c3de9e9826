package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Hkilla-ux/shopsmart/internal/domain"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is a durable record of something downstream consumers need
// to hear about, written next to the order and published asynchronously.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// OrderRepository is the order store plus the idempotency and outbox
// records that live alongside it. Every method is an atomic single-record
// operation; the orchestrator never gets a cross-record transaction and
// is written not to need one.
type OrderRepository interface {
	// CreateOrder writes a new order. Writing an order whose ID already
	// exists is a no-op success, which makes crash-retry resumes safe.
	CreateOrder(ctx context.Context, order *domain.Order) error
	// MarkOrderCompleted flips PENDING -> COMPLETED. Completing an
	// already-completed order is a no-op success.
	MarkOrderCompleted(ctx context.Context, id uuid.UUID) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	// ListCompletedOrdersSince feeds the reconciliation sweep.
	ListCompletedOrdersSince(ctx context.Context, since time.Time) ([]*domain.Order, error)

	// ClaimIdempotencyKey atomically maps key -> orderID if the key is
	// unclaimed, and returns the order ID the key maps to afterwards.
	// The first writer wins; later claimants get the winner's order ID.
	ClaimIdempotencyKey(ctx context.Context, key string, orderID uuid.UUID) (uuid.UUID, error)
	GetOrderIDByIdempotencyKey(ctx context.Context, key string) (uuid.UUID, error)

	InsertOutboxEvent(ctx context.Context, aggregateID, eventType string, payload []byte) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error

	Close() error
}
