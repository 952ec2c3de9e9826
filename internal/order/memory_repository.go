package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Hkilla-ux/shopsmart/internal/domain"
)

// MemoryRepository implements OrderRepository with in-memory storage.
// Used when no postgres is configured, and by tests. Semantics match the
// postgres implementation record for record.
type MemoryRepository struct {
	mu          sync.RWMutex
	orders      map[uuid.UUID]*domain.Order
	keys        map[string]uuid.UUID
	events      []*OutboxEvent
	nextEventID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders:      make(map[uuid.UUID]*domain.Order),
		keys:        make(map[string]uuid.UUID),
		nextEventID: 1,
	}
}

func (m *MemoryRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[order.ID]; exists {
		return nil // same no-op as ON CONFLICT DO NOTHING
	}

	cp := *order
	cp.Items = append([]domain.OrderItem(nil), order.Items...)
	m.orders[order.ID] = &cp
	return nil
}

func (m *MemoryRepository) MarkOrderCompleted(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, exists := m.orders[id]
	if !exists {
		return ErrOrderNotFound
	}
	if order.Status == domain.OrderStatusCompleted {
		return nil
	}
	order.Status = domain.OrderStatusCompleted
	order.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, exists := m.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func (m *MemoryRepository) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var orders []*domain.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			orders = append(orders, copyOrder(order))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (m *MemoryRepository) ListCompletedOrdersSince(_ context.Context, since time.Time) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var orders []*domain.Order
	for _, order := range m.orders {
		if order.Status == domain.OrderStatusCompleted && !order.UpdatedAt.Before(since) {
			orders = append(orders, copyOrder(order))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].UpdatedAt.Before(orders[j].UpdatedAt) })
	return orders, nil
}

func (m *MemoryRepository) ClaimIdempotencyKey(_ context.Context, key string, orderID uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if winner, exists := m.keys[key]; exists {
		return winner, nil
	}
	m.keys[key] = orderID
	return orderID, nil
}

func (m *MemoryRepository) GetOrderIDByIdempotencyKey(_ context.Context, key string) (uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orderID, exists := m.keys[key]
	if !exists {
		return uuid.Nil, ErrIdempotencyKeyNotFound
	}
	return orderID, nil
}

func (m *MemoryRepository) InsertOutboxEvent(_ context.Context, aggregateID, eventType string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, &OutboxEvent{
		ID:          m.nextEventID,
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     append([]byte(nil), payload...),
		CreatedAt:   time.Now(),
	})
	m.nextEventID++
	return nil
}

func (m *MemoryRepository) GetUnprocessedEvents(_ context.Context, limit int) ([]*OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []*OutboxEvent
	for _, event := range m.events {
		if event.ProcessedAt == nil {
			cp := *event
			events = append(events, &cp)
			if len(events) == limit {
				break
			}
		}
	}
	return events, nil
}

func (m *MemoryRepository) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, event := range m.events {
		if event.ID == id {
			now := time.Now()
			event.ProcessedAt = &now
			return nil
		}
	}
	return nil
}

func (m *MemoryRepository) Close() error {
	return nil
}

func copyOrder(order *domain.Order) *domain.Order {
	cp := *order
	cp.Items = append([]domain.OrderItem(nil), order.Items...)
	return &cp
}
