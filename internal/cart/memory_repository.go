package cart

import (
	"context"
	"sync"
	"time"

	"github.com/Hkilla-ux/shopsmart/internal/domain"
)

// MemoryRepository implements CartRepository with in-memory storage.
// Line order is insertion order, matching the document-backed store.
type MemoryRepository struct {
	mu    sync.RWMutex
	lines map[string][]domain.CartLine // userID -> lines
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		lines: make(map[string][]domain.CartLine),
	}
}

func (m *MemoryRepository) GetLines(_ context.Context, userID string) ([]domain.CartLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]domain.CartLine, len(m.lines[userID]))
	copy(result, m.lines[userID])
	return result, nil
}

func (m *MemoryRepository) PutLine(_ context.Context, userID string, productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for i, line := range m.lines[userID] {
		if line.ProductID == productID {
			m.lines[userID][i].Quantity = quantity
			m.lines[userID][i].UpdatedAt = now
			return nil
		}
	}

	m.lines[userID] = append(m.lines[userID], domain.CartLine{
		ProductID: productID,
		Quantity:  quantity,
		UpdatedAt: now,
	})
	return nil
}

func (m *MemoryRepository) DeleteLine(_ context.Context, userID string, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := m.lines[userID]
	for i, line := range lines {
		if line.ProductID == productID {
			m.lines[userID] = append(lines[:i], lines[i+1:]...)
			break
		}
	}
	if len(m.lines[userID]) == 0 {
		delete(m.lines, userID)
	}
	return nil
}
