package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/Hkilla-ux/shopsmart/internal/domain"
)

// MemoryRepository implements ProductRepository with in-memory storage.
// Used when no catalog database is configured, and by tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		products: make(map[string]*domain.Product),
	}
}

func (m *MemoryRepository) GetAllProducts(_ context.Context) ([]*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MemoryRepository) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

// Put inserts or replaces a product (used for seeding).
func (m *MemoryRepository) Put(p *domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	m.products[p.ID] = &cp
}

// Delete removes a product from the catalog.
func (m *MemoryRepository) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.products, id)
}

func (m *MemoryRepository) Close() error {
	return nil
}
