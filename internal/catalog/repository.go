package catalog

import (
	"context"
	"errors"

	"github.com/Hkilla-ux/shopsmart/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")

	// ErrUnavailable covers transient catalog failures (store down,
	// circuit breaker open). Callers may retry; it is never a not-found.
	ErrUnavailable = errors.New("catalog temporarily unavailable")
)

// ProductRepository defines the interface for catalog reads.
// Consumers define this interface, not the SQLite implementation.
type ProductRepository interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	Close() error
}
