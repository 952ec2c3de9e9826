package cart

import (
	"context"
	"errors"

	"github.com/Hkilla-ux/shopsmart/internal/domain"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// CartRepository defines the interface for cart line operations.
//
// Semantics the orchestrator depends on:
//   - GetLines never fails on an empty cart; it returns an empty slice.
//   - PutLine upserts the (user, product) line and rejects quantity < 1.
//   - DeleteLine is idempotent; deleting an absent line is a no-op success.
//
// Each operation is an atomic single-record update. No multi-line
// transaction is offered or assumed.
type CartRepository interface {
	GetLines(ctx context.Context, userID string) ([]domain.CartLine, error)
	PutLine(ctx context.Context, userID string, productID string, quantity int) error
	DeleteLine(ctx context.Context, userID string, productID string) error
}
