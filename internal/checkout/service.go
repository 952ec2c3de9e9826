package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Hkilla-ux/shopsmart/internal/cart"
	"github.com/Hkilla-ux/shopsmart/internal/catalog"
	"github.com/Hkilla-ux/shopsmart/internal/domain"
	"github.com/Hkilla-ux/shopsmart/internal/order"
)

// orderIDNamespace is the UUIDv5 namespace for token-derived order IDs.
// Deriving the ID from (user, token) means a retried checkout lands on
// the same order row instead of creating a second one.
var orderIDNamespace = uuid.MustParse("7f1069b2-42a3-4e56-9a5f-3d1f1c1b8a20")

const orderCurrency = "USD"

type CheckoutRequest struct {
	UserID         string
	IdempotencyKey string
}

type CheckoutResult struct {
	OrderID string          `json:"orderId"`
	Total   decimal.Decimal `json:"total"`
}

type Service interface {
	Checkout(ctx context.Context, request *CheckoutRequest) (*CheckoutResult, error)
}

// ProductGetter is the slice of the catalog the orchestrator needs.
type ProductGetter interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// Orchestrator converts a user's cart into a durable, immutable order.
//
// The stores offer no cross-record transaction, so ordering carries the
// correctness: the order is written PENDING, the idempotency key is
// claimed, the order flips COMPLETED, and only then are cart lines
// cleared. A crash at any point either leaves no visible order or a
// resumable one; it never loses a completed order and never bills twice
// for the same token.
type Orchestrator struct {
	carts   cart.CartRepository
	catalog ProductGetter
	orders  order.OrderRepository
}

func NewOrchestrator(carts cart.CartRepository, productCatalog ProductGetter, orders order.OrderRepository) *Orchestrator {
	return &Orchestrator{
		carts:   carts,
		catalog: productCatalog,
		orders:  orders,
	}
}

func (s *Orchestrator) Checkout(ctx context.Context, request *CheckoutRequest) (*CheckoutResult, error) {
	if request.IdempotencyKey != "" {
		orderID, err := s.orders.GetOrderIDByIdempotencyKey(ctx, request.IdempotencyKey)
		if err != nil && !errors.Is(err, order.ErrIdempotencyKeyNotFound) {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if err == nil {
			// This checkout already exists. Finish it if a crash left it
			// pending, otherwise replay the recorded result.
			log.Printf("duplicate checkout request, idempotency_key=%s order_id=%s", request.IdempotencyKey, orderID)
			return s.resume(ctx, orderID)
		}
	}

	lines, err := s.carts.GetLines(ctx, request.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if len(lines) == 0 {
		if request.IdempotencyKey != "" {
			// a concurrent request with the same token may have consumed
			// the cart between our token check and the cart read
			orderID, err := s.orders.GetOrderIDByIdempotencyKey(ctx, request.IdempotencyKey)
			if err == nil {
				return s.resume(ctx, orderID)
			}
			if !errors.Is(err, order.ErrIdempotencyKeyNotFound) {
				return nil, fmt.Errorf("failed to check idempotency: %w", err)
			}
		}
		// not memoized: a later retry with a non-empty cart must succeed
		return nil, ErrEmptyCart
	}

	items, total, err := s.price(ctx, lines)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		// every line referenced a product gone from the catalog
		return nil, ErrEmptyCart
	}

	orderID := uuid.New()
	if request.IdempotencyKey != "" {
		orderID = deriveOrderID(request.UserID, request.IdempotencyKey)
	}

	now := time.Now()
	ord := &domain.Order{
		ID:        orderID,
		UserID:    request.UserID,
		Items:     items,
		Total:     total,
		Currency:  orderCurrency,
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.CreateOrder(ctx, ord); err != nil {
		return nil, fmt.Errorf("failed to write order: %w", err)
	}

	if request.IdempotencyKey == "" {
		return s.finish(ctx, ord)
	}

	winner, err := s.orders.ClaimIdempotencyKey(ctx, request.IdempotencyKey, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if winner != orderID {
		// a concurrent checkout claimed the token first; fall back to
		// reading its result rather than completing ours
		log.Printf("lost idempotency race, idempotency_key=%s winner_order_id=%s", request.IdempotencyKey, winner)
		return s.resume(ctx, winner)
	}

	// read the stored row back: with derived IDs a concurrent request may
	// have written this order first, from a fuller cart snapshot
	return s.resume(ctx, orderID)
}

// resume picks up an order an earlier request created for the same token.
func (s *Orchestrator) resume(ctx context.Context, orderID uuid.UUID) (*CheckoutResult, error) {
	ord, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order for idempotency key: %w", err)
	}

	if ord.Status == domain.OrderStatusCompleted {
		return &CheckoutResult{OrderID: ord.ID.String(), Total: ord.Total}, nil
	}

	// pending: the original request crashed between the order write and
	// the status flip; finish its work idempotently
	return s.finish(ctx, ord)
}

// finish flips the order to completed, emits the outbox event and clears
// the consumed cart lines. The order is durable before any of the
// cleanup runs, so cleanup failures are logged and left to the
// reconciliation sweep, never rolled back.
func (s *Orchestrator) finish(ctx context.Context, ord *domain.Order) (*CheckoutResult, error) {
	if err := s.orders.MarkOrderCompleted(ctx, ord.ID); err != nil {
		return nil, fmt.Errorf("failed to complete order: %w", err)
	}

	s.emitOrderCompleted(ctx, ord)

	for _, item := range ord.Items {
		if err := s.carts.DeleteLine(ctx, ord.UserID, item.ProductID); err != nil {
			log.Printf("failed to clear cart line user_id=%s product_id=%s: %v", ord.UserID, item.ProductID, err)
		}
	}

	return &CheckoutResult{OrderID: ord.ID.String(), Total: ord.Total}, nil
}

// price snapshots catalog prices for every line. A line whose product is
// gone from the catalog is dropped from the order and logged; any other
// catalog failure aborts the checkout as transient.
func (s *Orchestrator) price(ctx context.Context, lines []domain.CartLine) ([]domain.OrderItem, decimal.Decimal, error) {
	items := make([]domain.OrderItem, 0, len(lines))
	total := decimal.Zero

	for _, line := range lines {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			log.Printf("dropping cart line, product no longer in catalog: product_id=%s", line.ProductID)
			continue
		}
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("failed to price product %s: %w", line.ProductID, err)
		}

		subtotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
			Subtotal:    subtotal,
		})
		total = total.Add(subtotal)
	}

	return items, total, nil
}

func (s *Orchestrator) emitOrderCompleted(ctx context.Context, ord *domain.Order) {
	payload := map[string]interface{}{
		"order_id":     ord.ID.String(),
		"user_id":      ord.UserID,
		"items":        ord.Items,
		"total_amount": ord.Total,
		"currency":     ord.Currency,
		"completed_at": time.Now(),
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal order completed payload: %v", err)
		return
	}

	// best effort: the order is the source of truth, the event is a
	// convenience for downstream consumers
	if err := s.orders.InsertOutboxEvent(ctx, ord.ID.String(), "order_completed", payloadJSON); err != nil {
		log.Printf("failed to insert outbox event for order %s: %v", ord.ID, err)
	}
}

func deriveOrderID(userID, idempotencyKey string) uuid.UUID {
	return uuid.NewSHA1(orderIDNamespace, []byte(userID+"\x00"+idempotencyKey))
}
