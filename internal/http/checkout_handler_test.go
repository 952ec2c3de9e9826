package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Hkilla-ux/shopsmart/internal/cart"
	"github.com/Hkilla-ux/shopsmart/internal/catalog"
	"github.com/Hkilla-ux/shopsmart/internal/checkout"
	"github.com/Hkilla-ux/shopsmart/internal/domain"
	"github.com/Hkilla-ux/shopsmart/internal/order"
)

type checkoutFixture struct {
	handler *CheckoutHandler
	carts   *cart.MemoryRepository
	orders  *order.MemoryRepository
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	carts := cart.NewMemoryRepository()
	products := catalog.NewMemoryRepository()
	orders := order.NewMemoryRepository()

	products.Put(&domain.Product{ID: "p1", Name: "Widget", Price: decimal.RequireFromString("10.00"), CreatedAt: time.Now()})
	products.Put(&domain.Product{ID: "p2", Name: "Gadget", Price: decimal.RequireFromString("5.00"), CreatedAt: time.Now()})

	svc := checkout.NewOrchestrator(carts, products, orders)
	return &checkoutFixture{
		handler: NewCheckoutHandler(svc, nil, 5*time.Second),
		carts:   carts,
		orders:  orders,
	}
}

func checkoutRequest(body string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req.WithContext(WithUserID(req.Context(), "user-1"))
}

type checkoutResponse struct {
	OrderID string `json:"orderId"`
	Total   string `json:"total"`
}

func TestCheckoutHandler_Success(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	if err := f.carts.PutLine(ctx, "user-1", "p1", 2); err != nil {
		t.Fatal(err)
	}
	if err := f.carts.PutLine(ctx, "user-1", "p2", 1); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	f.handler.Checkout(w, checkoutRequest("", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp checkoutResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OrderID == "" {
		t.Error("expected non-empty orderId")
	}
	if got := decimal.RequireFromString(resp.Total); !got.Equal(decimal.RequireFromString("25.00")) {
		t.Errorf("expected total 25.00, got %s", resp.Total)
	}
}

func TestCheckoutHandler_HeaderTokenReplay(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	if err := f.carts.PutLine(ctx, "user-1", "p1", 1); err != nil {
		t.Fatal(err)
	}

	headers := map[string]string{IdempotencyHeader: "tok-1"}

	w1 := httptest.NewRecorder()
	f.handler.Checkout(w1, checkoutRequest("", headers))
	w2 := httptest.NewRecorder()
	f.handler.Checkout(w2, checkoutRequest("", headers))

	if w1.Code != http.StatusOK || w2.Code != http.StatusOK {
		t.Fatalf("expected 200/200, got %d/%d", w1.Code, w2.Code)
	}

	var r1, r2 checkoutResponse
	json.NewDecoder(w1.Body).Decode(&r1)
	json.NewDecoder(w2.Body).Decode(&r2)

	if r1.OrderID != r2.OrderID {
		t.Errorf("replay returned a different order: %s vs %s", r1.OrderID, r2.OrderID)
	}
	if r1.Total != r2.Total {
		t.Errorf("replay returned a different total: %s vs %s", r1.Total, r2.Total)
	}

	orders, _ := f.orders.ListOrdersByUserID(ctx, "user-1")
	if len(orders) != 1 {
		t.Errorf("expected exactly one order, got %d", len(orders))
	}
}

func TestCheckoutHandler_BodyTokenUsedWhenHeaderAbsent(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	if err := f.carts.PutLine(ctx, "user-1", "p1", 1); err != nil {
		t.Fatal(err)
	}

	w1 := httptest.NewRecorder()
	f.handler.Checkout(w1, checkoutRequest(`{"idempotencyToken":"tok-body"}`, nil))
	w2 := httptest.NewRecorder()
	f.handler.Checkout(w2, checkoutRequest(`{"idempotencyToken":"tok-body"}`, nil))

	var r1, r2 checkoutResponse
	json.NewDecoder(w1.Body).Decode(&r1)
	json.NewDecoder(w2.Body).Decode(&r2)

	if r1.OrderID != r2.OrderID {
		t.Errorf("body token replay returned a different order: %s vs %s", r1.OrderID, r2.OrderID)
	}
}

func TestCheckoutHandler_HeaderWinsOverBody(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	if err := f.carts.PutLine(ctx, "user-1", "p1", 1); err != nil {
		t.Fatal(err)
	}

	w1 := httptest.NewRecorder()
	f.handler.Checkout(w1, checkoutRequest(`{"idempotencyToken":"tok-body"}`, map[string]string{IdempotencyHeader: "tok-header"}))

	// second request with only the header token replays the first
	if err := f.carts.PutLine(ctx, "user-1", "p1", 1); err != nil {
		t.Fatal(err)
	}
	w2 := httptest.NewRecorder()
	f.handler.Checkout(w2, checkoutRequest("", map[string]string{IdempotencyHeader: "tok-header"}))

	var r1, r2 checkoutResponse
	json.NewDecoder(w1.Body).Decode(&r1)
	json.NewDecoder(w2.Body).Decode(&r2)
	if r1.OrderID != r2.OrderID {
		t.Errorf("expected header token to identify the checkout, got %s vs %s", r1.OrderID, r2.OrderID)
	}
}

func TestCheckoutHandler_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	w := httptest.NewRecorder()
	f.handler.Checkout(w, checkoutRequest("", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Code != "empty_cart" {
		t.Errorf("expected code empty_cart, got %q", resp.Code)
	}
}

func TestCheckoutHandler_Unauthorized(t *testing.T) {
	f := newCheckoutFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(""))
	w := httptest.NewRecorder()
	f.handler.Checkout(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}
