package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Hkilla-ux/shopsmart/internal/checkout"
	"github.com/Hkilla-ux/shopsmart/internal/metrics"
)

// IdempotencyHeader carries the client-supplied idempotency token. The
// same token may also arrive in the body; the header wins.
const IdempotencyHeader = "Idempotency-Key"

type CheckoutHandler struct {
	service checkout.Service
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewCheckoutHandler(service checkout.Service, m *metrics.Metrics, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		metrics: m,
		timeout: timeout,
	}
}

type CheckoutRequestDTO struct {
	IdempotencyToken string `json:"idempotencyToken"`
}

// POST /checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	// token is optional; an empty body is a valid request
	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = CheckoutRequestDTO{}
	}
	token := r.Header.Get(IdempotencyHeader)
	if token == "" {
		token = req.IdempotencyToken
	}

	start := time.Now()
	result, err := h.service.Checkout(ctx, &checkout.CheckoutRequest{
		UserID:         userID,
		IdempotencyKey: token,
	})
	h.observe(start, err)

	if err != nil {
		log.Printf("checkout failed request_id=%s user_id=%s: %v", getRequestID(r.Context()), userID, err)
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *CheckoutHandler) observe(start time.Time, err error) {
	if h.metrics == nil {
		return
	}

	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, checkout.ErrEmptyCart):
		outcome = "empty_cart"
	default:
		outcome = "error"
	}
	h.metrics.CheckoutsTotal.WithLabelValues(outcome).Inc()
	h.metrics.CheckoutDurationMS.Observe(float64(time.Since(start).Milliseconds()))
}
