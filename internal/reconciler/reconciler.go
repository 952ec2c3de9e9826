package reconciler

import (
	"context"
	"log"
	"time"

	"github.com/Hkilla-ux/shopsmart/internal/cart"
	"github.com/Hkilla-ux/shopsmart/internal/metrics"
	"github.com/Hkilla-ux/shopsmart/internal/order"
)

// Reconciler repairs the window between an order flipping COMPLETED and
// its cart lines being cleared. A crash there leaves lines behind; the
// sweep finds recent completed orders and deletes any line that was part
// of the order snapshot and predates it. Lines added after checkout are
// newer than the order and are left alone.
type Reconciler struct {
	carts   cart.CartRepository
	orders  order.OrderRepository
	tick    time.Duration
	window  time.Duration
	metrics *metrics.Metrics
}

func New(carts cart.CartRepository, orders order.OrderRepository, tick, window time.Duration, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		carts:   carts,
		orders:  orders,
		tick:    tick,
		window:  window,
		metrics: m,
	}
}

func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if removed := r.Sweep(ctx); removed > 0 {
				log.Printf("reconciler removed %d stale cart lines", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one reconciliation pass and returns the number of cart
// lines it removed.
func (r *Reconciler) Sweep(ctx context.Context) int {
	orders, err := r.orders.ListCompletedOrdersSince(ctx, time.Now().Add(-r.window))
	if err != nil {
		log.Printf("reconciler failed to list completed orders: %v", err)
		return 0
	}

	removed := 0
	for _, ord := range orders {
		lines, err := r.carts.GetLines(ctx, ord.UserID)
		if err != nil {
			log.Printf("reconciler failed to read cart for user %s: %v", ord.UserID, err)
			continue
		}
		if len(lines) == 0 {
			continue
		}

		consumed := make(map[string]struct{}, len(ord.Items))
		for _, item := range ord.Items {
			consumed[item.ProductID] = struct{}{}
		}

		for _, line := range lines {
			if _, ok := consumed[line.ProductID]; !ok {
				continue
			}
			if !line.UpdatedAt.Before(ord.CreatedAt) {
				continue // line re-added after checkout, not ours to clean
			}
			if err := r.carts.DeleteLine(ctx, ord.UserID, line.ProductID); err != nil {
				log.Printf("reconciler failed to delete line user_id=%s product_id=%s: %v", ord.UserID, line.ProductID, err)
				continue
			}
			removed++
		}
	}

	if removed > 0 && r.metrics != nil {
		r.metrics.ReconcilerLinesRemoved.Add(float64(removed))
	}
	return removed
}
