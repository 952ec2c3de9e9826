package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	CheckoutsTotal         *prometheus.CounterVec
	CheckoutDurationMS     prometheus.Histogram
	ReconcilerLinesRemoved prometheus.Counter
}

func New() *Metrics {
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopsmart",
		Name:      "checkouts_total",
		Help:      "Total number of checkout attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shopsmart",
		Name:      "checkout_duration_ms",
		Help:      "Checkout latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	reconciled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "shopsmart",
		Name:      "reconciler_lines_removed_total",
		Help:      "Cart lines removed by the reconciliation sweep.",
	})

	prometheus.MustRegister(checkouts, duration, reconciled)
	return &Metrics{
		CheckoutsTotal:         checkouts,
		CheckoutDurationMS:     duration,
		ReconcilerLinesRemoved: reconciled,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
