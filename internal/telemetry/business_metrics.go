package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability
// of the cart sync and checkout pipeline.
type BusinessMetrics struct {
	// Cart sync
	SyncBatches   *prometheus.CounterVec // label: result = ok|partial|failed|abandoned
	SyncBatchSize prometheus.Histogram
	CartMutations *prometheus.CounterVec // label: kind = upsert|remove

	// Checkout funnel
	PaymentIntents *prometheus.CounterVec // label: result = created|reused|failed
	OrdersCreated  *prometheus.CounterVec // label: path = gateway|manual
	OrderValue     prometheus.Histogram

	// Order state machine
	OrderTransitions  *prometheus.CounterVec // labels: from, to
	RedirectsVerified *prometheus.CounterVec // label: outcome = confirmed|stale|pending
}

// NewBusinessMetrics creates and registers all business metrics on reg.
// Pass prometheus.DefaultRegisterer in production; tests use a private
// registry to avoid duplicate registration.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "vitrine"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &BusinessMetrics{
		SyncBatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "sync_batches_total",
			Help:      "Cart sync batches by result",
		}, []string{"result"}),
		SyncBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "sync_batch_size",
			Help:      "Number of coalesced mutations per sync batch",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		CartMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "mutations_total",
			Help:      "Cart mutations by kind",
		}, []string{"kind"}),
		PaymentIntents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "payment_intents_total",
			Help:      "Payment intent requests by result",
		}, []string{"result"}),
		OrdersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders created by placement path",
		}, []string{"path"}),
		OrderValue: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "value_cents",
			Help:      "Order totals in cents",
			Buckets:   prometheus.ExponentialBuckets(500, 2.5, 8),
		}),
		OrderTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order status transitions",
		}, []string{"from", "to"}),
		RedirectsVerified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "redirects_verified_total",
			Help:      "Redirect callbacks by re-verification outcome",
		}, []string{"outcome"}),
	}
}
