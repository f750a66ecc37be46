package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the storefront collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	cartMutations     *prometheus.CounterVec
	cartLoadFallbacks prometheus.Counter
	catalogDuration   *prometheus.HistogramVec
	sessions          prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations by operation and result.",
		}, []string{"op", "result"}),
		cartLoadFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_cart_load_fallbacks_total",
			Help: "Cart loads that replaced a malformed stored value with an empty cart.",
		}),
		catalogDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_catalog_request_duration_seconds",
			Help:    "Duration of catalog API calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_sessions",
			Help: "Cart sessions currently held in memory.",
		}),
	}
	reg.MustRegister(m.cartMutations, m.cartLoadFallbacks, m.catalogDuration, m.sessions)
	return m
}

func (m *Metrics) CartMutation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cartMutations.WithLabelValues(normalizeLabel(op), result).Inc()
}

func (m *Metrics) CartLoadFallback() {
	if m == nil {
		return
	}
	m.cartLoadFallbacks.Inc()
}

func (m *Metrics) ObserveCatalog(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.catalogDuration.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Observe(d.Seconds())
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
