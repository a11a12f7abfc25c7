package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the notification pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Ingested     *prometheus.CounterVec
	Routed       *prometheus.CounterVec
	Pruned       prometheus.Counter
	Pending      prometheus.Gauge
	Expectations prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ingested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_ingested_total",
			Help: "Intents accepted by Add, by channel and outcome (created, merged, transient)",
		}, []string{"channel", "outcome"}),
		Routed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_routed_total",
			Help: "Routing attempts by result",
		}, []string{"result"}),
		Pruned: f.NewCounter(prometheus.CounterOpts{
			Name: "notification_pruned_total",
			Help: "Records deleted by retention pruning",
		}),
		Pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "notification_pending_routes",
			Help: "Deferred routes waiting for navigation",
		}),
		Expectations: f.NewGauge(prometheus.GaugeOpts{
			Name: "notification_expectations",
			Help: "Outstanding WaitFor/Expect registrations",
		}),
	}
}

func (m *Metrics) IncIngested(channel, outcome string) {
	if m == nil {
		return
	}
	m.Ingested.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) IncRouted(result string) {
	if m == nil {
		return
	}
	m.Routed.WithLabelValues(result).Inc()
}

func (m *Metrics) AddPruned(n int) {
	if m == nil {
		return
	}
	m.Pruned.Add(float64(n))
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.Pending.Set(float64(n))
}

func (m *Metrics) SetExpectations(n int) {
	if m == nil {
		return
	}
	m.Expectations.Set(float64(n))
}
