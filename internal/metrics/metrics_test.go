package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"vn.io.arda/notification-pipeline/internal/metrics"
)

func TestMetricsRecord(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.IncIngested("Chat", "created")
	m.IncIngested("Chat", "created")
	m.IncRouted("Success")
	m.AddPruned(3)
	m.SetPending(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Ingested.WithLabelValues("Chat", "created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Routed.WithLabelValues("Success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Pruned))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Pending))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.IncIngested("Chat", "created")
		m.IncRouted("Failed")
		m.AddPruned(1)
		m.SetPending(1)
		m.SetExpectations(1)
	})
}
