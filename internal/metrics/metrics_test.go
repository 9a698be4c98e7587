package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveIteration()
		m.ObserveSession("exhausted")
		m.ObserveMalformed("judge")
		m.ObserveClamped()
		m.ObserveCompletion(1.5)
		m.ObserveWrite("csv")
		m.ObserveSinkFailure("rest")
		m.SetDegraded(true)
		m.ObserveSyntheticEntry()
	})
}

func TestCountersIncrement(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveIteration()
	m.ObserveIteration()
	m.ObserveMalformed("edit")
	m.ObserveSinkFailure("rest")
	m.SetDegraded(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Iterations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MalformedResponses.WithLabelValues("edit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkFailures.WithLabelValues("rest")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkDegraded))

	m.SetDegraded(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SinkDegraded))
}
