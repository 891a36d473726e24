package telemetry

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveRequest(t *testing.T) {
	m := NewMetrics("test")

	m.ObserveRequest("GET", OutcomeOK, 10*time.Millisecond)
	m.ObserveRequest("GET", OutcomeOK, 20*time.Millisecond)
	m.ObserveRequest("PATCH", OutcomeAPI, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("PATCH", OutcomeAPI)))

	count, err := testutil.GatherAndCount(m.Registry(), "test_api_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", OutcomeOK, time.Second)
	})
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics("same")
		NewMetrics("same")
	})
}

func TestMetrics_WriteText(t *testing.T) {
	m := NewMetrics("test")
	m.ObserveRequest("GET", OutcomeOK, 10*time.Millisecond)
	m.ObserveRequest("GET", OutcomeNetwork, time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, "# TYPE test_api_requests_total counter")
	assert.Contains(t, out, `test_api_requests_total{method="GET",outcome="ok"} 1`)
	assert.Contains(t, out, `test_api_requests_total{method="GET",outcome="network_error"} 1`)
	assert.Contains(t, out, `test_api_request_duration_seconds_count{method="GET"} 2`)
}

func TestMetrics_WriteTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewMetrics("test").WriteText(&buf))
	assert.Empty(t, buf.String())
}
