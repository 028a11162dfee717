package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyc-design/neil-logger/pkg/record"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveRecord("job", record.Info)
	m.ObserveRecord("job", record.Info)
	m.ObserveRecord("job", record.Error)
	m.ObserveWrite("job", "run_logs", nil)
	m.ObserveWrite("job", "error_logs", errors.New("timeout"))
	m.ObserveFlush("job", time.Now(), errors.New("timeout"))
	m.ObserveCapture("job", "main.load")
	m.ObserveUncaught()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsBuffered.WithLabelValues("job", "INFO")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsBuffered.WithLabelValues("job", "ERROR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsWritten.WithLabelValues("job", "run_logs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WriteFailures.WithLabelValues("job", "error_logs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Flushes.WithLabelValues("job", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Captured.WithLabelValues("job", "main.load")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Uncaught))

	count, err := testutil.GatherAndCount(reg, "neil_logger_flush_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRecord("x", record.Debug)
		m.ObserveWrite("x", "c", nil)
		m.ObserveFlush("x", time.Now(), nil)
		m.ObserveCapture("x", "f")
		m.ObserveUncaught()
	})
}
