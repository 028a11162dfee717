// Package metrics exposes Prometheus counters for the logger.
//
// A nil *Metrics is valid and records nothing, so callers that do not care about
// metrics can leave the field empty.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nyc-design/neil-logger/pkg/record"
)

const namespace = "neil_logger"

// Metrics groups the collectors updated by the logger.
type Metrics struct {
	RecordsBuffered  *prometheus.CounterVec
	Flushes          *prometheus.CounterVec
	DocumentsWritten *prometheus.CounterVec
	WriteFailures    *prometheus.CounterVec
	FlushDuration    prometheus.Histogram
	Captured         *prometheus.CounterVec
	Uncaught         prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg leaves them
// unregistered, which is handy in tests.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RecordsBuffered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_buffered_total",
			Help:      "Records appended to the in-memory buffer, by level.",
		}, []string{"logger", "level"}),
		Flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Non-empty flush cycles, by result.",
		}, []string{"logger", "result"}),
		DocumentsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_written_total",
			Help:      "Documents written to the durable store, by collection.",
		}, []string{"logger", "collection"}),
		WriteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_failures_total",
			Help:      "Failed durable store writes, by collection.",
		}, []string{"logger", "collection"}),
		FlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_duration_seconds",
			Help:      "Time spent writing one flush cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		Captured: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captured_failures_total",
			Help:      "Failures intercepted by wrapped calls, by function.",
		}, []string{"logger", "function"}),
		Uncaught: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uncaught_failures_total",
			Help:      "Failures handled by the process-wide hook.",
		}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.RecordsBuffered, m.Flushes, m.DocumentsWritten, m.WriteFailures,
		m.FlushDuration, m.Captured, m.Uncaught,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveRecord(logger string, level record.Level) {
	if m == nil {
		return
	}
	m.RecordsBuffered.WithLabelValues(logger, level.String()).Inc()
}

func (m *Metrics) ObserveWrite(logger, collection string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.WriteFailures.WithLabelValues(logger, collection).Inc()
		return
	}
	m.DocumentsWritten.WithLabelValues(logger, collection).Inc()
}

func (m *Metrics) ObserveFlush(logger string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Flushes.WithLabelValues(logger, result).Inc()
	m.FlushDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveCapture(logger, function string) {
	if m == nil {
		return
	}
	m.Captured.WithLabelValues(logger, function).Inc()
}

func (m *Metrics) ObserveUncaught() {
	if m == nil {
		return
	}
	m.Uncaught.Inc()
}
