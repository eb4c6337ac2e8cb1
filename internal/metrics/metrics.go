// Package metrics holds the prometheus collectors for ledger operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Ledger struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	moved      *prometheus.CounterVec
	swept      prometheus.Counter
}

// NewLedger registers the ledger collectors with reg. A nil reg leaves them
// unregistered.
func NewLedger(reg prometheus.Registerer) *Ledger {
	m := &Ledger{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escrow",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations segmented by operation and outcome kind.",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "escrow",
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Latency distribution for ledger operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		moved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escrow",
			Subsystem: "ledger",
			Name:      "value_moved_total",
			Help:      "Value moved through the gateway, segmented by purpose.",
		}, []string{"purpose"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escrow",
			Subsystem: "janitor",
			Name:      "expired_total",
			Help:      "Records expired by the janitor sweep.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.latency, m.moved, m.swept)
	}
	return m
}

// Observe records one operation. outcome is "ok" or the error kind.
func (m *Ledger) Observe(op, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func (m *Ledger) Moved(purpose string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.moved.WithLabelValues(purpose).Add(float64(amount))
}

func (m *Ledger) Swept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(float64(n))
}
