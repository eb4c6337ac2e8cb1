package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLedgerObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedger(reg)

	m.Observe("create", "ok", time.Now())
	m.Observe("create", "ok", time.Now())
	m.Observe("create", "invalid_input", time.Now())

	if got := testutil.ToFloat64(m.operations.WithLabelValues("create", "ok")); got != 2 {
		t.Errorf("create/ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("create", "invalid_input")); got != 1 {
		t.Errorf("create/invalid_input = %v, want 1", got)
	}
}

func TestLedgerMovedIgnoresNonPositive(t *testing.T) {
	m := NewLedger(nil)
	m.Moved("payout", 97)
	m.Moved("payout", 0)
	m.Moved("payout", -5)

	if got := testutil.ToFloat64(m.moved.WithLabelValues("payout")); got != 97 {
		t.Errorf("payout = %v, want 97", got)
	}
}

func TestNilLedgerIsSafe(t *testing.T) {
	var m *Ledger
	m.Observe("release", "ok", time.Now())
	m.Moved("fee", 3)
	m.Swept(1)
}
