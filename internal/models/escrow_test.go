package models

import (
	"testing"
	"time"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{EscrowStatusPending, EscrowStatusConfirmed, true},
		{EscrowStatusConfirmed, EscrowStatusReleased, true},

		// Deadline paths
		{EscrowStatusPending, EscrowStatusRefunded, true},
		{EscrowStatusPending, EscrowStatusExpired, true},
		{EscrowStatusConfirmed, EscrowStatusExpired, true},

		// Invalid transitions
		{EscrowStatusPending, EscrowStatusReleased, false},
		{EscrowStatusConfirmed, EscrowStatusRefunded, false},
		{EscrowStatusConfirmed, EscrowStatusConfirmed, false},
		{EscrowStatusReleased, EscrowStatusRefunded, false},
		{EscrowStatusRefunded, EscrowStatusReleased, false},
		{EscrowStatusExpired, EscrowStatusRefunded, false},
		{EscrowStatusReleased, EscrowStatusExpired, false},
		{"nonexistent", EscrowStatusConfirmed, false},
		{EscrowStatusPending, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		EscrowStatusPending, EscrowStatusConfirmed,
		EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusExpired,
	}

	for _, status := range allStatuses {
		if _, ok := ValidEscrowTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidEscrowTransitions map", status)
		}
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	for status, next := range ValidEscrowTransitions {
		if IsTerminalStatus(status) && len(next) != 0 {
			t.Errorf("terminal status %q has outgoing transitions: %v", status, next)
		}
		if !IsTerminalStatus(status) && len(next) == 0 {
			t.Errorf("non-terminal status %q has no outgoing transitions", status)
		}
	}
}

func TestTimeRemaining(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := &EscrowRecord{Deadline: base.Add(10 * time.Second)}

	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"before", base, 10 * time.Second},
		{"one second left", base.Add(9 * time.Second), time.Second},
		{"at deadline", base.Add(10 * time.Second), 0},
		{"after", base.Add(time.Minute), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rec.TimeRemaining(tt.now); got != tt.want {
				t.Errorf("TimeRemaining = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	payout := int64(97)
	rec := &EscrowRecord{ID: 1, Payload: []byte("hello"), PayoutAmount: &payout}
	cp := rec.Clone()

	cp.Payload[0] = 'j'
	*cp.PayoutAmount = 1

	if string(rec.Payload) != "hello" {
		t.Errorf("payload aliased: %q", rec.Payload)
	}
	if *rec.PayoutAmount != 97 {
		t.Errorf("payout aliased: %d", *rec.PayoutAmount)
	}
}

func TestSplitFee(t *testing.T) {
	tests := []struct {
		amount     int64
		bps        int
		wantPayout int64
		wantFee    int64
	}{
		{100, 300, 97, 3},
		{100, 0, 100, 0},
		{99, 300, 97, 2}, // 2.97 floors to 2
		{1, 9999, 1, 0},  // 0.9999 floors to 0
		{10000, 1, 9999, 1},
		{100, 10000, 0, 100},
		{0, 300, 0, 0},
	}
	for _, tt := range tests {
		payout, fee := SplitFee(tt.amount, tt.bps)
		if payout != tt.wantPayout || fee != tt.wantFee {
			t.Errorf("SplitFee(%d, %d) = (%d, %d), want (%d, %d)",
				tt.amount, tt.bps, payout, fee, tt.wantPayout, tt.wantFee)
		}
	}
}

func TestSplitFeeConservation(t *testing.T) {
	amounts := []int64{1, 7, 99, 100, 12345, 1_000_000_007, 9_223_372_036_854_775_807}
	for _, amount := range amounts {
		for bps := 0; bps <= BasisPoints; bps += 37 {
			payout, fee := SplitFee(amount, bps)
			if payout+fee != amount {
				t.Fatalf("SplitFee(%d, %d): %d + %d != amount", amount, bps, payout, fee)
			}
			if fee < 0 || payout < 0 {
				t.Fatalf("SplitFee(%d, %d): negative part (%d, %d)", amount, bps, payout, fee)
			}
		}
	}
}
