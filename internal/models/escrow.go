package models

import "time"

const (
	EscrowStatusPending   = "pending"
	EscrowStatusConfirmed = "confirmed"
	EscrowStatusReleased  = "released"
	EscrowStatusRefunded  = "refunded"
	EscrowStatusExpired   = "expired"
)

// Settlement of an expired record's funds.
const (
	ExpireSettlementRefunded  = "refunded"
	ExpireSettlementForfeited = "forfeited"
	ExpireSettlementFrozen    = "frozen"
)

// ValidEscrowTransitions defines all allowed status transitions.
var ValidEscrowTransitions = map[string][]string{
	EscrowStatusPending:   {EscrowStatusConfirmed, EscrowStatusRefunded, EscrowStatusExpired},
	EscrowStatusConfirmed: {EscrowStatusReleased, EscrowStatusExpired},
	EscrowStatusReleased:  {},
	EscrowStatusRefunded:  {},
	EscrowStatusExpired:   {},
}

func IsValidTransition(from, to string) bool {
	allowed, ok := ValidEscrowTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminalStatus(status string) bool {
	switch status {
	case EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusExpired:
		return true
	}
	return false
}

type EscrowRecord struct {
	ID          int64     `json:"id"`
	Payer       string    `json:"payer"`
	Payee       string    `json:"payee"`
	Amount      int64     `json:"amount"`
	ProtocolFee int64     `json:"protocol_fee"`
	FeeBPS      int       `json:"fee_bps"`
	Status      string    `json:"status"`
	Payload     []byte    `json:"payload,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Deadline    time.Time `json:"deadline"`

	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	SettledAt        *time.Time `json:"settled_at,omitempty"`
	PayoutAmount     *int64     `json:"payout_amount,omitempty"`
	FeeRetained      *int64     `json:"fee_retained,omitempty"`
	ExpireSettlement *string    `json:"expire_settlement,omitempty"`
}

func (r *EscrowRecord) IsTerminal() bool {
	return IsTerminalStatus(r.Status)
}

// TimeRemaining returns how long until the deadline, or zero once it has passed.
func (r *EscrowRecord) TimeRemaining(now time.Time) time.Duration {
	if !now.Before(r.Deadline) {
		return 0
	}
	return r.Deadline.Sub(now)
}

// Clone returns a deep copy so callers never alias store-owned memory.
func (r *EscrowRecord) Clone() *EscrowRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Payload != nil {
		out.Payload = append([]byte(nil), r.Payload...)
	}
	if r.ConfirmedAt != nil {
		t := *r.ConfirmedAt
		out.ConfirmedAt = &t
	}
	if r.SettledAt != nil {
		t := *r.SettledAt
		out.SettledAt = &t
	}
	if r.PayoutAmount != nil {
		v := *r.PayoutAmount
		out.PayoutAmount = &v
	}
	if r.FeeRetained != nil {
		v := *r.FeeRetained
		out.FeeRetained = &v
	}
	if r.ExpireSettlement != nil {
		v := *r.ExpireSettlement
		out.ExpireSettlement = &v
	}
	return &out
}

// OverdueCursor is the (deadline, id) position an overdue scan resumes after.
// The zero value starts from the oldest deadline.
type OverdueCursor struct {
	Deadline time.Time
	ID       int64
}

// After reports whether rec sorts after the cursor.
func (c OverdueCursor) After(rec *EscrowRecord) bool {
	if rec.Deadline.Equal(c.Deadline) {
		return rec.ID > c.ID
	}
	return rec.Deadline.After(c.Deadline)
}

// EscrowFilter pages through an index. Zero Limit means the repository default.
type EscrowFilter struct {
	Limit  int
	Offset int
}
