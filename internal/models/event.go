package models

import "time"

// EscrowEvent is one entry of the per-ledger event log. Seq is the logical
// timestamp: strictly increasing across all records.
type EscrowEvent struct {
	Seq        int64          `json:"seq"`
	EscrowID   int64          `json:"escrow_id"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes"`
	OccurredAt time.Time      `json:"occurred_at"`
}
