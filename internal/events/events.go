package events

import (
	"context"
	"time"
)

// Streams
const (
	StreamEscrow  = "events:escrow"
	StreamDeposit = "events:deposit"
)

// Event types
const (
	EventEscrowCreated   = "escrow.created"
	EventEscrowConfirmed = "escrow.confirmed"
	EventEscrowReleased  = "escrow.released"
	EventEscrowRefunded  = "escrow.refunded"
	EventEscrowExpired   = "escrow.expired"
	EventDepositCredited = "deposit.credited"
)

type Event struct {
	Type       string         `json:"type"`
	Seq        int64          `json:"seq,omitempty"` // logical timestamp
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, Event) error { return nil }
