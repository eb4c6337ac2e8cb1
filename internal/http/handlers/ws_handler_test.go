package handlers

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/escrow-ledger/backend/internal/events"
	"go.uber.org/zap"
)

// countingConn fails the test if two writes overlap.
type countingConn struct {
	t        *testing.T
	inFlight atomic.Int32
	writes   atomic.Int32
}

func (c *countingConn) WriteMessage(_ int, _ []byte) error {
	if c.inFlight.Add(1) > 1 {
		c.t.Error("concurrent write to one connection")
	}
	time.Sleep(time.Millisecond)
	c.inFlight.Add(-1)
	c.writes.Add(1)
	return nil
}

func TestSendToAccountSerializesWrites(t *testing.T) {
	h := NewWSHub(nil, nil, zap.NewNop())
	conn := &countingConn{t: t}
	h.register("alice", conn)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			typ := events.EventEscrowCreated
			if i%2 == 1 {
				typ = events.EventDepositCredited
			}
			h.SendToAccount("alice", events.Event{Type: typ, Seq: int64(i)})
		}(i)
	}
	wg.Wait()

	if got := conn.writes.Load(); got != 8 {
		t.Errorf("writes = %d, want 8", got)
	}
}

func TestUnregisterKeepsOtherClients(t *testing.T) {
	h := NewWSHub(nil, nil, zap.NewNop())
	first, second := &countingConn{t: t}, &countingConn{t: t}
	a := h.register("alice", first)
	h.register("alice", second)

	h.unregister("alice", a)
	h.SendToAccount("alice", events.Event{Type: events.EventEscrowConfirmed})

	if first.writes.Load() != 0 || second.writes.Load() != 1 {
		t.Errorf("writes = %d/%d, want 0/1", first.writes.Load(), second.writes.Load())
	}

	h.unregister("alice", h.clients["alice"][0])
	if _, ok := h.clients["alice"]; ok {
		t.Error("empty account entry not removed")
	}
}

func TestRecipients(t *testing.T) {
	got := Recipients(events.Event{Payload: map[string]any{"payer": "alice", "payee": "bob"}})
	if len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Errorf("Recipients = %v", got)
	}
	got = Recipients(events.Event{Payload: map[string]any{"account_id": "carol"}})
	if len(got) != 1 || got[0] != "carol" {
		t.Errorf("Recipients = %v", got)
	}
}
