package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func TestBusDeliversToStreamSubscribers(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Event, 4)
	_ = bus.Subscribe(ctx, StreamEscrow, func(e Event) { got <- e })

	_ = bus.Publish(ctx, StreamEscrow, Event{Type: EventEscrowCreated, Seq: 1})
	_ = bus.Publish(ctx, StreamDeposit, Event{Type: EventDepositCredited, Seq: 2})
	_ = bus.Publish(ctx, StreamEscrow, Event{Type: EventEscrowConfirmed, Seq: 3})

	if ev := receive(t, got); ev.Seq != 1 {
		t.Errorf("first event seq = %d, want 1", ev.Seq)
	}
	if ev := receive(t, got); ev.Seq != 3 {
		t.Errorf("second event seq = %d, want 3", ev.Seq)
	}
	select {
	case ev := <-got:
		t.Errorf("unexpected event %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBusPublishDoesNotWaitOnHandler(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	_ = bus.Subscribe(ctx, StreamEscrow, func(Event) { <-release })
	defer close(release)

	done := make(chan error, 1)
	go func() {
		var err error
		for i := 0; i <= busQueueSize+1; i++ {
			if e := bus.Publish(ctx, StreamEscrow, Event{Seq: int64(i)}); e != nil {
				err = e
			}
		}
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrSubscriberLagging) {
			t.Errorf("Publish error = %v, want ErrSubscriberLagging once the queue fills", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a stalled handler")
	}
}

func TestBusUnsubscribesOnCancel(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	calls := make(chan struct{}, 4)
	_ = bus.Subscribe(ctx, StreamEscrow, func(Event) { calls <- struct{}{} })
	cancel()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		bus.mu.RLock()
		n := len(bus.subs[StreamEscrow])
		bus.mu.RUnlock()
		if n == 0 {
			_ = bus.Publish(context.Background(), StreamEscrow, Event{Type: EventEscrowExpired})
			select {
			case <-calls:
				t.Fatal("handler invoked after cancel")
			case <-time.After(20 * time.Millisecond):
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("subscriber not removed after cancel")
}
