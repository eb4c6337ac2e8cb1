package events

import (
	"context"
	"errors"
	"sync"
)

// ErrSubscriberLagging is returned by Bus.Publish when a subscriber's queue
// is full and the event was dropped for it.
var ErrSubscriberLagging = errors.New("events: subscriber lagging, event dropped")

const busQueueSize = 256

type busSubscriber struct {
	queue chan Event
	done  <-chan struct{}
}

// Bus is an in-process Publisher and Subscriber. Every subscriber has its own
// queue and goroutine, so Publish never waits on a handler.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[*busSubscriber]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[*busSubscriber]struct{})}
}

func (b *Bus) Publish(ctx context.Context, stream string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var err error
	for sub := range b.subs[stream] {
		select {
		case sub.queue <- event:
		case <-sub.done:
		default:
			err = ErrSubscriberLagging
		}
	}
	return err
}

// Subscribe delivers events from stream to handler, in publish order, until
// ctx is done.
func (b *Bus) Subscribe(ctx context.Context, stream string, handler func(Event)) error {
	sub := &busSubscriber{queue: make(chan Event, busQueueSize), done: ctx.Done()}

	b.mu.Lock()
	if b.subs[stream] == nil {
		b.subs[stream] = make(map[*busSubscriber]struct{})
	}
	b.subs[stream][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.subs[stream], sub)
			b.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-sub.queue:
				handler(ev)
			}
		}
	}()
	return nil
}
