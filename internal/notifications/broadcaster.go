package notifications

import (
	"context"
	"sync"
)

// Event is one broadcast message delivered to in-process subscribers.
type Event struct {
	Name    string
	Payload any
}

// Broadcaster fans events out to live in-process subscribers. Delivery is
// non-blocking: a subscriber whose buffer is full loses the event rather
// than stalling the publisher.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	next   int
	closed bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener with the given buffer size and returns its
// channel plus a cancel function. Cancel is idempotent.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber that has buffer space.
func (b *Broadcaster) Publish(ctx context.Context, name string, payload any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- Event{Name: name, Payload: payload}:
		default:
			// Slow subscriber; drop rather than block.
		}
	}
	return nil
}

// Close drops all subscribers and closes their channels. Publishing after
// Close is a no-op.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
