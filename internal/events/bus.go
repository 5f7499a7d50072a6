package events

import (
	"context"
	"sync"
)

// RemotePublisher pushes a cart-changed ping beyond this process.
type RemotePublisher interface {
	PublishCartChanged(ctx context.Context, ping string) error
}

// Bus fans cart-changed pings out to in-process subscribers and, when a
// remote publisher is attached, to other storefront processes. Delivery is
// non-blocking: a subscriber that has fallen behind misses pings rather than
// stalling the writer, which is safe because subscribers re-read the full
// snapshot on every ping.
type Bus struct {
	mu        sync.Mutex
	subs      map[int]chan string
	nextID    int
	publisher RemotePublisher
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan string)}
}

// AttachPublisher wires an outbound publisher; pings received via Deliver
// (i.e. from other processes) are never re-published.
func (b *Bus) AttachPublisher(p RemotePublisher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publisher = p
}

// NotifyCartChanged distributes a ping originating in this process.
func (b *Bus) NotifyCartChanged(ctx context.Context, ping string) error {
	b.mu.Lock()
	publisher := b.publisher
	b.mu.Unlock()

	b.Deliver(ping)

	if publisher != nil {
		return publisher.PublishCartChanged(ctx, ping)
	}
	return nil
}

// Deliver fans a ping out to local subscribers only.
func (b *Bus) Deliver(ping string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ping:
		default:
		}
	}
}

// Subscribe registers a listener. The returned cancel func must be called to
// release the subscription.
func (b *Bus) Subscribe() (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan string, 8)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}
