package gotrue

import (
	"sync"

	"github.com/albrthuynh/NBAIQ/internal/core/domain"
)

const subscriberBuffer = 32

type subscriber struct {
	ch   chan domain.ProviderEvent
	done chan struct{}
	once sync.Once
}

// broadcaster fans provider events out to subscribers in emission order. A full subscriber
// buffer blocks the emitter until the subscriber reads or unsubscribes.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[uint64]*subscriber)}
}

func (b *broadcaster) subscribe() (<-chan domain.ProviderEvent, func()) {
	sub := &subscriber{
		ch:   make(chan domain.ProviderEvent, subscriberBuffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	return sub.ch, func() {
		sub.once.Do(func() {
			close(sub.done)
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *broadcaster) publish(event domain.ProviderEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		case <-sub.done:
		}
	}
}

func (b *broadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
