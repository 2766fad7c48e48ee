package interview

import "sync"

const subscriberBuffer = 64

// broadcaster fans orchestrator events out to websocket subscribers.
// Slow subscribers drop messages rather than stall the pipeline.
type broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan any
	next int
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan any)}
}

func (b *broadcaster) subscribe() (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan any, subscriberBuffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *broadcaster) publish(msg any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}
