package app

import (
	"context"
	"sync"
)

// broker fans published values out to context-scoped subscribers. With
// keepLatest a slow subscriber only ever holds the newest value; otherwise
// values queue up to the buffer size and overflow is dropped.
type broker[T any] struct {
	mu         sync.Mutex
	subs       map[uint64]chan T
	nextID     uint64
	buffer     int
	keepLatest bool
}

// newBroker constructs a broker with per-subscriber buffer size.
func newBroker[T any](buffer int, keepLatest bool) *broker[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &broker[T]{
		subs:       map[uint64]chan T{},
		buffer:     buffer,
		keepLatest: keepLatest,
	}
}

// subscribe registers one subscriber; its channel closes once ctx ends.
// seed, when non-nil, runs under the broker lock and may prime the channel.
func (b *broker[T]) subscribe(ctx context.Context, seed func(chan T)) <-chan T {
	ch := make(chan T, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	if seed != nil {
		seed(ch)
	}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}

// publish delivers value to every subscriber without blocking. It reports
// how many subscribers dropped a value.
func (b *broker[T]) publish(value T) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := 0
	for _, ch := range b.subs {
		if !b.offer(ch, value) {
			dropped++
		}
	}
	return dropped
}

// subscribers reports the current subscriber count.
func (b *broker[T]) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// offer sends value to ch, replacing a pending value when keepLatest is set.
func (b *broker[T]) offer(ch chan T, value T) bool {
	select {
	case ch <- value:
		return true
	default:
	}
	if !b.keepLatest {
		return false
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- value:
		return true
	default:
		return false
	}
}
