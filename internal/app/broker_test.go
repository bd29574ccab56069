package app

import (
	"context"
	"testing"
	"time"
)

func TestBrokerQueueDropsOverflow(t *testing.T) {
	b := newBroker[int](2, false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.subscribe(ctx, nil)

	if dropped := b.publish(1) + b.publish(2) + b.publish(3); dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	if got := <-ch; got != 1 {
		t.Fatalf("first = %d, want 1", got)
	}
	if got := <-ch; got != 2 {
		t.Fatalf("second = %d, want 2", got)
	}
}

func TestBrokerKeepLatestReplacesPending(t *testing.T) {
	b := newBroker[int](1, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.subscribe(ctx, func(ch chan int) { ch <- 0 })

	b.publish(1)
	b.publish(2)
	if got := <-ch; got != 2 {
		t.Fatalf("got %d, want latest 2", got)
	}
}

func TestBrokerUnsubscribesOnCancel(t *testing.T) {
	b := newBroker[string](1, false)
	ctx, cancel := context.WithCancel(context.Background())
	ch := b.subscribe(ctx, nil)
	if b.subscribers() != 1 {
		t.Fatalf("subscribers = %d, want 1", b.subscribers())
	}
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if n := b.subscribers(); n != 0 {
					t.Fatalf("subscribers = %d after cancel", n)
				}
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}
