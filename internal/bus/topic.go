// Package bus provides typed publish/subscribe topics.
package bus

import (
	"context"
	"sync"
)

const defaultBuffer = 16

// Topic fans values of one type out to every live subscriber.
// Publish never blocks on a Subscribe subscriber; a full one loses its oldest
// pending value. SubscribeReliable subscribers apply backpressure instead.
type Topic[T any] struct {
	name string

	mu   sync.RWMutex
	subs map[*subscriber[T]]struct{}
}

type subscriber[T any] struct {
	ch       chan T
	mu       sync.Mutex
	reliable bool
	done     <-chan struct{}
}

func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name, subs: make(map[*subscriber[T]]struct{})}
}

// Name is the wire name of the topic.
func (t *Topic[T]) Name() string { return t.name }

// Subscribe registers a subscriber until ctx is canceled, after which the
// returned channel is closed.
func (t *Topic[T]) Subscribe(ctx context.Context, buffer int) <-chan T {
	return t.subscribe(ctx, buffer, false)
}

// SubscribeReliable is Subscribe without drops: Publish waits for buffer
// space until ctx is canceled. Use it for command topics.
func (t *Topic[T]) SubscribeReliable(ctx context.Context, buffer int) <-chan T {
	return t.subscribe(ctx, buffer, true)
}

func (t *Topic[T]) subscribe(ctx context.Context, buffer int, reliable bool) <-chan T {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	s := &subscriber[T]{ch: make(chan T, buffer), reliable: reliable, done: ctx.Done()}
	t.mu.Lock()
	t.subs[s] = struct{}{}
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		delete(t.subs, s)
		close(s.ch)
		t.mu.Unlock()
	}()
	return s.ch
}

// Publish delivers v to all subscribers.
func (t *Topic[T]) Publish(v T) {
	if t == nil {
		return
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for s := range t.subs {
		s.push(v)
	}
}

// Subscribers reports the number of live subscriptions.
func (t *Topic[T]) Subscribers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reliable {
		select {
		case s.ch <- v:
		case <-s.done:
		}
		return
	}
	select {
	case s.ch <- v:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- v:
	default:
	}
}
