// Package events is an in-process typed publish/subscribe bus used for
// cross-component signalling between the cart, the checkout session and the
// shopper-facing surfaces.
package events

import (
	"context"
	"slices"
	"sync"
)

// Handler receives one published event.
type Handler[T any] func(ctx context.Context, event T)

// Topic fans a single event type out to its subscribers. The zero value is ready to use.
type Topic[T any] struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]Handler[T]
}

// Subscribe registers h and returns a function that removes it.
func (t *Topic[T]) Subscribe(h Handler[T]) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handlers == nil {
		t.handlers = make(map[uint64]Handler[T])
	}
	id := t.nextID
	t.nextID++
	t.handlers[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.handlers, id)
			t.mu.Unlock()
		})
	}
}

// Publish calls every subscriber synchronously in subscription order.
func (t *Topic[T]) Publish(ctx context.Context, event T) {
	if t == nil {
		return
	}
	t.mu.RLock()
	ids := make([]uint64, 0, len(t.handlers))
	for id := range t.handlers {
		ids = append(ids, id)
	}
	handlers := make([]Handler[T], 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, t.handlers[id])
	}
	t.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, event)
	}
}

// Len reports the number of active subscribers.
func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handlers)
}

// Bus groups the storefront topics.
type Bus struct {
	CartChanged       Topic[CartChanged]
	CartItemAdded     Topic[CartItemAdded]
	CartDrawerToggled Topic[CartDrawerToggled]
	Notifications     Topic[Notification]
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}
