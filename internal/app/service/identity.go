package service

import (
	"context"
	"sort"
	"sync"

	"github.com/ikkim/atelier-backend/internal/cart"
	"github.com/ikkim/atelier-backend/pkg/logger"
)

// IdentityBroadcaster fans sign-in and sign-out events out to subscribers.
// Handlers run synchronously, in subscription order, on the publishing
// goroutine.
type IdentityBroadcaster struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(ctx context.Context, event cart.IdentityEvent)
}

func NewIdentityBroadcaster() *IdentityBroadcaster {
	return &IdentityBroadcaster{
		handlers: make(map[int]func(ctx context.Context, event cart.IdentityEvent)),
	}
}

func (b *IdentityBroadcaster) Subscribe(handler func(ctx context.Context, event cart.IdentityEvent)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

func (b *IdentityBroadcaster) Publish(ctx context.Context, event cart.IdentityEvent) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(context.Context, cart.IdentityEvent), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	logger.Debug("Publishing identity event", map[string]interface{}{
		"user_id":     event.Identity,
		"event":       event.Kind.String(),
		"subscribers": len(handlers),
	})

	for _, handler := range handlers {
		handler(ctx, event)
	}
}
