package eventbus

import (
	"context"
	"errors"
	"sync"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
)

type HandlerFunc func(context.Context, event.Event) error

// InMemoryBus delivers events synchronously to handlers registered per
// event type.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerFunc
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[event.Type][]HandlerFunc),
	}
}

func (b *InMemoryBus) Subscribe(eventType event.Type, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers handler for each of the given types.
func (b *InMemoryBus) SubscribeAll(types []event.Type, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, typ := range types {
		b.handlers[typ] = append(b.handlers[typ], handler)
	}
}

// Publish runs every handler for the event type in subscription order and
// joins their errors. A failing handler does not stop the others.
func (b *InMemoryBus) Publish(ctx context.Context, evt event.Event) error {
	b.mu.RLock()
	handlers := append([]HandlerFunc(nil), b.handlers[evt.Type]...)
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
