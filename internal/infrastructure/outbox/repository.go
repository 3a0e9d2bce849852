package outbox

import (
	"context"
	"time"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
)

// OutboxEvent is a domain event waiting to leave the process. Payload is
// the JSON form of the event payload, decoded again by event.DecodePayload.
type OutboxEvent struct {
	ID        string
	Type      event.Type
	Payload   []byte
	Published bool
	CreatedAt time.Time
}

// Repository is written inside the checkout unit of work and drained by
// the Dispatcher. FindUnpublished returns the oldest events first.
type Repository interface {
	Save(ctx context.Context, evt OutboxEvent) error
	FindUnpublished(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkPublished(ctx context.Context, id string) error
	// CountUnpublished reports the backlog, per event type.
	CountUnpublished(ctx context.Context) (map[event.Type]int, error)
}
