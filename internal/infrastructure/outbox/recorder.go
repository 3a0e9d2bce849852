package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
)

// Recorder writes events to the outbox. Bound to a transaction-scoped
// Repository it makes the event part of the same unit of work.
type Recorder struct {
	Repo Repository
	Now  func() time.Time
}

func (r *Recorder) Record(ctx context.Context, evt event.Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", evt.Type, err)
	}

	id := evt.ID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	return r.Repo.Save(ctx, OutboxEvent{
		ID:        id,
		Type:      evt.Type,
		Payload:   payload,
		CreatedAt: now().UTC(),
	})
}
