package outbox

import (
	"context"
	"time"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/worker"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/logging"
)

// Dispatcher polls the outbox and hands each stored event to the bus.
// Delivery is at least once: an event is marked published only after
// every subscriber accepted it.
type Dispatcher struct {
	Repo         Repository
	EventBus     worker.EventPublisher
	Logger       logging.Logger
	PollInterval time.Duration
	BatchSize    int
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DispatchOnce(ctx)
		}
	}
}

// DispatchOnce publishes one batch and returns how many events went out.
func (d *Dispatcher) DispatchOnce(ctx context.Context) int {
	events, err := d.Repo.FindUnpublished(ctx, d.BatchSize)
	if err != nil {
		d.logger().Error("outbox poll failed", map[string]any{"error": err})
		return 0
	}

	sent := 0
	for _, evt := range events {
		payload, err := event.DecodePayload(evt.Type, evt.Payload)
		if err != nil {
			// An undecodable row would block the batch forever.
			d.logger().Error("dropping undecodable outbox event", map[string]any{
				"event-id":   evt.ID,
				"event-type": evt.Type,
				"error":      err,
			})
			_ = d.Repo.MarkPublished(ctx, evt.ID)
			continue
		}

		domainEvent := event.Event{
			ID:         evt.ID,
			Type:       evt.Type,
			OccurredAt: evt.CreatedAt,
			Payload:    payload,
		}

		if err := d.EventBus.Publish(ctx, domainEvent); err != nil {
			d.logger().Warn("outbox publish failed", map[string]any{
				"event-id":   evt.ID,
				"event-type": evt.Type,
				"error":      err,
			})
			continue
		}

		if err := d.Repo.MarkPublished(ctx, evt.ID); err != nil {
			d.logger().Error("outbox mark published failed", map[string]any{
				"event-id": evt.ID,
				"error":    err,
			})
			continue
		}
		sent++
	}

	return sent
}

func (d *Dispatcher) logger() logging.Logger {
	if d.Logger == nil {
		return logging.Nop{}
	}
	return d.Logger
}
