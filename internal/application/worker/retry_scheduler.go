package worker

import (
	"context"
	"time"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
)

type RetryScheduler struct {
	EventBus  EventPublisher
	MaxRetry  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Delay is the backoff before attempt+1: BaseDelay doubled per attempt,
// capped at MaxDelay.
func (r *RetryScheduler) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return min(r.BaseDelay*time.Duration(1<<(attempt-1)), r.MaxDelay)
}

func (r *RetryScheduler) Schedule(ctx context.Context, payload event.ReconcileRequestedPayload) {
	if payload.Attempt >= r.MaxRetry {
		return
	}

	delay := r.Delay(payload.Attempt)

	nextPayload := event.ReconcileRequestedPayload{
		LedgerEntryID: payload.LedgerEntryID,
		Attempt:       payload.Attempt + 1,
	}

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		_ = r.EventBus.Publish(context.WithoutCancel(ctx), event.Event{
			Type:    event.ReconcileRequested,
			Payload: nextPayload,
		})
	}()
}
