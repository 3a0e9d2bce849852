package worker

import (
	"context"
	"errors"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/metrics"
)

// ReconcileHandler consumes ReconcileRequested events. Transient gateway
// failures go back through Retry; anything else is logged and dropped so
// the outbox does not redeliver it forever.
type ReconcileHandler struct {
	Reconciler EntryReconciler
	Retry      Scheduler
	Logger     logging.Logger
	Metrics    *metrics.Counters
}

var _ Handler = (*ReconcileHandler)(nil)

func (h *ReconcileHandler) Handle(ctx context.Context, evt event.Event) error {
	if evt.Type != event.ReconcileRequested {
		return nil
	}

	payload, ok := evt.Payload.(event.ReconcileRequestedPayload)
	if !ok {
		return errors.New("invalid payload for ReconcileRequested")
	}

	h.logger().Info("reconciling ledger entry", map[string]any{
		"ledger-entry-id": payload.LedgerEntryID,
		"attempt":         payload.Attempt,
	})

	_, err := h.Reconciler.Reconcile(ctx, payload.LedgerEntryID)

	h.Metrics.IncReconcileProcessed()

	if err == nil {
		return nil
	}

	h.Metrics.IncReconcileFailed()

	retryable := failure.IsRetryable(err)
	h.logger().Error("reconcile failed", map[string]any{
		"ledger-entry-id": payload.LedgerEntryID,
		"attempt":         payload.Attempt,
		"kind":            failure.KindOf(err).String(),
		"retryable":       retryable,
		"error":           err,
	})

	if retryable && h.Retry != nil {
		h.Metrics.IncReconcileRetry()
		h.Retry.Schedule(ctx, payload)
	}

	return nil
}

func (h *ReconcileHandler) logger() logging.Logger {
	if h.Logger == nil {
		return logging.Nop{}
	}
	return h.Logger
}
