package worker

import (
	"context"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
)

type EventPublisher interface {
	Publish(ctx context.Context, evt event.Event) error
}

type Handler interface {
	Handle(ctx context.Context, evt event.Event) error
}

// Scheduler re-enqueues a reconciliation that failed transiently.
type Scheduler interface {
	Schedule(ctx context.Context, payload event.ReconcileRequestedPayload)
}

// EntryReconciler refreshes one ledger entry from the gateway.
type EntryReconciler interface {
	Reconcile(ctx context.Context, entryID string) (*ledger.Entry, error)
}
