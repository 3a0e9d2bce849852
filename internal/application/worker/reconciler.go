package worker

import (
	"context"
	"time"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/logging"
)

// Reconciler copies the gateway's settlement status onto ledger entries.
// It only ever writes RemoteStatus, so running it repeatedly is safe.
type Reconciler struct {
	Gateways gateway.Provider
	Ledger   ledger.Repository
	Recorder contracts.EventRecorder
	Logger   logging.Logger
	Now      func() time.Time
}

func (r *Reconciler) Reconcile(ctx context.Context, entryID string) (*ledger.Entry, error) {
	entry, err := r.Ledger.FindByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := r.ReconcileEntry(ctx, r.Ledger, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ReconcileEntry refreshes entry through repo and updates entry in place.
// Callers inside a unit of work pass their transaction-scoped repository.
func (r *Reconciler) ReconcileEntry(ctx context.Context, repo ledger.Repository, entry *ledger.Entry) error {
	if entry.RemoteTransactionID == "" {
		return nil
	}

	client, err := r.Gateways.ForOrganization(ctx, entry.OrganizationID)
	if err != nil {
		return err
	}

	details, err := client.GetTransactionDetails(ctx, entry.RemoteTransactionID)
	if err != nil {
		return err
	}

	if entry.RemoteStatus != nil && *entry.RemoteStatus == details.Status {
		return nil
	}

	if err := repo.UpdateRemoteStatus(ctx, entry.ID, details.Status); err != nil {
		return err
	}

	previous := "none"
	if entry.RemoteStatus != nil {
		previous = string(*entry.RemoteStatus)
	}
	status := details.Status
	entry.RemoteStatus = &status

	r.logger().Info("ledger entry reconciled", map[string]any{
		"ledger-entry-id":       entry.ID,
		"remote-transaction-id": entry.RemoteTransactionID,
		"from":                  previous,
		"to":                    string(status),
	})
	return nil
}

// Sweep enqueues reconciliation for every entry touched within window and
// returns how many were enqueued.
func (r *Reconciler) Sweep(ctx context.Context, window time.Duration) (int, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	entries, err := r.Ledger.ListUpdatedSince(ctx, now().Add(-window).UTC())
	if err != nil {
		return 0, err
	}

	for i, e := range entries {
		err := r.Recorder.Record(ctx, event.Event{
			Type:    event.ReconcileRequested,
			Payload: event.ReconcileRequestedPayload{LedgerEntryID: e.ID, Attempt: 1},
		})
		if err != nil {
			return i, err
		}
	}

	r.logger().Info("reconcile sweep enqueued", map[string]any{
		"entries": len(entries),
		"window":  window.String(),
	})
	return len(entries), nil
}

func (r *Reconciler) logger() logging.Logger {
	if r.Logger == nil {
		return logging.Nop{}
	}
	return r.Logger
}
