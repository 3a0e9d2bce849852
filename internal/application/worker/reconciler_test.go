package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/worker"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway/sandbox"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/persistence/inmemory"
)

type countingLedger struct {
	ledger.Repository
	updates int
}

func (c *countingLedger) UpdateRemoteStatus(ctx context.Context, id string, status ledger.RemoteStatus) error {
	c.updates++
	return c.Repository.UpdateRemoteStatus(ctx, id, status)
}

func chargedEntry(t *testing.T, gw *sandbox.Gateway, repo ledger.Repository, id string) *ledger.Entry {
	t.Helper()
	ctx := context.Background()

	res, err := gw.Charge(ctx, gateway.ChargeRequest{
		Amount: 1000,
		Card:   &gateway.Card{Number: "4111111111111111", Expiration: "12/30", CVV: "123"},
	})
	require.NoError(t, err)

	entry := &ledger.Entry{
		ID:                  id,
		OrganizationID:      1,
		TransactionID:       "txn-" + id,
		Type:                res.Type,
		RemoteTransactionID: res.TransactionID,
		Amount:              1000,
		LastFour:            res.LastFour,
	}
	require.NoError(t, repo.Create(ctx, entry))
	return entry
}

func TestReconciler_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	gw := sandbox.New()
	store := inmemory.NewStore()
	repo := &countingLedger{Repository: store.Repos().Ledger}

	reconciler := &worker.Reconciler{
		Gateways: gateway.SingleProvider{Client: gw},
		Ledger:   repo,
		Recorder: store.Repos().Events,
	}
	chargedEntry(t, gw, repo, "le-1")

	first, err := reconciler.Reconcile(ctx, "le-1")
	require.NoError(t, err)
	require.Equal(t, ledger.StatusCapturedPendingSettlement, *first.RemoteStatus)
	require.Equal(t, 1, repo.updates)

	second, err := reconciler.Reconcile(ctx, "le-1")
	require.NoError(t, err)
	require.Equal(t, *first.RemoteStatus, *second.RemoteStatus)
	require.Equal(t, 1, repo.updates, "an unchanged status must not be written again")

	gw.SettleAll()

	settled, err := reconciler.Reconcile(ctx, "le-1")
	require.NoError(t, err)
	require.Equal(t, ledger.StatusSettledSuccessfully, *settled.RemoteStatus)
	require.Equal(t, 2, repo.updates)

	stored, err := repo.FindByID(ctx, "le-1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), stored.Amount)
	require.True(t, stored.Refundable())
}

func TestReconciler_SkipsEntriesWithoutRemoteID(t *testing.T) {
	ctx := context.Background()
	gw := sandbox.New()
	store := inmemory.NewStore()

	reconciler := &worker.Reconciler{Gateways: gateway.SingleProvider{Client: gw}, Ledger: store.Repos().Ledger}

	entry := &ledger.Entry{ID: "le-local", TransactionID: "txn-1", Type: ledger.TypeCapture}
	require.NoError(t, reconciler.ReconcileEntry(ctx, store.Repos().Ledger, entry))
	require.Nil(t, entry.RemoteStatus)
	require.Zero(t, gw.TotalCalls())
}

func TestReconciler_PropagatesGatewayFailure(t *testing.T) {
	ctx := context.Background()
	gw := sandbox.New()
	store := inmemory.NewStore()

	reconciler := &worker.Reconciler{Gateways: gateway.SingleProvider{Client: gw}, Ledger: store.Repos().Ledger}
	chargedEntry(t, gw, store.Repos().Ledger, "le-1")

	gw.FailNext(sandbox.OpTransactionDetails, sandbox.Retryable(sandbox.OpTransactionDetails))
	_, err := reconciler.Reconcile(ctx, "le-1")
	require.True(t, failure.IsRetryable(err))

	stored, err := store.Repos().Ledger.FindByID(ctx, "le-1")
	require.NoError(t, err)
	require.Nil(t, stored.RemoteStatus)

	_, err = reconciler.Reconcile(ctx, "missing")
	require.True(t, failure.IsNotFound(err))
}

func TestReconciler_SweepEnqueuesRecentEntries(t *testing.T) {
	ctx := context.Background()
	gw := sandbox.New()
	store := inmemory.NewStore()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return now.Add(-48 * time.Hour) }
	chargedEntry(t, gw, store.Repos().Ledger, "le-old")

	store.Now = func() time.Time { return now.Add(-time.Hour) }
	chargedEntry(t, gw, store.Repos().Ledger, "le-new")
	require.NoError(t, store.Repos().Ledger.Create(ctx, &ledger.Entry{ID: "le-local", TransactionID: "txn-x", Type: ledger.TypeCapture}))

	reconciler := &worker.Reconciler{
		Gateways: gateway.SingleProvider{Client: gw},
		Ledger:   store.Repos().Ledger,
		Recorder: store.Repos().Events,
		Now:      func() time.Time { return now },
	}

	n, err := reconciler.Sweep(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	pending, err := store.Outbox().FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, event.ReconcileRequested, pending[0].Type)
	require.Contains(t, string(pending[0].Payload), "le-new")
}
