package inmemory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/credit"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/transaction"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/persistence/inmemory"
)

func seedTransaction(t *testing.T, store *inmemory.Store) *transaction.Transaction {
	t.Helper()
	txn := &transaction.Transaction{
		ID:        "txn-1",
		Status:    transaction.StatusNew,
		Subtotal:  1000,
		Total:     1000,
		AmountDue: 1000,
		Items:     []transaction.Item{{SKU: "SKU-1", UnitPrice: 1000, Quantity: 1}},
	}
	require.NoError(t, store.Repos().Transactions.Create(context.Background(), txn))
	return txn
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	seedTransaction(t, store)
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, r contracts.Repos) error {
		txn, err := r.Transactions.FindByID(ctx, "txn-1")
		require.NoError(t, err)
		txn.Status = transaction.StatusPending
		require.NoError(t, r.Transactions.Update(ctx, txn))
		_, err = r.Transactions.IncrementChargeAttempts(ctx, txn.ID)
		require.NoError(t, err)
		require.NoError(t, r.Events.Record(ctx, event.Event{Type: event.OrderPlaced, Payload: event.OrderPlacedPayload{}}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	txn, err := store.Repos().Transactions.FindByID(ctx, "txn-1")
	require.NoError(t, err)
	require.Equal(t, transaction.StatusNew, txn.Status)
	require.Zero(t, txn.ChargeAttempts)

	pending, err := store.Outbox().FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	backlog, err := store.Outbox().CountUnpublished(ctx)
	require.NoError(t, err)
	require.Empty(t, backlog)
}

func TestWithinTx_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	seedTransaction(t, store)

	require.Panics(t, func() {
		_ = store.WithinTx(ctx, func(ctx context.Context, r contracts.Repos) error {
			_, _ = r.Transactions.IncrementChargeAttempts(ctx, "txn-1")
			panic("mid call")
		})
	})

	txn, err := store.Repos().Transactions.FindByID(ctx, "txn-1")
	require.NoError(t, err)
	require.Zero(t, txn.ChargeAttempts)
}

func TestWithinTx_RollbackKeepsWritesMadeOutside(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	seedTransaction(t, store)
	boom := errors.New("boom")

	outside := &customer.Customer{OrganizationID: 1, Email: "grace@example.com"}
	done := make(chan error, 1)
	finishedInside := false

	err := store.WithinTx(ctx, func(ctx context.Context, r contracts.Repos) error {
		_, err := r.Transactions.IncrementChargeAttempts(ctx, "txn-1")
		require.NoError(t, err)

		go func() {
			done <- store.Repos().Customers.Create(context.Background(), outside)
		}()

		select {
		case err := <-done:
			finishedInside = true
			done <- err
		case <-time.After(50 * time.Millisecond):
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, finishedInside)
	require.NoError(t, <-done)

	got, err := store.Repos().Customers.FindByID(ctx, outside.ID)
	require.NoError(t, err)
	require.Equal(t, "grace@example.com", got.Email)

	txn, err := store.Repos().Transactions.FindByID(ctx, "txn-1")
	require.NoError(t, err)
	require.Zero(t, txn.ChargeAttempts)
}

func TestWithinTx_WritesWithUnitContextJoinIt(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	boom := errors.New("boom")

	c := &customer.Customer{OrganizationID: 1, Email: "joined@example.com"}
	err := store.WithinTx(ctx, func(ctx context.Context, _ contracts.Repos) error {
		require.NoError(t, store.Repos().Customers.Create(ctx, c))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Repos().Customers.FindByID(ctx, c.ID)
	require.True(t, failure.IsNotFound(err))
}

func TestRecordChargeFailure_UsesMaxSemantics(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	seedTransaction(t, store)
	repo := store.Repos().Transactions

	require.NoError(t, repo.RecordChargeFailure(ctx, "txn-1", 1, "declined"))
	require.NoError(t, repo.RecordChargeFailure(ctx, "txn-1", 1, "declined again"))

	txn, err := repo.FindByID(ctx, "txn-1")
	require.NoError(t, err)
	require.Equal(t, 1, txn.ChargeAttempts)
	require.Equal(t, transaction.StatusFailed, txn.Status)
	require.Equal(t, []string{"declined", "declined again"}, txn.ChargeFailureLog)
}

func TestUpdate_DoesNotTouchChargeAttempts(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	txn := seedTransaction(t, store)
	repo := store.Repos().Transactions

	_, err := repo.IncrementChargeAttempts(ctx, txn.ID)
	require.NoError(t, err)

	txn.ChargeAttempts = 99
	txn.Note = "hello"
	require.NoError(t, repo.Update(ctx, txn))

	got, err := repo.FindByID(ctx, txn.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.ChargeAttempts)
	require.Equal(t, "hello", got.Note)
}

func TestLedger_LatestPaymentIsMostRecentCapture(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	repo := store.Repos().Ledger

	require.NoError(t, repo.Create(ctx, &ledger.Entry{ID: "a", TransactionID: "txn-1", Type: ledger.TypeCapture, Amount: 100, RemoteTransactionID: "1"}))
	require.NoError(t, repo.Create(ctx, &ledger.Entry{ID: "b", TransactionID: "txn-1", Type: ledger.TypeCapture, Amount: 200, RemoteTransactionID: "2"}))
	require.NoError(t, repo.Create(ctx, &ledger.Entry{ID: "c", TransactionID: "txn-1", Type: ledger.TypeRefund, Amount: -50, RemoteTransactionID: "3"}))

	latest, err := repo.LatestPayment(ctx, "txn-1")
	require.NoError(t, err)
	require.Equal(t, "b", latest.ID)

	_, err = repo.LatestPayment(ctx, "txn-2")
	require.True(t, failure.IsNotFound(err))
}

func TestCredit_BalancePerPool(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	repo := store.Repos().StoreCredit
	site := int64(3)

	require.NoError(t, repo.Add(ctx, &credit.Movement{CustomerID: 1, SiteID: &site, Amount: 300}))
	require.NoError(t, repo.Add(ctx, &credit.Movement{CustomerID: 1, Amount: 500}))
	require.NoError(t, repo.Add(ctx, &credit.Movement{CustomerID: 1, Amount: -200}))
	require.NoError(t, repo.Add(ctx, &credit.Movement{CustomerID: 2, Amount: 900}))

	siteBalance, err := repo.Balance(ctx, 1, &site)
	require.NoError(t, err)
	require.Equal(t, int64(300), siteBalance)

	general, err := repo.Balance(ctx, 1, nil)
	require.NoError(t, err)
	require.Equal(t, int64(300), general)
}
