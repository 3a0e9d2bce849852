package sqldb_test

import (
	"context"
	"errors"
	"path/filepath"
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
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/persistence/sqldb"
)

func setupTestDB(t *testing.T) *sqldb.Store {
	t.Helper()

	db, err := sqldb.Open(sqldb.DriverSQLite, filepath.Join(t.TempDir(), "cashier.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqldb.RunMigrations(context.Background(), db))
	// running twice must be harmless
	require.NoError(t, sqldb.RunMigrations(context.Background(), db))

	return sqldb.NewStore(db)
}

func newTransaction() *transaction.Transaction {
	return &transaction.Transaction{
		ID:             "txn-1",
		OrganizationID: 1,
		CustomerID:     1,
		SiteID:         3,
		Status:         transaction.StatusNew,
		Subtotal:       1500,
		Total:          1500,
		AmountDue:      1500,
		Items: []transaction.Item{
			{SKU: "A", UnitPrice: 1000, Quantity: 1, CreditEligible: true},
			{SKU: "B", UnitPrice: 250, Quantity: 2},
		},
	}
}

func TestCustomerRepository(t *testing.T) {
	ctx := context.Background()
	repos := setupTestDB(t).Repos()

	c := &customer.Customer{OrganizationID: 1, Email: "a@b.c", FirstName: "Ada"}
	require.NoError(t, repos.Customers.Create(ctx, c))
	require.NotZero(t, c.ID)

	profile, key := "PID-1", "1"
	c.RemoteProfileID, c.RemoteMerchantKey = &profile, &key
	require.NoError(t, repos.Customers.SaveIdentity(ctx, c))

	got, err := repos.Customers.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "PID-1", *got.RemoteProfileID)
	require.Nil(t, got.PrimaryPaymentMethodID)

	n, err := repos.Customers.ClearOrganizationIdentities(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err = repos.Customers.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.False(t, got.HasRemoteProfile())

	_, err = repos.Customers.FindByID(ctx, 999)
	require.True(t, failure.IsNotFound(err))
}

func TestPaymentMethodRepository_SinglePrimary(t *testing.T) {
	ctx := context.Background()
	repos := setupTestDB(t).Repos()
	expires := time.Date(2030, 12, 31, 23, 59, 59, 0, time.UTC)

	for _, id := range []string{"900000001", "900000002"} {
		require.NoError(t, repos.PaymentMethods.Save(ctx, &customer.PaymentMethod{
			ID: id, OrganizationID: 1, CustomerID: 7, Kind: customer.MethodCreditCard,
			MaskedNumber: "XXXX1111", ExpiresAt: expires,
		}))
	}

	require.NoError(t, repos.PaymentMethods.SetPrimary(ctx, 7, "900000002"))
	require.NoError(t, repos.PaymentMethods.SetPrimary(ctx, 7, "900000001"))

	methods, err := repos.PaymentMethods.ListByCustomer(ctx, 7)
	require.NoError(t, err)
	require.Len(t, methods, 2)

	primaries := 0
	for _, m := range methods {
		if m.IsPrimary {
			primaries++
			require.Equal(t, "900000001", m.ID)
		}
		require.True(t, expires.Equal(m.ExpiresAt))
	}
	require.Equal(t, 1, primaries)

	err = repos.PaymentMethods.SetPrimary(ctx, 8, "900000001")
	require.True(t, failure.IsNotFound(err))

	require.NoError(t, repos.PaymentMethods.Delete(ctx, 7, "900000002"))
	require.True(t, failure.IsNotFound(repos.PaymentMethods.Delete(ctx, 7, "900000002")))
}

func TestTransactionRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repos := setupTestDB(t).Repos()

	txn := newTransaction()
	require.NoError(t, repos.Transactions.Create(ctx, txn))
	require.NotZero(t, txn.Items[0].ID)

	got, err := repos.Transactions.FindByID(ctx, txn.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1500), got.AmountDue)
	require.Len(t, got.Items, 2)
	require.True(t, got.Items[0].CreditEligible)
	require.Empty(t, got.ChargeFailureLog)

	got.Items[0].FulfilledQuantity = 1
	require.NoError(t, repos.Transactions.UpdateItem(ctx, &got.Items[0]))

	attempts, err := repos.Transactions.IncrementChargeAttempts(ctx, txn.ID)
	require.NoError(t, err)
	require.Equal(t, 1, attempts)

	require.NoError(t, repos.Transactions.RecordChargeFailure(ctx, txn.ID, 1, "declined"))
	require.NoError(t, repos.Transactions.RecordChargeFailure(ctx, txn.ID, 3, "declined"))

	got, err = repos.Transactions.FindByID(ctx, txn.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.ChargeAttempts)
	require.Equal(t, transaction.StatusFailed, got.Status)
	require.Equal(t, []string{"declined", "declined"}, got.ChargeFailureLog)
	require.Equal(t, 1, got.Items[0].FulfilledQuantity)
}

func TestLedgerRepository(t *testing.T) {
	ctx := context.Background()
	repos := setupTestDB(t).Repos()
	profile := "900000001"

	entries := []*ledger.Entry{
		{ID: "0190a000-0000-7000-8000-000000000001", OrganizationID: 1, TransactionID: "txn-1", Type: ledger.TypeCapture, RemoteTransactionID: "60001", Amount: 1000, LastFour: "1111", PaymentProfileID: &profile},
		{ID: "0190a000-0000-7000-8000-000000000002", OrganizationID: 1, TransactionID: "txn-1", Type: ledger.TypeRefund, RemoteTransactionID: "60002", Amount: -400},
	}
	for _, e := range entries {
		require.NoError(t, repos.Ledger.Create(ctx, e))
	}

	latest, err := repos.Ledger.LatestPayment(ctx, "txn-1")
	require.NoError(t, err)
	require.Equal(t, entries[0].ID, latest.ID)
	require.Nil(t, latest.RemoteStatus)
	require.Equal(t, "900000001", *latest.PaymentProfileID)

	require.NoError(t, repos.Ledger.UpdateRemoteStatus(ctx, latest.ID, ledger.StatusSettledSuccessfully))

	got, err := repos.Ledger.FindByID(ctx, latest.ID)
	require.NoError(t, err)
	require.True(t, got.Refundable())
	require.False(t, got.Voidable())

	all, err := repos.Ledger.ListByTransaction(ctx, "txn-1")
	require.NoError(t, err)
	require.Equal(t, int64(600), ledger.NetCaptured(all))

	recent, err := repos.Ledger.ListUpdatedSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 2)

	_, err = repos.Ledger.LatestPayment(ctx, "txn-2")
	require.True(t, failure.IsNotFound(err))
}

func TestCreditRepository_Pools(t *testing.T) {
	ctx := context.Background()
	repos := setupTestDB(t).Repos()
	site := int64(3)

	require.NoError(t, repos.StoreCredit.Add(ctx, &credit.Movement{CustomerID: 1, SiteID: &site, Amount: 300}))
	require.NoError(t, repos.StoreCredit.Add(ctx, &credit.Movement{CustomerID: 1, Amount: 500}))
	require.NoError(t, repos.StoreCredit.Add(ctx, &credit.Movement{CustomerID: 1, SiteID: &site, Amount: -100}))

	siteBalance, err := repos.StoreCredit.Balance(ctx, 1, &site)
	require.NoError(t, err)
	require.Equal(t, int64(200), siteBalance)

	general, err := repos.StoreCredit.Balance(ctx, 1, nil)
	require.NoError(t, err)
	require.Equal(t, int64(500), general)
}

func TestWithinTx_RollsBackEveryWrite(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	require.NoError(t, store.Repos().Transactions.Create(ctx, newTransaction()))
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, r contracts.Repos) error {
		txn, err := r.Transactions.FindByID(ctx, "txn-1")
		if err != nil {
			return err
		}
		txn.Status = transaction.StatusPending
		if err := r.Transactions.Update(ctx, txn); err != nil {
			return err
		}
		if _, err := r.Transactions.IncrementChargeAttempts(ctx, txn.ID); err != nil {
			return err
		}
		if err := r.Ledger.Create(ctx, &ledger.Entry{ID: "le-1", TransactionID: txn.ID, Type: ledger.TypeCapture, Amount: 1500}); err != nil {
			return err
		}
		if err := r.Events.Record(ctx, event.Event{Type: event.OrderPlaced, Payload: event.OrderPlacedPayload{TransactionID: txn.ID}}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	txn, err := store.Repos().Transactions.FindByID(ctx, "txn-1")
	require.NoError(t, err)
	require.Equal(t, transaction.StatusNew, txn.Status)
	require.Zero(t, txn.ChargeAttempts)

	_, err = store.Repos().Ledger.FindByID(ctx, "le-1")
	require.True(t, failure.IsNotFound(err))

	pending, err := store.Outbox().FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestWithinTx_Commits(t *testing.T) {
	ctx := context.Background()
	store := setupTestDB(t)
	require.NoError(t, store.Repos().Transactions.Create(ctx, newTransaction()))

	err := store.WithinTx(ctx, func(ctx context.Context, r contracts.Repos) error {
		if _, err := r.Transactions.IncrementChargeAttempts(ctx, "txn-1"); err != nil {
			return err
		}
		return r.Events.Record(ctx, event.Event{Type: event.OrderPlaced, Payload: event.OrderPlacedPayload{TransactionID: "txn-1"}})
	})
	require.NoError(t, err)

	txn, err := store.Repos().Transactions.FindByID(ctx, "txn-1")
	require.NoError(t, err)
	require.Equal(t, 1, txn.ChargeAttempts)

	pending, err := store.Outbox().FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := sqldb.Open("postgres", "whatever")
	require.Error(t, err)
}
