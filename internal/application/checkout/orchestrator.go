// Package checkout runs the transaction state machine: checkout, returns,
// voids and comps. Each operation is one local unit of work around at most
// one remote monetary call.
package checkout

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/paymentmethod"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/transaction"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/metrics"
)

// IdentityResolvable produces the billing profile id of a customer.
type IdentityResolvable interface {
	Resolve(ctx context.Context, c *customer.Customer) (string, error)
}

// Chargeable takes payment for a transaction.
type Chargeable interface {
	Checkout(ctx context.Context, transactionID string, opts Options) (*transaction.Transaction, error)
	Comp(ctx context.Context, transactionID, reason string) (*transaction.Transaction, error)
}

// Reversible gives money or goods back on a paid transaction.
type Reversible interface {
	ReturnItems(ctx context.Context, transactionID string, lines []transaction.ReturnLine, asStoreCredit bool) (*transaction.Transaction, error)
	Void(ctx context.Context, transactionID string) (*transaction.Transaction, error)
}

// Inventory fulfills and reverses line items. Writes go through repo so
// they join the caller's unit of work.
type Inventory interface {
	Fulfill(ctx context.Context, repo transaction.Repository, t *transaction.Transaction, bypassGuards bool) error
	Return(ctx context.Context, repo transaction.Repository, t *transaction.Transaction, lines []transaction.ReturnLine) (int64, error)
	Reverse(ctx context.Context, repo transaction.Repository, t *transaction.Transaction) error
}

// EntryReconciler refreshes the remote status of a ledger entry in place.
type EntryReconciler interface {
	ReconcileEntry(ctx context.Context, repo ledger.Repository, entry *ledger.Entry) error
}

// Options tune a single Checkout call.
type Options struct {
	Note    string
	Payment gateway.PaymentData
	// StorePaymentMethod registers the supplied card or track data under
	// the customer's billing profile and charges the stored profile.
	StorePaymentMethod bool
	SkipFulfillment    bool
	// BypassGuards lets fulfillment top up items that were already
	// fulfilled or returned. The transaction status is always checked.
	BypassGuards bool
}

type Orchestrator struct {
	Store      contracts.Store
	Gateways   gateway.Provider
	Identity   IdentityResolvable
	Methods    *paymentmethod.Registry
	Inventory  Inventory
	Reconciler EntryReconciler
	Logger     logging.Logger
	Metrics    *metrics.Counters

	locks keyedMutex
}

var (
	_ Chargeable = (*Orchestrator)(nil)
	_ Reversible = (*Orchestrator)(nil)
)

// Open validates and stores a new transaction in status new. Totals are
// computed from the items.
func (o *Orchestrator) Open(ctx context.Context, t *transaction.Transaction) error {
	if len(t.Items) == 0 {
		return failure.New(failure.BadInput, "a transaction needs at least one item")
	}

	var subtotal int64
	for _, it := range t.Items {
		if it.Quantity <= 0 {
			return failure.Newf(failure.BadInput, "item %q: quantity must be positive", it.SKU)
		}
		if it.UnitPrice < 0 {
			return failure.Newf(failure.BadInput, "item %q: unit price cannot be negative", it.SKU)
		}
		subtotal += it.LineTotal()
	}
	if t.Discount < 0 || t.Tax < 0 {
		return failure.New(failure.BadInput, "discount and tax cannot be negative")
	}

	total := subtotal - t.Discount + t.Tax
	if total < 0 {
		return failure.New(failure.BadInput, "discount exceeds subtotal")
	}

	repos := o.Store.Repos()
	c, err := repos.Customers.FindByID(ctx, t.CustomerID)
	if err != nil {
		return err
	}

	if t.ID == "" {
		t.ID = newID()
	}
	t.OrganizationID = c.OrganizationID
	t.Status = transaction.StatusNew
	t.Subtotal = subtotal
	t.Total = total
	t.AmountDue = total
	t.PaymentApplied, t.RefundTotal, t.StoreCreditApplied = 0, 0, 0
	t.ChargeAttempts = 0
	t.ChargeFailureLog = nil
	t.CompReason = ""

	if err := repos.Transactions.Create(ctx, t); err != nil {
		return err
	}

	o.logger().Info("transaction opened", map[string]any{
		"transaction-id":  t.ID,
		"organization-id": t.OrganizationID,
		"customer-id":     t.CustomerID,
		"total":           t.Total,
	})
	return nil
}

func (o *Orchestrator) Get(ctx context.Context, transactionID string) (*transaction.Transaction, error) {
	return o.Store.Repos().Transactions.FindByID(ctx, transactionID)
}

func (o *Orchestrator) LedgerEntries(ctx context.Context, transactionID string) ([]ledger.Entry, error) {
	repos := o.Store.Repos()
	if _, err := repos.Transactions.FindByID(ctx, transactionID); err != nil {
		return nil, err
	}
	return repos.Ledger.ListByTransaction(ctx, transactionID)
}

// Comp makes a transaction complimentary: nothing is owed and later
// returns move no money.
func (o *Orchestrator) Comp(ctx context.Context, transactionID, reason string) (*transaction.Transaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, failure.New(failure.BadInput, "a comp needs a reason")
	}

	unlock := o.locks.Lock(transactionID)
	defer unlock()

	var out *transaction.Transaction
	err := o.Store.WithinTx(ctx, func(ctx context.Context, r contracts.Repos) error {
		t, err := r.Transactions.FindByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if !t.Status.CanCheckout() {
			return failure.Newf(failure.Conflict, "transaction %s is %s and can no longer be comped", t.ID, t.Status)
		}

		t.CompReason = reason
		t.Discount = t.Subtotal
		t.Tax = 0
		t.Total = 0
		t.AmountDue = 0

		if err := r.Transactions.Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger().Info("transaction comped", map[string]any{
		"transaction-id": transactionID,
		"reason":         reason,
	})
	return out, nil
}

func (o *Orchestrator) logger() logging.Logger {
	if o.Logger == nil {
		return logging.Nop{}
	}
	return o.Logger
}

// newID returns a time-ordered id, so ids sort in creation order.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
