package checkout

import (
	"context"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/credit"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/transaction"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
)

// ReturnItems takes lines back from a fulfilled transaction and pays their
// value back, either to the original payment through the gateway or as
// store credit. Comped transactions and zero-value returns only move items.
//
// Before a gateway refund the latest payment is reconciled inline; a
// payment that has not settled yet cannot be refunded and must be voided.
// The amount paid back never exceeds what was received, and a gateway
// refund never exceeds what was captured.
func (o *Orchestrator) ReturnItems(ctx context.Context, transactionID string, lines []transaction.ReturnLine, asStoreCredit bool) (*transaction.Transaction, error) {
	unlock := o.locks.Lock(transactionID)
	defer unlock()

	t, err := o.Store.Repos().Transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	var client gateway.Client
	if !asStoreCredit {
		if client, err = o.Gateways.ForOrganization(ctx, t.OrganizationID); err != nil {
			return nil, err
		}
		if t.Status.CanReturn() && !t.IsComped() {
			if err := o.refreshLatestPayment(ctx, t.ID); err != nil {
				return nil, err
			}
		}
	}

	var (
		out      *transaction.Transaction
		remoteID string
		refunded bool
	)

	err = o.Store.WithinTx(ctx, func(ctx context.Context, r contracts.Repos) error {
		t, err := r.Transactions.FindByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if !t.Status.CanReturn() {
			return failure.Newf(failure.Conflict, "transaction %s is %s; only fulfilled transactions take returns", t.ID, t.Status)
		}

		amount, err := o.Inventory.Return(ctx, r.Transactions, t, lines)
		if err != nil {
			return err
		}
		out = t

		if t.IsComped() || amount == 0 {
			o.logger().Info("items returned without refund", map[string]any{
				"transaction-id": t.ID,
				"comped":         t.IsComped(),
			})
			return nil
		}

		if asStoreCredit {
			return o.creditReturn(ctx, r, t, amount, lines)
		}

		remoteID, err = o.refundReturn(ctx, r, client, t, amount, lines)
		refunded = err == nil
		return err
	})
	if err != nil {
		if remoteID != "" {
			o.logger().Error("refund succeeded at the gateway but was not recorded locally", map[string]any{
				"transaction-id":        transactionID,
				"remote-transaction-id": remoteID,
				"error":                 err,
			})
		}
		return nil, err
	}

	if refunded {
		o.Metrics.IncRefund()
	}
	return out, nil
}

func (o *Orchestrator) creditReturn(ctx context.Context, r contracts.Repos, t *transaction.Transaction, amount int64, lines []transaction.ReturnLine) error {
	amount = min(amount, t.RefundableAmount())
	if amount <= 0 {
		return failure.Newf(failure.Conflict, "transaction %s has nothing left to refund", t.ID)
	}

	m := &credit.Movement{
		CustomerID:    t.CustomerID,
		TransactionID: t.ID,
		Amount:        amount,
	}
	if t.SiteID != 0 {
		site := t.SiteID
		m.SiteID = &site
	}
	if err := r.StoreCredit.Add(ctx, m); err != nil {
		return err
	}

	t.RefundTotal += amount
	t.Status = transaction.StatusPartiallyRefunded
	if err := r.Transactions.Update(ctx, t); err != nil {
		return err
	}

	err := r.Events.Record(ctx, event.Event{
		Type: event.ReturnIssued,
		Payload: event.ReturnIssuedPayload{
			TransactionID:    t.ID,
			CustomerID:       t.CustomerID,
			CreditMovementID: m.ID,
			Amount:           amount,
			Items:            returnedItems(lines),
		},
	})
	if err != nil {
		return err
	}

	o.logger().Info("return credited as store credit", map[string]any{
		"transaction-id": t.ID,
		"customer-id":    t.CustomerID,
		"amount":         amount,
	})
	return nil
}

func (o *Orchestrator) refundReturn(ctx context.Context, r contracts.Repos, client gateway.Client, t *transaction.Transaction, amount int64, lines []transaction.ReturnLine) (string, error) {
	last, err := latestPayment(ctx, r, t, "refund")
	if err != nil {
		return "", err
	}
	if !last.Refundable() {
		return "", failure.Newf(failure.Conflict,
			"payment %s must be settled before refund (status %s); void instead", last.RemoteTransactionID, statusOf(last))
	}

	entries, err := r.Ledger.ListByTransaction(ctx, t.ID)
	if err != nil {
		return "", err
	}

	capped := min(amount, ledger.NetCaptured(entries), t.RefundableAmount())
	if capped <= 0 {
		return "", failure.Newf(failure.Conflict, "transaction %s has nothing left to refund", t.ID)
	}
	if capped < amount {
		o.logger().Warn("refund capped to amount received", map[string]any{
			"transaction-id": t.ID,
			"requested":      amount,
			"refunded":       capped,
		})
	}

	res, err := client.Refund(ctx, gateway.RefundRequest{
		Amount:           capped,
		RefTransactionID: last.RemoteTransactionID,
		LastFour:         last.LastFour,
	})
	if err != nil {
		return "", err
	}

	entry := &ledger.Entry{
		ID:                  newID(),
		OrganizationID:      t.OrganizationID,
		TransactionID:       t.ID,
		Type:                res.Type,
		RemoteAuthCode:      res.AuthCode,
		RemoteTransactionID: res.TransactionID,
		Amount:              -capped,
		LastFour:            last.LastFour,
		PaymentProfileID:    last.PaymentProfileID,
	}
	if err := r.Ledger.Create(ctx, entry); err != nil {
		return res.TransactionID, err
	}

	t.RefundTotal += capped
	t.Status = transaction.StatusPartiallyRefunded
	if err := r.Transactions.Update(ctx, t); err != nil {
		return res.TransactionID, err
	}

	err = r.Events.Record(ctx, event.Event{
		Type: event.RefundIssued,
		Payload: event.RefundIssuedPayload{
			TransactionID: t.ID,
			LedgerEntryID: entry.ID,
			Amount:        capped,
			Items:         returnedItems(lines),
		},
	})
	if err != nil {
		return res.TransactionID, err
	}
	if err := requestReconcile(ctx, r, entry.ID); err != nil {
		return res.TransactionID, err
	}

	o.logger().Info("refund issued", map[string]any{
		"transaction-id":        t.ID,
		"remote-transaction-id": res.TransactionID,
		"amount":                capped,
	})
	return res.TransactionID, nil
}

// Void cancels a fulfilled transaction whose payment has not settled yet.
// The latest payment is reconciled inline first; a settled payment cannot
// be voided and must be refunded.
func (o *Orchestrator) Void(ctx context.Context, transactionID string) (*transaction.Transaction, error) {
	unlock := o.locks.Lock(transactionID)
	defer unlock()

	t, err := o.Store.Repos().Transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	client, err := o.Gateways.ForOrganization(ctx, t.OrganizationID)
	if err != nil {
		return nil, err
	}
	if t.Status == transaction.StatusFulfilled {
		if err := o.refreshLatestPayment(ctx, t.ID); err != nil {
			return nil, err
		}
	}

	var (
		out      *transaction.Transaction
		remoteID string
	)

	err = o.Store.WithinTx(ctx, func(ctx context.Context, r contracts.Repos) error {
		t, err := r.Transactions.FindByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if t.Status != transaction.StatusFulfilled {
			return failure.Newf(failure.Conflict, "transaction %s is %s; only fulfilled transactions can be voided", t.ID, t.Status)
		}

		last, err := latestPayment(ctx, r, t, "void")
		if err != nil {
			return err
		}
		if !last.Voidable() {
			return failure.Newf(failure.Conflict,
				"payment %s must be pending settlement to void (status %s); refund instead", last.RemoteTransactionID, statusOf(last))
		}

		if err := o.Inventory.Reverse(ctx, r.Transactions, t); err != nil {
			return err
		}

		res, err := client.Void(ctx, last.RemoteTransactionID)
		if err != nil {
			return err
		}
		remoteID = res.TransactionID

		entry := &ledger.Entry{
			ID:                  newID(),
			OrganizationID:      t.OrganizationID,
			TransactionID:       t.ID,
			Type:                res.Type,
			RemoteAuthCode:      res.AuthCode,
			RemoteTransactionID: res.TransactionID,
			LastFour:            last.LastFour,
			PaymentProfileID:    last.PaymentProfileID,
		}
		if err := r.Ledger.Create(ctx, entry); err != nil {
			return err
		}

		t.Status = transaction.StatusVoid
		if err := r.Transactions.Update(ctx, t); err != nil {
			return err
		}

		err = r.Events.Record(ctx, event.Event{
			Type:    event.TransactionVoided,
			Payload: event.TransactionVoidedPayload{TransactionID: t.ID, LedgerEntryID: entry.ID},
		})
		if err != nil {
			return err
		}
		if err := requestReconcile(ctx, r, last.ID); err != nil {
			return err
		}

		out = t
		return nil
	})
	if err != nil {
		if remoteID != "" {
			o.logger().Error("void succeeded at the gateway but was not recorded locally", map[string]any{
				"transaction-id":        transactionID,
				"remote-transaction-id": remoteID,
				"error":                 err,
			})
		}
		return nil, err
	}

	o.Metrics.IncVoid()
	o.logger().Info("transaction voided", map[string]any{
		"transaction-id":        transactionID,
		"remote-transaction-id": remoteID,
	})
	return out, nil
}

// refreshLatestPayment reconciles the most recent capture of a transaction
// before any unit of work opens, so the refreshed remote status is kept
// even when the void or refund is then rejected. The caller holds the
// transaction lock.
func (o *Orchestrator) refreshLatestPayment(ctx context.Context, transactionID string) error {
	repo := o.Store.Repos().Ledger

	last, err := repo.LatestPayment(ctx, transactionID)
	if failure.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return o.Reconciler.ReconcileEntry(ctx, repo, last)
}

// latestPayment loads the most recent capture of t inside the unit of work.
func latestPayment(ctx context.Context, r contracts.Repos, t *transaction.Transaction, op string) (*ledger.Entry, error) {
	last, err := r.Ledger.LatestPayment(ctx, t.ID)
	if failure.IsNotFound(err) {
		return nil, failure.Newf(failure.Conflict, "transaction %s has no gateway payment to %s", t.ID, op)
	}
	return last, err
}

func statusOf(e *ledger.Entry) string {
	if e.RemoteStatus == nil {
		return "unknown"
	}
	return string(*e.RemoteStatus)
}

func returnedItems(lines []transaction.ReturnLine) []event.ReturnedItem {
	out := make([]event.ReturnedItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, event.ReturnedItem{ItemID: l.ItemID, Quantity: l.Quantity, Restock: l.Restock})
	}
	return out
}
