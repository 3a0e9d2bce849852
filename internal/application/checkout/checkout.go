package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/credit"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/transaction"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
)

// Checkout takes a transaction from new or failed to fulfilled: store
// credit first, then fulfillment, then a gateway charge for whatever is
// still due. Local writes commit together or not at all.
//
// The charge attempt counter is bumped inside the unit of work before the
// remote call; when the unit of work fails after that point the count and
// the failure message are written again on their own, and the transaction
// is left failed. Checkout never retries by itself.
func (o *Orchestrator) Checkout(ctx context.Context, transactionID string, opts Options) (out *transaction.Transaction, err error) {
	unlock := o.locks.Lock(transactionID)
	defer unlock()

	repos := o.Store.Repos()

	t, err := repos.Transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := guardCheckout(t); err != nil {
		return nil, err
	}

	c, err := repos.Customers.FindByID(ctx, t.CustomerID)
	if err != nil {
		return nil, err
	}

	client, err := o.Gateways.ForOrganization(ctx, t.OrganizationID)
	if err != nil {
		return nil, err
	}

	// Identity writes are shared state outside the unit of work, so the
	// profile is resolved up front.
	var profileID string
	if opts.Payment.PaymentProfileID != "" || opts.StorePaymentMethod {
		if profileID, err = o.Identity.Resolve(ctx, c); err != nil {
			return nil, err
		}
	}

	var (
		attempts int
		remoteID string
	)

	defer func() {
		if attempts == 0 {
			return
		}
		if p := recover(); p != nil {
			o.recordChargeFailure(ctx, transactionID, attempts, fmt.Errorf("panic: %v", p))
			panic(p)
		}
		if err != nil {
			o.recordChargeFailure(ctx, transactionID, attempts, err)
		}
	}()

	err = o.Store.WithinTx(ctx, func(ctx context.Context, r contracts.Repos) error {
		t, err := r.Transactions.FindByID(ctx, transactionID)
		if err != nil {
			return err
		}
		if err := guardCheckout(t); err != nil {
			return err
		}

		balance := t.PaymentApplied + t.AmountDue

		t.Status = transaction.StatusPending
		if opts.Note != "" {
			t.Note = opts.Note
		}
		if err := r.Transactions.Update(ctx, t); err != nil {
			return err
		}

		if err := o.applyStoreCredit(ctx, r, t); err != nil {
			return err
		}
		if t.AmountDue < 0 {
			return failure.Newf(failure.Fatal, "transaction %s: amount due is negative (%d) after store credit", t.ID, t.AmountDue)
		}

		if !opts.SkipFulfillment {
			if err := o.Inventory.Fulfill(ctx, r.Transactions, t, opts.BypassGuards); err != nil {
				return err
			}
		}
		t.Status = transaction.StatusFulfilled

		payment := opts.Payment
		if opts.StorePaymentMethod {
			ppid, err := o.storePaymentMethod(ctx, r, c, payment)
			if err != nil {
				return err
			}
			payment = gateway.PaymentData{PaymentProfileID: ppid}
		}

		var entry *ledger.Entry
		if t.AmountDue > 0 {
			req, err := chargeRequest(t, profileID, payment)
			if err != nil {
				return err
			}

			if attempts, err = r.Transactions.IncrementChargeAttempts(ctx, t.ID); err != nil {
				return err
			}
			t.ChargeAttempts = attempts
			o.Metrics.IncChargeAttempted()

			res, err := client.Charge(ctx, req)
			if err != nil {
				return &PaymentError{TransactionID: t.ID, Attempt: attempts, Err: err}
			}
			remoteID = res.TransactionID

			if res.Amount != 0 && res.Amount != req.Amount {
				o.logger().Warn("gateway reported a different charged amount", map[string]any{
					"transaction-id":        t.ID,
					"remote-transaction-id": res.TransactionID,
					"requested":             req.Amount,
					"reported":              res.Amount,
				})
			}

			entry = &ledger.Entry{
				ID:                  newID(),
				OrganizationID:      t.OrganizationID,
				TransactionID:       t.ID,
				Type:                res.Type,
				RemoteAuthCode:      res.AuthCode,
				RemoteTransactionID: res.TransactionID,
				Amount:              req.Amount,
				LastFour:            res.LastFour,
			}
			if req.PaymentProfileID != "" {
				ppid := req.PaymentProfileID
				entry.PaymentProfileID = &ppid
			}
			if err := r.Ledger.Create(ctx, entry); err != nil {
				return err
			}

			t.PaymentApplied += req.Amount
			t.AmountDue -= req.Amount
		}

		if t.AmountDue != 0 {
			return failure.Newf(failure.Fatal, "transaction %s: %d cents left due after checkout", t.ID, t.AmountDue)
		}
		if t.PaymentApplied+t.AmountDue != balance {
			return failure.Newf(failure.Fatal, "transaction %s: payment applied plus amount due moved from %d to %d",
				t.ID, balance, t.PaymentApplied+t.AmountDue)
		}

		if err := r.Transactions.Update(ctx, t); err != nil {
			return err
		}

		placed := event.OrderPlacedPayload{
			TransactionID:  t.ID,
			OrganizationID: t.OrganizationID,
			CustomerID:     t.CustomerID,
		}
		if entry != nil {
			placed.LedgerEntryID = entry.ID
			placed.AmountCharged = entry.Amount
		}
		if err := r.Events.Record(ctx, event.Event{Type: event.OrderPlaced, Payload: placed}); err != nil {
			return err
		}
		if entry != nil {
			if err := requestReconcile(ctx, r, entry.ID); err != nil {
				return err
			}
		}

		out = t
		return nil
	})
	if err != nil {
		if remoteID != "" {
			o.logger().Error("charge succeeded at the gateway but was not recorded locally", map[string]any{
				"transaction-id":        transactionID,
				"remote-transaction-id": remoteID,
				"error":                 err,
			})
		}
		return nil, err
	}

	if attempts > 0 {
		o.Metrics.IncChargeSucceeded()
	}

	o.logger().Info("checkout completed", map[string]any{
		"transaction-id":        out.ID,
		"remote-transaction-id": remoteID,
		"payment-applied":       out.PaymentApplied,
		"store-credit-applied":  out.StoreCreditApplied,
		"attempt":               out.ChargeAttempts,
	})
	return out, nil
}

func guardCheckout(t *transaction.Transaction) error {
	if !t.Status.CanCheckout() {
		return failure.Newf(failure.Conflict, "transaction %s already paid or voided (status %s)", t.ID, t.Status)
	}
	return nil
}

// applyStoreCredit spends the site pool, then the general pool, up to the
// part of the amount due store credit may cover.
func (o *Orchestrator) applyStoreCredit(ctx context.Context, r contracts.Repos, t *transaction.Transaction) error {
	if t.IsComped() {
		return nil
	}

	want := t.StoreCreditApplicableAmount()
	if want <= 0 {
		return nil
	}

	var pools []*int64
	if t.SiteID != 0 {
		site := t.SiteID
		pools = append(pools, &site)
	}
	pools = append(pools, nil)

	var applied int64
	for _, pool := range pools {
		if applied == want {
			break
		}

		balance, err := r.StoreCredit.Balance(ctx, t.CustomerID, pool)
		if err != nil {
			return err
		}

		use := min(balance, want-applied)
		if use <= 0 {
			continue
		}

		err = r.StoreCredit.Add(ctx, &credit.Movement{
			CustomerID:    t.CustomerID,
			SiteID:        pool,
			TransactionID: t.ID,
			Amount:        -use,
		})
		if err != nil {
			return err
		}
		applied += use
	}

	if applied == 0 {
		return nil
	}

	t.StoreCreditApplied += applied
	t.PaymentApplied += applied
	t.AmountDue -= applied

	o.logger().Info("store credit applied", map[string]any{
		"transaction-id": t.ID,
		"customer-id":    t.CustomerID,
		"amount":         applied,
	})
	return nil
}

// storePaymentMethod registers the card or track data of payment and
// returns the new payment profile id. A stored payment profile is returned
// as is.
func (o *Orchestrator) storePaymentMethod(ctx context.Context, r contracts.Repos, c *customer.Customer, payment gateway.PaymentData) (string, error) {
	source, err := gateway.DetectSource(payment)
	if err != nil {
		return "", err
	}

	var card gateway.Card
	switch source {
	case gateway.SourceProfile:
		return payment.PaymentProfileID, nil
	case gateway.SourceCard:
		card = *payment.Card
	case gateway.SourceTrack1:
		if card, err = gateway.SplitTrack1(payment.Track); err != nil {
			return "", err
		}
	default:
		return "", failure.Newf(failure.BadInput, "cannot store a %s as a payment method", source)
	}

	billTo := gateway.BillTo{FirstName: card.FirstName, LastName: card.LastName}
	pm, err := o.Methods.Scoped(r).Add(ctx, c, card, billTo)
	if err != nil {
		return "", err
	}
	return pm.ID, nil
}

func chargeRequest(t *transaction.Transaction, profileID string, payment gateway.PaymentData) (gateway.ChargeRequest, error) {
	req := gateway.ChargeRequest{
		Amount:      t.AmountDue,
		Description: "transaction " + t.ID,
	}

	source, err := gateway.DetectSource(payment)
	if err != nil {
		return req, err
	}

	switch source {
	case gateway.SourceProfile:
		if profileID == "" {
			return req, failure.Newf(failure.Fatal, "transaction %s: no billing profile resolved for a stored payment method", t.ID)
		}
		req.ProfileID = profileID
		req.PaymentProfileID = payment.PaymentProfileID
	case gateway.SourceCard:
		req.Card = payment.Card
	case gateway.SourceTrack1:
		req.Track1 = payment.Track
	default:
		return req, failure.Newf(failure.BadInput, "%s payments are not supported", source)
	}
	return req, nil
}

func (o *Orchestrator) recordChargeFailure(ctx context.Context, transactionID string, attempts int, cause error) {
	o.Metrics.IncChargeFailed()

	msg := cause.Error()
	var pe *PaymentError
	if errors.As(cause, &pe) {
		msg = pe.Err.Error()
	}

	fields := map[string]any{
		"transaction-id": transactionID,
		"attempt":        attempts,
		"kind":           failure.KindOf(cause).String(),
		"error":          cause,
	}
	if errors.Is(cause, gateway.ErrUnknownOutcome) {
		o.logger().Error("charge outcome unknown; reconcile with the gateway before retrying", fields)
	} else {
		o.logger().Warn("charge failed", fields)
	}

	err := o.Store.Repos().Transactions.RecordChargeFailure(context.WithoutCancel(ctx), transactionID, attempts, msg)
	if err != nil {
		o.logger().Error("could not record charge failure", map[string]any{
			"transaction-id": transactionID,
			"attempt":        attempts,
			"error":          err,
		})
	}
}

func requestReconcile(ctx context.Context, r contracts.Repos, entryID string) error {
	return r.Events.Record(ctx, event.Event{
		Type:    event.ReconcileRequested,
		Payload: event.ReconcileRequestedPayload{LedgerEntryID: entryID, Attempt: 1},
	})
}
