package sqldb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/transaction"
)

type TransactionRepository struct {
	q   DBTX
	now func() time.Time
}

func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	log, err := encodeLog(t.ChargeFailureLog)
	if err != nil {
		return err
	}

	now := r.now()
	t.CreatedAt, t.UpdatedAt = now, now

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, organization_id, customer_id, site_id, status, note,
		  subtotal, discount, tax, total, amount_due, payment_applied,
		  refund_total, store_credit_applied, charge_attempts, charge_failure_log,
		  comp_reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrganizationID, t.CustomerID, t.SiteID, string(t.Status), t.Note,
		t.Subtotal, t.Discount, t.Tax, t.Total, t.AmountDue, t.PaymentApplied,
		t.RefundTotal, t.StoreCreditApplied, t.ChargeAttempts, log,
		t.CompReason, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for i := range t.Items {
		item := &t.Items[i]
		item.TransactionID = t.ID

		res, err := r.q.ExecContext(ctx,
			`INSERT INTO transaction_items
			 (transaction_id, sku, description, unit_price, quantity,
			  fulfilled_quantity, returned_quantity, credit_eligible)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.TransactionID, item.SKU, item.Description, item.UnitPrice, item.Quantity,
			item.FulfilledQuantity, item.ReturnedQuantity, item.CreditEligible,
		)
		if err != nil {
			return err
		}

		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		item.ID = id
	}

	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, organization_id, customer_id, site_id, status, note,
		        subtotal, discount, tax, total, amount_due, payment_applied,
		        refund_total, store_credit_applied, charge_attempts, charge_failure_log,
		        comp_reason, created_at, updated_at
		 FROM transactions
		 WHERE id = ?`,
		id,
	)

	var (
		t      transaction.Transaction
		status string
		log    string
	)

	if err := row.Scan(
		&t.ID, &t.OrganizationID, &t.CustomerID, &t.SiteID, &status, &t.Note,
		&t.Subtotal, &t.Discount, &t.Tax, &t.Total, &t.AmountDue, &t.PaymentApplied,
		&t.RefundTotal, &t.StoreCreditApplied, &t.ChargeAttempts, &log,
		&t.CompReason, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, notFound(err, "transaction %s not found", id)
	}

	t.Status = transaction.Status(status)
	if err := json.Unmarshal([]byte(log), &t.ChargeFailureLog); err != nil {
		return nil, fmt.Errorf("decode charge failure log of %s: %w", id, err)
	}

	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Items = items

	return &t, nil
}

func (r *TransactionRepository) items(ctx context.Context, transactionID string) ([]transaction.Item, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, transaction_id, sku, description, unit_price, quantity,
		        fulfilled_quantity, returned_quantity, credit_eligible
		 FROM transaction_items
		 WHERE transaction_id = ?
		 ORDER BY id`,
		transactionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []transaction.Item
	for rows.Next() {
		var it transaction.Item
		if err := rows.Scan(
			&it.ID, &it.TransactionID, &it.SKU, &it.Description, &it.UnitPrice, &it.Quantity,
			&it.FulfilledQuantity, &it.ReturnedQuantity, &it.CreditEligible,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *TransactionRepository) Update(ctx context.Context, t *transaction.Transaction) error {
	log, err := encodeLog(t.ChargeFailureLog)
	if err != nil {
		return err
	}

	t.UpdatedAt = r.now()

	res, err := r.q.ExecContext(ctx,
		`UPDATE transactions
		 SET status = ?, note = ?, subtotal = ?, discount = ?, tax = ?, total = ?,
		     amount_due = ?, payment_applied = ?, refund_total = ?, store_credit_applied = ?,
		     charge_failure_log = ?, comp_reason = ?, updated_at = ?
		 WHERE id = ?`,
		string(t.Status), t.Note, t.Subtotal, t.Discount, t.Tax, t.Total,
		t.AmountDue, t.PaymentApplied, t.RefundTotal, t.StoreCreditApplied,
		log, t.CompReason, t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		return err
	}
	return mustAffect(res, "transaction %s not found", t.ID)
}

func (r *TransactionRepository) UpdateItem(ctx context.Context, item *transaction.Item) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE transaction_items
		 SET fulfilled_quantity = ?, returned_quantity = ?
		 WHERE id = ? AND transaction_id = ?`,
		item.FulfilledQuantity, item.ReturnedQuantity,
		item.ID, item.TransactionID,
	)
	if err != nil {
		return err
	}
	return mustAffect(res, "item %d not found", item.ID)
}

func (r *TransactionRepository) IncrementChargeAttempts(ctx context.Context, id string) (int, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE transactions SET charge_attempts = charge_attempts + 1 WHERE id = ?`,
		id,
	)
	if err != nil {
		return 0, err
	}
	if err := mustAffect(res, "transaction %s not found", id); err != nil {
		return 0, err
	}

	var attempts int
	err = r.q.QueryRowContext(ctx,
		`SELECT charge_attempts FROM transactions WHERE id = ?`, id,
	).Scan(&attempts)
	return attempts, err
}

func (r *TransactionRepository) RecordChargeFailure(ctx context.Context, id string, attempts int, msg string) error {
	var raw string
	err := r.q.QueryRowContext(ctx,
		`SELECT charge_failure_log FROM transactions WHERE id = ?`, id,
	).Scan(&raw)
	if err != nil {
		return notFound(err, "transaction %s not found", id)
	}

	var entries []string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return fmt.Errorf("decode charge failure log of %s: %w", id, err)
	}
	log, err := encodeLog(append(entries, msg))
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx,
		`UPDATE transactions
		 SET charge_attempts = CASE WHEN charge_attempts < ? THEN ? ELSE charge_attempts END,
		     charge_failure_log = ?,
		     status = ?,
		     updated_at = ?
		 WHERE id = ?`,
		attempts, attempts,
		log,
		string(transaction.StatusFailed),
		r.now(),
		id,
	)
	return err
}

func encodeLog(entries []string) (string, error) {
	if entries == nil {
		entries = []string{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
