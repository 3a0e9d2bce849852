package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
)

type LedgerRepository struct {
	q   DBTX
	now func() time.Time
}

const ledgerColumns = `id, organization_id, transaction_id, type, remote_auth_code,
	remote_transaction_id, remote_status, amount, last_four, payment_profile_id,
	created_at, updated_at`

func (r *LedgerRepository) Create(ctx context.Context, e *ledger.Entry) error {
	now := r.now()
	e.CreatedAt, e.UpdatedAt = now, now

	var status sql.NullString
	if e.RemoteStatus != nil {
		status = sql.NullString{String: string(*e.RemoteStatus), Valid: true}
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO ledger_entries (`+ledgerColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OrganizationID, e.TransactionID, string(e.Type), e.RemoteAuthCode,
		e.RemoteTransactionID, status, e.Amount, e.LastFour, nullString(e.PaymentProfileID),
		e.CreatedAt, e.UpdatedAt,
	)
	return err
}

func (r *LedgerRepository) FindByID(ctx context.Context, id string) (*ledger.Entry, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = ?`, id)

	e, err := scanEntry(row)
	if err != nil {
		return nil, notFound(err, "ledger entry %s not found", id)
	}
	return e, nil
}

func (r *LedgerRepository) ListByTransaction(ctx context.Context, transactionID string) ([]ledger.Entry, error) {
	return r.list(ctx,
		`SELECT `+ledgerColumns+`
		 FROM ledger_entries
		 WHERE transaction_id = ?
		 ORDER BY created_at, id`,
		transactionID,
	)
}

func (r *LedgerRepository) LatestPayment(ctx context.Context, transactionID string) (*ledger.Entry, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+`
		 FROM ledger_entries
		 WHERE transaction_id = ? AND type = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		transactionID, string(ledger.TypeCapture),
	)

	e, err := scanEntry(row)
	if err != nil {
		return nil, notFound(err, "no payment recorded for transaction %s", transactionID)
	}
	return e, nil
}

func (r *LedgerRepository) ListUpdatedSince(ctx context.Context, since time.Time) ([]ledger.Entry, error) {
	return r.list(ctx,
		`SELECT `+ledgerColumns+`
		 FROM ledger_entries
		 WHERE remote_transaction_id <> '' AND updated_at >= ?
		 ORDER BY updated_at, id`,
		since.UTC(),
	)
}

func (r *LedgerRepository) UpdateRemoteStatus(ctx context.Context, id string, status ledger.RemoteStatus) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE ledger_entries SET remote_status = ?, updated_at = ? WHERE id = ?`,
		string(status), r.now(), id,
	)
	if err != nil {
		return err
	}
	return mustAffect(res, "ledger entry %s not found", id)
}

func (r *LedgerRepository) list(ctx context.Context, query string, args ...any) ([]ledger.Entry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEntry(s scanner) (*ledger.Entry, error) {
	var (
		e         ledger.Entry
		kind      string
		status    sql.NullString
		profileID sql.NullString
	)

	if err := s.Scan(
		&e.ID,
		&e.OrganizationID,
		&e.TransactionID,
		&kind,
		&e.RemoteAuthCode,
		&e.RemoteTransactionID,
		&status,
		&e.Amount,
		&e.LastFour,
		&profileID,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	e.Type = ledger.Type(kind)
	if status.Valid {
		rs := ledger.RemoteStatus(status.String)
		e.RemoteStatus = &rs
	}
	e.PaymentProfileID = stringPtr(profileID)
	return &e, nil
}
