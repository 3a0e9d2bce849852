package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/outbox"
)

type Store struct {
	db  *DB
	Now func() time.Time
}

var _ contracts.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{db: db, Now: time.Now}
}

func (s *Store) Repos() contracts.Repos {
	return s.repos(s.db)
}

// WithinTx runs fn against repositories bound to one database transaction.
// Every write fn makes, outbox events included, commits or rolls back
// together.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r contracts.Repos) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, s.repos(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return failure.Wrap(failure.Fatal, "commit", err)
	}
	return nil
}

// Outbox exposes the outbox table for the dispatcher.
func (s *Store) Outbox() *outbox.SQLRepository {
	return outbox.NewSQLRepository(s.db)
}

func (s *Store) repos(q DBTX) contracts.Repos {
	return contracts.Repos{
		Customers:      &CustomerRepository{q: q},
		PaymentMethods: &PaymentMethodRepository{q: q, now: s.now},
		Transactions:   &TransactionRepository{q: q, now: s.now},
		Ledger:         &LedgerRepository{q: q, now: s.now},
		StoreCredit:    &CreditRepository{q: q, now: s.now},
		Events:         &outbox.Recorder{Repo: outbox.NewSQLRepository(q), Now: s.Now},
	}
}

func (s *Store) now() time.Time {
	return s.Now().UTC()
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

// notFound maps sql.ErrNoRows to a NotFound failure.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return failure.Newf(failure.NotFound, format, args...)
	}
	return err
}

// mustAffect reports NotFound when an UPDATE or DELETE matched nothing.
func mustAffect(res sql.Result, format string, args ...any) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return failure.Newf(failure.NotFound, format, args...)
	}
	return nil
}
