package sqldb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/credit"
)

type CreditRepository struct {
	q   DBTX
	now func() time.Time
}

func (r *CreditRepository) Balance(ctx context.Context, customerID int64, siteID *int64) (int64, error) {
	var balance int64

	if siteID == nil {
		err := r.q.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(amount), 0)
			 FROM store_credit_movements
			 WHERE customer_id = ? AND site_id IS NULL`,
			customerID,
		).Scan(&balance)
		return balance, err
	}

	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0)
		 FROM store_credit_movements
		 WHERE customer_id = ? AND site_id = ?`,
		customerID, *siteID,
	).Scan(&balance)
	return balance, err
}

func (r *CreditRepository) Add(ctx context.Context, m *credit.Movement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.now()
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO store_credit_movements (id, customer_id, site_id, transaction_id, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.CustomerID, nullInt64(m.SiteID), m.TransactionID, m.Amount, m.CreatedAt.UTC(),
	)
	return err
}
