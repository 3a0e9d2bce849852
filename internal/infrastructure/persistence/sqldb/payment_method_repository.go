package sqldb

import (
	"context"
	"time"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
)

type PaymentMethodRepository struct {
	q   DBTX
	now func() time.Time
}

const paymentMethodColumns = `id, organization_id, customer_id, kind, masked_number, brand, expires_at, is_primary, created_at`

func (r *PaymentMethodRepository) Save(ctx context.Context, pm *customer.PaymentMethod) error {
	if pm.CreatedAt.IsZero() {
		pm.CreatedAt = r.now()
	}

	res, err := r.q.ExecContext(ctx,
		`UPDATE payment_methods
		 SET organization_id = ?, customer_id = ?, kind = ?, masked_number = ?,
		     brand = ?, expires_at = ?, is_primary = ?
		 WHERE id = ?`,
		pm.OrganizationID, pm.CustomerID, string(pm.Kind), pm.MaskedNumber,
		pm.Brand, pm.ExpiresAt.UTC(), pm.IsPrimary,
		pm.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO payment_methods (`+paymentMethodColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pm.ID, pm.OrganizationID, pm.CustomerID, string(pm.Kind), pm.MaskedNumber,
		pm.Brand, pm.ExpiresAt.UTC(), pm.IsPrimary, pm.CreatedAt.UTC(),
	)
	return err
}

func (r *PaymentMethodRepository) FindByID(ctx context.Context, customerID int64, id string) (*customer.PaymentMethod, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+paymentMethodColumns+`
		 FROM payment_methods
		 WHERE id = ? AND customer_id = ?`,
		id, customerID,
	)

	pm, err := scanPaymentMethod(row)
	if err != nil {
		return nil, notFound(err, "payment method %s not found", id)
	}
	return pm, nil
}

func (r *PaymentMethodRepository) ListByCustomer(ctx context.Context, customerID int64) ([]customer.PaymentMethod, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+paymentMethodColumns+`
		 FROM payment_methods
		 WHERE customer_id = ?
		 ORDER BY created_at, id`,
		customerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []customer.PaymentMethod
	for rows.Next() {
		pm, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pm)
	}
	return out, rows.Err()
}

func (r *PaymentMethodRepository) SetPrimary(ctx context.Context, customerID int64, id string) error {
	if _, err := r.FindByID(ctx, customerID, id); err != nil {
		return err
	}

	_, err := r.q.ExecContext(ctx,
		`UPDATE payment_methods
		 SET is_primary = CASE WHEN id = ? THEN 1 ELSE 0 END
		 WHERE customer_id = ?`,
		id, customerID,
	)
	return err
}

func (r *PaymentMethodRepository) Delete(ctx context.Context, customerID int64, id string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM payment_methods WHERE id = ? AND customer_id = ?`,
		id, customerID,
	)
	if err != nil {
		return err
	}
	return mustAffect(res, "payment method %s not found", id)
}

func (r *PaymentMethodRepository) DeleteByCustomer(ctx context.Context, customerID int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM payment_methods WHERE customer_id = ?`, customerID)
	return err
}

func (r *PaymentMethodRepository) DeleteByOrganization(ctx context.Context, organizationID int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM payment_methods WHERE organization_id = ?`, organizationID)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPaymentMethod(s scanner) (*customer.PaymentMethod, error) {
	var (
		pm   customer.PaymentMethod
		kind string
	)
	if err := s.Scan(
		&pm.ID,
		&pm.OrganizationID,
		&pm.CustomerID,
		&kind,
		&pm.MaskedNumber,
		&pm.Brand,
		&pm.ExpiresAt,
		&pm.IsPrimary,
		&pm.CreatedAt,
	); err != nil {
		return nil, err
	}
	pm.Kind = customer.MethodKind(kind)
	return &pm, nil
}
