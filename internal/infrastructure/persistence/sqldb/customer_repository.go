package sqldb

import (
	"context"
	"database/sql"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
)

type CustomerRepository struct {
	q DBTX
}

func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	if c.ID != 0 {
		_, err := r.q.ExecContext(ctx,
			`INSERT INTO customers
			 (id, organization_id, email, first_name, last_name,
			  remote_profile_id, remote_merchant_key, primary_payment_method_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.OrganizationID, c.Email, c.FirstName, c.LastName,
			nullString(c.RemoteProfileID), nullString(c.RemoteMerchantKey), nullString(c.PrimaryPaymentMethodID),
		)
		return err
	}

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO customers
		 (organization_id, email, first_name, last_name,
		  remote_profile_id, remote_merchant_key, primary_payment_method_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.OrganizationID, c.Email, c.FirstName, c.LastName,
		nullString(c.RemoteProfileID), nullString(c.RemoteMerchantKey), nullString(c.PrimaryPaymentMethodID),
	)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, id int64) (*customer.Customer, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, organization_id, email, first_name, last_name,
		        remote_profile_id, remote_merchant_key, primary_payment_method_id
		 FROM customers
		 WHERE id = ?`,
		id,
	)

	var (
		c                          customer.Customer
		profileID, merchantKey, pm sql.NullString
	)

	if err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.Email,
		&c.FirstName,
		&c.LastName,
		&profileID,
		&merchantKey,
		&pm,
	); err != nil {
		return nil, notFound(err, "customer %d not found", id)
	}

	c.RemoteProfileID = stringPtr(profileID)
	c.RemoteMerchantKey = stringPtr(merchantKey)
	c.PrimaryPaymentMethodID = stringPtr(pm)
	return &c, nil
}

func (r *CustomerRepository) SaveIdentity(ctx context.Context, c *customer.Customer) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE customers
		 SET remote_profile_id = ?, remote_merchant_key = ?, primary_payment_method_id = ?
		 WHERE id = ?`,
		nullString(c.RemoteProfileID),
		nullString(c.RemoteMerchantKey),
		nullString(c.PrimaryPaymentMethodID),
		c.ID,
	)
	if err != nil {
		return err
	}
	return mustAffect(res, "customer %d not found", c.ID)
}

func (r *CustomerRepository) ClearOrganizationIdentities(ctx context.Context, organizationID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE customers
		 SET remote_profile_id = NULL, remote_merchant_key = NULL, primary_payment_method_id = NULL
		 WHERE organization_id = ?
		   AND (remote_profile_id IS NOT NULL
		        OR remote_merchant_key IS NOT NULL
		        OR primary_payment_method_id IS NOT NULL)`,
		organizationID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
