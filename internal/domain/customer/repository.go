package customer

import "context"

type Repository interface {
	Create(ctx context.Context, c *Customer) error
	FindByID(ctx context.Context, id int64) (*Customer, error)
	// SaveIdentity persists the remote identity fields and the primary
	// payment method only.
	SaveIdentity(ctx context.Context, c *Customer) error
	// ClearOrganizationIdentities wipes remote identity fields for every
	// customer of the organization and returns how many rows changed.
	ClearOrganizationIdentities(ctx context.Context, organizationID int64) (int64, error)
}

type PaymentMethodRepository interface {
	Save(ctx context.Context, pm *PaymentMethod) error
	FindByID(ctx context.Context, customerID int64, id string) (*PaymentMethod, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]PaymentMethod, error)
	// SetPrimary flips IsPrimary to true for id and false for every other
	// method of the customer.
	SetPrimary(ctx context.Context, customerID int64, id string) error
	Delete(ctx context.Context, customerID int64, id string) error
	DeleteByCustomer(ctx context.Context, customerID int64) error
	DeleteByOrganization(ctx context.Context, organizationID int64) error
}
