// Package paymentmethod manages the cards and bank accounts stored under a
// customer's billing profile.
package paymentmethod

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/logging"
)

type IdentityResolver interface {
	Resolve(ctx context.Context, c *customer.Customer) (string, error)
}

type Registry struct {
	Identity  IdentityResolver
	Gateways  gateway.Provider
	Customers customer.Repository
	Methods   customer.PaymentMethodRepository
	Logger    logging.Logger
}

// Scoped returns a copy of the registry writing through repos, so the
// local side of Add joins the caller's unit of work.
func (r *Registry) Scoped(repos contracts.Repos) *Registry {
	out := *r
	out.Customers = repos.Customers
	out.Methods = repos.PaymentMethods
	return &out
}

// Listing splits a customer's stored methods by kind.
type Listing struct {
	CreditCards  []customer.PaymentMethod
	BankAccounts []customer.PaymentMethod
}

// Add registers card under the billing profile of c. The first method a
// customer stores becomes primary.
func (r *Registry) Add(ctx context.Context, c *customer.Customer, card gateway.Card, billTo gateway.BillTo) (*customer.PaymentMethod, error) {
	expiresAt, err := ExpiresAt(card.Expiration)
	if err != nil {
		return nil, err
	}

	profileID, err := r.Identity.Resolve(ctx, c)
	if err != nil {
		return nil, err
	}

	client, err := r.Gateways.ForOrganization(ctx, c.OrganizationID)
	if err != nil {
		return nil, err
	}

	makePrimary := c.PrimaryPaymentMethodID == nil || *c.PrimaryPaymentMethodID == ""

	id, err := client.AddPaymentProfile(ctx, profileID, gateway.PaymentProfileInput{
		Card:    card,
		BillTo:  billTo,
		Default: makePrimary,
	})
	if err != nil {
		return nil, err
	}

	pm := &customer.PaymentMethod{
		ID:             id,
		OrganizationID: c.OrganizationID,
		CustomerID:     c.ID,
		Kind:           customer.MethodCreditCard,
		MaskedNumber:   customer.Mask(card.Number),
		Brand:          Brand(card.Number),
		ExpiresAt:      expiresAt,
	}

	if err := r.Methods.Save(ctx, pm); err != nil {
		return nil, err
	}

	if makePrimary {
		if err := r.setPrimary(ctx, c, pm.ID); err != nil {
			return nil, err
		}
		pm.IsPrimary = true
	}

	r.logger().Info("payment method stored", map[string]any{
		"customer-id":       c.ID,
		"payment-method-id": pm.ID,
		"brand":             pm.Brand,
		"primary":           pm.IsPrimary,
	})
	return pm, nil
}

func (r *Registry) List(ctx context.Context, customerID int64) (Listing, error) {
	methods, err := r.Methods.ListByCustomer(ctx, customerID)
	if err != nil {
		return Listing{}, err
	}

	var out Listing
	for _, m := range methods {
		switch m.Kind {
		case customer.MethodBankAccount:
			out.BankAccounts = append(out.BankAccounts, m)
		default:
			out.CreditCards = append(out.CreditCards, m)
		}
	}
	return out, nil
}

func (r *Registry) Get(ctx context.Context, customerID int64, id string) (*customer.PaymentMethod, error) {
	return r.Methods.FindByID(ctx, customerID, id)
}

// Delete removes a stored method. The primary method is refused; another
// one has to be made primary first.
func (r *Registry) Delete(ctx context.Context, c *customer.Customer, id string) error {
	pm, err := r.Methods.FindByID(ctx, c.ID, id)
	if err != nil {
		return err
	}
	if pm.IsPrimary {
		return failure.Newf(failure.Conflict, "payment method %s is primary; set another primary before deleting it", id)
	}

	if c.HasRemoteProfile() {
		client, err := r.Gateways.ForOrganization(ctx, c.OrganizationID)
		if err != nil {
			return err
		}
		err = client.DeletePaymentProfile(ctx, *c.RemoteProfileID, id)
		if err != nil && !failure.IsNotFound(err) {
			return err
		}
	}

	if err := r.Methods.Delete(ctx, c.ID, id); err != nil {
		return err
	}

	r.logger().Info("payment method deleted", map[string]any{
		"customer-id":       c.ID,
		"payment-method-id": id,
	})
	return nil
}

func (r *Registry) SetPrimary(ctx context.Context, c *customer.Customer, id string) error {
	if _, err := r.Methods.FindByID(ctx, c.ID, id); err != nil {
		return err
	}
	return r.setPrimary(ctx, c, id)
}

func (r *Registry) setPrimary(ctx context.Context, c *customer.Customer, id string) error {
	if err := r.Methods.SetPrimary(ctx, c.ID, id); err != nil {
		return err
	}
	previous := c.PrimaryPaymentMethodID
	c.PrimaryPaymentMethodID = &id
	if err := r.Customers.SaveIdentity(ctx, c); err != nil {
		c.PrimaryPaymentMethodID = previous
		return err
	}
	return nil
}

func (r *Registry) logger() logging.Logger {
	if r.Logger == nil {
		return logging.Nop{}
	}
	return r.Logger
}

// ExpiresAt turns an MM/YY expiration into the last second of that month.
func ExpiresAt(expiration string) (time.Time, error) {
	month, year, ok := strings.Cut(expiration, "/")
	if !ok || len(month) != 2 || len(year) != 2 {
		return time.Time{}, failure.Newf(failure.BadInput, "expiration %q must be MM/YY", expiration)
	}

	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, failure.Newf(failure.BadInput, "expiration %q has an invalid month", expiration)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, failure.Newf(failure.BadInput, "expiration %q has an invalid year", expiration)
	}

	firstOfNext := time.Date(2000+y, time.Month(m)+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.Add(-time.Second), nil
}

// Brand guesses the card network from the number prefix.
func Brand(number string) string {
	switch {
	case strings.HasPrefix(number, "4"):
		return "Visa"
	case strings.HasPrefix(number, "34"), strings.HasPrefix(number, "37"):
		return "AmericanExpress"
	case strings.HasPrefix(number, "6011"), strings.HasPrefix(number, "65"):
		return "Discover"
	case inRange(number, 2, 51, 55), inRange(number, 4, 2221, 2720):
		return "MasterCard"
	case inRange(number, 4, 3528, 3589):
		return "JCB"
	}
	return "Unknown"
}

func inRange(number string, digits, lo, hi int) bool {
	if len(number) < digits {
		return false
	}
	n, err := strconv.Atoi(number[:digits])
	if err != nil {
		return false
	}
	return n >= lo && n <= hi
}
