// Package identity maps local customers to billing profiles at the gateway.
package identity

import (
	"context"
	"strings"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/logging"
)

// Resolver owns the remote identity fields of a customer. Nothing else
// writes RemoteProfileID or RemoteMerchantKey.
type Resolver struct {
	Gateways  gateway.Provider
	Customers customer.Repository
	Methods   customer.PaymentMethodRepository
	Logger    logging.Logger
}

// Resolve returns the billing profile id of c, looking it up or
// provisioning it when c has none cached. c is updated in place.
func (r *Resolver) Resolve(ctx context.Context, c *customer.Customer) (string, error) {
	if c.HasRemoteProfile() {
		return *c.RemoteProfileID, nil
	}

	client, err := r.Gateways.ForOrganization(ctx, c.OrganizationID)
	if err != nil {
		return "", err
	}

	key := c.LocalKey()
	if c.RemoteMerchantKey != nil && *c.RemoteMerchantKey != "" {
		key = *c.RemoteMerchantKey
	}

	found, err := client.LookupProfile(ctx, gateway.ProfileQuery{MerchantCustomerID: key})
	if err != nil {
		return "", err
	}

	if !found.Found && c.Email != "" {
		found, err = client.LookupProfile(ctx, gateway.ProfileQuery{Email: c.Email})
		if err != nil {
			return "", err
		}
	}

	if found.Found {
		profileID := found.Value.ProfileID
		remoteKey := found.Value.MerchantCustomerID
		c.RemoteProfileID = &profileID
		c.RemoteMerchantKey = &remoteKey

		if err := r.Customers.SaveIdentity(ctx, c); err != nil {
			return "", err
		}

		r.logger().Info("billing profile adopted", map[string]any{
			"customer-id":         c.ID,
			"profile-id":          profileID,
			"remote-merchant-key": remoteKey,
		})
		return profileID, nil
	}

	return r.provision(ctx, client, c)
}

func (r *Resolver) provision(ctx context.Context, client gateway.Client, c *customer.Customer) (string, error) {
	key := c.LocalKey()

	profileID, err := client.CreateProfile(ctx, gateway.ProfileDetails{
		MerchantCustomerID: key,
		Email:              c.Email,
		Description:        describe(c),
	})
	if err != nil {
		return "", err
	}

	c.RemoteProfileID = &profileID
	c.RemoteMerchantKey = &key

	if err := r.Customers.SaveIdentity(ctx, c); err != nil {
		r.logger().Error("billing profile created but not saved locally", map[string]any{
			"customer-id": c.ID,
			"profile-id":  profileID,
			"error":       err,
		})
		return "", err
	}

	r.logger().Info("billing profile provisioned", map[string]any{
		"customer-id": c.ID,
		"profile-id":  profileID,
	})
	return profileID, nil
}

// SyncProfile pushes the local merchant key to the remote profile when the
// two have drifted apart. A drifted profile holding exactly one payment
// profile gets that one adopted as primary; accounts migrated from
// elsewhere carry no primary marker, so this is a best guess.
func (r *Resolver) SyncProfile(ctx context.Context, c *customer.Customer) error {
	profileID, err := r.Resolve(ctx, c)
	if err != nil {
		return err
	}

	client, err := r.Gateways.ForOrganization(ctx, c.OrganizationID)
	if err != nil {
		return err
	}

	found, err := client.LookupProfile(ctx, gateway.ProfileQuery{ProfileID: profileID})
	if err != nil {
		return err
	}
	if !found.Found {
		return failure.Newf(failure.NotFound, "billing profile %s no longer exists", profileID)
	}

	local := c.LocalKey()
	remote := found.Value

	if remote.MerchantCustomerID == local {
		if c.RemoteMerchantKey == nil || *c.RemoteMerchantKey != local {
			c.RemoteMerchantKey = &local
			return r.Customers.SaveIdentity(ctx, c)
		}
		return nil
	}

	err = client.UpdateProfile(ctx, profileID, gateway.ProfileDetails{
		MerchantCustomerID: local,
		Email:              c.Email,
		Description:        describe(c),
	})
	if err != nil {
		return err
	}
	c.RemoteMerchantKey = &local

	if len(remote.PaymentProfiles) == 1 {
		if err := r.adoptPrimary(ctx, c, remote.PaymentProfiles[0]); err != nil {
			return err
		}
	}

	if err := r.Customers.SaveIdentity(ctx, c); err != nil {
		return err
	}

	r.logger().Info("billing profile merchant key synced", map[string]any{
		"customer-id": c.ID,
		"profile-id":  profileID,
		"from":        remote.MerchantCustomerID,
		"to":          local,
	})
	return nil
}

func (r *Resolver) adoptPrimary(ctx context.Context, c *customer.Customer, pp gateway.PaymentProfile) error {
	pm := customer.PaymentMethod{
		ID:             pp.ID,
		OrganizationID: c.OrganizationID,
		CustomerID:     c.ID,
	}

	switch {
	case pp.Card != nil:
		pm.Kind = customer.MethodCreditCard
		pm.MaskedNumber = customer.Mask(customer.LastFour(pp.Card.Number))
		pm.Brand = pp.Card.Type
	case pp.BankAccount != nil:
		pm.Kind = customer.MethodBankAccount
		pm.MaskedNumber = customer.Mask(customer.LastFour(pp.BankAccount.AccountNumber))
		pm.Brand = pp.BankAccount.BankName
	default:
		return nil
	}

	if _, err := r.Methods.FindByID(ctx, c.ID, pm.ID); failure.IsNotFound(err) {
		if err := r.Methods.Save(ctx, &pm); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if err := r.Methods.SetPrimary(ctx, c.ID, pm.ID); err != nil {
		return err
	}
	c.PrimaryPaymentMethodID = &pm.ID
	return nil
}

// DeleteProfile removes the billing profile at the gateway and forgets
// every local trace of it. A profile already gone remotely is not an error.
func (r *Resolver) DeleteProfile(ctx context.Context, c *customer.Customer) error {
	if !c.HasRemoteProfile() {
		return nil
	}

	client, err := r.Gateways.ForOrganization(ctx, c.OrganizationID)
	if err != nil {
		return err
	}

	profileID := *c.RemoteProfileID
	if err := client.DeleteProfile(ctx, profileID); err != nil && !failure.IsNotFound(err) {
		return err
	}

	if err := r.Methods.DeleteByCustomer(ctx, c.ID); err != nil {
		return err
	}

	c.RemoteProfileID = nil
	c.RemoteMerchantKey = nil
	c.PrimaryPaymentMethodID = nil

	if err := r.Customers.SaveIdentity(ctx, c); err != nil {
		return err
	}

	r.logger().Info("billing profile deleted", map[string]any{
		"customer-id": c.ID,
		"profile-id":  profileID,
	})
	return nil
}

func (r *Resolver) logger() logging.Logger {
	if r.Logger == nil {
		return logging.Nop{}
	}
	return r.Logger
}

func describe(c *customer.Customer) string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
