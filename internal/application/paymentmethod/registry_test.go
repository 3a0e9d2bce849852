package paymentmethod_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/contracts"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/identity"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/paymentmethod"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway/sandbox"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/persistence/inmemory"
)

var visa = gateway.Card{Number: "4111111111111111", Expiration: "02/28", CVV: "123"}

func setup(t *testing.T) (*paymentmethod.Registry, contracts.Repos, *sandbox.Gateway, *customer.Customer) {
	t.Helper()

	gw := sandbox.New()
	repos := inmemory.NewStore().Repos()
	provider := gateway.SingleProvider{Client: gw}

	c := &customer.Customer{OrganizationID: 1, Email: "ada@example.com"}
	require.NoError(t, repos.Customers.Create(context.Background(), c))

	reg := &paymentmethod.Registry{
		Identity: &identity.Resolver{
			Gateways:  provider,
			Customers: repos.Customers,
			Methods:   repos.PaymentMethods,
		},
		Gateways:  provider,
		Customers: repos.Customers,
		Methods:   repos.PaymentMethods,
	}
	return reg, repos, gw, c
}

func TestAdd_FirstMethodBecomesPrimary(t *testing.T) {
	ctx := context.Background()
	reg, repos, gw, c := setup(t)

	pm, err := reg.Add(ctx, c, visa, gateway.BillTo{Zip: "10001"})
	require.NoError(t, err)
	require.Len(t, pm.ID, 9)
	require.True(t, pm.IsPrimary)
	require.Equal(t, "XXXX1111", pm.MaskedNumber)
	require.Equal(t, "Visa", pm.Brand)
	require.Equal(t, time.Date(2028, 2, 29, 23, 59, 59, 0, time.UTC), pm.ExpiresAt)
	require.Equal(t, 1, gw.Calls(sandbox.OpCreateProfile))

	second, err := reg.Add(ctx, c, gateway.Card{Number: "5424000000000015", Expiration: "12/29", CVV: "999"}, gateway.BillTo{})
	require.NoError(t, err)
	require.False(t, second.IsPrimary)
	require.Equal(t, "MasterCard", second.Brand)

	stored, err := repos.Customers.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, pm.ID, *stored.PrimaryPaymentMethodID)
	require.Equal(t, 1, gw.Calls(sandbox.OpCreateProfile))
}

func TestAdd_RejectsBadExpirationBeforeAnyRemoteCall(t *testing.T) {
	reg, _, gw, c := setup(t)

	_, err := reg.Add(context.Background(), c, gateway.Card{Number: "4111111111111111", Expiration: "13/30"}, gateway.BillTo{})
	require.Equal(t, failure.BadInput, failure.KindOf(err))
	require.Zero(t, gw.TotalCalls())
}

func TestList_SplitsByKind(t *testing.T) {
	ctx := context.Background()
	reg, repos, _, c := setup(t)

	_, err := reg.Add(ctx, c, visa, gateway.BillTo{})
	require.NoError(t, err)
	require.NoError(t, repos.PaymentMethods.Save(ctx, &customer.PaymentMethod{
		ID: "900000099", CustomerID: c.ID, Kind: customer.MethodBankAccount, MaskedNumber: "XXXX6789",
	}))

	listing, err := reg.List(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, listing.CreditCards, 1)
	require.Len(t, listing.BankAccounts, 1)
}

func TestDelete_PrimaryIsConflict(t *testing.T) {
	ctx := context.Background()
	reg, _, gw, c := setup(t)

	primary, err := reg.Add(ctx, c, visa, gateway.BillTo{})
	require.NoError(t, err)
	other, err := reg.Add(ctx, c, gateway.Card{Number: "6011000000000012", Expiration: "01/31", CVV: "1"}, gateway.BillTo{})
	require.NoError(t, err)

	err = reg.Delete(ctx, c, primary.ID)
	require.Equal(t, failure.Conflict, failure.KindOf(err))

	require.NoError(t, reg.SetPrimary(ctx, c, other.ID))
	require.NoError(t, reg.Delete(ctx, c, primary.ID))
	require.Equal(t, 1, gw.Calls(sandbox.OpDeletePaymentProfile))

	_, err = reg.Get(ctx, c.ID, primary.ID)
	require.True(t, failure.IsNotFound(err))

	got, err := reg.Get(ctx, c.ID, other.ID)
	require.NoError(t, err)
	require.True(t, got.IsPrimary)
	require.Equal(t, "Discover", got.Brand)
}

func TestSetPrimary_UnknownMethod(t *testing.T) {
	reg, _, _, c := setup(t)

	err := reg.SetPrimary(context.Background(), c, "900000404")
	require.True(t, failure.IsNotFound(err))
}

func TestBrand(t *testing.T) {
	cases := map[string]string{
		"4111111111111111": "Visa",
		"5424000000000015": "MasterCard",
		"2223000048400011": "MasterCard",
		"378282246310005":  "AmericanExpress",
		"6011000000000012": "Discover",
		"3530111333300000": "JCB",
		"9999":             "Unknown",
	}
	for number, want := range cases {
		require.Equal(t, want, paymentmethod.Brand(number), number)
	}
}
