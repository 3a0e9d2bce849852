package identity

import (
	"context"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
)

// PurgeProfiles deletes every billing profile the merchant account holds
// and clears the remote identity of all customers of the organization.
// It returns how many remote profiles were deleted.
func PurgeProfiles(
	ctx context.Context,
	client gateway.Client,
	customers customer.Repository,
	methods customer.PaymentMethodRepository,
	organizationID int64,
) (int, error) {
	ids, err := client.ListProfileIDs(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		err := client.DeleteProfile(ctx, id)
		if failure.IsNotFound(err) {
			continue
		}
		if err != nil {
			return deleted, err
		}
		deleted++
	}

	if err := methods.DeleteByOrganization(ctx, organizationID); err != nil {
		return deleted, err
	}
	if _, err := customers.ClearOrganizationIdentities(ctx, organizationID); err != nil {
		return deleted, err
	}
	return deleted, nil
}
