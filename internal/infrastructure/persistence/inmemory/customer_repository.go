package inmemory

import (
	"context"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
)

type CustomerRepository struct {
	s *Store
}

func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.st
	if c.ID == 0 {
		st.nextCustomerID++
		c.ID = st.nextCustomerID
	} else if c.ID > st.nextCustomerID {
		st.nextCustomerID = c.ID
	}
	if _, exists := st.customers[c.ID]; exists {
		return failure.Newf(failure.Conflict, "customer %d already exists", c.ID)
	}

	st.customers[c.ID] = *c
	return nil
}

func (r *CustomerRepository) FindByID(_ context.Context, id int64) (*customer.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.st.customers[id]
	if !ok {
		return nil, failure.Newf(failure.NotFound, "customer %d not found", id)
	}
	return &c, nil
}

func (r *CustomerRepository) SaveIdentity(ctx context.Context, c *customer.Customer) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.st.customers[c.ID]
	if !ok {
		return failure.Newf(failure.NotFound, "customer %d not found", c.ID)
	}

	stored.RemoteProfileID = copyString(c.RemoteProfileID)
	stored.RemoteMerchantKey = copyString(c.RemoteMerchantKey)
	stored.PrimaryPaymentMethodID = copyString(c.PrimaryPaymentMethodID)
	r.s.st.customers[c.ID] = stored
	return nil
}

func (r *CustomerRepository) ClearOrganizationIdentities(ctx context.Context, organizationID int64) (int64, error) {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var changed int64
	for id, c := range r.s.st.customers {
		if c.OrganizationID != organizationID {
			continue
		}
		if c.RemoteProfileID == nil && c.RemoteMerchantKey == nil && c.PrimaryPaymentMethodID == nil {
			continue
		}
		c.RemoteProfileID = nil
		c.RemoteMerchantKey = nil
		c.PrimaryPaymentMethodID = nil
		r.s.st.customers[id] = c
		changed++
	}
	return changed, nil
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
