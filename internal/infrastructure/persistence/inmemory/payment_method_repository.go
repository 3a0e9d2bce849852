package inmemory

import (
	"context"
	"slices"
	"strings"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/customer"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
)

type PaymentMethodRepository struct {
	s *Store
}

func (r *PaymentMethodRepository) Save(ctx context.Context, pm *customer.PaymentMethod) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if pm.CreatedAt.IsZero() {
		pm.CreatedAt = r.s.now()
	}
	r.s.st.methods[pm.ID] = *pm
	return nil
}

func (r *PaymentMethodRepository) FindByID(_ context.Context, customerID int64, id string) (*customer.PaymentMethod, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	pm, ok := r.s.st.methods[id]
	if !ok || pm.CustomerID != customerID {
		return nil, failure.Newf(failure.NotFound, "payment method %s not found", id)
	}
	return &pm, nil
}

func (r *PaymentMethodRepository) ListByCustomer(_ context.Context, customerID int64) ([]customer.PaymentMethod, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []customer.PaymentMethod
	for _, pm := range r.s.st.methods {
		if pm.CustomerID == customerID {
			out = append(out, pm)
		}
	}
	slices.SortFunc(out, func(a, b customer.PaymentMethod) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *PaymentMethodRepository) SetPrimary(ctx context.Context, customerID int64, id string) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	target, ok := r.s.st.methods[id]
	if !ok || target.CustomerID != customerID {
		return failure.Newf(failure.NotFound, "payment method %s not found", id)
	}

	for key, pm := range r.s.st.methods {
		if pm.CustomerID != customerID {
			continue
		}
		pm.IsPrimary = key == id
		r.s.st.methods[key] = pm
	}
	return nil
}

func (r *PaymentMethodRepository) Delete(ctx context.Context, customerID int64, id string) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	pm, ok := r.s.st.methods[id]
	if !ok || pm.CustomerID != customerID {
		return failure.Newf(failure.NotFound, "payment method %s not found", id)
	}
	delete(r.s.st.methods, id)
	return nil
}

func (r *PaymentMethodRepository) DeleteByCustomer(ctx context.Context, customerID int64) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, pm := range r.s.st.methods {
		if pm.CustomerID == customerID {
			delete(r.s.st.methods, id)
		}
	}
	return nil
}

func (r *PaymentMethodRepository) DeleteByOrganization(ctx context.Context, organizationID int64) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, pm := range r.s.st.methods {
		if pm.OrganizationID == organizationID {
			delete(r.s.st.methods, id)
		}
	}
	return nil
}
