package inmemory

import (
	"context"

	"github.com/google/uuid"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/credit"
)

type CreditRepository struct {
	s *Store
}

func (r *CreditRepository) Balance(_ context.Context, customerID int64, siteID *int64) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var total int64
	for _, m := range r.s.st.credit {
		if m.CustomerID != customerID {
			continue
		}
		switch {
		case siteID == nil && m.SiteID == nil:
			total += m.Amount
		case siteID != nil && m.SiteID != nil && *siteID == *m.SiteID:
			total += m.Amount
		}
	}
	return total, nil
}

func (r *CreditRepository) Add(ctx context.Context, m *credit.Movement) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.s.now()
	}
	r.s.st.credit = append(r.s.st.credit, *m)
	return nil
}
