package inmemory

import (
	"context"
	"slices"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/transaction"
)

type TransactionRepository struct {
	s *Store
}

func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.st
	if _, exists := st.transactions[t.ID]; exists {
		return failure.Newf(failure.Conflict, "transaction %s already exists", t.ID)
	}

	now := r.s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	for i := range t.Items {
		if t.Items[i].ID == 0 {
			st.nextItemID++
			t.Items[i].ID = st.nextItemID
		}
		t.Items[i].TransactionID = t.ID
	}

	st.transactions[t.ID] = cloneTransaction(*t)
	return nil
}

func (r *TransactionRepository) FindByID(_ context.Context, id string) (*transaction.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.st.transactions[id]
	if !ok {
		return nil, failure.Newf(failure.NotFound, "transaction %s not found", id)
	}
	out := cloneTransaction(t)
	return &out, nil
}

func (r *TransactionRepository) Update(ctx context.Context, t *transaction.Transaction) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.st.transactions[t.ID]
	if !ok {
		return failure.Newf(failure.NotFound, "transaction %s not found", t.ID)
	}

	next := cloneTransaction(*t)
	next.ChargeAttempts = stored.ChargeAttempts
	next.Items = stored.Items
	next.CreatedAt = stored.CreatedAt
	next.UpdatedAt = r.s.now()
	t.UpdatedAt = next.UpdatedAt

	r.s.st.transactions[t.ID] = next
	return nil
}

func (r *TransactionRepository) UpdateItem(ctx context.Context, item *transaction.Item) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.st.transactions[item.TransactionID]
	if !ok {
		return failure.Newf(failure.NotFound, "transaction %s not found", item.TransactionID)
	}

	idx := slices.IndexFunc(t.Items, func(it transaction.Item) bool { return it.ID == item.ID })
	if idx < 0 {
		return failure.Newf(failure.NotFound, "item %d not found", item.ID)
	}

	t.Items = slices.Clone(t.Items)
	t.Items[idx] = *item
	r.s.st.transactions[t.ID] = t
	return nil
}

func (r *TransactionRepository) IncrementChargeAttempts(ctx context.Context, id string) (int, error) {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.st.transactions[id]
	if !ok {
		return 0, failure.Newf(failure.NotFound, "transaction %s not found", id)
	}
	t.ChargeAttempts++
	r.s.st.transactions[id] = t
	return t.ChargeAttempts, nil
}

func (r *TransactionRepository) RecordChargeFailure(ctx context.Context, id string, attempts int, msg string) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.st.transactions[id]
	if !ok {
		return failure.Newf(failure.NotFound, "transaction %s not found", id)
	}
	t.ChargeAttempts = max(t.ChargeAttempts, attempts)
	t.ChargeFailureLog = append(slices.Clone(t.ChargeFailureLog), msg)
	t.Status = transaction.StatusFailed
	t.UpdatedAt = r.s.now()
	r.s.st.transactions[id] = t
	return nil
}
