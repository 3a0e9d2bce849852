package inmemory

import (
	"context"
	"slices"
	"time"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
)

type LedgerRepository struct {
	s *Store
}

func (r *LedgerRepository) Create(ctx context.Context, e *ledger.Entry) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.st.ledger[e.ID]; exists {
		return failure.Newf(failure.Conflict, "ledger entry %s already exists", e.ID)
	}
	now := r.s.now()
	e.CreatedAt, e.UpdatedAt = now, now

	r.s.st.ledger[e.ID] = *e
	r.s.st.ledgerOrder = append(r.s.st.ledgerOrder, e.ID)
	return nil
}

func (r *LedgerRepository) FindByID(_ context.Context, id string) (*ledger.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.st.ledger[id]
	if !ok {
		return nil, failure.Newf(failure.NotFound, "ledger entry %s not found", id)
	}
	return &e, nil
}

func (r *LedgerRepository) ListByTransaction(_ context.Context, transactionID string) ([]ledger.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []ledger.Entry
	for _, id := range r.s.st.ledgerOrder {
		if e := r.s.st.ledger[id]; e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *LedgerRepository) LatestPayment(_ context.Context, transactionID string) (*ledger.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, id := range slices.Backward(r.s.st.ledgerOrder) {
		e := r.s.st.ledger[id]
		if e.TransactionID == transactionID && e.IsPayment() {
			return &e, nil
		}
	}
	return nil, failure.Newf(failure.NotFound, "no payment recorded for transaction %s", transactionID)
}

func (r *LedgerRepository) ListUpdatedSince(_ context.Context, since time.Time) ([]ledger.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []ledger.Entry
	for _, id := range r.s.st.ledgerOrder {
		e := r.s.st.ledger[id]
		if e.RemoteTransactionID != "" && !e.UpdatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *LedgerRepository) UpdateRemoteStatus(ctx context.Context, id string, status ledger.RemoteStatus) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.st.ledger[id]
	if !ok {
		return failure.Newf(failure.NotFound, "ledger entry %s not found", id)
	}
	e.RemoteStatus = &status
	e.UpdatedAt = r.s.now()
	r.s.st.ledger[id] = e
	return nil
}
