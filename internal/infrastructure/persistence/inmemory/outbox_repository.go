package inmemory

import (
	"context"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/outbox"
)

type OutboxRepository struct {
	s *Store
}

var _ outbox.Repository = (*OutboxRepository)(nil)

func (r *OutboxRepository) Save(ctx context.Context, evt outbox.OutboxEvent) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.st.outbox[evt.ID]; exists {
		return failure.Newf(failure.Conflict, "outbox event %s already exists", evt.ID)
	}
	r.s.st.outbox[evt.ID] = evt
	r.s.st.outboxOrder = append(r.s.st.outboxOrder, evt.ID)
	return nil
}

func (r *OutboxRepository) FindUnpublished(_ context.Context, limit int) ([]outbox.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []outbox.OutboxEvent
	for _, id := range r.s.st.outboxOrder {
		if limit > 0 && len(out) >= limit {
			break
		}
		if evt := r.s.st.outbox[id]; !evt.Published {
			out = append(out, evt)
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id string) error {
	defer r.s.guard(ctx)()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	evt, ok := r.s.st.outbox[id]
	if !ok {
		return failure.Newf(failure.NotFound, "outbox event %s not found", id)
	}
	evt.Published = true
	r.s.st.outbox[id] = evt
	return nil
}

func (r *OutboxRepository) CountUnpublished(_ context.Context) (map[event.Type]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	backlog := make(map[event.Type]int)
	for _, evt := range r.s.st.outbox {
		if !evt.Published {
			backlog[evt.Type]++
		}
	}
	return backlog, nil
}
