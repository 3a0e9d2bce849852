package outbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/outbox"
)

type fakeBus struct {
	published []event.Event
	fail      bool
}

func (f *fakeBus) Publish(_ context.Context, evt event.Event) error {
	if f.fail {
		return errors.New("bus down")
	}
	f.published = append(f.published, evt)
	return nil
}

func TestDispatcher_ShouldPublishAndMarkEvent(t *testing.T) {
	ctx := context.Background()
	repo := outbox.NewSQLRepository(setupTestDB(t))
	bus := &fakeBus{}

	dispatcher := &outbox.Dispatcher{
		Repo:         repo,
		EventBus:     bus,
		PollInterval: time.Millisecond,
		BatchSize:    10,
	}

	recorder := &outbox.Recorder{Repo: repo}
	require.NoError(t, recorder.Record(ctx, event.Event{
		Type:    event.ReconcileRequested,
		Payload: event.ReconcileRequestedPayload{LedgerEntryID: "le-1", Attempt: 1},
	}))

	sent := dispatcher.DispatchOnce(ctx)

	require.Equal(t, 1, sent)
	require.Len(t, bus.published, 1)
	payload, ok := bus.published[0].Payload.(event.ReconcileRequestedPayload)
	require.True(t, ok, "payload should be decoded to its typed struct")
	require.Equal(t, "le-1", payload.LedgerEntryID)

	events, err := repo.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestDispatcher_WhenBusFails_ShouldKeepEventUnpublished(t *testing.T) {
	ctx := context.Background()
	repo := outbox.NewSQLRepository(setupTestDB(t))
	bus := &fakeBus{fail: true}

	dispatcher := &outbox.Dispatcher{Repo: repo, EventBus: bus, BatchSize: 10}

	recorder := &outbox.Recorder{Repo: repo}
	require.NoError(t, recorder.Record(ctx, event.Event{
		Type:    event.TransactionVoided,
		Payload: event.TransactionVoidedPayload{TransactionID: "txn-1", LedgerEntryID: "le-2"},
	}))

	require.Zero(t, dispatcher.DispatchOnce(ctx))

	events, err := repo.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestDispatcher_DropsUndecodableEvent(t *testing.T) {
	ctx := context.Background()
	repo := outbox.NewSQLRepository(setupTestDB(t))
	bus := &fakeBus{}

	require.NoError(t, repo.Save(ctx, outbox.OutboxEvent{
		ID:        "evt-bad",
		Type:      event.Type("SOMETHING_ELSE"),
		Payload:   []byte(`{}`),
		CreatedAt: time.Now().UTC(),
	}))

	dispatcher := &outbox.Dispatcher{Repo: repo, EventBus: bus, BatchSize: 10}

	require.Zero(t, dispatcher.DispatchOnce(ctx))
	require.Empty(t, bus.published)

	events, err := repo.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, events)
}
