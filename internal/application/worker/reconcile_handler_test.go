package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/worker"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/ledger"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/gateway/sandbox"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/eventbus"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/outbox"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/persistence/inmemory"
)

type fakeReconciler struct {
	reconcileFn func(entryID string) error
}

func (f *fakeReconciler) Reconcile(_ context.Context, entryID string) (*ledger.Entry, error) {
	if err := f.reconcileFn(entryID); err != nil {
		return nil, err
	}
	return &ledger.Entry{ID: entryID}, nil
}

type fakeRetry struct {
	scheduled []event.ReconcileRequestedPayload
}

func (f *fakeRetry) Schedule(_ context.Context, payload event.ReconcileRequestedPayload) {
	f.scheduled = append(f.scheduled, payload)
}

type chanPublisher struct {
	events chan event.Event
}

func (p *chanPublisher) Publish(_ context.Context, evt event.Event) error {
	p.events <- evt
	return nil
}

func reconcileEvent(entryID string, attempt int) event.Event {
	return event.Event{
		Type:    event.ReconcileRequested,
		Payload: event.ReconcileRequestedPayload{LedgerEntryID: entryID, Attempt: attempt},
	}
}

func TestReconcileHandler_Outcomes(t *testing.T) {
	cases := []struct {
		name          string
		err           error
		wantScheduled bool
		wantFailed    uint64
	}{
		{name: "success", err: nil},
		{name: "retryable failure is rescheduled", err: failure.New(failure.Retryable, "gateway timeout"), wantScheduled: true, wantFailed: 1},
		{name: "not found is dropped", err: failure.New(failure.NotFound, "ledger entry gone"), wantFailed: 1},
		{name: "fatal is dropped", err: errors.New("boom"), wantFailed: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			retry := &fakeRetry{}
			counters := &metrics.Counters{}

			handler := &worker.ReconcileHandler{
				Reconciler: &fakeReconciler{reconcileFn: func(string) error { return tc.err }},
				Retry:      retry,
				Metrics:    counters,
			}

			require.NoError(t, handler.Handle(context.Background(), reconcileEvent("le-1", 2)))

			snap := counters.Snapshot()
			require.Equal(t, uint64(1), snap["reconciles_processed"])
			require.Equal(t, tc.wantFailed, snap["reconciles_failed"])

			if !tc.wantScheduled {
				require.Empty(t, retry.scheduled)
				require.Zero(t, snap["reconcile_retries"])
				return
			}
			require.Len(t, retry.scheduled, 1)
			require.Equal(t, "le-1", retry.scheduled[0].LedgerEntryID)
			require.Equal(t, 2, retry.scheduled[0].Attempt)
			require.Equal(t, uint64(1), snap["reconcile_retries"])
		})
	}
}

func TestReconcileHandler_IgnoresOtherEvents(t *testing.T) {
	called := false
	handler := &worker.ReconcileHandler{
		Reconciler: &fakeReconciler{reconcileFn: func(string) error { called = true; return nil }},
	}

	require.NoError(t, handler.Handle(context.Background(), event.Event{
		Type:    event.TransactionVoided,
		Payload: event.TransactionVoidedPayload{TransactionID: "txn-1"},
	}))
	require.False(t, called)

	err := handler.Handle(context.Background(), event.Event{Type: event.ReconcileRequested, Payload: "nope"})
	require.Error(t, err)
}

func TestRetryScheduler_Delay(t *testing.T) {
	r := &worker.RetryScheduler{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	cases := map[int]time.Duration{
		0:  100 * time.Millisecond,
		1:  100 * time.Millisecond,
		2:  200 * time.Millisecond,
		3:  400 * time.Millisecond,
		4:  800 * time.Millisecond,
		5:  time.Second,
		10: time.Second,
	}
	for attempt, want := range cases {
		require.Equal(t, want, r.Delay(attempt), "attempt %d", attempt)
	}
}

func TestRetryScheduler_PublishesNextAttempt(t *testing.T) {
	pub := &chanPublisher{events: make(chan event.Event, 1)}
	r := &worker.RetryScheduler{EventBus: pub, MaxRetry: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	r.Schedule(context.Background(), event.ReconcileRequestedPayload{LedgerEntryID: "le-1", Attempt: 1})

	select {
	case evt := <-pub.events:
		require.Equal(t, event.ReconcileRequested, evt.Type)
		payload := evt.Payload.(event.ReconcileRequestedPayload)
		require.Equal(t, "le-1", payload.LedgerEntryID)
		require.Equal(t, 2, payload.Attempt)
	case <-time.After(time.Second):
		t.Fatal("retry was not published")
	}
}

func TestRetryScheduler_StopsAtMaxRetry(t *testing.T) {
	pub := &chanPublisher{events: make(chan event.Event, 1)}
	r := &worker.RetryScheduler{EventBus: pub, MaxRetry: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	r.Schedule(context.Background(), event.ReconcileRequestedPayload{LedgerEntryID: "le-1", Attempt: 3})

	select {
	case evt := <-pub.events:
		t.Fatalf("unexpected retry %v", evt)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestReconcileFlow_OutboxToLedger(t *testing.T) {
	ctx := context.Background()
	gw := sandbox.New()
	store := inmemory.NewStore()
	repos := store.Repos()

	reconciler := &worker.Reconciler{
		Gateways: gateway.SingleProvider{Client: gw},
		Ledger:   repos.Ledger,
		Recorder: repos.Events,
	}
	counters := &metrics.Counters{}

	bus := eventbus.NewInMemoryBus()
	handler := &worker.ReconcileHandler{Reconciler: reconciler, Metrics: counters}
	bus.Subscribe(event.ReconcileRequested, handler.Handle)

	var (
		mu       sync.Mutex
		observed []event.Type
	)
	for _, typ := range event.Notifications {
		bus.Subscribe(typ, func(_ context.Context, evt event.Event) error {
			mu.Lock()
			defer mu.Unlock()
			observed = append(observed, evt.Type)
			return nil
		})
	}

	chargedEntry(t, gw, repos.Ledger, "le-1")
	require.NoError(t, repos.Events.Record(ctx, reconcileEvent("le-1", 1)))

	dispatcher := &outbox.Dispatcher{Repo: store.Outbox(), EventBus: bus, BatchSize: 10}
	require.Equal(t, 1, dispatcher.DispatchOnce(ctx))
	require.Zero(t, dispatcher.DispatchOnce(ctx))

	entry, err := repos.Ledger.FindByID(ctx, "le-1")
	require.NoError(t, err)
	require.NotNil(t, entry.RemoteStatus)
	require.Equal(t, ledger.StatusCapturedPendingSettlement, *entry.RemoteStatus)
	require.Equal(t, uint64(1), counters.Snapshot()["reconciles_processed"])

	mu.Lock()
	defer mu.Unlock()
	require.Empty(t, observed)
}
