package eventbus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/eventbus"
)

func TestInMemoryBus_DeliversOnlyToSubscribedType(t *testing.T) {
	bus := eventbus.NewInMemoryBus()

	var got []event.Type
	bus.Subscribe(event.OrderPlaced, func(_ context.Context, evt event.Event) error {
		got = append(got, evt.Type)
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), event.Event{Type: event.OrderPlaced}))
	require.NoError(t, bus.Publish(context.Background(), event.Event{Type: event.RefundIssued}))

	require.Equal(t, []event.Type{event.OrderPlaced}, got)
}

func TestInMemoryBus_RunsAllHandlersAndJoinsErrors(t *testing.T) {
	bus := eventbus.NewInMemoryBus()
	boom := errors.New("boom")

	calls := 0
	bus.Subscribe(event.RefundIssued, func(context.Context, event.Event) error {
		calls++
		return boom
	})
	bus.Subscribe(event.RefundIssued, func(context.Context, event.Event) error {
		calls++
		return nil
	})

	err := bus.Publish(context.Background(), event.Event{Type: event.RefundIssued})

	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, calls)
}

func TestInMemoryBus_SubscribeAll(t *testing.T) {
	bus := eventbus.NewInMemoryBus()

	var got []event.Type
	bus.SubscribeAll([]event.Type{event.OrderPlaced, event.TransactionVoided}, func(_ context.Context, evt event.Event) error {
		got = append(got, evt.Type)
		return nil
	})

	for _, typ := range []event.Type{event.OrderPlaced, event.RefundIssued, event.TransactionVoided} {
		require.NoError(t, bus.Publish(context.Background(), event.Event{Type: typ}))
	}

	require.Equal(t, []event.Type{event.OrderPlaced, event.TransactionVoided}, got)
}
