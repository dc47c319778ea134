package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/kairei-project/kairei/event"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := event.NewBus(8, nil)
	r1, _ := bus.Subscribe()
	r2, _ := bus.Subscribe()
	defer r1.Close()
	defer r2.Close()

	bus.Publish(event.New(event.Tick(), nil))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev1, err := r1.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, event.KindTick, ev1.Type.Kind)

	ev2, err := r2.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, event.KindTick, ev2.Type.Kind)
}

func TestBusLagRecovery(t *testing.T) {
	bus := event.NewBus(4, nil)
	slow, _ := bus.Subscribe()
	defer slow.Close()

	for i := 0; i < 20; i++ {
		bus.Publish(event.New(event.Custom("Burst"), nil))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := slow.Recv(ctx)
	require.Error(t, err)
	var lagged *event.LaggedError
	require.ErrorAs(t, err, &lagged)
	require.Greater(t, lagged.Count, 0)

	// subsequent receives proceed without further errors.
	for i := 0; i < 3; i++ {
		_, err := slow.Recv(ctx)
		require.NoError(t, err)
	}
}

func TestReceiverCloseUnsubscribes(t *testing.T) {
	bus := event.NewBus(4, nil)
	r, _ := bus.Subscribe()
	r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := r.Recv(ctx)
	require.Error(t, err)
}
