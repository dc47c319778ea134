package request_test

import (
	"context"
	"testing"
	"time"

	"github.com/kairei-project/kairei/event"
	"github.com/kairei-project/kairei/request"
	"github.com/kairei-project/kairei/value"
	"github.com/stretchr/testify/require"
)

func TestRequestSuccess(t *testing.T) {
	bus := event.NewBus(16, nil)
	mgr := request.NewManager(bus, nil)
	defer mgr.Close()

	responder, errRecv := bus.Subscribe()
	defer responder.Close()
	defer errRecv.Close()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		ev, err := responder.Recv(ctx)
		if err != nil {
			return
		}
		bus.Publish(event.New(
			event.ResponseSuccess(ev.Type.RequestID, ev.Type.Requester, ev.Type.Responder),
			map[string]value.Value{"value": value.OfInt(3)},
		))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := mgr.Request(ctx, "Client", "Counter", "GetCount", nil, time.Second)
	require.NoError(t, err)
	n, ok := v.Int()
	require.True(t, ok)
	require.Equal(t, int64(3), n)
}

func TestRequestTimeout(t *testing.T) {
	bus := event.NewBus(16, nil)
	mgr := request.NewManager(bus, nil)
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := mgr.Request(ctx, "Client", "Nobody", "Ping", nil, 20*time.Millisecond)
	require.Error(t, err)
	require.Equal(t, 0, mgr.Pending(), "timed-out request must not leak a pending-reply slot")
}

func TestRequestFailure(t *testing.T) {
	bus := event.NewBus(16, nil)
	mgr := request.NewManager(bus, nil)
	defer mgr.Close()

	responder, _ := bus.Subscribe()
	defer responder.Close()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		ev, err := responder.Recv(ctx)
		if err != nil {
			return
		}
		bus.Publish(event.New(
			event.ResponseFailure(ev.Type.RequestID, ev.Type.Requester, ev.Type.Responder, "boom"),
			map[string]value.Value{"error": value.OfError("boom")},
		))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := mgr.Request(ctx, "Client", "Counter", "Fail", nil, time.Second)
	require.Error(t, err)
}
