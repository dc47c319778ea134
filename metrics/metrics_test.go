package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/kairei-project/kairei/metrics"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresServiceName(t *testing.T) {
	_, err := metrics.New("", "")
	require.Error(t, err)
}

func TestNewWithNoEndpointUsesNoopProviders(t *testing.T) {
	p, err := metrics.New("kairei-test", "")
	require.NoError(t, err)
	require.NotNil(t, p.Tracer())
	require.NotNil(t, p.Instruments())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewWithStdoutEndpointWiresRealProviders(t *testing.T) {
	p, err := metrics.New("kairei-test", "stdout")
	require.NoError(t, err)
	require.NotNil(t, p.Tracer())
	ctx, span := p.Tracer().Start(context.Background(), "test-span")
	span.End()
	require.NoError(t, p.Shutdown(ctx))
}

func TestInstrumentsRecordWithoutPanicking(t *testing.T) {
	p, err := metrics.New("kairei-test", "")
	require.NoError(t, err)
	ctx := context.Background()
	in := p.Instruments()

	require.NotPanics(t, func() {
		in.RecordHandlerDispatch(ctx, "Counter", "observe", "Tick")
		in.RecordHandlerError(ctx, "Counter", "answer", "GetCount")
		in.RecordRequestRoundtrip(ctx, "tester", "Counter", "GetCount", 5*time.Millisecond, true)
		in.RecordRequestTimeout(ctx, "tester", "Counter", "GetCount")
		in.RecordProviderCall(ctx, "default", true)
		in.RecordLagEvent(ctx, 3)
		in.RecordScaleUp(ctx, "Counter", 2)
		in.RecordScaleDown(ctx, "Counter", 1)
	})

	ctx, span := metrics.StartHandlerSpan(ctx, p.Tracer(), "Counter", "observe", "Tick")
	require.NotNil(t, span)
	span.End()
}
