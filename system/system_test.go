package system_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/kairei-project/kairei/event"
	"github.com/kairei-project/kairei/klog"
	"github.com/kairei-project/kairei/system"
	"github.com/kairei-project/kairei/testsupport"
	"github.com/stretchr/testify/require"
)

func TestRegisterAgentFromDSLAndTick(t *testing.T) {
	sys := system.New("test", klog.NewJSONLogger(io.Discard, klog.LevelInfo))
	ctx := context.Background()

	started, err := sys.RegisterAgentFromDSL(ctx, testsupport.CounterAgentSource)
	require.NoError(t, err)
	require.Equal(t, []string{"Counter"}, started)

	require.NoError(t, sys.Start(10 * time.Millisecond))

	require.Eventually(t, func() bool {
		v, err := sys.GetAgentState("Counter", "count")
		if err != nil {
			return false
		}
		n, ok := v.Int()
		return ok && n > 0
	}, time.Second, 5*time.Millisecond)

	status := sys.GetSystemStatus()
	require.Equal(t, "running", status.State)
	require.Equal(t, 1, status.AgentCount)

	require.NoError(t, sys.Shutdown(ctx))
}

// §6 SystemStatus.event_subscribers/event_queue_size must reflect live
// bus state, not stay permanently zero.
func TestGetSystemStatusReportsEventBusStats(t *testing.T) {
	sys := system.New("test", klog.NewJSONLogger(io.Discard, klog.LevelInfo))
	ctx := context.Background()

	// The request manager built by New holds its own bus subscription.
	status := sys.GetSystemStatus()
	require.Equal(t, 1, status.EventSubscribers)
	require.Equal(t, 0, status.EventQueueSize)

	recv, errRecv := sys.SubscribeEvents()
	defer recv.Close()
	defer errRecv.Close()

	sys.SendEvent(event.New(event.Custom("Ping"), nil))

	status = sys.GetSystemStatus()
	require.Equal(t, 2, status.EventSubscribers)
	// The request manager drains its own copy; the test's copy stays queued.
	require.Eventually(t, func() bool { return sys.GetSystemStatus().EventQueueSize == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, sys.Shutdown(ctx))
}

// §8 scenario 2: a request to an agent that never answers times out within
// timeout+ε and leaves no pending-reply slot behind.
func TestSendRequestToSlowAgentTimesOut(t *testing.T) {
	sys := system.New("test", klog.NewJSONLogger(io.Discard, klog.LevelInfo))
	ctx := context.Background()

	_, err := sys.RegisterAgentFromDSL(ctx, testsupport.SlowAgentSource)
	require.NoError(t, err)

	start := time.Now()
	_, err = sys.SendRequest(ctx, "tester", "Slow", "Ping", nil, 100*time.Millisecond)
	require.Error(t, err)
	require.Less(t, time.Since(start), 200*time.Millisecond)

	require.NoError(t, sys.Shutdown(ctx))
}

func TestLoadWorldPolicies(t *testing.T) {
	doc := []byte("name: Prod\npolicies:\n  - be helpful\n  - be safe\n")
	world, err := system.LoadWorldPolicies(doc)
	require.NoError(t, err)
	require.Equal(t, "Prod", world.Name)
	require.Equal(t, []string{"be helpful", "be safe"}, world.Policies)
}
