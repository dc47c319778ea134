package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/eval"
	"github.com/kairei-project/kairei/event"
	"github.com/kairei-project/kairei/kaireierr"
	"github.com/kairei-project/kairei/klog"
	"github.com/kairei-project/kairei/metrics"
	"github.com/kairei-project/kairei/provider"
	"github.com/kairei-project/kairei/value"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// defaultConcurrency bounds how many handlers one agent runs at once (§4.8
// step 3 "per-agent concurrency bound"); NewAgentRuntime always uses it.
const defaultConcurrency = 8

// defaultDrainTimeout bounds how long Stop waits for in-flight handlers to
// return. Stop cancels the context those handlers run under before it starts
// waiting, so there is no grace period free of cancellation; a handler still
// running when the timeout expires is left running and Stop proceeds.
const defaultDrainTimeout = 5 * time.Second

// subscription describes one handler's matching rule, resolved once at
// Start time from the agent's Observe/Answer/React sections.
type subscription struct {
	section string // "observe", "answer", "react"
	def     *ast.HandlerDef
}

// AgentRuntime is one live agent: its state, its matched handlers, and the
// goroutine that drains the event bus for it (§4.8).
type AgentRuntime struct {
	name        string
	def         *ast.MicroAgentDef
	interp      *eval.Interpreter
	bus         *event.Bus
	log         klog.Logger
	concurrency int64

	mu        sync.RWMutex
	lifecycle Lifecycle
	state     *eval.State
	policies  []provider.Policy
	subs      []subscription

	recv      *event.Receiver
	cancel    context.CancelFunc
	loopDone  chan struct{}
	inFlight  sync.WaitGroup
	sem       *semaphore.Weighted
}

// NewAgentRuntime builds a runtime for def, not yet started (Created).
func NewAgentRuntime(name string, def *ast.MicroAgentDef, interp *eval.Interpreter, bus *event.Bus, log klog.Logger) *AgentRuntime {
	if log == nil {
		log = klog.NoOpLogger{}
	}
	policies := make([]provider.Policy, 0, len(def.Policies))
	for _, p := range def.Policies {
		policies = append(policies, provider.Policy{Scope: provider.PolicyScopeAgent, Text: p})
	}
	return &AgentRuntime{
		name:        name,
		def:         def,
		interp:      interp,
		bus:         bus,
		log:         log.WithComponent("agent-runtime").WithComponent(name),
		concurrency: defaultConcurrency,
		lifecycle:   Created,
		policies:    policies,
		subs:        buildSubscriptions(def),
	}
}

func buildSubscriptions(def *ast.MicroAgentDef) []subscription {
	var subs []subscription
	if def.Observe != nil {
		for _, h := range def.Observe.Handlers {
			subs = append(subs, subscription{section: "observe", def: h})
		}
	}
	if def.Answer != nil {
		for _, h := range def.Answer.Handlers {
			subs = append(subs, subscription{section: "answer", def: h})
		}
	}
	if def.React != nil {
		for _, h := range def.React.Handlers {
			subs = append(subs, subscription{section: "react", def: h})
		}
	}
	return subs
}

func (a *AgentRuntime) Name() string { return a.name }

func (a *AgentRuntime) Lifecycle() Lifecycle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lifecycle
}

func (a *AgentRuntime) transition(to Lifecycle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.lifecycle.canTransition(to) {
		return ErrInvalidTransition.WithLocation(kaireierr.Location{AgentName: a.name})
	}
	a.lifecycle = to
	return nil
}

// Start runs onInit, subscribes to the bus, and begins the receive loop
// (Created -> Starting -> Running, or -> Error on failure).
func (a *AgentRuntime) Start(ctx context.Context) error {
	if err := a.transition(Starting); err != nil {
		return err
	}

	state, err := buildInitialState(ctx, a.def.State, a.interp, a.name)
	if err != nil {
		a.forceError()
		return err
	}
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()

	if a.def.Lifecycle != nil && a.def.Lifecycle.OnInit != nil {
		ec := eval.NewExecutionContext(a.interp, state, a.name, "onInit", a.policies)
		if _, err := ec.ExecBlock(ctx, a.def.Lifecycle.OnInit.Statements); err != nil {
			a.forceError()
			return err
		}
	}

	a.sem = semaphore.NewWeighted(a.concurrency)
	a.recv, _ = a.bus.Subscribe()
	loopCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.loopDone = make(chan struct{})

	if err := a.transition(Running); err != nil {
		cancel()
		return err
	}

	go a.loop(loopCtx)
	return nil
}

func (a *AgentRuntime) forceError() {
	a.mu.Lock()
	a.lifecycle = Errored
	a.mu.Unlock()
}

func (a *AgentRuntime) loop(ctx context.Context) {
	defer close(a.loopDone)
	for {
		ev, err := a.recv.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if lagged, ok := err.(*event.LaggedError); ok {
				a.log.Warn("event bus lag recovered", map[string]any{"dropped": lagged.Count})
				if a.interp.Metrics != nil {
					a.interp.Metrics.Instruments().RecordLagEvent(ctx, lagged.Count)
				}
			}
			continue
		}
		a.dispatch(ctx, ev)
	}
}

// dispatch runs every handler matching ev concurrently, up to the agent's
// concurrency bound; overflow blocks in Acquire (§4.8 step 3
// "backpressure").
func (a *AgentRuntime) dispatch(ctx context.Context, ev event.Event) {
	for _, sub := range a.subs {
		if !matches(sub, ev, a.name) {
			continue
		}
		sub := sub
		if err := a.sem.Acquire(ctx, 1); err != nil {
			return
		}
		a.inFlight.Add(1)
		go func() {
			defer a.sem.Release(1)
			defer a.inFlight.Done()
			a.runHandler(ctx, sub, ev)
		}()
	}
}

func matches(sub subscription, ev event.Event, agentName string) bool {
	if sub.def.IsRequest {
		return ev.Type.Kind == event.KindRequest &&
			ev.Type.RequestType == sub.def.EventName &&
			ev.Type.Responder == agentName
	}
	switch sub.def.EventName {
	case "Tick":
		return ev.Type.Kind == event.KindTick
	case "FeatureStatusUpdated":
		return ev.Type.Kind == event.KindFeatureStatusUpdated
	case "FeatureFailure":
		return ev.Type.Kind == event.KindFeatureFailure
	default:
		return ev.Type.Kind == event.KindCustom && ev.Type.Name == sub.def.EventName
	}
}

// runHandler spawns an ExecutionContext for one handler invocation (§4.8
// step 4) and publishes the outcome: ResponseSuccess/Failure for answer
// handlers, FeatureFailure for observe/react errors.
func (a *AgentRuntime) runHandler(ctx context.Context, sub subscription, ev event.Event) {
	a.mu.RLock()
	state := a.state
	policies := a.policies
	a.mu.RUnlock()

	ec := eval.NewExecutionContext(a.interp, state, a.name, sub.def.EventName, policies)
	for _, p := range sub.def.Parameters {
		if v, ok := ev.Parameters[p.Name]; ok {
			ec.BindParam(p.Name, v)
		}
	}

	if a.interp.Metrics != nil {
		var span trace.Span
		ctx, span = metrics.StartHandlerSpan(ctx, a.interp.Metrics.Tracer(), a.name, sub.section, sub.def.EventName)
		defer span.End()
		a.interp.Metrics.Instruments().RecordHandlerDispatch(ctx, a.name, sub.section, sub.def.EventName)
	}

	result, err := ec.ExecBlock(ctx, sub.def.Block.Statements)
	if err != nil && a.interp.Metrics != nil {
		a.interp.Metrics.Instruments().RecordHandlerError(ctx, a.name, sub.section, sub.def.EventName)
	}

	if sub.section == "answer" {
		if err != nil {
			a.log.ErrorWithContext(ctx, "answer handler failed", map[string]any{"event": sub.def.EventName, "error": err.Error()})
			a.bus.Publish(event.New(event.ResponseFailure(ev.Type.RequestID, ev.Type.Requester, a.name, err.Error()), nil))
			return
		}
		a.bus.Publish(event.New(event.ResponseSuccess(ev.Type.RequestID, ev.Type.Requester, a.name),
			map[string]value.Value{"value": result.Value}))
		return
	}

	if err != nil {
		a.log.ErrorWithContext(ctx, sub.section+" handler failed", map[string]any{"event": sub.def.EventName, "error": err.Error()})
		a.bus.Publish(event.New(event.FeatureFailure(err.Error()), nil))
	}
}

// Stop cancels the receive loop together with the context in-flight handlers
// run under, unsubscribes, waits for those handlers to return (bounded by
// defaultDrainTimeout), then runs onDestroy (Running -> Stopping -> Stopped).
func (a *AgentRuntime) Stop(ctx context.Context) error {
	if err := a.transition(Stopping); err != nil {
		return err
	}
	a.cancel()
	<-a.loopDone
	a.recv.Close()

	drained := make(chan struct{})
	go func() {
		a.inFlight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(defaultDrainTimeout):
		a.log.Warn("drain timed out, forcing stop", map[string]any{})
	}

	if a.def.Lifecycle != nil && a.def.Lifecycle.OnDestroy != nil {
		a.mu.RLock()
		state := a.state
		a.mu.RUnlock()
		ec := eval.NewExecutionContext(a.interp, state, a.name, "onDestroy", a.policies)
		if _, err := ec.ExecBlock(ctx, a.def.Lifecycle.OnDestroy.Statements); err != nil {
			a.log.ErrorWithContext(ctx, "onDestroy failed", map[string]any{"error": err.Error()})
		}
	}

	return a.transition(Stopped)
}

// State exposes the agent's mutable state for diagnostics/tests.
func (a *AgentRuntime) State() *eval.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}
