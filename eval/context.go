package eval

import (
	"context"
	"errors"
	"time"

	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/event"
	"github.com/kairei-project/kairei/kaireierr"
	"github.com/kairei-project/kairei/metrics"
	"github.com/kairei-project/kairei/parser"
	"github.com/kairei-project/kairei/provider"
	"github.com/kairei-project/kairei/request"
	"github.com/kairei-project/kairei/value"
	"go.opentelemetry.io/otel/trace"
)

func unknownProviderError(name string) error {
	return kaireierr.New(kaireierr.KindProvider, "think", "no provider registered under name "+name)
}

// defaultRequestTimeout applies when a Request expression carries no
// explicit `with { timeout: ... }` attribute.
const defaultRequestTimeout = 5 * time.Second

// defaultProviderName is the provider name a Think expression dispatches to
// when its `with { provider: "..." }` attribute is absent.
const defaultProviderName = "default"

// Interpreter is shared, read-mostly configuration for every
// ExecutionContext spawned to run a handler: the provider registry and
// request manager a Think/Request expression dispatches through.
type Interpreter struct {
	Providers *provider.Registry
	Requests  *request.Manager
	Bus       *event.Bus

	// Metrics is optional: when nil, Think/Request dispatch simply skips
	// recording (§2 "spans around handler dispatch, request round-trips,
	// provider calls").
	Metrics *metrics.Provider
}

// ExecutionContext is spawned per handler invocation (§4.8 step 4): it
// pairs one agent's State with a fresh local scope and the shared
// Interpreter dependencies, plus identity used for Request/Think dispatch
// and error locations.
type ExecutionContext struct {
	interp *Interpreter
	state  *State
	scope  *scope

	AgentName   string
	HandlerName string
	Policies    []provider.Policy
}

// NewExecutionContext starts a fresh top-level scope over state for one
// handler invocation.
func NewExecutionContext(interp *Interpreter, state *State, agentName, handlerName string, policies []provider.Policy) *ExecutionContext {
	return &ExecutionContext{
		interp:      interp,
		state:       state,
		scope:       newScope(nil),
		AgentName:   agentName,
		HandlerName: handlerName,
		Policies:    policies,
	}
}

func (ec *ExecutionContext) child() *ExecutionContext {
	cp := *ec
	cp.scope = newScope(ec.scope)
	return &cp
}

// BindParam declares a handler parameter in ec's top-level scope before the
// handler block runs (§4.8 step 4: the runtime binds each HandlerDef
// parameter from the triggering event's Parameters).
func (ec *ExecutionContext) BindParam(name string, v value.Value) {
	ec.scope.define(name, v)
}

func withString(with map[string]ast.Literal, key string) (string, bool) {
	lit, ok := with[key]
	if !ok || lit.Kind != ast.LitString {
		return "", false
	}
	return lit.StringValue, true
}

func withDuration(with map[string]ast.Literal, key string) (time.Duration, bool) {
	lit, ok := with[key]
	if !ok {
		return 0, false
	}
	if lit.Kind == ast.LitDuration {
		d, err := parser.DurationFromRaw(lit.DurationRaw)
		if err == nil {
			return d, true
		}
	}
	return 0, false
}

func withInt(with map[string]ast.Literal, key string) (int, bool) {
	lit, ok := with[key]
	if !ok || lit.Kind != ast.LitInt {
		return 0, false
	}
	return int(lit.IntValue), true
}

func withFloat(with map[string]ast.Literal, key string) (float64, bool) {
	lit, ok := with[key]
	if !ok {
		return 0, false
	}
	switch lit.Kind {
	case ast.LitFloat:
		return lit.FloatValue, true
	case ast.LitInt:
		return float64(lit.IntValue), true
	default:
		return 0, false
	}
}

// dispatchThink builds a ProviderRequest from a Think expression's already-
// evaluated args and dispatches it via the provider registry (§4.9, §4.10).
func (ec *ExecutionContext) dispatchThink(ctx context.Context, queryArgs []value.Value, with map[string]ast.Literal) (value.Value, error) {
	name := defaultProviderName
	if n, ok := withString(with, "provider"); ok {
		name = n
	}
	p, ok := ec.interp.Providers.Get(name)
	if !ok {
		return value.Value{}, unknownProviderError(name)
	}

	query := ""
	if len(queryArgs) > 0 {
		if s, ok := queryArgs[0].String(); ok {
			query = s
		} else {
			query = queryArgs[0].Display()
		}
	}
	params := map[string]value.Value{}
	for i, a := range queryArgs[minOne(len(queryArgs)):] {
		params[argName(i)] = a
	}

	cfg := provider.CommonConfig{Model: "", Temperature: 0, MaxTokens: 0}
	if m, ok := withString(with, "model"); ok {
		cfg.Model = m
	}
	if t, ok := withFloat(with, "temperature"); ok {
		cfg.Temperature = t
	}
	if mt, ok := withInt(with, "max_tokens"); ok {
		cfg.MaxTokens = mt
	}

	req := provider.ProviderRequest{
		Input: provider.RequestInput{Query: query, Parameters: params},
		State: provider.RequestState{
			AgentName: ec.AgentName,
			State:     ec.state.Snapshot(),
			Policies:  ec.Policies,
		},
		Config: cfg,
	}

	if ec.interp.Metrics != nil {
		var span trace.Span
		ctx, span = metrics.StartProviderSpan(ctx, ec.interp.Metrics.Tracer(), name)
		defer span.End()
	}

	resp, err := p.Execute(ctx, req)
	if ec.interp.Metrics != nil {
		ec.interp.Metrics.Instruments().RecordProviderCall(ctx, name, err == nil)
	}
	if err != nil {
		return value.Value{}, err
	}
	if resp.Structured != nil {
		return value.OfMap(resp.Structured), nil
	}
	return value.OfString(resp.Output), nil
}

func minOne(n int) int {
	if n == 0 {
		return 0
	}
	return 1
}

func argName(i int) string {
	digits := "0123456789"
	if i < 10 {
		return "arg" + string(digits[i])
	}
	return "argN"
}

// dispatchRequest publishes an inter-agent request and awaits its reply via
// the request manager (§4.9).
func (ec *ExecutionContext) dispatchRequest(ctx context.Context, agent, requestType string, params map[string]value.Value, with map[string]ast.Literal) (value.Value, error) {
	timeout := defaultRequestTimeout
	if d, ok := withDuration(with, "timeout"); ok {
		timeout = d
	}

	if ec.interp.Metrics == nil {
		return ec.interp.Requests.Request(ctx, ec.AgentName, agent, requestType, params, timeout)
	}

	var span trace.Span
	ctx, span = metrics.StartRequestSpan(ctx, ec.interp.Metrics.Tracer(), ec.AgentName, agent, requestType)
	defer span.End()

	start := time.Now()
	result, err := ec.interp.Requests.Request(ctx, ec.AgentName, agent, requestType, params, timeout)
	in := ec.interp.Metrics.Instruments()
	in.RecordRequestRoundtrip(ctx, ec.AgentName, agent, requestType, time.Since(start), err == nil)
	if errors.Is(err, kaireierr.ErrRequestTimeout) {
		in.RecordRequestTimeout(ctx, ec.AgentName, agent, requestType)
	}
	return result, err
}
