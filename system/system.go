// Package system implements the native feature surface of §2/§6: a ticker
// driving Tick events, and the SystemApi/AgentApi/EventApi/StateApi facade
// consumed by an external control plane.
package system

import (
	"context"
	"sync"
	"time"

	"github.com/kairei-project/kairei/event"
	"github.com/kairei-project/kairei/eval"
	"github.com/kairei-project/kairei/kaireierr"
	"github.com/kairei-project/kairei/klog"
	"github.com/kairei-project/kairei/metrics"
	"github.com/kairei-project/kairei/parser"
	"github.com/kairei-project/kairei/provider"
	"github.com/kairei-project/kairei/request"
	"github.com/kairei-project/kairei/runtime"
	"github.com/kairei-project/kairei/value"
)

// System wires together the bus, request manager and agent registry behind
// the control-plane-facing API surface (§6).
type System struct {
	mu        sync.RWMutex
	bus       *event.Bus
	requests  *request.Manager
	registry  *runtime.Registry
	interp    *eval.Interpreter
	metrics   *metrics.Provider
	log       klog.Logger
	version   string
	startedAt time.Time
	running   bool

	ticker *Ticker
}

// New builds a System with its own bus/request-manager/registry, not yet
// started. Tracing/metrics run against the no-op OTel providers unless
// ConfigureTelemetry is called afterwards.
func New(version string, log klog.Logger) *System {
	if log == nil {
		log = klog.NoOpLogger{}
	}
	serviceName := version
	if serviceName == "" {
		serviceName = "kairei"
	}
	mp, err := metrics.New(serviceName, "")
	if err != nil {
		// Only a non-empty-name check can fail here, which serviceName
		// above rules out.
		mp = nil
	}

	bus := event.NewBus(256, log)
	interp := &eval.Interpreter{
		Providers: provider.NewRegistry(),
		Requests:  request.NewManager(bus, log),
		Bus:       bus,
		Metrics:   mp,
	}
	reg := runtime.NewRegistry(interp, bus, log)
	return &System{
		bus:      bus,
		requests: interp.Requests,
		registry: reg,
		interp:   interp,
		metrics:  mp,
		log:      log.WithComponent("system"),
		version:  version,
	}
}

// ConfigureTelemetry upgrades tracing/metrics to a real OTLP/gRPC exporter
// pointed at endpoint, replacing the no-op providers New installed. Call
// before RegisterAgentFromDSL/Start so agent runtimes pick up the change.
func (s *System) ConfigureTelemetry(endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	serviceName := s.version
	if serviceName == "" {
		serviceName = "kairei"
	}
	mp, err := metrics.New(serviceName, endpoint)
	if err != nil {
		return err
	}
	s.metrics = mp
	s.interp.Metrics = mp
	return nil
}

// Metrics exposes the telemetry provider backing spans/counters.
func (s *System) Metrics() *metrics.Provider { return s.metrics }

// Bus exposes the system's shared event bus, e.g. for wiring a Provider
// registry into the shared eval.Interpreter before agents are registered.
func (s *System) Bus() *event.Bus { return s.bus }

// Providers exposes the shared provider registry every agent's Think
// expressions dispatch through, so a caller can register providers/plugins
// before starting agents.
func (s *System) Providers() *provider.Registry { return s.interp.Providers }

// Registry exposes the underlying agent registry.
func (s *System) Registry() *runtime.Registry { return s.registry }

// Start marks the system running and begins the system ticker at interval
// (Tick events drive `observe { on Tick { ... } }` handlers, §4.8).
func (s *System) Start(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return kaireierr.New(kaireierr.KindAgent, "system.start", "system already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.ticker = NewTicker(s.bus, interval)
	s.ticker.Start()
	return nil
}

// Shutdown stops the ticker, then every agent, then closes the request
// manager and the telemetry provider; the bus itself is simply abandoned (no
// further publishers reference it) per §5 "shutdown(system)".
func (s *System) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	err := s.registry.StopAll(ctx)
	s.requests.Close()
	if s.metrics != nil {
		if shutdownErr := s.metrics.Shutdown(ctx); shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}
	s.running = false
	return err
}

// EmergencyShutdown is a best-effort immediate shutdown: it does not wait
// for graceful agent drain (contrast with Shutdown).
func (s *System) EmergencyShutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.requests.Close()
	s.running = false
}

// Status reports the SystemStatus snapshot (§6).
type Status struct {
	Version           string
	State             string // "running" or "stopped"
	StartedAt         time.Time
	UptimeSeconds     float64
	AgentCount        int
	RunningAgentCount int
	EventQueueSize    int
	EventSubscribers  int
}

func (s *System) GetSystemStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := "stopped"
	uptime := 0.0
	if s.running {
		state = "running"
		uptime = time.Since(s.startedAt).Seconds()
	}
	names := s.registry.Names()
	running := 0
	for _, n := range names {
		if rt, ok := s.registry.Get(n); ok && rt.Lifecycle() == runtime.Running {
			running++
		}
	}
	subscribers, queueSize := s.bus.Stats()
	return Status{
		Version:           s.version,
		State:             state,
		StartedAt:         s.startedAt,
		UptimeSeconds:     uptime,
		AgentCount:        len(names),
		RunningAgentCount: running,
		EventQueueSize:    queueSize,
		EventSubscribers:  subscribers,
	}
}

// AgentStatus is one agent's lifecycle snapshot (§6).
type AgentStatus struct {
	Name        string
	State       string
	LastUpdated time.Time
}

// RegisterAgentFromDSL parses source and starts every micro agent it
// declares (§6 AgentApi.register_agent_from_dsl).
func (s *System) RegisterAgentFromDSL(ctx context.Context, source string) ([]string, error) {
	root, err := parser.ParseSource(source)
	if err != nil {
		return nil, err
	}
	started := make([]string, 0, len(root.MicroAgentDefs))
	for _, def := range root.MicroAgentDefs {
		if _, err := s.registry.Spawn(ctx, def.Name, def); err != nil {
			return started, err
		}
		s.registry.RegisterTemplate(def)
		started = append(started, def.Name)
	}
	return started, nil
}

func (s *System) StartAgent(ctx context.Context, name string) error {
	rt, ok := s.registry.Get(name)
	if !ok {
		return kaireierr.New(kaireierr.KindAgent, "start_agent", "unknown agent "+name)
	}
	return rt.Start(ctx)
}

func (s *System) StopAgent(ctx context.Context, name string) error {
	rt, ok := s.registry.Get(name)
	if !ok {
		return kaireierr.New(kaireierr.KindAgent, "stop_agent", "unknown agent "+name)
	}
	return rt.Stop(ctx)
}

// RestartAgent stops then starts the named agent.
func (s *System) RestartAgent(ctx context.Context, name string) error {
	if err := s.StopAgent(ctx, name); err != nil {
		return err
	}
	return s.StartAgent(ctx, name)
}

func (s *System) GetAgentStatus(name string) (AgentStatus, error) {
	rt, ok := s.registry.Get(name)
	if !ok {
		return AgentStatus{}, kaireierr.New(kaireierr.KindAgent, "get_agent_status", "unknown agent "+name)
	}
	return AgentStatus{Name: name, State: rt.Lifecycle().String(), LastUpdated: time.Now()}, nil
}

func (s *System) ScaleUp(ctx context.Context, name string, count int) ([]string, error) {
	return s.registry.ScaleUp(ctx, name, count)
}

func (s *System) ScaleDown(ctx context.Context, name string, count int) error {
	return s.registry.ScaleDown(ctx, name, count)
}

// SendEvent publishes a bare event with no reply expected (§6
// EventApi.send_event).
func (s *System) SendEvent(ev event.Event) {
	s.bus.Publish(ev)
}

// SendRequest is EventApi.send_request: publish a Request and await its
// Value reply via the request manager.
func (s *System) SendRequest(ctx context.Context, requester, responder, requestType string, params map[string]value.Value, timeout time.Duration) (value.Value, error) {
	return s.requests.Request(ctx, requester, responder, requestType, params, timeout)
}

// SubscribeEvents is EventApi.subscribe_events: hand back a raw Receiver: the
// control plane filters by type itself (§6).
func (s *System) SubscribeEvents() (*event.Receiver, *event.ErrorReceiver) {
	return s.bus.Subscribe()
}

// SendTypedEvent is EventApi.send_typed_event: publish a named Custom event.
func (s *System) SendTypedEvent(name string, payload map[string]value.Value, targets []string) {
	params := make(map[string]value.Value, len(payload)+1)
	for k, v := range payload {
		params[k] = v
	}
	if len(targets) > 0 {
		list := make([]value.Value, len(targets))
		for i, t := range targets {
			list[i] = value.OfString(t)
		}
		params["targets"] = value.OfList(list)
	}
	s.bus.Publish(event.New(event.Custom(name), params))
}

// AgentRequestEnvelope mirrors the CLI's request/response JSON shape
// (original_source `kairei-cli/src/api_client.rs`): request_id, status,
// error.
type AgentRequestEnvelope struct {
	RequestID string
	Status    string // "ok" or "error"
	Value     value.Value
	Error     string
}

// SendAgentRequest is EventApi.send_agent_request.
func (s *System) SendAgentRequest(ctx context.Context, agent, requestType string, params map[string]value.Value, timeout time.Duration) AgentRequestEnvelope {
	v, err := s.requests.Request(ctx, "control-plane", agent, requestType, params, timeout)
	if err != nil {
		return AgentRequestEnvelope{Status: "error", Error: err.Error()}
	}
	return AgentRequestEnvelope{Status: "ok", Value: v}
}

// GetAgentState is StateApi.get_agent_state.
func (s *System) GetAgentState(name, key string) (value.Value, error) {
	rt, ok := s.registry.Get(name)
	if !ok {
		return value.Value{}, kaireierr.New(kaireierr.KindAgent, "get_agent_state", "unknown agent "+name)
	}
	st := rt.State()
	if st == nil {
		return value.Value{}, kaireierr.New(kaireierr.KindAgent, "get_agent_state", "agent state not initialised")
	}
	return st.Get([]string{"self", key})
}
