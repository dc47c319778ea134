package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/eval"
	"github.com/kairei-project/kairei/event"
	"github.com/kairei-project/kairei/kaireierr"
	"github.com/kairei-project/kairei/klog"
	"golang.org/x/sync/errgroup"
)

// instance pairs a running agent with the wall-clock time it was created,
// so scale-down can terminate the oldest instances first (§4.8).
type instance struct {
	runtime   *AgentRuntime
	createdAt time.Time
}

// Registry owns every live agent instance in the process and the template
// definitions scale-up spawns anonymous instances from.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]*instance
	templates map[string]*ast.MicroAgentDef

	interp *eval.Interpreter
	bus    *event.Bus
	log    klog.Logger
}

// NewRegistry builds an empty Registry wired to the shared evaluator
// dependencies and event bus every agent instance will use.
func NewRegistry(interp *eval.Interpreter, bus *event.Bus, log klog.Logger) *Registry {
	if log == nil {
		log = klog.NoOpLogger{}
	}
	return &Registry{
		instances: map[string]*instance{},
		templates: map[string]*ast.MicroAgentDef{},
		interp:    interp,
		bus:       bus,
		log:       log.WithComponent("agent-registry"),
	}
}

// RegisterTemplate makes def available as a scale-up template under its own
// name, in addition to spawning it directly via Spawn.
func (r *Registry) RegisterTemplate(def *ast.MicroAgentDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[def.Name] = def
}

// Spawn starts a new agent instance named exactly name (used for a
// document's single named `micro` declarations).
func (r *Registry) Spawn(ctx context.Context, name string, def *ast.MicroAgentDef) (*AgentRuntime, error) {
	rt := NewAgentRuntime(name, def, r.interp, r.bus, r.log)
	if err := rt.Start(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.instances[name] = &instance{runtime: rt, createdAt: time.Now()}
	r.mu.Unlock()
	return rt, nil
}

// Get returns the named running instance, if any.
func (r *Registry) Get(name string) (*AgentRuntime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	if !ok {
		return nil, false
	}
	return inst.runtime, true
}

// Names lists every live instance name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.instances))
	for n := range r.instances {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ScaleUp creates n anonymous instances of the named template, each named
// "<template>-<short-uuid>" (§4.8).
func (r *Registry) ScaleUp(ctx context.Context, template string, n int) ([]string, error) {
	r.mu.RLock()
	def, ok := r.templates[template]
	r.mu.RUnlock()
	if !ok {
		return nil, kaireierr.New(kaireierr.KindAgent, "scale_up", "unknown template "+template)
	}

	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s-%s", template, uuid.NewString()[:8])
		rt := NewAgentRuntime(name, def, r.interp, r.bus, r.log)
		if err := rt.Start(ctx); err != nil {
			return names, err
		}
		r.mu.Lock()
		r.instances[name] = &instance{runtime: rt, createdAt: time.Now()}
		r.mu.Unlock()
		names = append(names, name)
	}
	if r.interp.Metrics != nil && len(names) > 0 {
		r.interp.Metrics.Instruments().RecordScaleUp(ctx, template, len(names))
	}
	return names, nil
}

// ScaleDown stops n instances of the named template, oldest first (§4.8).
func (r *Registry) ScaleDown(ctx context.Context, template string, n int) error {
	r.mu.Lock()
	var candidates []*instance
	for name, inst := range r.instances {
		if templatePrefix(name) == template {
			candidates = append(candidates, inst)
		}
	}
	r.mu.Unlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].createdAt.Before(candidates[j].createdAt)
	})

	stopped := 0
	for _, inst := range candidates {
		if stopped >= n {
			break
		}
		if err := inst.runtime.Stop(ctx); err != nil {
			return err
		}
		r.mu.Lock()
		delete(r.instances, inst.runtime.Name())
		r.mu.Unlock()
		stopped++
	}
	if r.interp.Metrics != nil && stopped > 0 {
		r.interp.Metrics.Instruments().RecordScaleDown(ctx, template, stopped)
	}
	return nil
}

// templatePrefix strips the "-<short-uuid>" suffix scale-up appended.
func templatePrefix(instanceName string) string {
	for i := len(instanceName) - 1; i >= 0; i-- {
		if instanceName[i] == '-' {
			return instanceName[:i]
		}
	}
	return instanceName
}

// StopAll stops every live instance concurrently (shutdown path), so one
// agent's drain timeout doesn't serialise behind another's (§5).
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.RLock()
	insts := make([]*instance, 0, len(r.instances))
	for _, inst := range r.instances {
		insts = append(insts, inst)
	}
	r.mu.RUnlock()

	eg, egCtx := errgroup.WithContext(ctx)
	for _, inst := range insts {
		inst := inst
		eg.Go(func() error { return inst.runtime.Stop(egCtx) })
	}
	return eg.Wait()
}
