// Package eval implements the KAIREI statement and expression evaluators
// (§4.9): the tree-walking interpreter that runs a handler body over the
// typed Value model, dispatching Think/Request expressions and threading
// WithError/onFail control flow.
package eval

import (
	"sync"

	"github.com/kairei-project/kairei/kaireierr"
	"github.com/kairei-project/kairei/value"
)

// State is one agent's mutable `state { ... }` block: a flat map of
// top-level variables, each of which may itself be a nested Map that
// StateAccess paths longer than `self.x` descend into.
type State struct {
	mu   sync.RWMutex
	vars map[string]value.Value
}

func NewState(initial map[string]value.Value) *State {
	cp := make(map[string]value.Value, len(initial))
	for k, v := range initial {
		cp[k] = v
	}
	return &State{vars: cp}
}

// Get resolves a StateAccess path (e.g. ["self","count"] or
// ["self","profile","name"]); path[0] is always "self" and is skipped.
func (s *State) Get(path []string) (value.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(path) < 2 {
		return value.Value{}, kaireierr.Wrap(kaireierr.KindRuntime, "state.get", kaireierr.ErrStateNotFound)
	}
	top, ok := s.vars[path[1]]
	if !ok {
		return value.Value{}, kaireierr.Wrap(kaireierr.KindRuntime, "state.get", kaireierr.ErrStateNotFound).
			WithLocation(kaireierr.Location{HandlerName: path[1]})
	}
	return descend(top, path[2:])
}

func descend(v value.Value, rest []string) (value.Value, error) {
	if len(rest) == 0 {
		return v, nil
	}
	m, ok := v.Map()
	if !ok {
		return value.Value{}, kaireierr.New(kaireierr.KindRuntime, "state.get", "path segment "+rest[0]+" is not a map")
	}
	next, ok := m[rest[0]]
	if !ok {
		return value.Value{}, kaireierr.Wrap(kaireierr.KindRuntime, "state.get", kaireierr.ErrStateNotFound).
			WithLocation(kaireierr.Location{HandlerName: rest[0]})
	}
	return descend(next, rest[1:])
}

// Set writes v at path, rebuilding any intermediate Maps immutably (§3
// "Value" keeps Map/List construction defensive-copy based).
func (s *State) Set(path []string, v value.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(path) < 2 {
		return kaireierr.New(kaireierr.KindRuntime, "state.set", "empty state path")
	}
	if len(path) == 2 {
		s.vars[path[1]] = v
		return nil
	}
	top, ok := s.vars[path[1]]
	if !ok {
		return kaireierr.Wrap(kaireierr.KindRuntime, "state.set", kaireierr.ErrStateNotFound).
			WithLocation(kaireierr.Location{HandlerName: path[1]})
	}
	rebuilt, err := setNested(top, path[2:], v)
	if err != nil {
		return err
	}
	s.vars[path[1]] = rebuilt
	return nil
}

func setNested(base value.Value, rest []string, v value.Value) (value.Value, error) {
	if len(rest) == 0 {
		return v, nil
	}
	m, ok := base.Map()
	if !ok {
		m = map[string]value.Value{}
	}
	child, err := setNested(m[rest[0]], rest[1:], v)
	if err != nil {
		return value.Value{}, err
	}
	m[rest[0]] = child
	return value.OfMap(m), nil
}

// Snapshot returns a defensive copy of every state variable, e.g. for
// building a ProviderRequest.State.
func (s *State) Snapshot() map[string]value.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make(map[string]value.Value, len(s.vars))
	for k, v := range s.vars {
		cp[k] = v
	}
	return cp
}
