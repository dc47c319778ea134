package eval

import "github.com/kairei-project/kairei/value"

// scope is a local-variable binding frame (§4.5/§4.9 "Scope isolation"):
// variables bound inside a handler, block, or branch don't leak to
// siblings.
type scope struct {
	parent *scope
	vars   map[string]value.Value
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: map[string]value.Value{}}
}

func (s *scope) define(name string, v value.Value) {
	s.vars[name] = v
}

// assign writes to the nearest scope that already binds name, falling back
// to defining it in the current scope (the grammar has no `let`, so the
// first assignment to a bare name is its declaration).
func (s *scope) assign(name string, v value.Value) {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.vars[name]; ok {
			sc.vars[name] = v
			return
		}
	}
	s.vars[name] = v
}

func (s *scope) lookup(name string) (value.Value, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}
