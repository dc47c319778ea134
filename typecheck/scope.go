// Package typecheck implements the KAIREI type checker (§4.5): a scoped
// visitor over the AST that infers and validates types before the evaluator
// ever runs.
package typecheck

import "github.com/kairei-project/kairei/ast"

// Scope maps names to their declared/inferred type within one lexical
// region (a handler body, a block, a then/else branch). Lookups walk the
// parent chain; writes always land in the innermost scope.
type Scope struct {
	parent *Scope
	vars   map[string]ast.TypeInfo
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: map[string]ast.TypeInfo{}}
}

func (s *Scope) define(name string, t ast.TypeInfo) {
	s.vars[name] = t
}

func (s *Scope) lookup(name string) (ast.TypeInfo, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if t, ok := sc.vars[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// checkpoint captures enough of the scope stack to restore it verbatim,
// letting a plugin hook snapshot state before a speculative check and roll
// back if that check fails.
type checkpoint struct {
	depth int
	snaps []map[string]ast.TypeInfo
}
