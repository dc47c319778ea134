package typecheck

import (
	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/kaireierr"
)

// Builtin simple types, always resolvable without a registry lookup.
var (
	TypeInt      = ast.SimpleType{Name: "Int"}
	TypeFloat    = ast.SimpleType{Name: "Float"}
	TypeString   = ast.SimpleType{Name: "String"}
	TypeBoolean  = ast.SimpleType{Name: "Boolean"}
	TypeDuration = ast.SimpleType{Name: "Duration"}
	TypeUnit     = ast.SimpleType{Name: "Unit"}
	TypeError    = ast.SimpleType{Name: "Error"}
)

var builtins = map[string]ast.TypeInfo{
	"Int":      TypeInt,
	"Float":    TypeFloat,
	"String":   TypeString,
	"Boolean":  TypeBoolean,
	"Duration": TypeDuration,
	"Unit":     TypeUnit,
	"Error":    TypeError,
}

// Hook lets a provider plugin observe and rewrite the AST during checking
// (§4.5 "Plugin hooks"). Returning a non-nil error from an After hook is
// reported as PluginTypeError and folded into the collector like any other
// finding; it does not panic the traversal.
type Hook interface {
	BeforeExpression(expr ast.Expression) error
	AfterExpression(expr ast.Expression, inferred ast.TypeInfo) error
	BeforeStatement(stmt ast.Statement) error
	AfterStatement(stmt ast.Statement) error
}

// NoopHook is the zero-effort Hook, embedded by plugins that only care about
// one of the four callbacks.
type NoopHook struct{}

func (NoopHook) BeforeExpression(ast.Expression) error               { return nil }
func (NoopHook) AfterExpression(ast.Expression, ast.TypeInfo) error   { return nil }
func (NoopHook) BeforeStatement(ast.Statement) error                 { return nil }
func (NoopHook) AfterStatement(ast.Statement) error                  { return nil }

// Checker is a visitor with a stack of scopes (§4.5). One Checker instance
// checks one Root; create a fresh one per compilation.
type Checker struct {
	scope      *Scope
	registry   map[string]ast.TypeInfo
	hooks      []Hook
	coll       *collector
	answerSigs map[string]ast.TypeInfo

	agentName   string
	handlerName string
}

// NewChecker constructs a Checker seeded with the builtin simple types.
func NewChecker(hooks ...Hook) *Checker {
	reg := make(map[string]ast.TypeInfo, len(builtins))
	for k, v := range builtins {
		reg[k] = v
	}
	return &Checker{
		scope:      newScope(nil),
		registry:   reg,
		hooks:      hooks,
		coll:       &collector{},
		answerSigs: map[string]ast.TypeInfo{},
	}
}

// RegisterType adds a custom type (e.g. one surfaced by a provider plugin)
// to the checker's global type registry, ahead of checking a Root.
func (c *Checker) RegisterType(t ast.CustomType) {
	c.registry[t.Name] = t
}

func (c *Checker) enterScope() { c.scope = newScope(c.scope) }
func (c *Checker) leaveScope() {
	if c.scope.parent != nil {
		c.scope = c.scope.parent
	}
}

// checkpointScope snapshots the current scope chain's variable maps so a
// speculative check (e.g. trying one Think attribute interpretation before
// another) can roll back cleanly.
func (c *Checker) checkpointScope() *checkpoint {
	var snaps []map[string]ast.TypeInfo
	depth := 0
	for s := c.scope; s != nil; s = s.parent {
		cp := make(map[string]ast.TypeInfo, len(s.vars))
		for k, v := range s.vars {
			cp[k] = v
		}
		snaps = append(snaps, cp)
		depth++
	}
	return &checkpoint{depth: depth, snaps: snaps}
}

func (c *Checker) restoreScope(cp *checkpoint) {
	s := c.scope
	for _, snap := range cp.snaps {
		s.vars = snap
		if s.parent == nil {
			break
		}
		s = s.parent
	}
}

func (c *Checker) resolveType(t ast.TypeInfo) (ast.TypeInfo, bool) {
	switch tt := t.(type) {
	case ast.SimpleType:
		resolved, ok := c.registry[tt.Name]
		return resolved, ok
	case ast.ResultType:
		ok, _ := c.resolveType(tt.Ok)
		err, _ := c.resolveType(tt.Err)
		return ast.ResultType{Ok: ok, Err: err}, true
	case ast.OptionType:
		inner, ok := c.resolveType(tt.Inner)
		return ast.OptionType{Inner: inner}, ok
	case ast.ArrayType:
		inner, ok := c.resolveType(tt.Inner)
		return ast.ArrayType{Inner: inner}, ok
	case ast.CustomType:
		resolved, ok := c.registry[tt.Name]
		return resolved, ok
	default:
		return t, t != nil
	}
}

func (c *Checker) undefinedType(t ast.TypeInfo, where string) {
	c.coll.add(&CheckError{
		Kind:     UndefinedType,
		Found:    t.TypeName(),
		Location: where,
		Message:  "type " + t.TypeName() + " is not declared in this program",
	})
}

// CheckRoot type-checks every MicroAgentDef in root and returns the
// aggregated error (nil, a single *CheckError, or *Multiple). SistenceAgent
// definitions are always rejected: the subsystem they belong to is out of
// scope (§9 Open Question b).
func (c *Checker) CheckRoot(root *ast.Root) error {
	for _, sa := range root.SistenceAgentDefs {
		c.coll.add(&CheckError{
			Kind:     InvalidHandlerSignature,
			Location: sa.Name,
			Message:  kaireierr.ErrSistenceUnsupported.Error(),
			Critical: true,
		})
	}
	for _, agent := range root.MicroAgentDefs {
		if agent.Answer == nil {
			continue
		}
		for _, h := range agent.Answer.Handlers {
			if h.ReturnType != nil {
				c.answerSigs[agent.Name+"."+h.EventName] = h.ReturnType
			}
		}
	}

	for _, agent := range root.MicroAgentDefs {
		c.checkAgent(agent)
		if c.coll.done() {
			break
		}
	}
	return c.coll.result()
}

func (c *Checker) checkAgent(agent *ast.MicroAgentDef) {
	c.agentName = agent.Name
	defer func() { c.agentName = "" }()

	if agent.State != nil {
		c.enterScope()
		for _, name := range agent.State.Order {
			sv := agent.State.Variables[name]
			c.checkStateVariable(sv)
			c.scope.define(name, sv.Type)
		}
	}

	if agent.Lifecycle != nil {
		if agent.Lifecycle.OnInit != nil {
			c.checkHandlerBlock("onInit", nil, nil, agent.Lifecycle.OnInit)
		}
		if agent.Lifecycle.OnDestroy != nil {
			c.checkHandlerBlock("onDestroy", nil, nil, agent.Lifecycle.OnDestroy)
		}
	}
	if agent.Observe != nil {
		for _, h := range agent.Observe.Handlers {
			c.checkHandler(h)
		}
	}
	if agent.Answer != nil {
		for _, h := range agent.Answer.Handlers {
			c.checkHandler(h)
		}
	}
	if agent.React != nil {
		for _, h := range agent.React.Handlers {
			c.checkHandler(h)
		}
	}

	if agent.State != nil {
		c.leaveScope()
	}
}

func (c *Checker) checkStateVariable(sv *ast.StateVariable) {
	resolved, ok := c.resolveType(sv.Type)
	if !ok {
		c.undefinedType(sv.Type, c.agentName+"/state/"+sv.Name)
		return
	}
	if sv.InitialValue == nil {
		return
	}
	got := c.checkExpr(sv.InitialValue)
	if got != nil && !assignable(resolved, got) {
		c.coll.add(&CheckError{
			Kind:     TypeMismatch,
			Expected: resolved.TypeName(),
			Found:    got.TypeName(),
			Location: c.agentName + "/state/" + sv.Name,
		})
	}
}

// checkHandler validates a HandlerDef's signature and body (§4.5
// "Return-type checking", "Scope isolation"): a request handler's
// declared params are valid types and its return type unifies with every
// Ok/Err/Think/Request appearing in an outermost ReturnStmt.
func (c *Checker) checkHandler(h *ast.HandlerDef) {
	c.handlerName = h.EventName
	defer func() { c.handlerName = "" }()

	for _, p := range h.Parameters {
		if _, ok := c.resolveType(p.Type); !ok {
			c.undefinedType(p.Type, c.loc())
		}
	}
	if h.IsRequest && h.ReturnType == nil {
		c.coll.add(&CheckError{
			Kind:     InvalidHandlerSignature,
			Location: c.loc(),
			Message:  "request handler must declare a return type",
			Critical: true,
		})
		return
	}
	if h.ReturnType != nil {
		if _, ok := c.resolveType(h.ReturnType); !ok {
			c.undefinedType(h.ReturnType, c.loc())
		}
	}
	c.checkHandlerBlock(h.EventName, h.Parameters, h.ReturnType, h.Block)
}

func (c *Checker) checkHandlerBlock(name string, params []*ast.Parameter, ret ast.TypeInfo, block *ast.HandlerBlock) {
	c.enterScope()
	defer c.leaveScope()
	for _, p := range params {
		c.scope.define(p.Name, p.Type)
	}
	for _, stmt := range block.Statements {
		c.checkStmt(stmt, ret)
		if c.coll.done() {
			return
		}
	}
}

func (c *Checker) loc() string {
	if c.handlerName != "" {
		return c.agentName + "/" + c.handlerName
	}
	return c.agentName
}

// assignable reports whether a value of type `got` may be stored where
// `want` is expected. Exact name match, or Int widening into a Float slot
// (§4.5 numeric promotion extends naturally to assignment).
func assignable(want, got ast.TypeInfo) bool {
	if want == nil || got == nil {
		return true
	}
	if want.TypeName() == got.TypeName() {
		return true
	}
	if want.TypeName() == "Float" && got.TypeName() == "Int" {
		return true
	}
	return false
}
