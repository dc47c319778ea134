// Package ast defines the KAIREI abstract syntax tree (§3): the typed tree
// produced by the parser and consumed by the type checker and evaluator.
package ast

import "github.com/kairei-project/kairei/token"

// Root is the top-level parse result of one source file / DSL document.
type Root struct {
	World           *WorldDef
	MicroAgentDefs  []*MicroAgentDef
	SistenceAgentDefs []*SistenceAgentDef
}

// WorldDef carries world-scope policy text injected into every think{} by
// the policy plugin (§4.10, Policy glossary entry).
type WorldDef struct {
	Name     string
	Policies []string
	Span     token.Span
}

// MicroAgentDef is one `micro Name { ... }` declaration.
type MicroAgentDef struct {
	Name      string
	Policies  []string
	Lifecycle *LifecycleDef
	State     *StateDef
	Observe   *ObserveDef
	Answer    *AnswerDef
	React     *ReactDef
	Span      token.Span
}

// SistenceAgentDef is parsed but always rejected by the type checker: the
// SistenceAgent subsystem is out of scope (§9 Open Question b).
type SistenceAgentDef struct {
	Name string
	Span token.Span
}

// StateDef declares an agent's mutable variables.
type StateDef struct {
	Variables map[string]*StateVariable
	Order     []string // declaration order, for deterministic iteration/output
	Span      token.Span
}

// StateVariable is one `name: Type [= expr]` declaration.
type StateVariable struct {
	Name         string
	Type         TypeInfo
	InitialValue Expression // nil if no default
	Span         token.Span
}

// LifecycleDef groups onInit/onDestroy hooks.
type LifecycleDef struct {
	OnInit    *HandlerBlock
	OnDestroy *HandlerBlock
	Span      token.Span
}

// ObserveDef groups `on Event(params) { ... }` handlers reacting to system
// events without producing a reply.
type ObserveDef struct {
	Handlers []*HandlerDef
	Span     token.Span
}

// AnswerDef groups request/response handlers.
type AnswerDef struct {
	Handlers []*HandlerDef
	Span     token.Span
}

// ReactDef groups handlers responding to agent-to-agent notifications.
type ReactDef struct {
	Handlers []*HandlerDef
	Span     token.Span
}

// HandlerDef is one `on <EventOrRequest>(<params>) [-> ReturnType] [with {...}] { block }`.
type HandlerDef struct {
	EventName  string
	IsRequest  bool // true for `answer`'s `on request X(...)`
	Parameters []*Parameter
	ReturnType TypeInfo // nil unless IsRequest
	With       map[string]Literal
	Block      *HandlerBlock
	Span       token.Span
}

// Parameter is one handler parameter.
type Parameter struct {
	Name string
	Type TypeInfo
}

// HandlerBlock is an ordered list of statements making up a handler body.
type HandlerBlock struct {
	Statements []Statement
	Span       token.Span
}

// ---- Statements ----

// Statement is implemented by every statement node.
type Statement interface {
	StmtSpan() token.Span
	stmtNode()
}

type AssignmentStmt struct {
	Target Expression // Variable or StateAccess
	Value  Expression
	Span   token.Span
}

func (s *AssignmentStmt) StmtSpan() token.Span { return s.Span }
func (*AssignmentStmt) stmtNode()              {}

type ReturnStmt struct {
	Value Expression // nil for bare `return`
	Span  token.Span
}

func (s *ReturnStmt) StmtSpan() token.Span { return s.Span }
func (*ReturnStmt) stmtNode()              {}

type IfStmt struct {
	Condition Expression
	Then      *BlockStmt
	Else      *BlockStmt // nil if no else; may itself wrap a single IfStmt for else-if
	Span      token.Span
}

func (s *IfStmt) StmtSpan() token.Span { return s.Span }
func (*IfStmt) stmtNode()              {}

type BlockStmt struct {
	Statements []Statement
	Span       token.Span
}

func (s *BlockStmt) StmtSpan() token.Span { return s.Span }
func (*BlockStmt) stmtNode()              {}

type ExpressionStmt struct {
	Expr Expression
	Span token.Span
}

func (s *ExpressionStmt) StmtSpan() token.Span { return s.Span }
func (*ExpressionStmt) stmtNode()              {}

// EmitStmt is `emit <EventName>(args...)`: publishes a Custom event carrying
// the evaluated args as named parameters (in declaration order, named
// arg0, arg1, ... unless the DSL author used named form `key: expr`).
type EmitStmt struct {
	EventName  string
	Parameters map[string]Expression
	Span       token.Span
}

func (s *EmitStmt) StmtSpan() token.Span { return s.Span }
func (*EmitStmt) stmtNode()              {}

// WithErrorStmt is `with <body> onFail (err) { statements }`. The parser
// has no syntax for Control and always sets ControlContinue.
type WithErrorStmt struct {
	Body    Statement
	Binding string // name bound to the error inside Handler; "" if none
	Handler []Statement
	Control ControlKind // what to do after the onFail block runs
	Span    token.Span
}

func (s *WithErrorStmt) StmtSpan() token.Span { return s.Span }
func (*WithErrorStmt) stmtNode()              {}

// ControlKind decides what happens after an onFail handler block finishes
// (§9 Open Question c: default is ControlContinue).
type ControlKind int

const (
	ControlContinue ControlKind = iota
	ControlReraise
)

// ---- Expressions ----

type Expression interface {
	ExprSpan() token.Span
	exprNode()
}

type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitFloat
	LitString
	LitBool
	LitDuration
)

// Literal is a literal expression/value. Interpolated strings keep their
// StringParts so the evaluator can re-evaluate embedded expressions.
type Literal struct {
	Kind        LiteralKind
	IntValue    int64
	FloatValue  float64
	StringValue string
	BoolValue   bool
	DurationRaw string
	StringParts []StringPart // only for Kind == LitString with interpolation
	Span        token.Span
}

func (l Literal) ExprSpan() token.Span { return l.Span }
func (Literal) exprNode()              {}

// StringPart mirrors token.StringPart but with the embedded expression
// already parsed rather than left as raw text.
type StringPart struct {
	IsExpression bool
	Text         string     // literal run
	Expr         Expression // parsed embedded expression, if IsExpression
}

type Variable struct {
	Name string
	Span token.Span
}

func (v *Variable) ExprSpan() token.Span { return v.Span }
func (*Variable) exprNode()              {}

// StateAccess is `self.a.b.c` — §3 requires every prefix to resolve to a
// known type in the scope chain.
type StateAccess struct {
	Path []string
	Span token.Span
}

func (s *StateAccess) ExprSpan() token.Span { return s.Span }
func (*StateAccess) exprNode()              {}

type BinaryOp struct {
	Op    string
	Left  Expression
	Right Expression
	Span  token.Span
}

func (b *BinaryOp) ExprSpan() token.Span { return b.Span }
func (*BinaryOp) exprNode()              {}

type UnaryOp struct {
	Op      string
	Operand Expression
	Span    token.Span
}

func (u *UnaryOp) ExprSpan() token.Span { return u.Span }
func (*UnaryOp) exprNode()              {}

// Think is a `think { args... } [with {...}]` expression invoking a
// provider.
type Think struct {
	Args []Expression
	With map[string]Literal
	Span token.Span
}

func (t *Think) ExprSpan() token.Span { return t.Span }
func (*Think) exprNode()              {}

// Request is `request Agent.RequestType(params) [with {...}]`.
type Request struct {
	Agent       string
	RequestType string
	Parameters  map[string]Expression
	With        map[string]Literal
	Span        token.Span
}

func (r *Request) ExprSpan() token.Span { return r.Span }
func (*Request) exprNode()              {}

type OkExpr struct {
	Inner Expression
	Span  token.Span
}

func (o *OkExpr) ExprSpan() token.Span { return o.Span }
func (*OkExpr) exprNode()              {}

type ErrExpr struct {
	Inner Expression
	Span  token.Span
}

func (e *ErrExpr) ExprSpan() token.Span { return e.Span }
func (*ErrExpr) exprNode()              {}

type FunctionCall struct {
	Name string
	Args []Expression
	Span token.Span
}

func (f *FunctionCall) ExprSpan() token.Span { return f.Span }
func (*FunctionCall) exprNode()              {}

// Await marks an expression whose evaluation suspends at a bus/request
// boundary (§5); Think and Request are implicitly awaited, Await wraps a
// FunctionCall or another suspending expression explicitly in source.
type Await struct {
	Inner Expression
	Span  token.Span
}

func (a *Await) ExprSpan() token.Span { return a.Span }
func (*Await) exprNode()              {}

// ---- Types ----

type TypeInfo interface {
	TypeName() string
	typeInfoNode()
}

type SimpleType struct {
	Name string
}

func (s SimpleType) TypeName() string { return s.Name }
func (SimpleType) typeInfoNode()      {}

type ResultType struct {
	Ok  TypeInfo
	Err TypeInfo
}

func (r ResultType) TypeName() string {
	ok, err := "?", "?"
	if r.Ok != nil {
		ok = r.Ok.TypeName()
	}
	if r.Err != nil {
		err = r.Err.TypeName()
	}
	return "Result<" + ok + "," + err + ">"
}
func (ResultType) typeInfoNode()      {}

type OptionType struct {
	Inner TypeInfo
}

func (o OptionType) TypeName() string { return "Option<" + o.Inner.TypeName() + ">" }
func (OptionType) typeInfoNode()      {}

type ArrayType struct {
	Inner TypeInfo
}

func (a ArrayType) TypeName() string { return "Array<" + a.Inner.TypeName() + ">" }
func (ArrayType) typeInfoNode()      {}

type FieldInfo struct {
	Name string
	Type TypeInfo
}

type CustomType struct {
	Name   string
	Fields map[string]FieldInfo
}

func (c CustomType) TypeName() string { return c.Name }
func (CustomType) typeInfoNode()      {}
