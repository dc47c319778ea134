package eval

import (
	"context"

	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/event"
	"github.com/kairei-project/kairei/kaireierr"
	"github.com/kairei-project/kairei/value"
)

// Control tells a block's caller what to do after a statement finishes.
type Control int

const (
	// ControlNormal means keep executing the next statement in the block.
	ControlNormal Control = iota
	// ControlReturn means a ReturnStmt fired; unwind to the handler caller
	// with StatementResult.Value as the handler's result.
	ControlReturn
)

// StatementResult is what executing one statement (or a whole block)
// produces: a value (meaningful only for expression statements and
// returns) and a control signal telling the caller whether to keep going.
type StatementResult struct {
	Value   value.Value
	Control Control
}

func normal(v value.Value) StatementResult { return StatementResult{Value: v, Control: ControlNormal} }

// ExecBlock runs stmts in order under ec, stopping early on the first
// ControlReturn.
func (ec *ExecutionContext) ExecBlock(ctx context.Context, stmts []ast.Statement) (StatementResult, error) {
	result := normal(value.Unit())
	for _, stmt := range stmts {
		r, err := ec.ExecStmt(ctx, stmt)
		if err != nil {
			return StatementResult{}, err
		}
		result = r
		if r.Control == ControlReturn {
			return result, nil
		}
	}
	return result, nil
}

// ExecStmt evaluates one statement, dispatching on its concrete type
// (§4.9 "Statement evaluator").
func (ec *ExecutionContext) ExecStmt(ctx context.Context, stmt ast.Statement) (StatementResult, error) {
	switch s := stmt.(type) {
	case *ast.AssignmentStmt:
		return ec.execAssignment(ctx, s)
	case *ast.ReturnStmt:
		return ec.execReturn(ctx, s)
	case *ast.IfStmt:
		return ec.execIf(ctx, s)
	case *ast.BlockStmt:
		child := ec.child()
		return child.ExecBlock(ctx, s.Statements)
	case *ast.ExpressionStmt:
		v, err := ec.EvalExpr(ctx, s.Expr)
		if err != nil {
			return StatementResult{}, err
		}
		return normal(v), nil
	case *ast.EmitStmt:
		return ec.execEmit(ctx, s)
	case *ast.WithErrorStmt:
		return ec.execWithError(ctx, s)
	default:
		return StatementResult{}, kaireierr.New(kaireierr.KindRuntime, "eval", "unsupported statement node")
	}
}

func (ec *ExecutionContext) execAssignment(ctx context.Context, s *ast.AssignmentStmt) (StatementResult, error) {
	v, err := ec.EvalExpr(ctx, s.Value)
	if err != nil {
		return StatementResult{}, err
	}
	switch target := s.Target.(type) {
	case *ast.Variable:
		ec.scope.assign(target.Name, v)
	case *ast.StateAccess:
		if err := ec.state.Set(target.Path, v); err != nil {
			return StatementResult{}, err
		}
	default:
		return StatementResult{}, kaireierr.New(kaireierr.KindRuntime, "eval", "assignment target must be a variable or state path")
	}
	return normal(v), nil
}

func (ec *ExecutionContext) execReturn(ctx context.Context, s *ast.ReturnStmt) (StatementResult, error) {
	if s.Value == nil {
		return StatementResult{Value: value.Unit(), Control: ControlReturn}, nil
	}
	v, err := ec.EvalExpr(ctx, s.Value)
	if err != nil {
		return StatementResult{}, err
	}
	return StatementResult{Value: v, Control: ControlReturn}, nil
}

func (ec *ExecutionContext) execIf(ctx context.Context, s *ast.IfStmt) (StatementResult, error) {
	cond, err := ec.EvalExpr(ctx, s.Condition)
	if err != nil {
		return StatementResult{}, err
	}
	b, ok := cond.Bool()
	if !ok {
		return StatementResult{}, typeErr("Boolean if-condition")
	}
	if b {
		child := ec.child()
		return child.ExecBlock(ctx, s.Then.Statements)
	}
	if s.Else != nil {
		child := ec.child()
		return child.ExecBlock(ctx, s.Else.Statements)
	}
	return normal(value.Unit()), nil
}

func (ec *ExecutionContext) execEmit(ctx context.Context, s *ast.EmitStmt) (StatementResult, error) {
	params := map[string]value.Value{}
	for k, expr := range s.Parameters {
		v, err := ec.EvalExpr(ctx, expr)
		if err != nil {
			return StatementResult{}, err
		}
		params[k] = v
	}
	if ec.interp.Bus != nil {
		ec.interp.Bus.Publish(event.New(event.Custom(s.EventName), params))
	}
	return normal(value.Unit()), nil
}

// execWithError runs Body, and on failure binds the error to Binding and
// runs Handler under a child scope (§4.4/§4.9 WithError/onFail). Control
// decides whether the enclosing block keeps going (ControlContinue, the
// default per the grammar's Open Question) or the error propagates further
// (ControlReraise).
func (ec *ExecutionContext) execWithError(ctx context.Context, s *ast.WithErrorStmt) (StatementResult, error) {
	result, bodyErr := ec.ExecStmt(ctx, s.Body)
	if bodyErr == nil {
		return result, nil
	}

	handlerCtx := ec.child()
	if s.Binding != "" {
		handlerCtx.scope.define(s.Binding, value.OfError(bodyErr.Error()))
	}
	handlerResult, err := handlerCtx.ExecBlock(ctx, s.Handler)
	if err != nil {
		return StatementResult{}, err
	}
	if s.Control == ast.ControlReraise {
		return StatementResult{}, bodyErr
	}
	return handlerResult, nil
}
