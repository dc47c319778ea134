package eval

import (
	"context"

	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/kaireierr"
	"github.com/kairei-project/kairei/parser"
	"github.com/kairei-project/kairei/value"
)

// EvalExpr evaluates expr under ec, dispatching Think/Request and applying
// the §4.5 binary-op promotion rules (§4.9 "Expression evaluator").
func (ec *ExecutionContext) EvalExpr(ctx context.Context, expr ast.Expression) (value.Value, error) {
	switch e := expr.(type) {
	case ast.Literal:
		return Literal(e, ec)
	case *ast.Variable:
		v, ok := ec.scope.lookup(e.Name)
		if !ok {
			return value.Value{}, kaireierr.Wrap(kaireierr.KindRuntime, "eval", kaireierr.ErrVariableNotFound).
				WithLocation(kaireierr.Location{AgentName: ec.AgentName, HandlerName: e.Name})
		}
		return v, nil
	case *ast.StateAccess:
		v, err := ec.state.Get(e.Path)
		if err != nil {
			return value.Value{}, err
		}
		return v, nil
	case *ast.BinaryOp:
		return ec.evalBinaryOp(ctx, e)
	case *ast.UnaryOp:
		return ec.evalUnaryOp(ctx, e)
	case *ast.Think:
		return ec.evalThink(ctx, e)
	case *ast.Request:
		return ec.evalRequest(ctx, e)
	case *ast.OkExpr:
		inner, err := ec.EvalExpr(ctx, e.Inner)
		if err != nil {
			return value.Value{}, err
		}
		return value.OfMap(map[string]value.Value{"ok": inner}), nil
	case *ast.ErrExpr:
		inner, err := ec.EvalExpr(ctx, e.Inner)
		if err != nil {
			return value.Value{}, err
		}
		return value.OfMap(map[string]value.Value{"err": inner}), nil
	case *ast.FunctionCall:
		return ec.evalFunctionCall(ctx, e)
	case *ast.Await:
		return ec.EvalExpr(ctx, e.Inner)
	default:
		return value.Value{}, kaireierr.New(kaireierr.KindRuntime, "eval", "unsupported expression node")
	}
}

// Literal converts an ast.Literal into a runtime Value, re-evaluating any
// interpolated expressions in a string literal.
func Literal(lit ast.Literal, ec *ExecutionContext) (value.Value, error) {
	switch lit.Kind {
	case ast.LitInt:
		return value.OfInt(lit.IntValue), nil
	case ast.LitFloat:
		return value.OfFloat(lit.FloatValue), nil
	case ast.LitBool:
		return value.OfBool(lit.BoolValue), nil
	case ast.LitDuration:
		d, err := parser.DurationFromRaw(lit.DurationRaw)
		if err != nil {
			return value.Value{}, kaireierr.Wrap(kaireierr.KindRuntime, "eval", err)
		}
		return value.OfDuration(d), nil
	case ast.LitString:
		if len(lit.StringParts) == 0 {
			return value.OfString(lit.StringValue), nil
		}
		out := ""
		for _, part := range lit.StringParts {
			if !part.IsExpression {
				out += part.Text
				continue
			}
			v, err := ec.EvalExpr(context.Background(), part.Expr)
			if err != nil {
				return value.Value{}, err
			}
			out += v.Display()
		}
		return value.OfString(out), nil
	default:
		return value.Value{}, kaireierr.New(kaireierr.KindRuntime, "eval", "unknown literal kind")
	}
}

func (ec *ExecutionContext) evalBinaryOp(ctx context.Context, b *ast.BinaryOp) (value.Value, error) {
	left, err := ec.EvalExpr(ctx, b.Left)
	if err != nil {
		return value.Value{}, err
	}
	right, err := ec.EvalExpr(ctx, b.Right)
	if err != nil {
		return value.Value{}, err
	}
	return applyBinaryOp(b.Op, left, right)
}

func applyBinaryOp(op string, left, right value.Value) (value.Value, error) {
	switch op {
	case "==":
		return value.OfBool(value.Equal(left, right)), nil
	case "!=":
		return value.OfBool(!value.Equal(left, right)), nil
	case "&&":
		lb, lok := left.Bool()
		rb, rok := right.Bool()
		if !lok || !rok {
			return value.Value{}, typeErr("Boolean && Boolean")
		}
		return value.OfBool(lb && rb), nil
	case "||":
		lb, lok := left.Bool()
		rb, rok := right.Bool()
		if !lok || !rok {
			return value.Value{}, typeErr("Boolean || Boolean")
		}
		return value.OfBool(lb || rb), nil
	case "<", "<=", ">", ">=":
		return compareNumeric(op, left, right)
	case "+":
		if ls, ok := left.String(); ok {
			return value.OfString(ls + right.Display()), nil
		}
		if rs, ok := right.String(); ok {
			return value.OfString(left.Display() + rs), nil
		}
		return arithmetic(op, left, right)
	case "-", "*", "/", "%":
		return arithmetic(op, left, right)
	default:
		return value.Value{}, kaireierr.New(kaireierr.KindRuntime, "eval", "unknown operator "+op)
	}
}

func typeErr(msg string) error {
	return kaireierr.Wrap(kaireierr.KindRuntime, "eval", kaireierr.ErrTypeMismatch).
		WithSuggestion("expected " + msg)
}

func numeric(v value.Value) (float64, bool, bool) {
	if i, ok := v.Int(); ok {
		return float64(i), true, true
	}
	if f, ok := v.Float(); ok {
		return f, false, true
	}
	return 0, false, false
}

func compareNumeric(op string, left, right value.Value) (value.Value, error) {
	lf, _, lok := numeric(left)
	rf, _, rok := numeric(right)
	if !lok || !rok {
		return value.Value{}, typeErr("numeric comparison")
	}
	switch op {
	case "<":
		return value.OfBool(lf < rf), nil
	case "<=":
		return value.OfBool(lf <= rf), nil
	case ">":
		return value.OfBool(lf > rf), nil
	case ">=":
		return value.OfBool(lf >= rf), nil
	default:
		return value.Value{}, kaireierr.New(kaireierr.KindRuntime, "eval", "unknown comparison "+op)
	}
}

func arithmetic(op string, left, right value.Value) (value.Value, error) {
	lf, lInt, lok := numeric(left)
	rf, rInt, rok := numeric(right)
	if !lok || !rok {
		return value.Value{}, typeErr("numeric arithmetic")
	}
	isFloat := !lInt || !rInt
	var result float64
	switch op {
	case "+":
		result = lf + rf
	case "-":
		result = lf - rf
	case "*":
		result = lf * rf
	case "/":
		if rf == 0 {
			return value.Value{}, kaireierr.New(kaireierr.KindRuntime, "eval", "division by zero")
		}
		result = lf / rf
		isFloat = true
	case "%":
		if !lInt || !rInt {
			return value.Value{}, typeErr("integer modulo")
		}
		li, _ := left.Int()
		ri, _ := right.Int()
		if ri == 0 {
			return value.Value{}, kaireierr.New(kaireierr.KindRuntime, "eval", "modulo by zero")
		}
		return value.OfInt(li % ri), nil
	}
	if isFloat {
		return value.OfFloat(result), nil
	}
	return value.OfInt(int64(result)), nil
}

func (ec *ExecutionContext) evalUnaryOp(ctx context.Context, u *ast.UnaryOp) (value.Value, error) {
	v, err := ec.EvalExpr(ctx, u.Operand)
	if err != nil {
		return value.Value{}, err
	}
	switch u.Op {
	case "!":
		b, ok := v.Bool()
		if !ok {
			return value.Value{}, typeErr("Boolean")
		}
		return value.OfBool(!b), nil
	case "-":
		if i, ok := v.Int(); ok {
			return value.OfInt(-i), nil
		}
		if f, ok := v.Float(); ok {
			return value.OfFloat(-f), nil
		}
		return value.Value{}, typeErr("numeric")
	default:
		return value.Value{}, kaireierr.New(kaireierr.KindRuntime, "eval", "unknown unary operator "+u.Op)
	}
}

func (ec *ExecutionContext) evalThink(ctx context.Context, t *ast.Think) (value.Value, error) {
	args := make([]value.Value, len(t.Args))
	for i, a := range t.Args {
		v, err := ec.EvalExpr(ctx, a)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}
	return ec.dispatchThink(ctx, args, t.With)
}

func (ec *ExecutionContext) evalRequest(ctx context.Context, r *ast.Request) (value.Value, error) {
	params := map[string]value.Value{}
	for k, expr := range r.Parameters {
		v, err := ec.EvalExpr(ctx, expr)
		if err != nil {
			return value.Value{}, err
		}
		params[k] = v
	}
	return ec.dispatchRequest(ctx, r.Agent, r.RequestType, params, r.With)
}

func (ec *ExecutionContext) evalFunctionCall(ctx context.Context, f *ast.FunctionCall) (value.Value, error) {
	args := make([]value.Value, len(f.Args))
	for i, a := range f.Args {
		v, err := ec.EvalExpr(ctx, a)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}
	fn, ok := builtins[f.Name]
	if !ok {
		return value.Value{}, kaireierr.New(kaireierr.KindRuntime, "eval", "undefined function "+f.Name)
	}
	return fn(args)
}

// builtins are the small set of free functions available inside a handler
// body; the grammar doesn't define user functions (§4.4), so this table is
// closed.
var builtins = map[string]func([]value.Value) (value.Value, error){
	"len": func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return value.Value{}, kaireierr.New(kaireierr.KindRuntime, "eval", "len takes exactly one argument")
		}
		if s, ok := args[0].String(); ok {
			return value.OfInt(int64(len(s))), nil
		}
		if l, ok := args[0].List(); ok {
			return value.OfInt(int64(len(l))), nil
		}
		if m, ok := args[0].Map(); ok {
			return value.OfInt(int64(len(m))), nil
		}
		return value.Value{}, typeErr("String, Array or Map")
	},
}
