package eval_test

import (
	"context"
	"io"
	"testing"

	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/eval"
	"github.com/kairei-project/kairei/event"
	"github.com/kairei-project/kairei/klog"
	"github.com/kairei-project/kairei/provider"
	"github.com/kairei-project/kairei/request"
	"github.com/kairei-project/kairei/value"
	"github.com/stretchr/testify/require"
)

func testInterpreter() *eval.Interpreter {
	log := klog.NewJSONLogger(io.Discard, klog.LevelInfo)
	bus := event.NewBus(16, log)
	return &eval.Interpreter{
		Providers: provider.NewRegistry(),
		Requests:  request.NewManager(bus, log),
		Bus:       bus,
	}
}

func intLit(n int64) ast.Literal { return ast.Literal{Kind: ast.LitInt, IntValue: n} }

// TestIncrementHandlerUpdatesState runs a handler body equivalent to
// `self.count = self.count + 1; return self.count` and checks state mutates
// and the return value comes back correctly.
func TestIncrementHandlerUpdatesState(t *testing.T) {
	interp := testInterpreter()
	state := eval.NewState(map[string]value.Value{"count": value.OfInt(1)})
	ec := eval.NewExecutionContext(interp, state, "Counter", "Increment", nil)

	block := []ast.Statement{
		&ast.AssignmentStmt{
			Target: &ast.StateAccess{Path: []string{"self", "count"}},
			Value: &ast.BinaryOp{
				Op:    "+",
				Left:  &ast.StateAccess{Path: []string{"self", "count"}},
				Right: intLit(1),
			},
		},
		&ast.ReturnStmt{Value: &ast.StateAccess{Path: []string{"self", "count"}}},
	}

	result, err := ec.ExecBlock(context.Background(), block)
	require.NoError(t, err)
	require.Equal(t, eval.ControlReturn, result.Control)
	n, ok := result.Value.Int()
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	stored, err := state.Get([]string{"self", "count"})
	require.NoError(t, err)
	sn, _ := stored.Int()
	require.Equal(t, int64(2), sn)
}

// TestIfStmtBranchesAndScopesVariables checks local variable scoping: a
// variable assigned inside a then-branch does not leak to the parent scope.
func TestIfStmtBranchesAndScopesVariables(t *testing.T) {
	interp := testInterpreter()
	state := eval.NewState(map[string]value.Value{"flag": value.OfBool(true)})
	ec := eval.NewExecutionContext(interp, state, "Gate", "Check", nil)

	block := []ast.Statement{
		&ast.IfStmt{
			Condition: &ast.StateAccess{Path: []string{"self", "flag"}},
			Then: &ast.BlockStmt{Statements: []ast.Statement{
				&ast.AssignmentStmt{Target: &ast.Variable{Name: "inner"}, Value: intLit(42)},
				&ast.ReturnStmt{Value: &ast.Variable{Name: "inner"}},
			}},
		},
	}

	result, err := ec.ExecBlock(context.Background(), block)
	require.NoError(t, err)
	require.Equal(t, eval.ControlReturn, result.Control)
	n, _ := result.Value.Int()
	require.Equal(t, int64(42), n)

	_, err = ec.EvalExpr(context.Background(), &ast.Variable{Name: "inner"})
	require.Error(t, err)
}

// TestWithErrorOnFailContinuesByDefault checks that a failing body runs the
// onFail handler, binds the error, and the enclosing block keeps going
// (§9 Open Question default: ControlContinue).
func TestWithErrorOnFailContinuesByDefault(t *testing.T) {
	interp := testInterpreter()
	state := eval.NewState(map[string]value.Value{"recovered": value.OfBool(false)})
	ec := eval.NewExecutionContext(interp, state, "Resilient", "Handle", nil)

	failingBody := &ast.ExpressionStmt{
		Expr: &ast.Think{Args: nil},
	}

	stmt := &ast.WithErrorStmt{
		Body:    failingBody,
		Binding: "err",
		Handler: []ast.Statement{
			&ast.AssignmentStmt{
				Target: &ast.StateAccess{Path: []string{"self", "recovered"}},
				Value:  ast.Literal{Kind: ast.LitBool, BoolValue: true},
			},
		},
		Control: ast.ControlContinue,
	}

	_, err := ec.ExecStmt(context.Background(), stmt)
	require.NoError(t, err)

	recovered, err := state.Get([]string{"self", "recovered"})
	require.NoError(t, err)
	b, _ := recovered.Bool()
	require.True(t, b)
}

// TestWithErrorOnFailReraisePropagates checks ControlReraise surfaces the
// original error to the caller after the onFail handler runs.
func TestWithErrorOnFailReraisePropagates(t *testing.T) {
	interp := testInterpreter()
	state := eval.NewState(nil)
	ec := eval.NewExecutionContext(interp, state, "Resilient", "Handle", nil)

	stmt := &ast.WithErrorStmt{
		Body:    &ast.ExpressionStmt{Expr: &ast.Think{Args: nil}},
		Binding: "err",
		Handler: nil,
		Control: ast.ControlReraise,
	}

	_, err := ec.ExecStmt(context.Background(), stmt)
	require.Error(t, err)
}

// TestThinkDispatchesThroughProviderRegistry exercises evalThink end-to-end
// against a registered SimpleExpertBackend provider.
func TestThinkDispatchesThroughProviderRegistry(t *testing.T) {
	interp := testInterpreter()
	backend := provider.NewSimpleExpertBackend("default", map[string]string{"hello": "hi there"})
	p := provider.NewProvider("default", provider.NewCapabilities(provider.CapGeneralPrompt), backend)
	require.NoError(t, p.AttachPlugin(provider.GeneralPromptPlugin{}))
	require.NoError(t, interp.Providers.Register(p))

	state := eval.NewState(nil)
	ec := eval.NewExecutionContext(interp, state, "Greeter", "Greet", nil)

	think := &ast.Think{Args: []ast.Expression{ast.Literal{Kind: ast.LitString, StringValue: "hello"}}}
	v, err := ec.EvalExpr(context.Background(), think)
	require.NoError(t, err)
	s, ok := v.String()
	require.True(t, ok)
	require.Equal(t, "hi there", s)
}
