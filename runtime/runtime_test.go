package runtime_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/event"
	"github.com/kairei-project/kairei/eval"
	"github.com/kairei-project/kairei/klog"
	"github.com/kairei-project/kairei/provider"
	"github.com/kairei-project/kairei/request"
	"github.com/kairei-project/kairei/runtime"
	"github.com/stretchr/testify/require"
)

func intLit(n int64) ast.Literal { return ast.Literal{Kind: ast.LitInt, IntValue: n} }

func counterDef() *ast.MicroAgentDef {
	return &ast.MicroAgentDef{
		Name: "Counter",
		State: &ast.StateDef{
			Order: []string{"count"},
			Variables: map[string]*ast.StateVariable{
				"count": {Name: "count", Type: ast.SimpleType{Name: "Int"}, InitialValue: intLit(0)},
			},
		},
		Observe: &ast.ObserveDef{Handlers: []*ast.HandlerDef{
			{
				EventName: "Tick",
				Block: &ast.HandlerBlock{Statements: []ast.Statement{
					&ast.AssignmentStmt{
						Target: &ast.StateAccess{Path: []string{"self", "count"}},
						Value: &ast.BinaryOp{
							Op:    "+",
							Left:  &ast.StateAccess{Path: []string{"self", "count"}},
							Right: intLit(1),
						},
					},
				}},
			},
		}},
		Answer: &ast.AnswerDef{Handlers: []*ast.HandlerDef{
			{
				EventName:  "GetCount",
				IsRequest:  true,
				ReturnType: ast.ResultType{Ok: ast.SimpleType{Name: "Int"}, Err: ast.SimpleType{Name: "Error"}},
				Block: &ast.HandlerBlock{Statements: []ast.Statement{
					&ast.ReturnStmt{Value: &ast.OkExpr{Inner: &ast.StateAccess{Path: []string{"self", "count"}}}},
				}},
			},
		}},
	}
}

func newTestRegistry() (*runtime.Registry, *event.Bus, *request.Manager) {
	log := klog.NewJSONLogger(io.Discard, klog.LevelInfo)
	bus := event.NewBus(16, log)
	reqMgr := request.NewManager(bus, log)
	interp := &eval.Interpreter{Providers: provider.NewRegistry(), Requests: reqMgr, Bus: bus}
	return runtime.NewRegistry(interp, bus, log), bus, reqMgr
}

// TestCounterAgentTickThenRequest runs the spec's canonical Counter agent
// scenario: three Tick events increment state, and a GetCount request
// returns Ok(3).
func TestCounterAgentTickThenRequest(t *testing.T) {
	registry, bus, reqMgr := newTestRegistry()
	ctx := context.Background()

	rt, err := registry.Spawn(ctx, "Counter", counterDef())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		bus.Publish(event.New(event.Tick(), nil))
	}

	require.Eventually(t, func() bool {
		v, err := rt.State().Get([]string{"self", "count"})
		if err != nil {
			return false
		}
		n, ok := v.Int()
		return ok && n == 3
	}, time.Second, 5*time.Millisecond)

	result, err := reqMgr.Request(ctx, "tester", "Counter", "GetCount", nil, 2*time.Second)
	require.NoError(t, err)

	m, ok := result.Map()
	require.True(t, ok)
	n, ok := m["ok"].Int()
	require.True(t, ok)
	require.Equal(t, int64(3), n)

	require.NoError(t, registry.StopAll(ctx))
}

// TestScaleUpAndScaleDown checks instance naming and oldest-first teardown.
func TestScaleUpAndScaleDown(t *testing.T) {
	registry, _, _ := newTestRegistry()
	ctx := context.Background()

	registry.RegisterTemplate(counterDef())
	names, err := registry.ScaleUp(ctx, "Counter", 3)
	require.NoError(t, err)
	require.Len(t, names, 3)
	for _, n := range names {
		require.Contains(t, n, "Counter-")
	}

	require.NoError(t, registry.ScaleDown(ctx, "Counter", 2))
	require.Len(t, registry.Names(), 1)
}
