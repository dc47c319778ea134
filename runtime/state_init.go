package runtime

import (
	"context"

	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/eval"
	"github.com/kairei-project/kairei/value"
)

// buildInitialState evaluates each declared state variable's initial-value
// expression in declaration order, so a later variable may reference an
// earlier one that is already materialised.
func buildInitialState(ctx context.Context, def *ast.StateDef, interp *eval.Interpreter, agentName string) (*eval.State, error) {
	state := eval.NewState(nil)
	if def == nil {
		return state, nil
	}
	ec := eval.NewExecutionContext(interp, state, agentName, "onInit", nil)
	for _, name := range def.Order {
		sv := def.Variables[name]
		v := value.Null()
		if sv.InitialValue != nil {
			val, err := ec.EvalExpr(ctx, sv.InitialValue)
			if err != nil {
				return nil, err
			}
			v = val
		}
		if err := state.Set([]string{"self", name}, v); err != nil {
			return nil, err
		}
	}
	return state, nil
}
