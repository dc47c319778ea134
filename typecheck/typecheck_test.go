package typecheck_test

import (
	"testing"

	"github.com/kairei-project/kairei/parser"
	"github.com/kairei-project/kairei/typecheck"
	"github.com/stretchr/testify/require"
)

func TestCheckCounterAgentOK(t *testing.T) {
	root, err := parser.ParseSource(`
micro Counter {
  state { count: Int = 0 }
  observe { on Tick() { self.count = self.count + 1 } }
  answer { on request GetCount() -> Result<Int,Error> { return Ok(self.count) } }
}
`)
	require.NoError(t, err)

	c := typecheck.NewChecker()
	require.NoError(t, c.CheckRoot(root))
}

func TestCheckBinaryOpPromotesToFloat(t *testing.T) {
	root, err := parser.ParseSource(`
micro Math {
  state { total: Float = 0.0 }
  observe { on Tick() { self.total = self.total + 1 } }
}
`)
	require.NoError(t, err)
	c := typecheck.NewChecker()
	require.NoError(t, c.CheckRoot(root))
}

func TestCheckBooleanMismatchIsReported(t *testing.T) {
	root, err := parser.ParseSource(`
micro Guard {
  state { count: Int = 0 }
  observe { on Tick() { if self.count { self.count = 1 } } }
}
`)
	require.NoError(t, err)
	c := typecheck.NewChecker()
	err = c.CheckRoot(root)
	require.Error(t, err)
	ce, ok := err.(*typecheck.CheckError)
	require.True(t, ok)
	require.Equal(t, typecheck.TypeMismatch, ce.Kind)
}

func TestCheckUndefinedVariableIsReported(t *testing.T) {
	root, err := parser.ParseSource(`
micro Broken {
  answer { on request Ping() -> Result<Int,Error> { return Ok(missingVar) } }
}
`)
	require.NoError(t, err)
	c := typecheck.NewChecker()
	err = c.CheckRoot(root)
	require.Error(t, err)
}

func TestCheckEmptyThinkBlockIsInvalid(t *testing.T) {
	root, err := parser.ParseSource(`
micro Thinker {
  answer { on request Ask() -> Result<String,Error> { return Ok(think()) } }
}
`)
	require.NoError(t, err)
	c := typecheck.NewChecker()
	err = c.CheckRoot(root)
	require.Error(t, err)
	ce, ok := err.(*typecheck.CheckError)
	require.True(t, ok)
	require.Equal(t, typecheck.InvalidThinkBlock, ce.Kind)
}

func TestCheckSistenceAgentRejected(t *testing.T) {
	root, err := parser.ParseSource(`
sistence LegacyAgent {
  anything goes here
}
`)
	require.NoError(t, err)
	c := typecheck.NewChecker()
	err = c.CheckRoot(root)
	require.Error(t, err)
}
