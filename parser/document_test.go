package parser

import (
	"testing"

	"github.com/kairei-project/kairei/ast"
	"github.com/stretchr/testify/require"
)

const counterAgentSource = `
micro Counter {
  state { count: Int = 0 }
  observe { on Tick() { self.count = self.count + 1 } }
  answer { on request GetCount() -> Result<Int,Error> { return Ok(self.count) } }
}
`

func TestParseCounterAgent(t *testing.T) {
	root, err := ParseSource(counterAgentSource)
	require.NoError(t, err)
	require.Len(t, root.MicroAgentDefs, 1)

	agent := root.MicroAgentDefs[0]
	require.Equal(t, "Counter", agent.Name)
	require.NotNil(t, agent.State)
	require.Contains(t, agent.State.Variables, "count")

	require.NotNil(t, agent.Observe)
	require.Len(t, agent.Observe.Handlers, 1)
	require.Equal(t, "Tick", agent.Observe.Handlers[0].EventName)

	require.NotNil(t, agent.Answer)
	require.Len(t, agent.Answer.Handlers, 1)
	h := agent.Answer.Handlers[0]
	require.True(t, h.IsRequest)
	require.Equal(t, "GetCount", h.EventName)
	require.Len(t, h.Block.Statements, 1)
}

func TestParseWorldAndPolicies(t *testing.T) {
	src := `
world Main {
  policy "be nice"
  policy "be concise"
}
micro Agent1 {
  policy "agent-local policy"
  answer { on request Ping() -> Result<Int,Error> { return Ok(1) } }
}
`
	root, err := ParseSource(src)
	require.NoError(t, err)
	require.NotNil(t, root.World)
	require.Equal(t, []string{"be nice", "be concise"}, root.World.Policies)
	require.Len(t, root.MicroAgentDefs, 1)
	require.Equal(t, []string{"agent-local policy"}, root.MicroAgentDefs[0].Policies)
}

func TestParseErrorOnUnknownToken(t *testing.T) {
	_, err := ParseSource("micro TestAgent { @invalid_token }")
	require.Error(t, err)
}

func TestParseWithOnFail(t *testing.T) {
	src := `
micro ProcessAgent {
  answer {
    on request Process() -> Result<String,Error> {
      with x = think("hello") onFail (err) {
        emit ProccessError(message: err)
      }
      return Ok(x)
    }
  }
}
`
	root, err := ParseSource(src)
	require.NoError(t, err)
	handler := root.MicroAgentDefs[0].Answer.Handlers[0]
	require.Len(t, handler.Block.Statements, 2)
	withStmt, ok := handler.Block.Statements[0].(*ast.WithErrorStmt)
	require.True(t, ok)
	require.Equal(t, "err", withStmt.Binding)
	require.Len(t, withStmt.Handler, 1)
	emit, ok := withStmt.Handler[0].(*ast.EmitStmt)
	require.True(t, ok)
	require.Equal(t, "ProccessError", emit.EventName)
}
