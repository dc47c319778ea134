// Package testsupport holds shared test fixtures and gopter generators for
// the universally-quantified properties in §8: preprocessing idempotence,
// binary-op promotion commutativity, and event-bus lag-then-resume
// delivery. Other packages' _test.go files may import it directly; the
// property tests that exercise those invariants end-to-end live here
// because they cut across preprocessor/typecheck/event rather than
// belonging to any one of them.
package testsupport

import (
	"fmt"
	"io"

	"github.com/kairei-project/kairei/klog"
	"github.com/leanovate/gopter/gen"
)

// DiscardLogger is a JSON logger writing to io.Discard, for tests that need
// a real klog.Logger but don't care about its output.
func DiscardLogger() klog.Logger {
	return klog.NewJSONLogger(io.Discard, klog.LevelError)
}

// CounterAgentSource is the §8 scenario 1 Counter agent DSL, reused by
// system's example-based tests.
const CounterAgentSource = `
micro Counter {
  state { count: Int = 0 }
  observe { on Tick() { self.count = self.count + 1 } }
  answer { on request GetCount() -> Result<Int, Error> { return Ok(self.count) } }
}
`

// SlowAgentSource never answers its Ping request, for exercising request
// timeout behaviour (§8 scenario 2).
const SlowAgentSource = `
micro Slow {
  state { dummy: Int = 0 }
}
`

// numericLiteral renders n as Go-syntax-compatible KAIREI literal text. isFloat
// controls whether it's rendered with a decimal point.
func numericLiteral(n int, isFloat bool) string {
	if isFloat {
		return fmt.Sprintf("%d.5", n)
	}
	return fmt.Sprintf("%d", n)
}

// PromotionSource builds a one-handler agent assigning `lhs + rhs` into a
// Float state variable, where lhs/rhs are rendered from lhsN/rhsN with
// lhsFloat/rhsFloat controlling which literal carries a decimal point
// (§8 "Binary-op promotion: Int+Float ≡ Float+Int").
func PromotionSource(lhsN, rhsN int, lhsFloat, rhsFloat bool) string {
	lhs := numericLiteral(lhsN, lhsFloat)
	rhs := numericLiteral(rhsN, rhsFloat)
	return fmt.Sprintf(`
micro Math {
  state { total: Float = 0.0 }
  observe { on Tick() { self.total = %s + %s } }
}
`, lhs, rhs)
}

// StringPromotionSource builds a one-handler agent assigning `lhs + rhs`
// into a String state variable, where one side is the string literal "tag"
// and the other is the literal text other; stringFirst puts "tag" on the
// left (§8 "String+x and x+String both yield String for every x").
func StringPromotionSource(stringFirst bool, other string) string {
	if stringFirst {
		return fmt.Sprintf(`
micro Tagger {
  state { label: String = "" }
  observe { on Tick() { self.label = "tag" + %s } }
}
`, other)
	}
	return fmt.Sprintf(`
micro Tagger {
  state { label: String = "" }
  observe { on Tick() { self.label = %s + "tag" } }
}
`, other)
}

// gen helpers used directly by properties_test.go; kept here so any future
// package wanting the same distributions doesn't have to redefine them.
var (
	GenInt   = gen.IntRange(0, 1000)
	GenFloat = gen.Float64Range(0, 1000)
	GenBool  = gen.Bool()
)
