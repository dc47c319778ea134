package testsupport_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kairei-project/kairei/event"
	"github.com/kairei-project/kairei/parser"
	"github.com/kairei-project/kairei/preprocessor"
	"github.com/kairei-project/kairei/testsupport"
	"github.com/kairei-project/kairei/typecheck"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func gopterParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	return parameters
}

func typeChecks(source string) bool {
	root, err := parser.ParseSource(source)
	if err != nil {
		return false
	}
	c := typecheck.NewChecker()
	return c.CheckRoot(root) == nil
}

// §8 "Idempotence: preprocess(preprocess(x)) == preprocess(x)".
func TestStringPreprocessorIsIdempotent(t *testing.T) {
	properties := gopter.NewProperties(gopterParameters())

	properties.Property("String is idempotent over arbitrary source text", prop.ForAll(
		func(src string) bool {
			once := preprocessor.String(src)
			twice := preprocessor.String(once)
			return once == twice
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// §8 "Binary-op promotion: Int+Float ≡ Float+Int; String+x and x+String
// both yield String for every x".
func TestBinaryOpPromotionIsCommutative(t *testing.T) {
	properties := gopter.NewProperties(gopterParameters())

	properties.Property("Int+Float and Float+Int both check against a Float slot", prop.ForAll(
		func(lhsN, rhsN int) bool {
			forward := typeChecks(testsupport.PromotionSource(lhsN, rhsN, false, true))
			backward := typeChecks(testsupport.PromotionSource(rhsN, lhsN, true, false))
			return forward && backward
		},
		testsupport.GenInt,
		testsupport.GenInt,
	))

	properties.Property("String+x and x+String both yield String", prop.ForAll(
		func(n int, f float64, b bool) bool {
			operands := []string{
				fmt.Sprintf("%d", n),
				fmt.Sprintf("%g", f),
				fmt.Sprintf("%t", b),
				`"other"`,
			}
			for _, other := range operands {
				if !typeChecks(testsupport.StringPromotionSource(true, other)) {
					return false
				}
				if !typeChecks(testsupport.StringPromotionSource(false, other)) {
					return false
				}
			}
			return true
		},
		testsupport.GenInt,
		testsupport.GenFloat,
		testsupport.GenBool,
	))

	properties.TestingRun(t)
}

// §8 "Lag recovery": a slow subscriber sees at least one Lagged error after
// a burst that overflows its queue, then resumes receiving cleanly.
func TestEventBusLagThenResume(t *testing.T) {
	properties := gopter.NewProperties(gopterParameters())

	properties.Property("burst beyond capacity lags then resumes cleanly", prop.ForAll(
		func(capacity, burst int) bool {
			bus := event.NewBus(capacity, testsupport.DiscardLogger())
			slow, _ := bus.Subscribe()
			defer slow.Close()

			for i := 0; i < burst; i++ {
				bus.Publish(event.New(event.Custom("Burst"), nil))
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			_, err := slow.Recv(ctx)
			if err == nil {
				return false
			}
			lagged, ok := err.(*event.LaggedError)
			if !ok || lagged.Count <= 0 {
				return false
			}

			for i := 0; i < capacity; i++ {
				if _, err := slow.Recv(ctx); err != nil {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 8),
		gen.IntRange(20, 50),
	))

	properties.TestingRun(t)
}
