package typecheck

import (
	"fmt"
	"strings"

	"github.com/kairei-project/kairei/token"
)

// ErrorKind discriminates the checker's error taxonomy (§4.5).
type ErrorKind int

const (
	TypeMismatch ErrorKind = iota
	UndefinedType
	UndefinedVariable
	InvalidThinkBlock
	InvalidHandlerSignature
	PluginTypeError
)

func (k ErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "TypeMismatch"
	case UndefinedType:
		return "UndefinedType"
	case UndefinedVariable:
		return "UndefinedVariable"
	case InvalidThinkBlock:
		return "InvalidThinkBlock"
	case InvalidHandlerSignature:
		return "InvalidHandlerSignature"
	case PluginTypeError:
		return "PluginTypeError"
	default:
		return "Unknown"
	}
}

// CheckError is one finding from a single node visit.
type CheckError struct {
	Kind     ErrorKind
	Expected string
	Found    string
	Location string
	Span     token.Span
	Message  string
	Critical bool // stops the traversal immediately when true
}

func (e *CheckError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Location, e.Message)
	}
	return fmt.Sprintf("%s at %s: expected %s, found %s", e.Kind, e.Location, e.Expected, e.Found)
}

// Multiple aggregates every CheckError collected during one CheckRoot call.
// It is itself an error so callers that only check err != nil still work.
type Multiple struct {
	Errors []*CheckError
}

func (m *Multiple) Error() string {
	parts := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("%d type error(s): %s", len(m.Errors), strings.Join(parts, "; "))
}

// collector accumulates CheckErrors across a traversal, stopping early only
// when a critical error is appended (§4.5 failure policy).
type collector struct {
	errs     []*CheckError
	critical bool
}

func (c *collector) add(e *CheckError) {
	c.errs = append(c.errs, e)
	if e.Critical {
		c.critical = true
	}
}

func (c *collector) done() bool { return c.critical }

// result bundles whatever errors a CheckRoot run produced into the public
// shape: nil, a single *CheckError, or *Multiple with critical errors first.
func (c *collector) result() error {
	if len(c.errs) == 0 {
		return nil
	}
	if len(c.errs) == 1 {
		return c.errs[0]
	}
	ordered := make([]*CheckError, 0, len(c.errs))
	for _, e := range c.errs {
		if e.Critical {
			ordered = append(ordered, e)
		}
	}
	for _, e := range c.errs {
		if !e.Critical {
			ordered = append(ordered, e)
		}
	}
	return &Multiple{Errors: ordered}
}
