package parser

import (
	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/preprocessor"
	"github.com/kairei-project/kairei/token"
)

// ParseSource tokenises, preprocesses and parses a complete KAIREI source
// document into a Root. Tokenizer errors are returned immediately (they
// abort compilation per §7); once lexing succeeds, parsing proceeds and
// reports the first structural error encountered.
func ParseSource(source string) (*ast.Root, error) {
	toks, lexErrs := token.Tokenize(source)
	if len(lexErrs) > 0 {
		return nil, lexErrs[0]
	}
	filtered := preprocessor.Tokens(toks)
	return ParseTokens(filtered)
}

// ParseTokens parses an already-tokenised-and-filtered stream.
func ParseTokens(in Input) (*ast.Root, error) {
	root := &ast.Root{}
	cur := 0

	for cur < len(in) {
		best := fail(in, cur, "expected 'world', 'micro' or 'sistence' declaration")
		if r, err := World()(in, cur); err == nil {
			root.World = r.Value
			cur = r.Pos
			continue
		} else if moreInformative(err, best) {
			best = err
		}
		if r, err := MicroAgent()(in, cur); err == nil {
			root.MicroAgentDefs = append(root.MicroAgentDefs, r.Value)
			cur = r.Pos
			continue
		} else if moreInformative(err, best) {
			best = err
		}
		if r, err := SistenceAgent()(in, cur); err == nil {
			root.SistenceAgentDefs = append(root.SistenceAgentDefs, r.Value)
			cur = r.Pos
			continue
		} else if moreInformative(err, best) {
			best = err
		}
		return nil, best
	}

	return root, nil
}
