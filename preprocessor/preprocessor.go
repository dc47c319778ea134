// Package preprocessor implements §4.2: a token preprocessor that strips
// comment/whitespace/newline tokens ahead of parsing, and a string
// preprocessor used to normalise raw DSL fragments (mainly in tests and
// documentation tooling) before they are tokenised at all.
package preprocessor

import (
	"regexp"
	"strings"

	"github.com/kairei-project/kairei/token"
)

// Tokens drops every Whitespace/Newline/Comment token from toks, preserving
// order and the Span of every surviving token untouched.
func Tokens(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		switch t.Kind {
		case token.KindWhitespace, token.KindNewline, token.KindComment:
			continue
		default:
			out = append(out, t)
		}
	}
	return out
}

var (
	blockCommentRE = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRE  = regexp.MustCompile(`//[^\n]*`)
	blankRunRE     = regexp.MustCompile(`\n{3,}`)
	trailingWSRE   = regexp.MustCompile(`[ \t]+\n`)
)

// String strips comments from raw source text, collapses runs of 3+ blank
// lines down to a single blank line, and trims trailing whitespace from
// every line. It is idempotent: String(String(x)) == String(x) (§8).
func String(src string) string {
	s := blockCommentRE.ReplaceAllString(src, "")
	s = lineCommentRE.ReplaceAllString(s, "")
	s = trailingWSRE.ReplaceAllString(s, "\n")
	s = blankRunRE.ReplaceAllString(s, "\n\n")
	s = strings.TrimRight(s, " \t")
	return s
}
