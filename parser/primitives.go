package parser

import (
	"fmt"

	"github.com/kairei-project/kairei/token"
)

// Tok matches a single token of the given Kind, returning its raw text.
func Tok(kind token.Kind) Parser[token.Token] {
	return func(in Input, pos int) (Result[token.Token], error) {
		if pos >= len(in) {
			return Result[token.Token]{}, fail(in, pos, fmt.Sprintf("expected %s, found end of input", kind))
		}
		if in[pos].Kind != kind {
			return Result[token.Token]{}, fail(in, pos, fmt.Sprintf("expected %s, found %s %q", kind, in[pos].Kind, in[pos].Text))
		}
		return Result[token.Token]{Pos: pos + 1, Value: in[pos]}, nil
	}
}

// Keyword matches a specific keyword lexeme.
func Keyword(text string) Parser[token.Token] {
	return func(in Input, pos int) (Result[token.Token], error) {
		if pos >= len(in) {
			return Result[token.Token]{}, fail(in, pos, fmt.Sprintf("expected keyword %q, found end of input", text))
		}
		if in[pos].Kind != token.KindKeyword || in[pos].Text != text {
			return Result[token.Token]{}, fail(in, pos, fmt.Sprintf("expected keyword %q", text))
		}
		return Result[token.Token]{Pos: pos + 1, Value: in[pos]}, nil
	}
}

// Op matches a specific operator lexeme.
func Op(text string) Parser[token.Token] {
	return func(in Input, pos int) (Result[token.Token], error) {
		if pos >= len(in) {
			return Result[token.Token]{}, fail(in, pos, fmt.Sprintf("expected operator %q, found end of input", text))
		}
		if in[pos].Kind != token.KindOperator || in[pos].Text != text {
			return Result[token.Token]{}, fail(in, pos, fmt.Sprintf("expected operator %q", text))
		}
		return Result[token.Token]{Pos: pos + 1, Value: in[pos]}, nil
	}
}

// Delim matches a specific delimiter lexeme ("(", "{", ",", ...).
func Delim(text string) Parser[token.Token] {
	return func(in Input, pos int) (Result[token.Token], error) {
		if pos >= len(in) {
			return Result[token.Token]{}, fail(in, pos, fmt.Sprintf("expected %q, found end of input", text))
		}
		if in[pos].Kind != token.KindDelimiter || in[pos].Text != text {
			return Result[token.Token]{}, fail(in, pos, fmt.Sprintf("expected %q", text))
		}
		return Result[token.Token]{Pos: pos + 1, Value: in[pos]}, nil
	}
}

// Ident matches any identifier and returns its text.
func Ident() Parser[string] {
	return Map(Tok(token.KindIdentifier), func(t token.Token) string { return t.Text })
}

// TypeName matches any capitalised type-name token and returns its text.
func TypeName() Parser[string] {
	return Map(Tok(token.KindType), func(t token.Token) string { return t.Text })
}

// NameLike accepts either an Identifier or a Type token as a bare name; the
// DSL uses capitalised names for agents and types, lowercase for variables,
// but several productions (e.g. a request's target agent) accept either.
func NameLike() Parser[string] {
	return Choice(Ident(), TypeName())
}
