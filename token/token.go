// Package token implements the KAIREI tokenizer (§4.1): it turns source
// text into a slice of position-annotated tokens. Every token carries a Span
// into the original source so it survives preprocessing and surfaces in
// diagnostics untouched (§8's first universally-quantified property).
package token

import "fmt"

// Span locates a lexeme in the original source text.
type Span struct {
	Start, End     int
	Line, Column   int
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// Kind discriminates a Token's syntactic category.
type Kind int

const (
	KindKeyword Kind = iota
	KindIdentifier
	KindType
	KindLiteral
	KindOperator
	KindDelimiter
	KindWhitespace
	KindNewline
	KindComment
)

func (k Kind) String() string {
	switch k {
	case KindKeyword:
		return "Keyword"
	case KindIdentifier:
		return "Identifier"
	case KindType:
		return "Type"
	case KindLiteral:
		return "Literal"
	case KindOperator:
		return "Operator"
	case KindDelimiter:
		return "Delimiter"
	case KindWhitespace:
		return "Whitespace"
	case KindNewline:
		return "Newline"
	case KindComment:
		return "Comment"
	default:
		return "Unknown"
	}
}

// LiteralKind discriminates a Literal token's value shape.
type LiteralKind int

const (
	LiteralInteger LiteralKind = iota
	LiteralFloat
	LiteralString
	LiteralBoolean
	LiteralDuration
)

// StringPart is one piece of an interpolated string literal: either a plain
// text run or an embedded `${...}` expression whose text is tokenised lazily
// by the caller (the parser, once it walks the expression grammar).
type StringPart struct {
	IsExpression bool
	Text         string
}

// CommentKind distinguishes line/block comments from their doc variants.
type CommentKind int

const (
	CommentLine CommentKind = iota
	CommentBlock
	CommentDocLine
	CommentDocBlock
)

// Token is one lexical unit plus everything needed to reconstruct or
// diagnose it.
type Token struct {
	Kind Kind
	Span Span

	// Text is the raw lexeme as it appeared in source.
	Text string

	// Populated only for KindLiteral tokens.
	LiteralKind  LiteralKind
	IntValue     int64
	FloatValue   float64
	BoolValue    bool
	StringParts  []StringPart
	DurationText string

	// Populated only for KindComment tokens.
	CommentKind CommentKind
	CommentBody string
}

// Error reports a lexing failure (§4.1 TokenizerError::ParseError).
type Error struct {
	Message string
	Found   string
	Span    Span
}

func (e *Error) Error() string {
	return fmt.Sprintf("tokenizer error at %s: %s (found %q)", e.Span, e.Message, e.Found)
}

// Keywords is the fixed keyword set from §6. Identifiers matching one of
// these lex as KindKeyword rather than KindIdentifier (keyword precedence).
var Keywords = map[string]bool{
	"micro": true, "world": true, "state": true, "observe": true,
	"answer": true, "react": true, "lifecycle": true, "on": true,
	"onInit": true, "onDestroy": true, "request": true, "emit": true,
	"think": true, "with": true, "onFail": true, "return": true,
	"if": true, "else": true, "self": true, "Result": true,
	"Ok": true, "Err": true, "policy": true, "sistence": true,
}

// operators longest-match first: two- and three-character operators must be
// listed before any prefix of themselves (§4.1 longest-match rule).
var operatorTable = []string{
	"::", "=>", "==", "!=", "<=", ">=", "&&", "||", "->",
	"+", "-", "*", "/", "%", "=", "<", ">", "!", ".", ":", "?",
}

var delimiters = map[byte]bool{
	'(': true, ')': true, '{': true, '}': true, '[': true, ']': true,
	',': true, ';': true,
}
