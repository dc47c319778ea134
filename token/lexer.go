package token

import (
	"strconv"
	"strings"
)

// Tokenize lexes source into a token stream. It never stops at the first
// error: each Error is appended to the returned error slice and the lexer
// resynchronises by skipping the offending byte, so callers building tooling
// on top of Tokenize can report every lexical error in one pass.
func Tokenize(source string) ([]Token, []error) {
	l := &lexer{src: source, line: 1, column: 1}
	var tokens []Token
	var errs []error

	for !l.atEnd() {
		start := l.pos
		startLine, startCol := l.line, l.column
		ch := l.peek()

		switch {
		case ch == '\n':
			l.advance()
			tokens = append(tokens, Token{
				Kind: KindNewline,
				Span: l.span(start, startLine, startCol),
				Text: "\n",
			})
		case ch == ' ' || ch == '\t' || ch == '\r':
			for !l.atEnd() && (l.peek() == ' ' || l.peek() == '\t' || l.peek() == '\r') {
				l.advance()
			}
			tokens = append(tokens, Token{
				Kind: KindWhitespace,
				Span: l.span(start, startLine, startCol),
				Text: l.src[start:l.pos],
			})
		case ch == '/' && l.peekAt(1) == '/':
			tok := l.lexLineComment(start, startLine, startCol)
			tokens = append(tokens, tok)
		case ch == '/' && l.peekAt(1) == '*':
			tok, err := l.lexBlockComment(start, startLine, startCol)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			tokens = append(tokens, tok)
		case ch == '"':
			tok, err := l.lexString(start, startLine, startCol)
			if err != nil {
				errs = append(errs, err)
				l.advance()
				continue
			}
			tokens = append(tokens, tok)
		case isDigit(ch):
			tokens = append(tokens, l.lexNumber(start, startLine, startCol))
		case isIdentStart(ch):
			tokens = append(tokens, l.lexIdentifier(start, startLine, startCol))
		default:
			if op, ok := l.matchOperator(); ok {
				tokens = append(tokens, Token{
					Kind: KindOperator,
					Span: l.span(start, startLine, startCol),
					Text: op,
				})
				continue
			}
			if delimiters[byte(ch)] {
				l.advance()
				tokens = append(tokens, Token{
					Kind: KindDelimiter,
					Span: l.span(start, startLine, startCol),
					Text: string(ch),
				})
				continue
			}
			l.advance()
			errs = append(errs, &Error{
				Message: "unrecognised character",
				Found:   string(ch),
				Span:    l.span(start, startLine, startCol),
			})
		}
	}

	return tokens, errs
}

type lexer struct {
	src    string
	pos    int
	line   int
	column int
}

func (l *lexer) atEnd() bool { return l.pos >= len(l.src) }

func (l *lexer) peek() rune {
	if l.atEnd() {
		return 0
	}
	return rune(l.src[l.pos])
}

func (l *lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return rune(l.src[l.pos+offset])
}

func (l *lexer) advance() rune {
	ch := l.peek()
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

func (l *lexer) span(start, startLine, startCol int) Span {
	return Span{Start: start, End: l.pos, Line: startLine, Column: startCol}
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}

func (l *lexer) lexLineComment(start, startLine, startCol int) Token {
	doc := l.peekAt(2) == '/'
	l.advance()
	l.advance()
	if doc {
		l.advance()
	}
	bodyStart := l.pos
	for !l.atEnd() && l.peek() != '\n' {
		l.advance()
	}
	kind := CommentLine
	if doc {
		kind = CommentDocLine
	}
	return Token{
		Kind:        KindComment,
		Span:        l.span(start, startLine, startCol),
		Text:        l.src[start:l.pos],
		CommentKind: kind,
		CommentBody: l.src[bodyStart:l.pos],
	}
}

func (l *lexer) lexBlockComment(start, startLine, startCol int) (Token, error) {
	doc := l.peekAt(2) == '*'
	l.advance()
	l.advance()
	if doc {
		l.advance()
	}
	bodyStart := l.pos
	closed := false
	for !l.atEnd() {
		if l.peek() == '*' && l.peekAt(1) == '/' {
			closed = true
			break
		}
		l.advance()
	}
	if !closed {
		return Token{}, &Error{
			Message: "unterminated block comment",
			Found:   l.src[start:l.pos],
			Span:    l.span(start, startLine, startCol),
		}
	}
	body := l.src[bodyStart:l.pos]
	l.advance()
	l.advance()
	kind := CommentBlock
	if doc {
		kind = CommentDocBlock
	}
	return Token{
		Kind:        KindComment,
		Span:        l.span(start, startLine, startCol),
		Text:        l.src[start:l.pos],
		CommentKind: kind,
		CommentBody: body,
	}, nil
}

// lexString scans a `"..."` literal, decomposing it into StringPart
// literal/expression runs on `${...}` boundaries (§4.1).
func (l *lexer) lexString(start, startLine, startCol int) (Token, error) {
	l.advance() // opening quote
	var parts []StringPart
	var lit strings.Builder
	closed := false

	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, StringPart{Text: lit.String()})
			lit.Reset()
		}
	}

	for !l.atEnd() {
		ch := l.peek()
		switch {
		case ch == '"':
			l.advance()
			closed = true
		case ch == '\\':
			l.advance()
			esc := l.advance()
			lit.WriteRune(unescape(esc))
			continue
		case ch == '$' && l.peekAt(1) == '{':
			flush()
			l.advance()
			l.advance()
			depth := 1
			exprStart := l.pos
			for !l.atEnd() && depth > 0 {
				c := l.peek()
				if c == '{' {
					depth++
				} else if c == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				l.advance()
			}
			expr := l.src[exprStart:l.pos]
			if !l.atEnd() {
				l.advance() // closing }
			}
			parts = append(parts, StringPart{IsExpression: true, Text: expr})
			continue
		default:
			lit.WriteRune(ch)
			l.advance()
			continue
		}
		if closed {
			break
		}
	}
	flush()

	if !closed {
		return Token{}, &Error{
			Message: "unterminated string literal",
			Found:   l.src[start:l.pos],
			Span:    l.span(start, startLine, startCol),
		}
	}

	raw := l.src[start:l.pos]
	return Token{
		Kind:        KindLiteral,
		Span:        l.span(start, startLine, startCol),
		Text:        raw,
		LiteralKind: LiteralString,
		StringParts: parts,
	}, nil
}

func unescape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '"':
		return '"'
	case '\\':
		return '\\'
	default:
		return r
	}
}

// durationSuffixes, longest first so "ms" is tried before "s".
var durationSuffixes = []string{"ms", "s", "m", "h"}

func (l *lexer) lexNumber(start, startLine, startCol int) Token {
	for !l.atEnd() && isDigit(l.peek()) {
		l.advance()
	}
	isFloat := false
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.advance()
		for !l.atEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}

	for _, suf := range durationSuffixes {
		if strings.HasPrefix(l.src[l.pos:], suf) && !isIdentCont(l.peekAt(len(suf))) {
			l.pos += len(suf)
			l.column += len(suf)
			text := l.src[start:l.pos]
			return Token{
				Kind:         KindLiteral,
				Span:         l.span(start, startLine, startCol),
				Text:         text,
				LiteralKind:  LiteralDuration,
				DurationText: text,
			}
		}
	}

	text := l.src[start:l.pos]
	tok := Token{
		Kind: KindLiteral,
		Span: l.span(start, startLine, startCol),
		Text: text,
	}
	if isFloat {
		tok.LiteralKind = LiteralFloat
		tok.FloatValue, _ = strconv.ParseFloat(text, 64)
	} else {
		tok.LiteralKind = LiteralInteger
		tok.IntValue, _ = strconv.ParseInt(text, 10, 64)
	}
	return tok
}

func (l *lexer) lexIdentifier(start, startLine, startCol int) Token {
	for !l.atEnd() && isIdentCont(l.peek()) {
		l.advance()
	}
	text := l.src[start:l.pos]
	switch text {
	case "true", "false":
		return Token{
			Kind:        KindLiteral,
			Span:        l.span(start, startLine, startCol),
			Text:        text,
			LiteralKind: LiteralBoolean,
			BoolValue:   text == "true",
		}
	}
	if Keywords[text] {
		return Token{Kind: KindKeyword, Span: l.span(start, startLine, startCol), Text: text}
	}
	if len(text) > 0 && text[0] >= 'A' && text[0] <= 'Z' {
		return Token{Kind: KindType, Span: l.span(start, startLine, startCol), Text: text}
	}
	return Token{Kind: KindIdentifier, Span: l.span(start, startLine, startCol), Text: text}
}

func (l *lexer) matchOperator() (string, bool) {
	for _, op := range operatorTable {
		if strings.HasPrefix(l.src[l.pos:], op) {
			for range op {
				l.advance()
			}
			return op, true
		}
	}
	return "", false
}
