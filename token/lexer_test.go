package token

import "testing"

func TestTokenizeKeywordPrecedence(t *testing.T) {
	toks, errs := Tokenize("micro state")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(toks) < 2 {
		t.Fatalf("expected at least 2 tokens, got %d", len(toks))
	}
	if toks[0].Kind != KindKeyword || toks[0].Text != "micro" {
		t.Fatalf("expected keyword 'micro', got %+v", toks[0])
	}
}

func TestTokenizeIdentifierVsType(t *testing.T) {
	toks, _ := Tokenize("count Counter")
	nonTrivia := filterTrivia(toks)
	if nonTrivia[0].Kind != KindIdentifier {
		t.Fatalf("expected identifier, got %v", nonTrivia[0].Kind)
	}
	if nonTrivia[1].Kind != KindType {
		t.Fatalf("expected type token for capitalised name, got %v", nonTrivia[1].Kind)
	}
}

func TestLongestMatchOperators(t *testing.T) {
	toks, errs := Tokenize("a == b")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	nonTrivia := filterTrivia(toks)
	if nonTrivia[1].Text != "==" {
		t.Fatalf("expected '==' as a single token, got %q", nonTrivia[1].Text)
	}
}

func TestTokenizeUnrecognisedCharacterSpan(t *testing.T) {
	source := "micro TestAgent { @invalid_token }"
	_, errs := Tokenize(source)
	if len(errs) == 0 {
		t.Fatalf("expected a lex error for '@'")
	}
	var tokErr *Error
	for _, e := range errs {
		if te, ok := e.(*Error); ok {
			tokErr = te
			break
		}
	}
	if tokErr == nil {
		t.Fatalf("expected a *Error, got %v", errs)
	}
	if source[tokErr.Span.Start:tokErr.Span.End] != "@" {
		t.Fatalf("span does not point at '@': %q", source[tokErr.Span.Start:tokErr.Span.End])
	}
}

func TestTokenizeStringInterpolation(t *testing.T) {
	toks, errs := Tokenize(`"hello ${name}!"`)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	nonTrivia := filterTrivia(toks)
	if len(nonTrivia) != 1 {
		t.Fatalf("expected a single string literal token, got %d", len(nonTrivia))
	}
	parts := nonTrivia[0].StringParts
	if len(parts) != 3 {
		t.Fatalf("expected 3 string parts, got %d: %+v", len(parts), parts)
	}
	if parts[0].IsExpression || parts[0].Text != "hello " {
		t.Fatalf("unexpected first part: %+v", parts[0])
	}
	if !parts[1].IsExpression || parts[1].Text != "name" {
		t.Fatalf("unexpected second part: %+v", parts[1])
	}
	if parts[2].IsExpression || parts[2].Text != "!" {
		t.Fatalf("unexpected third part: %+v", parts[2])
	}
}

func TestTokenizeDurationLiteral(t *testing.T) {
	toks, errs := Tokenize("100ms")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if toks[0].LiteralKind != LiteralDuration || toks[0].DurationText != "100ms" {
		t.Fatalf("expected duration literal '100ms', got %+v", toks[0])
	}
}

func filterTrivia(toks []Token) []Token {
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		switch t.Kind {
		case KindWhitespace, KindNewline, KindComment:
			continue
		}
		out = append(out, t)
	}
	return out
}
