package preprocessor

import (
	"testing"

	"github.com/kairei-project/kairei/token"
)

func TestTokensDropsTrivia(t *testing.T) {
	toks, errs := token.Tokenize("micro  Foo // comment\n{ }")
	if len(errs) != 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	filtered := Tokens(toks)
	for _, tk := range filtered {
		switch tk.Kind {
		case token.KindWhitespace, token.KindNewline, token.KindComment:
			t.Fatalf("trivia token survived preprocessing: %+v", tk)
		}
	}
	if len(filtered) == 0 {
		t.Fatal("expected some tokens to survive")
	}
	// Spans must be untouched: look up the first survivor's span text.
	first := filtered[0]
	if "micro"[0:len(first.Text)] != first.Text {
		t.Fatalf("unexpected first token text: %q", first.Text)
	}
}

func TestTokensIsSubsequence(t *testing.T) {
	source := "micro Foo { state { x: Int = 1 } }"
	toks, errs := token.Tokenize(source)
	if len(errs) != 0 {
		t.Fatalf("unexpected lex errors: %v", errs)
	}
	filtered := Tokens(toks)
	j := 0
	for _, tk := range toks {
		if j < len(filtered) && sameToken(tk, filtered[j]) {
			j++
		}
	}
	if j != len(filtered) {
		t.Fatalf("filtered tokens are not a subsequence of the original stream")
	}
}

func sameToken(a, b token.Token) bool {
	return a.Kind == b.Kind && a.Span == b.Span && a.Text == b.Text
}

func TestStringPreprocessorIdempotent(t *testing.T) {
	src := "micro Foo { // line comment\n  /* block\n comment */\n  state {}\n\n\n\n  answer {}   \n}\n"
	once := String(src)
	twice := String(once)
	if once != twice {
		t.Fatalf("String is not idempotent:\nonce=%q\ntwice=%q", once, twice)
	}
}

func TestStringPreprocessorStripsComments(t *testing.T) {
	out := String("a // comment\nb /* block */ c")
	if want := "a\nb  c"; out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}
