// Package parser implements the KAIREI parser-combinator core (§4.3) and the
// specialised DSL parsers built on top of it (§4.4). A Parser is a function
// from a token slice and position to either a new position plus a value, or
// a structured ParseError; combinators compose these functions without ever
// re-slicing the input.
package parser

import (
	"fmt"
	"strings"

	"github.com/kairei-project/kairei/token"
)

// Input is the token slice every parser operates over. Callers are expected
// to have already run preprocessor.Tokens on it.
type Input = []token.Token

// ParseError carries a position, a breadcrumb of context strings built by
// WithContext, and whether the failure is "hard" (consumed input, so
// surrounding Choice alternatives must not paper over it).
type ParseError struct {
	Message string
	Span    token.Span
	Context []string
	Fatal   bool
}

func (e *ParseError) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("parse error at %s: %s", e.Span, e.Message)
	}
	return fmt.Sprintf("parse error at %s: %s (%s)", e.Span, e.Message, strings.Join(e.Context, " -> "))
}

func spanAt(in Input, pos int) token.Span {
	if pos < len(in) {
		return in[pos].Span
	}
	if len(in) > 0 {
		return in[len(in)-1].Span
	}
	return token.Span{}
}

func fail(in Input, pos int, msg string) error {
	return &ParseError{Message: msg, Span: spanAt(in, pos)}
}

// Result is what a successful Parser invocation returns: the position
// immediately after the consumed tokens, and the produced value.
type Result[O any] struct {
	Pos   int
	Value O
}

// Parser parses an O out of in starting at pos, returning the new position
// and value on success.
type Parser[O any] func(in Input, pos int) (Result[O], error)

// Map transforms a successful parse's value.
func Map[A, B any](p Parser[A], f func(A) B) Parser[B] {
	return func(in Input, pos int) (Result[B], error) {
		ra, err := p(in, pos)
		if err != nil {
			return Result[B]{}, err
		}
		return Result[B]{Pos: ra.Pos, Value: f(ra.Value)}, nil
	}
}

// TryMap is Map for transforms that can themselves fail (e.g. literal
// parsing, numeric promotion checks done at parse time).
func TryMap[A, B any](p Parser[A], f func(A) (B, error)) Parser[B] {
	return func(in Input, pos int) (Result[B], error) {
		ra, err := p(in, pos)
		if err != nil {
			return Result[B]{}, err
		}
		v, ferr := f(ra.Value)
		if ferr != nil {
			return Result[B]{}, &ParseError{Message: ferr.Error(), Span: spanAt(in, pos), Fatal: true}
		}
		return Result[B]{Pos: ra.Pos, Value: v}, nil
	}
}

// Choice tries each parser in order at the same starting position. A
// non-fatal failure backtracks to the next alternative; a Fatal failure
// (one that consumed input before failing) short-circuits immediately,
// per §4.3's backtracking contract.
func Choice[O any](parsers ...Parser[O]) Parser[O] {
	return func(in Input, pos int) (Result[O], error) {
		var best error
		for _, p := range parsers {
			r, err := p(in, pos)
			if err == nil {
				return r, nil
			}
			if pe, ok := err.(*ParseError); ok && pe.Fatal {
				return Result[O]{}, err
			}
			if best == nil || moreInformative(err, best) {
				best = err
			}
		}
		if best == nil {
			return Result[O]{}, fail(in, pos, "no alternative matched")
		}
		return Result[O]{}, &ParseError{
			Message: "no alternative matched: " + best.Error(),
			Span:    spanAt(in, pos),
		}
	}
}

func moreInformative(a, b error) bool {
	pa, aok := a.(*ParseError)
	pb, bok := b.(*ParseError)
	if !aok || !bok {
		return false
	}
	return pa.Span.Start > pb.Span.Start
}

// Many collects zero or more successive matches of p greedily. Each
// iteration must consume at least one token to guarantee termination; an
// iteration that succeeds without advancing the position stops the loop.
func Many[O any](p Parser[O]) Parser[[]O] {
	return func(in Input, pos int) (Result[[]O], error) {
		var out []O
		cur := pos
		for {
			r, err := p(in, cur)
			if err != nil {
				break
			}
			if r.Pos == cur {
				break
			}
			out = append(out, r.Value)
			cur = r.Pos
		}
		return Result[[]O]{Pos: cur, Value: out}, nil
	}
}

// Many1 is Many but requires at least one match.
func Many1[O any](p Parser[O]) Parser[[]O] {
	return func(in Input, pos int) (Result[[]O], error) {
		r, err := Many(p)(in, pos)
		if err != nil {
			return Result[[]O]{}, err
		}
		if len(r.Value) == 0 {
			return Result[[]O]{}, fail(in, pos, "expected at least one match")
		}
		return r, nil
	}
}

// SeparatedList parses `item (sep item)*` with an optional trailing
// separator swallowed silently if present with nothing following it.
func SeparatedList[O, S any](item Parser[O], sep Parser[S]) Parser[[]O] {
	return func(in Input, pos int) (Result[[]O], error) {
		first, err := item(in, pos)
		if err != nil {
			return Result[[]O]{Pos: pos, Value: nil}, nil
		}
		out := []O{first.Value}
		cur := first.Pos
		for {
			sepR, sepErr := sep(in, cur)
			if sepErr != nil {
				break
			}
			itemR, itemErr := item(in, sepR.Pos)
			if itemErr != nil {
				// trailing separator: accept up to sepR.Pos, not further.
				cur = sepR.Pos
				break
			}
			out = append(out, itemR.Value)
			cur = itemR.Pos
		}
		return Result[[]O]{Pos: cur, Value: out}, nil
	}
}

// Optional turns a failing parse into a zero-value success that consumes
// nothing, rather than propagating the error.
func Optional[O any](p Parser[O]) Parser[*O] {
	return func(in Input, pos int) (Result[*O], error) {
		r, err := p(in, pos)
		if err != nil {
			if pe, ok := err.(*ParseError); ok && pe.Fatal {
				return Result[*O]{}, err
			}
			return Result[*O]{Pos: pos, Value: nil}, nil
		}
		v := r.Value
		return Result[*O]{Pos: r.Pos, Value: &v}, nil
	}
}

// Delimited parses `open body close`, returning only body's value.
func Delimited[L, O, R any](open Parser[L], body Parser[O], close Parser[R]) Parser[O] {
	return func(in Input, pos int) (Result[O], error) {
		lo, err := open(in, pos)
		if err != nil {
			return Result[O]{}, err
		}
		mid, err := body(in, lo.Pos)
		if err != nil {
			return Result[O]{}, err
		}
		hi, err := close(in, mid.Pos)
		if err != nil {
			return Result[O]{}, &ParseError{Message: err.Error(), Span: spanAt(in, mid.Pos), Fatal: true}
		}
		return Result[O]{Pos: hi.Pos, Value: mid.Value}, nil
	}
}

// Lazy defers construction of p until first invocation, breaking
// initialisation cycles in recursive grammars (expr -> primary -> expr).
func Lazy[O any](f func() Parser[O]) Parser[O] {
	var cached Parser[O]
	return func(in Input, pos int) (Result[O], error) {
		if cached == nil {
			cached = f()
		}
		return cached(in, pos)
	}
}

// WithContext annotates a failing parse with a breadcrumb, so nested
// failures read as "outer -> inner" in diagnostics.
func WithContext[O any](p Parser[O], ctx string) Parser[O] {
	return func(in Input, pos int) (Result[O], error) {
		r, err := p(in, pos)
		if err != nil {
			pe, ok := err.(*ParseError)
			if !ok {
				return Result[O]{}, err
			}
			cp := *pe
			cp.Context = append([]string{ctx}, cp.Context...)
			return Result[O]{}, &cp
		}
		return r, nil
	}
}

// Expected asserts p's output equals want, failing (without consuming
// further input) otherwise. Useful for keyword-shaped productions.
func Expected[O comparable](p Parser[O], want O) Parser[O] {
	return func(in Input, pos int) (Result[O], error) {
		r, err := p(in, pos)
		if err != nil {
			return Result[O]{}, err
		}
		if r.Value != want {
			return Result[O]{}, fail(in, pos, fmt.Sprintf("expected %v, found %v", want, r.Value))
		}
		return r, nil
	}
}

// Pair is the result of Seq2; Seq3 nests a further Pair for its third slot.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Seq2 parses pa then pb in sequence.
func Seq2[A, B any](pa Parser[A], pb Parser[B]) Parser[Pair[A, B]] {
	return func(in Input, pos int) (Result[Pair[A, B]], error) {
		ra, err := pa(in, pos)
		if err != nil {
			return Result[Pair[A, B]]{}, err
		}
		rb, err := pb(in, ra.Pos)
		if err != nil {
			return Result[Pair[A, B]]{}, err
		}
		return Result[Pair[A, B]]{Pos: rb.Pos, Value: Pair[A, B]{ra.Value, rb.Value}}, nil
	}
}

// Seq3 parses pa, pb, pc in sequence.
func Seq3[A, B, C any](pa Parser[A], pb Parser[B], pc Parser[C]) Parser[Pair[Pair[A, B], C]] {
	return Seq2(Seq2(pa, pb), pc)
}
