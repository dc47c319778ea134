package parser

import (
	"strconv"
	"time"

	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/token"
)

// Expression is the entry point for §4.4's expression grammar:
// logical-or -> logical-and -> equality -> relational -> additive ->
// multiplicative -> unary -> primary. Assignment is handled at the
// statement layer (see StatementParser) since every assignment target in
// this DSL is itself a statement, not a value-producing sub-expression.
func Expression() Parser[ast.Expression] {
	return Lazy(func() Parser[ast.Expression] { return logicalOr() })
}

func leftAssocBinary(next Parser[ast.Expression], ops ...string) Parser[ast.Expression] {
	return func(in Input, pos int) (Result[ast.Expression], error) {
		first, err := next(in, pos)
		if err != nil {
			return Result[ast.Expression]{}, err
		}
		left := first.Value
		cur := first.Pos
		for {
			matched := false
			for _, op := range ops {
				if r, e := Op(op)(in, cur); e == nil {
					rhs, e2 := next(in, r.Pos)
					if e2 != nil {
						return Result[ast.Expression]{}, e2
					}
					left = &ast.BinaryOp{Op: op, Left: left, Right: rhs.Value, Span: spanBetween(left, rhs.Value)}
					cur = rhs.Pos
					matched = true
					break
				}
			}
			if !matched {
				break
			}
		}
		return Result[ast.Expression]{Pos: cur, Value: left}, nil
	}
}

func spanBetween(a, b ast.Expression) token.Span {
	sa := a.ExprSpan()
	sb := b.ExprSpan()
	return token.Span{Start: sa.Start, End: sb.End, Line: sa.Line, Column: sa.Column}
}

func logicalOr() Parser[ast.Expression]  { return leftAssocBinary(logicalAnd(), "||") }
func logicalAnd() Parser[ast.Expression] { return leftAssocBinary(equality(), "&&") }
func equality() Parser[ast.Expression]   { return leftAssocBinary(relational(), "==", "!=") }
func relational() Parser[ast.Expression] {
	return leftAssocBinary(additive(), "<=", ">=", "<", ">")
}
func additive() Parser[ast.Expression]       { return leftAssocBinary(multiplicative(), "+", "-") }
func multiplicative() Parser[ast.Expression] { return leftAssocBinary(unary(), "*", "/", "%") }

func unary() Parser[ast.Expression] {
	return func(in Input, pos int) (Result[ast.Expression], error) {
		for _, op := range []string{"-", "!"} {
			if r, err := Op(op)(in, pos); err == nil {
				operand, err2 := unary()(in, r.Pos)
				if err2 != nil {
					return Result[ast.Expression]{}, err2
				}
				return Result[ast.Expression]{Pos: operand.Pos, Value: &ast.UnaryOp{Op: op, Operand: operand.Value, Span: r.Value.Span}}, nil
			}
		}
		return primary()(in, pos)
	}
}

func primary() Parser[ast.Expression] {
	return Lazy(func() Parser[ast.Expression] {
		return Choice(
			okExpr(),
			errExpr(),
			thinkExpr(),
			requestExpr(),
			awaitExpr(),
			groupedExpr(),
			stateAccessExpr(),
			functionCallExpr(),
			literalExpr(),
			variableExpr(),
		)
	})
}

func literalExpr() Parser[ast.Expression] {
	return Map(Tok(token.KindLiteral), func(t token.Token) ast.Expression {
		lit := ast.Literal{Span: t.Span}
		switch t.LiteralKind {
		case token.LiteralInteger:
			lit.Kind = ast.LitInt
			lit.IntValue = t.IntValue
		case token.LiteralFloat:
			lit.Kind = ast.LitFloat
			lit.FloatValue = t.FloatValue
		case token.LiteralBoolean:
			lit.Kind = ast.LitBool
			lit.BoolValue = t.BoolValue
		case token.LiteralDuration:
			lit.Kind = ast.LitDuration
			lit.DurationRaw = t.DurationText
		case token.LiteralString:
			lit.Kind = ast.LitString
			lit.StringValue = t.Text
			lit.StringParts = convertStringParts(t.StringParts)
		}
		return lit
	})
}

func convertStringParts(parts []token.StringPart) []ast.StringPart {
	out := make([]ast.StringPart, len(parts))
	for i, p := range parts {
		sp := ast.StringPart{IsExpression: p.IsExpression, Text: p.Text}
		if p.IsExpression {
			toks, errs := token.Tokenize(p.Text)
			if len(errs) == 0 {
				filtered := stripTrivia(toks)
				if r, err := Expression()(filtered, 0); err == nil {
					sp.Expr = r.Value
				}
			}
		}
		out[i] = sp
	}
	return out
}

func stripTrivia(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		switch t.Kind {
		case token.KindWhitespace, token.KindNewline, token.KindComment:
			continue
		}
		out = append(out, t)
	}
	return out
}

func variableExpr() Parser[ast.Expression] {
	return Map(Ident(), func(name string) ast.Expression {
		return &ast.Variable{Name: name}
	})
}

func groupedExpr() Parser[ast.Expression] {
	return Delimited(Delim("("), Expression(), Delim(")"))
}

func stateAccessExpr() Parser[ast.Expression] {
	p := Seq2(Keyword("self"), Many1(Seq2(Op("."), Ident())))
	return Map(p, func(v Pair[token.Token, []Pair[token.Token, string]]) ast.Expression {
		path := []string{"self"}
		for _, seg := range v.Second {
			path = append(path, seg.Second)
		}
		return &ast.StateAccess{Path: path, Span: v.First.Span}
	})
}

func functionCallExpr() Parser[ast.Expression] {
	args := SeparatedList(Expression(), Delim(","))
	p := Seq2(Ident(), Delimited(Delim("("), args, Delim(")")))
	return Map(p, func(v Pair[string, []ast.Expression]) ast.Expression {
		return &ast.FunctionCall{Name: v.First, Args: v.Second}
	})
}

func okExpr() Parser[ast.Expression] {
	p := Seq2(Keyword("Ok"), Delimited(Delim("("), Expression(), Delim(")")))
	return Map(p, func(v Pair[token.Token, ast.Expression]) ast.Expression {
		return &ast.OkExpr{Inner: v.Second, Span: v.First.Span}
	})
}

func errExpr() Parser[ast.Expression] {
	p := Seq2(Keyword("Err"), Delimited(Delim("("), Expression(), Delim(")")))
	return Map(p, func(v Pair[token.Token, ast.Expression]) ast.Expression {
		return &ast.ErrExpr{Inner: v.Second, Span: v.First.Span}
	})
}

// withAttributes parses `with { key: literal, ... }`, used by both think
// and request expressions (§4.4 "Think & Request attributes").
func withAttributes() Parser[map[string]ast.Literal] {
	entry := Seq3(NameLike(), Op(":"), literalOnly())
	entries := SeparatedList(entry, Delim(","))
	body := Delimited(Delim("{"), entries, Delim("}"))
	p := Optional(Seq2(Keyword("with"), body))
	return Map(p, func(v *Pair[token.Token, []Pair[Pair[string, token.Token], ast.Literal]]) map[string]ast.Literal {
		out := map[string]ast.Literal{}
		if v == nil {
			return out
		}
		for _, e := range v.Second {
			out[e.First.First] = e.Second
		}
		return out
	})
}

func literalOnly() Parser[ast.Literal] {
	return Map(literalExpr(), func(e ast.Expression) ast.Literal { return e.(ast.Literal) })
}

func thinkExpr() Parser[ast.Expression] {
	args := SeparatedList(Expression(), Delim(","))
	p := Seq3(Keyword("think"), Delimited(Delim("("), args, Delim(")")), withAttributes())
	return Map(p, func(v Pair[Pair[token.Token, []ast.Expression], map[string]ast.Literal]) ast.Expression {
		return &ast.Think{Args: v.First.Second, With: v.Second, Span: v.First.First.Span}
	})
}

func requestExpr() Parser[ast.Expression] {
	paramEntry := Seq3(Ident(), Op(":"), Expression())
	params := SeparatedList(paramEntry, Delim(","))
	target := Seq3(NameLike(), Op("."), NameLike())
	p := Seq3(
		Seq2(Keyword("request"), target),
		Delimited(Delim("("), params, Delim(")")),
		withAttributes(),
	)
	return Map(p, func(v Pair[Pair[Pair[token.Token, Pair[Pair[string, token.Token], string]], []Pair[Pair[string, token.Token], ast.Expression]], map[string]ast.Literal]) ast.Expression {
		agent := v.First.First.Second.First.First
		reqType := v.First.First.Second.Second
		params := map[string]ast.Expression{}
		for _, p := range v.First.Second {
			params[p.First.First] = p.Second
		}
		return &ast.Request{Agent: agent, RequestType: reqType, Parameters: params, With: v.Second, Span: v.First.First.First.Span}
	})
}

// awaitExpr recognises the explicit `await expr` form; Think/Request are
// implicitly awaited by the evaluator and don't need this wrapper.
func awaitExpr() Parser[ast.Expression] {
	return func(in Input, pos int) (Result[ast.Expression], error) {
		if pos >= len(in) || in[pos].Kind != token.KindIdentifier || in[pos].Text != "await" {
			return Result[ast.Expression]{}, fail(in, pos, "expected 'await'")
		}
		inner, err := primary()(in, pos+1)
		if err != nil {
			return Result[ast.Expression]{}, err
		}
		return Result[ast.Expression]{Pos: inner.Pos, Value: &ast.Await{Inner: inner.Value, Span: in[pos].Span}}, nil
	}
}

// DurationFromRaw parses a duration literal's raw text ("100ms", "5s", ...)
// into a time.Duration, used by the evaluator and by think/request option
// decoding.
func DurationFromRaw(raw string) (time.Duration, error) {
	return time.ParseDuration(normalizeDurationUnit(raw))
}

func normalizeDurationUnit(raw string) string {
	// Suffixed text ("100ms", "5s", "2m", "1h") is already a valid Go
	// duration and passes through unchanged; a bare number is read as
	// seconds.
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return raw + "s"
	}
	return raw
}
