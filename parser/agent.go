package parser

import (
	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/token"
)

func policyList() Parser[[]string] {
	one := Seq2(Keyword("policy"), Tok(token.KindLiteral))
	p := Many(Map(one, func(v Pair[token.Token, token.Token]) string {
		if v.Second.LiteralKind != token.LiteralString {
			return v.Second.Text
		}
		text := ""
		for _, part := range v.Second.StringParts {
			text += part.Text
		}
		return text
	}))
	return p
}

func stateSection() Parser[*ast.StateDef] {
	variable := func(in Input, pos int) (Result[*ast.StateVariable], error) {
		nameR, err := Ident()(in, pos)
		if err != nil {
			return Result[*ast.StateVariable]{}, err
		}
		colonR, err := Op(":")(in, nameR.Pos)
		if err != nil {
			return Result[*ast.StateVariable]{}, err
		}
		typeR, err := TypeInfoParser()(in, colonR.Pos)
		if err != nil {
			return Result[*ast.StateVariable]{}, err
		}
		cur := typeR.Pos
		var initial ast.Expression
		if eq, eqErr := Op("=")(in, cur); eqErr == nil {
			valR, valErr := Expression()(in, eq.Pos)
			if valErr != nil {
				return Result[*ast.StateVariable]{}, valErr
			}
			initial = valR.Value
			cur = valR.Pos
		}
		if semi, semiErr := Delim(";")(in, cur); semiErr == nil {
			cur = semi.Pos
		}
		return Result[*ast.StateVariable]{Pos: cur, Value: &ast.StateVariable{
			Name: nameR.Value, Type: typeR.Value, InitialValue: initial,
		}}, nil
	}

	body := Delimited(Delim("{"), Many(variable), Delim("}"))
	p := Seq2(Keyword("state"), body)
	return Map(p, func(v Pair[token.Token, []*ast.StateVariable]) *ast.StateDef {
		vars := make(map[string]*ast.StateVariable, len(v.Second))
		order := make([]string, 0, len(v.Second))
		for _, sv := range v.Second {
			vars[sv.Name] = sv
			order = append(order, sv.Name)
		}
		return &ast.StateDef{Variables: vars, Order: order, Span: v.First.Span}
	})
}

func lifecycleSection() Parser[*ast.LifecycleDef] {
	hook := func(kw string) Parser[[]ast.Statement] {
		p := Seq2(Keyword(kw), blockBody())
		return Map(p, func(v Pair[token.Token, []ast.Statement]) []ast.Statement { return v.Second })
	}
	onInit := Optional(hook("onInit"))
	onDestroy := Optional(hook("onDestroy"))
	inner := Seq2(onInit, onDestroy)
	body := Delimited(Delim("{"), inner, Delim("}"))
	p := Seq2(Keyword("lifecycle"), body)
	return Map(p, func(v Pair[token.Token, Pair[*[]ast.Statement, *[]ast.Statement]]) *ast.LifecycleDef {
		ld := &ast.LifecycleDef{Span: v.First.Span}
		if v.Second.First != nil {
			ld.OnInit = &ast.HandlerBlock{Statements: *v.Second.First}
		}
		if v.Second.Second != nil {
			ld.OnDestroy = &ast.HandlerBlock{Statements: *v.Second.Second}
		}
		return ld
	})
}

func observeSection() Parser[*ast.ObserveDef] {
	body := Delimited(Delim("{"), Many(observeOrReactHandler()), Delim("}"))
	p := Seq2(Keyword("observe"), body)
	return Map(p, func(v Pair[token.Token, []*ast.HandlerDef]) *ast.ObserveDef {
		return &ast.ObserveDef{Handlers: v.Second, Span: v.First.Span}
	})
}

func reactSection() Parser[*ast.ReactDef] {
	body := Delimited(Delim("{"), Many(observeOrReactHandler()), Delim("}"))
	p := Seq2(Keyword("react"), body)
	return Map(p, func(v Pair[token.Token, []*ast.HandlerDef]) *ast.ReactDef {
		return &ast.ReactDef{Handlers: v.Second, Span: v.First.Span}
	})
}

func answerSection() Parser[*ast.AnswerDef] {
	body := Delimited(Delim("{"), Many(answerHandler()), Delim("}"))
	p := Seq2(Keyword("answer"), body)
	return Map(p, func(v Pair[token.Token, []*ast.HandlerDef]) *ast.AnswerDef {
		return &ast.AnswerDef{Handlers: v.Second, Span: v.First.Span}
	})
}

// MicroAgent parses one `micro Name { policy* state? lifecycle? observe?
// answer? react? }` definition. Sections may appear in any order in source
// (§4.4 "each section's handlers parsed uniformly"); this parser accepts
// them in any order and rejects duplicates.
func MicroAgent() Parser[*ast.MicroAgentDef] {
	return func(in Input, pos int) (Result[*ast.MicroAgentDef], error) {
		microTok, err := Keyword("micro")(in, pos)
		if err != nil {
			return Result[*ast.MicroAgentDef]{}, err
		}
		name, err := TypeName()(in, microTok.Pos)
		if err != nil {
			return Result[*ast.MicroAgentDef]{}, &ParseError{Message: err.Error(), Span: spanAt(in, microTok.Pos), Fatal: true}
		}
		openR, err := Delim("{")(in, name.Pos)
		if err != nil {
			return Result[*ast.MicroAgentDef]{}, &ParseError{Message: err.Error(), Span: spanAt(in, name.Pos), Fatal: true}
		}

		def := &ast.MicroAgentDef{Name: name.Value, Span: microTok.Value.Span}
		cur := openR.Pos

		for {
			if r, closeErr := Delim("}")(in, cur); closeErr == nil {
				cur = r.Pos
				break
			}
			if r, e := policyList()(in, cur); e == nil && r.Pos > cur {
				def.Policies = append(def.Policies, r.Value...)
				cur = r.Pos
				continue
			}
			if r, e := stateSection()(in, cur); e == nil {
				if def.State != nil {
					return Result[*ast.MicroAgentDef]{}, fail(in, cur, "duplicate state section")
				}
				def.State = r.Value
				cur = r.Pos
				continue
			}
			if r, e := lifecycleSection()(in, cur); e == nil {
				if def.Lifecycle != nil {
					return Result[*ast.MicroAgentDef]{}, fail(in, cur, "duplicate lifecycle section")
				}
				def.Lifecycle = r.Value
				cur = r.Pos
				continue
			}
			if r, e := observeSection()(in, cur); e == nil {
				if def.Observe != nil {
					return Result[*ast.MicroAgentDef]{}, fail(in, cur, "duplicate observe section")
				}
				def.Observe = r.Value
				cur = r.Pos
				continue
			}
			if r, e := answerSection()(in, cur); e == nil {
				if def.Answer != nil {
					return Result[*ast.MicroAgentDef]{}, fail(in, cur, "duplicate answer section")
				}
				def.Answer = r.Value
				cur = r.Pos
				continue
			}
			if r, e := reactSection()(in, cur); e == nil {
				if def.React != nil {
					return Result[*ast.MicroAgentDef]{}, fail(in, cur, "duplicate react section")
				}
				def.React = r.Value
				cur = r.Pos
				continue
			}
			return Result[*ast.MicroAgentDef]{}, fail(in, cur, "expected a policy, state, lifecycle, observe, answer or react section, or '}'")
		}

		return Result[*ast.MicroAgentDef]{Pos: cur, Value: def}, nil
	}
}

// SistenceAgent accepts the grammar (so the parser never rejects valid
// source) but produces a placeholder the type checker always rejects
// (§9 Open Question b).
func SistenceAgent() Parser[*ast.SistenceAgentDef] {
	return func(in Input, pos int) (Result[*ast.SistenceAgentDef], error) {
		kwTok, err := Keyword("sistence")(in, pos)
		if err != nil {
			return Result[*ast.SistenceAgentDef]{}, err
		}
		name, err := TypeName()(in, kwTok.Pos)
		if err != nil {
			return Result[*ast.SistenceAgentDef]{}, &ParseError{Message: err.Error(), Span: spanAt(in, kwTok.Pos), Fatal: true}
		}
		// Consume a balanced brace body without interpreting it.
		cur := name.Pos
		openR, err := Delim("{")(in, cur)
		if err != nil {
			return Result[*ast.SistenceAgentDef]{}, &ParseError{Message: err.Error(), Span: spanAt(in, cur), Fatal: true}
		}
		depth := 1
		cur = openR.Pos
		for depth > 0 {
			if cur >= len(in) {
				return Result[*ast.SistenceAgentDef]{}, fail(in, cur, "unterminated sistence block")
			}
			switch {
			case in[cur].Kind == token.KindDelimiter && in[cur].Text == "{":
				depth++
			case in[cur].Kind == token.KindDelimiter && in[cur].Text == "}":
				depth--
			}
			cur++
		}
		return Result[*ast.SistenceAgentDef]{Pos: cur, Value: &ast.SistenceAgentDef{
			Name: name.Value, Span: kwTok.Value.Span,
		}}, nil
	}
}

// World parses the optional `world Name { policy* }` block.
func World() Parser[*ast.WorldDef] {
	body := Delimited(Delim("{"), policyList(), Delim("}"))
	p := Seq3(Keyword("world"), TypeName(), body)
	return Map(p, func(v Pair[Pair[token.Token, string], []string]) *ast.WorldDef {
		return &ast.WorldDef{Name: v.First.Second, Policies: v.Second, Span: v.First.First.Span}
	})
}
