package parser

import (
	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/token"
)

func paramList() Parser[[]*ast.Parameter] {
	entry := Seq3(Ident(), Op(":"), TypeInfoParser())
	params := SeparatedList(entry, Delim(","))
	list := Delimited(Delim("("), params, Delim(")"))
	return Map(list, func(entries []Pair[Pair[string, token.Token], ast.TypeInfo]) []*ast.Parameter {
		out := make([]*ast.Parameter, len(entries))
		for i, e := range entries {
			out[i] = &ast.Parameter{Name: e.First.First, Type: e.Second}
		}
		return out
	})
}

// observeOrReactHandler parses `on <Event>(<params>) { block }`, used by both
// observe{} and react{} sections.
func observeOrReactHandler() Parser[*ast.HandlerDef] {
	return func(in Input, pos int) (Result[*ast.HandlerDef], error) {
		onTok, err := Keyword("on")(in, pos)
		if err != nil {
			return Result[*ast.HandlerDef]{}, err
		}
		name, err := NameLike()(in, onTok.Pos)
		if err != nil {
			return Result[*ast.HandlerDef]{}, err
		}
		params, err := paramList()(in, name.Pos)
		if err != nil {
			return Result[*ast.HandlerDef]{}, err
		}
		body, err := blockBody()(in, params.Pos)
		if err != nil {
			return Result[*ast.HandlerDef]{}, &ParseError{Message: err.Error(), Span: spanAt(in, params.Pos), Fatal: true}
		}
		return Result[*ast.HandlerDef]{Pos: body.Pos, Value: &ast.HandlerDef{
			EventName:  name.Value,
			Parameters: params.Value,
			Block:      &ast.HandlerBlock{Statements: body.Value, Span: onTok.Value.Span},
			Span:       onTok.Value.Span,
		}}, nil
	}
}

// answerHandler parses `on request <Req>(<params>) -> Result<T,E> [with {...}] { block }`.
func answerHandler() Parser[*ast.HandlerDef] {
	return func(in Input, pos int) (Result[*ast.HandlerDef], error) {
		onTok, err := Keyword("on")(in, pos)
		if err != nil {
			return Result[*ast.HandlerDef]{}, err
		}
		cur, err := Keyword("request")(in, onTok.Pos)
		if err != nil {
			return Result[*ast.HandlerDef]{}, err
		}
		name, err := NameLike()(in, cur.Pos)
		if err != nil {
			return Result[*ast.HandlerDef]{}, err
		}
		params, err := paramList()(in, name.Pos)
		if err != nil {
			return Result[*ast.HandlerDef]{}, err
		}
		arrow, err := Op("->")(in, params.Pos)
		if err != nil {
			return Result[*ast.HandlerDef]{}, &ParseError{Message: err.Error(), Span: spanAt(in, params.Pos), Fatal: true}
		}
		retType, err := TypeInfoParser()(in, arrow.Pos)
		if err != nil {
			return Result[*ast.HandlerDef]{}, &ParseError{Message: err.Error(), Span: spanAt(in, arrow.Pos), Fatal: true}
		}
		with, err := withAttributes()(in, retType.Pos)
		if err != nil {
			return Result[*ast.HandlerDef]{}, err
		}
		body, err := blockBody()(in, with.Pos)
		if err != nil {
			return Result[*ast.HandlerDef]{}, &ParseError{Message: err.Error(), Span: spanAt(in, with.Pos), Fatal: true}
		}
		return Result[*ast.HandlerDef]{Pos: body.Pos, Value: &ast.HandlerDef{
			EventName:  name.Value,
			IsRequest:  true,
			Parameters: params.Value,
			ReturnType: retType.Value,
			With:       with.Value,
			Block:      &ast.HandlerBlock{Statements: body.Value, Span: onTok.Value.Span},
			Span:       onTok.Value.Span,
		}}, nil
	}
}
