package parser

import (
	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/token"
)

// TypeInfoParser recognises §4.4's type grammar: Simple, Result<T,E>,
// Option<T>, Array<T>, and Custom{...}.
func TypeInfoParser() Parser[ast.TypeInfo] {
	return Lazy(func() Parser[ast.TypeInfo] {
		return Choice(
			resultType(),
			optionType(),
			arrayType(),
			customType(),
			simpleType(),
		)
	})
}

func simpleType() Parser[ast.TypeInfo] {
	return Map(NameLike(), func(name string) ast.TypeInfo {
		return ast.SimpleType{Name: name}
	})
}

func resultType() Parser[ast.TypeInfo] {
	p := WithContext(Seq2(
		Seq2(Map(Keyword("Result"), func(t token.Token) string { return t.Text }), Op("<")),
		Seq2(Seq2(TypeInfoParser(), Delim(",")), Seq2(TypeInfoParser(), Op(">"))),
	), "Result<T,E>")
	return Map(p, func(v Pair[Pair[string, token.Token], Pair[Pair[ast.TypeInfo, token.Token], Pair[ast.TypeInfo, token.Token]]]) ast.TypeInfo {
		return ast.ResultType{Ok: v.Second.First.First, Err: v.Second.Second.First}
	})
}

func optionType() Parser[ast.TypeInfo] {
	p := WithContext(Seq3(Expected(NameLike(), "Option"), Op("<"), Seq2(TypeInfoParser(), Op(">"))), "Option<T>")
	return Map(p, func(v Pair[Pair[string, token.Token], Pair[ast.TypeInfo, token.Token]]) ast.TypeInfo {
		return ast.OptionType{Inner: v.Second.First}
	})
}

func arrayType() Parser[ast.TypeInfo] {
	p := WithContext(Seq3(Expected(NameLike(), "Array"), Op("<"), Seq2(TypeInfoParser(), Op(">"))), "Array<T>")
	return Map(p, func(v Pair[Pair[string, token.Token], Pair[ast.TypeInfo, token.Token]]) ast.TypeInfo {
		return ast.ArrayType{Inner: v.Second.First}
	})
}

func customType() Parser[ast.TypeInfo] {
	field := Seq3(Ident(), Op(":"), TypeInfoParser())
	fields := SeparatedList(field, Delim(","))
	body := Delimited(Delim("{"), fields, Delim("}"))
	p := WithContext(Seq2(TypeName(), body), "Custom{...}")
	return Map(p, func(v Pair[string, []Pair[Pair[string, token.Token], ast.TypeInfo]]) ast.TypeInfo {
		fields := make(map[string]ast.FieldInfo, len(v.Second))
		for _, f := range v.Second {
			name := f.First.First
			fields[name] = ast.FieldInfo{Name: name, Type: f.Second}
		}
		return ast.CustomType{Name: v.First, Fields: fields}
	})
}
