package parser

import (
	"github.com/kairei-project/kairei/ast"
	"github.com/kairei-project/kairei/token"
)

// Statement parses one statement: assignment, return, if/else, block,
// with/onFail, or a bare expression statement (§4.4).
func Statement() Parser[ast.Statement] {
	return Lazy(func() Parser[ast.Statement] {
		return Choice(
			withErrorStmt(),
			returnStmt(),
			ifStmt(),
			blockStmtAsStatement(),
			emitStmt(),
			assignmentStmt(),
			expressionStmt(),
		)
	})
}

// emitStmt parses `emit <EventName>(args...)`, where each arg may be a bare
// expression (assigned positionally as arg0, arg1, ...) or `key: expr`.
func emitStmt() Parser[ast.Statement] {
	return func(in Input, pos int) (Result[ast.Statement], error) {
		kw, err := Keyword("emit")(in, pos)
		if err != nil {
			return Result[ast.Statement]{}, err
		}
		name, err := NameLike()(in, kw.Pos)
		if err != nil {
			return Result[ast.Statement]{}, &ParseError{Message: err.Error(), Span: spanAt(in, kw.Pos), Fatal: true}
		}
		params := map[string]ast.Expression{}
		cur := name.Pos
		if openR, openErr := Delim("(")(in, cur); openErr == nil {
			cur = openR.Pos
			idx := 0
			for {
				if closeR, closeErr := Delim(")")(in, cur); closeErr == nil {
					cur = closeR.Pos
					break
				}
				if idx > 0 {
					commaR, commaErr := Delim(",")(in, cur)
					if commaErr != nil {
						return Result[ast.Statement]{}, commaErr
					}
					cur = commaR.Pos
				}
				key := ""
				afterKey := cur
				if identR, identErr := Ident()(in, cur); identErr == nil {
					if colonR, colonErr := Op(":")(in, identR.Pos); colonErr == nil {
						key = identR.Value
						afterKey = colonR.Pos
					}
				}
				exprR, exprErr := Expression()(in, afterKey)
				if exprErr != nil {
					return Result[ast.Statement]{}, exprErr
				}
				if key == "" {
					key = argName(idx)
				}
				params[key] = exprR.Value
				cur = exprR.Pos
				idx++
			}
		}
		return Result[ast.Statement]{Pos: cur, Value: &ast.EmitStmt{
			EventName: name.Value, Parameters: params, Span: kw.Value.Span,
		}}, nil
	}
}

func argName(i int) string {
	digits := []byte("0123456789")
	if i < 10 {
		return "arg" + string(digits[i])
	}
	return "argN"
}

func assignmentTarget() Parser[ast.Expression] {
	return Choice(stateAccessExpr(), variableExpr())
}

func assignmentStmt() Parser[ast.Statement] {
	p := Seq3(assignmentTarget(), Op("="), Expression())
	return Map(p, func(v Pair[Pair[ast.Expression, token.Token], ast.Expression]) ast.Statement {
		target := v.First.First
		return &ast.AssignmentStmt{Target: target, Value: v.Second, Span: target.ExprSpan()}
	})
}

func returnStmt() Parser[ast.Statement] {
	p := Seq2(Keyword("return"), Optional(Expression()))
	return Map(p, func(v Pair[token.Token, *ast.Expression]) ast.Statement {
		var val ast.Expression
		if v.Second != nil {
			val = *v.Second
		}
		return &ast.ReturnStmt{Value: val, Span: v.First.Span}
	})
}

func blockBody() Parser[[]ast.Statement] {
	return Delimited(Delim("{"), Many(Statement()), Delim("}"))
}

func blockStmt() Parser[*ast.BlockStmt] {
	p := Seq2(Delim("{"), Seq2(Many(Statement()), Delim("}")))
	return Map(p, func(v Pair[token.Token, Pair[[]ast.Statement, token.Token]]) *ast.BlockStmt {
		return &ast.BlockStmt{Statements: v.Second.First, Span: v.First.Span}
	})
}

func blockStmtAsStatement() Parser[ast.Statement] {
	return Map(blockStmt(), func(b *ast.BlockStmt) ast.Statement { return b })
}

func ifStmt() Parser[ast.Statement] {
	return func(in Input, pos int) (Result[ast.Statement], error) {
		kw, err := Keyword("if")(in, pos)
		if err != nil {
			return Result[ast.Statement]{}, err
		}
		cond, err := Expression()(in, kw.Pos)
		if err != nil {
			return Result[ast.Statement]{}, err
		}
		then, err := blockStmt()(in, cond.Pos)
		if err != nil {
			return Result[ast.Statement]{}, err
		}
		cur := then.Pos
		var elseBlock *ast.BlockStmt
		if r, elseErr := Keyword("else")(in, cur); elseErr == nil {
			// `else if` nests a single IfStmt in a synthetic BlockStmt.
			if nested, nestErr := ifStmt()(in, r.Pos); nestErr == nil {
				elseBlock = &ast.BlockStmt{Statements: []ast.Statement{nested.Value}, Span: nested.Value.StmtSpan()}
				cur = nested.Pos
			} else {
				blk, blkErr := blockStmt()(in, r.Pos)
				if blkErr != nil {
					return Result[ast.Statement]{}, blkErr
				}
				elseBlock = blk.Value
				cur = blk.Pos
			}
		}
		return Result[ast.Statement]{Pos: cur, Value: &ast.IfStmt{
			Condition: cond.Value, Then: then.Value, Else: elseBlock, Span: kw.Value.Span,
		}}, nil
	}
}

func expressionStmt() Parser[ast.Statement] {
	return Map(Expression(), func(e ast.Expression) ast.Statement {
		return &ast.ExpressionStmt{Expr: e, Span: e.ExprSpan()}
	})
}

// withErrorStmt parses `with <stmt> onFail (binding) { statements }` (§4.4,
// §9 Open Question c: execution continues after the onFail block unless its
// body runs an explicit `return`, which the evaluator's block loop sees as a
// ControlReturn result; the grammar does not track it).
func withErrorStmt() Parser[ast.Statement] {
	bodyStmt := Choice(assignmentStmt(), expressionStmt(), blockStmtAsStatement())
	binding := Optional(Delimited(Delim("("), Ident(), Delim(")")))
	p := Seq3(
		Seq2(Keyword("with"), bodyStmt),
		Seq2(Keyword("onFail"), binding),
		blockBody(),
	)
	return Map(p, func(v Pair[Pair[Pair[token.Token, ast.Statement], Pair[token.Token, *string]], []ast.Statement]) ast.Statement {
		binding := ""
		if v.First.Second.Second != nil {
			binding = *v.First.Second.Second
		}
		return &ast.WithErrorStmt{
			Body:    v.First.First.Second,
			Binding: binding,
			Handler: v.Second,
			Control: ast.ControlContinue,
			Span:    v.First.First.First.Span,
		}
	})
}
