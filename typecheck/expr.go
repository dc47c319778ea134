package typecheck

import "github.com/kairei-project/kairei/ast"

// checkExpr infers expr's type, recording any CheckErrors it finds along the
// way. It always returns its best guess at a type (possibly nil) so that a
// caller higher in the tree can keep checking instead of aborting on the
// first mistake (§4.5 failure policy: continue collecting).
func (c *Checker) checkExpr(expr ast.Expression) ast.TypeInfo {
	for _, h := range c.hooks {
		if err := h.BeforeExpression(expr); err != nil {
			c.coll.add(&CheckError{Kind: PluginTypeError, Location: c.loc(), Message: err.Error()})
		}
	}
	t := c.inferExpr(expr)
	for _, h := range c.hooks {
		if err := h.AfterExpression(expr, t); err != nil {
			c.coll.add(&CheckError{Kind: PluginTypeError, Location: c.loc(), Message: err.Error()})
		}
	}
	return t
}

func (c *Checker) inferExpr(expr ast.Expression) ast.TypeInfo {
	switch e := expr.(type) {
	case ast.Literal:
		return c.checkLiteral(e)
	case *ast.Variable:
		t, ok := c.scope.lookup(e.Name)
		if !ok {
			c.coll.add(&CheckError{
				Kind: UndefinedVariable, Location: c.loc(),
				Message: "undefined variable " + e.Name,
			})
			return nil
		}
		return t
	case *ast.StateAccess:
		if len(e.Path) < 2 {
			c.coll.add(&CheckError{Kind: UndefinedVariable, Location: c.loc(), Message: "empty state access"})
			return nil
		}
		t, ok := c.scope.lookup(e.Path[1])
		if !ok {
			c.coll.add(&CheckError{
				Kind: UndefinedVariable, Location: c.loc(),
				Message: "undefined state variable " + e.Path[1],
			})
			return nil
		}
		return t
	case *ast.BinaryOp:
		return c.checkBinaryOp(e)
	case *ast.UnaryOp:
		return c.checkUnaryOp(e)
	case *ast.Think:
		return c.checkThink(e)
	case *ast.Request:
		return c.checkRequest(e)
	case *ast.OkExpr:
		inner := c.checkExpr(e.Inner)
		return ast.ResultType{Ok: inner, Err: nil}
	case *ast.ErrExpr:
		inner := c.checkExpr(e.Inner)
		return ast.ResultType{Ok: nil, Err: inner}
	case *ast.FunctionCall:
		for _, a := range e.Args {
			c.checkExpr(a)
		}
		return nil // built-in/runtime-resolved functions aren't in the static type registry
	case *ast.Await:
		return c.checkExpr(e.Inner)
	default:
		return nil
	}
}

func (c *Checker) checkLiteral(l ast.Literal) ast.TypeInfo {
	for _, part := range l.StringParts {
		if part.IsExpression && part.Expr != nil {
			c.checkExpr(part.Expr)
		}
	}
	switch l.Kind {
	case ast.LitInt:
		return TypeInt
	case ast.LitFloat:
		return TypeFloat
	case ast.LitString:
		return TypeString
	case ast.LitBool:
		return TypeBoolean
	case ast.LitDuration:
		return TypeDuration
	default:
		return nil
	}
}

// checkBinaryOp applies the promotion table from §4.5.
func (c *Checker) checkBinaryOp(b *ast.BinaryOp) ast.TypeInfo {
	left := c.checkExpr(b.Left)
	right := c.checkExpr(b.Right)
	if left == nil || right == nil {
		return nil
	}
	ln, rn := left.TypeName(), right.TypeName()

	switch b.Op {
	case "==", "!=":
		return TypeBoolean
	case "&&", "||":
		if ln != "Boolean" || rn != "Boolean" {
			c.mismatch("Boolean", ln+" "+b.Op+" "+rn)
			return nil
		}
		return TypeBoolean
	case "<", "<=", ">", ">=":
		if !isNumeric(ln) || !isNumeric(rn) {
			c.mismatch("numeric", ln+" "+b.Op+" "+rn)
			return nil
		}
		return TypeBoolean
	case "+":
		if ln == "String" || rn == "String" {
			return TypeString
		}
		return arithmeticResult(c, ln, rn, b.Op)
	case "-", "*", "/", "%":
		return arithmeticResult(c, ln, rn, b.Op)
	default:
		c.coll.add(&CheckError{Kind: TypeMismatch, Location: c.loc(), Message: "unknown operator " + b.Op})
		return nil
	}
}

func arithmeticResult(c *Checker, ln, rn, op string) ast.TypeInfo {
	if !isNumeric(ln) || !isNumeric(rn) {
		c.mismatch("numeric", ln+" "+op+" "+rn)
		return nil
	}
	if ln == "Float" || rn == "Float" {
		return TypeFloat
	}
	return TypeInt
}

func isNumeric(name string) bool { return name == "Int" || name == "Float" }

func (c *Checker) mismatch(expected, found string) {
	c.coll.add(&CheckError{Kind: TypeMismatch, Expected: expected, Found: found, Location: c.loc()})
}

func (c *Checker) checkUnaryOp(u *ast.UnaryOp) ast.TypeInfo {
	t := c.checkExpr(u.Operand)
	if t == nil {
		return nil
	}
	switch u.Op {
	case "!":
		if t.TypeName() != "Boolean" {
			c.mismatch("Boolean", t.TypeName())
			return nil
		}
		return TypeBoolean
	case "-":
		if !isNumeric(t.TypeName()) {
			c.mismatch("numeric", t.TypeName())
			return nil
		}
		return t
	default:
		return nil
	}
}

// checkThink validates a Think block (§4.10): it must carry at least one
// argument to send the provider, and any `with` attribute values are
// literals, already enforced by the grammar.
func (c *Checker) checkThink(t *ast.Think) ast.TypeInfo {
	if len(t.Args) == 0 {
		c.coll.add(&CheckError{
			Kind: InvalidThinkBlock, Location: c.loc(),
			Message: "think block requires at least one argument",
		})
	}
	for _, a := range t.Args {
		c.checkExpr(a)
	}
	return TypeString
}

// checkRequest resolves the callee's declared answer-handler return type
// when the target agent is defined in the same Root (cross-agent sigs are
// collected once per CheckRoot call); otherwise it cannot be statically
// verified and no error is raised (the request manager enforces it at
// runtime, §4.7).
func (c *Checker) checkRequest(r *ast.Request) ast.TypeInfo {
	for _, v := range r.Parameters {
		c.checkExpr(v)
	}
	if t, ok := c.answerSigs[r.Agent+"."+r.RequestType]; ok {
		return t
	}
	return nil
}
