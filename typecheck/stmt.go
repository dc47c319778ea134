package typecheck

import "github.com/kairei-project/kairei/ast"

// checkStmt validates one statement, threading the enclosing handler's
// declared return type through for return-type checking (§4.5).
func (c *Checker) checkStmt(stmt ast.Statement, ret ast.TypeInfo) {
	for _, h := range c.hooks {
		if err := h.BeforeStatement(stmt); err != nil {
			c.coll.add(&CheckError{Kind: PluginTypeError, Location: c.loc(), Message: err.Error()})
		}
	}
	c.dispatchStmt(stmt, ret)
	for _, h := range c.hooks {
		if err := h.AfterStatement(stmt); err != nil {
			c.coll.add(&CheckError{Kind: PluginTypeError, Location: c.loc(), Message: err.Error()})
		}
	}
}

func (c *Checker) dispatchStmt(stmt ast.Statement, ret ast.TypeInfo) {
	switch s := stmt.(type) {
	case *ast.AssignmentStmt:
		value := c.checkExpr(s.Value)
		if va, ok := s.Target.(*ast.Variable); ok {
			// Bare `name = expr` declares a fresh local on first use and
			// narrows/checks it on every later assignment (no `let` form
			// exists in the grammar).
			if existing, ok := c.scope.lookup(va.Name); ok {
				if existing != nil && value != nil && !assignable(existing, value) {
					c.mismatch(existing.TypeName(), value.TypeName())
				}
			} else {
				c.scope.define(va.Name, value)
			}
			return
		}
		target := c.checkExpr(s.Target)
		if target != nil && value != nil && !assignable(target, value) {
			c.mismatch(target.TypeName(), value.TypeName())
		}
	case *ast.ReturnStmt:
		var got ast.TypeInfo
		if s.Value != nil {
			got = c.checkExpr(s.Value)
		}
		if ret != nil && got != nil && !resultCompatible(ret, got) {
			c.coll.add(&CheckError{
				Kind: TypeMismatch, Expected: ret.TypeName(), Found: got.TypeName(),
				Location: c.loc(), Message: "return value does not unify with declared return type",
			})
		}
	case *ast.IfStmt:
		cond := c.checkExpr(s.Condition)
		if cond != nil && cond.TypeName() != "Boolean" {
			c.mismatch("Boolean", cond.TypeName())
		}
		c.enterScope()
		for _, st := range s.Then.Statements {
			c.checkStmt(st, ret)
		}
		c.leaveScope()
		if s.Else != nil {
			c.enterScope()
			for _, st := range s.Else.Statements {
				c.checkStmt(st, ret)
			}
			c.leaveScope()
		}
	case *ast.BlockStmt:
		c.enterScope()
		for _, st := range s.Statements {
			c.checkStmt(st, ret)
		}
		c.leaveScope()
	case *ast.ExpressionStmt:
		c.checkExpr(s.Expr)
	case *ast.EmitStmt:
		for _, v := range s.Parameters {
			c.checkExpr(v)
		}
	case *ast.WithErrorStmt:
		c.checkStmt(s.Body, ret)
		c.enterScope()
		if s.Binding != "" {
			c.scope.define(s.Binding, TypeError)
		}
		for _, st := range s.Handler {
			c.checkStmt(st, ret)
		}
		c.leaveScope()
	}
}

// resultCompatible reports whether got unifies with the handler's declared
// return type: exact match, or got is a Result/Option whose payload slots
// are themselves nil (unknown, e.g. from a bare Ok(x)/Err(e)) and line up
// structurally with ret.
func resultCompatible(ret, got ast.TypeInfo) bool {
	if ret.TypeName() == got.TypeName() {
		return true
	}
	rr, rok := ret.(ast.ResultType)
	gr, gok := got.(ast.ResultType)
	if rok && gok {
		okMatch := gr.Ok == nil || assignable(rr.Ok, gr.Ok)
		errMatch := gr.Err == nil || assignable(rr.Err, gr.Err)
		return okMatch && errMatch
	}
	return false
}
