package check

import "github.com/th3f0rk/betterpython/internal/ast"

func (c *Context) checkBlock(body []ast.Stmt, retType *ast.Type) {
	c.pushScope()
	for i := range body {
		c.checkStmt(&body[i], retType)
	}
	c.popScope()
}

func (c *Context) checkStmt(s *ast.Stmt, retType *ast.Type) {
	switch s.Kind {
	case ast.SLet:
		if c.definedInCurrentScope(s.Name) {
			c.errorf(s.Line, "duplicate local %q in the same scope", s.Name)
		}
		c.checkExpr(s.Value)
		if s.DeclType == nil {
			s.DeclType = s.Value.Inferred
		} else {
			c.coerceAssign(s.DeclType, s.Value)
		}
		c.declare(s.Name, s.DeclType)

	case ast.SAssign:
		c.checkExpr(s.Target)
		c.checkExpr(s.Value)
		c.coerceAssign(s.Target.Inferred, s.Value)

	case ast.SIndexedAssign:
		c.checkExpr(s.Target)
		c.checkExpr(s.Index)
		c.checkExpr(s.Value)
		ct := s.Target.Inferred
		switch ct.Kind {
		case ast.KArray:
			if !assignable(ct.Elem, s.Value.Inferred) {
				c.errorf(s.Line, "array element assignment: cannot use %s as %s", s.Value.Inferred, ct.Elem)
			}
		case ast.KMap:
			if !ast.Equal(ct.Key, s.Index.Inferred) {
				c.errorf(s.Line, "map assignment: key type %s does not match %s", s.Index.Inferred, ct.Key)
			}
			if !assignable(ct.Value, s.Value.Inferred) {
				c.errorf(s.Line, "map assignment: cannot use %s as %s", s.Value.Inferred, ct.Value)
			}
		default:
			c.errorf(s.Line, "cannot index-assign into type %s", ct)
		}

	case ast.SFieldAssign:
		c.checkExpr(s.Target)
		c.checkExpr(s.Value)
		bt := s.Target.Inferred
		var fields map[string]int
		var fieldTy []*ast.Type
		switch bt.Kind {
		case ast.KStruct:
			fields, fieldTy = c.structs[bt.Name], c.structTy[bt.Name]
		case ast.KClass:
			if info, ok := c.classes[bt.Name]; ok {
				fields, fieldTy = c.fieldsOf(info)
			}
		default:
			c.errorf(s.Line, "cannot assign field %q on non-struct/class type %s", s.Field, bt)
		}
		if fields != nil {
			idx, ok := fields[s.Field]
			if !ok {
				c.errorf(s.Line, "type %s has no field %q", bt, s.Field)
			} else {
				s.FieldIdx = idx
				if !assignable(fieldTy[idx], s.Value.Inferred) {
					c.errorf(s.Line, "field %s.%s: cannot use %s as %s", bt, s.Field, s.Value.Inferred, fieldTy[idx])
				}
			}
		}

	case ast.SExpr:
		c.checkExpr(s.Expr)

	case ast.SIf:
		c.checkExpr(s.Cond)
		if s.Cond.Inferred.Kind != ast.KBool {
			c.errorf(s.Line, "if condition must be bool, got %s", s.Cond.Inferred)
		}
		c.checkBlock(s.Then, retType)
		c.checkBlock(s.Else, retType)

	case ast.SWhile:
		c.checkExpr(s.Cond)
		if s.Cond.Inferred.Kind != ast.KBool {
			c.errorf(s.Line, "while condition must be bool, got %s", s.Cond.Inferred)
		}
		c.loopDepth++
		c.checkBlock(s.Body, retType)
		c.loopDepth--

	case ast.SRangeFor:
		c.checkExpr(s.Lo)
		c.checkExpr(s.Hi)
		if !s.Lo.Inferred.IsInteger() || !s.Hi.Inferred.IsInteger() {
			c.errorf(s.Line, "range bounds must be integers")
		}
		c.pushScope()
		c.declare(s.Var, ast.Int)
		c.loopDepth++
		for i := range s.Body {
			c.checkStmt(&s.Body[i], retType)
		}
		c.loopDepth--
		c.popScope()

	case ast.SCollectionFor:
		c.checkExpr(s.Coll)
		var elemTy *ast.Type
		switch s.Coll.Inferred.Kind {
		case ast.KArray:
			elemTy = s.Coll.Inferred.Elem
		case ast.KMap:
			elemTy = s.Coll.Inferred.Key // spec.md §4.2: maps substitute c := keys(c)
		default:
			c.errorf(s.Line, "cannot range over value of type %s", s.Coll.Inferred)
			elemTy = ast.Void
		}
		c.pushScope()
		c.declare(s.Var, elemTy)
		c.loopDepth++
		for i := range s.Body {
			c.checkStmt(&s.Body[i], retType)
		}
		c.loopDepth--
		c.popScope()

	case ast.SBreak, ast.SContinue:
		if c.loopDepth == 0 {
			c.errorf(s.Line, "%v outside a loop", s.Kind)
		}

	case ast.SReturn:
		if s.RetVal != nil {
			c.checkExpr(s.RetVal)
			if !assignable(retType, s.RetVal.Inferred) {
				c.errorf(s.Line, "return: cannot use %s as %s", s.RetVal.Inferred, retType)
			}
		} else if retType != nil && retType.Kind != ast.KVoid {
			c.errorf(s.Line, "return: missing value for non-void function")
		}

	case ast.STry:
		c.checkBlock(s.TryBody, retType)
		if s.Catch != nil {
			c.pushScope()
			c.declare(s.Catch.BindName, ast.Void) // the caught value's type is dynamic
			for i := range s.Catch.Body {
				c.checkStmt(&s.Catch.Body[i], retType)
			}
			c.popScope()
		}
		c.checkBlock(s.Finally, retType)

	case ast.SThrow:
		c.checkExpr(s.ThrowVal)

	case ast.SMatch:
		c.checkExpr(s.Subject)
		for i := range s.Cases {
			if s.Cases[i].Value != nil {
				c.checkExpr(s.Cases[i].Value)
				if !ast.Equal(s.Subject.Inferred, s.Cases[i].Value.Inferred) {
					c.errorf(s.Line, "match: case type %s does not match subject type %s", s.Cases[i].Value.Inferred, s.Subject.Inferred)
				}
			}
			c.checkBlock(s.Cases[i].Body, retType)
		}

	default:
		c.errorf(s.Line, "internal: unhandled statement kind %d", s.Kind)
	}
}
