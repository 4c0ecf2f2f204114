package rbc

import (
	"github.com/th3f0rk/betterpython/internal/ast"
	"github.com/th3f0rk/betterpython/internal/builtins"
)

func (c *Compiler) lowerStmt(s *ast.Stmt) error {
	f := c.f
	switch s.Kind {
	case ast.SLet:
		r, err := c.lowerExpr(s.Value)
		if err != nil {
			return err
		}
		if s.DeclType != nil && s.DeclType.Kind == ast.KFloat && s.Value.Inferred != nil && s.Value.Inferred.Kind == ast.KInt {
			fr := f.alloc.AllocTemp()
			f.asm.Un2(OpConvertItoF, fr, r)
			r = fr
		}
		dst := c.declareLocal(s.Name)
		f.asm.Move(dst, r)

	case ast.SAssign:
		r, err := c.lowerExpr(s.Value)
		if err != nil {
			return err
		}
		if s.Target.Inferred != nil && s.Target.Inferred.Kind == ast.KFloat && s.Value.Inferred != nil && s.Value.Inferred.Kind == ast.KInt {
			fr := f.alloc.AllocTemp()
			f.asm.Un2(OpConvertItoF, fr, r)
			r = fr
		}
		if dst, ok := c.lookupLocal(s.Target.Name); ok {
			f.asm.Move(dst, r)
		} else if slot, ok := c.lookupGlobalSlot(s.Target.Name); ok {
			f.asm.StoreGlobal(uint16(slot), r)
		} else {
			return lowerErr("undefined local/global %q reached lowering", s.Target.Name)
		}

	case ast.SIndexedAssign:
		coll, err := c.lowerExpr(s.Target)
		if err != nil {
			return err
		}
		idx, err := c.lowerExpr(s.Index)
		if err != nil {
			return err
		}
		val, err := c.lowerExpr(s.Value)
		if err != nil {
			return err
		}
		if s.Target.Inferred.Kind == ast.KMap {
			f.asm.Bin3(OpMapSet, coll, idx, val)
		} else {
			f.asm.Bin3(OpArraySet, coll, idx, val)
		}

	case ast.SFieldAssign:
		base, err := c.lowerExpr(s.Target)
		if err != nil {
			return err
		}
		val, err := c.lowerExpr(s.Value)
		if err != nil {
			return err
		}
		if s.Target.Inferred.Kind == ast.KClass {
			f.asm.FieldOp(OpClassSet, val, base, uint16(s.FieldIdx))
		} else {
			f.asm.FieldOp(OpStructSet, val, base, uint16(s.FieldIdx))
		}

	case ast.SExpr:
		r, err := c.lowerExpr(s.Expr)
		if err != nil {
			return err
		}
		f.alloc.FreeTemp(r)

	case ast.SIf:
		return c.lowerIf(s)

	case ast.SWhile:
		return c.lowerWhile(s)

	case ast.SRangeFor:
		return c.lowerRangeFor(s)

	case ast.SCollectionFor:
		return c.lowerCollectionFor(s)

	case ast.SBreak:
		loop := f.loops[len(f.loops)-1]
		f.asm.EmitJump(OpJmp, 0, loop.breakLabel)

	case ast.SContinue:
		loop := f.loops[len(f.loops)-1]
		f.asm.EmitJump(OpJmp, 0, loop.continueLabel)

	case ast.SReturn:
		var r byte
		if s.RetVal != nil {
			var err error
			r, err = c.lowerExpr(s.RetVal)
			if err != nil {
				return err
			}
		} else {
			r = f.alloc.AllocTemp()
			f.asm.ConstNull(r)
		}
		f.asm.Ret(r)

	case ast.STry:
		return c.lowerTry(s)

	case ast.SThrow:
		r, err := c.lowerExpr(s.ThrowVal)
		if err != nil {
			return err
		}
		f.asm.Throw(r)

	case ast.SMatch:
		return c.lowerMatch(s)

	default:
		return lowerErr("internal: unhandled statement kind %d in RBC lowering", s.Kind)
	}
	return nil
}

func (c *Compiler) lowerBlock(body []ast.Stmt) error {
	c.pushScope()
	for i := range body {
		if err := c.lowerStmt(&body[i]); err != nil {
			c.popScope()
			return err
		}
	}
	c.popScope()
	return nil
}

// lowerIf mirrors internal/sbc's lowerIf, naming an explicit test register
// on the conditional jump (spec.md §4.3).
func (c *Compiler) lowerIf(s *ast.Stmt) error {
	f := c.f
	cond, err := c.lowerExpr(s.Cond)
	if err != nil {
		return err
	}
	elseLabel := f.asm.NewLabel()
	endLabel := f.asm.NewLabel()
	f.asm.EmitJump(OpJmpIfFalse, cond, elseLabel)
	if err := c.lowerBlock(s.Then); err != nil {
		return err
	}
	f.asm.EmitJump(OpJmp, 0, endLabel)
	f.asm.Mark(elseLabel)
	if err := c.lowerBlock(s.Else); err != nil {
		return err
	}
	f.asm.Mark(endLabel)
	return nil
}

func (c *Compiler) lowerWhile(s *ast.Stmt) error {
	f := c.f
	start := f.asm.NewLabel()
	exit := f.asm.NewLabel()
	f.asm.Mark(start)
	cond, err := c.lowerExpr(s.Cond)
	if err != nil {
		return err
	}
	f.asm.EmitJump(OpJmpIfFalse, cond, exit)
	f.loops = append(f.loops, loopCtx{breakLabel: exit, continueLabel: start})
	if err := c.lowerBlock(s.Body); err != nil {
		return err
	}
	f.loops = f.loops[:len(f.loops)-1]
	f.asm.EmitJump(OpJmp, 0, start)
	f.asm.Mark(exit)
	return nil
}

func (c *Compiler) lowerRangeFor(s *ast.Stmt) error {
	f := c.f
	c.pushScope()
	lo, err := c.lowerExpr(s.Lo)
	if err != nil {
		return err
	}
	iReg := c.declareLocal(s.Var)
	f.asm.Move(iReg, lo)

	start := f.asm.NewLabel()
	incr := f.asm.NewLabel()
	exit := f.asm.NewLabel()
	f.asm.Mark(start)
	hi, err := c.lowerExpr(s.Hi)
	if err != nil {
		return err
	}
	cmp := f.alloc.AllocTemp()
	f.asm.Bin3(OpLtI64, cmp, iReg, hi)
	f.asm.EmitJump(OpJmpIfFalse, cmp, exit)

	f.loops = append(f.loops, loopCtx{breakLabel: exit, continueLabel: incr})
	if err := c.lowerBlock(s.Body); err != nil {
		return err
	}
	f.loops = f.loops[:len(f.loops)-1]

	f.asm.Mark(incr)
	one := f.alloc.AllocTemp()
	f.asm.ConstI64(one, 1)
	f.asm.Bin3(OpAddI64, iReg, iReg, one)
	f.asm.EmitJump(OpJmp, 0, start)
	f.asm.Mark(exit)
	c.popScope()
	return nil
}

func (c *Compiler) lowerCollectionFor(s *ast.Stmt) error {
	f := c.f
	c.pushScope()
	coll, err := c.lowerExpr(s.Coll)
	if err != nil {
		return err
	}
	if s.Coll.Inferred.Kind == ast.KMap {
		keysSig, _ := builtins.Lookup("keys")
		argBase := f.alloc.AllocBlock(1)
		f.asm.Move(argBase, coll)
		keysDst := f.alloc.AllocTemp()
		f.asm.CallBuiltin(keysDst, uint16(keysSig.ID), argBase, 1)
		coll = keysDst
	}
	collReg := c.declareLocal("__for_coll")
	f.asm.Move(collReg, coll)

	idxReg := c.declareLocal("__for_idx")
	f.asm.ConstI64(idxReg, 0)

	start := f.asm.NewLabel()
	incr := f.asm.NewLabel()
	exit := f.asm.NewLabel()
	f.asm.Mark(start)
	lenSig, _ := builtins.Lookup("array_len")
	argBase := f.alloc.AllocBlock(1)
	f.asm.Move(argBase, collReg)
	lenDst := f.alloc.AllocTemp()
	f.asm.CallBuiltin(lenDst, uint16(lenSig.ID), argBase, 1)
	cmp := f.alloc.AllocTemp()
	f.asm.Bin3(OpLtI64, cmp, idxReg, lenDst)
	f.asm.EmitJump(OpJmpIfFalse, cmp, exit)

	elemReg := c.declareLocal(s.Var)
	f.asm.Bin3(OpArrayGet, elemReg, collReg, idxReg)

	f.loops = append(f.loops, loopCtx{breakLabel: exit, continueLabel: incr})
	if err := c.lowerBlock(s.Body); err != nil {
		return err
	}
	f.loops = f.loops[:len(f.loops)-1]

	f.asm.Mark(incr)
	one := f.alloc.AllocTemp()
	f.asm.ConstI64(one, 1)
	f.asm.Bin3(OpAddI64, idxReg, idxReg, one)
	f.asm.EmitJump(OpJmp, 0, start)
	f.asm.Mark(exit)
	c.popScope()
	return nil
}

// lowerTry mirrors internal/sbc's lowerTry: TRY_END falls through to
// finally_addr (or end, if there's no finally), and the catch body falls
// straight through into the finally body instead of jumping past it. The
// register that will receive a thrown value is allocated before the try
// body, per spec.md §4.2/§4.3.
func (c *Compiler) lowerTry(s *ast.Stmt) error {
	f := c.f
	c.pushScope()

	var excReg byte
	if s.Catch != nil {
		excReg = c.declareLocal(s.Catch.BindName)
	} else {
		excReg = f.alloc.AllocTemp()
	}

	catchLabel := f.asm.NewLabel()
	finallyLabel := -1
	if len(s.Finally) > 0 {
		finallyLabel = f.asm.NewLabel()
	}
	f.asm.TryBegin(catchLabel, finallyLabel, excReg)

	if err := c.lowerBlock(s.TryBody); err != nil {
		return err
	}
	f.asm.TryEnd()

	end := f.asm.NewLabel()
	if finallyLabel >= 0 {
		f.asm.EmitJump(OpJmp, 0, finallyLabel)
	} else {
		f.asm.EmitJump(OpJmp, 0, end)
	}

	f.asm.Mark(catchLabel)
	if s.Catch != nil {
		if err := c.lowerBlock(s.Catch.Body); err != nil {
			return err
		}
	}
	// Fall through into the finally block (if any) on both the normal
	// (post-TRY_END jump above) and exceptional (catch body completes here)
	// paths, per spec.md §9: finally must run on both normal and
	// exceptional exit.

	if finallyLabel >= 0 {
		f.asm.Mark(finallyLabel)
		if err := c.lowerBlock(s.Finally); err != nil {
			return err
		}
	}

	f.asm.Mark(end)
	c.popScope()
	return nil
}

func (c *Compiler) lowerMatch(s *ast.Stmt) error {
	f := c.f
	c.pushScope()
	subj, err := c.lowerExpr(s.Subject)
	if err != nil {
		return err
	}
	subjReg := c.declareLocal("__match_subject")
	f.asm.Move(subjReg, subj)

	end := f.asm.NewLabel()
	var defaultCase *ast.MatchCase
	for i := range s.Cases {
		kase := &s.Cases[i]
		if kase.Value == nil {
			defaultCase = kase
			continue
		}
		val, err := c.lowerExpr(kase.Value)
		if err != nil {
			return err
		}
		cmp := f.alloc.AllocTemp()
		f.asm.Bin3(OpEq, cmp, subjReg, val)
		next := f.asm.NewLabel()
		f.asm.EmitJump(OpJmpIfFalse, cmp, next)
		if err := c.lowerBlock(kase.Body); err != nil {
			return err
		}
		f.asm.EmitJump(OpJmp, 0, end)
		f.asm.Mark(next)
	}
	if defaultCase != nil {
		if err := c.lowerBlock(defaultCase.Body); err != nil {
			return err
		}
	}
	f.asm.Mark(end)
	c.popScope()
	return nil
}
