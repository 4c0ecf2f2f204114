package sbc

import (
	"github.com/th3f0rk/betterpython/internal/ast"
	"github.com/th3f0rk/betterpython/internal/builtins"
)

func (c *Compiler) lowerStmt(s *ast.Stmt) error {
	f := c.f
	switch s.Kind {
	case ast.SLet:
		if err := c.lowerExpr(s.Value); err != nil {
			return err
		}
		if s.DeclType != nil && s.DeclType.Kind == ast.KFloat && s.Value.Inferred != nil && s.Value.Inferred.Kind == ast.KInt {
			f.asm.Simple0(OpConvertItoF)
		}
		slot := c.declareLocal(s.Name)
		f.asm.Slot16(OpStoreLocal, slot)

	case ast.SAssign:
		if err := c.lowerExpr(s.Value); err != nil {
			return err
		}
		if s.Target.Inferred != nil && s.Target.Inferred.Kind == ast.KFloat && s.Value.Inferred != nil && s.Value.Inferred.Kind == ast.KInt {
			f.asm.Simple0(OpConvertItoF)
		}
		if slot, ok := c.lookupLocal(s.Target.Name); ok {
			f.asm.Slot16(OpStoreLocal, slot)
		} else if slot, ok := c.lookupGlobalSlot(s.Target.Name); ok {
			f.asm.Slot16(OpStoreGlobal, uint16(slot))
		} else {
			return lowerErr("undefined local/global %q reached lowering", s.Target.Name)
		}

	case ast.SIndexedAssign:
		if err := c.lowerExpr(s.Target); err != nil {
			return err
		}
		if err := c.lowerExpr(s.Index); err != nil {
			return err
		}
		if err := c.lowerExpr(s.Value); err != nil {
			return err
		}
		if s.Target.Inferred.Kind == ast.KMap {
			f.asm.Simple0(OpMapSet)
		} else {
			f.asm.Simple0(OpArraySet)
		}

	case ast.SFieldAssign:
		if err := c.lowerExpr(s.Target); err != nil {
			return err
		}
		if err := c.lowerExpr(s.Value); err != nil {
			return err
		}
		if s.Target.Inferred.Kind == ast.KClass {
			f.asm.Field16(OpClassSet, uint16(s.FieldIdx))
		} else {
			f.asm.Field16(OpStructSet, uint16(s.FieldIdx))
		}

	case ast.SExpr:
		if err := c.lowerExpr(s.Expr); err != nil {
			return err
		}
		if !s.Expr.IsVoidCall() {
			f.asm.Simple0(OpPop)
		}

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
		f.asm.EmitJump(OpJmp, loop.breakLabel)

	case ast.SContinue:
		loop := f.loops[len(f.loops)-1]
		f.asm.EmitJump(OpJmp, loop.continueLabel)

	case ast.SReturn:
		if s.RetVal != nil {
			if err := c.lowerExpr(s.RetVal); err != nil {
				return err
			}
		} else {
			f.asm.ConstNull()
		}
		f.asm.Simple0(OpRet)

	case ast.STry:
		return c.lowerTry(s)

	case ast.SThrow:
		if err := c.lowerExpr(s.ThrowVal); err != nil {
			return err
		}
		f.asm.Simple0(OpThrow)

	case ast.SMatch:
		return c.lowerMatch(s)

	default:
		return lowerErr("internal: unhandled statement kind %d in SBC lowering", s.Kind)
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

// lowerIf emits: cond, JMP_IF_FALSE else, then-body, JMP end, else:, else-body, end:
// per spec.md §4.2.
func (c *Compiler) lowerIf(s *ast.Stmt) error {
	f := c.f
	if err := c.lowerExpr(s.Cond); err != nil {
		return err
	}
	elseLabel := f.asm.NewLabel()
	endLabel := f.asm.NewLabel()
	f.asm.EmitJump(OpJmpIfFalse, elseLabel)
	if err := c.lowerBlock(s.Then); err != nil {
		return err
	}
	f.asm.EmitJump(OpJmp, endLabel)
	f.asm.Mark(elseLabel)
	if err := c.lowerBlock(s.Else); err != nil {
		return err
	}
	f.asm.Mark(endLabel)
	return nil
}

// lowerWhile anchors loop-start, emits cond, JMP_IF_FALSE exit, body,
// JMP loop-start, per spec.md §4.2.
func (c *Compiler) lowerWhile(s *ast.Stmt) error {
	f := c.f
	start := f.asm.NewLabel()
	exit := f.asm.NewLabel()
	f.asm.Mark(start)
	if err := c.lowerExpr(s.Cond); err != nil {
		return err
	}
	f.asm.EmitJump(OpJmpIfFalse, exit)
	f.loops = append(f.loops, loopCtx{breakLabel: exit, continueLabel: start})
	if err := c.lowerBlock(s.Body); err != nil {
		return err
	}
	f.loops = f.loops[:len(f.loops)-1]
	f.asm.EmitJump(OpJmp, start)
	f.asm.Mark(exit)
	return nil
}

// lowerRangeFor desugars `for i in range(a,b)` to an explicit let/loop with
// increment, per spec.md §4.2. continue jumps to the increment position, not
// the condition.
func (c *Compiler) lowerRangeFor(s *ast.Stmt) error {
	f := c.f
	c.pushScope()
	if err := c.lowerExpr(s.Lo); err != nil {
		return err
	}
	slot := c.declareLocal(s.Var)
	f.asm.Slot16(OpStoreLocal, slot)

	start := f.asm.NewLabel()
	incr := f.asm.NewLabel()
	exit := f.asm.NewLabel()
	f.asm.Mark(start)
	f.asm.Slot16(OpLoadLocal, slot)
	if err := c.lowerExpr(s.Hi); err != nil {
		return err
	}
	f.asm.Simple0(OpLtI64)
	f.asm.EmitJump(OpJmpIfFalse, exit)

	f.loops = append(f.loops, loopCtx{breakLabel: exit, continueLabel: incr})
	if err := c.lowerBlock(s.Body); err != nil {
		return err
	}
	f.loops = f.loops[:len(f.loops)-1]

	f.asm.Mark(incr)
	f.asm.Slot16(OpLoadLocal, slot)
	f.asm.ConstI64(1)
	f.asm.Simple0(OpAddI64)
	f.asm.Slot16(OpStoreLocal, slot)
	f.asm.EmitJump(OpJmp, start)
	f.asm.Mark(exit)
	c.popScope()
	return nil
}

// lowerCollectionFor evaluates the collection once; for maps it first
// substitutes c := keys(c); indexes a synthetic iterator from 0 to
// array_len(c), per spec.md §4.2.
func (c *Compiler) lowerCollectionFor(s *ast.Stmt) error {
	f := c.f
	c.pushScope()
	if err := c.lowerExpr(s.Coll); err != nil {
		return err
	}
	if s.Coll.Inferred.Kind == ast.KMap {
		keysSig, _ := builtins.Lookup("keys")
		f.asm.CallBuiltin(uint16(keysSig.ID), 1)
	}
	collSlot := c.declareLocal("__for_coll")
	f.asm.Slot16(OpStoreLocal, collSlot)

	f.asm.ConstI64(0)
	idxSlot := c.declareLocal("__for_idx")
	f.asm.Slot16(OpStoreLocal, idxSlot)

	start := f.asm.NewLabel()
	incr := f.asm.NewLabel()
	exit := f.asm.NewLabel()
	f.asm.Mark(start)
	f.asm.Slot16(OpLoadLocal, idxSlot)
	f.asm.Slot16(OpLoadLocal, collSlot)
	lenSig, _ := builtins.Lookup("array_len")
	f.asm.CallBuiltin(uint16(lenSig.ID), 1)
	f.asm.Simple0(OpLtI64)
	f.asm.EmitJump(OpJmpIfFalse, exit)

	f.asm.Slot16(OpLoadLocal, collSlot)
	f.asm.Slot16(OpLoadLocal, idxSlot)
	f.asm.Simple0(OpArrayGet)
	elemSlot := c.declareLocal(s.Var)
	f.asm.Slot16(OpStoreLocal, elemSlot)

	f.loops = append(f.loops, loopCtx{breakLabel: exit, continueLabel: incr})
	if err := c.lowerBlock(s.Body); err != nil {
		return err
	}
	f.loops = f.loops[:len(f.loops)-1]

	f.asm.Mark(incr)
	f.asm.Slot16(OpLoadLocal, idxSlot)
	f.asm.ConstI64(1)
	f.asm.Simple0(OpAddI64)
	f.asm.Slot16(OpStoreLocal, idxSlot)
	f.asm.EmitJump(OpJmp, start)
	f.asm.Mark(exit)
	c.popScope()
	return nil
}

// lowerTry emits TRY_BEGIN(catch_addr, finally_addr, catch_slot), the body,
// TRY_END, a JMP to finally_addr (or end, if there's no finally), the catch
// body at catch_addr falling straight through into the finally body (if
// present) at finally_addr, per spec.md §4.2. The catch binding's local slot
// is allocated before the try body so the VM can populate it by slot at
// throw time.
func (c *Compiler) lowerTry(s *ast.Stmt) error {
	f := c.f
	c.pushScope()

	var catchSlot uint16
	if s.Catch != nil {
		catchSlot = c.declareLocal(s.Catch.BindName)
	}

	catchLabel := f.asm.NewLabel()
	finallyLabel := -1
	if len(s.Finally) > 0 {
		finallyLabel = f.asm.NewLabel()
	}
	f.asm.TryBegin(catchLabel, finallyLabel, catchSlot)

	if err := c.lowerBlock(s.TryBody); err != nil {
		return err
	}
	f.asm.Simple0(OpTryEnd)

	end := f.asm.NewLabel()
	if finallyLabel >= 0 {
		f.asm.EmitJump(OpJmp, finallyLabel)
	} else {
		f.asm.EmitJump(OpJmp, end)
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

// lowerMatch lowers to a chain of load-equal-jump triples with an optional
// default, per spec.md §4.2.
func (c *Compiler) lowerMatch(s *ast.Stmt) error {
	f := c.f
	c.pushScope()
	if err := c.lowerExpr(s.Subject); err != nil {
		return err
	}
	subjSlot := c.declareLocal("__match_subject")
	f.asm.Slot16(OpStoreLocal, subjSlot)

	end := f.asm.NewLabel()
	var defaultCase *ast.MatchCase
	for i := range s.Cases {
		kase := &s.Cases[i]
		if kase.Value == nil {
			defaultCase = kase
			continue
		}
		f.asm.Slot16(OpLoadLocal, subjSlot)
		if err := c.lowerExpr(kase.Value); err != nil {
			return err
		}
		f.asm.Simple0(OpEq)
		next := f.asm.NewLabel()
		f.asm.EmitJump(OpJmpIfFalse, next)
		if err := c.lowerBlock(kase.Body); err != nil {
			return err
		}
		f.asm.EmitJump(OpJmp, end)
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
