package sbc

import (
	"github.com/th3f0rk/betterpython/internal/ast"
	"github.com/th3f0rk/betterpython/internal/builtins"
)

// lowerExpr lowers e, leaving its value on top of the operand stack, per
// spec.md §4.2's execution model (a per-frame operand stack).
func (c *Compiler) lowerExpr(e *ast.Expr) error {
	f := c.f
	switch e.Kind {
	case ast.EIntLit:
		f.asm.ConstI64(e.Int)
	case ast.EFloatLit:
		f.asm.ConstF64(f64bits(e.Float))
	case ast.EBoolLit:
		f.asm.ConstBool(e.Bool)
	case ast.EStrLit:
		f.asm.ConstStr(c.internString(e.Name))
	case ast.ENullLit:
		f.asm.ConstNull()

	case ast.EVar:
		if slot, ok := c.lookupLocal(e.Name); ok {
			f.asm.Slot16(OpLoadLocal, slot)
		} else if slot, ok := c.lookupGlobalSlot(e.Name); ok {
			f.asm.Slot16(OpLoadGlobal, uint16(slot))
		} else {
			return lowerErr("undefined local/global %q reached lowering", e.Name)
		}

	case ast.ECall:
		for _, a := range e.Args {
			if err := c.lowerExpr(a); err != nil {
				return err
			}
		}
		switch e.FnIndex {
		case ast.CallBuiltin:
			f.asm.CallBuiltin(uint16(e.BuiltinID), uint16(len(e.Args)))
		case ast.CallExtern:
			f.asm.FFICall(uint16(e.ExternIdx), uint8(len(e.Args)))
		default:
			f.asm.Call(uint32(e.FnIndex), uint16(len(e.Args)))
		}

	case ast.EUnary:
		if err := c.lowerExpr(e.X); err != nil {
			return err
		}
		switch e.Op {
		case "-":
			if e.X.Inferred.Kind == ast.KFloat {
				f.asm.Simple0(OpNegF64)
			} else {
				f.asm.Simple0(OpNeg)
			}
		case "!", "not":
			f.asm.Simple0(OpNot)
		case "~":
			f.asm.Simple0(OpBNot)
		}

	case ast.EBinary:
		return c.lowerBinary(e)

	case ast.EArrayLit:
		for _, el := range e.Elems {
			if err := c.lowerExpr(el); err != nil {
				return err
			}
		}
		f.asm.ArrayNew(uint32(len(e.Elems)))

	case ast.EIndex:
		if err := c.lowerExpr(e.Collection); err != nil {
			return err
		}
		if err := c.lowerExpr(e.IndexExpr); err != nil {
			return err
		}
		if e.Collection.Inferred.Kind == ast.KMap {
			f.asm.Simple0(OpMapGet)
		} else {
			f.asm.Simple0(OpArrayGet)
		}

	case ast.EMapLit:
		for i := range e.Keys {
			if err := c.lowerExpr(e.Keys[i]); err != nil {
				return err
			}
			if err := c.lowerExpr(e.Values[i]); err != nil {
				return err
			}
		}
		f.asm.MapNew(uint32(len(e.Keys)))

	case ast.EStructLit:
		typeID, ok := c.structIdx[e.Name]
		if !ok {
			return lowerErr("unknown struct %q reached lowering", e.Name)
		}
		for _, v := range e.FieldVals {
			if err := c.lowerExpr(v); err != nil {
				return err
			}
		}
		f.asm.StructNew(uint16(typeID), uint16(len(e.FieldVals)))

	case ast.EField:
		if err := c.lowerExpr(e.Base); err != nil {
			return err
		}
		if e.Base.Inferred.Kind == ast.KClass {
			f.asm.Field16(OpClassGet, uint16(e.FieldIdx))
		} else {
			f.asm.Field16(OpStructGet, uint16(e.FieldIdx))
		}

	case ast.ETuple:
		// Tuples lower to fixed-size arrays; spec.md does not name a
		// distinct tuple opcode, and a tuple's read-only fixed arity makes
		// it observationally an array for the stack machine.
		for _, el := range e.Elems {
			if err := c.lowerExpr(el); err != nil {
				return err
			}
		}
		f.asm.ArrayNew(uint32(len(e.Elems)))

	case ast.ELambda:
		f.asm.ConstFunc(uint32(e.LambdaFn))

	case ast.EFuncRef:
		f.asm.ConstFunc(uint32(e.FnIndex))

	case ast.EEnumMember:
		f.asm.ConstI64(e.Int)

	case ast.EFString:
		return c.lowerFString(e)

	case ast.EMethodCall:
		if err := c.lowerExpr(e.Base); err != nil {
			return err
		}
		for _, a := range e.Args {
			if err := c.lowerExpr(a); err != nil {
				return err
			}
		}
		f.asm.MethodCall(OpMethodCall, uint16(e.MethodIdx), uint8(len(e.Args)))

	case ast.ENew:
		for _, a := range e.Args {
			if err := c.lowerExpr(a); err != nil {
				return err
			}
		}
		f.asm.ClassNew(uint16(e.ClassIdx), uint8(len(e.Args)))

	case ast.ESuperCall:
		f.asm.Slot16(OpLoadLocal, selfSlot(c))
		for _, a := range e.Args {
			if err := c.lowerExpr(a); err != nil {
				return err
			}
		}
		f.asm.MethodCall(OpSuperCall, uint16(e.MethodIdx), uint8(len(e.Args)))

	default:
		return lowerErr("internal: unhandled expression kind %d in SBC lowering", e.Kind)
	}
	return nil
}

func selfSlot(c *Compiler) uint16 {
	slot, _ := c.lookupLocal("self")
	return slot
}

// lowerFString emits each literal part, inserting CALL_BUILTIN(to_str) for
// non-string expression parts, then chains ADD_STR, per spec.md §4.2's
// f-string lowering rule.
func (c *Compiler) lowerFString(e *ast.Expr) error {
	f := c.f
	emitted := 0
	emitStr := func(s string) {
		f.asm.ConstStr(c.internString(s))
		emitted++
		if emitted > 1 {
			f.asm.Simple0(OpAddStr)
		}
	}
	for i, lit := range e.Parts {
		if lit != "" || (i == 0 && len(e.ExprParts) == 0) {
			emitStr(lit)
		}
		if i < len(e.ExprParts) {
			ep := e.ExprParts[i]
			if err := c.lowerExpr(ep); err != nil {
				return err
			}
			if ep.Inferred == nil || ep.Inferred.Kind != ast.KStr {
				f.asm.CallBuiltin(uint16(toStrBuiltinID()), 1)
			}
			emitted++
			if emitted > 1 {
				f.asm.Simple0(OpAddStr)
			}
		}
	}
	if emitted == 0 {
		emitStr("")
	}
	return nil
}

func toStrBuiltinID() int {
	sig, _ := builtins.Lookup("to_str")
	return sig.ID
}

func (c *Compiler) lowerBinary(e *ast.Expr) error {
	f := c.f
	if e.Op == "and" {
		if err := c.lowerExpr(e.X); err != nil {
			return err
		}
		if err := c.lowerExpr(e.Y); err != nil {
			return err
		}
		f.asm.Simple0(OpAnd)
		return nil
	}
	if e.Op == "or" {
		if err := c.lowerExpr(e.X); err != nil {
			return err
		}
		if err := c.lowerExpr(e.Y); err != nil {
			return err
		}
		f.asm.Simple0(OpOr)
		return nil
	}
	if err := c.lowerExpr(e.X); err != nil {
		return err
	}
	if e.X.Inferred.Kind == ast.KInt && e.Inferred.Kind == ast.KFloat {
		f.asm.Simple0(OpConvertItoF)
	}
	if err := c.lowerExpr(e.Y); err != nil {
		return err
	}
	if e.Y.Inferred.Kind == ast.KInt && e.Inferred.Kind == ast.KFloat {
		f.asm.Simple0(OpConvertItoF)
	}
	isFloat := e.Inferred.Kind == ast.KFloat || (e.X.Inferred.Kind == ast.KFloat || e.Y.Inferred.Kind == ast.KFloat)
	switch e.Op {
	case "+":
		if e.X.Inferred.Kind == ast.KStr {
			f.asm.Simple0(OpAddStr)
		} else if isFloat {
			f.asm.Simple0(OpAddF64)
		} else {
			f.asm.Simple0(OpAddI64)
		}
	case "-":
		if isFloat {
			f.asm.Simple0(OpSubF64)
		} else {
			f.asm.Simple0(OpSubI64)
		}
	case "*":
		if isFloat {
			f.asm.Simple0(OpMulF64)
		} else {
			f.asm.Simple0(OpMulI64)
		}
	case "/":
		if isFloat {
			f.asm.Simple0(OpDivF64)
		} else {
			f.asm.Simple0(OpDivI64)
		}
	case "%":
		f.asm.Simple0(OpModI64)
	case "&":
		f.asm.Simple0(OpBAnd)
	case "|":
		f.asm.Simple0(OpBOr)
	case "^":
		f.asm.Simple0(OpBXor)
	case "<<":
		f.asm.Simple0(OpBShl)
	case ">>":
		f.asm.Simple0(OpBShr)
	case "==":
		f.asm.Simple0(OpEq)
	case "!=":
		f.asm.Simple0(OpNeq)
	case "<":
		f.asm.Simple0(pick(isFloat, OpLtF64, OpLtI64))
	case "<=":
		f.asm.Simple0(pick(isFloat, OpLteF64, OpLteI64))
	case ">":
		f.asm.Simple0(pick(isFloat, OpGtF64, OpGtI64))
	case ">=":
		f.asm.Simple0(pick(isFloat, OpGteF64, OpGteI64))
	default:
		return lowerErr("internal: unhandled binary operator %q in SBC lowering", e.Op)
	}
	return nil
}

func pick(cond bool, a, b Op) Op {
	if cond {
		return a
	}
	return b
}
