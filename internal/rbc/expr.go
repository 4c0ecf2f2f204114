package rbc

import (
	"github.com/th3f0rk/betterpython/internal/ast"
	"github.com/th3f0rk/betterpython/internal/builtins"
)

// lowerExpr lowers e, returning the register holding its value, per spec.md
// §4.3's lowering contract: "each expression lowers to code that leaves its
// result in some register, which is returned by the emitter."
func (c *Compiler) lowerExpr(e *ast.Expr) (byte, error) {
	f := c.f
	switch e.Kind {
	case ast.EIntLit:
		dst := f.alloc.AllocTemp()
		f.asm.ConstI64(dst, e.Int)
		return dst, nil
	case ast.EFloatLit:
		dst := f.alloc.AllocTemp()
		f.asm.ConstF64(dst, f64bits(e.Float))
		return dst, nil
	case ast.EBoolLit:
		dst := f.alloc.AllocTemp()
		f.asm.ConstBool(dst, e.Bool)
		return dst, nil
	case ast.EStrLit:
		dst := f.alloc.AllocTemp()
		f.asm.ConstStr(dst, c.internString(e.Name))
		return dst, nil
	case ast.ENullLit:
		dst := f.alloc.AllocTemp()
		f.asm.ConstNull(dst)
		return dst, nil

	case ast.EVar:
		if r, ok := c.lookupLocal(e.Name); ok {
			return r, nil
		}
		if slot, ok := c.lookupGlobalSlot(e.Name); ok {
			dst := f.alloc.AllocTemp()
			f.asm.LoadGlobal(dst, uint16(slot))
			return dst, nil
		}
		return 0, lowerErr("undefined local/global %q reached lowering", e.Name)

	case ast.ECall:
		argBase, err := c.lowerArgsIntoBlock(e.Args)
		if err != nil {
			return 0, err
		}
		dst := f.alloc.AllocTemp()
		switch e.FnIndex {
		case ast.CallBuiltin:
			f.asm.CallBuiltin(dst, uint16(e.BuiltinID), argBase, byte(len(e.Args)))
		case ast.CallExtern:
			f.asm.FFICall(dst, uint16(e.ExternIdx), argBase, byte(len(e.Args)))
		default:
			f.asm.Call(dst, uint32(e.FnIndex), argBase, byte(len(e.Args)))
		}
		return dst, nil

	case ast.EUnary:
		x, err := c.lowerExpr(e.X)
		if err != nil {
			return 0, err
		}
		dst := f.alloc.AllocTemp()
		switch e.Op {
		case "-":
			if e.X.Inferred.Kind == ast.KFloat {
				f.asm.Un2(OpNegF64, dst, x)
			} else {
				f.asm.Un2(OpNeg, dst, x)
			}
		case "!", "not":
			f.asm.Un2(OpNot, dst, x)
		case "~":
			f.asm.Un2(OpBNot, dst, x)
		}
		return dst, nil

	case ast.EBinary:
		return c.lowerBinary(e)

	case ast.EArrayLit:
		argBase, err := c.lowerArgsIntoBlock(e.Elems)
		if err != nil {
			return 0, err
		}
		dst := f.alloc.AllocTemp()
		f.asm.ArrayNew(dst, argBase, uint32(len(e.Elems)))
		return dst, nil

	case ast.EIndex:
		coll, err := c.lowerExpr(e.Collection)
		if err != nil {
			return 0, err
		}
		idx, err := c.lowerExpr(e.IndexExpr)
		if err != nil {
			return 0, err
		}
		dst := f.alloc.AllocTemp()
		if e.Collection.Inferred.Kind == ast.KMap {
			f.asm.Bin3(OpMapGet, dst, coll, idx)
		} else {
			f.asm.Bin3(OpArrayGet, dst, coll, idx)
		}
		return dst, nil

	case ast.EMapLit:
		interleaved := make([]*ast.Expr, 0, len(e.Keys)*2)
		for i := range e.Keys {
			interleaved = append(interleaved, e.Keys[i], e.Values[i])
		}
		argBase, err := c.lowerArgsIntoBlock(interleaved)
		if err != nil {
			return 0, err
		}
		dst := f.alloc.AllocTemp()
		f.asm.MapNew(dst, argBase, uint32(len(e.Keys)))
		return dst, nil

	case ast.EStructLit:
		typeID, ok := c.structIdx[e.Name]
		if !ok {
			return 0, lowerErr("unknown struct %q reached lowering", e.Name)
		}
		argBase, err := c.lowerArgsIntoBlock(e.FieldVals)
		if err != nil {
			return 0, err
		}
		dst := f.alloc.AllocTemp()
		f.asm.StructNew(dst, uint16(typeID), argBase, uint16(len(e.FieldVals)))
		return dst, nil

	case ast.EField:
		base, err := c.lowerExpr(e.Base)
		if err != nil {
			return 0, err
		}
		dst := f.alloc.AllocTemp()
		if e.Base.Inferred.Kind == ast.KClass {
			f.asm.FieldOp(OpClassGet, dst, base, uint16(e.FieldIdx))
		} else {
			f.asm.FieldOp(OpStructGet, dst, base, uint16(e.FieldIdx))
		}
		return dst, nil

	case ast.ETuple:
		argBase, err := c.lowerArgsIntoBlock(e.Elems)
		if err != nil {
			return 0, err
		}
		dst := f.alloc.AllocTemp()
		f.asm.ArrayNew(dst, argBase, uint32(len(e.Elems)))
		return dst, nil

	case ast.ELambda:
		dst := f.alloc.AllocTemp()
		f.asm.ConstFunc(dst, uint32(e.LambdaFn))
		return dst, nil

	case ast.EFuncRef:
		dst := f.alloc.AllocTemp()
		f.asm.ConstFunc(dst, uint32(e.FnIndex))
		return dst, nil

	case ast.EEnumMember:
		dst := f.alloc.AllocTemp()
		f.asm.ConstI64(dst, e.Int)
		return dst, nil

	case ast.EFString:
		return c.lowerFString(e)

	case ast.EMethodCall:
		base, err := c.lowerExpr(e.Base)
		if err != nil {
			return 0, err
		}
		argBase, err := c.lowerArgsIntoBlock(e.Args)
		if err != nil {
			return 0, err
		}
		dst := f.alloc.AllocTemp()
		f.asm.MethodCall(OpMethodCall, dst, base, uint16(e.MethodIdx), argBase, byte(len(e.Args)))
		return dst, nil

	case ast.ENew:
		argBase, err := c.lowerArgsIntoBlock(e.Args)
		if err != nil {
			return 0, err
		}
		dst := f.alloc.AllocTemp()
		f.asm.ClassNew(dst, uint16(e.ClassIdx), argBase, byte(len(e.Args)))
		return dst, nil

	case ast.ESuperCall:
		self, ok := c.lookupLocal("self")
		if !ok {
			return 0, lowerErr("internal: super call outside a method")
		}
		argBase, err := c.lowerArgsIntoBlock(e.Args)
		if err != nil {
			return 0, err
		}
		dst := f.alloc.AllocTemp()
		f.asm.MethodCall(OpSuperCall, dst, self, uint16(e.MethodIdx), argBase, byte(len(e.Args)))
		return dst, nil

	default:
		return 0, lowerErr("internal: unhandled expression kind %d in RBC lowering", e.Kind)
	}
}

// lowerArgsIntoBlock evaluates args, then MOVEs any that did not land
// naturally in the contiguous argument window AllocBlock reserved, per
// spec.md §4.3: "operands are evaluated and then MOVed into place if they
// did not land there naturally."
func (c *Compiler) lowerArgsIntoBlock(args []*ast.Expr) (byte, error) {
	f := c.f
	if len(args) == 0 {
		return f.alloc.AllocBlock(0), nil
	}
	regs := make([]byte, len(args))
	for i, a := range args {
		r, err := c.lowerExpr(a)
		if err != nil {
			return 0, err
		}
		regs[i] = r
	}
	base := f.alloc.AllocBlock(len(args))
	for i, r := range regs {
		f.asm.Move(base+byte(i), r)
	}
	return base, nil
}

// lowerFString mirrors internal/sbc's lowerFString, chaining ADD_STR with
// CALL_BUILTIN(to_str) inserted for non-string parts, per spec.md §4.2's
// rule (shared verbatim by §4.3, "All opcodes mirror the stack forms").
func (c *Compiler) lowerFString(e *ast.Expr) (byte, error) {
	f := c.f
	var acc byte
	have := false
	appendPart := func(r byte) {
		if !have {
			acc = r
			have = true
			return
		}
		dst := f.alloc.AllocTemp()
		f.asm.Bin3(OpAddStr, dst, acc, r)
		acc = dst
	}
	for i, lit := range e.Parts {
		if lit != "" || (i == 0 && len(e.ExprParts) == 0) {
			r := f.alloc.AllocTemp()
			f.asm.ConstStr(r, c.internString(lit))
			appendPart(r)
		}
		if i < len(e.ExprParts) {
			ep := e.ExprParts[i]
			r, err := c.lowerExpr(ep)
			if err != nil {
				return 0, err
			}
			if ep.Inferred == nil || ep.Inferred.Kind != ast.KStr {
				sig, _ := builtins.Lookup("to_str")
				argBase := f.alloc.AllocBlock(1)
				f.asm.Move(argBase, r)
				conv := f.alloc.AllocTemp()
				f.asm.CallBuiltin(conv, uint16(sig.ID), argBase, 1)
				r = conv
			}
			appendPart(r)
		}
	}
	if !have {
		r := f.alloc.AllocTemp()
		f.asm.ConstStr(r, c.internString(""))
		acc = r
	}
	return acc, nil
}

func (c *Compiler) lowerBinary(e *ast.Expr) (byte, error) {
	f := c.f
	if e.Op == "and" {
		x, err := c.lowerExpr(e.X)
		if err != nil {
			return 0, err
		}
		y, err := c.lowerExpr(e.Y)
		if err != nil {
			return 0, err
		}
		dst := f.alloc.AllocTemp()
		f.asm.Bin3(OpAnd, dst, x, y)
		return dst, nil
	}
	if e.Op == "or" {
		x, err := c.lowerExpr(e.X)
		if err != nil {
			return 0, err
		}
		y, err := c.lowerExpr(e.Y)
		if err != nil {
			return 0, err
		}
		dst := f.alloc.AllocTemp()
		f.asm.Bin3(OpOr, dst, x, y)
		return dst, nil
	}

	x, err := c.lowerExpr(e.X)
	if err != nil {
		return 0, err
	}
	if e.X.Inferred.Kind == ast.KInt && e.Inferred.Kind == ast.KFloat {
		fx := f.alloc.AllocTemp()
		f.asm.Un2(OpConvertItoF, fx, x)
		x = fx
	}
	y, err := c.lowerExpr(e.Y)
	if err != nil {
		return 0, err
	}
	if e.Y.Inferred.Kind == ast.KInt && e.Inferred.Kind == ast.KFloat {
		fy := f.alloc.AllocTemp()
		f.asm.Un2(OpConvertItoF, fy, y)
		y = fy
	}
	isFloat := e.Inferred.Kind == ast.KFloat || (e.X.Inferred.Kind == ast.KFloat || e.Y.Inferred.Kind == ast.KFloat)
	dst := f.alloc.AllocTemp()
	switch e.Op {
	case "+":
		if e.X.Inferred.Kind == ast.KStr {
			f.asm.Bin3(OpAddStr, dst, x, y)
		} else if isFloat {
			f.asm.Bin3(OpAddF64, dst, x, y)
		} else {
			f.asm.Bin3(OpAddI64, dst, x, y)
		}
	case "-":
		f.asm.Bin3(pick(isFloat, OpSubF64, OpSubI64), dst, x, y)
	case "*":
		f.asm.Bin3(pick(isFloat, OpMulF64, OpMulI64), dst, x, y)
	case "/":
		f.asm.Bin3(pick(isFloat, OpDivF64, OpDivI64), dst, x, y)
	case "%":
		f.asm.Bin3(OpModI64, dst, x, y)
	case "&":
		f.asm.Bin3(OpBAnd, dst, x, y)
	case "|":
		f.asm.Bin3(OpBOr, dst, x, y)
	case "^":
		f.asm.Bin3(OpBXor, dst, x, y)
	case "<<":
		f.asm.Bin3(OpBShl, dst, x, y)
	case ">>":
		f.asm.Bin3(OpBShr, dst, x, y)
	case "==":
		f.asm.Bin3(OpEq, dst, x, y)
	case "!=":
		f.asm.Bin3(OpNeq, dst, x, y)
	case "<":
		f.asm.Bin3(pick(isFloat, OpLtF64, OpLtI64), dst, x, y)
	case "<=":
		f.asm.Bin3(pick(isFloat, OpLteF64, OpLteI64), dst, x, y)
	case ">":
		f.asm.Bin3(pick(isFloat, OpGtF64, OpGtI64), dst, x, y)
	case ">=":
		f.asm.Bin3(pick(isFloat, OpGteF64, OpGteI64), dst, x, y)
	default:
		return 0, lowerErr("internal: unhandled binary operator %q in RBC lowering", e.Op)
	}
	return dst, nil
}

func pick(cond bool, a, b Op) Op {
	if cond {
		return a
	}
	return b
}
