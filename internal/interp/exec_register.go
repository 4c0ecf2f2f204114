package interp

import (
	"math"

	"github.com/th3f0rk/betterpython/internal/builtins"
	"github.com/th3f0rk/betterpython/internal/gc"
	"github.com/th3f0rk/betterpython/internal/rbc"
)

func (c *cursor) reg() byte { return c.u8() }

// stepRegister executes exactly one RBC instruction at f.IP (spec.md
// §4.3/§4.6). It mirrors stepStack opcode-for-opcode but reads/writes a
// register window instead of an operand stack.
func (it *Interp) stepRegister(f *Frame) (stepOut, error) {
	cu := &cursor{code: f.Fn.Code, off: f.IP}
	op := rbc.Op(cu.u8())

	switch op {
	case rbc.OpConstI64:
		dst := cu.reg()
		f.Regs[dst] = gc.Int(int64(cu.u64()))
	case rbc.OpConstF64:
		dst := cu.reg()
		f.Regs[dst] = gc.Float(math.Float64frombits(cu.u64()))
	case rbc.OpConstBool:
		dst := cu.reg()
		f.Regs[dst] = gc.Bool(cu.u8() != 0)
	case rbc.OpConstStr:
		dst := cu.reg()
		id := cu.u32()
		f.Regs[dst] = strValue(it.heap.NewString(it.mod.ResolveString(f.Fn, id)))
	case rbc.OpConstNull:
		dst := cu.reg()
		f.Regs[dst] = gc.Null()
	case rbc.OpConstFunc:
		dst := cu.reg()
		f.Regs[dst] = gc.FuncIndex(int(cu.u32()))

	case rbc.OpMove:
		dst, src := cu.reg(), cu.reg()
		f.Regs[dst] = f.Regs[src]

	case rbc.OpLoadGlobal:
		dst := cu.reg()
		slot := cu.u16()
		f.Regs[dst] = it.cs.Globals[slot]
	case rbc.OpStoreGlobal:
		slot := cu.u16()
		src := cu.reg()
		it.cs.Globals[slot] = f.Regs[src]

	case rbc.OpAddI64, rbc.OpSubI64, rbc.OpMulI64, rbc.OpDivI64, rbc.OpModI64,
		rbc.OpAddF64, rbc.OpSubF64, rbc.OpMulF64, rbc.OpDivF64,
		rbc.OpBAnd, rbc.OpBOr, rbc.OpBXor, rbc.OpBShl, rbc.OpBShr,
		rbc.OpEq, rbc.OpNeq, rbc.OpLtI64, rbc.OpLteI64, rbc.OpGtI64, rbc.OpGteI64,
		rbc.OpLtF64, rbc.OpLteF64, rbc.OpGtF64, rbc.OpGteF64, rbc.OpAnd, rbc.OpOr:
		dst, a, b := cu.reg(), cu.reg(), cu.reg()
		r, err := regBinOp(op, f.Regs[a], f.Regs[b])
		if err != nil {
			return stepOut{}, err
		}
		f.Regs[dst] = r
	case rbc.OpAddStr:
		dst, a, b := cu.reg(), cu.reg(), cu.reg()
		f.Regs[dst] = strValue(it.heap.NewString(gc.AsStr(f.Regs[a]) + gc.AsStr(f.Regs[b])))
	case rbc.OpNeg:
		dst, x := cu.reg(), cu.reg()
		f.Regs[dst] = gc.Int(-f.Regs[x].I)
	case rbc.OpNegF64:
		dst, x := cu.reg(), cu.reg()
		f.Regs[dst] = gc.Float(-f.Regs[x].F)
	case rbc.OpBNot:
		dst, x := cu.reg(), cu.reg()
		f.Regs[dst] = gc.Int(^f.Regs[x].I)
	case rbc.OpNot:
		dst, x := cu.reg(), cu.reg()
		f.Regs[dst] = gc.Bool(!f.Regs[x].Truthy())
	case rbc.OpConvertItoF:
		dst, x := cu.reg(), cu.reg()
		f.Regs[dst] = gc.Float(float64(f.Regs[x].I))

	case rbc.OpJmp:
		target := cu.u32()
		f.IP = int(target)
		return stepOut{sig: sigNext}, nil
	case rbc.OpJmpIfFalse:
		testReg := cu.reg()
		target := cu.u32()
		if !f.Regs[testReg].Truthy() {
			f.IP = int(target)
			return stepOut{sig: sigNext}, nil
		}
	case rbc.OpJmpIfTrue:
		testReg := cu.reg()
		target := cu.u32()
		if f.Regs[testReg].Truthy() {
			f.IP = int(target)
			return stepOut{sig: sigNext}, nil
		}

	case rbc.OpCall:
		dst := cu.reg()
		fnIndex := cu.u32()
		argBase, argc := cu.reg(), cu.reg()
		args := regWindow(f, argBase, argc)
		r, err := it.call(int(fnIndex), args)
		if err != nil {
			return stepOut{}, err
		}
		f.Regs[dst] = r
	case rbc.OpCallBuiltin:
		dst := cu.reg()
		id := cu.u16()
		argBase, argc := cu.reg(), cu.reg()
		args := regWindow(f, argBase, argc)
		r, err := builtins.Call(int(id), args, it.heap, &it.exitCode, &it.exiting)
		if err != nil {
			sig, _ := builtins.ByID(int(id))
			return stepOut{}, fault("CALL_BUILTIN", "%s: %v", sig.Name, err)
		}
		f.Regs[dst] = r
		if it.exiting {
			return stepOut{sig: sigExit}, nil
		}
	case rbc.OpFFICall:
		dst := cu.reg()
		externID := cu.u16()
		argBase, argc := cu.reg(), cu.reg()
		args := regWindow(f, argBase, argc)
		r, err := it.callFFI(int(externID), args)
		if err != nil {
			return stepOut{}, err
		}
		f.Regs[dst] = r
	case rbc.OpRet:
		src := cu.reg()
		return stepOut{sig: sigReturn, retVal: f.Regs[src]}, nil

	case rbc.OpArrayNew:
		dst, argBase := cu.reg(), cu.reg()
		count := cu.u32()
		elems := regWindow(f, argBase, byte(count))
		f.Regs[dst] = gc.Value{Kind: gc.KArray, Obj: it.heap.NewArray(elems)}
	case rbc.OpArrayGet:
		dst, coll, idx := cu.reg(), cu.reg(), cu.reg()
		v, err := arrayGet(f.Regs[coll], f.Regs[idx])
		if err != nil {
			return stepOut{}, err
		}
		f.Regs[dst] = v
	case rbc.OpArraySet:
		coll, idx, val := cu.reg(), cu.reg(), cu.reg()
		if err := arraySet(f.Regs[coll], f.Regs[idx], f.Regs[val]); err != nil {
			return stepOut{}, err
		}
	case rbc.OpMapNew:
		dst, argBase := cu.reg(), cu.reg()
		pairCount := cu.u32()
		flat := regWindow(f, argBase, byte(pairCount)*2)
		mo := it.heap.NewMap()
		for i := 0; i < len(flat); i += 2 {
			mo.MapSet(flat[i], flat[i+1])
		}
		f.Regs[dst] = gc.Value{Kind: gc.KMap, Obj: mo}
	case rbc.OpMapGet:
		dst, coll, key := cu.reg(), cu.reg(), cu.reg()
		v, ok := f.Regs[coll].Obj.MapGet(f.Regs[key])
		if !ok {
			return stepOut{}, fault("MAP_GET", "key miss")
		}
		f.Regs[dst] = v
	case rbc.OpMapSet:
		coll, key, val := cu.reg(), cu.reg(), cu.reg()
		f.Regs[coll].Obj.MapSet(f.Regs[key], f.Regs[val])

	case rbc.OpStructNew:
		dst := cu.reg()
		typeID := cu.u16()
		argBase := cu.reg()
		fieldCount := cu.u16()
		fields := regWindow(f, argBase, byte(fieldCount))
		so := it.heap.NewStruct(int(typeID), len(fields))
		copy(so.Fields, fields)
		f.Regs[dst] = gc.Value{Kind: gc.KStruct, Obj: so}
	case rbc.OpStructGet:
		dst, base := cu.reg(), cu.reg()
		field := cu.u16()
		f.Regs[dst] = f.Regs[base].Obj.Fields[field]
	case rbc.OpStructSet:
		val, base := cu.reg(), cu.reg()
		field := cu.u16()
		f.Regs[base].Obj.Fields[field] = f.Regs[val]

	case rbc.OpClassNew:
		dst := cu.reg()
		classID := cu.u16()
		argBase, argc := cu.reg(), cu.reg()
		args := regWindow(f, argBase, argc)
		co := it.heap.NewClass(int(classID), len(args))
		copy(co.Fields, args)
		f.Regs[dst] = gc.Value{Kind: gc.KClass, Obj: co}
	case rbc.OpClassGet:
		dst, base := cu.reg(), cu.reg()
		field := cu.u16()
		f.Regs[dst] = f.Regs[base].Obj.Fields[field]
	case rbc.OpClassSet:
		val, base := cu.reg(), cu.reg()
		field := cu.u16()
		f.Regs[base].Obj.Fields[field] = f.Regs[val]
	case rbc.OpMethodCall, rbc.OpSuperCall:
		dst, base := cu.reg(), cu.reg()
		methodID := cu.u16()
		argBase, argc := cu.reg(), cu.reg()
		args := regWindow(f, argBase, argc)
		fnIndex, err := it.resolveMethod(f.Regs[base], int(methodID))
		if err != nil {
			return stepOut{}, err
		}
		callArgs := append([]gc.Value{f.Regs[base]}, args...)
		r, err := it.call(fnIndex, callArgs)
		if err != nil {
			return stepOut{}, err
		}
		f.Regs[dst] = r

	case rbc.OpTryBegin:
		catchAddr := cu.u32()
		finallyAddr := cu.u32()
		excReg := cu.reg()
		fa := -1
		if finallyAddr != 0xFFFFFFFF {
			fa = int(finallyAddr)
		}
		it.cs.pushHandler(handler{
			catchAddr: int(catchAddr), finallyAddr: fa, excSlot: int(excReg),
			frameIndex: len(it.cs.Frames) - 1,
		})
	case rbc.OpTryEnd:
		it.cs.popHandler()
	case rbc.OpThrow:
		src := cu.reg()
		return stepOut{}, &UserException{Value: f.Regs[src]}

	default:
		return stepOut{}, fault("DISPATCH", "unknown RBC opcode %d", op)
	}

	f.IP = cu.off
	return stepOut{sig: sigNext}, nil
}

// regWindow copies a contiguous argument window [base, base+n) out of the
// register file, the register analog of popN (spec.md §4.3: "Calls pass
// arguments in a contiguous window identified by arg_base and argc").
func regWindow(f *Frame, base, n byte) []gc.Value {
	if n == 0 {
		return nil
	}
	out := make([]gc.Value, n)
	copy(out, f.Regs[base:int(base)+int(n)])
	return out
}

func regBinOp(op rbc.Op, x, y gc.Value) (gc.Value, error) {
	switch op {
	case rbc.OpAddI64:
		return gc.Int(x.I + y.I), nil
	case rbc.OpSubI64:
		return gc.Int(x.I - y.I), nil
	case rbc.OpMulI64:
		return gc.Int(x.I * y.I), nil
	case rbc.OpDivI64:
		if y.I == 0 {
			return gc.Value{}, fault("DIV", "integer division by zero")
		}
		return gc.Int(x.I / y.I), nil
	case rbc.OpModI64:
		if y.I == 0 {
			return gc.Value{}, fault("MOD", "integer division by zero")
		}
		return gc.Int(x.I % y.I), nil
	case rbc.OpAddF64:
		return gc.Float(x.F + y.F), nil
	case rbc.OpSubF64:
		return gc.Float(x.F - y.F), nil
	case rbc.OpMulF64:
		return gc.Float(x.F * y.F), nil
	case rbc.OpDivF64:
		return gc.Float(x.F / y.F), nil
	case rbc.OpBAnd:
		return gc.Int(x.I & y.I), nil
	case rbc.OpBOr:
		return gc.Int(x.I | y.I), nil
	case rbc.OpBXor:
		return gc.Int(x.I ^ y.I), nil
	case rbc.OpBShl:
		return gc.Int(x.I << uint(y.I)), nil
	case rbc.OpBShr:
		return gc.Int(x.I >> uint(y.I)), nil
	case rbc.OpEq:
		return gc.Bool(gc.ValueEqual(x, y)), nil
	case rbc.OpNeq:
		return gc.Bool(!gc.ValueEqual(x, y)), nil
	case rbc.OpLtI64:
		return gc.Bool(x.I < y.I), nil
	case rbc.OpLteI64:
		return gc.Bool(x.I <= y.I), nil
	case rbc.OpGtI64:
		return gc.Bool(x.I > y.I), nil
	case rbc.OpGteI64:
		return gc.Bool(x.I >= y.I), nil
	case rbc.OpLtF64:
		return gc.Bool(x.F < y.F), nil
	case rbc.OpLteF64:
		return gc.Bool(x.F <= y.F), nil
	case rbc.OpGtF64:
		return gc.Bool(x.F > y.F), nil
	case rbc.OpGteF64:
		return gc.Bool(x.F >= y.F), nil
	case rbc.OpAnd:
		return gc.Bool(x.Truthy() && y.Truthy()), nil
	case rbc.OpOr:
		return gc.Bool(x.Truthy() || y.Truthy()), nil
	}
	return gc.Value{}, fault("BINOP", "unhandled binary opcode %d", op)
}
