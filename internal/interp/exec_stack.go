package interp

import (
	"encoding/binary"
	"math"

	"github.com/th3f0rk/betterpython/internal/builtins"
	"github.com/th3f0rk/betterpython/internal/bytecode"
	"github.com/th3f0rk/betterpython/internal/ffi"
	"github.com/th3f0rk/betterpython/internal/gc"
	"github.com/th3f0rk/betterpython/internal/sbc"
)

// strValue wraps a freshly allocated string Object as a KStr Value.
func strValue(o *gc.Object) gc.Value { return gc.Value{Kind: gc.KStr, Obj: o} }

func (f *Frame) push(v gc.Value) { f.Stack = append(f.Stack, v) }
func (f *Frame) pop() gc.Value {
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v
}

type cursor struct {
	code []byte
	off  int
}

func (c *cursor) u8() uint8   { v := c.code[c.off]; c.off++; return v }
func (c *cursor) u16() uint16 { v := binary.LittleEndian.Uint16(c.code[c.off:]); c.off += 2; return v }
func (c *cursor) u32() uint32 { v := binary.LittleEndian.Uint32(c.code[c.off:]); c.off += 4; return v }
func (c *cursor) u64() uint64 { v := binary.LittleEndian.Uint64(c.code[c.off:]); c.off += 8; return v }

// stepStack executes exactly one SBC instruction at f.IP (spec.md §4.2/§4.6).
func (it *Interp) stepStack(f *Frame) (stepOut, error) {
	cu := &cursor{code: f.Fn.Code, off: f.IP}
	op := sbc.Op(cu.u8())

	switch op {
	case sbc.OpConstI64:
		f.push(gc.Int(int64(cu.u64())))
	case sbc.OpConstF64:
		f.push(gc.Float(math.Float64frombits(cu.u64())))
	case sbc.OpConstBool:
		f.push(gc.Bool(cu.u8() != 0))
	case sbc.OpConstStr:
		id := cu.u32()
		f.push(strValue(it.heap.NewString(it.mod.ResolveString(f.Fn, id))))
	case sbc.OpConstNull:
		f.push(gc.Null())
	case sbc.OpConstFunc:
		f.push(gc.FuncIndex(int(cu.u32())))

	case sbc.OpLoadLocal:
		f.push(f.Locals[cu.u16()])
	case sbc.OpStoreLocal:
		slot := cu.u16()
		f.Locals[slot] = f.pop()
	case sbc.OpLoadGlobal:
		f.push(it.cs.Globals[cu.u16()])
	case sbc.OpStoreGlobal:
		slot := cu.u16()
		it.cs.Globals[slot] = f.pop()

	case sbc.OpAddI64, sbc.OpSubI64, sbc.OpMulI64, sbc.OpDivI64, sbc.OpModI64,
		sbc.OpAddF64, sbc.OpSubF64, sbc.OpMulF64, sbc.OpDivF64,
		sbc.OpBAnd, sbc.OpBOr, sbc.OpBXor, sbc.OpBShl, sbc.OpBShr,
		sbc.OpEq, sbc.OpNeq, sbc.OpLtI64, sbc.OpLteI64, sbc.OpGtI64, sbc.OpGteI64,
		sbc.OpLtF64, sbc.OpLteF64, sbc.OpGtF64, sbc.OpGteF64, sbc.OpAnd, sbc.OpOr:
		y := f.pop()
		x := f.pop()
		r, err := binOp(op, x, y)
		if err != nil {
			return stepOut{}, err
		}
		f.push(r)
	case sbc.OpAddStr:
		y := f.pop()
		x := f.pop()
		f.push(strValue(it.heap.NewString(gc.AsStr(x) + gc.AsStr(y))))
	case sbc.OpNeg:
		x := f.pop()
		f.push(gc.Int(-x.I))
	case sbc.OpNegF64:
		x := f.pop()
		f.push(gc.Float(-x.F))
	case sbc.OpBNot:
		x := f.pop()
		f.push(gc.Int(^x.I))
	case sbc.OpNot:
		x := f.pop()
		f.push(gc.Bool(!x.Truthy()))
	case sbc.OpConvertItoF:
		x := f.pop()
		f.push(gc.Float(float64(x.I)))

	case sbc.OpJmp:
		target := cu.u32()
		f.IP = int(target)
		return stepOut{sig: sigNext}, nil
	case sbc.OpJmpIfFalse:
		target := cu.u32()
		cond := f.pop()
		if !cond.Truthy() {
			f.IP = int(target)
			return stepOut{sig: sigNext}, nil
		}
	case sbc.OpJmpIfTrue:
		target := cu.u32()
		cond := f.pop()
		if cond.Truthy() {
			f.IP = int(target)
			return stepOut{sig: sigNext}, nil
		}

	case sbc.OpCall:
		fnIndex := cu.u32()
		argc := cu.u16()
		args := popN(f, int(argc))
		r, err := it.call(int(fnIndex), args)
		if err != nil {
			return stepOut{}, err
		}
		f.push(r)
	case sbc.OpCallBuiltin:
		id := cu.u16()
		argc := cu.u16()
		args := popN(f, int(argc))
		r, err := builtins.Call(int(id), args, it.heap, &it.exitCode, &it.exiting)
		if err != nil {
			sig, _ := builtins.ByID(int(id))
			return stepOut{}, fault("CALL_BUILTIN", "%s: %v", sig.Name, err)
		}
		f.push(r)
		if it.exiting {
			return stepOut{sig: sigExit}, nil
		}
	case sbc.OpFFICall:
		externID := cu.u16()
		argc := cu.u8()
		args := popN(f, int(argc))
		r, err := it.callFFI(int(externID), args)
		if err != nil {
			return stepOut{}, err
		}
		f.push(r)
	case sbc.OpRet:
		v := f.pop()
		return stepOut{sig: sigReturn, retVal: v}, nil
	case sbc.OpPop:
		f.pop()

	case sbc.OpArrayNew:
		count := cu.u32()
		elems := popN(f, int(count))
		f.push(gc.Value{Kind: gc.KArray, Obj: it.heap.NewArray(elems)})
	case sbc.OpArrayGet:
		idx := f.pop()
		coll := f.pop()
		v, err := arrayGet(coll, idx)
		if err != nil {
			return stepOut{}, err
		}
		f.push(v)
	case sbc.OpArraySet:
		val := f.pop()
		idx := f.pop()
		coll := f.pop()
		if err := arraySet(coll, idx, val); err != nil {
			return stepOut{}, err
		}
	case sbc.OpMapNew:
		pairCount := cu.u32()
		flat := popN(f, int(pairCount)*2)
		mo := it.heap.NewMap()
		for i := 0; i < len(flat); i += 2 {
			mo.MapSet(flat[i], flat[i+1])
		}
		f.push(gc.Value{Kind: gc.KMap, Obj: mo})
	case sbc.OpMapGet:
		key := f.pop()
		coll := f.pop()
		v, ok := coll.Obj.MapGet(key)
		if !ok {
			return stepOut{}, fault("MAP_GET", "key miss")
		}
		f.push(v)
	case sbc.OpMapSet:
		val := f.pop()
		key := f.pop()
		coll := f.pop()
		coll.Obj.MapSet(key, val)

	case sbc.OpStructNew:
		typeID := cu.u16()
		fieldCount := cu.u16()
		fields := popN(f, int(fieldCount))
		so := it.heap.NewStruct(int(typeID), len(fields))
		copy(so.Fields, fields)
		f.push(gc.Value{Kind: gc.KStruct, Obj: so})
	case sbc.OpStructGet:
		field := cu.u16()
		base := f.pop()
		f.push(base.Obj.Fields[field])
	case sbc.OpStructSet:
		field := cu.u16()
		val := f.pop()
		base := f.pop()
		base.Obj.Fields[field] = val

	case sbc.OpClassNew:
		classID := cu.u16()
		argc := cu.u8()
		args := popN(f, int(argc))
		co := it.heap.NewClass(int(classID), len(args))
		copy(co.Fields, args)
		f.push(gc.Value{Kind: gc.KClass, Obj: co})
	case sbc.OpClassGet:
		field := cu.u16()
		base := f.pop()
		f.push(base.Obj.Fields[field])
	case sbc.OpClassSet:
		field := cu.u16()
		val := f.pop()
		base := f.pop()
		base.Obj.Fields[field] = val
	case sbc.OpMethodCall, sbc.OpSuperCall:
		methodID := cu.u16()
		argc := cu.u8()
		args := popN(f, int(argc))
		base := f.pop()
		fnIndex, err := it.resolveMethod(base, int(methodID))
		if err != nil {
			return stepOut{}, err
		}
		callArgs := append([]gc.Value{base}, args...)
		r, err := it.call(fnIndex, callArgs)
		if err != nil {
			return stepOut{}, err
		}
		f.push(r)

	case sbc.OpTryBegin:
		catchAddr := cu.u32()
		finallyAddr := cu.u32()
		excSlot := cu.u16()
		fa := -1
		if finallyAddr != 0xFFFFFFFF {
			fa = int(finallyAddr)
		}
		it.cs.pushHandler(handler{
			catchAddr: int(catchAddr), finallyAddr: fa, excSlot: int(excSlot),
			frameIndex: len(it.cs.Frames) - 1,
		})
	case sbc.OpTryEnd:
		it.cs.popHandler()
	case sbc.OpThrow:
		v := f.pop()
		return stepOut{}, &UserException{Value: v}

	default:
		return stepOut{}, fault("DISPATCH", "unknown SBC opcode %d", op)
	}

	f.IP = cu.off
	return stepOut{sig: sigNext}, nil
}

func popN(f *Frame, n int) []gc.Value {
	if n == 0 {
		return nil
	}
	out := make([]gc.Value, n)
	copy(out, f.Stack[len(f.Stack)-n:])
	f.Stack = f.Stack[:len(f.Stack)-n]
	return out
}

func binOp(op sbc.Op, x, y gc.Value) (gc.Value, error) {
	switch op {
	case sbc.OpAddI64:
		return gc.Int(x.I + y.I), nil
	case sbc.OpSubI64:
		return gc.Int(x.I - y.I), nil
	case sbc.OpMulI64:
		return gc.Int(x.I * y.I), nil
	case sbc.OpDivI64:
		if y.I == 0 {
			return gc.Value{}, fault("DIV", "integer division by zero")
		}
		return gc.Int(x.I / y.I), nil
	case sbc.OpModI64:
		if y.I == 0 {
			return gc.Value{}, fault("MOD", "integer division by zero")
		}
		return gc.Int(x.I % y.I), nil
	case sbc.OpAddF64:
		return gc.Float(x.F + y.F), nil
	case sbc.OpSubF64:
		return gc.Float(x.F - y.F), nil
	case sbc.OpMulF64:
		return gc.Float(x.F * y.F), nil
	case sbc.OpDivF64:
		return gc.Float(x.F / y.F), nil
	case sbc.OpBAnd:
		return gc.Int(x.I & y.I), nil
	case sbc.OpBOr:
		return gc.Int(x.I | y.I), nil
	case sbc.OpBXor:
		return gc.Int(x.I ^ y.I), nil
	case sbc.OpBShl:
		return gc.Int(x.I << uint(y.I)), nil
	case sbc.OpBShr:
		return gc.Int(x.I >> uint(y.I)), nil
	case sbc.OpEq:
		return gc.Bool(gc.ValueEqual(x, y)), nil
	case sbc.OpNeq:
		return gc.Bool(!gc.ValueEqual(x, y)), nil
	case sbc.OpLtI64:
		return gc.Bool(x.I < y.I), nil
	case sbc.OpLteI64:
		return gc.Bool(x.I <= y.I), nil
	case sbc.OpGtI64:
		return gc.Bool(x.I > y.I), nil
	case sbc.OpGteI64:
		return gc.Bool(x.I >= y.I), nil
	case sbc.OpLtF64:
		return gc.Bool(x.F < y.F), nil
	case sbc.OpLteF64:
		return gc.Bool(x.F <= y.F), nil
	case sbc.OpGtF64:
		return gc.Bool(x.F > y.F), nil
	case sbc.OpGteF64:
		return gc.Bool(x.F >= y.F), nil
	case sbc.OpAnd:
		return gc.Bool(x.Truthy() && y.Truthy()), nil
	case sbc.OpOr:
		return gc.Bool(x.Truthy() || y.Truthy()), nil
	}
	return gc.Value{}, fault("BINOP", "unhandled binary opcode %d", op)
}

func arrayGet(coll, idx gc.Value) (gc.Value, error) {
	i := int(idx.I)
	if i < 0 || i >= len(coll.Obj.Arr) {
		return gc.Value{}, fault("ARRAY_GET", "index %d out of range (len %d)", i, len(coll.Obj.Arr))
	}
	return coll.Obj.Arr[i], nil
}

func arraySet(coll, idx, val gc.Value) error {
	i := int(idx.I)
	if i < 0 || i >= len(coll.Obj.Arr) {
		return fault("ARRAY_SET", "index %d out of range (len %d)", i, len(coll.Obj.Arr))
	}
	coll.Obj.Arr[i] = val
	return nil
}

// resolveMethod finds the function index for methodID on base's runtime
// class, walking the inheritance chain recorded in bytecode.ClassType.
func (it *Interp) resolveMethod(base gc.Value, methodID int) (int, error) {
	classID := base.Obj.ClassID
	for classID >= 0 {
		ct := it.mod.ClassTypes[classID]
		if methodID < len(ct.MethodFn) {
			return ct.MethodFn[methodID], nil
		}
		classID = -1
		for i, c2 := range it.mod.ClassTypes {
			if c2.Name == ct.ParentName {
				classID = i
				break
			}
		}
	}
	return 0, fault("METHOD_CALL", "method id %d not found", methodID)
}

func (it *Interp) callFFI(externID int, args []gc.Value) (gc.Value, error) {
	if externID < 0 || externID >= len(it.mod.ExternFuncs) {
		return gc.Value{}, fault("FFI_CALL", "extern index %d out of range", externID)
	}
	ext := it.mod.ExternFuncs[externID]
	ivals := make([]int64, len(args))
	for i, a := range args {
		ivals[i] = a.I
	}
	desc := toFFIDescriptor(ext)
	ret, err := it.resolver.Invoke(desc, ivals)
	if err != nil {
		return gc.Value{}, fault("FFI_CALL", "%s: %v", ext.BPName, err)
	}
	return gc.Int(ret), nil
}

func toFFIDescriptor(ext bytecode.ExternFunc) *ffi.Descriptor {
	params := make([]ffi.Type, len(ext.ParamTypes))
	for i, pt := range ext.ParamTypes {
		params[i] = ffiTypeFromName(pt)
	}
	return &ffi.Descriptor{
		BPName: ext.BPName, CName: ext.CName, LibraryPath: ext.LibraryPath,
		Params: params, Return: ffiTypeFromName(ext.RetType), Variadic: ext.Variadic,
	}
}

func ffiTypeFromName(name string) ffi.Type {
	switch name {
	case "INT":
		return ffi.Int
	case "FLOAT":
		return ffi.Float
	case "STR":
		return ffi.Str
	case "PTR":
		return ffi.Ptr
	default:
		return ffi.Void
	}
}
