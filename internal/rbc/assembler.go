package rbc

import "encoding/binary"

// Assembler builds one function's RBC bytestream with label back-patching,
// the register-bytecode analog of internal/sbc.Assembler (spec.md §4.3:
// "Jumps store absolute byte offsets in the function's bytecode (u32)").
type Assembler struct {
	code      []byte
	labels    map[int]int
	fixups    map[int][]int
	nextLabel int
}

// NewAssembler constructs an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{labels: map[int]int{}, fixups: map[int][]int{}}
}

// Offset returns the current end-of-stream byte offset.
func (a *Assembler) Offset() int { return len(a.code) }

func (a *Assembler) emitOp(op Op)     { a.code = append(a.code, byte(op)) }
func (a *Assembler) emitU8(v uint8)   { a.code = append(a.code, v) }
func (a *Assembler) emitU16(v uint16) { a.code = binary.LittleEndian.AppendUint16(a.code, v) }
func (a *Assembler) emitU32(v uint32) { a.code = binary.LittleEndian.AppendUint32(a.code, v) }
func (a *Assembler) emitU64(v uint64) { a.code = binary.LittleEndian.AppendUint64(a.code, v) }
func (a *Assembler) emitReg(r byte)   { a.code = append(a.code, r) }

// NewLabel allocates a fresh label id.
func (a *Assembler) NewLabel() int {
	a.nextLabel++
	return a.nextLabel
}

// Mark binds label to the current byte offset.
func (a *Assembler) Mark(label int) { a.labels[label] = len(a.code) }

func (a *Assembler) emitJumpTarget(label int) {
	if label < 0 {
		a.emitU32(0xFFFFFFFF)
		return
	}
	if off, ok := a.labels[label]; ok {
		a.emitU32(uint32(off))
		return
	}
	a.fixups[label] = append(a.fixups[label], len(a.code))
	a.emitU32(0xFFFFFFFF)
}

// EmitJump emits an unconditional/conditional jump with a single test
// register (ignored for OpJmp) and a label target.
func (a *Assembler) EmitJump(op Op, testReg byte, label int) {
	a.emitOp(op)
	if op != OpJmp {
		a.emitReg(testReg)
	}
	a.emitJumpTarget(label)
}

// ConstI64 emits R_CONST_I64 dst, imm64.
func (a *Assembler) ConstI64(dst byte, v int64) {
	a.emitOp(OpConstI64)
	a.emitReg(dst)
	a.emitU64(uint64(v))
}

// ConstF64 emits R_CONST_F64 dst, imm64(bits).
func (a *Assembler) ConstF64(dst byte, bits uint64) {
	a.emitOp(OpConstF64)
	a.emitReg(dst)
	a.emitU64(bits)
}

// ConstBool emits R_CONST_BOOL dst, imm8.
func (a *Assembler) ConstBool(dst byte, v bool) {
	a.emitOp(OpConstBool)
	a.emitReg(dst)
	if v {
		a.emitU8(1)
	} else {
		a.emitU8(0)
	}
}

// ConstStr emits R_CONST_STR dst, local_str_id.
func (a *Assembler) ConstStr(dst byte, localID uint32) {
	a.emitOp(OpConstStr)
	a.emitReg(dst)
	a.emitU32(localID)
}

// ConstNull emits R_CONST_NULL dst.
func (a *Assembler) ConstNull(dst byte) { a.emitOp(OpConstNull); a.emitReg(dst) }

// ConstFunc emits R_CONST_FUNC dst, fn_index (mirrors internal/sbc's added
// CONST_FUNC; see its doc comment and DESIGN.md).
func (a *Assembler) ConstFunc(dst byte, fnIndex uint32) {
	a.emitOp(OpConstFunc)
	a.emitReg(dst)
	a.emitU32(fnIndex)
}

// Move emits R_MOVE dst, src.
func (a *Assembler) Move(dst, src byte) {
	if dst == src {
		return
	}
	a.emitOp(OpMove)
	a.emitReg(dst)
	a.emitReg(src)
}

// Bin3 emits a 3-address op: op dst, a, b.
func (a *Assembler) Bin3(op Op, dst, x, y byte) {
	a.emitOp(op)
	a.emitReg(dst)
	a.emitReg(x)
	a.emitReg(y)
}

// Un2 emits a 2-address op: op dst, x.
func (a *Assembler) Un2(op Op, dst, x byte) {
	a.emitOp(op)
	a.emitReg(dst)
	a.emitReg(x)
}

// LoadGlobal emits R_LOAD_GLOBAL dst, slot16.
func (a *Assembler) LoadGlobal(dst byte, slot uint16) {
	a.emitOp(OpLoadGlobal)
	a.emitReg(dst)
	a.emitU16(slot)
}

// StoreGlobal emits R_STORE_GLOBAL slot16, src.
func (a *Assembler) StoreGlobal(slot uint16, src byte) {
	a.emitOp(OpStoreGlobal)
	a.emitU16(slot)
	a.emitReg(src)
}

// Call emits R_CALL dst, fn_index, arg_base, argc.
func (a *Assembler) Call(dst byte, fnIndex uint32, argBase, argc byte) {
	a.emitOp(OpCall)
	a.emitReg(dst)
	a.emitU32(fnIndex)
	a.emitReg(argBase)
	a.emitReg(argc)
}

// CallBuiltin emits R_CALL_BUILTIN dst, id, arg_base, argc.
func (a *Assembler) CallBuiltin(dst byte, id uint16, argBase, argc byte) {
	a.emitOp(OpCallBuiltin)
	a.emitReg(dst)
	a.emitU16(id)
	a.emitReg(argBase)
	a.emitReg(argc)
}

// FFICall emits R_FFI_CALL dst, extern_id, arg_base, argc.
func (a *Assembler) FFICall(dst byte, externID uint16, argBase, argc byte) {
	a.emitOp(OpFFICall)
	a.emitReg(dst)
	a.emitU16(externID)
	a.emitReg(argBase)
	a.emitReg(argc)
}

// Ret emits R_RET src.
func (a *Assembler) Ret(src byte) { a.emitOp(OpRet); a.emitReg(src) }

// ArrayNew emits R_ARRAY_NEW dst, arg_base, count.
func (a *Assembler) ArrayNew(dst, argBase byte, count uint32) {
	a.emitOp(OpArrayNew)
	a.emitReg(dst)
	a.emitReg(argBase)
	a.emitU32(count)
}

// MapNew emits R_MAP_NEW dst, arg_base, pair_count.
func (a *Assembler) MapNew(dst, argBase byte, pairCount uint32) {
	a.emitOp(OpMapNew)
	a.emitReg(dst)
	a.emitReg(argBase)
	a.emitU32(pairCount)
}

// StructNew emits R_STRUCT_NEW dst, type_id, arg_base, field_count.
func (a *Assembler) StructNew(dst byte, typeID uint16, argBase byte, fieldCount uint16) {
	a.emitOp(OpStructNew)
	a.emitReg(dst)
	a.emitU16(typeID)
	a.emitReg(argBase)
	a.emitU16(fieldCount)
}

// FieldOp emits op dst/src, base, field_idx (shared by STRUCT/CLASS GET/SET).
func (a *Assembler) FieldOp(op Op, a0, base byte, field uint16) {
	a.emitOp(op)
	a.emitReg(a0)
	a.emitReg(base)
	a.emitU16(field)
}

// ClassNew emits R_CLASS_NEW dst, class_id, arg_base, argc.
func (a *Assembler) ClassNew(dst byte, classID uint16, argBase, argc byte) {
	a.emitOp(OpClassNew)
	a.emitReg(dst)
	a.emitU16(classID)
	a.emitReg(argBase)
	a.emitReg(argc)
}

// MethodCall emits op dst, base, method_id, arg_base, argc (also SUPER_CALL).
func (a *Assembler) MethodCall(op Op, dst, base byte, methodID uint16, argBase, argc byte) {
	a.emitOp(op)
	a.emitReg(dst)
	a.emitReg(base)
	a.emitU16(methodID)
	a.emitReg(argBase)
	a.emitReg(argc)
}

// TryBegin emits R_TRY_BEGIN with forward references to catch/finally
// labels and the register that will receive a thrown value.
func (a *Assembler) TryBegin(catchLabel, finallyLabel int, excReg byte) {
	a.emitOp(OpTryBegin)
	a.emitJumpTarget(catchLabel)
	a.emitJumpTarget(finallyLabel)
	a.emitReg(excReg)
}

// Throw emits R_THROW src.
func (a *Assembler) Throw(src byte) { a.emitOp(OpThrow); a.emitReg(src) }

// TryEnd emits R_TRY_END.
func (a *Assembler) TryEnd() { a.emitOp(OpTryEnd) }

// Finish resolves every pending fixup against its label and returns the
// finished bytestream.
func (a *Assembler) Finish() []byte {
	for label, sites := range a.fixups {
		off, ok := a.labels[label]
		if !ok {
			panic("ICE: unresolved jump label in RBC assembler")
		}
		for _, site := range sites {
			binary.LittleEndian.PutUint32(a.code[site:], uint32(off))
		}
	}
	return a.code
}
