package sbc

import "encoding/binary"

// Assembler builds one function's SBC bytestream with label back-patching,
// the stack-bytecode analog of the teacher's Compiler.emit/emitLabel/newLabel
// trio (ir.go:1428-1520), generalized to byte-offset jump targets instead of
// the teacher's instruction-index labels since spec.md §3 mandates "absolute
// byte offsets".
type Assembler struct {
	code     []byte
	labels   map[int]int   // label id -> resolved byte offset, once known
	fixups   map[int][]int // label id -> byte offsets of pending u32 operands
	nextLabel int
}

// NewAssembler constructs an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{labels: map[int]int{}, fixups: map[int][]int{}}
}

// Offset returns the current end-of-stream byte offset (the offset the next
// emitted instruction will start at).
func (a *Assembler) Offset() int { return len(a.code) }

func (a *Assembler) emitOp(op Op) { a.code = append(a.code, byte(op)) }

func (a *Assembler) emitU8(v uint8)   { a.code = append(a.code, v) }
func (a *Assembler) emitU16(v uint16) { a.code = binary.LittleEndian.AppendUint16(a.code, v) }
func (a *Assembler) emitU32(v uint32) { a.code = binary.LittleEndian.AppendUint32(a.code, v) }
func (a *Assembler) emitU64(v uint64) { a.code = binary.LittleEndian.AppendUint64(a.code, v) }

// NewLabel allocates a fresh label id that Mark later binds to a byte offset.
func (a *Assembler) NewLabel() int {
	a.nextLabel++
	return a.nextLabel
}

// Mark binds label to the current byte offset.
func (a *Assembler) Mark(label int) { a.labels[label] = len(a.code) }

// EmitJump emits a jump opcode with a forward/backward reference to label,
// reserving a u32 operand that Finish back-patches.
func (a *Assembler) EmitJump(op Op, label int) {
	a.emitOp(op)
	if off, ok := a.labels[label]; ok {
		a.emitU32(uint32(off))
		return
	}
	a.fixups[label] = append(a.fixups[label], len(a.code))
	a.emitU32(0xFFFFFFFF)
}

// ConstI64 emits CONST_I64 imm64.
func (a *Assembler) ConstI64(v int64) { a.emitOp(OpConstI64); a.emitU64(uint64(v)) }

// ConstF64 emits CONST_F64 imm64 (bit pattern).
func (a *Assembler) ConstF64(bits uint64) { a.emitOp(OpConstF64); a.emitU64(bits) }

// ConstBool emits CONST_BOOL imm8.
func (a *Assembler) ConstBool(v bool) {
	a.emitOp(OpConstBool)
	if v {
		a.emitU8(1)
	} else {
		a.emitU8(0)
	}
}

// ConstStr emits CONST_STR local_str_id.
func (a *Assembler) ConstStr(localID uint32) { a.emitOp(OpConstStr); a.emitU32(localID) }

// ConstNull emits CONST_NULL.
func (a *Assembler) ConstNull() { a.emitOp(OpConstNull) }

// ConstFunc emits CONST_FUNC fn_index, producing a first-class function
// reference Value (spec.md §3 "function reference" expr variant; not in the
// §4.2 design-level opcode inventory, added here to make lambda/function
// values concrete — see DESIGN.md).
func (a *Assembler) ConstFunc(fnIndex uint32) { a.emitOp(OpConstFunc); a.emitU32(fnIndex) }

// Simple0 emits a zero-operand opcode (arithmetic, comparison, logical,
// stack, try/end/throw family).
func (a *Assembler) Simple0(op Op) { a.emitOp(op) }

// Slot16 emits op with a u16 slot operand (LOAD_LOCAL/STORE_LOCAL/_GLOBAL).
func (a *Assembler) Slot16(op Op, slot uint16) { a.emitOp(op); a.emitU16(slot) }

// Call emits CALL fn_index argc.
func (a *Assembler) Call(fnIndex uint32, argc uint16) {
	a.emitOp(OpCall)
	a.emitU32(fnIndex)
	a.emitU16(argc)
}

// CallBuiltin emits CALL_BUILTIN id argc.
func (a *Assembler) CallBuiltin(id uint16, argc uint16) {
	a.emitOp(OpCallBuiltin)
	a.emitU16(id)
	a.emitU16(argc)
}

// FFICall emits FFI_CALL extern_id argc.
func (a *Assembler) FFICall(externID uint16, argc uint8) {
	a.emitOp(OpFFICall)
	a.emitU16(externID)
	a.emitU8(argc)
}

// ArrayNew emits ARRAY_NEW count.
func (a *Assembler) ArrayNew(count uint32) { a.emitOp(OpArrayNew); a.emitU32(count) }

// MapNew emits MAP_NEW pair_count.
func (a *Assembler) MapNew(pairCount uint32) { a.emitOp(OpMapNew); a.emitU32(pairCount) }

// StructNew emits STRUCT_NEW type_id field_count.
func (a *Assembler) StructNew(typeID, fieldCount uint16) {
	a.emitOp(OpStructNew)
	a.emitU16(typeID)
	a.emitU16(fieldCount)
}

// Field16 emits op with a u16 field index (STRUCT_GET/SET).
func (a *Assembler) Field16(op Op, field uint16) { a.emitOp(op); a.emitU16(field) }

// ClassNew emits CLASS_NEW class_id argc.
func (a *Assembler) ClassNew(classID uint16, argc uint8) {
	a.emitOp(OpClassNew)
	a.emitU16(classID)
	a.emitU8(argc)
}

// MethodCall emits METHOD_CALL method_id argc (also used for SUPER_CALL).
func (a *Assembler) MethodCall(op Op, methodID uint16, argc uint8) {
	a.emitOp(op)
	a.emitU16(methodID)
	a.emitU8(argc)
}

// TryBegin emits TRY_BEGIN with forward references to catch/finally labels
// and a catch local slot.
func (a *Assembler) TryBegin(catchLabel, finallyLabel int, catchSlot uint16) {
	a.emitOp(OpTryBegin)
	a.emitJumpTarget(catchLabel)
	a.emitJumpTarget(finallyLabel)
	a.emitU16(catchSlot)
}

func (a *Assembler) emitJumpTarget(label int) {
	if label < 0 {
		a.emitU32(0xFFFFFFFF) // sentinel: "no finally"
		return
	}
	if off, ok := a.labels[label]; ok {
		a.emitU32(uint32(off))
		return
	}
	a.fixups[label] = append(a.fixups[label], len(a.code))
	a.emitU32(0xFFFFFFFF)
}

// Finish resolves every pending fixup against its label and returns the
// finished bytestream. Every label referenced by EmitJump/TryBegin must have
// been Mark'd by this point.
func (a *Assembler) Finish() []byte {
	for label, sites := range a.fixups {
		off, ok := a.labels[label]
		if !ok {
			panic("ICE: unresolved jump label in SBC assembler")
		}
		for _, site := range sites {
			binary.LittleEndian.PutUint32(a.code[site:], uint32(off))
		}
	}
	return a.code
}
