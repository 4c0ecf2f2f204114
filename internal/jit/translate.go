package jit

import (
	"encoding/binary"
	"fmt"

	"github.com/th3f0rk/betterpython/internal/bytecode"
	"github.com/th3f0rk/betterpython/internal/jit/asm"
	"github.com/th3f0rk/betterpython/internal/rbc"
)

// baseReg is the callee-saved host register the prologue pins to the
// caller's register-array base (spec.md §4.9 step 2: "caches the
// register-array base in a reserved callee-saved host register").
const baseReg = asm.R14

// scratch1/scratch2 are the two fixed scratch host registers spec.md §4.9
// step 3 names ("scratch values use two fixed scratch host registers plus
// rax/rdx for division").
const (
	scratch1 = asm.R10
	scratch2 = asm.R11
)

// bailError reports why a function could not be translated; the caller
// marks the function FAILED and keeps interpreting it forever (spec.md
// §4.9: "any per-opcode failure in emission ... moves the function to
// FAILED").
type bailError struct{ reason string }

func (e *bailError) Error() string { return e.reason }

func bail(format string, args ...interface{}) error {
	return &bailError{reason: fmt.Sprintf(format, args...)}
}

// cursor mirrors internal/interp's RBC decoder; duplicated rather than
// imported to keep the translator's first pass (verify+label-collect) and
// the interpreter's execution loop independent, per spec.md §9's "no
// module-level singletons" spirit — they decode the same bytes but serve
// different consumers.
type cursor struct {
	code []byte
	off  int
}

func (c *cursor) u8() uint8   { v := c.code[c.off]; c.off++; return v }
func (c *cursor) u16() uint16 { v := binary.LittleEndian.Uint16(c.code[c.off:]); c.off += 2; return v }
func (c *cursor) u32() uint32 { v := binary.LittleEndian.Uint32(c.code[c.off:]); c.off += 4; return v }
func (c *cursor) u64() uint64 { v := binary.LittleEndian.Uint64(c.code[c.off:]); c.off += 8; return v }
func (c *cursor) reg() byte { return c.u8() }

// translate lowers fn's register bytecode to native x86-64, or returns a
// *bailError naming the first unsupported construct (spec.md §4.9 step 1:
// "verify the function uses only a supported subset").
func translate(fn *bytecode.Func) ([]byte, error) {
	if fn.Format != bytecode.Register {
		return nil, bail("function is stack-format (JIT only translates RBC)")
	}

	labels, err := collectLabels(fn.Code)
	if err != nil {
		return nil, err
	}

	e := asm.NewEmitter()
	byteLabel := make(map[int]int, len(labels)) // code offset -> emitter label
	for off := range labels {
		byteLabel[off] = e.NewLabel()
	}
	epilogue := e.NewLabel()

	emitPrologue(e)

	cu := &cursor{code: fn.Code}
	for cu.off < len(fn.Code) {
		if lbl, ok := byteLabel[cu.off]; ok {
			e.Mark(lbl)
		}
		if err := translateOne(e, cu, byteLabel, epilogue); err != nil {
			return nil, err
		}
	}

	e.Mark(epilogue)
	emitEpilogue(e)

	return e.Finish()
}

// collectLabels performs spec.md §4.9's first pass: walk the bytecode once
// to verify the supported subset and collect absolute jump targets.
func collectLabels(code []byte) (map[int]bool, error) {
	labels := map[int]bool{}
	cu := &cursor{code: code}
	for cu.off < len(code) {
		op := rbc.Op(cu.u8())
		switch op {
		case rbc.OpConstI64:
			cu.reg()
			cu.u64()
		case rbc.OpConstBool:
			cu.reg()
			cu.u8()
		case rbc.OpMove:
			cu.reg()
			cu.reg()
		case rbc.OpAddI64, rbc.OpSubI64, rbc.OpMulI64, rbc.OpDivI64, rbc.OpModI64,
			rbc.OpBAnd, rbc.OpBOr, rbc.OpBXor,
			rbc.OpEq, rbc.OpNeq, rbc.OpLtI64, rbc.OpLteI64, rbc.OpGtI64, rbc.OpGteI64,
			rbc.OpAnd, rbc.OpOr:
			cu.reg()
			cu.reg()
			cu.reg()
		case rbc.OpNeg, rbc.OpBNot, rbc.OpNot:
			cu.reg()
			cu.reg()
		case rbc.OpJmp:
			labels[int(cu.u32())] = true
		case rbc.OpJmpIfFalse, rbc.OpJmpIfTrue:
			cu.reg()
			labels[int(cu.u32())] = true
		case rbc.OpRet:
			cu.reg()
		default:
			return nil, bail("unsupported opcode %s at offset %d", op.Name(), cu.off-1)
		}
	}
	return labels, nil
}

func emitPrologue(e *asm.Emitter) {
	e.PushR(baseReg)
	e.MovRR(baseReg, asm.RDI) // regs pointer arrives in rdi (System V)
}

func emitEpilogue(e *asm.Emitter) {
	e.PopR(baseReg)
	e.Ret()
}

func slotDisp(reg byte) int32 { return int32(reg) * 8 }

func translateOne(e *asm.Emitter, cu *cursor, byteLabel map[int]int, epilogue int) error {
	op := rbc.Op(cu.u8())
	switch op {
	case rbc.OpConstI64:
		dst := cu.reg()
		v := cu.u64()
		e.MovRegImm64(scratch1, v)
		e.MovStore(baseReg, slotDisp(dst), scratch1)
	case rbc.OpConstBool:
		dst := cu.reg()
		v := cu.u8()
		e.MovRegImm64(scratch1, uint64(v))
		e.MovStore(baseReg, slotDisp(dst), scratch1)
	case rbc.OpMove:
		dst, src := cu.reg(), cu.reg()
		e.MovLoad(scratch1, baseReg, slotDisp(src))
		e.MovStore(baseReg, slotDisp(dst), scratch1)

	case rbc.OpAddI64, rbc.OpSubI64, rbc.OpMulI64, rbc.OpDivI64, rbc.OpModI64,
		rbc.OpBAnd, rbc.OpBOr, rbc.OpBXor:
		dst, a, b := cu.reg(), cu.reg(), cu.reg()
		return emitArith(e, op, dst, a, b)

	case rbc.OpEq, rbc.OpNeq, rbc.OpLtI64, rbc.OpLteI64, rbc.OpGtI64, rbc.OpGteI64:
		dst, a, b := cu.reg(), cu.reg(), cu.reg()
		e.MovLoad(scratch1, baseReg, slotDisp(a))
		e.MovLoad(scratch2, baseReg, slotDisp(b))
		e.CmpRR(scratch1, scratch2)
		e.Setcc(ccFor(op), scratch1)
		e.MovStore(baseReg, slotDisp(dst), scratch1)

	case rbc.OpAnd:
		dst, a, b := cu.reg(), cu.reg(), cu.reg()
		e.MovLoad(scratch1, baseReg, slotDisp(a))
		e.MovLoad(scratch2, baseReg, slotDisp(b))
		e.AndRR(scratch1, scratch2)
		e.MovStore(baseReg, slotDisp(dst), scratch1)
	case rbc.OpOr:
		dst, a, b := cu.reg(), cu.reg(), cu.reg()
		e.MovLoad(scratch1, baseReg, slotDisp(a))
		e.MovLoad(scratch2, baseReg, slotDisp(b))
		e.OrRR(scratch1, scratch2)
		e.MovStore(baseReg, slotDisp(dst), scratch1)

	case rbc.OpNeg:
		dst, x := cu.reg(), cu.reg()
		e.MovLoad(scratch1, baseReg, slotDisp(x))
		e.NegR(scratch1)
		e.MovStore(baseReg, slotDisp(dst), scratch1)
	case rbc.OpBNot:
		dst, x := cu.reg(), cu.reg()
		e.MovLoad(scratch1, baseReg, slotDisp(x))
		e.MovRegImm64(scratch2, ^uint64(0))
		e.XorRR(scratch1, scratch2)
		e.MovStore(baseReg, slotDisp(dst), scratch1)
	case rbc.OpNot:
		dst, x := cu.reg(), cu.reg()
		e.MovLoad(scratch1, baseReg, slotDisp(x))
		e.MovRegImm64(scratch2, 0)
		e.CmpRR(scratch1, scratch2)
		e.Setcc(asm.CCEqual, scratch1)
		e.MovStore(baseReg, slotDisp(dst), scratch1)

	case rbc.OpJmp:
		target := int(cu.u32())
		e.Jmp(byteLabel[target])
	case rbc.OpJmpIfFalse:
		testReg := cu.reg()
		target := int(cu.u32())
		e.MovLoad(scratch1, baseReg, slotDisp(testReg))
		e.MovRegImm64(scratch2, 0)
		e.CmpRR(scratch1, scratch2)
		e.Jcc(asm.CCEqual, byteLabel[target])
	case rbc.OpJmpIfTrue:
		testReg := cu.reg()
		target := int(cu.u32())
		e.MovLoad(scratch1, baseReg, slotDisp(testReg))
		e.MovRegImm64(scratch2, 0)
		e.CmpRR(scratch1, scratch2)
		e.Jcc(asm.CCNotEqual, byteLabel[target])

	case rbc.OpRet:
		src := cu.reg()
		e.MovLoad(asm.RAX, baseReg, slotDisp(src))
		e.Jmp(epilogue)

	default:
		return bail("unsupported opcode %s at offset %d", op.Name(), cu.off-1)
	}
	return nil
}

func emitArith(e *asm.Emitter, op rbc.Op, dst, a, b byte) error {
	switch op {
	case rbc.OpDivI64, rbc.OpModI64:
		e.MovLoad(asm.RAX, baseReg, slotDisp(a))
		e.MovLoad(scratch1, baseReg, slotDisp(b))
		e.Cqo()
		e.IdivR(scratch1)
		if op == rbc.OpDivI64 {
			e.MovStore(baseReg, slotDisp(dst), asm.RAX)
		} else {
			e.MovStore(baseReg, slotDisp(dst), asm.RDX)
		}
		return nil
	}
	e.MovLoad(scratch1, baseReg, slotDisp(a))
	e.MovLoad(scratch2, baseReg, slotDisp(b))
	switch op {
	case rbc.OpAddI64:
		e.AddRR(scratch1, scratch2)
	case rbc.OpSubI64:
		e.SubRR(scratch1, scratch2)
	case rbc.OpMulI64:
		e.ImulRR(scratch1, scratch2)
	case rbc.OpBAnd:
		e.AndRR(scratch1, scratch2)
	case rbc.OpBOr:
		e.OrRR(scratch1, scratch2)
	case rbc.OpBXor:
		e.XorRR(scratch1, scratch2)
	default:
		return bail("unhandled arithmetic opcode %s", op.Name())
	}
	e.MovStore(baseReg, slotDisp(dst), scratch1)
	return nil
}

func ccFor(op rbc.Op) byte {
	switch op {
	case rbc.OpEq:
		return asm.CCEqual
	case rbc.OpNeq:
		return asm.CCNotEqual
	case rbc.OpLtI64:
		return asm.CCLess
	case rbc.OpLteI64:
		return asm.CCLessEqual
	case rbc.OpGtI64:
		return asm.CCGreater
	case rbc.OpGteI64:
		return asm.CCGreaterEqual
	}
	return asm.CCEqual
}
