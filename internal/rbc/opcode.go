// Package rbc implements the register bytecode (RBC) format and the
// register compiler that lowers a type-checked ast.Module into it (spec.md
// §4.3/§4.4). Grounded the same way internal/sbc is, in the teacher's
// stack-machine IR (_examples/tinyrange-rtg std/compiler/ir.go), but
// generalized further: every instruction here is 3-address with explicit
// byte register operands instead of the teacher's (and internal/sbc's)
// implicit operand stack, per spec.md §4.3's "All opcodes mirror the stack
// forms but name operand registers explicitly" requirement.
package rbc

// Op is a register-machine opcode. Mnemonics mirror internal/sbc's opcode
// set (spec.md §4.3: "All opcodes mirror the stack forms"), except that
// R_MOVE takes the place of the stack-only LOAD_LOCAL/STORE_LOCAL/POP.
type Op byte

const (
	OpConstI64 Op = iota
	OpConstF64
	OpConstBool
	OpConstStr
	OpConstNull
	OpConstFunc

	OpMove

	OpLoadGlobal
	OpStoreGlobal

	OpAddI64
	OpSubI64
	OpMulI64
	OpDivI64
	OpModI64
	OpAddF64
	OpSubF64
	OpMulF64
	OpDivF64
	OpAddStr
	OpNeg
	OpNegF64
	OpBAnd
	OpBOr
	OpBXor
	OpBShl
	OpBShr
	OpBNot

	OpEq
	OpNeq
	OpLtI64
	OpLteI64
	OpGtI64
	OpGteI64
	OpLtF64
	OpLteF64
	OpGtF64
	OpGteF64

	OpNot
	OpAnd
	OpOr

	OpJmp
	OpJmpIfFalse
	OpJmpIfTrue

	OpCall
	OpCallBuiltin
	OpFFICall
	OpRet

	OpArrayNew
	OpArrayGet
	OpArraySet
	OpMapNew
	OpMapGet
	OpMapSet
	OpStructNew
	OpStructGet
	OpStructSet
	OpClassNew
	OpClassGet
	OpClassSet
	OpMethodCall
	OpSuperCall

	OpTryBegin
	OpTryEnd
	OpThrow

	OpConvertItoF
)

var opNames = map[Op]string{
	OpConstI64: "R_CONST_I64", OpConstF64: "R_CONST_F64", OpConstBool: "R_CONST_BOOL",
	OpConstStr: "R_CONST_STR", OpConstNull: "R_CONST_NULL", OpConstFunc: "R_CONST_FUNC",
	OpMove:       "R_MOVE",
	OpLoadGlobal: "R_LOAD_GLOBAL", OpStoreGlobal: "R_STORE_GLOBAL",
	OpAddI64: "R_ADD_I64", OpSubI64: "R_SUB_I64", OpMulI64: "R_MUL_I64", OpDivI64: "R_DIV_I64", OpModI64: "R_MOD_I64",
	OpAddF64: "R_ADD_F64", OpSubF64: "R_SUB_F64", OpMulF64: "R_MUL_F64", OpDivF64: "R_DIV_F64",
	OpAddStr: "R_ADD_STR", OpNeg: "R_NEG", OpNegF64: "R_NEG_F64",
	OpBAnd: "R_BAND", OpBOr: "R_BOR", OpBXor: "R_BXOR", OpBShl: "R_BSHL", OpBShr: "R_BSHR", OpBNot: "R_BNOT",
	OpEq: "R_EQ", OpNeq: "R_NEQ",
	OpLtI64: "R_LT_I64", OpLteI64: "R_LTE_I64", OpGtI64: "R_GT_I64", OpGteI64: "R_GTE_I64",
	OpLtF64: "R_LT_F64", OpLteF64: "R_LTE_F64", OpGtF64: "R_GT_F64", OpGteF64: "R_GTE_F64",
	OpNot: "R_NOT", OpAnd: "R_AND", OpOr: "R_OR",
	OpJmp: "R_JMP", OpJmpIfFalse: "R_JMP_IF_FALSE", OpJmpIfTrue: "R_JMP_IF_TRUE",
	OpCall: "R_CALL", OpCallBuiltin: "R_CALL_BUILTIN", OpFFICall: "R_FFI_CALL", OpRet: "R_RET",
	OpArrayNew: "R_ARRAY_NEW", OpArrayGet: "R_ARRAY_GET", OpArraySet: "R_ARRAY_SET",
	OpMapNew: "R_MAP_NEW", OpMapGet: "R_MAP_GET", OpMapSet: "R_MAP_SET",
	OpStructNew: "R_STRUCT_NEW", OpStructGet: "R_STRUCT_GET", OpStructSet: "R_STRUCT_SET",
	OpClassNew: "R_CLASS_NEW", OpClassGet: "R_CLASS_GET", OpClassSet: "R_CLASS_SET",
	OpMethodCall: "R_METHOD_CALL", OpSuperCall: "R_SUPER_CALL",
	OpTryBegin: "R_TRY_BEGIN", OpTryEnd: "R_TRY_END", OpThrow: "R_THROW",
	OpConvertItoF: "R_CONVERT_I_F",
}

// Name returns the opcode's mnemonic, used by the disassembler.
func (op Op) Name() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return "UNKNOWN"
}
