// Package sbc implements the stack bytecode (SBC) format and the compiler
// that lowers a type-checked ast.Module into it (spec.md §4.2). It is
// grounded in the teacher's stack-machine IR (_examples/tinyrange-rtg
// std/compiler/ir.go's Opcode enum and Compiler.emit/compileStmt/compileExpr
// family), generalized from the teacher's Go-subset semantics to BP's:
// dynamic-size locals array instead of fixed stack slots per Go scoping,
// explicit try/catch/finally opcodes the teacher has no equivalent for, and
// class/struct/enum opcodes the teacher expresses instead as raw memory
// offsets into its flat VM memory.
package sbc

// Op is a stack-machine opcode (spec.md §4.2's opcode family inventory).
type Op byte

const (
	OpConstI64 Op = iota
	OpConstF64
	OpConstBool
	OpConstStr
	OpConstNull

	OpLoadLocal
	OpStoreLocal
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
	OpPop

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
	OpConstFunc
)

var opNames = map[Op]string{
	OpConstI64: "CONST_I64", OpConstF64: "CONST_F64", OpConstBool: "CONST_BOOL",
	OpConstStr: "CONST_STR", OpConstNull: "CONST_NULL",
	OpLoadLocal: "LOAD_LOCAL", OpStoreLocal: "STORE_LOCAL",
	OpLoadGlobal: "LOAD_GLOBAL", OpStoreGlobal: "STORE_GLOBAL",
	OpAddI64: "ADD", OpSubI64: "SUB", OpMulI64: "MUL", OpDivI64: "DIV", OpModI64: "MOD",
	OpAddF64: "ADD_F64", OpSubF64: "SUB_F64", OpMulF64: "MUL_F64", OpDivF64: "DIV_F64",
	OpAddStr: "ADD_STR", OpNeg: "NEG", OpNegF64: "NEG_F64",
	OpBAnd: "BAND", OpBOr: "BOR", OpBXor: "BXOR", OpBShl: "BSHL", OpBShr: "BSHR", OpBNot: "BNOT",
	OpEq: "EQ", OpNeq: "NEQ",
	OpLtI64: "LT", OpLteI64: "LTE", OpGtI64: "GT", OpGteI64: "GTE",
	OpLtF64: "LT_F64", OpLteF64: "LTE_F64", OpGtF64: "GT_F64", OpGteF64: "GTE_F64",
	OpNot: "NOT", OpAnd: "AND", OpOr: "OR",
	OpJmp: "JMP", OpJmpIfFalse: "JMP_IF_FALSE", OpJmpIfTrue: "JMP_IF_TRUE",
	OpCall: "CALL", OpCallBuiltin: "CALL_BUILTIN", OpFFICall: "FFI_CALL", OpRet: "RET", OpPop: "POP",
	OpArrayNew: "ARRAY_NEW", OpArrayGet: "ARRAY_GET", OpArraySet: "ARRAY_SET",
	OpMapNew: "MAP_NEW", OpMapGet: "MAP_GET", OpMapSet: "MAP_SET",
	OpStructNew: "STRUCT_NEW", OpStructGet: "STRUCT_GET", OpStructSet: "STRUCT_SET",
	OpClassNew: "CLASS_NEW", OpClassGet: "CLASS_GET", OpClassSet: "CLASS_SET",
	OpMethodCall: "METHOD_CALL", OpSuperCall: "SUPER_CALL",
	OpTryBegin: "TRY_BEGIN", OpTryEnd: "TRY_END", OpThrow: "THROW",
	OpConvertItoF: "CONVERT_I_F",
	OpConstFunc:   "CONST_FUNC",
}

// Name returns the opcode's mnemonic, used by the disassembler.
func (op Op) Name() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return "UNKNOWN"
}
