// Package builtins is the external collaborator spec.md §6 describes: a
// fixed table of opaque native primitives callable from bytecode by numeric
// id. internal/check only needs Lookup (for arity/type checking);
// internal/interp only needs Call.
package builtins

import (
	"github.com/th3f0rk/betterpython/internal/ast"
)

// Signature describes one builtin's checked shape. Variadic builtins (print)
// accept any arity/types for their trailing arguments.
type Signature struct {
	Name     string
	ID       int
	Params   []*ast.Type
	Return   *ast.Type
	Variadic bool
}

// Fixed numeric ids. Stable across releases; referenced from compiled
// bytecode, so never renumber an existing entry.
const (
	Print = iota
	Println
	ReadLine
	Abs
	Min
	Max
	Pow
	Sqrt
	Len
	Substr
	Split
	Join
	Upper
	Lower
	Trim
	ToStr
	ParseInt
	ParseFloat
	ReadFile
	WriteFile
	FileExists
	ToJSON
	FromJSON
	Base64Encode
	Base64Decode
	HashStr
	RandInt
	RandFloat
	Seed
	NowMillis
	SleepMs
	ArrayLen
	ArrayPush
	Keys
	Values
	MapHas
	MapDelete
	RegexMatch
	RegexReplace
	ThreadSpawn
	ThreadJoin
	BAnd
	BOr
	BXor
	BShl
	BShr
	TypeOf
	Exit
	numBuiltins
)

var table []Signature
var byName map[string]Signature

func reg(name string, id int, ret *ast.Type, variadic bool, params ...*ast.Type) {
	table = append(table, Signature{Name: name, ID: id, Params: params, Return: ret, Variadic: variadic})
}

func init() {
	byName = make(map[string]Signature, numBuiltins)

	reg("print", Print, ast.Void, true)
	reg("println", Println, ast.Void, true)
	reg("read_line", ReadLine, ast.Str, false)
	reg("abs", Abs, ast.Int, false, ast.Int)
	reg("min", Min, ast.Int, false, ast.Int, ast.Int)
	reg("max", Max, ast.Int, false, ast.Int, ast.Int)
	reg("pow", Pow, ast.Float, false, ast.Float, ast.Float)
	reg("sqrt", Sqrt, ast.Float, false, ast.Float)
	reg("len", Len, ast.Int, false, ast.Str)
	reg("substr", Substr, ast.Str, false, ast.Str, ast.Int, ast.Int)
	reg("split", Split, ast.Array(ast.Str), false, ast.Str, ast.Str)
	reg("join", Join, ast.Str, false, ast.Array(ast.Str), ast.Str)
	reg("upper", Upper, ast.Str, false, ast.Str)
	reg("lower", Lower, ast.Str, false, ast.Str)
	reg("trim", Trim, ast.Str, false, ast.Str)
	reg("to_str", ToStr, ast.Str, true) // accepts any single value
	reg("parse_int", ParseInt, ast.Int, false, ast.Str)
	reg("parse_float", ParseFloat, ast.Float, false, ast.Str)
	reg("read_file", ReadFile, ast.Str, false, ast.Str)
	reg("write_file", WriteFile, ast.Bool, false, ast.Str, ast.Str)
	reg("file_exists", FileExists, ast.Bool, false, ast.Str)
	reg("to_json", ToJSON, ast.Str, true)
	reg("from_json", FromJSON, ast.Str, false, ast.Str)
	reg("base64_encode", Base64Encode, ast.Str, false, ast.Str)
	reg("base64_decode", Base64Decode, ast.Str, false, ast.Str)
	reg("hash_str", HashStr, ast.Int, false, ast.Str)
	reg("rand_int", RandInt, ast.Int, false, ast.Int, ast.Int)
	reg("rand_float", RandFloat, ast.Float, false)
	reg("seed", Seed, ast.Void, false, ast.Int)
	reg("now_millis", NowMillis, ast.Int, false)
	reg("sleep_ms", SleepMs, ast.Void, false, ast.Int)
	reg("array_len", ArrayLen, ast.Int, true)
	reg("array_push", ArrayPush, ast.Void, true)
	reg("keys", Keys, ast.Array(ast.Str), true)
	reg("values", Values, ast.Array(ast.Str), true)
	reg("map_has", MapHas, ast.Bool, true)
	reg("map_delete", MapDelete, ast.Void, true)
	reg("regex_match", RegexMatch, ast.Bool, false, ast.Str, ast.Str)
	reg("regex_replace", RegexReplace, ast.Str, false, ast.Str, ast.Str, ast.Str)
	reg("thread_spawn", ThreadSpawn, ast.Int, true)
	reg("thread_join", ThreadJoin, ast.Void, false, ast.Int)
	reg("band", BAnd, ast.Int, false, ast.Int, ast.Int)
	reg("bor", BOr, ast.Int, false, ast.Int, ast.Int)
	reg("bxor", BXor, ast.Int, false, ast.Int, ast.Int)
	reg("bshl", BShl, ast.Int, false, ast.Int, ast.Int)
	reg("bshr", BShr, ast.Int, false, ast.Int, ast.Int)
	reg("type_of", TypeOf, ast.Str, false, ast.Int) // id sentinel; checked loosely
	reg("exit", Exit, ast.Void, false, ast.Int)

	for _, sig := range table {
		byName[sig.Name] = sig
	}
}

// Lookup returns the signature for a builtin name, used by internal/check to
// validate call sites and resolve the CallBuiltin sentinel.
func Lookup(name string) (Signature, bool) {
	sig, ok := byName[name]
	return sig, ok
}

// ByID returns the signature for a numeric builtin id.
func ByID(id int) (Signature, bool) {
	if id < 0 || id >= len(table) {
		return Signature{}, false
	}
	return table[id], true
}
