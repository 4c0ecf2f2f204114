// Package gc implements BP's runtime Value representation, heap object kinds,
// and the mark-sweep collector described in spec.md §4.5. It is grounded in
// the teacher's (_examples/tinyrange-rtg) VM backend memory model
// (std/compiler/backend_vm.go's flat byte-addressable memory and slab
// allocator) generalized from a single flat byte array to a typed Go heap,
// since this VM's Value is a tagged union rather than raw machine words.
package gc

// Kind tags a runtime Value's variant.
type Kind int

const (
	KInt Kind = iota
	KFloat
	KBool
	KNull
	KStr
	KArray
	KMap
	KStruct
	KClass
	KPtr
	KFuncIndex
)

// Value is BP's tagged runtime value. Heap variants (KStr, KArray, KMap,
// KStruct, KClass) are owned by the GC; Value itself only holds a handle.
type Value struct {
	Kind Kind

	I    int64   // KInt, KFuncIndex, KPtr (as uintptr-width int), KBool (0/1)
	F    float64 // KFloat
	Obj  *Object // KStr, KArray, KMap, KStruct, KClass: heap object handle
}

// Int constructs an integer Value.
func Int(v int64) Value { return Value{Kind: KInt, I: v} }

// Float constructs a float Value.
func Float(v float64) Value { return Value{Kind: KFloat, F: v} }

// Bool constructs a boolean Value.
func Bool(v bool) Value {
	i := int64(0)
	if v {
		i = 1
	}
	return Value{Kind: KBool, I: i}
}

// Null returns the null Value.
func Null() Value { return Value{Kind: KNull} }

// FuncIndex constructs a first-class function-reference Value.
func FuncIndex(idx int) Value { return Value{Kind: KFuncIndex, I: int64(idx)} }

// Ptr constructs an opaque pointer Value (used by FFI results).
func Ptr(v uintptr) Value { return Value{Kind: KPtr, I: int64(v)} }

// Truthy reports whether v counts as true in a condition: a KBool Value's
// own value, false for null, and true for every other kind.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KBool:
		return v.I != 0
	case KNull:
		return false
	default:
		return true
	}
}

// AsStr extracts the Go string content of a KStr Value. Used by ADD_STR,
// where the type checker has already guaranteed both operands are strings.
func AsStr(v Value) string {
	if v.Kind == KStr && v.Obj != nil {
		return v.Obj.Str
	}
	return ""
}

// TypeTag returns a short string describing v's kind, used in RuntimeFault
// messages ("type tag mismatch at a non-checked op", spec.md §7).
func (v Value) TypeTag() string {
	switch v.Kind {
	case KInt:
		return "int"
	case KFloat:
		return "float"
	case KBool:
		return "bool"
	case KNull:
		return "null"
	case KStr:
		return "str"
	case KArray:
		return "array"
	case KMap:
		return "map"
	case KStruct:
		return "struct"
	case KClass:
		return "class"
	case KPtr:
		return "ptr"
	case KFuncIndex:
		return "func"
	default:
		return "?"
	}
}
