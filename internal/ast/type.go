// Package ast defines BP's typed abstract syntax tree: the immutable tree of
// declarations, statements and expressions produced by internal/frontend and
// annotated in place by internal/check.
package ast

import "strings"

// Kind tags a Type the way TypeInfo.Kind tags the teacher's type descriptor.
type Kind int

const (
	KInt Kind = iota
	KFloat
	KBool
	KStr
	KVoid
	KI8
	KI16
	KI32
	KI64
	KU8
	KU16
	KU32
	KU64
	KArray
	KMap
	KStruct
	KEnum
	KClass
	KTuple
	KFunction
	KPointer
)

// Type is a tagged value over BP's type universe (spec.md §3). Equality is
// structural for compound types, name-based for struct/class/enum.
type Type struct {
	Kind Kind

	// KStruct / KClass / KEnum
	Name string

	// KArray / KPointer
	Elem *Type

	// KMap
	Key   *Type
	Value *Type

	// KTuple
	Elems []*Type

	// KFunction
	Params []*Type
	Return *Type
}

var (
	Int   = &Type{Kind: KInt}
	Float = &Type{Kind: KFloat}
	Bool  = &Type{Kind: KBool}
	Str   = &Type{Kind: KStr}
	Void  = &Type{Kind: KVoid}
	I8    = &Type{Kind: KI8}
	I16   = &Type{Kind: KI16}
	I32   = &Type{Kind: KI32}
	I64   = &Type{Kind: KI64}
	U8    = &Type{Kind: KU8}
	U16   = &Type{Kind: KU16}
	U32   = &Type{Kind: KU32}
	U64   = &Type{Kind: KU64}
)

// Array returns the array type with the given element type.
func Array(elem *Type) *Type { return &Type{Kind: KArray, Elem: elem} }

// Map returns the map type with the given key/value types.
func Map(key, value *Type) *Type { return &Type{Kind: KMap, Key: key, Value: value} }

// Struct returns a named struct type reference.
func Struct(name string) *Type { return &Type{Kind: KStruct, Name: name} }

// Enum returns a named enum type reference.
func Enum(name string) *Type { return &Type{Kind: KEnum, Name: name} }

// Class returns a named class type reference.
func Class(name string) *Type { return &Type{Kind: KClass, Name: name} }

// Tuple returns a tuple type over the given element types.
func Tuple(elems ...*Type) *Type { return &Type{Kind: KTuple, Elems: elems} }

// Func returns a function type.
func Func(params []*Type, ret *Type) *Type { return &Type{Kind: KFunction, Params: params, Return: ret} }

// Pointer returns a pointer-to-elem type.
func Pointer(elem *Type) *Type { return &Type{Kind: KPointer, Elem: elem} }

// IsNumeric reports whether t is one of the integer or float kinds.
func (t *Type) IsNumeric() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KInt, KFloat, KI8, KI16, KI32, KI64, KU8, KU16, KU32, KU64:
		return true
	}
	return false
}

// IsInteger reports whether t is an integer kind (including the fixed-width ones).
func (t *Type) IsInteger() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KInt, KI8, KI16, KI32, KI64, KU8, KU16, KU32, KU64:
		return true
	}
	return false
}

// Equal reports structural equality for compound types and name equality for
// struct/class/enum, per spec.md §3.
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KStruct, KEnum, KClass:
		return a.Name == b.Name
	case KArray, KPointer:
		return Equal(a.Elem, b.Elem)
	case KMap:
		return Equal(a.Key, b.Key) && Equal(a.Value, b.Value)
	case KTuple:
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case KFunction:
		if !Equal(a.Return, b.Return) || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders a Type for diagnostics and disassembly listings.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KInt:
		return "int"
	case KFloat:
		return "float"
	case KBool:
		return "bool"
	case KStr:
		return "str"
	case KVoid:
		return "void"
	case KI8:
		return "i8"
	case KI16:
		return "i16"
	case KI32:
		return "i32"
	case KI64:
		return "i64"
	case KU8:
		return "u8"
	case KU16:
		return "u16"
	case KU32:
		return "u32"
	case KU64:
		return "u64"
	case KArray:
		return "[" + t.Elem.String() + "]"
	case KMap:
		return "map[" + t.Key.String() + "]" + t.Value.String()
	case KStruct:
		return t.Name
	case KEnum:
		return t.Name
	case KClass:
		return t.Name
	case KTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KFunction:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		return "fn(" + strings.Join(parts, ", ") + ") -> " + t.Return.String()
	case KPointer:
		return "*" + t.Elem.String()
	default:
		return "?"
	}
}
