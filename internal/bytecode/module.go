// Package bytecode defines BP's compiled module format (spec.md §3
// "Bytecode module (BpModule)") and its on-disk (.bpc) serialization
// (spec.md §6). It is the landing representation both internal/sbc and
// internal/rbc lower into, and what internal/interp executes.
package bytecode

// Format tags which bytecode a Func's Code holds.
type Format int

const (
	Stack Format = iota
	Register
)

func (f Format) String() string {
	if f == Register {
		return "register"
	}
	return "stack"
}

// Func is one compiled function: name, arity, a format tag, the bytecode
// itself, and a per-function vector of indices into the module string pool
// (spec.md §3 Invariants: "String pool indices stored in bytecode are
// per-function local IDs; they indirect through the function's table into
// the module string pool, permitting per-function relocation").
type Func struct {
	Name      string
	Arity     int
	Locals    int // valid when Format == Stack
	Regs      int // valid when Format == Register
	Format    Format
	Code      []byte
	StrRefs   []uint32 // local string id -> module string pool index
}

// ClassType is a compiled class: its field layout and method table.
type ClassType struct {
	Name       string
	ParentName string
	Fields     []string
	Methods    []string
	MethodFn   []int // parallel to Methods: resolved function index
}

// ExternFunc is a compiled FFI declaration (spec.md §3, §6). Handle is
// filled lazily at runtime by internal/ffi and is never persisted.
type ExternFunc struct {
	BPName      string
	CName       string
	LibraryPath string
	ParamTypes  []string
	RetType     string
	Variadic    bool
	Handle      uintptr
}

// Module is the in-memory compiled module (spec.md §3 "Bytecode module
// (BpModule)").
type Module struct {
	Funcs       []*Func
	Strings     []string
	Entry       int
	GlobalCount int
	ClassTypes  []ClassType
	ExternFuncs []ExternFunc

	// InitFunc, when >= 0, is the index of a synthetic function that
	// executes module-level `let` initializers; the driver runs it before
	// Entry. -1 means no globals need initializing.
	InitFunc int
}

// ResolveString returns the module string pool entry a function's local
// string id refers to, per the per-function indirection spec.md §3 mandates.
func (m *Module) ResolveString(fn *Func, localID uint32) string {
	idx := fn.StrRefs[localID]
	return m.Strings[idx]
}

// AddString interns s into the module string pool and returns its pool
// index, deduplicating by content.
func (m *Module) AddString(s string) uint32 {
	for i, existing := range m.Strings {
		if existing == s {
			return uint32(i)
		}
	}
	m.Strings = append(m.Strings, s)
	return uint32(len(m.Strings) - 1)
}
