package ast

// FuncDecl is a top-level (or lambda-synthesized) function definition.
type FuncDecl struct {
	Name    string
	Params  []Param
	RetType *Type
	Body    []Stmt
	Line    int

	// Index is this function's position in Module.Funcs / the compiled
	// module's funcs table; filled during type checking pass 1.
	Index int

	// IsLambda marks a synthetic function created from a lambda expression.
	IsLambda bool
}

// StructDecl is a struct type definition.
type StructDecl struct {
	Name   string
	Fields []Param // Param{Name, Type} reused for field declarations
	Line   int
}

// EnumDecl is an enum type definition; members are assigned sequential
// integer values starting at 0 unless explicitly given.
type EnumDecl struct {
	Name    string
	Members []EnumMember
	Line    int
}

// EnumMember is one named, integer-valued member of an enum.
type EnumMember struct {
	Name  string
	Value int64
}

// MethodDecl is a method defined on a class.
type MethodDecl struct {
	Name    string
	Params  []Param // excludes the implicit receiver
	RetType *Type
	Body    []Stmt
	Line    int
	Index   int // resolved function index for this method's body
}

// ClassDecl is a class definition with an optional parent for inheritance.
type ClassDecl struct {
	Name    string
	Parent  string // "" if none
	Fields  []Param
	Methods []MethodDecl
	Line    int

	// Index is this class's position in the compiled module's class table.
	Index int
}

// ExternDecl is an FFI declaration: a BP-visible name bound to a native
// symbol in an external library (spec.md §6).
type ExternDecl struct {
	BPName      string
	CName       string
	LibraryPath string
	ParamTypes  []string // FFI type codes: VOID, INT, FLOAT, STR, PTR
	RetType     string
	Variadic    bool
	Line        int

	// Index is this extern's position in the compiled module's extern table.
	Index int
}

// GlobalDecl is a module-level `let` binding.
type GlobalDecl struct {
	Name     string
	DeclType *Type
	Value    *Expr
	Line     int
	Slot     int // resolved global slot index
}

// Module is the parsed (pre-typecheck) or typed (post-typecheck, same value,
// mutated in place) representation of a BP source file.
type Module struct {
	Imports []string
	Funcs   []*FuncDecl
	Structs []*StructDecl
	Enums   []*EnumDecl
	Classes []*ClassDecl
	Externs []*ExternDecl
	Globals []*GlobalDecl
}

// FindFunc returns the function declaration with the given name, or nil.
func (m *Module) FindFunc(name string) *FuncDecl {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FindStruct returns the struct declaration with the given name, or nil.
func (m *Module) FindStruct(name string) *StructDecl {
	for _, s := range m.Structs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// FindClass returns the class declaration with the given name, or nil.
func (m *Module) FindClass(name string) *ClassDecl {
	for _, c := range m.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// FindEnum returns the enum declaration with the given name, or nil.
func (m *Module) FindEnum(name string) *EnumDecl {
	for _, e := range m.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}
