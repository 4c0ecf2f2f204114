package check

import (
	"fmt"

	"github.com/th3f0rk/betterpython/internal/ast"
)

// funcSig is a user function's checked signature.
type funcSig struct {
	Params   []*ast.Type
	Return   *ast.Type
	Index    int
	Variadic bool
}

// classInfo is a class's checked shape: field name/type/offset and method
// name/signature, plus its parent for super-call resolution.
type classInfo struct {
	Index   int
	Parent  string
	Fields  map[string]int // name -> field index
	FieldTy []*ast.Type
	Methods map[string]int // name -> method index within Methods
	MethSig []funcSig
	decl    *ast.ClassDecl
}

// Context is the explicit compilation context threaded through both
// checking passes. Per spec.md §9's REDESIGN FLAGS ("Global mutable
// g_global_names and g_fntable in type checker"), this replaces what the
// teacher's Compiler struct (std/compiler/ir.go:169) does with package
// globals: every table lives here, constructed once per Check call, and
// passed by pointer — never a package-level singleton.
type Context struct {
	mod *ast.Module

	funcs   map[string]*funcSig
	structs map[string]map[string]int // struct name -> field name -> index
	structTy map[string][]*ast.Type
	classes map[string]*classInfo
	enums   map[string]map[string]int64
	externs map[string]*funcSig
	globals map[string]*ast.Type

	scopes []map[string]*ast.Type

	errors []*Error

	lambdaCount int
	curFunc     *funcSig
	curClass    *classInfo
	loopDepth   int
}

func newContext(mod *ast.Module) *Context {
	return &Context{
		mod:      mod,
		funcs:    make(map[string]*funcSig),
		structs:  make(map[string]map[string]int),
		structTy: make(map[string][]*ast.Type),
		classes:  make(map[string]*classInfo),
		enums:    make(map[string]map[string]int64),
		externs:  make(map[string]*funcSig),
		globals:  make(map[string]*ast.Type),
	}
}

func (c *Context) errorf(line int, format string, args ...interface{}) {
	c.errors = append(c.errors, &Error{Line: line, Msg: fmt.Sprintf(format, args...)})
}

func (c *Context) pushScope() { c.scopes = append(c.scopes, make(map[string]*ast.Type)) }
func (c *Context) popScope()  { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *Context) declare(name string, t *ast.Type) {
	c.scopes[len(c.scopes)-1][name] = t
}

// lookup searches innermost-first, then globals.
func (c *Context) lookup(name string) (*ast.Type, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if t, ok := c.scopes[i][name]; ok {
			return t, true
		}
	}
	if t, ok := c.globals[name]; ok {
		return t, true
	}
	return nil, false
}

func (c *Context) definedInCurrentScope(name string) bool {
	_, ok := c.scopes[len(c.scopes)-1][name]
	return ok
}

