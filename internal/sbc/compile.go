package sbc

import (
	"fmt"
	"math"

	"github.com/th3f0rk/betterpython/internal/ast"
	"github.com/th3f0rk/betterpython/internal/bytecode"
)

// LoweringError is a compile-time construction that cannot occur from a
// well-typed AST (undefined name, unknown struct, unhandled node kind or
// operator), per spec.md §7.
type LoweringError struct {
	Msg string
}

func (e *LoweringError) Error() string { return e.Msg }

type loopCtx struct {
	breakLabel    int
	continueLabel int
}

// fn is per-function compiler state, mirroring the teacher's per-Compiler
// scope/slot fields (ir.go Compiler.scopeStack/localSlots) but scoped to one
// function instead of reused globally across the module.
type fn struct {
	asm        *Assembler
	scopes     []map[string]uint16
	nextSlot   uint16
	maxSlot    uint16
	loops      []loopCtx
	strLocal   map[string]uint32
	strRefs    []uint32
}

// Compiler lowers a type-checked ast.Module to stack bytecode.
type Compiler struct {
	mod       *ast.Module
	bc        *bytecode.Module
	structIdx map[string]int
	classIdx  map[string]int
	f         *fn
}

// Compile lowers mod (already type-checked by internal/check) into a
// bytecode.Module using the stack format, per spec.md §4.2.
func Compile(mod *ast.Module) (*bytecode.Module, error) {
	c := &Compiler{
		mod:       mod,
		bc:        &bytecode.Module{InitFunc: -1, GlobalCount: len(mod.Globals)},
		structIdx: map[string]int{},
		classIdx:  map[string]int{},
	}
	for i, s := range mod.Structs {
		c.structIdx[s.Name] = i
	}
	for i, cl := range mod.Classes {
		c.classIdx[cl.Name] = i
	}
	for _, cl := range mod.Classes {
		ct := bytecode.ClassType{Name: cl.Name, ParentName: cl.Parent}
		for _, fld := range cl.Fields {
			ct.Fields = append(ct.Fields, fld.Name)
		}
		for _, m := range cl.Methods {
			ct.Methods = append(ct.Methods, m.Name)
			ct.MethodFn = append(ct.MethodFn, m.Index)
		}
		c.bc.ClassTypes = append(c.bc.ClassTypes, ct)
	}
	for _, ext := range mod.Externs {
		c.bc.ExternFuncs = append(c.bc.ExternFuncs, bytecode.ExternFunc{
			BPName: ext.BPName, CName: ext.CName, LibraryPath: ext.LibraryPath,
			ParamTypes: ext.ParamTypes, RetType: ext.RetType, Variadic: ext.Variadic,
		})
	}

	// funcs slice may grow as lambdas are appended during checking; compile
	// by index so newly-appended lambda bodies are included.
	for i := 0; i < len(mod.Funcs); i++ {
		cf, err := c.compileFunc(mod.Funcs[i])
		if err != nil {
			return nil, err
		}
		c.bc.Funcs = append(c.bc.Funcs, cf)
		if mod.Funcs[i].Name == "main" {
			c.bc.Entry = i
		}
	}

	if len(mod.Globals) > 0 {
		initFn, err := c.compileGlobalInit()
		if err != nil {
			return nil, err
		}
		c.bc.Funcs = append(c.bc.Funcs, initFn)
		c.bc.InitFunc = len(c.bc.Funcs) - 1
	}

	return c.bc, nil
}

func (c *Compiler) compileGlobalInit() (*bytecode.Func, error) {
	f := &fn{asm: NewAssembler(), strLocal: map[string]uint32{}}
	c.f = f
	c.pushScope()
	for _, g := range c.mod.Globals {
		if g.Value == nil {
			continue
		}
		if err := c.lowerExpr(g.Value); err != nil {
			return nil, err
		}
		if g.DeclType != nil && g.DeclType.Kind == ast.KFloat && g.Value.Inferred != nil && g.Value.Inferred.Kind == ast.KInt {
			f.asm.Simple0(OpConvertItoF)
		}
		f.asm.Slot16(OpStoreGlobal, uint16(g.Slot))
	}
	f.asm.ConstNull()
	f.asm.Simple0(OpRet)
	c.popScope()
	return &bytecode.Func{
		Name: "__init_globals", Arity: 0, Locals: int(f.maxSlot), Format: bytecode.Stack,
		Code: f.asm.Finish(), StrRefs: f.strRefs,
	}, nil
}

func (c *Compiler) compileFunc(decl *ast.FuncDecl) (*bytecode.Func, error) {
	f := &fn{asm: NewAssembler(), strLocal: map[string]uint32{}}
	c.f = f
	c.pushScope()
	for _, p := range decl.Params {
		c.declareLocal(p.Name)
	}
	for i := range decl.Body {
		if err := c.lowerStmt(&decl.Body[i]); err != nil {
			return nil, err
		}
	}
	if !endsWithReturn(decl.Body) {
		f.asm.ConstNull()
		f.asm.Simple0(OpRet)
	}
	c.popScope()
	return &bytecode.Func{
		Name: decl.Name, Arity: len(decl.Params), Locals: int(f.maxSlot), Format: bytecode.Stack,
		Code: f.asm.Finish(), StrRefs: f.strRefs,
	}, nil
}

func endsWithReturn(body []ast.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	return body[len(body)-1].Kind == ast.SReturn
}

func (c *Compiler) pushScope() { c.f.scopes = append(c.f.scopes, map[string]uint16{}) }
func (c *Compiler) popScope()  { c.f.scopes = c.f.scopes[:len(c.f.scopes)-1] }

func (c *Compiler) declareLocal(name string) uint16 {
	slot := c.f.nextSlot
	c.f.nextSlot++
	if c.f.nextSlot > c.f.maxSlot {
		c.f.maxSlot = c.f.nextSlot
	}
	c.f.scopes[len(c.f.scopes)-1][name] = slot
	return slot
}

func (c *Compiler) lookupLocal(name string) (uint16, bool) {
	for i := len(c.f.scopes) - 1; i >= 0; i-- {
		if slot, ok := c.f.scopes[i][name]; ok {
			return slot, true
		}
	}
	return 0, false
}

func (c *Compiler) lookupGlobalSlot(name string) (int, bool) {
	for _, g := range c.mod.Globals {
		if g.Name == name {
			return g.Slot, true
		}
	}
	return 0, false
}

func (c *Compiler) internString(s string) uint32 {
	if id, ok := c.f.strLocal[s]; ok {
		return id
	}
	poolIdx := c.bc.AddString(s)
	localID := uint32(len(c.f.strRefs))
	c.f.strRefs = append(c.f.strRefs, poolIdx)
	c.f.strLocal[s] = localID
	return localID
}

func f64bits(f float64) uint64 { return math.Float64bits(f) }

func lowerErr(format string, args ...interface{}) error {
	return &LoweringError{Msg: fmt.Sprintf(format, args...)}
}
