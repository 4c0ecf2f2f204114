package rbc

import (
	"fmt"
	"math"

	"github.com/th3f0rk/betterpython/internal/ast"
	"github.com/th3f0rk/betterpython/internal/bytecode"
	"github.com/th3f0rk/betterpython/internal/regalloc"
)

// LoweringError is a compile-time construction that cannot occur from a
// well-typed AST, per spec.md §7.
type LoweringError struct {
	Msg string
}

func (e *LoweringError) Error() string { return e.Msg }

type loopCtx struct {
	breakLabel    int
	continueLabel int
}

// fn is per-function register-compiler state: an allocator plus the
// scope/string/loop bookkeeping internal/sbc's fn struct also needs.
type fn struct {
	asm      *Assembler
	alloc    *regalloc.Allocator
	scopes   []map[string]string // scope -> set of var names declared (for ReleaseVar on pop)
	loops    []loopCtx
	strLocal map[string]uint32
	strRefs  []uint32
}

// Compiler lowers a type-checked ast.Module to register bytecode.
type Compiler struct {
	mod       *ast.Module
	bc        *bytecode.Module
	structIdx map[string]int
	classIdx  map[string]int
	f         *fn
}

// Compile lowers mod into a bytecode.Module using the register format, per
// spec.md §4.3/§4.4.
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
	f := &fn{asm: NewAssembler(), alloc: regalloc.New(), strLocal: map[string]uint32{}}
	c.f = f
	c.pushScope()
	for _, g := range c.mod.Globals {
		if g.Value == nil {
			continue
		}
		r, err := c.lowerExpr(g.Value)
		if err != nil {
			return nil, err
		}
		if g.DeclType != nil && g.DeclType.Kind == ast.KFloat && g.Value.Inferred != nil && g.Value.Inferred.Kind == ast.KInt {
			fr := f.alloc.AllocTemp()
			f.asm.Un2(OpConvertItoF, fr, r)
			r = fr
		}
		f.asm.StoreGlobal(uint16(g.Slot), r)
	}
	c.popScope()
	return &bytecode.Func{
		Name: "__init_globals", Arity: 0, Regs: f.alloc.RegCount(), Format: bytecode.Register,
		Code: f.asm.Finish(), StrRefs: f.strRefs,
	}, nil
}

func (c *Compiler) compileFunc(decl *ast.FuncDecl) (*bytecode.Func, error) {
	f := &fn{asm: NewAssembler(), alloc: regalloc.New(), strLocal: map[string]uint32{}}
	c.f = f
	c.pushScope()
	for i, p := range decl.Params {
		f.alloc.AllocParam(p.Name, i)
		c.declareInScope(p.Name)
	}
	if err := c.lowerBlock(decl.Body); err != nil {
		return nil, err
	}
	if !endsWithReturn(decl.Body) {
		nilReg := f.alloc.AllocTemp()
		f.asm.ConstNull(nilReg)
		f.asm.Ret(nilReg)
	}
	c.popScope()
	return &bytecode.Func{
		Name: decl.Name, Arity: len(decl.Params), Regs: f.alloc.RegCount(), Format: bytecode.Register,
		Code: f.asm.Finish(), StrRefs: f.strRefs,
	}, nil
}

func endsWithReturn(body []ast.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	return body[len(body)-1].Kind == ast.SReturn
}

func (c *Compiler) pushScope() { c.f.scopes = append(c.f.scopes, map[string]string{}) }

func (c *Compiler) popScope() {
	top := c.f.scopes[len(c.f.scopes)-1]
	for name := range top {
		c.f.alloc.ReleaseVar(name)
	}
	c.f.scopes = c.f.scopes[:len(c.f.scopes)-1]
}

func (c *Compiler) declareInScope(name string) {
	c.f.scopes[len(c.f.scopes)-1][name] = name
}

func (c *Compiler) declareLocal(name string) byte {
	c.declareInScope(name)
	return c.f.alloc.AllocVar(name)
}

func (c *Compiler) lookupLocal(name string) (byte, bool) {
	return c.f.alloc.LookupVar(name)
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
