// Package check implements BP's type checker: a two-pass walk over the
// parsed ast.Module that annotates every Expr's Inferred type in place and
// resolves every call site to a function index, per spec.md §4.1. It is
// grounded in the teacher's ir.go CompileModule two-phase structure (global
// registration pass, then per-function body pass) but keeps the tables on an
// explicit *Context instead of the teacher's Compiler-struct-as-global-table
// pattern, and separates checking from lowering (the teacher fuses both into
// one pass; this spec requires inferred types to exist before either of two
// independent lowering passes, SBC and RBC, can run).
package check

import (
	"github.com/th3f0rk/betterpython/internal/ast"
)

// Check type-checks mod in place, returning the (same, mutated) module and
// any errors found. Any error aborts compilation — callers must check
// len(errs) == 0 before proceeding to lowering (spec.md §4.1 "Failure
// model").
func Check(mod *ast.Module) (*ast.Module, []*Error) {
	c := newContext(mod)
	c.pass1()
	if len(c.errors) > 0 {
		return mod, c.errors
	}
	c.pass2()
	return mod, c.errors
}

// pass1 builds the global function/struct/enum/class/extern tables (spec.md
// §4.1 "Pass 1 builds a global table of function signatures").
func (c *Context) pass1() {
	for i, s := range c.mod.Structs {
		fieldIdx := make(map[string]int, len(s.Fields))
		fieldTy := make([]*ast.Type, len(s.Fields))
		for j, f := range s.Fields {
			fieldIdx[f.Name] = j
			fieldTy[j] = f.Type
		}
		c.structs[s.Name] = fieldIdx
		c.structTy[s.Name] = fieldTy
		_ = i
	}

	for _, e := range c.mod.Enums {
		members := make(map[string]int64, len(e.Members))
		for _, m := range e.Members {
			members[m.Name] = m.Value
		}
		c.enums[e.Name] = members
	}

	for i, fn := range c.mod.Funcs {
		fn.Index = i
		params := make([]*ast.Type, len(fn.Params))
		for j, p := range fn.Params {
			params[j] = p.Type
		}
		c.funcs[fn.Name] = &funcSig{Params: params, Return: fn.RetType, Index: i}
	}

	for i, ext := range c.mod.Externs {
		ext.Index = i
		params := make([]*ast.Type, len(ext.ParamTypes))
		for j := range ext.ParamTypes {
			params[j] = ffiTypeToAST(ext.ParamTypes[j])
		}
		c.externs[ext.BPName] = &funcSig{Params: params, Return: ffiTypeToAST(ext.RetType), Index: i, Variadic: ext.Variadic}
	}

	for i, cl := range c.mod.Classes {
		cl.Index = i
		info := &classInfo{Index: i, Parent: cl.Parent, Fields: map[string]int{}, Methods: map[string]int{}, decl: cl}
		for j, f := range cl.Fields {
			info.Fields[f.Name] = j
			info.FieldTy = append(info.FieldTy, f.Type)
		}
		for j, m := range cl.Methods {
			cl.Methods[j].Index = -1 // resolved below once funcs are known
			info.Methods[m.Name] = j
			params := make([]*ast.Type, len(m.Params))
			for k, p := range m.Params {
				params[k] = p.Type
			}
			info.MethSig = append(info.MethSig, funcSig{Params: params, Return: m.RetType})
		}
		c.classes[cl.Name] = info
	}

	for i := range c.mod.Globals {
		g := c.mod.Globals[i]
		g.Slot = i
		t := g.DeclType
		if t == nil && g.Value != nil {
			t = c.literalTypeHint(g.Value)
		}
		c.globals[g.Name] = t
	}
}

// literalTypeHint infers a rough type for a global's declared-type-elision
// case, without full expression checking (pass 2 re-validates properly).
func (c *Context) literalTypeHint(e *ast.Expr) *ast.Type {
	switch e.Kind {
	case ast.EIntLit:
		return ast.Int
	case ast.EFloatLit:
		return ast.Float
	case ast.EBoolLit:
		return ast.Bool
	case ast.EStrLit:
		return ast.Str
	default:
		return nil
	}
}

func ffiTypeToAST(code string) *ast.Type {
	switch code {
	case "INT":
		return ast.Int
	case "FLOAT":
		return ast.Float
	case "STR":
		return ast.Str
	case "PTR":
		return ast.Pointer(ast.Void)
	default:
		return ast.Void
	}
}

// pass2 descends each function body with a lexical-scope stack (spec.md
// §4.1 "Pass 2 descends each function body").
func (c *Context) pass2() {
	for _, fn := range c.mod.Funcs {
		c.checkFunc(fn)
	}
	for _, cl := range c.mod.Classes {
		info := c.classes[cl.Name]
		c.curClass = info
		for i := range cl.Methods {
			c.checkMethod(cl, &cl.Methods[i])
		}
		c.curClass = nil
	}
	for i := range c.mod.Globals {
		g := c.mod.Globals[i]
		c.pushScope()
		if g.Value != nil {
			c.checkExpr(g.Value)
			if g.DeclType == nil {
				g.DeclType = g.Value.Inferred
			} else {
				c.coerceAssign(g.DeclType, g.Value)
			}
		}
		c.popScope()
	}
}

func (c *Context) checkFunc(fn *ast.FuncDecl) {
	sig := c.funcs[fn.Name]
	c.curFunc = sig
	c.pushScope()
	for _, p := range fn.Params {
		c.declare(p.Name, p.Type)
	}
	c.checkBlock(fn.Body, fn.RetType)
	c.popScope()
	c.curFunc = nil
}

func (c *Context) checkMethod(cl *ast.ClassDecl, m *ast.MethodDecl) {
	sig := &funcSig{Return: m.RetType}
	for _, p := range m.Params {
		sig.Params = append(sig.Params, p.Type)
	}
	c.curFunc = sig
	c.pushScope()
	c.declare("self", ast.Class(cl.Name))
	for _, p := range m.Params {
		c.declare(p.Name, p.Type)
	}
	c.checkBlock(m.Body, m.RetType)
	c.popScope()
	c.curFunc = nil
}
