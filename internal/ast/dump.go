package ast

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// Dump renders the module as an indented tree for -debug diagnostics, in the
// spirit of the teacher's size_analysis.go reports but for structure instead
// of size.
func Dump(m *Module) string {
	root := treeprint.New()
	root.SetValue("module")

	for _, g := range m.Globals {
		root.AddNode(fmt.Sprintf("global %s: %s", g.Name, typeOrNil(g.DeclType)))
	}
	for _, s := range m.Structs {
		n := root.AddBranch(fmt.Sprintf("struct %s", s.Name))
		for _, f := range s.Fields {
			n.AddNode(fmt.Sprintf("%s: %s", f.Name, typeOrNil(f.Type)))
		}
	}
	for _, e := range m.Enums {
		n := root.AddBranch(fmt.Sprintf("enum %s", e.Name))
		for _, mem := range e.Members {
			n.AddNode(fmt.Sprintf("%s = %d", mem.Name, mem.Value))
		}
	}
	for _, c := range m.Classes {
		n := root.AddBranch(fmt.Sprintf("class %s(%s)", c.Name, c.Parent))
		for _, meth := range c.Methods {
			dumpFunc(n, meth.Name, meth.Params, meth.RetType, meth.Body)
		}
	}
	for _, ext := range m.Externs {
		root.AddNode(fmt.Sprintf("extern %s -> %s (%s)", ext.BPName, ext.CName, ext.LibraryPath))
	}
	for _, fn := range m.Funcs {
		dumpFunc(root, fn.Name, fn.Params, fn.RetType, fn.Body)
	}
	return root.String()
}

func dumpFunc(parent treeprint.Tree, name string, params []Param, ret *Type, body []Stmt) {
	n := parent.AddBranch(fmt.Sprintf("fn %s(...) -> %s", name, typeOrNil(ret)))
	n.AddNode(fmt.Sprintf("%d params, %d statements", len(params), len(body)))
}

func typeOrNil(t *Type) string {
	if t == nil {
		return "?"
	}
	return t.String()
}
