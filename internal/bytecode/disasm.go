package bytecode

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// Disassemble renders m's function table, class/extern tables, and globals
// as a tree, the bytecode analog of internal/ast's Dump. Grounded in the
// teacher's size_analysis.go, which reports per-function compiled sizes
// rather than a full instruction listing; this does the same rather than
// duplicating internal/interp's and internal/jit's opcode-specific
// decoders just to re-derive operand widths for display purposes.
func Disassemble(m *Module) string {
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("module (entry=%d, globals=%d)", m.Entry, m.GlobalCount))

	funcs := tree.AddBranch("functions")
	for i, fn := range m.Funcs {
		funcs.AddNode(fmt.Sprintf("[%d] %s  arity=%d  %s  %d bytes  %d str_refs",
			i, fn.Name, fn.Arity, fn.Format, len(fn.Code), len(fn.StrRefs)))
	}

	if len(m.ClassTypes) > 0 {
		classes := tree.AddBranch("classes")
		for _, ct := range m.ClassTypes {
			label := ct.Name
			if ct.ParentName != "" {
				label += " : " + ct.ParentName
			}
			node := classes.AddBranch(label)
			for _, f := range ct.Fields {
				node.AddNode("field " + f)
			}
			for i, meth := range ct.Methods {
				node.AddNode(fmt.Sprintf("method %s -> func[%d]", meth, ct.MethodFn[i]))
			}
		}
	}

	if len(m.ExternFuncs) > 0 {
		externs := tree.AddBranch("externs")
		for _, ext := range m.ExternFuncs {
			externs.AddNode(fmt.Sprintf("%s -> %s (%s) variadic=%v", ext.BPName, ext.CName, ext.LibraryPath, ext.Variadic))
		}
	}

	strs := tree.AddBranch(fmt.Sprintf("strings (%d)", len(m.Strings)))
	for i, s := range m.Strings {
		strs.AddNode(fmt.Sprintf("[%d] %q", i, s))
	}

	return tree.String()
}
