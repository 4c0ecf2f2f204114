package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/th3f0rk/betterpython/internal/ast"
	"github.com/th3f0rk/betterpython/internal/bytecode"
	"github.com/th3f0rk/betterpython/internal/check"
	"github.com/th3f0rk/betterpython/internal/frontend"
	"github.com/th3f0rk/betterpython/internal/rbc"
	"github.com/th3f0rk/betterpython/internal/sbc"
)

// frontEndError collects every compile-time diagnostic spec.md §7 names for
// the parse and check phases; the driver prints all of them before aborting
// (SPEC_FULL.md §7: "collect []*check.Error ... then the driver prints all
// of them and aborts").
type frontEndError struct {
	phase string
	lines []string
}

func (e *frontEndError) Error() string {
	msg := e.phase + ":\n"
	for _, l := range e.lines {
		msg += "  " + l + "\n"
	}
	return msg
}

// buildModule runs source through the frontend and type checker, dumping
// the AST with treeprint when debug is set, per SPEC_FULL.md's "--debug"
// contract.
func buildModule(src []byte, flags *globalFlags, log *zap.Logger) (*ast.Module, error) {
	mod, perrs := frontend.Parse(src)
	if len(perrs) > 0 {
		lines := make([]string, len(perrs))
		for i, e := range perrs {
			lines[i] = e.Error()
		}
		return nil, &frontEndError{phase: "parse error", lines: lines}
	}

	mod, cerrs := check.Check(mod)
	if len(cerrs) > 0 {
		lines := make([]string, len(cerrs))
		for i, e := range cerrs {
			lines[i] = e.Error()
		}
		return nil, &frontEndError{phase: "type error", lines: lines}
	}

	if flags.debug {
		log.Debug("parsed and checked module", zap.Int("funcs", len(mod.Funcs)))
		fmt.Fprintln(os.Stderr, ast.Dump(mod))
	}
	return mod, nil
}

// lowerModule dispatches to the stack or register compiler per --format.
func lowerModule(mod *ast.Module, flags *globalFlags, log *zap.Logger) (*bytecode.Module, error) {
	var bc *bytecode.Module
	var err error
	if flags.format == "stack" {
		bc, err = sbc.Compile(mod)
	} else {
		bc, err = rbc.Compile(mod)
	}
	if err != nil {
		return nil, fmt.Errorf("lowering (%s): %w", flags.format, err)
	}
	if flags.debug {
		fmt.Fprintln(os.Stderr, bytecode.Disassemble(bc))
	}
	return bc, nil
}
