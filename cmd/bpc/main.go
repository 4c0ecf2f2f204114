// Command bpc is BP's compile-and-run driver (spec.md §6): a thin,
// out-of-core CLI that wires internal/frontend, internal/check,
// internal/sbc, internal/rbc, internal/bytecode, internal/interp, and
// internal/jit together. Grounded in the teacher's own main.go entrypoint
// (_examples/tinyrange-rtg std/compiler/main.go), with os.Args flag
// parsing replaced by cobra per SPEC_FULL.md's ambient-stack section.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
