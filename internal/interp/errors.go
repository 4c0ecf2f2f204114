package interp

import "fmt"

// RuntimeFault is a fatal, non-catchable runtime error: division by zero,
// an out-of-bounds array/map access, a key miss, a type-tag mismatch at a
// non-checked op, or call-stack overflow (spec.md §7).
type RuntimeFault struct {
	Op  string
	Msg string
}

func (e *RuntimeFault) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Msg) }

func fault(op, format string, args ...interface{}) *RuntimeFault {
	return &RuntimeFault{Op: op, Msg: fmt.Sprintf(format, args...)}
}
