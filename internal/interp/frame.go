package interp

import (
	"github.com/th3f0rk/betterpython/internal/bytecode"
	"github.com/th3f0rk/betterpython/internal/gc"
)

// UserException carries a value passed to THROW; catchable by the
// enclosing try (spec.md §7).
type UserException struct {
	Value gc.Value
}

func (e *UserException) Error() string { return "uncaught exception" }

// handler is a pushed try-context: {catch address, finally address,
// exception register/slot, frame index} (spec.md §4.6).
type handler struct {
	catchAddr   int
	finallyAddr int // -1 if none
	excSlot     int
	frameIndex  int
}

// Frame is one call-stack entry: function pointer, instruction pointer, and
// either a locals array (SBC) or a register window (RBC), plus the
// destination slot/register the caller expects the return value in
// (spec.md §4.6).
type Frame struct {
	Fn       *bytecode.Func
	IP       int
	Locals   []gc.Value // valid when Fn.Format == bytecode.Stack
	Stack    []gc.Value // SBC operand stack
	Regs     []gc.Value // valid when Fn.Format == bytecode.Register
	DestSlot int        // where the caller wants the result (interpreted by the caller)
}

// CallStack is the interpreter's frame stack plus the try-handler stack,
// and implements gc.RootSource so the heap can mark every live Value
// reachable from locals/registers and the operand stack across all frames
// (spec.md §4.5: "every register across the live register file for RBC;
// stack and locals for SBC").
type CallStack struct {
	Frames   []*Frame
	Handlers []handler
	Globals  []gc.Value
}

// AppendRoots implements gc.RootSource.
func (cs *CallStack) AppendRoots(dst []gc.Value) []gc.Value {
	dst = append(dst, cs.Globals...)
	for _, f := range cs.Frames {
		dst = append(dst, f.Locals...)
		dst = append(dst, f.Stack...)
		dst = append(dst, f.Regs...)
	}
	return dst
}

func (cs *CallStack) pushHandler(h handler) { cs.Handlers = append(cs.Handlers, h) }

func (cs *CallStack) popHandler() {
	cs.Handlers = cs.Handlers[:len(cs.Handlers)-1]
}

// topHandlerForFrame returns the innermost handler belonging to frameIndex,
// if any is still pushed (used by handleThrow, so a throw only lands in a
// handler of the frame it is raised in).
func (cs *CallStack) topHandlerForFrame(frameIndex int) (handler, bool) {
	if len(cs.Handlers) == 0 {
		return handler{}, false
	}
	h := cs.Handlers[len(cs.Handlers)-1]
	if h.frameIndex != frameIndex {
		return handler{}, false
	}
	return h, true
}
