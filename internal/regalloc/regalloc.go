// Package regalloc implements the per-function linear-scan register
// allocator that feeds the register compiler (spec.md §4.4). It is grounded
// in the teacher's slot-tracking inside Compiler.compileFunc
// (_examples/tinyrange-rtg std/compiler/ir.go), generalized from the
// teacher's single growable local-slot array to a fixed 256-slot virtual
// register file with FREE/ALLOCATED/PARAM/RETURN states and block
// allocation for call-argument windows, neither of which the teacher needs
// since its VM has no register machine.
package regalloc

import "fmt"

// NumRegisters is the fixed virtual register file size per function
// (spec.md §4.3: "at most 256 virtual registers per function").
const NumRegisters = 256

// State is a virtual register's allocation status.
type State int

const (
	Free State = iota
	Allocated
	Param
	Return
)

// Allocator is a per-function linear-scan register allocator.
type Allocator struct {
	slots    [NumRegisters]State
	names    map[string]byte // variable name -> register, stable for the function
	nextFree byte
	maxUsed  int
}

// New constructs an allocator with all registers FREE.
func New() *Allocator {
	return &Allocator{names: map[string]byte{}}
}

func (a *Allocator) touch(r byte) {
	if int(r) > a.maxUsed {
		a.maxUsed = int(r)
	}
}

// AllocParam pins name to register idx (spec.md §4.4: "Parameters occupy
// r0..r(arity-1)").
func (a *Allocator) AllocParam(name string, idx int) byte {
	r := byte(idx)
	a.slots[r] = Param
	a.names[name] = r
	a.touch(r)
	if a.nextFree <= r {
		a.nextFree = r + 1
	}
	return r
}

// AllocTemp returns the lowest-numbered FREE register >= next_free,
// wrapping back through the parameter region if needed; panics if none
// remain (an internal-compiler-error condition per spec.md §4.4: "fatal if
// none").
func (a *Allocator) AllocTemp() byte {
	for i := int(a.nextFree); i < NumRegisters; i++ {
		if a.slots[i] == Free {
			r := byte(i)
			a.slots[r] = Allocated
			a.touch(r)
			return r
		}
	}
	for i := 0; i < int(a.nextFree); i++ {
		if a.slots[i] == Free {
			r := byte(i)
			a.slots[r] = Allocated
			a.touch(r)
			return r
		}
	}
	panic("ICE: register file exhausted in AllocTemp")
}

// FreeTemp marks r FREE unless it is a PARAM/RETURN slot or currently bound
// to a named variable (spec.md §4.4).
func (a *Allocator) FreeTemp(r byte) {
	if a.slots[r] == Param || a.slots[r] == Return {
		return
	}
	for _, bound := range a.names {
		if bound == r {
			return
		}
	}
	a.slots[r] = Free
}

// AllocVar returns a stable register for name, allocating one on first use
// and returning the same register on repeated lookup (spec.md §4.4).
func (a *Allocator) AllocVar(name string) byte {
	if r, ok := a.names[name]; ok {
		return r
	}
	r := a.AllocTemp()
	a.names[name] = r
	return r
}

// LookupVar returns the register bound to name, if any.
func (a *Allocator) LookupVar(name string) (byte, bool) {
	r, ok := a.names[name]
	return r, ok
}

// ReleaseVar frees name's binding, making its register eligible for reuse
// by a later AllocTemp/AllocVar. Called by the register compiler when a
// lexical scope holding name exits (spec.md §4.4: "Scopes are handled at
// the compiler level").
func (a *Allocator) ReleaseVar(name string) {
	r, ok := a.names[name]
	if !ok {
		return
	}
	delete(a.names, name)
	if a.slots[r] != Param && a.slots[r] != Return {
		a.slots[r] = Free
	}
}

// AllocBlock finds the lowest run of k consecutive FREE registers above the
// parameter region, for call argument windows and array/map literal
// assembly (spec.md §4.4). Panics if no such run exists.
func (a *Allocator) AllocBlock(k int) byte {
	if k == 0 {
		return a.nextFree
	}
	start := int(a.nextFree)
	for base := start; base+k <= NumRegisters; base++ {
		ok := true
		for i := 0; i < k; i++ {
			if a.slots[base+i] != Free {
				ok = false
				break
			}
		}
		if ok {
			for i := 0; i < k; i++ {
				a.slots[base+i] = Allocated
				a.touch(byte(base + i))
			}
			return byte(base)
		}
	}
	panic(fmt.Sprintf("ICE: no run of %d consecutive free registers available", k))
}

// AllocReturn marks idx as the RETURN slot for a call's result register.
func (a *Allocator) AllocReturn(idx byte) {
	a.slots[idx] = Return
	a.touch(idx)
}

// RegCount publishes reg_count = max_used + 1 (spec.md §4.4).
func (a *Allocator) RegCount() int {
	return a.maxUsed + 1
}
