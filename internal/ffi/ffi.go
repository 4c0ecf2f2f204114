// Package ffi supplies the call descriptor for externally declared native
// symbols. Per spec.md §1, "the FFI loader that resolves externally declared
// native symbols" is an external collaborator — the core only knows the
// descriptor shape and invokes it through Resolver.
package ffi

import "fmt"

// Type is an FFI type code from spec.md §6.
type Type int

const (
	Void Type = iota
	Int
	Float
	Str
	Ptr
)

// Descriptor is one extern declaration's call shape, mirroring
// ast.ExternDecl but resolved for runtime invocation.
type Descriptor struct {
	BPName      string
	CName       string
	LibraryPath string
	Params      []Type
	Return      Type
	Variadic    bool

	handle uintptr // resolved lazily by a Resolver; opaque to the core
}

// Resolver loads a library and invokes a resolved symbol. internal/interp's
// FFI_CALL opcode calls through this interface exclusively.
type Resolver interface {
	Resolve(d *Descriptor) error
	Invoke(d *Descriptor, args []int64) (int64, error)
}

// NullResolver is the default Resolver: it treats every extern call as a
// runtime fault rather than silently returning null. This resolves the Open
// Question in spec.md §9 about FFI stubs: spec.md §4.9 says to treat externs
// as implemented, so an unresolved symbol is a reported fault, not a quiet
// null value.
type NullResolver struct{}

// Resolve always fails: this build has no dynamic library loader.
func (NullResolver) Resolve(d *Descriptor) error {
	return fmt.Errorf("ffi: cannot resolve %s (%s in %s): extern linking not available in this build", d.BPName, d.CName, d.LibraryPath)
}

// Invoke always fails, for the same reason.
func (NullResolver) Invoke(d *Descriptor, args []int64) (int64, error) {
	return 0, fmt.Errorf("ffi: cannot invoke %s: extern linking not available in this build", d.BPName)
}
