//go:build amd64

package jit

// callNative is implemented in trampoline_amd64.s: it moves fn and regs
// into the System V AMD64 argument registers and calls through, realizing
// spec.md §4.9's `int64_t native(int64_t *regs)` ABI from Go.
//
//go:noescape
func callNative(fn uintptr, regs *int64) int64

const archSupported = true
