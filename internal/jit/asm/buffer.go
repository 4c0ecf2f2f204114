// Package asm is the JIT's x86-64 instruction-level code emitter and the
// W+X code cache it writes into (spec.md §4.8). The instruction encodings
// are grounded on the teacher's own native backend
// (_examples/tinyrange-rtg std/compiler/x64.go): small `emit*` methods
// appending raw opcode bytes to a growable buffer, REX-prefix helpers, and
// a ModR/M builder for register-direct addressing, adopted here verbatim
// as the shape of Emitter's instruction methods.
package asm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// CodeBuffer is a single executable memory region filled by a bump
// allocator, aligned to 16 bytes per function (spec.md §4.8: "The code
// buffer is an 4 MiB region allocated once with W+X permission.
// Allocation is a bump pointer aligned to 16 bytes."). Grounded on
// `other_examples/…launix-de-memcp__scm-jit.go`'s mmap-then-mprotect
// pattern, generalized from dual write/execute mappings (that example
// flips one mapping from W to X after writing) to this spec's literal
// single W+X mapping, since spec.md §4.8 commits to "W+X permission" on
// one region rather than the dual-mapping REDESIGN FLAGS alternative
// (spec.md §9 keeps dual-mapping as a portability fallback note, not a
// requirement for this host).
type CodeBuffer struct {
	mem []byte
	off int
}

// DefaultCodeCacheSize is spec.md §4.8's documented size.
const DefaultCodeCacheSize = 4 << 20

// NewCodeBuffer mmaps size bytes as PROT_READ|PROT_WRITE|PROT_EXEC,
// private and anonymous.
func NewCodeBuffer(size int) (*CodeBuffer, error) {
	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("asm: mmap code buffer: %w", err)
	}
	return &CodeBuffer{mem: mem}, nil
}

// Close unmaps the region. Safe to call once; the code cache is never
// resized, only exhausted (spec.md §4.8: fixup/allocation failure is a
// compile-time bailout, not a reclaim-and-retry).
func (b *CodeBuffer) Close() error {
	if b.mem == nil {
		return nil
	}
	err := unix.Munmap(b.mem)
	b.mem = nil
	return err
}

// Publish copies code into the buffer at a 16-byte-aligned offset and
// returns the base address of the published function, or an error if the
// cache is exhausted (spec.md §4.8: "Fixup overflow ... fails the
// compilation", extended here to code-cache exhaustion per spec.md §4.9's
// "code-cache exhaustion" failure mode).
func (b *CodeBuffer) Publish(code []byte) (uintptr, error) {
	aligned := alignUp(b.off, 16)
	if aligned+len(code) > len(b.mem) {
		return 0, fmt.Errorf("asm: code cache exhausted (%d bytes requested, %d available)",
			len(code), len(b.mem)-aligned)
	}
	copy(b.mem[aligned:], code)
	b.off = aligned + len(code)
	return uintptr(unsafe.Pointer(&b.mem[0])) + uintptr(aligned), nil
}

// Used reports how many bytes of the cache have been handed out.
func (b *CodeBuffer) Used() int { return b.off }

// Cap reports the cache's total size.
func (b *CodeBuffer) Cap() int { return len(b.mem) }

func alignUp(off, align int) int {
	return (off + align - 1) &^ (align - 1)
}
