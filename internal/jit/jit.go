// Package jit implements BP's profiling JIT tier (spec.md §4.9): it walks
// a HOT function's register bytecode, emits x86-64 into a W+X code cache
// (internal/jit/asm), and exposes an interp.NativeCache so the interpreter
// can bypass dispatch for COMPILED functions. Grounded on the teacher's own
// native-codegen driver (_examples/tinyrange-rtg std/compiler/backend.go's
// orchestration of IR -> native emission), generalized from the teacher's
// "compile everything, every build" policy to BP's profile-gated,
// bail-to-interpreter-on-unsupported-opcode policy, since the teacher has
// no profiler tier to bail from (see DESIGN.md).
package jit

import (
	"go.uber.org/zap"

	"github.com/th3f0rk/betterpython/internal/bytecode"
	"github.com/th3f0rk/betterpython/internal/jit/asm"
	"github.com/th3f0rk/betterpython/internal/profile"
)

// Config holds the JIT's tunables.
type Config struct {
	CodeCacheSize int
}

// DefaultConfig matches spec.md §4.8's documented 4 MiB code cache.
func DefaultConfig() Config { return Config{CodeCacheSize: asm.DefaultCodeCacheSize} }

// Cache owns the code buffer and the table of published native entry
// points; it implements interp.NativeCache.
type Cache struct {
	buf      *asm.CodeBuffer
	mod      *bytecode.Module
	prof     *profile.Profiler
	log      *zap.Logger
	compiled map[int]uintptr
}

// NewCache allocates the code buffer and constructs a Cache bound to mod's
// functions and prof's state machine.
func NewCache(mod *bytecode.Module, prof *profile.Profiler, log *zap.Logger, cfg Config) (*Cache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.CodeCacheSize <= 0 {
		cfg.CodeCacheSize = asm.DefaultCodeCacheSize
	}
	buf, err := asm.NewCodeBuffer(cfg.CodeCacheSize)
	if err != nil {
		return nil, err
	}
	return &Cache{buf: buf, mod: mod, prof: prof, log: log, compiled: map[int]uintptr{}}, nil
}

// Close releases the code buffer's executable mapping.
func (c *Cache) Close() error { return c.buf.Close() }

// Lookup implements interp.NativeCache.
func (c *Cache) Lookup(fnIndex int) (func(regs []int64) int64, bool) {
	addr, ok := c.compiled[fnIndex]
	if !ok {
		return nil, false
	}
	return func(regs []int64) int64 {
		var base *int64
		if len(regs) > 0 {
			base = &regs[0]
		} else {
			var zero int64
			base = &zero
		}
		return callNative(addr, base)
	}, true
}

// MaybeCompile implements interp.NativeCache: it attempts to promote
// fnIndex to native code the first time the profiler reports it HOT
// (spec.md §4.7/§4.9). Failures are silent per spec.md §7: "JIT compilation
// failures are silent: the function is marked FAILED and continues to
// interpret."
func (c *Cache) MaybeCompile(fnIndex int) {
	if !archSupported {
		return
	}
	if c.prof.State(fnIndex) != profile.Hot {
		return
	}
	if !c.prof.MarkCompiling(fnIndex) {
		return
	}
	if fnIndex < 0 || fnIndex >= len(c.mod.Funcs) {
		c.prof.MarkFailed(fnIndex)
		return
	}
	fn := c.mod.Funcs[fnIndex]
	code, err := translate(fn)
	if err != nil {
		c.log.Debug("jit bailout", zap.String("func", fn.Name), zap.Error(err))
		c.prof.MarkFailed(fnIndex)
		return
	}
	addr, err := c.buf.Publish(code)
	if err != nil {
		c.log.Debug("jit publish failed", zap.String("func", fn.Name), zap.Error(err))
		c.prof.MarkFailed(fnIndex)
		return
	}
	c.compiled[fnIndex] = addr
	c.prof.MarkCompiled(fnIndex)
	c.log.Debug("jit compiled", zap.String("func", fn.Name), zap.Int("bytes", len(code)))
}
