package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/th3f0rk/betterpython/internal/bytecode"
	"github.com/th3f0rk/betterpython/internal/interp"
	"github.com/th3f0rk/betterpython/internal/jit"
)

// runBytecode executes bc to completion, wiring a jit.Cache as the
// interpreter's NativeCache so hot functions are promoted per spec.md
// §4.9, and returns the process exit code (spec.md §6: "the return value
// of main ... or the exit() argument").
func runBytecode(bc *bytecode.Module, flags *globalFlags, log *zap.Logger) int {
	cfg := interp.Config{HotThreshold: flags.hotThreshold, Dispatch: flags.dispatch, Debug: flags.debug}
	it := interp.New(bc, log, cfg)

	cache, err := jit.NewCache(bc, it.Profiler(), log, jit.DefaultConfig())
	if err != nil {
		log.Warn("jit code cache unavailable, running interpreter-only", zap.Error(err))
	} else {
		defer cache.Close()
		it.SetNatives(cache)
	}

	code, err := it.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return code
}
