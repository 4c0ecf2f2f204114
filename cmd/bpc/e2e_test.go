package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/th3f0rk/betterpython/internal/bytecode"
	"github.com/th3f0rk/betterpython/internal/interp"
	"github.com/th3f0rk/betterpython/internal/jit"
)

// captureStdout redirects os.Stdout for the duration of fn and returns
// everything written to it. print()/println() (internal/builtins) write
// through fmt.Println to the real os.Stdout, so this is the only way to
// observe a program's output from outside the VM.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	fn()
	os.Stdout = orig
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

// runSource compiles src with the given bytecode format and runs it to
// completion, returning captured stdout and the process exit code.
func runSource(t *testing.T, src string, flags *globalFlags) (string, int) {
	t.Helper()
	log := zap.NewNop()
	mod, err := buildModule([]byte(src), flags, log)
	require.NoError(t, err)
	bc, err := lowerModule(mod, flags, log)
	require.NoError(t, err)

	var code int
	out := captureStdout(t, func() {
		code = runBytecode(bc, flags, log)
	})
	return out, code
}

func stackFlags() *globalFlags    { return &globalFlags{format: "stack", dispatch: "switch", hotThreshold: 100} }
func registerFlags() *globalFlags { return &globalFlags{format: "register", dispatch: "switch", hotThreshold: 100} }

// TestArithmeticAndControlFlow realizes spec.md §8 scenario 1.
func TestArithmeticAndControlFlow(t *testing.T) {
	src := `
def main() -> int {
	let x: int = 10;
	let y: int = 20;
	print(x + y);
	return 0;
}
`
	for _, flags := range []*globalFlags{stackFlags(), registerFlags()} {
		out, code := runSource(t, src, flags)
		require.Equal(t, "30\n", out)
		require.Equal(t, 0, code)
	}
}

// TestRecursion realizes spec.md §8 scenario 2.
func TestRecursion(t *testing.T) {
	src := `
def factorial(n: int) -> int {
	if n <= 1 {
		return 1;
	}
	return n * factorial(n - 1);
}

def main() -> int {
	print(factorial(5));
	return 0;
}
`
	for _, flags := range []*globalFlags{stackFlags(), registerFlags()} {
		out, code := runSource(t, src, flags)
		require.Equal(t, "120\n", out)
		require.Equal(t, 0, code)
	}
}

// TestExceptions realizes spec.md §8 scenario 3: throw/catch/finally,
// asserting finally runs on the exceptional path per SPEC_FULL.md §9.
func TestExceptions(t *testing.T) {
	src := `
def main() -> int {
	try {
		throw "boom";
	} catch e {
		print(e);
	} finally {
		print("done");
	}
	return 0;
}
`
	for _, flags := range []*globalFlags{stackFlags(), registerFlags()} {
		out, code := runSource(t, src, flags)
		require.Equal(t, "boom\ndone\n", out)
		require.Equal(t, 0, code)
	}
}

// TestCollections realizes spec.md §8 scenario 4.
func TestCollections(t *testing.T) {
	src := `
def main() -> int {
	let arr: [int] = [1, 2, 3];
	array_push(arr, 4);
	print(array_len(arr));
	print(arr[3]);
	return 0;
}
`
	for _, flags := range []*globalFlags{stackFlags(), registerFlags()} {
		out, code := runSource(t, src, flags)
		require.Equal(t, "4\n4\n", out)
		require.Equal(t, 0, code)
	}
}

// TestJITTriggering realizes spec.md §8 scenario 5: a loop hot enough to
// push `add` across the default 100-call hot threshold, asserting both the
// printed result and the profiler's final COMPILED state (state 4).
func TestJITTriggering(t *testing.T) {
	src := `
def add(a: int, b: int) -> int {
	return a + b;
}

def main() -> int {
	let sum: int = 0;
	let i: int = 0;
	while i < 1000 {
		sum = sum + add(i, i);
		i = i + 1;
	}
	print(sum);
	return 0;
}
`
	flags := registerFlags()
	log := zap.NewNop()
	mod, err := buildModule([]byte(src), flags, log)
	require.NoError(t, err)
	bc, err := lowerModule(mod, flags, log)
	require.NoError(t, err)

	cfg := interp.Config{HotThreshold: flags.hotThreshold, Dispatch: flags.dispatch}
	it := interp.New(bc, log, cfg)
	cache, err := jit.NewCache(bc, it.Profiler(), log, jit.DefaultConfig())
	require.NoError(t, err)
	defer cache.Close()
	it.SetNatives(cache)

	out := captureStdout(t, func() {
		ret, err := it.Run()
		require.NoError(t, err)
		require.Equal(t, 0, ret)
	})
	require.Equal(t, "999000\n", out)

	addIdx := -1
	for i, fn := range bc.Funcs {
		if fn.Name == "add" {
			addIdx = i
		}
	}
	require.GreaterOrEqual(t, addIdx, 0, "add must appear in the compiled module")
	require.Equal(t, 4, int(it.Profiler().State(addIdx)), "add should have been promoted to COMPILED (state 4)")
}

// TestRoundtripPersistence realizes spec.md §8 scenario 6: compiling to
// .bpc, reloading, and running must produce identical stdout to running the
// module directly.
func TestRoundtripPersistence(t *testing.T) {
	src := `
def main() -> int {
	let total: int = 0;
	for i in range(0, 5) {
		total = total + i;
	}
	print(total);
	return 0;
}
`
	flags := registerFlags()
	log := zap.NewNop()
	mod, err := buildModule([]byte(src), flags, log)
	require.NoError(t, err)
	bc, err := lowerModule(mod, flags, log)
	require.NoError(t, err)

	directOut := captureStdout(t, func() {
		code := runBytecode(bc, flags, log)
		require.Equal(t, 0, code)
	})

	var buf bytes.Buffer
	require.NoError(t, bytecode.Write(&buf, bc))
	reloaded, err := bytecode.Read(&buf)
	require.NoError(t, err)

	reloadedOut := captureStdout(t, func() {
		code := runBytecode(reloaded, flags, log)
		require.Equal(t, 0, code)
	})

	require.Equal(t, directOut, reloadedOut)
	require.Equal(t, "10\n", directOut)
}
