package interp_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/th3f0rk/betterpython/internal/check"
	"github.com/th3f0rk/betterpython/internal/frontend"
	"github.com/th3f0rk/betterpython/internal/interp"
	"github.com/th3f0rk/betterpython/internal/rbc"
)

func compileRBC(t *testing.T, src string) *interp.Interp {
	t.Helper()
	mod, perrs := frontend.Parse([]byte(src))
	require.Empty(t, perrs)
	mod, cerrs := check.Check(mod)
	require.Empty(t, cerrs)
	bc, err := rbc.Compile(mod)
	require.NoError(t, err)
	return interp.New(bc, zap.NewNop(), interp.DefaultConfig())
}

func TestOutOfBoundsArrayAccessIsAFatalRuntimeFault(t *testing.T) {
	it := compileRBC(t, `
def main() -> int {
	let arr: [int] = [1, 2, 3];
	return arr[10];
}
`)
	_, err := it.Run()
	require.Error(t, err)
	var fault *interp.RuntimeFault
	require.ErrorAs(t, err, &fault, "spec.md §4.6: out-of-range array accesses are fatal runtime errors, not catchable")
}

func TestDivisionByZeroIsAFatalRuntimeFault(t *testing.T) {
	it := compileRBC(t, `
def main() -> int {
	let x: int = 1;
	let y: int = 0;
	return x / y;
}
`)
	_, err := it.Run()
	require.Error(t, err)
	var fault *interp.RuntimeFault
	require.ErrorAs(t, err, &fault)
}

func TestUserExceptionIsCaughtByEnclosingTry(t *testing.T) {
	it := compileRBC(t, `
def main() -> int {
	try {
		throw "boom";
	} catch e {
		return 42;
	}
	return 0;
}
`)
	ret, err := it.Run()
	require.NoError(t, err)
	require.Equal(t, 42, ret)
}
