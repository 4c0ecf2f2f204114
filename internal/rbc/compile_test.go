package rbc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/th3f0rk/betterpython/internal/bytecode"
	"github.com/th3f0rk/betterpython/internal/check"
	"github.com/th3f0rk/betterpython/internal/frontend"
	"github.com/th3f0rk/betterpython/internal/rbc"
)

func TestCompileProducesRegisterFormatWithParamsInLowRegisters(t *testing.T) {
	mod, perrs := frontend.Parse([]byte(`
def add(a: int, b: int) -> int {
	return a + b;
}

def main() -> int {
	return add(1, 2);
}
`))
	require.Empty(t, perrs)
	mod, cerrs := check.Check(mod)
	require.Empty(t, cerrs)

	bc, err := rbc.Compile(mod)
	require.NoError(t, err)

	var addFn *bytecode.Func
	for _, fn := range bc.Funcs {
		if fn.Name == "add" {
			addFn = fn
		}
	}
	require.NotNil(t, addFn)
	require.Equal(t, bytecode.Register, addFn.Format)
	require.Equal(t, 2, addFn.Arity)
	require.GreaterOrEqual(t, addFn.Regs, addFn.Arity, "spec.md §3: a function's parameters always occupy r0..r(arity-1)")
}
