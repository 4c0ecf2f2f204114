package sbc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/th3f0rk/betterpython/internal/bytecode"
	"github.com/th3f0rk/betterpython/internal/check"
	"github.com/th3f0rk/betterpython/internal/frontend"
	"github.com/th3f0rk/betterpython/internal/sbc"
)

func TestCompileProducesStackFormatEntryFunction(t *testing.T) {
	mod, perrs := frontend.Parse([]byte(`
def main() -> int {
	let x: int = 10;
	let y: int = 20;
	print(x + y);
	return 0;
}
`))
	require.Empty(t, perrs)
	mod, cerrs := check.Check(mod)
	require.Empty(t, cerrs)

	bc, err := sbc.Compile(mod)
	require.NoError(t, err)

	require.GreaterOrEqual(t, bc.Entry, 0)
	entry := bc.Funcs[bc.Entry]
	require.Equal(t, "main", entry.Name)
	require.Equal(t, bytecode.Stack, entry.Format)
	require.NotEmpty(t, entry.Code)
}

func TestCompileLowersIfElseToNonEmptyCode(t *testing.T) {
	mod, perrs := frontend.Parse([]byte(`
def main() -> int {
	let x: int = 1;
	if x == 1 {
		x = 2;
	} else {
		x = 3;
	}
	return x;
}
`))
	require.Empty(t, perrs)
	mod, cerrs := check.Check(mod)
	require.Empty(t, cerrs)

	bc, err := sbc.Compile(mod)
	require.NoError(t, err)

	fn := bc.Funcs[bc.Entry]
	require.Less(t, 0, len(fn.Code), "if/else must lower to a non-empty body with forward jumps")
}
