package check_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/th3f0rk/betterpython/internal/ast"
	"github.com/th3f0rk/betterpython/internal/check"
	"github.com/th3f0rk/betterpython/internal/frontend"
)

func parseAndCheck(t *testing.T, src string) (*ast.Module, []*check.Error) {
	t.Helper()
	mod, perrs := frontend.Parse([]byte(src))
	require.Empty(t, perrs, "source must parse cleanly")
	return check.Check(mod)
}

func TestInferredTypeIsSetOnEveryExpr(t *testing.T) {
	mod, errs := parseAndCheck(t, `
def main() -> int {
	let x: int = 1 + 2;
	return x;
}
`)
	require.Empty(t, errs)
	letStmt := mod.Funcs[0].Body[0]
	require.Equal(t, ast.Int, letStmt.Value.Inferred)
}

func TestMismatchedArithmeticOperandsFailTypeCheck(t *testing.T) {
	_, errs := parseAndCheck(t, `
def main() -> int {
	let x: int = 1 + 1.5;
	return 0;
}
`)
	require.NotEmpty(t, errs, "int + float must fail: spec.md §4.1 requires matching numeric types")
	require.NotZero(t, errs[0].Line)
}

func TestCallResolvesToUserFunctionIndex(t *testing.T) {
	mod, errs := parseAndCheck(t, `
def add(a: int, b: int) -> int {
	return a + b;
}

def main() -> int {
	return add(1, 2);
}
`)
	require.Empty(t, errs)
	mainFn := mod.Funcs[1]
	retExpr := mainFn.Body[0].RetVal
	require.Equal(t, ast.ECall, retExpr.Kind)
	require.GreaterOrEqual(t, retExpr.FnIndex, 0, "a resolved user call must carry a non-negative function index")
}

func TestUnknownCalleeFailsTypeCheck(t *testing.T) {
	_, errs := parseAndCheck(t, `
def main() -> int {
	return mystery(1);
}
`)
	require.NotEmpty(t, errs)
}

func TestEqualityRequiresIdenticalTypes(t *testing.T) {
	_, errs := parseAndCheck(t, `
def main() -> int {
	let ok: bool = 1 == "x";
	return 0;
}
`)
	require.NotEmpty(t, errs, `spec.md §4.1: "==/!= require identical types"`)
}

func TestDuplicateLocalInSameScopeFails(t *testing.T) {
	_, errs := parseAndCheck(t, `
def main() -> int {
	let x: int = 1;
	let x: int = 2;
	return x;
}
`)
	require.NotEmpty(t, errs)
}
