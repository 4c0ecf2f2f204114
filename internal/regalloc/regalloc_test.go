package regalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocParamPinsLowRegisters(t *testing.T) {
	a := New()
	r0 := a.AllocParam("x", 0)
	r1 := a.AllocParam("y", 1)
	assert.Equal(t, byte(0), r0)
	assert.Equal(t, byte(1), r1)
	assert.Equal(t, 2, a.RegCount())
}

func TestAllocVarStable(t *testing.T) {
	a := New()
	a.AllocParam("x", 0)
	r1 := a.AllocVar("y")
	r2 := a.AllocVar("y")
	assert.Equal(t, r1, r2)
}

func TestFreeTempSkipsParamAndBoundVars(t *testing.T) {
	a := New()
	p := a.AllocParam("x", 0)
	v := a.AllocVar("y")
	a.FreeTemp(p)
	a.FreeTemp(v)
	assert.Equal(t, Param, a.slots[p])
	assert.Equal(t, Allocated, a.slots[v])
}

func TestAllocTempReusesFreedRegister(t *testing.T) {
	a := New()
	t1 := a.AllocTemp()
	a.FreeTemp(t1)
	t2 := a.AllocTemp()
	assert.Equal(t, t1, t2)
}

func TestAllocBlockReturnsConsecutiveRun(t *testing.T) {
	a := New()
	a.AllocTemp()
	base := a.AllocBlock(4)
	for i := 0; i < 4; i++ {
		assert.Equal(t, Allocated, a.slots[int(base)+i])
	}
}

func TestAllocTempExhaustionPanics(t *testing.T) {
	a := New()
	for i := 0; i < NumRegisters; i++ {
		a.AllocTemp()
	}
	assert.Panics(t, func() { a.AllocTemp() })
}

func TestReleaseVarFreesRegisterForReuse(t *testing.T) {
	a := New()
	r := a.AllocVar("x")
	a.ReleaseVar("x")
	_, ok := a.LookupVar("x")
	require.False(t, ok)
	assert.Equal(t, r, a.AllocTemp())
}
