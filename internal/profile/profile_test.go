package profile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateTransitionsAtHalfAndFullThreshold(t *testing.T) {
	p := New(10)
	require.Equal(t, Cold, p.State(0))

	for i := 0; i < 4; i++ {
		p.RecordCall(0)
	}
	require.Equal(t, Cold, p.State(0))

	p.RecordCall(0) // 5th call: half of 10
	require.Equal(t, Warm, p.State(0))

	for i := 0; i < 4; i++ {
		p.RecordCall(0)
	}
	require.Equal(t, Warm, p.State(0))

	p.RecordCall(0) // 10th call: threshold
	require.Equal(t, Hot, p.State(0))
	require.Equal(t, int64(10), p.Calls(0))
}

func TestMarkCompilingRequiresHot(t *testing.T) {
	p := New(1)
	require.False(t, p.MarkCompiling(0), "a COLD function is not eligible for compilation")

	p.RecordCall(0)
	require.Equal(t, Hot, p.State(0))
	require.True(t, p.MarkCompiling(0))
	require.Equal(t, Compiling, p.State(0))

	p.MarkCompiled(0)
	require.Equal(t, Compiled, p.State(0))
	require.Equal(t, 4, int(p.State(0)), "COMPILED must be state 4 per spec.md §8 scenario 5")
}

func TestFailedIsPermanent(t *testing.T) {
	p := New(1)
	p.RecordCall(0)
	require.True(t, p.MarkCompiling(0))
	p.MarkFailed(0)
	require.Equal(t, Failed, p.State(0))

	p.RecordCall(0)
	require.Equal(t, Failed, p.State(0), "FAILED is the one-way terminal state")
}

func TestDefaultThresholdIsOneHundred(t *testing.T) {
	p := New(0)
	require.Equal(t, 100, p.threshold)
}
