package ffi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNullResolverFaultsInsteadOfSilentNull(t *testing.T) {
	var r Resolver = NullResolver{}
	d := &Descriptor{BPName: "c_sqrt", CName: "sqrt", LibraryPath: "libm.so.6", Params: []Type{Float}, Return: Float}

	err := r.Resolve(d)
	require.Error(t, err, "spec.md §9's Open Question is resolved as a fault, not a null")

	_, err = r.Invoke(d, []int64{4})
	require.Error(t, err)
}
