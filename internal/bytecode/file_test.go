package bytecode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundtrip(t *testing.T) {
	m := &Module{
		Entry:       0,
		GlobalCount: 1,
		InitFunc:    1,
		Strings:     []string{"hello", "world"},
		Funcs: []*Func{
			{Name: "main", Arity: 0, Locals: 2, Format: Stack, Code: []byte{1, 2, 3}, StrRefs: []uint32{0, 1}},
			{Name: "__init_globals", Arity: 0, Regs: 3, Format: Register, Code: []byte{4, 5}},
		},
		ClassTypes: []ClassType{
			{Name: "Animal", Fields: []string{"name"}, Methods: []string{"speak"}, MethodFn: []int{0}},
		},
		ExternFuncs: []ExternFunc{
			{BPName: "c_sqrt", CName: "sqrt", LibraryPath: "libm.so.6", ParamTypes: []string{"FLOAT"}, RetType: "FLOAT"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))

	got, err := Read(&buf)
	require.NoError(t, err)

	require.Equal(t, m.Entry, got.Entry)
	require.Equal(t, m.GlobalCount, got.GlobalCount)
	require.Equal(t, m.InitFunc, got.InitFunc)
	require.Equal(t, m.Strings, got.Strings)
	require.Len(t, got.Funcs, 2)
	require.Equal(t, m.Funcs[0].Name, got.Funcs[0].Name)
	require.Equal(t, m.Funcs[0].Code, got.Funcs[0].Code)
	require.Equal(t, m.Funcs[1].Format, got.Funcs[1].Format)
	require.Equal(t, m.Funcs[1].Regs, got.Funcs[1].Regs)
	require.Equal(t, m.ClassTypes, got.ClassTypes)
	require.Equal(t, m.ExternFuncs, got.ExternFuncs)
}

func TestReadRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("XXXX")
	_, err := Read(&buf)
	require.Error(t, err)
	var linkErr *LinkError
	require.ErrorAs(t, err, &linkErr)
}

func TestReadRejectsOutOfRangeStringRef(t *testing.T) {
	m := &Module{Entry: 0, InitFunc: -1, Strings: []string{"a"}, Funcs: []*Func{
		{Name: "f", StrRefs: []uint32{5}},
	}}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))
	_, err := Read(&buf)
	require.Error(t, err)
}
