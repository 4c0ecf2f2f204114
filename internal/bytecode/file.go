package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the .bpc header's 4-byte magic (spec.md §6: "B P C 0").
var Magic = [4]byte{'B', 'P', 'C', '0'}

// Version is the current on-disk format version this package writes.
const Version = 1

// LinkError reports a bytecode reference to an out-of-range function or
// string index, detected at load time (spec.md §7).
type LinkError struct {
	Msg string
}

func (e *LinkError) Error() string { return e.Msg }

// Write serializes m to w in the .bpc format (spec.md §6): header, entry
// index, string pool, functions, then extended sections (per-function format
// tag and register count, global count and init function, class types,
// externs).
func Write(w io.Writer, m *Module) error {
	buf := &bytes.Buffer{}
	buf.Write(Magic[:])
	writeU32(buf, Version)
	writeU32(buf, uint32(m.Entry))

	writeU32(buf, uint32(len(m.Strings)))
	for _, s := range m.Strings {
		writeU32(buf, uint32(len(s)))
		buf.WriteString(s)
	}

	writeU32(buf, uint32(len(m.Funcs)))
	for _, fn := range m.Funcs {
		writeU32(buf, uint32(len(fn.Name)))
		buf.WriteString(fn.Name)
		writeU16(buf, uint16(fn.Arity))
		writeU16(buf, uint16(fn.Locals))
		writeU32(buf, uint32(len(fn.StrRefs)))
		for _, ref := range fn.StrRefs {
			writeU32(buf, ref)
		}
		writeU32(buf, uint32(len(fn.Code)))
		buf.Write(fn.Code)
	}

	// Extended section: per-function format tag + register count, versioned
	// behind the header version per spec.md §6.
	writeU32(buf, uint32(len(m.Funcs)))
	for _, fn := range m.Funcs {
		writeU8(buf, uint8(fn.Format))
		writeU16(buf, uint16(fn.Regs))
	}

	writeU32(buf, uint32(m.GlobalCount))
	writeU32(buf, uint32(m.InitFunc))

	writeU32(buf, uint32(len(m.ClassTypes)))
	for _, ct := range m.ClassTypes {
		writeString(buf, ct.Name)
		writeString(buf, ct.ParentName)
		writeU32(buf, uint32(len(ct.Fields)))
		for _, fld := range ct.Fields {
			writeString(buf, fld)
		}
		writeU32(buf, uint32(len(ct.Methods)))
		for i, meth := range ct.Methods {
			writeString(buf, meth)
			writeU32(buf, uint32(ct.MethodFn[i]))
		}
	}

	writeU32(buf, uint32(len(m.ExternFuncs)))
	for _, ext := range m.ExternFuncs {
		writeString(buf, ext.BPName)
		writeString(buf, ext.CName)
		writeString(buf, ext.LibraryPath)
		writeU32(buf, uint32(len(ext.ParamTypes)))
		for _, pt := range ext.ParamTypes {
			writeString(buf, pt)
		}
		writeString(buf, ext.RetType)
		writeU8(buf, boolByte(ext.Variadic))
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Read deserializes a .bpc stream into a Module, validating structural
// invariants (magic, version, in-range indices) per spec.md §6/§7.
func Read(r io.Reader) (*Module, error) {
	br := &byteReader{r: r}

	var magic [4]byte
	if err := br.readFull(magic[:]); err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, &LinkError{Msg: fmt.Sprintf("bad .bpc magic: %x", magic)}
	}
	version, err := br.readU32()
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, &LinkError{Msg: fmt.Sprintf("unsupported .bpc version %d", version)}
	}
	entry, err := br.readU32()
	if err != nil {
		return nil, err
	}

	m := &Module{Entry: int(entry), InitFunc: -1}

	strCount, err := br.readU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < strCount; i++ {
		s, err := br.readString()
		if err != nil {
			return nil, err
		}
		m.Strings = append(m.Strings, s)
	}

	fnCount, err := br.readU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < fnCount; i++ {
		name, err := br.readString()
		if err != nil {
			return nil, err
		}
		arity, err := br.readU16()
		if err != nil {
			return nil, err
		}
		locals, err := br.readU16()
		if err != nil {
			return nil, err
		}
		refCount, err := br.readU32()
		if err != nil {
			return nil, err
		}
		refs := make([]uint32, refCount)
		for j := range refs {
			v, err := br.readU32()
			if err != nil {
				return nil, err
			}
			refs[j] = v
			if v >= uint32(len(m.Strings)) {
				return nil, &LinkError{Msg: fmt.Sprintf("function %q: string ref %d out of range", name, v)}
			}
		}
		codeLen, err := br.readU32()
		if err != nil {
			return nil, err
		}
		code := make([]byte, codeLen)
		if err := br.readFull(code); err != nil {
			return nil, err
		}
		m.Funcs = append(m.Funcs, &Func{
			Name: name, Arity: int(arity), Locals: int(locals), Code: code, StrRefs: refs,
		})
	}
	if entry >= uint32(len(m.Funcs)) && len(m.Funcs) > 0 {
		return nil, &LinkError{Msg: fmt.Sprintf("entry function index %d out of range", entry)}
	}

	extCount, err := br.readU32()
	if err != nil {
		return nil, err
	}
	if int(extCount) != len(m.Funcs) {
		return nil, &LinkError{Msg: "format/register extension section count mismatch"}
	}
	for i := uint32(0); i < extCount; i++ {
		format, err := br.readU8()
		if err != nil {
			return nil, err
		}
		regs, err := br.readU16()
		if err != nil {
			return nil, err
		}
		m.Funcs[i].Format = Format(format)
		m.Funcs[i].Regs = int(regs)
	}

	globalCount, err := br.readU32()
	if err != nil {
		return nil, err
	}
	m.GlobalCount = int(globalCount)

	initFunc, err := br.readU32()
	if err != nil {
		return nil, err
	}
	m.InitFunc = int(int32(initFunc))

	classCount, err := br.readU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < classCount; i++ {
		ct := ClassType{}
		if ct.Name, err = br.readString(); err != nil {
			return nil, err
		}
		if ct.ParentName, err = br.readString(); err != nil {
			return nil, err
		}
		fieldCount, err := br.readU32()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < fieldCount; j++ {
			fld, err := br.readString()
			if err != nil {
				return nil, err
			}
			ct.Fields = append(ct.Fields, fld)
		}
		methCount, err := br.readU32()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < methCount; j++ {
			meth, err := br.readString()
			if err != nil {
				return nil, err
			}
			fnIdx, err := br.readU32()
			if err != nil {
				return nil, err
			}
			if fnIdx >= uint32(len(m.Funcs)) {
				return nil, &LinkError{Msg: fmt.Sprintf("class %q method %q: function index %d out of range", ct.Name, meth, fnIdx)}
			}
			ct.Methods = append(ct.Methods, meth)
			ct.MethodFn = append(ct.MethodFn, int(fnIdx))
		}
		m.ClassTypes = append(m.ClassTypes, ct)
	}

	externCount, err := br.readU32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < externCount; i++ {
		ext := ExternFunc{}
		if ext.BPName, err = br.readString(); err != nil {
			return nil, err
		}
		if ext.CName, err = br.readString(); err != nil {
			return nil, err
		}
		if ext.LibraryPath, err = br.readString(); err != nil {
			return nil, err
		}
		paramCount, err := br.readU32()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < paramCount; j++ {
			pt, err := br.readString()
			if err != nil {
				return nil, err
			}
			ext.ParamTypes = append(ext.ParamTypes, pt)
		}
		if ext.RetType, err = br.readString(); err != nil {
			return nil, err
		}
		variadic, err := br.readU8()
		if err != nil {
			return nil, err
		}
		ext.Variadic = variadic != 0
		m.ExternFuncs = append(m.ExternFuncs, ext)
	}

	return m, nil
}

func writeU8(buf *bytes.Buffer, v uint8)   { buf.WriteByte(v) }
func writeU16(buf *bytes.Buffer, v uint16) { var b [2]byte; binary.LittleEndian.PutUint16(b[:], v); buf.Write(b[:]) }
func writeU32(buf *bytes.Buffer, v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); buf.Write(b[:]) }
func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// byteReader is a tiny sequential binary reader, mirroring the style of the
// teacher's own module-cache reader in std/compiler/backend.go (a single
// forward-only cursor over a []byte/io.Reader with small typed read
// helpers) rather than pulling in a third-party binary-decoding library for
// a format this small and fully spec-fixed.
type byteReader struct {
	r io.Reader
}

func (b *byteReader) readFull(p []byte) error {
	_, err := io.ReadFull(b.r, p)
	return err
}

func (b *byteReader) readU8() (uint8, error) {
	var x [1]byte
	if err := b.readFull(x[:]); err != nil {
		return 0, err
	}
	return x[0], nil
}

func (b *byteReader) readU16() (uint16, error) {
	var x [2]byte
	if err := b.readFull(x[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(x[:]), nil
}

func (b *byteReader) readU32() (uint32, error) {
	var x [4]byte
	if err := b.readFull(x[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(x[:]), nil
}

func (b *byteReader) readString() (string, error) {
	n, err := b.readU32()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if err := b.readFull(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
