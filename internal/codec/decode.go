package codec

import (
	"encoding/binary"
	"fmt"
	"io"

	"mapdex/internal/intern"
	"mapdex/internal/mappings"
)

// DecodeError reports corrupt or truncated cache data.
type DecodeError struct {
	Offset int
	Msg    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cache decode failed at offset %d: %s", e.Offset, e.Msg)
}

// Smallest encodings, used to reject counts the remaining bytes cannot hold.
const (
	minClassSize  = 1 + 1 + 1 + 4 + 4
	minMemberSize = 1 + 1 + 1 + 1
)

// DecodeReader reads all of r and decodes it.
func DecodeReader(r io.Reader) (*mappings.Mappings, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode parses data produced by Encode. Any inconsistency, including
// trailing bytes, yields a *DecodeError and no container.
func Decode(data []byte) (*mappings.Mappings, error) {
	d := &decoder{data: data, interner: intern.New()}
	m, err := d.mappings()
	if err != nil {
		return nil, err
	}
	if d.off != len(d.data) {
		return nil, d.fail("%d trailing bytes", len(d.data)-d.off)
	}
	return m, nil
}

type decoder struct {
	data     []byte
	off      int
	pooled   bool
	pool     []string
	interner *intern.Interner
}

func (d *decoder) fail(format string, args ...interface{}) *DecodeError {
	return &DecodeError{Offset: d.off, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) remaining() int { return len(d.data) - d.off }

func (d *decoder) u8() (byte, error) {
	if d.remaining() < 1 {
		return 0, d.fail("unexpected end of data")
	}
	b := d.data[d.off]
	d.off++
	return b, nil
}

func (d *decoder) u16() (int, error) {
	if d.remaining() < 2 {
		return 0, d.fail("unexpected end of data")
	}
	v := binary.LittleEndian.Uint16(d.data[d.off:])
	d.off += 2
	return int(v), nil
}

func (d *decoder) u32() (int, error) {
	if d.remaining() < 4 {
		return 0, d.fail("unexpected end of data")
	}
	v := binary.LittleEndian.Uint32(d.data[d.off:])
	d.off += 4
	return int(v), nil
}

func (d *decoder) uvarint() (uint64, error) {
	v, n := binary.Uvarint(d.data[d.off:])
	if n <= 0 {
		return 0, d.fail("invalid varint")
	}
	d.off += n
	return v, nil
}

// rawString reads a uint16 len+1 prefixed string; 0 is null.
func (d *decoder) rawString() (string, error) {
	n, err := d.u16()
	if err != nil || n == 0 {
		return "", err
	}
	n--
	if d.remaining() < n {
		return "", d.fail("string of %d bytes overruns data", n)
	}
	s := string(d.data[d.off : d.off+n])
	d.off += n
	return s, nil
}

func (d *decoder) str() (string, error) {
	if !d.pooled {
		s, err := d.rawString()
		return d.interner.Intern(s), err
	}
	ref, err := d.uvarint()
	if err != nil || ref == 0 {
		return "", err
	}
	if ref > uint64(len(d.pool)) {
		return "", d.fail("string reference %d outside pool of %d", ref, len(d.pool))
	}
	return d.pool[ref-1], nil
}

func (d *decoder) count(min int) (int, error) {
	n, err := d.u32()
	if err != nil {
		return 0, err
	}
	if n > d.remaining()/min {
		return 0, d.fail("count %d exceeds remaining data", n)
	}
	return n, nil
}

func (d *decoder) mappings() (*mappings.Mappings, error) {
	flags, err := d.u8()
	if err != nil {
		return nil, err
	}
	switch flags {
	case flagPooled:
		d.pooled = true
		n, err := d.uvarint()
		if err != nil {
			return nil, err
		}
		if n > uint64(d.remaining()/2) {
			return nil, d.fail("pool size %d exceeds remaining data", n)
		}
		d.pool = make([]string, n)
		for i := range d.pool {
			s, err := d.rawString()
			if err != nil {
				return nil, err
			}
			if s == "" {
				return nil, d.fail("null entry in string pool")
			}
			d.pool[i] = s
		}
	case flagInline:
	default:
		return nil, d.fail("unknown flags %#x", flags)
	}

	var header [4]string
	for i := range header {
		if header[i], err = d.str(); err != nil {
			return nil, err
		}
	}
	m := mappings.New(header[0], header[1], mappings.Source(header[2]), header[3])

	classes, err := d.count(minClassSize)
	if err != nil {
		return nil, err
	}
	for i := 0; i < classes; i++ {
		c := &mappings.Class{}
		if err := d.entry(&c.Entry, ""); err != nil {
			return nil, err
		}
		if c.IntermediaryName == "" {
			return nil, d.fail("class without intermediary name")
		}
		if _, dup := m.Classes[c.IntermediaryName]; dup {
			return nil, d.fail("duplicate class %q", c.IntermediaryName)
		}

		methods, err := d.count(minMemberSize)
		if err != nil {
			return nil, err
		}
		c.Methods = make([]*mappings.Method, 0, methods)
		for j := 0; j < methods; j++ {
			meth := &mappings.Method{}
			if err := d.member(&meth.Member); err != nil {
				return nil, err
			}
			c.Methods = append(c.Methods, meth)
		}

		fields, err := d.count(minMemberSize)
		if err != nil {
			return nil, err
		}
		c.Fields = make([]*mappings.Field, 0, fields)
		for j := 0; j < fields; j++ {
			f := &mappings.Field{}
			if err := d.member(&f.Member); err != nil {
				return nil, err
			}
			c.Fields = append(c.Fields, f)
		}
		m.Classes[c.IntermediaryName] = c
	}
	return m, nil
}

// entry reads name, obf and mapped; a non-empty name skips reading the name.
func (d *decoder) entry(e *mappings.Entry, name string) error {
	var err error
	if name == "" {
		if e.IntermediaryName, err = d.str(); err != nil {
			return err
		}
	} else {
		e.IntermediaryName = name
	}
	if err := d.obf(e); err != nil {
		return err
	}
	return d.mapped(e)
}

func (d *decoder) member(m *mappings.Member) error {
	name, err := d.str()
	if err != nil {
		return err
	}
	if name == "" {
		return d.fail("member without intermediary name")
	}
	if m.IntermediaryDesc, err = d.str(); err != nil {
		return err
	}
	return d.entry(&m.Entry, name)
}

func (d *decoder) obf(e *mappings.Entry) error {
	tag, err := d.u8()
	if err != nil {
		return err
	}
	switch tag {
	case magicAbsent, magicMergedNull:
	case magicSame:
		e.Obf.Merged = e.IntermediaryName
	case magicMerged:
		if e.Obf.Merged, err = d.str(); err != nil {
			return err
		}
	case magicSplit:
		if e.Obf.Client, err = d.str(); err != nil {
			return err
		}
		if e.Obf.Server, err = d.str(); err != nil {
			return err
		}
	default:
		return d.fail("unknown obf tag %d", tag)
	}
	return nil
}

func (d *decoder) mapped(e *mappings.Entry) error {
	tag, err := d.u8()
	if err != nil {
		return err
	}
	switch tag {
	case magicAbsent, magicMergedNull:
	case magicSame:
		e.MappedName = e.IntermediaryName
	case magicMerged:
		if e.MappedName, err = d.str(); err != nil {
			return err
		}
	default:
		return d.fail("unknown mapped tag %d", tag)
	}
	return nil
}
