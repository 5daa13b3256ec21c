// Package codec is the binary cache encoding of a mappings container.
//
// Layout (little endian):
//
//	flags     byte    1 = string pool present, 0 = inline strings
//	[pool]    uvarint count, then count × (uint16 len+1, bytes)
//	header    version, name, source (nullable), namespace
//	classes   uint32 count, then per class:
//	            name, obf magic, mapped magic,
//	            uint32 method count, methods, uint32 field count, fields
//	member    name, desc, obf magic, mapped magic
//
// With a pool, strings are uvarint references (0 = null, k = pool[k-1]);
// without one they are inline (uint16 len+1, 0 = null). Pool entries are
// numbered in order of first use.
//
// Magic names save the common cases: tag 0 absent, 1 equal to the entry's
// intermediary name, 2 merged-but-null (read as absent), 3 merged string,
// 4 client and server strings.
package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"mapdex/internal/mappings"
)

const (
	flagInline byte = 0
	flagPooled byte = 1
)

const (
	magicAbsent byte = iota
	magicSame
	magicMergedNull
	magicMerged
	magicSplit
)

// maxString is the longest string a uint16 length+1 prefix can carry.
const maxString = math.MaxUint16 - 1

// Options controls encoding.
type Options struct {
	// StringPool deduplicates repeated strings through a leading pool.
	StringPool bool
}

// Encode writes m to w.
func Encode(w io.Writer, m *mappings.Mappings, opts Options) error {
	e := &encoder{pooled: opts.StringPool}
	if e.pooled {
		e.index = make(map[string]uint64)
	}
	if err := e.mappings(m); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if e.pooled {
		bw.WriteByte(flagPooled)
		var tmp [binary.MaxVarintLen64]byte
		bw.Write(tmp[:binary.PutUvarint(tmp[:], uint64(len(e.pool)))])
		for _, s := range e.pool {
			var l [2]byte
			binary.LittleEndian.PutUint16(l[:], uint16(len(s)+1))
			bw.Write(l[:])
			bw.WriteString(s)
		}
	} else {
		bw.WriteByte(flagInline)
	}
	if _, err := bw.Write(e.body.Bytes()); err != nil {
		return err
	}
	return bw.Flush()
}

// EncodeBytes is Encode into a new byte slice.
func EncodeBytes(m *mappings.Mappings, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type encoder struct {
	body   bytes.Buffer
	pooled bool
	pool   []string
	index  map[string]uint64
}

func (e *encoder) str(s string) error {
	if len(s) > maxString {
		return fmt.Errorf("string of %d bytes exceeds the %d byte cache limit", len(s), maxString)
	}
	if e.pooled {
		ref := uint64(0)
		if s != "" {
			var ok bool
			if ref, ok = e.index[s]; !ok {
				e.pool = append(e.pool, s)
				ref = uint64(len(e.pool))
				e.index[s] = ref
			}
		}
		var tmp [binary.MaxVarintLen64]byte
		e.body.Write(tmp[:binary.PutUvarint(tmp[:], ref)])
		return nil
	}

	var l [2]byte
	if s != "" {
		binary.LittleEndian.PutUint16(l[:], uint16(len(s)+1))
	}
	e.body.Write(l[:])
	e.body.WriteString(s)
	return nil
}

func (e *encoder) u32(n int) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(n))
	e.body.Write(b[:])
}

func (e *encoder) mappings(m *mappings.Mappings) error {
	for _, s := range []string{m.Version, m.Name, string(m.Source), m.Namespace} {
		if err := e.str(s); err != nil {
			return err
		}
	}

	classes := m.SortedClasses()
	e.u32(len(classes))
	for _, c := range classes {
		if err := e.entry(&c.Entry); err != nil {
			return err
		}
		e.u32(len(c.Methods))
		for _, meth := range c.Methods {
			if err := e.member(&meth.Member); err != nil {
				return err
			}
		}
		e.u32(len(c.Fields))
		for _, f := range c.Fields {
			if err := e.member(&f.Member); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *encoder) entry(en *mappings.Entry) error {
	if err := e.str(en.IntermediaryName); err != nil {
		return err
	}
	if err := e.obf(en); err != nil {
		return err
	}
	return e.mapped(en)
}

func (e *encoder) member(m *mappings.Member) error {
	if err := e.str(m.IntermediaryName); err != nil {
		return err
	}
	if err := e.str(m.IntermediaryDesc); err != nil {
		return err
	}
	if err := e.obf(&m.Entry); err != nil {
		return err
	}
	return e.mapped(&m.Entry)
}

func (e *encoder) obf(en *mappings.Entry) error {
	o := en.Obf
	switch {
	case o.IsMerged() && o.Merged == en.IntermediaryName:
		e.body.WriteByte(magicSame)
	case o.IsMerged():
		e.body.WriteByte(magicMerged)
		return e.str(o.Merged)
	case o.IsEmpty():
		e.body.WriteByte(magicAbsent)
	default:
		e.body.WriteByte(magicSplit)
		if err := e.str(o.Client); err != nil {
			return err
		}
		return e.str(o.Server)
	}
	return nil
}

func (e *encoder) mapped(en *mappings.Entry) error {
	switch en.MappedName {
	case "":
		e.body.WriteByte(magicAbsent)
	case en.IntermediaryName:
		e.body.WriteByte(magicSame)
	default:
		e.body.WriteByte(magicMerged)
		return e.str(en.MappedName)
	}
	return nil
}
