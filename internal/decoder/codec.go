package decoder

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/muurk/defmt-print/internal/format"
	"github.com/muurk/defmt-print/internal/table"
)

// maxLEB128 is the longest encoding of a 64-bit value.
const maxLEB128 = 10

// cursor reads values from a byte slice it never modifies. Running past the
// end yields ErrStarved; the caller discards the cursor and retries later.
type cursor struct {
	table *table.Table
	data  []byte
	pos   int
	depth int
}

func (c *cursor) malformed(t format.Type, offset int, msg string) error {
	return &MalformedValueError{Offset: offset, Type: t, Msg: msg}
}

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || len(c.data)-c.pos < n {
		return nil, ErrStarved
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// uleb reads an unsigned LEB128 value.
func (c *cursor) uleb(t format.Type) (uint64, error) {
	start := c.pos
	var v uint64
	for i := 0; i < maxLEB128; i++ {
		if c.pos >= len(c.data) {
			c.pos = start
			return 0, ErrStarved
		}
		b := c.data[c.pos]
		c.pos++
		if i == maxLEB128-1 && b > 1 {
			return 0, c.malformed(t, start, "LEB128 value overflows 64 bits")
		}
		v |= uint64(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, c.malformed(t, start, "LEB128 value longer than 10 bytes")
}

// length reads a LEB128 length prefix and the bytes it announces. A prefix
// claiming more bytes than are buffered is starvation, not corruption.
func (c *cursor) length(t format.Type) ([]byte, error) {
	n, err := c.uleb(t)
	if err != nil {
		return nil, err
	}
	if n > uint64(len(c.data)-c.pos) {
		return nil, ErrStarved
	}
	return c.take(int(n))
}

// args decodes one value per argument slot of f, in slot order.
func (c *cursor) args(f *format.Format) ([]Value, error) {
	values := make([]Value, 0, len(f.Args))
	for _, a := range f.Args {
		v, err := c.value(a.Type)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (c *cursor) value(t format.Type) (Value, error) {
	start := c.pos
	switch t.Kind {
	case format.KindU8, format.KindU16, format.KindU32, format.KindU64, format.KindUsize, format.KindU128:
		hi, lo, err := c.fixed(t.Size())
		if err != nil {
			return nil, err
		}
		return Uint{Bits: t.Size() * 8, Hi: hi, Lo: lo}, nil

	case format.KindI8, format.KindI16, format.KindI32, format.KindI64, format.KindIsize, format.KindI128:
		hi, lo, err := c.fixed(t.Size())
		if err != nil {
			return nil, err
		}
		return Int{Bits: t.Size() * 8, Hi: hi, Lo: lo}, nil

	case format.KindF32:
		b, err := c.take(4)
		if err != nil {
			return nil, err
		}
		return Float32(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil

	case format.KindF64:
		b, err := c.take(8)
		if err != nil {
			return nil, err
		}
		return Float64(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil

	case format.KindBool:
		b, err := c.take(1)
		if err != nil {
			return nil, err
		}
		switch b[0] {
		case 0:
			return Bool(false), nil
		case 1:
			return Bool(true), nil
		}
		return nil, c.malformed(t, start, "boolean byte must be 0 or 1")

	case format.KindChar:
		b, err := c.take(4)
		if err != nil {
			return nil, err
		}
		r := rune(binary.LittleEndian.Uint32(b))
		if !utf8.ValidRune(r) {
			return nil, c.malformed(t, start, "invalid Unicode scalar value")
		}
		return Char(r), nil

	case format.KindStr:
		b, err := c.length(t)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, c.malformed(t, start, "string is not valid UTF-8")
		}
		return Str(b), nil

	case format.KindIStr:
		idx, err := c.uleb(t)
		if err != nil {
			return nil, err
		}
		e, ok := c.table.Get(idx)
		if !ok {
			return nil, &table.UnknownIndexError{Index: idx}
		}
		if e.Kind != table.KindString {
			return nil, c.malformed(t, start, fmt.Sprintf("index %d is a %s entry, not an interned string", idx, e.Kind))
		}
		return Str(e.Format), nil

	case format.KindBytes:
		b, err := c.length(t)
		if err != nil {
			return nil, err
		}
		return Bytes(append([]byte(nil), b...)), nil

	case format.KindArray:
		b, err := c.take(t.Len)
		if err != nil {
			return nil, err
		}
		return Bytes(append([]byte(nil), b...)), nil

	case format.KindFormat:
		return c.nested(t, t.Target, start)

	case format.KindFormatDyn:
		idx, err := c.uleb(t)
		if err != nil {
			return nil, err
		}
		return c.nested(t, idx, start)

	case format.KindBitfield:
		width := format.BitfieldWidth(t.High)
		hi, lo, err := c.fixed(width)
		if err != nil {
			return nil, err
		}
		return Bitfield{Width: width, Hi: hi, Lo: lo}, nil
	}
	return nil, c.malformed(t, start, "unsupported type")
}

// fixed reads a little-endian integer of n bytes, n <= 16.
func (c *cursor) fixed(n int) (uint64, uint64, error) {
	b, err := c.take(n)
	if err != nil {
		return 0, 0, err
	}
	var buf [16]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[8:]), binary.LittleEndian.Uint64(buf[:8]), nil
}

func (c *cursor) nested(t format.Type, index uint64, start int) (Value, error) {
	if c.depth >= MaxNesting {
		return nil, c.malformed(t, start, "nested formats too deep")
	}
	f, err := c.table.Format(index)
	if err != nil {
		return nil, err
	}
	c.depth++
	args, err := c.args(f)
	c.depth--
	if err != nil {
		return nil, err
	}
	return Nested{Index: index, Args: args}, nil
}

// DecodeValue decodes a single value of type typ from the start of data and
// returns it with the number of bytes consumed. t resolves interned strings
// and nested formats.
func DecodeValue(t *table.Table, typ format.Type, data []byte) (Value, int, error) {
	c := &cursor{table: t, data: data}
	v, err := c.value(typ)
	if err != nil {
		return nil, 0, err
	}
	return v, c.pos, nil
}
