package decoder

import (
	"math/big"
)

// Value is one decoded argument. The set of implementations is closed and
// mirrors format.Kind; type switches over Value are exhaustive.
type Value interface {
	isValue()
}

// Uint is an unsigned integer of up to 128 bits. Hi holds bits 64..127.
type Uint struct {
	Bits int
	Hi   uint64
	Lo   uint64
}

// Int is a two's complement signed integer of Bits width. Hi and Lo hold the
// raw bit pattern, masked to Bits.
type Int struct {
	Bits int
	Hi   uint64
	Lo   uint64
}

// Float32 is an IEEE 754 single precision value.
type Float32 float32

// Float64 is an IEEE 754 double precision value.
type Float64 float64

// Bool is a boolean encoded as a single 0 or 1 byte.
type Bool bool

// Char is a Unicode scalar value.
type Char rune

// Str is a UTF-8 string, either sent inline or resolved from an interned
// string index.
type Str string

// Bytes is a byte slice or fixed-size byte array.
type Bytes []byte

// Nested is a formatted value rendered with the format of table entry Index.
type Nested struct {
	Index uint64
	Args  []Value
}

// Bitfield is the backing integer shared by every bitfield directive bound
// to one argument slot. Width is in bytes.
type Bitfield struct {
	Width int
	Hi    uint64
	Lo    uint64
}

func (Uint) isValue()     {}
func (Int) isValue()      {}
func (Float32) isValue()  {}
func (Float64) isValue()  {}
func (Bool) isValue()     {}
func (Char) isValue()     {}
func (Str) isValue()      {}
func (Bytes) isValue()    {}
func (Nested) isValue()   {}
func (Bitfield) isValue() {}

// Extract returns bits low through high-1 of the backing integer.
func (b Bitfield) Extract(low, high uint) Uint {
	hi, lo := shr128(b.Hi, b.Lo, low)
	hi, lo = mask128(hi, lo, high-low)
	return Uint{Bits: b.Width * 8, Hi: hi, Lo: lo}
}

// Big returns the value as a big.Int.
func (u Uint) Big() *big.Int {
	return join128(u.Hi, u.Lo)
}

// Big returns the signed value as a big.Int.
func (i Int) Big() *big.Int {
	if i.Bits <= 64 {
		return big.NewInt(i.Int64())
	}
	v := join128(i.Hi, i.Lo)
	if i.Hi>>63 == 1 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	return v
}

// Int64 returns the sign-extended value of integers up to 64 bits wide.
// Wider values are truncated.
func (i Int) Int64() int64 {
	if i.Bits <= 0 || i.Bits >= 64 {
		return int64(i.Lo)
	}
	shift := uint(64 - i.Bits)
	return int64(i.Lo<<shift) >> shift
}

// Unsigned returns the raw bit pattern as an unsigned integer of the same
// width. Radix hints render signed values this way.
func (i Int) Unsigned() Uint {
	return Uint(i)
}

func join128(hi, lo uint64) *big.Int {
	v := new(big.Int).SetUint64(hi)
	v.Lsh(v, 64)
	return v.Or(v, new(big.Int).SetUint64(lo))
}

func shr128(hi, lo uint64, n uint) (uint64, uint64) {
	switch {
	case n == 0:
		return hi, lo
	case n >= 128:
		return 0, 0
	case n >= 64:
		return 0, hi >> (n - 64)
	default:
		return hi >> n, lo>>n | hi<<(64-n)
	}
}

// mask128 keeps the low bits bits.
func mask128(hi, lo uint64, bits uint) (uint64, uint64) {
	switch {
	case bits >= 128:
		return hi, lo
	case bits >= 64:
		return hi & (1<<(bits-64) - 1), lo
	default:
		return 0, lo & (1<<bits - 1)
	}
}

// Plain converts v into values that encoding/json and yaml.v3 marshal
// naturally. Integers wider than 64 bits become decimal strings.
func Plain(v Value) any {
	switch v := v.(type) {
	case Uint:
		if v.Hi != 0 {
			return v.Big().String()
		}
		return v.Lo
	case Int:
		if v.Bits > 64 {
			b := v.Big()
			if b.IsInt64() {
				return b.Int64()
			}
			return b.String()
		}
		return v.Int64()
	case Float32:
		return float32(v)
	case Float64:
		return float64(v)
	case Bool:
		return bool(v)
	case Char:
		return string(rune(v))
	case Str:
		return string(v)
	case Bytes:
		out := make([]int, len(v))
		for i, b := range v {
			out[i] = int(b)
		}
		return out
	case Nested:
		args := make([]any, len(v.Args))
		for i, a := range v.Args {
			args[i] = Plain(a)
		}
		return map[string]any{"index": v.Index, "args": args}
	case Bitfield:
		return Plain(Uint{Bits: v.Width * 8, Hi: v.Hi, Lo: v.Lo})
	}
	return nil
}
