package format

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies an on-wire argument type. The set is closed: it only grows
// with a wire-format version bump.
type Kind int

const (
	KindInvalid Kind = iota
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindUsize
	KindI8
	KindI16
	KindI32
	KindI64
	KindI128
	KindIsize
	KindF32
	KindF64
	KindBool
	KindChar
	KindStr
	KindIStr
	KindBytes
	KindArray
	KindFormat
	KindFormatDyn
	KindBitfield
)

// MaxBitfieldBit is the highest exclusive bit bound a bitfield may name.
const MaxBitfieldBit = 128

var kindNames = map[string]Kind{
	"u8":    KindU8,
	"u16":   KindU16,
	"u32":   KindU32,
	"u64":   KindU64,
	"u128":  KindU128,
	"usize": KindUsize,
	"i8":    KindI8,
	"i16":   KindI16,
	"i32":   KindI32,
	"i64":   KindI64,
	"i128":  KindI128,
	"isize": KindIsize,
	"f32":   KindF32,
	"f64":   KindF64,
	"bool":  KindBool,
	"char":  KindChar,
	"str":   KindStr,
	"istr":  KindIStr,
	"[u8]":  KindBytes,
	"?":     KindFormatDyn,
}

// Type is the fully resolved type of one argument slot.
type Type struct {
	Kind Kind

	// Len is the element count of a fixed [u8; N] array.
	Len int

	// Target is the table index a KindFormat value is rendered with.
	Target uint64

	// Low and High delimit a bitfield: bits Low through High-1.
	Low  uint
	High uint
}

// Size returns the fixed encoded size in bytes, or 0 for variable-width types.
func (t Type) Size() int {
	switch t.Kind {
	case KindU8, KindI8, KindBool:
		return 1
	case KindU16, KindI16:
		return 2
	case KindU32, KindI32, KindUsize, KindIsize, KindF32, KindChar:
		return 4
	case KindU64, KindI64, KindF64:
		return 8
	case KindU128, KindI128:
		return 16
	case KindArray:
		return t.Len
	case KindBitfield:
		return BitfieldWidth(t.High)
	default:
		return 0
	}
}

// IsInteger reports whether values of this type render as integers.
func (t Type) IsInteger() bool {
	switch t.Kind {
	case KindU8, KindU16, KindU32, KindU64, KindU128, KindUsize,
		KindI8, KindI16, KindI32, KindI64, KindI128, KindIsize, KindBitfield:
		return true
	}
	return false
}

// IsSigned reports whether the type is a two's complement integer.
func (t Type) IsSigned() bool {
	switch t.Kind {
	case KindI8, KindI16, KindI32, KindI64, KindI128, KindIsize:
		return true
	}
	return false
}

// IsFloat reports whether the type is f32 or f64.
func (t Type) IsFloat() bool {
	return t.Kind == KindF32 || t.Kind == KindF64
}

// IsNested reports whether the value is itself a formatted record.
func (t Type) IsNested() bool {
	return t.Kind == KindFormat || t.Kind == KindFormatDyn
}

// String returns the type in directive syntax.
func (t Type) String() string {
	switch t.Kind {
	case KindArray:
		return fmt.Sprintf("[u8; %d]", t.Len)
	case KindFormat:
		return fmt.Sprintf("fmt#%d", t.Target)
	case KindBitfield:
		return fmt.Sprintf("%d..%d", t.Low, t.High)
	}
	for name, k := range kindNames {
		if k == t.Kind {
			return name
		}
	}
	return "invalid"
}

// BitfieldWidth returns the backing integer width in bytes needed to hold
// bits below high.
func BitfieldWidth(high uint) int {
	switch {
	case high <= 8:
		return 1
	case high <= 16:
		return 2
	case high <= 32:
		return 4
	case high <= 64:
		return 8
	default:
		return 16
	}
}

// ParseType parses the text after '=' in a directive. It is also used for
// the entries of an argument signature.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if k, ok := kindNames[s]; ok {
		return Type{Kind: k}, nil
	}

	if strings.HasPrefix(s, "fmt#") {
		n, err := strconv.ParseUint(s[len("fmt#"):], 10, 64)
		if err != nil {
			return Type{}, fmt.Errorf("invalid nested format target %q", s)
		}
		return Type{Kind: KindFormat, Target: n}, nil
	}

	if strings.HasPrefix(s, "[u8;") && strings.HasSuffix(s, "]") {
		n, err := strconv.Atoi(strings.TrimSpace(s[len("[u8;") : len(s)-1]))
		if err != nil || n < 0 {
			return Type{}, fmt.Errorf("invalid array length in %q", s)
		}
		return Type{Kind: KindArray, Len: n}, nil
	}

	if lo, hi, ok := strings.Cut(s, ".."); ok {
		low, err := strconv.ParseUint(lo, 10, 8)
		if err != nil {
			return Type{}, fmt.Errorf("invalid bitfield start in %q", s)
		}
		high, err := strconv.ParseUint(hi, 10, 16)
		if err != nil {
			return Type{}, fmt.Errorf("invalid bitfield end in %q", s)
		}
		if high <= low {
			return Type{}, fmt.Errorf("bitfield range %q is empty (end must be greater than start)", s)
		}
		if high > MaxBitfieldBit {
			return Type{}, fmt.Errorf("bitfield range %q exceeds %d bits", s, MaxBitfieldBit)
		}
		return Type{Kind: KindBitfield, Low: uint(low), High: uint(high)}, nil
	}

	return Type{}, fmt.Errorf("unknown type %q", s)
}

// Hint controls only how a value is rendered, never how many bytes it uses.
type Hint int

const (
	HintNone Hint = iota
	HintHex
	HintUpperHex
	HintHexAlt
	HintUpperHexAlt
	HintBinary
	HintBinaryAlt
	HintOctal
	HintExp
	HintASCII
	HintDebug
	HintMicros
	HintMillis
)

var hintNames = map[string]Hint{
	"x":  HintHex,
	"X":  HintUpperHex,
	"#x": HintHexAlt,
	"#X": HintUpperHexAlt,
	"b":  HintBinary,
	"#b": HintBinaryAlt,
	"o":  HintOctal,
	"e":  HintExp,
	"a":  HintASCII,
	"?":  HintDebug,
	"us": HintMicros,
	"ms": HintMillis,
}

// ParseHint parses the text after ':' in a directive.
func ParseHint(s string) (Hint, error) {
	h, ok := hintNames[s]
	if !ok {
		return HintNone, fmt.Errorf("unknown display hint %q", s)
	}
	return h, nil
}

// IsRadix reports whether the hint selects an integer radix.
func (h Hint) IsRadix() bool {
	switch h {
	case HintHex, HintUpperHex, HintHexAlt, HintUpperHexAlt, HintBinary, HintBinaryAlt, HintOctal:
		return true
	}
	return false
}

func (h Hint) String() string {
	for name, v := range hintNames {
		if v == h {
			return name
		}
	}
	return ""
}

// hintApplies reports whether hint h can render a value of type t.
func hintApplies(h Hint, t Type) bool {
	switch {
	case h == HintNone, h == HintDebug:
		return true
	case h.IsRadix():
		return t.IsInteger() || t.Kind == KindBytes || t.Kind == KindArray
	case h == HintExp:
		return t.IsFloat()
	case h == HintASCII:
		return t.Kind == KindBytes || t.Kind == KindArray
	case h == HintMicros, h == HintMillis:
		return t.IsInteger() || t.IsFloat()
	}
	return false
}
