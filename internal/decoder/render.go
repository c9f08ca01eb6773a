package decoder

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/muurk/defmt-print/internal/format"
	"github.com/muurk/defmt-print/internal/table"
)

// Render produces the text of format f with args bound by slot. Nested values
// are expanded with their own formats from t. Render never modifies its
// inputs and can be called any number of times on the same frame.
func Render(t *table.Table, f *format.Format, args []Value) (string, error) {
	var b strings.Builder
	if err := render(&b, t, f, args, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func render(b *strings.Builder, t *table.Table, f *format.Format, args []Value, depth int) error {
	for _, frag := range f.Fragments {
		switch frag := frag.(type) {
		case format.Literal:
			b.WriteString(string(frag))
		case *format.Directive:
			if frag.Slot >= len(args) {
				return fmt.Errorf("format %q: argument %d missing", f.Raw, frag.Slot)
			}
			if err := renderValue(b, t, frag, args[frag.Slot], depth); err != nil {
				return err
			}
		}
	}
	return nil
}

func renderValue(b *strings.Builder, t *table.Table, d *format.Directive, v Value, depth int) error {
	switch v := v.(type) {
	case Uint:
		b.WriteString(formatUint(v, d.Hint))
	case Int:
		b.WriteString(formatInt(v, d.Hint))
	case Float32:
		b.WriteString(formatFloat(float64(v), 32, d.Hint))
	case Float64:
		b.WriteString(formatFloat(float64(v), 64, d.Hint))
	case Bool:
		b.WriteString(strconv.FormatBool(bool(v)))
	case Char:
		if d.Hint == format.HintDebug {
			b.WriteString(strconv.QuoteRune(rune(v)))
		} else {
			b.WriteRune(rune(v))
		}
	case Str:
		if d.Hint == format.HintDebug {
			b.WriteString(strconv.Quote(string(v)))
		} else {
			b.WriteString(string(v))
		}
	case Bytes:
		b.WriteString(formatBytes(v, d.Hint))
	case Bitfield:
		b.WriteString(formatUint(v.Extract(d.Type.Low, d.Type.High), d.Hint))
	case Nested:
		if depth >= MaxNesting {
			return fmt.Errorf("nested formats too deep at index %d", v.Index)
		}
		f, err := t.Format(v.Index)
		if err != nil {
			return err
		}
		return render(b, t, f, v.Args, depth+1)
	default:
		return fmt.Errorf("cannot render %T", v)
	}
	return nil
}

func formatUint(v Uint, hint format.Hint) string {
	if hint == format.HintMicros || hint == format.HintMillis {
		return formatTicks(v.Big(), hint)
	}
	base, prefix, upper := radix(hint)
	var s string
	if v.Hi == 0 {
		s = strconv.FormatUint(v.Lo, base)
	} else {
		s = v.Big().Text(base)
	}
	if upper {
		s = strings.ToUpper(s)
	}
	return prefix + s
}

func formatInt(v Int, hint format.Hint) string {
	if hint.IsRadix() {
		return formatUint(v.Unsigned(), hint)
	}
	if hint == format.HintMicros || hint == format.HintMillis {
		return formatTicks(v.Big(), hint)
	}
	if v.Bits <= 64 {
		return strconv.FormatInt(v.Int64(), 10)
	}
	return v.Big().String()
}

// radix maps a display hint to a base and prefix. Non-radix hints are decimal.
func radix(hint format.Hint) (base int, prefix string, upper bool) {
	switch hint {
	case format.HintHex:
		return 16, "", false
	case format.HintUpperHex:
		return 16, "", true
	case format.HintHexAlt:
		return 16, "0x", false
	case format.HintUpperHexAlt:
		return 16, "0x", true
	case format.HintBinary:
		return 2, "", false
	case format.HintBinaryAlt:
		return 2, "0b", false
	case format.HintOctal:
		return 8, "", false
	}
	return 10, "", false
}

// formatTicks renders a count of microseconds or milliseconds as seconds.
func formatTicks(v *big.Int, hint format.Hint) string {
	scale, digits := int64(1_000_000), 6
	if hint == format.HintMillis {
		scale, digits = 1_000, 3
	}
	sign := ""
	if v.Sign() < 0 {
		sign = "-"
		v = new(big.Int).Neg(v)
	}
	secs, frac := new(big.Int).QuoRem(v, big.NewInt(scale), new(big.Int))
	return fmt.Sprintf("%s%s.%0*d", sign, secs.String(), digits, frac.Int64())
}

func formatFloat(f float64, bits int, hint format.Hint) string {
	switch hint {
	case format.HintExp:
		s := strconv.FormatFloat(f, 'e', -1, bits)
		mant, exp, ok := strings.Cut(s, "e")
		if !ok {
			return s
		}
		neg := strings.HasPrefix(exp, "-")
		exp = strings.TrimLeft(exp, "+-")
		exp = strings.TrimLeft(exp, "0")
		if exp == "" {
			exp = "0"
		}
		if neg {
			exp = "-" + exp
		}
		return mant + "e" + exp
	case format.HintMicros:
		return strconv.FormatFloat(f/1e6, 'f', 6, bits)
	case format.HintMillis:
		return strconv.FormatFloat(f/1e3, 'f', 3, bits)
	}
	s := strconv.FormatFloat(f, 'f', -1, bits)
	if hint == format.HintDebug && !strings.ContainsAny(s, ".IN") {
		s += ".0"
	}
	return s
}

func formatBytes(v Bytes, hint format.Hint) string {
	if hint == format.HintASCII {
		return asciiBytes(v)
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, c := range v {
		if i > 0 {
			b.WriteString(", ")
		}
		switch hint {
		case format.HintHex, format.HintHexAlt:
			fmt.Fprintf(&b, "0x%02x", c)
		case format.HintUpperHex, format.HintUpperHexAlt:
			fmt.Fprintf(&b, "0x%02X", c)
		case format.HintBinary, format.HintBinaryAlt:
			fmt.Fprintf(&b, "0b%08b", c)
		case format.HintOctal:
			fmt.Fprintf(&b, "0o%03o", c)
		default:
			b.WriteString(strconv.Itoa(int(c)))
		}
	}
	b.WriteByte(']')
	return b.String()
}

// asciiBytes renders a byte string literal, escaping non-printable bytes.
func asciiBytes(v Bytes) string {
	var b strings.Builder
	b.WriteString(`b"`)
	for _, c := range v {
		switch {
		case c == '"':
			b.WriteString(`\"`)
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == 0:
			b.WriteString(`\0`)
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, `\x%02x`, c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
