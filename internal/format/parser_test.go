package format

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		signature []string
		want      []Fragment
		wantArgs  []Arg
	}{
		{
			name: "literal only",
			raw:  "hello world",
			want: []Fragment{Literal("hello world")},
		},
		{
			name: "typed directives",
			raw:  "x={=u8} y={=i16:x}",
			want: []Fragment{
				Literal("x="),
				&Directive{Slot: 0, Type: Type{Kind: KindU8}, Explicit: true},
				Literal(" y="),
				&Directive{Slot: 1, Type: Type{Kind: KindI16}, Explicit: true, Hint: HintHex},
			},
			wantArgs: []Arg{
				{Slot: 0, Type: Type{Kind: KindU8}},
				{Slot: 1, Type: Type{Kind: KindI16}},
			},
		},
		{
			name:      "untyped directives take the signature",
			raw:       "{} items, {}",
			signature: []string{"u8", "fmt#1"},
			want: []Fragment{
				&Directive{Slot: 0, Type: Type{Kind: KindU8}},
				Literal(" items, "),
				&Directive{Slot: 1, Type: Type{Kind: KindFormat, Target: 1}},
			},
			wantArgs: []Arg{
				{Slot: 0, Type: Type{Kind: KindU8}},
				{Slot: 1, Type: Type{Kind: KindFormat, Target: 1}},
			},
		},
		{
			name: "bitfields share a slot",
			raw:  "{0=0..4} {0=4..8}",
			want: []Fragment{
				&Directive{Slot: 0, Type: Type{Kind: KindBitfield, Low: 0, High: 4}, Explicit: true},
				Literal(" "),
				&Directive{Slot: 0, Type: Type{Kind: KindBitfield, Low: 4, High: 8}, Explicit: true},
			},
			wantArgs: []Arg{
				{Slot: 0, Type: Type{Kind: KindBitfield, Low: 0, High: 8}},
			},
		},
		{
			name: "explicit positions do not advance implicit counter",
			raw:  "{1=str} {=u32} {0=u32:#x}",
			want: []Fragment{
				&Directive{Slot: 1, Type: Type{Kind: KindStr}, Explicit: true},
				Literal(" "),
				&Directive{Slot: 0, Type: Type{Kind: KindU32}, Explicit: true},
				Literal(" "),
				&Directive{Slot: 0, Type: Type{Kind: KindU32}, Explicit: true, Hint: HintHexAlt},
			},
			wantArgs: []Arg{
				{Slot: 0, Type: Type{Kind: KindU32}},
				{Slot: 1, Type: Type{Kind: KindStr}},
			},
		},
		{
			name: "escaped braces",
			raw:  "{{literal}} {=bool}",
			want: []Fragment{
				Literal("{literal} "),
				&Directive{Slot: 0, Type: Type{Kind: KindBool}, Explicit: true},
			},
			wantArgs: []Arg{{Slot: 0, Type: Type{Kind: KindBool}}},
		},
		{
			name: "slices arrays and nested",
			raw:  "{=[u8]:a} {=[u8; 4]:x} {=?} {=istr}",
			want: []Fragment{
				&Directive{Slot: 0, Type: Type{Kind: KindBytes}, Explicit: true, Hint: HintASCII},
				Literal(" "),
				&Directive{Slot: 1, Type: Type{Kind: KindArray, Len: 4}, Explicit: true, Hint: HintHex},
				Literal(" "),
				&Directive{Slot: 2, Type: Type{Kind: KindFormatDyn}, Explicit: true},
				Literal(" "),
				&Directive{Slot: 3, Type: Type{Kind: KindIStr}, Explicit: true},
			},
			wantArgs: []Arg{
				{Slot: 0, Type: Type{Kind: KindBytes}},
				{Slot: 1, Type: Type{Kind: KindArray, Len: 4}},
				{Slot: 2, Type: Type{Kind: KindFormatDyn}},
				{Slot: 3, Type: Type{Kind: KindIStr}},
			},
		},
		{
			name: "exponential float and timestamp hint",
			raw:  "{=f64:e} {=u64:us}",
			want: []Fragment{
				&Directive{Slot: 0, Type: Type{Kind: KindF64}, Explicit: true, Hint: HintExp},
				Literal(" "),
				&Directive{Slot: 1, Type: Type{Kind: KindU64}, Explicit: true, Hint: HintMicros},
			},
			wantArgs: []Arg{
				{Slot: 0, Type: Type{Kind: KindF64}},
				{Slot: 1, Type: Type{Kind: KindU64}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(tt.raw, tt.signature)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.raw, err)
			}
			if diff := cmp.Diff(tt.want, f.Fragments); diff != "" {
				t.Errorf("fragments mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantArgs, f.Args, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		signature []string
	}{
		{name: "unterminated directive", raw: "value {=u8"},
		{name: "unmatched close brace", raw: "value }"},
		{name: "unknown type", raw: "{=u7}"},
		{name: "unknown hint", raw: "{=u8:z}"},
		{name: "empty bitfield range", raw: "{=4..4}"},
		{name: "reversed bitfield range", raw: "{=7..3}"},
		{name: "bitfield beyond 128 bits", raw: "{=120..129}"},
		{name: "untyped without signature", raw: "{}"},
		{name: "untyped beyond signature", raw: "{} {}", signature: []string{"u8"}},
		{name: "bad signature entry", raw: "{}", signature: []string{"u9"}},
		{name: "conflicting slot types", raw: "{0=u8} {0=u16}"},
		{name: "bitfield mixed with integer", raw: "{0=0..4} {0=u8}"},
		{name: "gap in argument slots", raw: "{1=u8}"},
		{name: "hint not applicable", raw: "{=str:e}"},
		{name: "garbage in directive", raw: "{name}"},
		{name: "bad nested target", raw: "{=fmt#x}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw, tt.signature)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", tt.raw)
			}
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Errorf("Parse(%q) error type = %T, want *SyntaxError", tt.raw, err)
			}
		})
	}
}

func TestParseDeterministic(t *testing.T) {
	raw := "{=u8} and {0=u8:x} then {=fmt#3} {=0..3}"
	a, err := Parse(raw, nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	b, err := Parse(raw, nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("two parses differ:\n%s", diff)
	}
}

func TestFormatNested(t *testing.T) {
	f, err := Parse("{=fmt#4} {=?} {=fmt#9}", nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff([]uint64{4, 9}, f.Nested()); diff != "" {
		t.Errorf("Nested() mismatch (-want +got):\n%s", diff)
	}
}

func TestBitfieldWidth(t *testing.T) {
	tests := []struct {
		high uint
		want int
	}{
		{4, 1}, {8, 1}, {9, 2}, {16, 2}, {17, 4}, {32, 4}, {33, 8}, {64, 8}, {65, 16}, {128, 16},
	}
	for _, tt := range tests {
		if got := BitfieldWidth(tt.high); got != tt.want {
			t.Errorf("BitfieldWidth(%d) = %d, want %d", tt.high, got, tt.want)
		}
	}
}

func TestTypeSize(t *testing.T) {
	tests := []struct {
		typ  string
		want int
	}{
		{"u8", 1}, {"i16", 2}, {"u32", 4}, {"usize", 4}, {"f32", 4}, {"char", 4},
		{"u64", 8}, {"f64", 8}, {"i128", 16}, {"bool", 1}, {"[u8; 6]", 6},
		{"str", 0}, {"[u8]", 0}, {"?", 0}, {"3..12", 2},
	}
	for _, tt := range tests {
		typ, err := ParseType(tt.typ)
		if err != nil {
			t.Fatalf("ParseType(%q) error = %v", tt.typ, err)
		}
		if got := typ.Size(); got != tt.want {
			t.Errorf("ParseType(%q).Size() = %d, want %d", tt.typ, got, tt.want)
		}
	}
}
