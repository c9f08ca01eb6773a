package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Fragment is one parsed unit of a format string: a Literal or a *Directive.
type Fragment interface {
	isFragment()
}

// Literal is text copied verbatim into the rendered output.
type Literal string

func (Literal) isFragment() {}

// Directive is a typed placeholder bound to one argument slot.
type Directive struct {
	// Slot is the argument position the directive renders.
	Slot int

	// Type is the resolved on-wire type. For untyped directives it comes
	// from the entry's argument signature.
	Type Type

	// Explicit is true when the directive carried its own '=type'.
	Explicit bool

	Hint Hint
}

func (*Directive) isFragment() {}

// Arg describes one argument slot in decode order. Bitfield slots carry the
// merged range of every bitfield directive bound to them.
type Arg struct {
	Slot int
	Type Type
}

// Format is the parsed form of one format string.
type Format struct {
	Raw       string
	Fragments []Fragment
	Args      []Arg
}

// SyntaxError reports a malformed directive.
type SyntaxError struct {
	// Raw is the format string that failed to parse
	Raw string
	// Offset is the byte offset of the offending directive
	Offset int
	// Msg describes the problem
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("format %q: at offset %d: %s", e.Raw, e.Offset, e.Msg)
}

// Parse parses raw into fragments and resolves every argument slot. The
// signature supplies the types of untyped directives by slot.
func Parse(raw string, signature []string) (*Format, error) {
	p := &parser{raw: raw, signature: signature}
	if err := p.run(); err != nil {
		return nil, err
	}
	args, err := p.bind()
	if err != nil {
		return nil, err
	}
	return &Format{Raw: raw, Fragments: p.fragments, Args: args}, nil
}

// Nested returns the fixed nested-format targets referenced by f, in slot order.
func (f *Format) Nested() []uint64 {
	var targets []uint64
	for _, a := range f.Args {
		if a.Type.Kind == KindFormat {
			targets = append(targets, a.Type.Target)
		}
	}
	return targets
}

// Directives returns the directive fragments in text order.
func (f *Format) Directives() []*Directive {
	var out []*Directive
	for _, frag := range f.Fragments {
		if d, ok := frag.(*Directive); ok {
			out = append(out, d)
		}
	}
	return out
}

type parser struct {
	raw       string
	signature []string
	fragments []Fragment
	offsets   []int // text offset of each directive, parallel to directives
	literal   strings.Builder
	implicit  int
}

func (p *parser) fail(offset int, format string, args ...any) error {
	return &SyntaxError{Raw: p.raw, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) flushLiteral() {
	if p.literal.Len() > 0 {
		p.fragments = append(p.fragments, Literal(p.literal.String()))
		p.literal.Reset()
	}
}

func (p *parser) run() error {
	s := p.raw
	for i := 0; i < len(s); {
		switch c := s[i]; c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				p.literal.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				return p.fail(i, "unterminated directive")
			}
			body := s[i+1 : i+1+end]
			if strings.ContainsRune(body, '{') {
				return p.fail(i, "unterminated directive")
			}
			d, err := p.directive(body)
			if err != nil {
				return p.fail(i, "%v", err)
			}
			p.flushLiteral()
			p.fragments = append(p.fragments, d)
			p.offsets = append(p.offsets, i)
			i += end + 2
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				p.literal.WriteByte('}')
				i += 2
				continue
			}
			return p.fail(i, "unmatched '}'")
		default:
			p.literal.WriteByte(c)
			i++
		}
	}
	p.flushLiteral()
	return nil
}

// directive parses the text between the braces.
func (p *parser) directive(body string) (*Directive, error) {
	d := &Directive{}

	digits := 0
	for digits < len(body) && body[digits] >= '0' && body[digits] <= '9' {
		digits++
	}
	rest := body[digits:]
	if digits > 0 && (rest == "" || rest[0] == '=' || rest[0] == ':') {
		n, err := strconv.Atoi(body[:digits])
		if err != nil {
			return nil, fmt.Errorf("invalid argument position %q", body[:digits])
		}
		d.Slot = n
	} else if digits > 0 {
		return nil, fmt.Errorf("invalid directive %q", body)
	} else {
		d.Slot = p.implicit
		p.implicit++
	}

	if strings.HasPrefix(rest, "=") {
		typeText := rest[1:]
		hintText := ""
		if i := strings.IndexByte(typeText, ':'); i >= 0 {
			typeText, hintText = typeText[:i], typeText[i+1:]
			rest = ":" + hintText
		} else {
			rest = ""
		}
		t, err := ParseType(typeText)
		if err != nil {
			return nil, err
		}
		d.Type = t
		d.Explicit = true
	}

	if strings.HasPrefix(rest, ":") {
		h, err := ParseHint(rest[1:])
		if err != nil {
			return nil, err
		}
		d.Hint = h
	} else if rest != "" {
		return nil, fmt.Errorf("invalid directive %q", body)
	}

	return d, nil
}

// bind resolves untyped directives against the signature and merges
// directives sharing a slot into one Arg per slot.
func (p *parser) bind() ([]Arg, error) {
	slots := make(map[int]Type)
	var order []int

	i := 0
	for _, frag := range p.fragments {
		d, ok := frag.(*Directive)
		if !ok {
			continue
		}
		offset := p.offsets[i]
		i++

		if !d.Explicit {
			if d.Slot >= len(p.signature) {
				return nil, p.fail(offset, "untyped directive for argument %d has no type in the argument signature", d.Slot)
			}
			t, err := ParseType(p.signature[d.Slot])
			if err != nil {
				return nil, p.fail(offset, "argument signature: %v", err)
			}
			d.Type = t
		}

		if !hintApplies(d.Hint, d.Type) {
			return nil, p.fail(offset, "display hint %q does not apply to type %s", d.Hint, d.Type)
		}

		prev, seen := slots[d.Slot]
		if !seen {
			slots[d.Slot] = d.Type
			order = append(order, d.Slot)
			continue
		}
		merged, err := mergeSlot(prev, d.Type)
		if err != nil {
			return nil, p.fail(offset, "argument %d: %v", d.Slot, err)
		}
		slots[d.Slot] = merged
	}

	sort.Ints(order)
	args := make([]Arg, 0, len(order))
	for want, slot := range order {
		if slot != want {
			return nil, p.fail(0, "argument %d is never used", want)
		}
		args = append(args, Arg{Slot: slot, Type: slots[slot]})
	}
	return args, nil
}

func mergeSlot(a, b Type) (Type, error) {
	if a.Kind == KindBitfield && b.Kind == KindBitfield {
		if b.Low < a.Low {
			a.Low = b.Low
		}
		if b.High > a.High {
			a.High = b.High
		}
		return a, nil
	}
	if a != b {
		return Type{}, fmt.Errorf("conflicting types %s and %s", a, b)
	}
	return a, nil
}
