package table

import (
	"fmt"
	"strings"
)

// Level is the severity of a log statement. LevelNone marks entries that are
// only used as nested formatters, never as top-level log calls.
type Level int

const (
	LevelNone Level = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = []string{"", "TRACE", "DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelNone || int(l) >= len(levelNames) {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts level names in any case ("info", "WARN").
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if i > 0 && strings.EqualFold(name, s) {
			return Level(i), nil
		}
	}
	return LevelNone, fmt.Errorf("unknown log level %q (expected trace, debug, info, warn or error)", s)
}

// MarshalText implements encoding.TextMarshaler for JSON and YAML output.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(l.String())), nil
}

// Kind classifies what an entry is used for.
type Kind int

const (
	// KindLog is a top-level log statement with a level.
	KindLog Kind = iota
	// KindFormat is a format string used to render nested values.
	KindFormat
	// KindString is an interned string referenced by istr arguments.
	KindString
	// KindTimestamp is the firmware's timestamp format.
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindLog:
		return "log"
	case KindFormat:
		return "format"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Location is where a log statement was written. It is best effort: images
// without debug info have none.
type Location struct {
	File   string `json:"file" yaml:"file"`
	Line   uint64 `json:"line" yaml:"line"`
	Module string `json:"module" yaml:"module"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Entry is one format string compiled into firmware.
type Entry struct {
	Index uint64 `json:"index" yaml:"index"`

	// Format is the raw format string with literal text and directives.
	Format string `json:"format" yaml:"format"`

	Kind  Kind  `json:"kind" yaml:"kind"`
	Level Level `json:"level,omitempty" yaml:"level,omitempty"`

	Location *Location `json:"location,omitempty" yaml:"location,omitempty"`

	// CrateName is the originating compilation unit.
	CrateName string `json:"crate,omitempty" yaml:"crate,omitempty"`

	// Args is the argument type signature used by untyped directives.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`

	// Symbol is the raw symbol name the entry was recovered from.
	Symbol string `json:"-" yaml:"-"`
}

// HasLevel reports whether the entry is a top-level log statement.
func (e *Entry) HasLevel() bool {
	return e.Level != LevelNone
}
