package table

import (
	"errors"
	"fmt"
)

// ErrNoDefmtData is returned by Build when the image has no ".defmt" section.
var ErrNoDefmtData = errors.New(".defmt data not found")

// ErrSectionNotFound is returned by Binary.SectionData for missing sections.
var ErrSectionNotFound = errors.New("section not found")

// BuildIncompatibleError means the image was built for a wire format this
// decoder cannot read. Decoding such an image would silently misread widths.
type BuildIncompatibleError struct {
	// Found is the version marker embedded in the image ("" when missing)
	Found string
	// Supported is the decoder's wire-format version
	Supported string
	// Reason explains which compatibility rule failed
	Reason string
	// Underlying error if any
	Err error
}

func (e *BuildIncompatibleError) Error() string {
	found := e.Found
	if found == "" {
		found = "(none)"
	}
	msg := fmt.Sprintf("incompatible defmt wire format: firmware uses %s, decoder supports %s: %s",
		found, e.Supported, e.Reason)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *BuildIncompatibleError) Unwrap() error {
	return e.Err
}

// DuplicateIndexError means two metadata entries claim the same index.
type DuplicateIndexError struct {
	Index  uint64
	First  string
	Second string
}

func (e *DuplicateIndexError) Error() string {
	return fmt.Sprintf("duplicate table index %d: %q and %q", e.Index, e.First, e.Second)
}

// UnknownIndexError means an index has no table entry. On the wire this
// indicates stream corruption or a firmware/table mismatch.
type UnknownIndexError struct {
	Index uint64
}

func (e *UnknownIndexError) Error() string {
	return fmt.Sprintf("unknown table index %d", e.Index)
}

// MalformedDirectiveError means an entry's format string is invalid. It is
// reported the first time the entry is used.
type MalformedDirectiveError struct {
	Index  uint64
	Format string
	// Underlying error, usually a *format.SyntaxError
	Err error
}

func (e *MalformedDirectiveError) Error() string {
	return fmt.Sprintf("malformed format string at index %d: %v", e.Index, e.Err)
}

func (e *MalformedDirectiveError) Unwrap() error {
	return e.Err
}

// SymbolError reports a metadata symbol that could not be interpreted.
type SymbolError struct {
	Symbol string
	Err    error
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("invalid defmt symbol %q: %v", e.Symbol, e.Err)
}

func (e *SymbolError) Unwrap() error {
	return e.Err
}
