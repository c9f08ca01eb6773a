package table

import (
	"fmt"
	"sort"
	"sync"

	"github.com/muurk/defmt-print/internal/format"
)

// Table maps wire indices to entries. It is immutable after construction.
type Table struct {
	entries   map[uint64]*Entry
	timestamp *Entry
	version   string

	mu    sync.Mutex
	cache map[uint64]*cachedFormat
}

type cachedFormat struct {
	once sync.Once
	f    *format.Format
	err  error
}

// New validates entries and builds a Table. Entry indices must be unique and
// at most one entry may be the timestamp format. The version marker is
// checked against the decoder's supported wire format.
func New(entries []*Entry, versionMarker, supported string) (*Table, error) {
	if err := CheckVersion(versionMarker, supported); err != nil {
		return nil, err
	}

	t := &Table{
		entries: make(map[uint64]*Entry, len(entries)),
		version: versionMarker,
		cache:   make(map[uint64]*cachedFormat),
	}
	for _, e := range entries {
		if prev, ok := t.entries[e.Index]; ok {
			return nil, &DuplicateIndexError{Index: e.Index, First: prev.Format, Second: e.Format}
		}
		t.entries[e.Index] = e

		if e.Kind == KindTimestamp {
			if t.timestamp != nil {
				return nil, fmt.Errorf("multiple timestamp formats: %q (index %d) and %q (index %d)",
					t.timestamp.Format, t.timestamp.Index, e.Format, e.Index)
			}
			t.timestamp = e
		}
	}
	return t, nil
}

// Get returns the entry for index.
func (t *Table) Get(index uint64) (*Entry, bool) {
	e, ok := t.entries[index]
	return e, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Version returns the wire-format marker recovered from the image.
func (t *Table) Version() string {
	return t.version
}

// Timestamp returns the timestamp format entry, or nil if the firmware
// declares none.
func (t *Table) Timestamp() *Entry {
	return t.timestamp
}

// Indices returns all indices in ascending order.
func (t *Table) Indices() []uint64 {
	indices := make([]uint64, 0, len(t.entries))
	for idx := range t.entries {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}

// Entries returns all entries ordered by index.
func (t *Table) Entries() []*Entry {
	out := make([]*Entry, 0, len(t.entries))
	for _, idx := range t.Indices() {
		out = append(out, t.entries[idx])
	}
	return out
}

// Format returns the parsed format of the entry at index. The result is
// computed once per Table and shared by all callers. Unknown indices yield
// *UnknownIndexError; invalid grammar and cyclic nesting yield
// *MalformedDirectiveError.
func (t *Table) Format(index uint64) (*format.Format, error) {
	if _, ok := t.entries[index]; !ok {
		return nil, &UnknownIndexError{Index: index}
	}

	t.mu.Lock()
	c, ok := t.cache[index]
	if !ok {
		c = &cachedFormat{}
		t.cache[index] = c
	}
	t.mu.Unlock()

	c.once.Do(func() {
		c.f, c.err = t.compile(index)
	})
	return c.f, c.err
}

// compile parses an entry and verifies that following its fixed nested
// references never leads back to an entry already on the path.
func (t *Table) compile(index uint64) (*format.Format, error) {
	e := t.entries[index]
	f, err := format.Parse(e.Format, e.Args)
	if err != nil {
		return nil, &MalformedDirectiveError{Index: index, Format: e.Format, Err: err}
	}
	if err := t.checkNesting(f, []uint64{index}); err != nil {
		return nil, &MalformedDirectiveError{Index: index, Format: e.Format, Err: err}
	}
	return f, nil
}

func (t *Table) checkNesting(f *format.Format, path []uint64) error {
	for _, target := range f.Nested() {
		for _, seen := range path {
			if seen == target {
				return fmt.Errorf("cyclic nested format: %v -> %d", path, target)
			}
		}
		e, ok := t.entries[target]
		if !ok {
			return fmt.Errorf("nested format refers to %w", &UnknownIndexError{Index: target})
		}
		nested, err := format.Parse(e.Format, e.Args)
		if err != nil {
			return fmt.Errorf("nested format %d: %w", target, err)
		}
		if err := t.checkNesting(nested, append(path[:len(path):len(path)], target)); err != nil {
			return err
		}
	}
	return nil
}
