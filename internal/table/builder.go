package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/defmt-print/internal/logging"
	"github.com/muurk/defmt-print/internal/version"
	"go.uber.org/zap"
)

// SectionName is the ELF section holding defmt metadata symbols.
const SectionName = ".defmt"

// Symbol is one entry of the image's symbol table.
type Symbol struct {
	Name    string
	Value   uint64
	Section string // name of the section the symbol is defined in, "" if none
}

// Binary is read access to a compiled debug image.
type Binary interface {
	// Symbols enumerates every symbol in the image.
	Symbols() ([]Symbol, error)
	// SectionData returns the raw bytes of a named section, or
	// ErrSectionNotFound.
	SectionData(name string) ([]byte, error)
}

// LocationSource recovers source locations from debug info. live holds the
// names of symbols present in ".defmt"; debug info for symbols removed by
// the linker must be ignored.
type LocationSource interface {
	Locations(live map[string]bool) (map[uint64]Location, error)
}

// symbolMeta is the JSON symbol name layout.
type symbolMeta struct {
	Package       string   `json:"package"`
	Tag           string   `json:"tag"`
	Data          string   `json:"data"`
	Disambiguator string   `json:"disambiguator"`
	CrateName     string   `json:"crate_name"`
	Args          []string `json:"args"`
}

var tagLevels = map[string]Level{
	"defmt_trace": LevelTrace,
	"defmt_debug": LevelDebug,
	"defmt_info":  LevelInfo,
	"defmt_warn":  LevelWarn,
	"defmt_error": LevelError,
}

var tagKinds = map[string]Kind{
	"defmt_fmt":       KindFormat,
	"defmt_write":     KindFormat,
	"defmt_derived":   KindFormat,
	"defmt_prim":      KindFormat,
	"defmt_bitflags":  KindFormat,
	"defmt_str":       KindString,
	"defmt_timestamp": KindTimestamp,
}

// levelMarkers are the legacy range delimiters, by level.
var levelMarkers = []struct {
	level      Level
	start, end string
}{
	{LevelTrace, "_defmt_trace_start", "_defmt_trace_end"},
	{LevelDebug, "_defmt_debug_start", "_defmt_debug_end"},
	{LevelInfo, "_defmt_info_start", "_defmt_info_end"},
	{LevelWarn, "_defmt_warn_start", "_defmt_warn_end"},
	{LevelError, "_defmt_error_start", "_defmt_error_end"},
}

// Build reads defmt metadata from bin and returns a validated Table. It
// returns ErrNoDefmtData if the image has no ".defmt" section. Version
// incompatibility and duplicate indices abort the build; no partial table
// is ever returned.
func Build(bin Binary) (*Table, error) {
	return BuildWithVersion(bin, version.WireFormat)
}

// BuildWithVersion is Build with an explicit supported wire-format version.
func BuildWithVersion(bin Binary, supported string) (*Table, error) {
	data, err := bin.SectionData(SectionName)
	if errors.Is(err, ErrSectionNotFound) {
		return nil, ErrNoDefmtData
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s section: %w", SectionName, err)
	}
	logging.Debug("Found defmt section",
		zap.String("section", SectionName),
		zap.Int("size", len(data)),
	)

	symbols, err := bin.Symbols()
	if err != nil {
		return nil, fmt.Errorf("failed to read symbols: %w", err)
	}

	var marker string
	markers := make(map[string]uint64)
	var raw []Symbol
	for _, sym := range symbols {
		if v, ok := versionFromSymbol(sym.Name); ok {
			if marker != "" && marker != v {
				return nil, &BuildIncompatibleError{
					Found:     marker,
					Supported: supported,
					Reason:    fmt.Sprintf("multiple defmt versions in use: %s and %s (only one is supported)", marker, v),
				}
			}
			marker = v
			continue
		}
		if sym.Section != SectionName || sym.Name == "" {
			continue
		}
		if strings.HasPrefix(sym.Name, "_defmt_") && (strings.HasSuffix(sym.Name, "_start") || strings.HasSuffix(sym.Name, "_end")) {
			markers[sym.Name] = sym.Value
			continue
		}
		raw = append(raw, sym)
	}

	// Reject incompatible images before interpreting any entry.
	if err := CheckVersion(marker, supported); err != nil {
		return nil, err
	}

	ranges, err := legacyRanges(markers)
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(raw))
	live := make(map[string]bool, len(raw))
	for _, sym := range raw {
		e, err := entryFromSymbol(sym, ranges)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		live[sym.Name] = true
	}

	if src, ok := bin.(LocationSource); ok {
		if err := attachLocations(src, live, entries); err != nil {
			return nil, err
		}
	}

	t, err := New(entries, marker, supported)
	if err != nil {
		return nil, err
	}
	logging.LogTableBuilt(t.Len(), t.Version())
	return t, nil
}

type levelRange struct {
	level      Level
	start, end uint64
}

// legacyRanges pairs the _defmt_<level>_start/_end markers. Images using
// the JSON layout carry none; images using the legacy layout must carry all.
func legacyRanges(markers map[string]uint64) ([]levelRange, error) {
	if len(markers) == 0 {
		return nil, nil
	}
	ranges := make([]levelRange, 0, len(levelMarkers))
	for _, m := range levelMarkers {
		start, okStart := markers[m.start]
		end, okEnd := markers[m.end]
		if !okStart || !okEnd {
			return nil, fmt.Errorf("`_defmt_*` symbol not found: need %s and %s", m.start, m.end)
		}
		ranges = append(ranges, levelRange{level: m.level, start: start, end: end})
	}
	return ranges, nil
}

func entryFromSymbol(sym Symbol, ranges []levelRange) (*Entry, error) {
	e := &Entry{Index: sym.Value, Symbol: sym.Name}

	// A legacy format string may itself start with a brace, so only names
	// that decode to an object with a tag use the JSON layout.
	var meta symbolMeta
	if strings.HasPrefix(sym.Name, "{") && json.Unmarshal([]byte(sym.Name), &meta) == nil && meta.Tag != "" {
		e.Format = meta.Data
		e.Args = meta.Args
		e.CrateName = meta.CrateName
		if e.CrateName == "" {
			e.CrateName = meta.Package
		}
		if lvl, ok := tagLevels[meta.Tag]; ok {
			e.Kind = KindLog
			e.Level = lvl
		} else if kind, ok := tagKinds[meta.Tag]; ok {
			e.Kind = kind
		} else {
			return nil, &SymbolError{Symbol: sym.Name, Err: fmt.Errorf("unknown tag %q", meta.Tag)}
		}
		return e, nil
	}

	// Legacy layout: the symbol name is the format string itself.
	e.Format = sym.Name
	e.Kind = KindFormat
	for _, r := range ranges {
		if sym.Value >= r.start && sym.Value < r.end {
			e.Kind = KindLog
			e.Level = r.level
			break
		}
	}
	return e, nil
}

func attachLocations(src LocationSource, live map[string]bool, entries []*Entry) error {
	locs, err := src.Locations(live)
	if err != nil {
		return fmt.Errorf("failed to read source locations: %w", err)
	}
	for _, e := range entries {
		if loc, ok := locs[e.Index]; ok {
			loc := loc
			e.Location = &loc
		}
	}
	return nil
}

// LocationsComplete reports whether every log statement has a location.
// Partial location info is usually a sign of a toolchain bug; callers
// typically omit locations entirely in that case.
func (t *Table) LocationsComplete() bool {
	for _, e := range t.entries {
		if e.Kind == KindLog && e.Location == nil {
			return false
		}
	}
	return true
}
