// Package elfbin reads defmt metadata from ELF firmware images.
//
// File implements table.Binary over the ELF symbol table and section
// headers, and table.LocationSource over the DWARF debug info. Images built
// without debug info still produce a table; they just have no locations.
package elfbin

import (
	"debug/dwarf"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/muurk/defmt-print/internal/logging"
	"github.com/muurk/defmt-print/internal/table"
	"go.uber.org/zap"
)

// logStatementVar is the name of the DWARF variable emitted for every log
// statement.
const logStatementVar = "DEFMT_LOG_STATEMENT"

// dwOpAddr is the DWARF expression opcode pushing a target address.
const dwOpAddr = 0x03

// File is an opened ELF image.
type File struct {
	elf    *elf.File
	closer io.Closer
}

// Open opens the ELF file at name.
func Open(name string) (*File, error) {
	f, err := elf.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file %s: %w", name, err)
	}
	return &File{elf: f, closer: f}, nil
}

// NewFile reads an ELF image from r. The caller keeps ownership of r.
func NewFile(r io.ReaderAt) (*File, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF image: %w", err)
	}
	return &File{elf: f}, nil
}

// Close releases the underlying file, if File opened it.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Symbols returns every symbol in the static symbol table, tagged with the
// name of its defining section.
func (f *File) Symbols() ([]table.Symbol, error) {
	syms, err := f.elf.Symbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ELF symbols: %w", err)
	}

	out := make([]table.Symbol, 0, len(syms))
	for _, s := range syms {
		sym := table.Symbol{Name: s.Name, Value: s.Value}
		if s.Section != elf.SHN_UNDEF && int(s.Section) < len(f.elf.Sections) {
			sym.Section = f.elf.Sections[s.Section].Name
		}
		out = append(out, sym)
	}
	return out, nil
}

// SectionData returns the contents of the named section.
func (f *File) SectionData(name string) ([]byte, error) {
	s := f.elf.Section(name)
	if s == nil {
		return nil, table.ErrSectionNotFound
	}
	if s.Type == elf.SHT_NOBITS {
		return nil, nil
	}
	data, err := s.Data()
	if err != nil {
		return nil, fmt.Errorf("failed to read section %s: %w", name, err)
	}
	return data, nil
}

// Locations walks the DWARF info for DEFMT_LOG_STATEMENT variables and
// returns their source locations keyed by table index. Variables whose
// linkage name is not in live were dropped by the linker and are ignored.
// Images without DWARF yield an empty map.
func (f *File) Locations(live map[string]bool) (map[uint64]table.Location, error) {
	locs := make(map[uint64]table.Location)

	d, err := f.elf.DWARF()
	if err != nil {
		logging.Debug("No DWARF info, source locations unavailable", zap.Error(err))
		return locs, nil
	}

	addrSize := 8
	if f.elf.Class == elf.ELFCLASS32 {
		addrSize = 4
	}

	w := &locationWalker{
		dwarf:    d,
		order:    f.elf.ByteOrder,
		addrSize: addrSize,
		live:     live,
		locs:     locs,
	}
	if err := w.walk(); err != nil {
		return nil, err
	}
	logging.Debug("Recovered source locations", zap.Int("count", len(locs)))
	return locs, nil
}

type namespace struct {
	depth int
	name  string
}

type locationWalker struct {
	dwarf    *dwarf.Data
	order    binary.ByteOrder
	addrSize int
	live     map[string]bool
	locs     map[uint64]table.Location

	files      []*dwarf.LineFile
	compDir    string
	depth      int
	namespaces []namespace
}

func (w *locationWalker) walk() error {
	r := w.dwarf.Reader()
	for {
		e, err := r.Next()
		if err != nil {
			return fmt.Errorf("failed to read DWARF entry: %w", err)
		}
		if e == nil {
			return nil
		}

		if e.Tag == 0 {
			w.depth--
			continue
		}

		for len(w.namespaces) > 0 && w.namespaces[len(w.namespaces)-1].depth >= w.depth {
			w.namespaces = w.namespaces[:len(w.namespaces)-1]
		}

		switch e.Tag {
		case dwarf.TagCompileUnit:
			if err := w.enterUnit(e); err != nil {
				return err
			}
		case dwarf.TagNamespace:
			if name, ok := e.Val(dwarf.AttrName).(string); ok {
				w.namespaces = append(w.namespaces, namespace{depth: w.depth, name: name})
			}
		case dwarf.TagVariable:
			if err := w.variable(e); err != nil {
				return err
			}
		}

		if e.Children {
			w.depth++
		}
	}
}

func (w *locationWalker) enterUnit(cu *dwarf.Entry) error {
	w.depth = 0
	w.namespaces = w.namespaces[:0]
	w.files = nil
	w.compDir, _ = cu.Val(dwarf.AttrCompDir).(string)

	lr, err := w.dwarf.LineReader(cu)
	if err != nil {
		return fmt.Errorf("failed to read DWARF line table: %w", err)
	}
	if lr != nil {
		w.files = lr.Files()
	}
	return nil
}

func (w *locationWalker) variable(e *dwarf.Entry) error {
	name, _ := e.Val(dwarf.AttrName).(string)
	if name != logStatementVar {
		return nil
	}
	linkage, ok := e.Val(dwarf.AttrLinkageName).(string)
	if !ok {
		return nil
	}
	fileIndex, okFile := e.Val(dwarf.AttrDeclFile).(int64)
	line, okLine := e.Val(dwarf.AttrDeclLine).(int64)
	expr, okLoc := e.Val(dwarf.AttrLocation).([]byte)
	if !okFile || !okLine || !okLoc {
		return nil
	}

	symbol, _, _ := strings.Cut(linkage, "@")
	if !w.live[symbol] {
		logging.Debug("Skipping log statement removed by the linker", zap.String("symbol", symbol))
		return nil
	}

	addr, err := w.address(expr)
	if err != nil {
		return fmt.Errorf("log statement %s: %w", symbol, err)
	}
	file, err := w.file(fileIndex)
	if err != nil {
		return fmt.Errorf("log statement %s: %w", symbol, err)
	}

	modules := make([]string, len(w.namespaces))
	for i, ns := range w.namespaces {
		modules[i] = ns.name
	}
	loc := table.Location{File: file, Line: uint64(line), Module: strings.Join(modules, "::")}

	if old, ok := w.locs[addr]; ok {
		return fmt.Errorf("two log statements claim index %#x: %s and %s", addr, old, loc)
	}
	w.locs[addr] = loc
	return nil
}

// address evaluates a location expression consisting of DW_OP_addr.
func (w *locationWalker) address(expr []byte) (uint64, error) {
	if len(expr) < 1+w.addrSize || expr[0] != dwOpAddr {
		return 0, fmt.Errorf("location expression % x is not DW_OP_addr", expr)
	}
	operand := expr[1 : 1+w.addrSize]
	if w.addrSize == 4 {
		return uint64(w.order.Uint32(operand)), nil
	}
	return w.order.Uint64(operand), nil
}

func (w *locationWalker) file(index int64) (string, error) {
	if index < 0 || int(index) >= len(w.files) || w.files[index] == nil {
		return "", fmt.Errorf("no file entry for index %d", index)
	}
	name := w.files[index].Name
	if !path.IsAbs(name) && w.compDir != "" {
		name = path.Join(w.compDir, name)
	}
	return name, nil
}
