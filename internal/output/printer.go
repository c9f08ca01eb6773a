package output

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/muurk/defmt-print/internal/decoder"
	"github.com/muurk/defmt-print/internal/table"
	"github.com/muurk/defmt-print/internal/ui"
)

// Format selects the printer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q (expected text or json)", s)
}

// Printer writes decoded frames somewhere.
type Printer interface {
	// Print writes one frame. source names the stream it came from and may
	// be empty when there is only one.
	Print(source string, f *decoder.Frame) error
}

// Options configure a printer.
type Options struct {
	Format Format
	Color  ui.ColorMode
	// ShowLocation prints the source location of each log statement
	ShowLocation bool
	// BaseDir is stripped from location paths when they are below it
	BaseDir string
	Filter  *Filter
}

// New creates the printer selected by opts.Format.
func New(w io.Writer, opts Options) (Printer, error) {
	switch opts.Format {
	case FormatText, "":
		return NewTextPrinter(w, opts), nil
	case FormatJSON:
		return NewJSONPrinter(w, opts), nil
	}
	return nil, fmt.Errorf("unknown output format %q", opts.Format)
}

// RelativePath strips base from path when path lies below it, and returns
// path unchanged otherwise.
func RelativePath(path, base string) string {
	if base == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

// TextPrinter prints frames for people, one line per frame plus an optional
// location line.
type TextPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	styles *ui.Styles
	opts   Options
}

// NewTextPrinter returns a Printer that writes styled text to w.
func NewTextPrinter(w io.Writer, opts Options) *TextPrinter {
	return &TextPrinter{w: w, styles: ui.NewStyles(w, opts.Color), opts: opts}
}

func (p *TextPrinter) Print(source string, f *decoder.Frame) error {
	if !p.opts.Filter.Allow(f) {
		return nil
	}

	var b strings.Builder
	if f.Timestamp != nil {
		b.WriteString(p.styles.Timestamp.Render(f.Timestamp.Display))
		b.WriteByte(' ')
	}
	if f.Level != table.LevelNone {
		b.WriteString(p.styles.Level(f.Level))
		b.WriteByte(' ')
	}
	if source != "" {
		b.WriteString(p.styles.Source.Render("[" + source + "]"))
		b.WriteByte(' ')
	}
	b.WriteString(f.Message)
	b.WriteByte('\n')

	if p.opts.ShowLocation && f.Location != nil {
		loc := fmt.Sprintf("%s %s @ %s:%d", ui.LocationMarker, f.Location.Module,
			RelativePath(f.Location.File, p.opts.BaseDir), f.Location.Line)
		b.WriteString(p.styles.Location.Render(loc))
		b.WriteByte('\n')
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.w, b.String())
	return err
}

// record is the JSON form of a frame.
type record struct {
	Source    string          `json:"source,omitempty"`
	Index     uint64          `json:"index"`
	Timestamp *string         `json:"timestamp,omitempty"`
	Level     table.Level     `json:"level,omitempty"`
	Message   string          `json:"message"`
	Args      []any           `json:"args"`
	Location  *table.Location `json:"location,omitempty"`
}

// JSONPrinter prints each frame as a single JSON object per line.
type JSONPrinter struct {
	mu   sync.Mutex
	enc  *json.Encoder
	opts Options
}

// NewJSONPrinter returns a Printer that writes JSON lines to w.
func NewJSONPrinter(w io.Writer, opts Options) *JSONPrinter {
	return &JSONPrinter{enc: json.NewEncoder(w), opts: opts}
}

func (p *JSONPrinter) Print(source string, f *decoder.Frame) error {
	if !p.opts.Filter.Allow(f) {
		return nil
	}

	rec := record{
		Source:  source,
		Index:   f.Index,
		Level:   f.Level,
		Message: f.Message,
		Args:    make([]any, len(f.Args)),
	}
	for i, v := range f.Args {
		rec.Args[i] = decoder.Plain(v)
	}
	if f.Timestamp != nil {
		ts := f.Timestamp.Display
		rec.Timestamp = &ts
	}
	if p.opts.ShowLocation && f.Location != nil {
		loc := *f.Location
		loc.File = RelativePath(loc.File, p.opts.BaseDir)
		rec.Location = &loc
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.Encode(rec)
}
