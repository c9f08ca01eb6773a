package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/muurk/defmt-print/internal/decoder"
	"github.com/muurk/defmt-print/internal/table"
)

// Filter drops frames below a minimum level or from files outside a glob.
type Filter struct {
	MinLevel table.Level
	FileGlob string
}

// NewFilter validates the glob pattern. An empty pattern matches every
// frame, including those without a location.
func NewFilter(minLevel table.Level, fileGlob string) (*Filter, error) {
	if fileGlob != "" && !doublestar.ValidatePattern(fileGlob) {
		return nil, fmt.Errorf("invalid file glob %q", fileGlob)
	}
	return &Filter{MinLevel: minLevel, FileGlob: fileGlob}, nil
}

// Allow reports whether f passes the filter. Frames without a level are
// never dropped by level.
func (flt *Filter) Allow(f *decoder.Frame) bool {
	if flt == nil {
		return true
	}
	if f.Level != table.LevelNone && f.Level < flt.MinLevel {
		return false
	}
	if flt.FileGlob == "" {
		return true
	}
	if f.Location == nil {
		return false
	}
	file := filepath.ToSlash(f.Location.File)
	if ok, _ := doublestar.Match(flt.FileGlob, file); ok {
		return true
	}
	// "**/drivers/*.rs" should also match absolute paths
	ok, _ := doublestar.Match(flt.FileGlob, strings.TrimPrefix(file, "/"))
	return ok
}
