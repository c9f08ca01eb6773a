package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/muurk/defmt-print/internal/table"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - timestamps, headers
	SuccessColor = lipgloss.Color("#43BF6D") // Green - info
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors
	WarningColor = lipgloss.Color("#FFA500") // Orange - warnings
	DebugColor   = lipgloss.Color("#5FAFFF") // Blue - debug
	MutedColor   = lipgloss.Color("#626262") // Gray - trace, locations
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 160 // Maximum content width before capping
	LevelWidth       = 5   // Width of the padded level tag
)

// Markers
const (
	SuccessMarker  = "✓"
	FailureMarker  = "✗"
	LocationMarker = "└─"
)

// ColorMode selects when output is styled.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a colour mode name.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(s); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	case "":
		return ColorAuto, nil
	}
	return "", fmt.Errorf("unknown color mode %q (expected auto, always or never)", s)
}

// Styles is a set of lipgloss styles bound to one output writer.
type Styles struct {
	renderer *lipgloss.Renderer

	Timestamp lipgloss.Style
	Location  lipgloss.Style
	Source    lipgloss.Style
	Header    lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Failure   lipgloss.Style

	levels map[table.Level]lipgloss.Style
}

// NewStyles creates styles for w. In auto mode colour is used only when w
// is a terminal and NO_COLOR is unset.
func NewStyles(w io.Writer, mode ColorMode) *Styles {
	r := lipgloss.NewRenderer(w)
	switch mode {
	case ColorAlways:
		r.SetColorProfile(termenv.TrueColor)
	case ColorNever:
		r.SetColorProfile(termenv.Ascii)
	default:
		if !IsTerminal(w) || os.Getenv("NO_COLOR") != "" {
			r.SetColorProfile(termenv.Ascii)
		}
	}

	return &Styles{
		renderer:  r,
		Timestamp: r.NewStyle().Foreground(PrimaryColor),
		Location:  r.NewStyle().Foreground(MutedColor),
		Source:    r.NewStyle().Foreground(DebugColor).Faint(true),
		Header:    r.NewStyle().Foreground(TextColor).Bold(true),
		Muted:     r.NewStyle().Foreground(MutedColor),
		Success:   r.NewStyle().Foreground(SuccessColor),
		Failure:   r.NewStyle().Foreground(ErrorColor).Bold(true),
		levels: map[table.Level]lipgloss.Style{
			table.LevelTrace: r.NewStyle().Foreground(MutedColor),
			table.LevelDebug: r.NewStyle().Foreground(DebugColor),
			table.LevelInfo:  r.NewStyle().Foreground(SuccessColor),
			table.LevelWarn:  r.NewStyle().Foreground(WarningColor),
			table.LevelError: r.NewStyle().Foreground(ErrorColor).Bold(true),
		},
	}
}

// Colored reports whether the styles emit escape sequences.
func (s *Styles) Colored() bool {
	return s.renderer.ColorProfile() != termenv.Ascii
}

// Level renders the padded level tag. Frames without a level get blanks.
func (s *Styles) Level(l table.Level) string {
	padded := fmt.Sprintf("%-*s", LevelWidth, l.String())
	style, ok := s.levels[l]
	if !ok {
		return padded
	}
	return style.Render(padded)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// GetTerminalWidth returns the width of the terminal behind w, clamped to
// [MinTerminalWidth, MaxContentWidth]. ok is false when w is not a terminal.
func GetTerminalWidth(w io.Writer) (width int, ok bool) {
	f, isFile := w.(*os.File)
	if !isFile {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0, false
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth, true
	}
	if width > MaxContentWidth {
		return MaxContentWidth, true
	}
	return width, true
}
