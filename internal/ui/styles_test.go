package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muurk/defmt-print/internal/table"
)

func TestParseColorMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ColorMode
		wantErr bool
	}{
		{"auto", ColorAuto, false},
		{"always", ColorAlways, false},
		{"never", ColorNever, false},
		{"", ColorAuto, false},
		{"sometimes", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColorMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColorMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseColorMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStylesPlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	s := NewStyles(&buf, ColorAuto)
	if s.Colored() {
		t.Error("Colored() = true for a buffer in auto mode")
	}
	if got := s.Level(table.LevelWarn); got != "WARN " {
		t.Errorf("Level(WARN) = %q, want %q", got, "WARN ")
	}
	if got := s.Level(table.LevelNone); got != "     " {
		t.Errorf("Level(None) = %q, want blanks", got)
	}
}

func TestStylesNever(t *testing.T) {
	s := NewStyles(&bytes.Buffer{}, ColorNever)
	if got := s.Timestamp.Render("1.000000"); got != "1.000000" {
		t.Errorf("Timestamp.Render() = %q, want plain text", got)
	}
}

func TestStylesAlways(t *testing.T) {
	s := NewStyles(&bytes.Buffer{}, ColorAlways)
	if !s.Colored() {
		t.Fatal("Colored() = false with ColorAlways")
	}
	got := s.Level(table.LevelError)
	if !strings.Contains(got, "\x1b[") || !strings.Contains(got, "ERROR") {
		t.Errorf("Level(ERROR) = %q, want styled ERROR", got)
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("IsTerminal(buffer) = true")
	}
}

func TestGetTerminalWidthNotTerminal(t *testing.T) {
	if width, ok := GetTerminalWidth(&bytes.Buffer{}); ok {
		t.Errorf("GetTerminalWidth(buffer) = %d, true; want not ok", width)
	}
}
