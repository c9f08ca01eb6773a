package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/muurk/defmt-print/internal/table"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestGetConfigPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout is Linux only")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	got, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if want := "/tmp/xdg/defmt-print/config.yaml"; got != want {
		t.Errorf("GetConfigPath() = %q, want %q", got, want)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
	if got := Default().Framing; got != "rzcobs" {
		t.Errorf("Default().Framing = %q, want rzcobs", got)
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOCALAPPDATA", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of a missing explicit file should fail")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
version: 1
elf: fw.elf
framing: raw
output:
  show_location: true
  level: debug
  file_glob: "**/drivers/*.rs"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	want.ELF = "fw.elf"
	want.Framing = "raw"
	want.Output.ShowLocation = true
	want.Output.Level = "debug"
	want.Output.FileGlob = "**/drivers/*.rs"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	level, err := cfg.MinLevel()
	if err != nil || level != table.LevelDebug {
		t.Errorf("MinLevel() = %v, %v; want DEBUG", level, err)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
version = 1
metrics_addr = ":9464"

[output]
format = "json"
color = "never"

[serial]
baud_rate = 921600

[listen]
advertise = "bench"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	want.MetricsAddr = ":9464"
	want.Output.Format = "json"
	want.Output.Color = "never"
	want.Serial.BaudRate = 921600
	want.Listen.Advertise = "bench"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantField string
	}{
		{"version", "version: 2\n", "version"},
		{"framing", "version: 1\nframing: cobs\n", "framing"},
		{"buffer", "version: 1\nread_buffer_size: 0\n", "read_buffer_size"},
		{"format", "version: 1\noutput:\n  format: xml\n", "output.format"},
		{"color", "version: 1\noutput:\n  color: loud\n", "output.color"},
		{"level", "version: 1\noutput:\n  level: fatal\n", "output.level"},
		{"glob", "version: 1\noutput:\n  file_glob: \"[a-\"\n", "output.file_glob"},
		{"baud", "version: 1\nserial:\n  baud_rate: -1\n", "serial.baud_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", tt.content))
			var fieldErr *FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("Load() error = %v, want *FieldError", err)
			}
			if fieldErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", fieldErr.Field, tt.wantField)
			}
		})
	}
}

func TestLoadMalformed(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		path := writeFile(t, name, "version: [1\n= =")
		if _, err := Load(path); err == nil {
			t.Errorf("Load(%s) should fail on malformed content", name)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	cfg := Default()
	cfg.ELF = "fw.elf"
	cfg.Output.Level = "warn"

	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", name)
			if err := cfg.Save(path); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if !strings.HasPrefix(string(data), "# defmt-print configuration") {
				t.Errorf("saved file lacks header:\n%s", data)
			}

			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if diff := cmp.Diff(cfg, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
