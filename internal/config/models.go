package config

import (
	"errors"
	"fmt"

	"github.com/muurk/defmt-print/internal/output"
	"github.com/muurk/defmt-print/internal/stream"
	"github.com/muurk/defmt-print/internal/table"
	"github.com/muurk/defmt-print/internal/ui"
)

// CurrentVersion is the config file schema version.
const CurrentVersion = 1

// Config is the user configuration file. Command-line flags override it.
type Config struct {
	Version int `yaml:"version" toml:"version"`

	// ELF is the default firmware image to read the table from
	ELF string `yaml:"elf,omitempty" toml:"elf,omitempty"`

	// Framing is "raw" or "rzcobs"
	Framing string `yaml:"framing" toml:"framing"`

	// ReadBufferSize is the size of each read from the source
	ReadBufferSize int `yaml:"read_buffer_size" toml:"read_buffer_size"`

	// MetricsAddr, if set, serves Prometheus metrics (e.g. ":9464")
	MetricsAddr string `yaml:"metrics_addr,omitempty" toml:"metrics_addr,omitempty"`

	Output Output `yaml:"output" toml:"output"`
	Serial Serial `yaml:"serial" toml:"serial"`
	Listen Listen `yaml:"listen" toml:"listen"`
}

// Output controls how frames are printed.
type Output struct {
	Format       string `yaml:"format" toml:"format"`                           // text or json
	Color        string `yaml:"color" toml:"color"`                             // auto, always or never
	ShowLocation bool   `yaml:"show_location" toml:"show_location"`             // print file:line under each frame
	Level        string `yaml:"level,omitempty" toml:"level,omitempty"`         // minimum level to print
	FileGlob     string `yaml:"file_glob,omitempty" toml:"file_glob,omitempty"` // only print frames from matching files
}

// Serial configures serial port sources.
type Serial struct {
	BaudRate int `yaml:"baud_rate" toml:"baud_rate"`
}

// Listen configures the TCP listener used with --listen.
type Listen struct {
	Host string `yaml:"host,omitempty" toml:"host,omitempty"`
	// Advertise is the mDNS instance name; empty disables advertising
	Advertise string `yaml:"advertise,omitempty" toml:"advertise,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version:        CurrentVersion,
		Framing:        string(stream.FramingRZCOBS),
		ReadBufferSize: stream.DefaultReadBufferSize,
		Output: Output{
			Format: string(output.FormatText),
			Color:  string(ui.ColorAuto),
		},
		Serial: Serial{
			BaudRate: stream.DefaultBaudRate,
		},
	}
}

// FieldError names the configuration field that failed validation.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid config field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Validate checks every field and reports the first invalid one.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &FieldError{Field: "version", Err: fmt.Errorf("unsupported version %d (expected %d)", c.Version, CurrentVersion)}
	}
	if _, err := stream.ParseFraming(c.Framing); err != nil {
		return &FieldError{Field: "framing", Err: err}
	}
	if c.ReadBufferSize <= 0 {
		return &FieldError{Field: "read_buffer_size", Err: errors.New("must be positive")}
	}
	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return &FieldError{Field: "output.format", Err: err}
	}
	if _, err := ui.ParseColorMode(c.Output.Color); err != nil {
		return &FieldError{Field: "output.color", Err: err}
	}
	if _, err := c.MinLevel(); err != nil {
		return &FieldError{Field: "output.level", Err: err}
	}
	if _, err := output.NewFilter(table.LevelNone, c.Output.FileGlob); err != nil {
		return &FieldError{Field: "output.file_glob", Err: err}
	}
	if c.Serial.BaudRate <= 0 {
		return &FieldError{Field: "serial.baud_rate", Err: errors.New("must be positive")}
	}
	return nil
}

// MinLevel parses Output.Level. An empty level prints everything.
func (c *Config) MinLevel() (table.Level, error) {
	if c.Output.Level == "" {
		return table.LevelNone, nil
	}
	return table.ParseLevel(c.Output.Level)
}
