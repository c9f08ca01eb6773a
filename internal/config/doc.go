// Package config loads the defmt-print user configuration.
//
// The configuration holds defaults for the decode command: which ELF to
// read, the stream framing, output format and filters, serial baud rate and
// the metrics address. Flags given on the command line always win.
//
// # Configuration File Location
//
// The default file lives in a platform-appropriate location:
//   - Linux: $XDG_CONFIG_HOME/defmt-print/config.yaml or $HOME/.config/defmt-print/config.yaml
//   - macOS: $HOME/.config/defmt-print/config.yaml
//   - Windows: %LOCALAPPDATA%\defmt-print\config.yaml
//
// A file passed with --config may be YAML or, if it ends in .toml, TOML.
//
// # Example
//
//	version: 1
//	elf: target/thumbv7em-none-eabihf/debug/app
//	framing: raw
//	output:
//	  format: text
//	  color: auto
//	  show_location: true
//	  level: debug
//	  file_glob: "**/drivers/**"
//	serial:
//	  baud_rate: 115200
package config
