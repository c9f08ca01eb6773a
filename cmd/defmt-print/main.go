// Defmt-print decodes defmt log frames emitted by embedded firmware.
//
// It reads the format strings compiled into a firmware ELF, then decodes
// the compact binary log stream the device sends over a serial port, a TCP
// connection, a WebSocket relay, a capture file or standard input.
//
// Usage:
//
//	defmt-print -e firmware.elf [source] [flags]
//
// See 'defmt-print --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/muurk/defmt-print/internal/logging"
	"github.com/muurk/defmt-print/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "defmt-print [source]",
	Short: "Decode defmt log streams from embedded firmware",
	Long: `Decode defmt log frames using the format strings in a firmware ELF.

The source is one of:
  -, (none)              standard input
  path/to/capture.bin    a capture file (add --follow to keep reading)
  tcp://host:port        a TCP stream, e.g. a probe's RTT server
  ws://host/path         a WebSocket relay sending binary messages
  serial:///dev/ttyACM0  a serial port (or use --serial)
  mdns://instance        a _defmt._tcp endpoint found by 'defmt-print scan'

If no command is specified, decode runs.`,
	Version:       version.Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging(cmd.Flags(), logLevel)
	},
	RunE: runDecode,
}

// initLogging applies --log-level when given and DEFMT_LOG_LEVEL otherwise.
func initLogging(flags *pflag.FlagSet, level string) error {
	if !flags.Changed("log-level") {
		return logging.InitializeFromEnv()
	}
	return logging.Initialize(level)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (YAML, or TOML if it ends in .toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Diagnostic log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)

	addDecodeFlags(rootCmd)

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "defmt-print %s\n%s\n", version.Full(), version.Supported())
	},
}
