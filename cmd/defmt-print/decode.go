package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/muurk/defmt-print/internal/config"
	"github.com/muurk/defmt-print/internal/decoder"
	"github.com/muurk/defmt-print/internal/discovery"
	"github.com/muurk/defmt-print/internal/elfbin"
	"github.com/muurk/defmt-print/internal/logging"
	"github.com/muurk/defmt-print/internal/metrics"
	"github.com/muurk/defmt-print/internal/output"
	"github.com/muurk/defmt-print/internal/server"
	"github.com/muurk/defmt-print/internal/stream"
	"github.com/muurk/defmt-print/internal/table"
	"github.com/muurk/defmt-print/internal/ui"
)

// mdnsScheme selects a source by its advertised mDNS instance name.
const mdnsScheme = "mdns://"

// decodeFlags holds the decode command line. Unset flags fall back to the
// config file.
type decodeFlags struct {
	elf          string
	serial       string
	baudRate     int
	framing      string
	follow       bool
	listen       int
	advertise    string
	format       string
	color        string
	showLocation bool
	level        string
	fileGlob     string
	metricsAddr  string
	bufferSize   int
}

var decodeOpts decodeFlags

var decodeCmd = &cobra.Command{
	Use:   "decode [source]",
	Short: "Decode a defmt stream (default command)",
	Long: `Decode a defmt stream and print each log frame.

The ELF must be the exact image running on the device: frames carry only
indices into its format string table.

With raw framing, a corrupt frame ends the stream since there is no boundary
to resynchronize at. With rzcobs framing, corrupt frames are reported and
skipped.`,
	Example: `  # Decode from a serial port
  defmt-print -e target/thumbv7em-none-eabihf/debug/app --serial /dev/ttyACM0

  # Decode unframed data from a probe's RTT TCP server
  defmt-print decode -e app.elf --framing raw tcp://localhost:19021

  # Follow a growing capture file and print JSON lines
  defmt-print decode -e app.elf --follow --format json capture.bin

  # Accept streams from many devices and advertise over mDNS
  defmt-print decode -e app.elf --listen 19021 --advertise bench`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	addDecodeFlags(decodeCmd)
}

func addDecodeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&decodeOpts.elf, "elf", "e", "", "Firmware ELF containing the defmt table")
	f.StringVar(&decodeOpts.serial, "serial", "", "Serial port to read from (shorthand for serial://PORT)")
	f.IntVar(&decodeOpts.baudRate, "baud-rate", stream.DefaultBaudRate, "Serial baud rate")
	f.StringVar(&decodeOpts.framing, "framing", string(stream.FramingRZCOBS), "Stream framing (rzcobs, raw)")
	f.BoolVar(&decodeOpts.follow, "follow", false, "Keep reading a capture file as it grows")
	f.IntVar(&decodeOpts.listen, "listen", 0, "Accept TCP streams on this port instead of reading a source")
	f.StringVar(&decodeOpts.advertise, "advertise", "", "mDNS instance name to advertise with --listen")
	f.StringVar(&decodeOpts.format, "format", string(output.FormatText), "Output format (text, json)")
	f.StringVar(&decodeOpts.color, "color", string(ui.ColorAuto), "Colour output (auto, always, never)")
	f.BoolVar(&decodeOpts.showLocation, "show-location", false, "Print the source location of each log statement")
	f.StringVar(&decodeOpts.level, "level", "", "Minimum level to print (trace, debug, info, warn, error)")
	f.StringVar(&decodeOpts.fileGlob, "file-glob", "", "Only print frames logged from files matching this glob")
	f.StringVar(&decodeOpts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	f.IntVar(&decodeOpts.bufferSize, "buffer-size", stream.DefaultReadBufferSize, "Read buffer size in bytes")
}

// applyFlags overlays the flags the user set on top of cfg.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet, o decodeFlags) {
	set := flags.Changed
	if set("elf") {
		cfg.ELF = o.elf
	}
	if set("framing") {
		cfg.Framing = o.framing
	}
	if set("buffer-size") {
		cfg.ReadBufferSize = o.bufferSize
	}
	if set("metrics-addr") {
		cfg.MetricsAddr = o.metricsAddr
	}
	if set("baud-rate") {
		cfg.Serial.BaudRate = o.baudRate
	}
	if set("format") {
		cfg.Output.Format = o.format
	}
	if set("color") {
		cfg.Output.Color = o.color
	}
	if set("show-location") {
		cfg.Output.ShowLocation = o.showLocation
	}
	if set("level") {
		cfg.Output.Level = o.level
	}
	if set("file-glob") {
		cfg.Output.FileGlob = o.fileGlob
	}
	if set("advertise") {
		cfg.Listen.Advertise = o.advertise
	}
}

// sourceTarget picks the source from the positional argument or --serial.
func sourceTarget(args []string, serialPort string) (string, error) {
	switch {
	case serialPort != "" && len(args) > 0:
		return "", errors.New("give either --serial or a source argument, not both")
	case serialPort != "":
		return "serial://" + serialPort, nil
	case len(args) > 0:
		return args[0], nil
	}
	return "-", nil
}

// loadTable opens the ELF and builds its table.
func loadTable(path string) (*table.Table, error) {
	if path == "" {
		return nil, errors.New("no ELF given (use --elf or set elf in the config file)")
	}
	bin, err := elfbin.Open(path)
	if err != nil {
		return nil, err
	}
	defer bin.Close()

	tbl, err := table.Build(bin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tbl, nil
}

// locationsUsable reports whether locations can be printed. Partial
// location info is reported once and locations are then left out.
func locationsUsable(tbl *table.Table, w io.Writer) bool {
	if tbl.LocationsComplete() {
		return true
	}
	for _, e := range tbl.Entries() {
		if e.Location != nil {
			fmt.Fprintln(w, "Warning: location info is incomplete; it will be omitted from the output")
			return false
		}
	}
	logging.Debug("No location info in ELF")
	return false
}

func buildPrinter(cfg *config.Config, w io.Writer, showLocation bool) (output.Printer, error) {
	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	color, err := ui.ParseColorMode(cfg.Output.Color)
	if err != nil {
		return nil, err
	}
	level, err := cfg.MinLevel()
	if err != nil {
		return nil, err
	}
	filter, err := output.NewFilter(level, cfg.Output.FileGlob)
	if err != nil {
		return nil, err
	}
	cwd, _ := os.Getwd()
	return output.New(w, output.Options{
		Format:       format,
		Color:        color,
		ShowLocation: showLocation,
		BaseDir:      cwd,
		Filter:       filter,
	})
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, cmd.Flags(), decodeOpts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	tbl, err := loadTable(cfg.ELF)
	if err != nil {
		return err
	}

	showLocation := cfg.Output.ShowLocation && locationsUsable(tbl, cmd.ErrOrStderr())
	printer, err := buildPrinter(cfg, cmd.OutOrStdout(), showLocation)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		metrics.Register()
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				logging.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	framing := stream.Framing(cfg.Framing)

	if cmd.Flags().Changed("listen") {
		srv, err := server.New(&server.Config{
			Host:     cfg.Listen.Host,
			Port:     decodeOpts.listen,
			Framing:  framing,
			Instance: cfg.Listen.Advertise,
		}, tbl, printer.Print)
		if err != nil {
			return fmt.Errorf("failed to create listener: %w", err)
		}
		return srv.Serve(ctx)
	}

	target, err := sourceTarget(args, decodeOpts.serial)
	if err != nil {
		return err
	}
	if strings.HasPrefix(target, mdnsScheme) {
		ep, err := discovery.NewScanner().Find(ctx, strings.TrimPrefix(target, mdnsScheme))
		if err != nil {
			return err
		}
		target = ep.Target()
		if !cmd.Flags().Changed("framing") && ep.Framing() != "" {
			if framing, err = stream.ParseFraming(ep.Framing()); err != nil {
				return fmt.Errorf("endpoint %s: %w", ep.Instance, err)
			}
		}
	}

	src, err := stream.Open(ctx, target, stream.Options{
		Follow:   decodeOpts.follow,
		BaudRate: cfg.Serial.BaudRate,
	})
	if err != nil {
		return err
	}
	defer src.Close()

	pump := stream.NewPump(src.Name(), tbl, framing, func(f *decoder.Frame) error {
		return printer.Print("", f)
	})
	pump.BufferSize = cfg.ReadBufferSize
	return pump.Run(ctx, src)
}
