package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/defmt-print/internal/config"
	"github.com/muurk/defmt-print/internal/discovery"
	"github.com/muurk/defmt-print/internal/table"
	"github.com/muurk/defmt-print/internal/ui"
)

// Table command flags
var (
	tableELF    string
	tableFormat string
	tableColor  string
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "List the format strings in a firmware ELF",
	Long: `Read the defmt table from a firmware ELF and list every entry with its
index, kind, level, crate, location and format string.`,
	Example: `  # Human-readable listing
  defmt-print table -e app.elf

  # Machine-readable dump
  defmt-print table -e app.elf --format yaml`,
	Args: cobra.NoArgs,
	RunE: runTable,
}

func init() {
	tableCmd.Flags().StringVarP(&tableELF, "elf", "e", "", "Firmware ELF containing the defmt table")
	tableCmd.Flags().StringVar(&tableFormat, "format", "text", "Output format (text, yaml, json)")
	tableCmd.Flags().StringVar(&tableColor, "color", string(ui.ColorAuto), "Colour output (auto, always, never)")
}

func runTable(cmd *cobra.Command, args []string) error {
	path := tableELF
	if path == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		path = cfg.ELF
	}
	tbl, err := loadTable(path)
	if err != nil {
		return err
	}
	color, err := ui.ParseColorMode(tableColor)
	if err != nil {
		return err
	}
	return writeTable(cmd.OutOrStdout(), tbl, tableFormat, color)
}

// tableDump is the yaml/json form of a table.
type tableDump struct {
	Version string         `json:"version" yaml:"version"`
	Entries []*table.Entry `json:"entries" yaml:"entries"`
}

func writeTable(w io.Writer, tbl *table.Table, format string, color ui.ColorMode) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tableDump{Version: tbl.Version(), Entries: tbl.Entries()})
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tableDump{Version: tbl.Version(), Entries: tbl.Entries()}); err != nil {
			return err
		}
		return enc.Close()
	case "text":
	default:
		return fmt.Errorf("unknown table format %q (expected text, yaml or json)", format)
	}

	styles := ui.NewStyles(w, color)
	rows := make([][]string, 0, tbl.Len())
	for _, e := range tbl.Entries() {
		loc := ""
		if e.Location != nil {
			loc = e.Location.String()
		}
		rows = append(rows, []string{
			strconv.FormatUint(e.Index, 10),
			e.Kind.String(),
			e.Level.String(),
			e.CrateName,
			loc,
			e.Format,
		})
	}

	t := ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.Muted).
		Headers("INDEX", "KIND", "LEVEL", "CRATE", "LOCATION", "FORMAT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return styles.Header.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	if width, ok := ui.GetTerminalWidth(w); ok {
		t = t.Width(width)
	}

	fmt.Fprintf(w, "defmt version %s, %d entries\n", tbl.Version(), tbl.Len())
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// Scan command flags
var scanTimeout int

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find defmt streams on the local network",
	Long: `Browse mDNS for _defmt._tcp services, such as probe relays or other
defmt-print instances started with --listen --advertise.`,
	Example: `  # Scan for 5 seconds (default)
  defmt-print scan

  # Then decode one of them
  defmt-print -e app.elf mdns://bench`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", int(discovery.DefaultScanTimeout/time.Second), "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	styles := ui.NewStyles(w, ui.ColorAuto)

	fmt.Fprintf(w, "Scanning for defmt endpoints (timeout: %ds)...\n\n", scanTimeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second
	endpoints, err := scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(endpoints) == 0 {
		fmt.Fprintln(w, styles.Failure.Render(ui.FailureMarker+" No endpoints found."))
		fmt.Fprintln(w, "\nTroubleshooting:")
		fmt.Fprintln(w, "  - Check that the relay or listener is running with mDNS advertising")
		fmt.Fprintln(w, "  - Make sure this host is on the same network segment")
		fmt.Fprintln(w, "  - Try increasing --timeout for slower networks")
		return nil
	}

	fmt.Fprintln(w, styles.Success.Render(fmt.Sprintf("%s Found %d endpoint(s):", ui.SuccessMarker, len(endpoints))))
	fmt.Fprintln(w)
	for i, ep := range endpoints {
		fmt.Fprintf(w, "%d. %s\n", i+1, styles.Header.Render(ep.Instance))
		fmt.Fprintf(w, "   Host:    %s\n", ep.Hostname)
		fmt.Fprintf(w, "   Target:  %s\n", ep.Target())
		if fr := ep.Framing(); fr != "" {
			fmt.Fprintf(w, "   Framing: %s\n", fr)
		}
		if v := ep.GetMetadata(discovery.TxtVersion); v != "" {
			fmt.Fprintf(w, "   defmt:   %s\n", v)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, styles.Muted.Render("Use 'defmt-print -e <elf> mdns://<instance>' to decode an endpoint"))
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration file",
}

var configForce bool

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the default configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return err
			}
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
