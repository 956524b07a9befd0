// Package main provides the nplift diagnostics CLI: probe the device
// runtime, list installed backend symbols, and show version information.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/nplift-ml/nplift/internal/backend"
	"github.com/nplift-ml/nplift/internal/backend/ref"
	"github.com/nplift-ml/nplift/internal/config"
	"github.com/nplift-ml/nplift/internal/device"
	wgpurt "github.com/nplift-ml/nplift/internal/device/wgpu"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nplift",
		Short:         "nplift - accelerated array-operation lowering",
		Long:          "nplift lowers high-level array operations (dot, matmul, reductions, argsort, cov)\nonto an accelerated math backend with device-resident memory.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("nplift {{.Version}} (%s)\n", GitCommit))
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./nplift.yaml)")

	rootCmd.AddCommand(newProbeCmd())
	rootCmd.AddCommand(newSymbolsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadConfig resolves the config file and builds a logger from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(config.FindFile(cfgFile))
	if err != nil {
		return nil, nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return cfg, log, nil
}

// openRuntime creates the configured device runtime.
func openRuntime(cfg *config.Config) (device.Runtime, func(), error) {
	switch cfg.Device {
	case "webgpu":
		rt, err := wgpurt.New()
		if err != nil {
			return nil, nil, err
		}
		return rt, rt.Release, nil
	default:
		return device.NewHost(), func() {}, nil
	}
}

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Probe the configured device runtime",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			log.Debug("probing device runtime", "device", cfg.Device)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "configured device: %s\n", cfg.Device)
			fmt.Fprintf(out, "webgpu available:  %v\n", wgpurt.IsAvailable())

			rt, closeRT, err := openRuntime(cfg)
			if err != nil {
				return fmt.Errorf("open %s runtime: %w", cfg.Device, err)
			}
			defer closeRT()
			fmt.Fprintf(out, "runtime:           %s\n", rt.Name())

			// Round-trip one small buffer to exercise alloc/copy/free.
			m, err := device.NewManager(rt)
			if err != nil {
				return err
			}
			buf, err := m.Alloc(64)
			if err != nil {
				return err
			}
			if err := m.Free(buf); err != nil {
				return err
			}
			fmt.Fprintln(out, "alloc/free:        ok")
			return nil
		},
	}
}

func newSymbolsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "List installed backend symbols",
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := backend.NewTable(nil)
			ref.Install(table)

			out := cmd.OutOrStdout()
			keys := table.Keys()

			if asJSON {
				type symbol struct {
					Op    string   `json:"op"`
					Types []string `json:"types"`
				}
				symbols := make([]symbol, 0, len(keys))
				for _, k := range keys {
					symbols = append(symbols, symbol{Op: k.Op, Types: k.TypeNames()})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(symbols)
			}

			for _, k := range keys {
				fmt.Fprintln(out, k.String())
			}
			fmt.Fprintf(out, "%d symbols installed\n", len(keys))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nplift %s (%s)\n", Version, GitCommit)
		},
	}
}
