// Command arbscan is the entry point for the prediction-market arbitrage
// scanner. It serves the HTTP API, runs one-shot scans from the terminal and
// issues API keys.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/arbscanner/internal/config"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "arbscan",
		Short: "Cross-venue prediction market arbitrage scanner",
		Long: `arbscan compares Polymarket and Kalshi markets, surfaces price
discrepancies between equivalent contracts, and serves them over HTTP,
WebSocket and webhooks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.toml", "path to configuration file (empty for defaults)")

	root.AddCommand(newServeCmd(opts), newScanCmd(opts), newKeysCmd(opts))
	return root
}

// loadConfig reads the configuration file, tolerating a missing default path.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	path := o.configPath
	if path == "config.toml" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", o.configPath, err)
	}
	return cfg, nil
}

// newLogger builds the JSON logger at the configured level.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
