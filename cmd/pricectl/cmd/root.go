// Package cmd provides the pricectl commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"electricity-compare/internal/bootstrap"
	"electricity-compare/internal/config"
	"electricity-compare/internal/observability/logging"
)

const dateLayout = "2006-01-02"

var (
	cfgFile string
	verbose bool
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "pricectl",
	Short: "Operate the electricity price comparison backend",
	Long: `pricectl runs the maintenance tasks of the price comparison backend:
schema migrations, spot price ingest and aggregation, and catalog sync.

Examples:
  pricectl migrate up
  pricectl spot backfill --region FI --from 2024-01-01 --to 2024-07-01
  pricectl spot aggregate --region FI --type monthly
  pricectl catalog sync
  pricectl estimate --building-type detached --area 140 --residents 4 --heating electricity`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default: $CONFIG_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "timeout for the command")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "pricectl version 0.1.0")
	},
}

func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFrom(configPath())
	if err != nil {
		return cfg, nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

// withApp loads the configuration, wires the services and runs fn under the
// command timeout.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return fn(ctx, app)
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return os.Getenv("CONFIG_FILE")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDate accepts RFC3339 or a YYYY-MM-DD date in loc.
func parseDate(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC3339", value)
	}
	return t, nil
}
