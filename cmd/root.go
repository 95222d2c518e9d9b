// =============================================================================
// Trip Dashboard - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (tripdash)
//   ├── summaryCmd (tripdash summary)
//   ├── dayCmd     (tripdash day)
//   ├── serveCmd   (tripdash serve)
//   ├── exportCmd  (tripdash export)
//   ├── validateCmd (tripdash validate)
//   ├── cacheCmd   (tripdash cache stats|clear)
//   └── versionCmd (tripdash version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads .env into the environment (godotenv)
//   2. Reads config.yaml (yaml.v3); a missing default file is not an error
//   3. Overlays TRIPDASH_* environment variables and bound flags (viper)
//   4. Builds the structured logger
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/trip-dashboard/internal/config"
	"github.com/ginjaninja78/trip-dashboard/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile holds the path to the .env file.
var envFile string

// verbose forces debug logging when set to true.
var verbose bool

// overrides collects environment variables and bound flags.
var overrides = config.NewViper()

// flagKeys maps command flags to the configuration keys they override.
var flagKeys = map[string]string{
	"workers": "geocoder.workers",
	"listen":  "server.listen_addr",
	"out":     "export.output_dir",
	"backend": "cache.backend",
}

// appConfig and log are set by loadConfig before a subcommand runs.
var (
	appConfig *config.MainConfig
	log       *slog.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tripdash",
	Short: "Trip Dashboard - Explore ride-service trip exports by day and on a map",
	Long: `Trip Dashboard reads the transaction export of a ride-service business
account (CSV or XLSX), reconciles fare and tip lines into trips, groups them
by day and geocodes pickup and drop-off addresses to draw each day's routes.

Key Features:
  - Tolerant CSV parsing with header detection after report preambles
  - Fare and tip transactions merged into one trip
  - Cached, rate-limited geocoding with address fallbacks
  - JSON API for a map dashboard
  - XLSX export with a summary and one sheet per day

Example Usage:
  tripdash summary --file trips.csv      # KPIs and the day list
  tripdash day --file trips.csv          # Trip table and routes of the latest day
  tripdash serve --file trips.csv        # Serve the dashboard API
  tripdash export --file trips.csv       # Write an XLSX workbook`,

	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. This is called by main.main(). An
// interrupt cancels the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Path to a .env file with TRIPDASH_* variables",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// loadConfig loads the configuration and builds the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnvFiles(envFile); err != nil {
		return err
	}

	for name, key := range flagKeys {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			if err := overrides.BindPFlag(key, flag); err != nil {
				return err
			}
		}
	}

	optional := !cmd.Flags().Changed("config")
	cfg, err := config.LoadMainConfig(cfgFile, optional, overrides)
	if err != nil {
		return err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	appConfig = cfg
	log = logger.New(cfg.LogLevel, cfg.LogFormat, logOutput(cmd))
	log.Debug("Loaded configuration",
		"config", cfgFile,
		"provider", cfg.Geocoder.Provider,
		"cache", cfg.Cache.Backend,
		"workers", cfg.Geocoder.Workers,
	)
	return nil
}

// logOutput sends logs to the command's error stream.
func logOutput(cmd *cobra.Command) io.Writer {
	return cmd.ErrOrStderr()
}
