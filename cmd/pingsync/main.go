// Package main is the entry point for the pingsync CLI.
//
// pingsync can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	pingsync serve -c config.yaml    # Synchronize periodically, serve the admin API
//	pingsync sync -c config.yaml     # Run one synchronization and exit
//	pingsync validate -c config.yaml # Validate configuration
//	pingsync slug "My Site"          # Show the slug substituted for #WEBSITE_NAME#
//	pingsync version                 # Show version info
//
// The config path and admin token may also come from the PINGSYNC_CONFIG
// and PINGSYNC_ADMIN_TOKEN environment variables.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jpalmerr/pingsync/config"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// settings resolves global flags against PINGSYNC_* environment variables.
var settings *viper.Viper

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "pingsync",
	Short: "Keep a site's ping list in step with a remote source",
	Long: `pingsync fetches a remotely maintained list of ping services, substitutes
the site's URL and name into it, and stores it as the site's ping list.

Quick start:
  1. Create a config file (pingsync.yaml)
  2. Run: pingsync serve -c pingsync.yaml
  3. Save a source URL: POST /api/settings {"source_url": "..."}

Example config:
  site:
    url: https://example.org
    name: My Site
  source_url: https://lists.example.net/ping.txt
  store:
    driver: sqlite
    path: ./pingsync.db`,
	SilenceUsage: true,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this pingsync binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pingsync %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "path to config file (env PINGSYNC_CONFIG)")
	pf.String("admin-token", "", "admin API token, overrides admin.token (env PINGSYNC_ADMIN_TOKEN)")
	pf.String("log-level", "info", "log level: debug, info, warn, error (env PINGSYNC_LOG_LEVEL)")

	settings = newSettings(rootCmd)

	rootCmd.AddCommand(versionCmd)
}

// newSettings binds the persistent flags of cmd, if any, with the
// environment as fallback. Flags take precedence when set explicitly.
func newSettings(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	if cmd != nil {
		pf := cmd.PersistentFlags()
		_ = v.BindPFlag("config", pf.Lookup("config"))
		_ = v.BindPFlag("admin_token", pf.Lookup("admin-token"))
		_ = v.BindPFlag("log_level", pf.Lookup("log-level"))
	}
	v.SetEnvPrefix("PINGSYNC")
	v.AutomaticEnv()
	return v
}

// loadConfig loads the config file named by --config or PINGSYNC_CONFIG
// and applies the admin token override.
func loadConfig() (*config.Config, error) {
	path := settings.GetString("config")
	if path == "" {
		return nil, fmt.Errorf("no config file given (use --config or PINGSYNC_CONFIG)")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if token := settings.GetString("admin_token"); token != "" {
		cfg.Admin.Token = token
	}
	return cfg, nil
}

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(settings.GetString("log_level")))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
