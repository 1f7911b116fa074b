package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a pingsync configuration file without running a synchronization.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  pingsync validate -c config.yaml
  pingsync validate --config /etc/pingsync/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	site := cfg.Site.URL
	if cfg.Site.FromStore {
		site = "from store (fallback " + cfg.Site.URL + ")"
	}
	admin := "disabled"
	if cfg.Admin.Enabled {
		admin = fmt.Sprintf("port %d", cfg.Admin.Port)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Config is valid!\n")
	fmt.Fprintf(w, "  Site:          %s\n", site)
	fmt.Fprintf(w, "  Source key:    %s-url\n", cfg.PluginID)
	fmt.Fprintf(w, "  Ping list key: %s\n", cfg.PingListKey)
	fmt.Fprintf(w, "  Interval:      %s\n", cfg.Interval.Duration())
	fmt.Fprintf(w, "  Store:         %s\n", cfg.Store.Driver)
	fmt.Fprintf(w, "  Admin API:     %s\n", admin)

	return nil
}
