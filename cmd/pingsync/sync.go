package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pingsync"
	"github.com/jpalmerr/pingsync/config"
)

// syncCmd runs a single synchronization.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronization and exit",
	Long: `Run a single synchronization against the configured store and exit.

Suitable for cron. The exit code is 0 only when the ping list was updated.

Example:
  pingsync sync -c config.yaml
  pingsync sync -c config.yaml --json`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().Bool("json", false, "print the result as JSON")
}

// syncOutput is the printable form of a pingsync.Result.
type syncOutput struct {
	RunID      string `json:"run_id"`
	Outcome    string `json:"outcome"`
	SourceURL  string `json:"source_url"`
	StatusCode int    `json:"status_code"`
	LatencyMs  int64  `json:"latency_ms"`
	Bytes      int    `json:"bytes"`
	Error      string `json:"error,omitempty"`
}

func runSync(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := config.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	// the admin API is only served by serve
	cfg.Admin.Enabled = false
	s, err := pingsync.New(append(config.BuildOptions(cfg, st), pingsync.WithLogger(logger))...)
	if err != nil {
		return fmt.Errorf("failed to create synchronizer: %w", err)
	}
	defer s.Close()

	if _, err := config.SeedSource(ctx, cfg, s); err != nil {
		return fmt.Errorf("failed to seed source url: %w", err)
	}

	res := s.Synchronize(ctx)
	out := syncOutput{
		RunID:      res.RunID,
		Outcome:    res.Outcome.String(),
		SourceURL:  res.SourceURL,
		StatusCode: res.StatusCode,
		LatencyMs:  res.Latency.Milliseconds(),
		Bytes:      res.Bytes,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "Outcome:  %s\n", out.Outcome)
		fmt.Fprintf(w, "  Source: %s\n", out.SourceURL)
		fmt.Fprintf(w, "  Key:    %s\n", s.PingListKey())
		fmt.Fprintf(w, "  Bytes:  %d\n", out.Bytes)
		if out.Error != "" {
			fmt.Fprintf(w, "  Error:  %s\n", out.Error)
		}
	}

	if !res.Updated() {
		return fmt.Errorf("ping list not updated: %s", res.Outcome)
	}
	return nil
}
