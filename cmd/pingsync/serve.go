package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pingsync"
	"github.com/jpalmerr/pingsync/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd runs the synchronizer continuously.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Synchronize periodically and serve the admin API",
	Long: `Run pingsync continuously.

The server will:
  - Load configuration from the specified YAML file
  - Seed the source URL from source_url if none is stored yet
  - Synchronize immediately, then at the configured interval
  - Serve the admin API on admin.port if admin.enabled is set

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  pingsync serve -c config.yaml
  PINGSYNC_ADMIN_TOKEN=s3cret pingsync serve --config /etc/pingsync/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Admin.Enabled && cfg.Admin.Token == "" {
		return errors.New("admin.enabled requires a token (admin.token, --admin-token, or PINGSYNC_ADMIN_TOKEN)")
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := config.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	logger.Info("config loaded",
		"store", cfg.Store.Driver,
		"interval", cfg.Interval.Duration().String(),
		"admin_enabled", cfg.Admin.Enabled,
	)

	s, err := pingsync.New(append(config.BuildOptions(cfg, st), pingsync.WithLogger(logger))...)
	if err != nil {
		return fmt.Errorf("failed to create synchronizer: %w", err)
	}
	defer s.Close()

	seeded, err := config.SeedSource(ctx, cfg, s)
	if err != nil {
		return fmt.Errorf("failed to seed source url: %w", err)
	}
	if seeded {
		logger.Info("source url seeded from config", "source_url", cfg.SourceURL)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
