package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/pingsync"
)

func main() {
	// start mock source (see mock_source.go)
	go StartMockSource(":9999")
	time.Sleep(100 * time.Millisecond)

	st := pingsync.NewMemoryStore()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// the host's own options; the synchronizer reads them at sync time
	_ = st.Set(ctx, pingsync.SiteURLKey, "https://blog.example.org")
	_ = st.Set(ctx, pingsync.SiteNameKey, "Demo Blog!")

	s, err := pingsync.New(
		pingsync.WithStore(st),
		pingsync.WithSiteProvider(pingsync.NewStoreSite(st, pingsync.Site{})),
		pingsync.WithDefaultSourceURL("http://localhost:9999/ping.txt"),
		pingsync.WithInterval(10*time.Second),
		pingsync.WithAdminServer(8080, "demo"),
		pingsync.WithResultCallback(func(r pingsync.Result) {
			fmt.Printf("  [%s] %-12s %d bytes\n", r.StartedAt.Format(time.TimeOnly), r.Outcome, r.Bytes)
		}),
	)
	if err != nil {
		slog.Error("failed to create synchronizer", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	// an empty save stores the default source url
	if _, err := s.SaveSource(ctx, ""); err != nil {
		slog.Error("failed to save source", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  pingsync demo")
	fmt.Println()
	fmt.Println("  Admin API on http://localhost:8080 (token: demo)")
	fmt.Println("    curl -H 'Authorization: Bearer demo' localhost:8080/api/ping-list")
	fmt.Println("    curl -H 'Authorization: Bearer demo' localhost:8080/api/sync/status")
	fmt.Println("    curl -N -H 'Authorization: Bearer demo' localhost:8080/api/events")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	if err := s.Start(ctx); err != nil {
		slog.Error("pingsync error", "error", err)
		os.Exit(1)
	}
}
