package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jpalmerr/pingsync/internal/status"
	"github.com/jpalmerr/pingsync/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	maxSettingsBody = 64 << 10
)

// Settings is the JSON view of the synchronizer's configuration.
type Settings struct {
	SourceURL   string `json:"source_url"`
	SourceKey   string `json:"source_key"`
	PingListKey string `json:"ping_list_key"`
}

// Backend is the synchronizer as seen by the admin API.
type Backend interface {
	// Settings returns the current settings. A missing source URL is
	// reported as an empty SourceURL, not an error.
	Settings(ctx context.Context) (Settings, error)

	// SaveSource sanitizes and stores a new source URL, returning the
	// stored value.
	SaveSource(ctx context.Context, raw string) (string, error)

	// PingList returns the stored ping list, or [store.ErrNotFound].
	PingList(ctx context.Context) (string, error)

	// Sync runs a synchronization and returns its report.
	Sync(ctx context.Context) status.Report
}

// Server handles admin HTTP requests.
type Server struct {
	backend    Backend
	tracker    status.Tracker
	metrics    http.Handler
	port       int
	token      string
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new admin [Server].
//
// Parameters:
//   - backend: the synchronizer operations
//   - tracker: source of sync summaries and the event stream
//   - metrics: handler mounted at /metrics (may be nil)
//   - port: TCP port to listen on
//   - token: bearer token required by protected routes
//   - logger: logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(backend Backend, tracker status.Tracker, metrics http.Handler, port int, token string, logger *slog.Logger) *Server {
	return &Server{
		backend: backend,
		tracker: tracker,
		metrics: metrics,
		port:    port,
		token:   token,
		logger:  logger,
	}
}

// Handler builds the router. Exposed for tests and embedding.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(s.auth)
		pr.Get("/api/settings", s.handleGetSettings)
		pr.Post("/api/settings", s.handleSaveSettings)
		pr.Post("/api/sync", s.handleSync)
		pr.Get("/api/sync/status", s.handleSyncStatus)
		pr.Get("/api/ping-list", s.handlePingList)
		pr.Get("/api/events", s.handleEvents)
	})

	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns once the listener is bound. The server
// shuts down gracefully when ctx is cancelled.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so long-lived SSE handlers exit on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("admin server shutdown error", "error", err)
		}
	}()

	return nil
}

// auth rejects requests without the configured bearer token. An empty
// configured token rejects everything.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		given, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || s.token == "" || subtle.ConstantTimeCompare([]byte(given), []byte(s.token)) != 1 {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Invalid nonce specified"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.backend.Settings(r.Context())
	if err != nil {
		s.logger.Error("failed to read settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SourceURL string `json:"source_url"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBody)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	saved, err := s.backend.SaveSource(r.Context(), body.SourceURL)
	if err != nil {
		s.logger.Error("failed to save settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"notice":  "error",
			"message": err.Error(),
		})
		return
	}

	s.logger.Info("settings saved", "source_url", saved)
	writeJSON(w, http.StatusOK, map[string]string{
		"notice":     "success",
		"message":    "Settings saved",
		"source_url": saved,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	report := s.backend.Sync(r.Context())
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, s.tracker.Summary())
}

func (s *Server) handlePingList(w http.ResponseWriter, r *http.Request) {
	list, err := s.backend.PingList(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "ping list not set", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("failed to read ping list", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(list)); err != nil {
		s.logger.Error("failed to write ping list response", "error", err)
	}
}

// handleEvents streams sync reports via Server-Sent Events.
//
// Write deadlines keep a slow or disconnected client from pinning the
// handler goroutine.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				deadlinesSupported = false
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.tracker.Subscribe()
	defer s.tracker.Unsubscribe(ch)

	if latest := s.tracker.Summary().Latest; latest != nil {
		data, err := json.Marshal(latest)
		if err == nil {
			if err := writeAndFlush(data); err != nil {
				return
			}
		}
	}

	for {
		select {
		case report, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(report)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
