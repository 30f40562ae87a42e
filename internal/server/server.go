package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"codeberg.org/mutker/resmon/internal/errors"
	"codeberg.org/mutker/resmon/internal/logger"
	"codeberg.org/mutker/resmon/internal/monitor"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server exposes the telemetry surface over HTTP: a websocket event
// stream at /ws and a pull-model snapshot at /snapshot. The transport
// is a boundary choice; the monitor knows nothing about it.
type Server struct {
	addr    string
	monitor *monitor.Monitor
}

func New(addr string, mon *monitor.Monitor) *Server {
	return &Server{
		addr:    addr,
		monitor: mon,
	}
}

// Handler returns the HTTP routes. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/snapshot", s.handleSnapshot)

	return mux
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	errFactory := errors.New()

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown failed")
		}
	}()

	logger.Info().Str("addr", s.addr).Msg("Serving telemetry")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errFactory.Wrap(ErrServeFailed, err)
	}

	return nil
}

// handleSnapshot implements the pull model: the latest combined
// snapshot as JSON, or a formatted text rendering with ?format=text.
// Responds 204 before the first tick has completed.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, ok := s.monitor.LatestSnapshot()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, renderSnapshot(snapshot))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		logger.Debug().Err(err).Msg("Failed to encode snapshot")
	}
}
