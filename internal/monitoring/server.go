package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Server exposes /metrics, /health and /status
type Server struct {
	http   *http.Server
	logger zerolog.Logger
}

// NewServer builds the monitoring mux on port
func NewServer(port int, collector *Collector, provider StatusProvider, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.Handle("/health", NewHealthChecker(provider))
	mux.Handle("/status", StatusHandler(provider))

	return &Server{
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "monitoring").Logger(),
	}
}

// Start serves in the background
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("Monitoring server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Monitoring server failed")
		}
	}()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
