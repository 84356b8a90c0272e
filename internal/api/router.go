// Package api exposes the backtest engine over HTTP and WebSocket.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"crypto-backtest/internal/backtest"
	"crypto-backtest/internal/logger"
	"crypto-backtest/internal/metrics"
)

// Backtester runs one backtest request.
type Backtester interface {
	Run(ctx context.Context, req backtest.Request) (*backtest.Report, error)
}

// Server holds the dependencies shared by all handlers.
type Server struct {
	runner  Backtester
	metrics *metrics.Metrics
	health  *metrics.HealthStatus
	guard   *TOTPGuard
	log     *slog.Logger
	start   time.Time
}

// Option configures a Server.
type Option func(*Server)

func WithMetrics(m *metrics.Metrics) Option     { return func(s *Server) { s.metrics = m } }
func WithHealth(h *metrics.HealthStatus) Option { return func(s *Server) { s.health = h } }
func WithGuard(g *TOTPGuard) Option             { return func(s *Server) { s.guard = g } }
func WithLogger(l *slog.Logger) Option          { return func(s *Server) { s.log = l } }

func NewServer(runner Backtester, opts ...Option) *Server {
	s := &Server{runner: runner, log: slog.Default(), start: time.Now()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewRouter sets up HTTP routes for the API server.
func NewRouter(s *Server) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/api/backtest/strategies", s.handleStrategies)
	mux.Handle("/api/backtest/run", s.guard.Wrap(http.HandlerFunc(s.handleRun)))
	mux.Handle("/ws/backtest", s.guard.Wrap(http.HandlerFunc(s.handleWS)))

	return withRequestID(mux)
}

// withRequestID honours an incoming X-Request-ID or mints one, echoes it
// and stores it in the request context for logging.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = logger.NewRequestID("bt", time.Now())
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), rid)))
	})
}
