package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the backtest service.
// All Observe/Inc helpers are safe to call on a nil *Metrics.
type Metrics struct {
	BacktestsTotal *prometheus.CounterVec // labels: strategy, outcome
	BacktestDur    prometheus.Histogram   // whole request incl. fetch
	SimulateDur    prometheus.Histogram   // pure engine time
	TradesTotal    *prometheus.CounterVec // labels: action

	// History source metrics
	HistoryFetchDur *prometheus.HistogramVec // labels: source
	CandlesFetched  *prometheus.CounterVec   // labels: source
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	ArchiveErrors   prometheus.Counter

	// Circuit breakers
	BreakerState *prometheus.GaugeVec   // labels: name; 0=closed, 1=open, 2=half-open
	BreakerTrips *prometheus.CounterVec // labels: name

	// WebSocket sessions
	WSConnections prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with reg.
// A nil reg registers with the Prometheus default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		BacktestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_runs_total",
			Help: "Backtest runs by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		BacktestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_run_duration_seconds",
			Help:    "End-to-end backtest latency including history fetch",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SimulateDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "backtest_simulate_duration_seconds",
			Help:    "Engine simulation latency per run",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_trades_total",
			Help: "Ledger entries produced by backtests",
		}, []string{"action"}),

		HistoryFetchDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backtest_history_fetch_duration_seconds",
			Help:    "Candle history fetch latency by source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		CandlesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_candles_fetched_total",
			Help: "Candles returned by history sources",
		}, []string{"source"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_history_cache_hits_total",
			Help: "History requests served from cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_history_cache_misses_total",
			Help: "History requests that missed the cache",
		}),
		ArchiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_history_archive_errors_total",
			Help: "Failed writes to the candle archive",
		}),

		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backtest_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
		BreakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backtest_circuit_breaker_trips_total",
			Help: "Times a circuit breaker tripped open",
		}, []string{"name"}),

		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_ws_connections",
			Help: "Open WebSocket backtest sessions",
		}),
	}

	reg.MustRegister(
		m.BacktestsTotal,
		m.BacktestDur,
		m.SimulateDur,
		m.TradesTotal,
		m.HistoryFetchDur,
		m.CandlesFetched,
		m.CacheHits,
		m.CacheMisses,
		m.ArchiveErrors,
		m.BreakerState,
		m.BreakerTrips,
		m.WSConnections,
	)

	return m
}

// ObserveBacktest records one finished backtest request.
func (m *Metrics) ObserveBacktest(strategy, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.BacktestsTotal.WithLabelValues(strategy, outcome).Inc()
	m.BacktestDur.Observe(d.Seconds())
}

// ObserveSimulation records engine time and the produced ledger.
func (m *Metrics) ObserveSimulation(d time.Duration, buys, sells int) {
	if m == nil {
		return
	}
	m.SimulateDur.Observe(d.Seconds())
	m.TradesTotal.WithLabelValues("BUY").Add(float64(buys))
	m.TradesTotal.WithLabelValues("SELL").Add(float64(sells))
}

// ObserveFetch records a history fetch from source.
func (m *Metrics) ObserveFetch(source string, d time.Duration, candles int) {
	if m == nil {
		return
	}
	m.HistoryFetchDur.WithLabelValues(source).Observe(d.Seconds())
	m.CandlesFetched.WithLabelValues(source).Add(float64(candles))
}

// CacheResult counts a cache hit or miss.
func (m *Metrics) CacheResult(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

// ArchiveFailed counts a failed archive write.
func (m *Metrics) ArchiveFailed() {
	if m == nil {
		return
	}
	m.ArchiveErrors.Inc()
}

// BreakerChanged records a breaker transition. to uses the breaker's
// numeric state encoding.
func (m *Metrics) BreakerChanged(name string, to int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(to))
	if to == 1 {
		m.BreakerTrips.WithLabelValues(name).Inc()
	}
}

// WSOpened and WSClosed track live WebSocket sessions.
func (m *Metrics) WSOpened() {
	if m != nil {
		m.WSConnections.Inc()
	}
}

func (m *Metrics) WSClosed() {
	if m != nil {
		m.WSConnections.Dec()
	}
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisEnabled   bool      `json:"redis_enabled"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteEnabled  bool      `json:"sqlite_enabled"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	HistorySource  string    `json:"history_source"`
	LastBacktestAt time.Time `json:"last_backtest_at"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus(historySource string) *HealthStatus {
	return &HealthStatus{
		HistorySource: historySource,
		StartedAt:     time.Now(),
	}
}

// MarkBacktest records the time of the last successful run.
func (h *HealthStatus) MarkBacktest(t time.Time) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.LastBacktestAt = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisEnabled = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a ping and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteEnabled = true
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Nil clients are skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if rdb != nil {
			h.CheckRedis(probeCtx, rdb)
		}
		if sqlDB != nil {
			h.CheckSQLite(probeCtx, sqlDB)
		}
	}
	check()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint. Disabled dependencies do not
// degrade the status; the cache is optional so a Redis outage only degrades.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if h.RedisEnabled && !h.RedisConnected {
		overallStatus = "degraded"
	}
	if h.SQLiteEnabled && !h.SQLiteOK {
		overallStatus = "degraded"
		if h.HistorySource == "sqlite" {
			overallStatus = "unhealthy"
			httpCode = http.StatusServiceUnavailable
		}
	}

	lastBacktest := ""
	if !h.LastBacktestAt.IsZero() {
		lastBacktest = h.LastBacktestAt.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		HistorySource   string  `json:"history_source"`
		RedisEnabled    bool    `json:"redis_enabled"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteEnabled   bool    `json:"sqlite_enabled"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastBacktestAt  string  `json:"last_backtest_at"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		HistorySource:   h.HistorySource,
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteEnabled:   h.SQLiteEnabled,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastBacktestAt:  lastBacktest,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server. gatherer defaults to the
// Prometheus default registry when nil.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler exposes the server mux for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
