// cmd/backtestd serves the backtest engine over HTTP and WebSocket.
//
// History comes from Binance klines (optionally archived to SQLite and
// cached in Redis) or, with HISTORY_SOURCE=sqlite, from the archive alone.
package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"crypto-backtest/config"
	"crypto-backtest/internal/api"
	"crypto-backtest/internal/backtest"
	"crypto-backtest/internal/breaker"
	"crypto-backtest/internal/history"
	"crypto-backtest/internal/logger"
	"crypto-backtest/internal/marketdata/binance"
	"crypto-backtest/internal/metrics"
	"crypto-backtest/internal/model"
	"crypto-backtest/internal/notification"
	redisstore "crypto-backtest/internal/store/redis"
	sqlitestore "crypto-backtest/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[backtestd] config: %v", err)
	}
	lg := logger.Init("backtestd", logger.ParseLevel(cfg.LogLevel))
	lg.Info("starting", slog.String("history_source", cfg.HistorySource), slog.String("interval", cfg.BinanceInterval))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics + health
	prom := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus(cfg.HistorySource)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health, nil)
	metricsSrv.Start()

	// Notifications
	var channels notification.Multi
	if cfg.NotifyWebhookURL != "" {
		channels = append(channels, notification.NewWebhookNotifier(cfg.NotifyWebhookURL))
	}
	if cfg.TelegramBotToken != "" {
		channels = append(channels, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	var notifier *notification.Dispatcher
	if len(channels) > 0 {
		notifier = notification.NewDispatcher(channels, 64)
		defer notifier.Close()
	}

	onBreaker := func(name string, from, to breaker.State) {
		prom.BreakerChanged(name, int(to))
		lg.Warn("circuit breaker state change", slog.String("name", name),
			slog.String("from", from.String()), slog.String("to", to.String()))
		if notifier != nil {
			notifier.Send(ctx, notification.BreakerAlert(name, from.String(), to.String()))
		}
	}

	// History chain
	var (
		provider model.HistoryProvider
		rdb      *goredis.Client
		sqlDB    *sql.DB
	)
	switch cfg.HistorySource {
	case config.SourceSQLite:
		reader, err := sqlitestore.NewReader(cfg.SQLitePath, cfg.BinanceInterval)
		if err != nil {
			log.Fatalf("[backtestd] sqlite reader: %v", err)
		}
		defer reader.Close()
		sqlDB = reader.DB()
		provider = history.NewMetered(reader, config.SourceSQLite, prom)

	default:
		cb := breaker.New("binance", 5, 30*time.Second)
		cb.OnStateChange = onBreaker
		bp, err := binance.NewProvider(binance.New(cfg.BinanceBaseURL, cb), cfg.BinanceInterval)
		if err != nil {
			log.Fatalf("[backtestd] binance: %v", err)
		}
		provider = history.NewMetered(bp, config.SourceBinance, prom)

		if cfg.ArchiveEnabled {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				log.Fatalf("[backtestd] sqlite dir: %v", err)
			}
			writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
			if err != nil {
				log.Fatalf("[backtestd] sqlite writer: %v", err)
			}
			defer writer.Close()
			sqlDB = writer.DB()
			provider = history.NewArchiving(provider, writer, cfg.BinanceInterval, prom)
		}
	}

	if cfg.RedisAddr != "" {
		cb := breaker.New("redis", 5, 10*time.Second)
		cb.OnStateChange = onBreaker
		cache, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			TTL:      cfg.CacheTTL,
		}, cb)
		if err != nil {
			// The cache is optional; run uncached rather than refuse to start.
			lg.Warn("redis unavailable, cache disabled", slog.String("error", err.Error()))
		} else {
			defer cache.Close()
			rdb = cache.Client()
			provider = history.NewCached(provider, cache, cfg.BinanceInterval, prom)
		}
	}

	health.StartLivenessChecker(ctx, rdb, sqlDB, 10*time.Second)

	// Engine + API
	opts := []backtest.Option{
		backtest.WithMetrics(prom),
		backtest.WithLogger(lg),
		backtest.WithTimeout(cfg.BacktestTimeout),
		backtest.WithMaxDays(cfg.MaxDays),
	}
	if notifier != nil {
		opts = append(opts, backtest.WithNotifier(notifier))
	}
	runner := backtest.NewRunner(provider, opts...)
	guard := api.NewTOTPGuard(cfg.APITOTPSecret)
	apiSrv := api.NewServer(runner,
		api.WithMetrics(prom),
		api.WithHealth(health),
		api.WithGuard(guard),
		api.WithLogger(lg),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(apiSrv),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		lg.Info("serving", slog.String("addr", cfg.HTTPAddr), slog.Bool("totp", guard.Enabled()))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[backtestd] server error: %v", err)
		}
	}()

	<-sigCh
	lg.Info("shutting down")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
}
