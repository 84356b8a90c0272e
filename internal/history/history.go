// Package history decorates a model.HistoryProvider with caching,
// archiving and fetch metrics. Decorators compose:
//
//	Cached(Archiving(Metered(binance)))
//
// so that cache hits skip both the exchange and the archive.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crypto-backtest/internal/logger"
	"crypto-backtest/internal/metrics"
	"crypto-backtest/internal/model"
)

// CacheKey identifies one fetched series in the cache.
func CacheKey(coin, interval string, days int) string {
	return fmt.Sprintf("history:%s:%s:%d", coin, interval, days)
}

// Cached serves repeated requests from a CandleCache and falls through to
// next on a miss. Cache failures degrade to a miss.
type Cached struct {
	next     model.HistoryProvider
	cache    model.CandleCache
	interval string
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewCached(next model.HistoryProvider, cache model.CandleCache, interval string, m *metrics.Metrics) *Cached {
	return &Cached{next: next, cache: cache, interval: interval, metrics: m, log: slog.Default()}
}

func (c *Cached) FetchHistory(ctx context.Context, coin string, days int) ([]model.Candle, error) {
	key := CacheKey(coin, c.interval, days)

	candles, ok, err := c.cache.GetCandles(ctx, key)
	if err != nil {
		c.log.Warn("history cache read failed", append(logger.Attrs(ctx), slog.String("key", key), slog.String("error", err.Error()))...)
	}
	if ok {
		c.metrics.CacheResult(true)
		return candles, nil
	}
	c.metrics.CacheResult(false)

	candles, err = c.next.FetchHistory(ctx, coin, days)
	if err != nil {
		return nil, err
	}
	if len(candles) > 0 {
		if err := c.cache.SetCandles(ctx, key, candles); err != nil {
			c.log.Warn("history cache write failed", append(logger.Attrs(ctx), slog.String("key", key), slog.String("error", err.Error()))...)
		}
	}
	return candles, nil
}

// Archiving persists every successfully fetched series. Archive failures
// are logged and counted but never fail the fetch.
type Archiving struct {
	next     model.HistoryProvider
	archive  model.CandleArchive
	interval string
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewArchiving(next model.HistoryProvider, archive model.CandleArchive, interval string, m *metrics.Metrics) *Archiving {
	return &Archiving{next: next, archive: archive, interval: interval, metrics: m, log: slog.Default()}
}

func (a *Archiving) FetchHistory(ctx context.Context, coin string, days int) ([]model.Candle, error) {
	candles, err := a.next.FetchHistory(ctx, coin, days)
	if err != nil || len(candles) == 0 {
		return candles, err
	}
	symbol, ok := model.SymbolFor(coin)
	if !ok {
		return candles, nil
	}
	if err := a.archive.SaveCandles(ctx, symbol, a.interval, candles); err != nil {
		a.metrics.ArchiveFailed()
		a.log.Warn("history archive failed", append(logger.Attrs(ctx),
			slog.String("symbol", symbol), slog.Int("candles", len(candles)), slog.String("error", err.Error()))...)
	}
	return candles, nil
}

// Metered records latency and candle counts for a named source.
type Metered struct {
	next    model.HistoryProvider
	source  string
	metrics *metrics.Metrics
}

func NewMetered(next model.HistoryProvider, source string, m *metrics.Metrics) *Metered {
	return &Metered{next: next, source: source, metrics: m}
}

func (m *Metered) FetchHistory(ctx context.Context, coin string, days int) ([]model.Candle, error) {
	start := time.Now()
	candles, err := m.next.FetchHistory(ctx, coin, days)
	if err == nil {
		m.metrics.ObserveFetch(m.source, time.Since(start), len(candles))
	}
	return candles, err
}
