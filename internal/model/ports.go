package model

import (
	"context"
	"errors"
)

// ── History Port Interfaces ──
// These interfaces decouple the backtest engine from concrete candle sources
// (Binance REST, Redis cache, SQLite archive).

// ErrDataUnavailable is returned by providers that know the requested
// series does not exist (unknown symbol, empty archive).
var ErrDataUnavailable = errors.New("data unavailable")

// HistoryProvider supplies an ascending candle series for a coin covering
// the last `days` days.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, coin string, days int) ([]Candle, error)
}

// HistoryProviderFunc adapts a function to HistoryProvider.
type HistoryProviderFunc func(ctx context.Context, coin string, days int) ([]Candle, error)

func (f HistoryProviderFunc) FetchHistory(ctx context.Context, coin string, days int) ([]Candle, error) {
	return f(ctx, coin, days)
}

// CandleCache stores fetched series under an opaque key.
type CandleCache interface {
	// GetCandles returns ok=false on a miss.
	GetCandles(ctx context.Context, key string) (candles []Candle, ok bool, err error)

	// SetCandles stores candles under key.
	SetCandles(ctx context.Context, key string, candles []Candle) error
}

// CandleArchive persists fetched series for offline replay.
type CandleArchive interface {
	// SaveCandles upserts candles for symbol/interval.
	SaveCandles(ctx context.Context, symbol, interval string, candles []Candle) error
}
