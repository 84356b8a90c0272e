package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"

	"crypto-backtest/internal/model"
)

// Reader replays archived candles as a model.HistoryProvider.
type Reader struct {
	db       *sql.DB
	interval string
}

// NewReader opens a SQLite connection for reading series of the given
// interval. The schema is created if missing so an empty archive reads
// as no data rather than failing.
func NewReader(dbPath, interval string) (*Reader, error) {
	if _, err := model.IntervalDuration(interval); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db, interval: interval}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// FetchHistory returns the newest days-worth of archived candles for coin,
// ordered by timestamp ascending. An unknown coin or an empty archive
// yields an empty series.
func (r *Reader) FetchHistory(ctx context.Context, coin string, days int) ([]model.Candle, error) {
	symbol, ok := model.SymbolFor(coin)
	if !ok {
		return nil, nil
	}
	limit, err := model.CandlesFor(r.interval, days)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume FROM (
			SELECT ts, open, high, low, close, volume
			FROM candles
			WHERE symbol = ? AND interval = ?
			ORDER BY ts DESC
			LIMIT ?
		) ORDER BY ts ASC
	`, symbol, r.interval, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	candles := make([]model.Candle, 0, limit)
	for rows.Next() {
		var c model.Candle
		var vol sql.NullFloat64
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &vol); err != nil {
			return nil, fmt.Errorf("sqlite scan candles: %w", err)
		}
		c.Volume = vol.Float64
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
