package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"crypto-backtest/internal/model"
)

// Provider serves fetch_history from Binance klines of a fixed interval.
type Provider struct {
	client   *Client
	interval string
	now      func() time.Time
}

// NewProvider creates a Provider. interval is a Binance kline interval
// such as "1h".
func NewProvider(client *Client, interval string) (*Provider, error) {
	if _, err := model.IntervalDuration(interval); err != nil {
		return nil, err
	}
	return &Provider{client: client, interval: interval, now: time.Now}, nil
}

// Interval returns the kline interval served.
func (p *Provider) Interval() string { return p.interval }

// FetchHistory returns days*candlesPerDay closed candles ending at the
// most recent bucket boundary.
func (p *Provider) FetchHistory(ctx context.Context, coin string, days int) ([]model.Candle, error) {
	symbol, ok := model.SymbolFor(coin)
	if !ok {
		return nil, fmt.Errorf("%w: unknown coin %q", model.ErrDataUnavailable, coin)
	}
	step, _ := model.IntervalDuration(p.interval)
	n, _ := model.CandlesFor(p.interval, days)

	end := p.now().UTC().Truncate(step)
	start := end.Add(-time.Duration(n) * step)

	candles, err := p.client.Klines(ctx, symbol, p.interval, start, end)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s: %v", model.ErrDataUnavailable, symbol, err)
		}
		return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
	}
	return candles, nil
}
