// Package binance fetches historical klines from the Binance spot REST API
// and exposes them as a model.HistoryProvider.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"crypto-backtest/internal/breaker"
	"crypto-backtest/internal/model"
)

const (
	DefaultBaseURL = "https://api.binance.com/api/v3"

	// pageLimit is the maximum rows Binance returns per klines call.
	pageLimit = 1000
)

// StatusError is a non-200 reply from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("binance status %d: %s", e.Code, e.Body)
}

// Client is a minimal Binance REST client.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	cb      *breaker.Breaker
}

// New creates a client for base. An empty base uses the public API.
// A nil breaker gets a default one (5 failures, 30s reset).
func New(base string, cb *breaker.Breaker) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	if cb == nil {
		cb = breaker.New("binance", 5, 30*time.Second)
	}
	if cb.Neutral == nil {
		cb.Neutral = neutral
	}
	return &Client{
		BaseURL: base,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 15 * time.Second}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		cb: cb,
	}
}

// Klines returns candles of interval for symbol with open time in
// [start, end), ascending and without duplicates. It pages forward from
// start in pageLimit-sized calls.
func (c *Client) Klines(ctx context.Context, symbol, interval string, start, end time.Time) ([]model.Candle, error) {
	step, err := model.IntervalDuration(interval)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, fmt.Errorf("end must be after start")
	}

	var out []model.Candle
	cursor := start
	for cursor.Before(end) {
		rows, err := c.fetchKlines(ctx, symbol, interval, cursor, end)
		if err != nil {
			return nil, err
		}
		lastTS := int64(-1)
		for _, r := range rows {
			cdl, ok := rowToCandle(r)
			if !ok || cdl.Timestamp < start.UnixMilli() || cdl.Timestamp >= end.UnixMilli() {
				continue
			}
			out = append(out, cdl)
			lastTS = cdl.Timestamp
		}
		if len(rows) < pageLimit || lastTS < 0 {
			break
		}
		next := time.UnixMilli(lastTS).Add(step)
		if !next.After(cursor) {
			break
		}
		cursor = next
	}
	return dedupe(out), nil
}

func (c *Client) fetchKlines(ctx context.Context, symbol, interval string, start, end time.Time) ([][]json.Number, error) {
	u, err := url.Parse(c.BaseURL + "/klines")
	if err != nil {
		return nil, fmt.Errorf("binance url: %w", err)
	}
	q := u.Query()
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(end.UnixMilli()-1, 10))
	q.Set("limit", strconv.Itoa(pageLimit))
	u.RawQuery = q.Encode()

	var rows [][]json.Number
	err = c.cb.Execute(func() error {
		return c.getJSON(ctx, u.String(), &rows)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("binance request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("decode klines: %w", err)
	}
	return nil
}

// rowToCandle converts [openTime, open, high, low, close, volume, ...].
// Binance sends prices as strings; json.Number accepts both forms.
func rowToCandle(r []json.Number) (model.Candle, bool) {
	if len(r) < 6 {
		return model.Candle{}, false
	}
	ot, e1 := r[0].Int64()
	o, e2 := strconv.ParseFloat(r[1].String(), 64)
	h, e3 := strconv.ParseFloat(r[2].String(), 64)
	l, e4 := strconv.ParseFloat(r[3].String(), 64)
	cx, e5 := strconv.ParseFloat(r[4].String(), 64)
	v, e6 := strconv.ParseFloat(r[5].String(), 64)
	if e1 != nil || e2 != nil || e3 != nil || e4 != nil || e5 != nil || e6 != nil {
		return model.Candle{}, false
	}
	return model.Candle{Timestamp: ot, Open: o, High: h, Low: l, Close: cx, Volume: v}, true
}

func dedupe(in []model.Candle) []model.Candle {
	sort.SliceStable(in, func(i, j int) bool { return in[i].Timestamp < in[j].Timestamp })
	out := in[:0]
	for _, c := range in {
		if len(out) > 0 && c.Timestamp == out[len(out)-1].Timestamp {
			continue
		}
		out = append(out, c)
	}
	return out
}

// neutral keeps caller cancellations and client errors (bad symbol,
// bad interval) from tripping the breaker.
func neutral(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests
}
