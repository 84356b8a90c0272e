package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"crypto-backtest/internal/model"
)

const hourMs = int64(3_600_000)

func hourly(n int, start int64) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		p := float64(100 + i)
		out[i] = model.Candle{Timestamp: start + int64(i)*hourMs, Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 5}
	}
	return out
}

func TestWriterReader_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candles.db")
	ctx := context.Background()

	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	// 3 days of hourly candles, written in two overlapping batches.
	all := hourly(72, 1_700_000_000_000)
	if err := w.SaveCandles(ctx, "BTCUSDT", "1h", all[:50]); err != nil {
		t.Fatal(err)
	}
	if err := w.SaveCandles(ctx, "BTCUSDT", "1h", all[40:]); err != nil {
		t.Fatal(err)
	}
	if err := w.SaveCandles(ctx, "ETHUSDT", "1h", hourly(10, 0)); err != nil {
		t.Fatal(err)
	}

	last, err := w.LastTimestamp(ctx, "BTCUSDT", "1h")
	if err != nil || last != all[71].Timestamp {
		t.Errorf("last ts: %d %v", last, err)
	}

	r, err := NewReader(path, "1h")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got, err := r.FetchHistory(ctx, "bitcoin", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 24 {
		t.Fatalf("len: got %d, want 24", len(got))
	}
	if got[0] != all[48] || got[23] != all[71] {
		t.Errorf("window: first=%+v last=%+v", got[0], got[23])
	}
	if !model.Ordered(got) {
		t.Error("series not ascending")
	}

	got, err = r.FetchHistory(ctx, "bitcoin", 30)
	if err != nil || len(got) != 72 {
		t.Errorf("full: len=%d err=%v", len(got), err)
	}
}

func TestReader_EmptyAndUnknown(t *testing.T) {
	r, err := NewReader(filepath.Join(t.TempDir(), "empty.db"), "1h")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	for _, coin := range []string{"bitcoin", "no-such-coin"} {
		got, err := r.FetchHistory(context.Background(), coin, 7)
		if err != nil || len(got) != 0 {
			t.Errorf("%s: got=%v err=%v", coin, got, err)
		}
	}
}

func TestNewReader_RejectsInterval(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "x.db"), "7x"); err == nil {
		t.Error("expected error")
	}
}

func TestWriter_LastTimestampEmpty(t *testing.T) {
	w, err := New(WriterConfig{DBPath: filepath.Join(t.TempDir(), "c.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if ts, err := w.LastTimestamp(context.Background(), "BTCUSDT", "1h"); err != nil || ts != 0 {
		t.Errorf("ts=%d err=%v", ts, err)
	}
}
