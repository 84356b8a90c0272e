package strategy

import (
	"errors"
	"strings"
	"testing"

	"crypto-backtest/internal/indicator"
	"crypto-backtest/internal/model"
)

func series(vals ...float64) []indicator.NullFloat {
	out := make([]indicator.NullFloat, len(vals))
	for i, v := range vals {
		if v >= 0 {
			out[i] = indicator.Some(v)
		}
	}
	return out
}

func TestParse_Defaults(t *testing.T) {
	s, err := Parse(NameSMACrossover, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.(SMACrossover); got != DefaultSMACrossover() {
		t.Errorf("got %+v, want defaults", got)
	}

	r, err := Parse(NameRSI, Params{"rsi_period": 9})
	if err != nil {
		t.Fatal(err)
	}
	if got := r.(RSI); got.Period != 9 || got.Oversold != 30 || got.Overbought != 70 {
		t.Errorf("unexpected RSI params: %+v", got)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		params   Params
		want     error
		field    string
	}{
		{"short >= long", NameSMACrossover, Params{"short_period": 30, "long_period": 10}, ErrInvalidConfig, "short_period"},
		{"short == long", NameSMACrossover, Params{"short_period": 10, "long_period": 10}, ErrInvalidConfig, "short_period"},
		{"zero short", NameSMACrossover, Params{"short_period": 0}, ErrInvalidConfig, "short_period"},
		{"negative long", NameSMACrossover, Params{"short_period": 2, "long_period": -1}, ErrInvalidConfig, "long_period"},
		{"fractional", NameSMACrossover, Params{"short_period": 2.5}, ErrInvalidConfig, "short_period"},
		{"rsi period", NameRSI, Params{"period": 0}, ErrInvalidConfig, "period"},
		{"oversold >= overbought", NameRSI, Params{"oversold": 70, "overbought": 30}, ErrInvalidConfig, "oversold"},
		{"overbought 100", NameRSI, Params{"overbought": 100}, ErrInvalidConfig, "overbought"},
		{"oversold 0", NameRSI, Params{"oversold": 0}, ErrInvalidConfig, "oversold"},
		{"unknown", "macd", nil, ErrUnknownStrategy, "macd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.strategy, tt.params)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %q", err, tt.field)
			}
		})
	}
}

func TestParseParams(t *testing.T) {
	p, err := ParseParams("short_period=5, long_period=20")
	if err != nil {
		t.Fatal(err)
	}
	if p["short_period"] != 5 || p["long_period"] != 20 {
		t.Errorf("unexpected params: %v", p)
	}
	if p.String() != "long_period=20,short_period=5" {
		t.Errorf("String() = %q", p.String())
	}
	if _, err := ParseParams("short_period"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := ParseParams("short_period=abc"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSMACrossover_Evaluate(t *testing.T) {
	s := SMACrossover{ShortPeriod: 2, LongPeriod: 3}
	// -1 marks an undefined reading.
	ind := Indicators{
		ShortSMA: series(-1, 5, 4, 6, 6, 3),
		LongSMA:  series(-1, -1, 5, 5, 5, 5),
	}

	// i=2: long undefined at i-1, no signal even though short < long.
	if sig := s.Evaluate(2, ind, model.Flat{}); sig.Action != model.ActionHold {
		t.Errorf("i=2: got %s, want HOLD", sig.Action)
	}
	// i=3: 4<=5 then 6>5 → golden cross.
	sig := s.Evaluate(3, ind, model.Flat{})
	if sig.Action != model.ActionBuy {
		t.Fatalf("i=3: got %s, want BUY", sig.Action)
	}
	if sig.Reason != "SMA(2) crossed above SMA(3)" {
		t.Errorf("reason = %q", sig.Reason)
	}
	// Same cross while already long is inapplicable.
	if sig := s.Evaluate(3, ind, model.Long{Quantity: 1}); sig.Action != model.ActionHold {
		t.Errorf("i=3 long: got %s, want HOLD", sig.Action)
	}
	// i=4: no cross.
	if sig := s.Evaluate(4, ind, model.Long{Quantity: 1}); sig.Action != model.ActionHold {
		t.Errorf("i=4: got %s, want HOLD", sig.Action)
	}
	// i=5: 6>=5 then 3<5 → death cross, only while long.
	if sig := s.Evaluate(5, ind, model.Long{Quantity: 1}); sig.Action != model.ActionSell {
		t.Errorf("i=5: got %s, want SELL", sig.Action)
	}
	if sig := s.Evaluate(5, ind, model.Flat{}); sig.Action != model.ActionHold {
		t.Errorf("i=5 flat: got %s, want HOLD", sig.Action)
	}
	// Out of range never panics.
	if sig := s.Evaluate(0, ind, model.Flat{}); sig.Action != model.ActionHold {
		t.Errorf("i=0: got %s, want HOLD", sig.Action)
	}
	if sig := s.Evaluate(99, ind, model.Flat{}); sig.Action != model.ActionHold {
		t.Errorf("i=99: got %s, want HOLD", sig.Action)
	}
}

func TestRSI_Evaluate(t *testing.T) {
	r := DefaultRSI()
	ind := Indicators{RSI: series(-1, 45, 30, 29, 25, 70, 71, 90)}

	// 45 -> 30: not below 30 yet.
	if sig := r.Evaluate(2, ind, model.Flat{}); sig.Action != model.ActionHold {
		t.Errorf("i=2: got %s, want HOLD", sig.Action)
	}
	// 30 -> 29: crosses down through oversold.
	sig := r.Evaluate(3, ind, model.Flat{})
	if sig.Action != model.ActionBuy {
		t.Fatalf("i=3: got %s, want BUY", sig.Action)
	}
	if sig.Reason != "RSI(29.0) crossed below 30 (oversold)" {
		t.Errorf("reason = %q", sig.Reason)
	}
	// 29 -> 25: already below, no new cross.
	if sig := r.Evaluate(4, ind, model.Flat{}); sig.Action != model.ActionHold {
		t.Errorf("i=4: got %s, want HOLD", sig.Action)
	}
	// 25 -> 70: not above 70.
	if sig := r.Evaluate(5, ind, model.Long{Quantity: 1}); sig.Action != model.ActionHold {
		t.Errorf("i=5: got %s, want HOLD", sig.Action)
	}
	// 70 -> 71: crosses up through overbought.
	if sig := r.Evaluate(6, ind, model.Long{Quantity: 1}); sig.Action != model.ActionSell {
		t.Errorf("i=6: got %s, want SELL", sig.Action)
	}
	// 71 -> 90: already above.
	if sig := r.Evaluate(7, ind, model.Long{Quantity: 1}); sig.Action != model.ActionHold {
		t.Errorf("i=7: got %s, want HOLD", sig.Action)
	}
}

func TestMinCandles(t *testing.T) {
	if got := (SMACrossover{ShortPeriod: 5, LongPeriod: 10}).MinCandles(); got != 11 {
		t.Errorf("SMA MinCandles = %d, want 11", got)
	}
	if got := DefaultRSI().MinCandles(); got != 16 {
		t.Errorf("RSI MinCandles = %d, want 16", got)
	}
}

func TestCatalog(t *testing.T) {
	c := Catalog()
	if len(c) != 2 || c[0].Name != NameSMACrossover || c[1].Name != NameRSI {
		t.Fatalf("unexpected catalog: %+v", c)
	}
	if c[1].Defaults["period"] != 14 {
		t.Errorf("rsi default period = %v", c[1].Defaults["period"])
	}
}
