package model

import "testing"

func TestSymbolFor(t *testing.T) {
	tests := []struct {
		coin string
		want string
		ok   bool
	}{
		{"bitcoin", "BTCUSDT", true},
		{"Ethereum", "ETHUSDT", true},
		{" solana ", "SOLUSDT", true},
		{"ripple", "XRPUSDT", true},
		{"BNBUSDT", "BNBUSDT", true},
		{"unknown-coin", "", false},
		{"btc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := SymbolFor(tt.coin)
		if got != tt.want || ok != tt.ok {
			t.Errorf("SymbolFor(%q) = %q,%v want %q,%v", tt.coin, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCandlesFor(t *testing.T) {
	tests := []struct {
		interval string
		days     int
		want     int
	}{
		{"1h", 30, 720},
		{"4h", 7, 42},
		{"1d", 180, 180},
		{"15m", 1, 96},
	}
	for _, tt := range tests {
		got, err := CandlesFor(tt.interval, tt.days)
		if err != nil || got != tt.want {
			t.Errorf("CandlesFor(%s,%d) = %d,%v want %d", tt.interval, tt.days, got, err, tt.want)
		}
	}
	if _, err := CandlesFor("7x", 1); err == nil {
		t.Error("expected error for unknown interval")
	}
}
