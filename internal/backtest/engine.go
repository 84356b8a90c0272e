// Package backtest replays a candle series through a strategy on a
// single-asset, all-in/all-out account and reports the trade ledger,
// a per-candle chart series and summary metrics.
package backtest

import (
	"crypto-backtest/internal/indicator"
	"crypto-backtest/internal/model"
	"crypto-backtest/internal/strategy"
)

// InitialCapital is the cash every simulation starts with.
const InitialCapital = 10000.0

// ChartPoint is one candle of the chart series. Indicator fields are
// present only for the strategy that computes them and are null until
// their window fills.
type ChartPoint struct {
	Timestamp int64                `json:"timestamp"`
	Price     float64              `json:"price"`
	Volume    float64              `json:"volume"`
	Equity    float64              `json:"equity"`
	ShortSMA  *indicator.NullFloat `json:"short_sma,omitempty"`
	LongSMA   *indicator.NullFloat `json:"long_sma,omitempty"`
	RSI       *indicator.NullFloat `json:"rsi,omitempty"`
}

// Result is the output of one simulation.
type Result struct {
	Metrics   Metrics       `json:"metrics"`
	ChartData []ChartPoint  `json:"chart_data"`
	Trades    []model.Trade `json:"trades"`
	Account   model.Account `json:"-"`
}

// Simulate walks candles once in order. At each index the strategy sees
// indicator values at i and i-1 only; BUY spends all cash at the close,
// SELL liquidates the whole position at the close. A position still open
// at the last candle is valued in FinalCapital but not closed.
//
// Simulate is a pure function of its inputs and safe for concurrent use.
func Simulate(candles []model.Candle, s strategy.Strategy) Result {
	closes := model.Closes(candles)
	ind := s.Compute(closes)
	acct := model.NewAccount(InitialCapital)

	trades := make([]model.Trade, 0)
	chart := make([]ChartPoint, len(candles))
	equity := make([]float64, len(candles))

	for i, c := range candles {
		sig := s.Evaluate(i, ind, acct.Position())
		switch sig.Action {
		case model.ActionBuy:
			if l, ok := acct.Buy(c.Close, c.Timestamp); ok {
				trades = append(trades, model.Trade{
					Timestamp: c.Timestamp,
					Action:    model.ActionBuy,
					Price:     c.Close,
					Quantity:  l.Quantity,
					Reason:    sig.Reason,
				})
			}
		case model.ActionSell:
			if l, profit, ok := acct.Sell(c.Close); ok {
				pct := 100 * (c.Close - l.EntryPrice) / l.EntryPrice
				trades = append(trades, model.Trade{
					Timestamp: c.Timestamp,
					Action:    model.ActionSell,
					Price:     c.Close,
					Quantity:  l.Quantity,
					Reason:    sig.Reason,
					Profit:    &profit,
					ProfitPct: &pct,
				})
			}
		}

		equity[i] = acct.Equity(c.Close)
		chart[i] = ChartPoint{
			Timestamp: c.Timestamp,
			Price:     c.Close,
			Volume:    c.Volume,
			Equity:    equity[i],
			ShortSMA:  at(ind.ShortSMA, i),
			LongSMA:   at(ind.LongSMA, i),
			RSI:       at(ind.RSI, i),
		}
	}

	lastClose := 0.0
	if n := len(candles); n > 0 {
		lastClose = candles[n-1].Close
	}

	return Result{
		Metrics:   ComputeMetrics(acct, lastClose, trades, equity),
		ChartData: chart,
		Trades:    trades,
		Account:   acct,
	}
}

func at(series []indicator.NullFloat, i int) *indicator.NullFloat {
	if series == nil {
		return nil
	}
	v := series[i]
	return &v
}
