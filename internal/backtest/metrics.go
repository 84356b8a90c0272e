package backtest

import "crypto-backtest/internal/model"

// Metrics summarises a simulation. Only closed round trips (SELLs) count
// as trades; an open position contributes to FinalCapital only.
type Metrics struct {
	TotalProfit      float64 `json:"total_profit"`
	TotalProfitPct   float64 `json:"total_profit_pct"`
	WinRate          float64 `json:"win_rate"`
	ProfitableTrades int     `json:"profitable_trades"`
	LosingTrades     int     `json:"losing_trades"`
	TotalTrades      int     `json:"total_trades"`
	FinalCapital     float64 `json:"final_capital"`
	AvgProfit        float64 `json:"avg_profit"`
	MaxProfit        float64 `json:"max_profit"`
	MaxLoss          float64 `json:"max_loss"`
	MaxDrawdownPct   float64 `json:"max_drawdown_pct"`
}

// ComputeMetrics reduces the final account, the ledger and the per-candle
// equity curve into summary statistics.
func ComputeMetrics(acct model.Account, lastClose float64, trades []model.Trade, equity []float64) Metrics {
	m := Metrics{FinalCapital: acct.Equity(lastClose)}
	m.TotalProfit = m.FinalCapital - InitialCapital
	m.TotalProfitPct = 100 * m.TotalProfit / InitialCapital

	var sum float64
	for i := range trades {
		t := &trades[i]
		if !t.Closed() {
			continue
		}
		p := *t.Profit
		if m.TotalTrades == 0 || p > m.MaxProfit {
			m.MaxProfit = p
		}
		if m.TotalTrades == 0 || p < m.MaxLoss {
			m.MaxLoss = p
		}
		m.TotalTrades++
		sum += p
		if p > 0 {
			m.ProfitableTrades++
		} else {
			m.LosingTrades++
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = 100 * float64(m.ProfitableTrades) / float64(m.TotalTrades)
		m.AvgProfit = sum / float64(m.TotalTrades)
	}
	m.MaxDrawdownPct = maxDrawdownPct(equity)
	return m
}

// maxDrawdownPct is the largest peak-to-trough equity decline, as a
// positive percentage of the peak.
func maxDrawdownPct(equity []float64) float64 {
	var peak, dd float64
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			if d := 100 * (peak - e) / peak; d > dd {
				dd = d
			}
		}
	}
	return dd
}
