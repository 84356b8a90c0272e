package model

// Action is a trading action carried by signals and ledger entries.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Trade is one entry of the backtest ledger.
// Profit and ProfitPct are nil on BUY and set on SELL to the realized
// result of the round trip.
type Trade struct {
	Timestamp int64    `json:"timestamp"`
	Action    Action   `json:"action"`
	Price     float64  `json:"price"`
	Quantity  float64  `json:"quantity"`
	Reason    string   `json:"reason"`
	Profit    *float64 `json:"profit"`
	ProfitPct *float64 `json:"profit_pct"`
}

// Closed reports whether the trade closes a round trip.
func (t *Trade) Closed() bool {
	return t.Action == ActionSell && t.Profit != nil
}
