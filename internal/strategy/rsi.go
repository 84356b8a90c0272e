package strategy

import (
	"fmt"

	"crypto-backtest/internal/indicator"
	"crypto-backtest/internal/model"
)

// Compile-time interface check.
var _ Strategy = RSI{}

// RSI is a contrarian mean-reversion strategy: buy the dip when RSI falls
// through the oversold level, sell when it rises through overbought.
type RSI struct {
	Period     int `json:"period"`
	Oversold   int `json:"oversold"`
	Overbought int `json:"overbought"`
}

// DefaultRSI returns RSI(14) with 30/70 thresholds.
func DefaultRSI() RSI {
	return RSI{Period: 14, Oversold: 30, Overbought: 70}
}

func rsiFromParams(p Params) (RSI, error) {
	r := DefaultRSI()
	var err error
	if r.Period, err = p.firstInt(r.Period, "period", "rsi_period"); err != nil {
		return r, err
	}
	if r.Oversold, err = p.Int("oversold", r.Oversold); err != nil {
		return r, err
	}
	if r.Overbought, err = p.Int("overbought", r.Overbought); err != nil {
		return r, err
	}
	return r, nil
}

func (r RSI) Name() string { return NameRSI }
func (RSI) sealed()        {}

func (r RSI) Validate() error {
	if r.Period <= 0 {
		return fmt.Errorf("%w: period must be > 0, got %d", ErrInvalidConfig, r.Period)
	}
	if r.Oversold <= 0 {
		return fmt.Errorf("%w: oversold must be > 0, got %d", ErrInvalidConfig, r.Oversold)
	}
	if r.Overbought >= 100 {
		return fmt.Errorf("%w: overbought must be < 100, got %d", ErrInvalidConfig, r.Overbought)
	}
	if r.Oversold >= r.Overbought {
		return fmt.Errorf("%w: oversold (%d) must be less than overbought (%d)", ErrInvalidConfig, r.Oversold, r.Overbought)
	}
	return nil
}

// MinCandles: RSI is defined from index period and a cross needs it at i-1.
func (r RSI) MinCandles() int { return r.Period + 2 }

func (r RSI) Params() Params {
	return Params{
		"period":     float64(r.Period),
		"oversold":   float64(r.Oversold),
		"overbought": float64(r.Overbought),
	}
}

func (r RSI) Compute(closes []float64) Indicators {
	return Indicators{RSI: indicator.RSISeries(closes, r.Period)}
}

func (r RSI) Evaluate(i int, ind Indicators, pos model.Position) Signal {
	if !defined(ind.RSI, i) {
		return Hold
	}
	prev, cur := ind.RSI[i-1].Float64, ind.RSI[i].Float64
	oversold, overbought := float64(r.Oversold), float64(r.Overbought)

	switch pos.(type) {
	case model.Flat:
		if prev >= oversold && cur < oversold {
			return Signal{
				Action: model.ActionBuy,
				Reason: fmt.Sprintf("RSI(%.1f) crossed below %d (oversold)", cur, r.Oversold),
			}
		}
	case model.Long:
		if prev <= overbought && cur > overbought {
			return Signal{
				Action: model.ActionSell,
				Reason: fmt.Sprintf("RSI(%.1f) crossed above %d (overbought)", cur, r.Overbought),
			}
		}
	}
	return Hold
}
