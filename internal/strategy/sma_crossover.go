package strategy

import (
	"fmt"

	"crypto-backtest/internal/indicator"
	"crypto-backtest/internal/model"
)

// Compile-time interface check.
var _ Strategy = SMACrossover{}

// SMACrossover implements a simple SMA crossover strategy.
//
// Buy signal: short SMA crosses above long SMA (golden cross) while flat.
// Sell signal: short SMA crosses below long SMA (death cross) while long.
type SMACrossover struct {
	ShortPeriod int `json:"short_period"`
	LongPeriod  int `json:"long_period"`
}

// DefaultSMACrossover returns the 10/30 crossover.
func DefaultSMACrossover() SMACrossover {
	return SMACrossover{ShortPeriod: 10, LongPeriod: 30}
}

func smaCrossoverFromParams(p Params) (SMACrossover, error) {
	s := DefaultSMACrossover()
	var err error
	if s.ShortPeriod, err = p.Int("short_period", s.ShortPeriod); err != nil {
		return s, err
	}
	if s.LongPeriod, err = p.Int("long_period", s.LongPeriod); err != nil {
		return s, err
	}
	return s, nil
}

func (s SMACrossover) Name() string { return NameSMACrossover }
func (SMACrossover) sealed()        {}

func (s SMACrossover) Validate() error {
	if s.ShortPeriod <= 0 {
		return fmt.Errorf("%w: short_period must be > 0, got %d", ErrInvalidConfig, s.ShortPeriod)
	}
	if s.LongPeriod <= 0 {
		return fmt.Errorf("%w: long_period must be > 0, got %d", ErrInvalidConfig, s.LongPeriod)
	}
	if s.ShortPeriod >= s.LongPeriod {
		return fmt.Errorf("%w: short_period (%d) must be less than long_period (%d)", ErrInvalidConfig, s.ShortPeriod, s.LongPeriod)
	}
	return nil
}

// MinCandles: the long SMA is defined from index long-1 and a cross needs
// it at i-1 as well.
func (s SMACrossover) MinCandles() int { return s.LongPeriod + 1 }

func (s SMACrossover) Params() Params {
	return Params{"short_period": float64(s.ShortPeriod), "long_period": float64(s.LongPeriod)}
}

func (s SMACrossover) Compute(closes []float64) Indicators {
	return Indicators{
		ShortSMA: indicator.SMASeries(closes, s.ShortPeriod),
		LongSMA:  indicator.SMASeries(closes, s.LongPeriod),
	}
}

func (s SMACrossover) Evaluate(i int, ind Indicators, pos model.Position) Signal {
	if !defined(ind.ShortSMA, i) || !defined(ind.LongSMA, i) {
		return Hold
	}
	prevShort, prevLong := ind.ShortSMA[i-1].Float64, ind.LongSMA[i-1].Float64
	short, long := ind.ShortSMA[i].Float64, ind.LongSMA[i].Float64

	switch pos.(type) {
	case model.Flat:
		if prevShort <= prevLong && short > long {
			return Signal{
				Action: model.ActionBuy,
				Reason: fmt.Sprintf("SMA(%d) crossed above SMA(%d)", s.ShortPeriod, s.LongPeriod),
			}
		}
	case model.Long:
		if prevShort >= prevLong && short < long {
			return Signal{
				Action: model.ActionSell,
				Reason: fmt.Sprintf("SMA(%d) crossed below SMA(%d)", s.ShortPeriod, s.LongPeriod),
			}
		}
	}
	return Hold
}
