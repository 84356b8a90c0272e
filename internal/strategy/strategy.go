// Package strategy provides the trading strategies a backtest can replay.
//
// A Strategy precomputes its indicator series over the close prices once,
// then is asked for a Signal (BUY/SELL/HOLD) at every candle index given the
// current position. The set of strategies is closed: SMACrossover and RSI.
package strategy

import (
	"errors"
	"fmt"

	"crypto-backtest/internal/indicator"
	"crypto-backtest/internal/model"
)

var (
	// ErrInvalidConfig is returned for out-of-range or inconsistent parameters.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrUnknownStrategy is returned for an unrecognised strategy name.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// Strategy names accepted by Parse.
const (
	NameSMACrossover = "sma_crossover"
	NameRSI          = "rsi"
)

// Signal represents a trading decision for one candle.
type Signal struct {
	Action model.Action `json:"action"` // BUY, SELL, HOLD
	Reason string       `json:"reason"`
}

// Hold is the no-op signal.
var Hold = Signal{Action: model.ActionHold}

// Indicators holds the precomputed series a strategy evaluates against.
// Series a strategy does not use are nil.
type Indicators struct {
	ShortSMA []indicator.NullFloat
	LongSMA  []indicator.NullFloat
	RSI      []indicator.NullFloat
}

// Strategy is implemented only by SMACrossover and RSI.
type Strategy interface {
	// Name returns the wire name of the strategy (e.g. "sma_crossover").
	Name() string

	// Validate rejects out-of-range parameters with ErrInvalidConfig.
	Validate() error

	// MinCandles is the shortest series on which a signal can ever fire.
	MinCandles() int

	// Params returns the effective parameters, defaults applied.
	Params() Params

	// Compute derives the indicator series from close prices.
	Compute(closes []float64) Indicators

	// Evaluate returns the signal at index i. It only reads indicator
	// values at i and i-1.
	Evaluate(i int, ind Indicators, pos model.Position) Signal

	sealed()
}

// Parse builds a validated strategy from its wire name and parameters.
// Validation happens here, before any market data is fetched.
func Parse(name string, params Params) (Strategy, error) {
	var s Strategy
	switch name {
	case NameSMACrossover:
		cfg, err := smaCrossoverFromParams(params)
		if err != nil {
			return nil, err
		}
		s = cfg
	case NameRSI:
		cfg, err := rsiFromParams(params)
		if err != nil {
			return nil, err
		}
		s = cfg
	default:
		return nil, fmt.Errorf("%w: %q (expected %q or %q)", ErrUnknownStrategy, name, NameSMACrossover, NameRSI)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Info describes a strategy for discovery endpoints.
type Info struct {
	Name     string `json:"name"`
	Defaults Params `json:"defaults"`
}

// Catalog lists all strategies with their default parameters.
func Catalog() []Info {
	return []Info{
		{Name: NameSMACrossover, Defaults: DefaultSMACrossover().Params()},
		{Name: NameRSI, Defaults: DefaultRSI().Params()},
	}
}

// defined reports whether both readings of a series exist at i and i-1.
func defined(series []indicator.NullFloat, i int) bool {
	return i >= 1 && i < len(series) && series[i].Valid && series[i-1].Valid
}
