// Package indicator provides technical indicator calculations over close prices.
//
// Streaming indicators implement the Indicator interface, receiving one close
// price at a time. Series helpers (SMA, RSI) replay a whole close series and
// return one aligned NullFloat per input index.
package indicator

// Indicator is the interface for all streaming technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA", "RSI").
	Name() string

	// Update feeds the next close price and recalculates.
	Update(price float64)

	// Value returns the current calculated value. Returns 0 if not Ready.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}
