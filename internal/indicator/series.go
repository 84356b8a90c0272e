package indicator

import (
	"encoding/json"
	"strconv"
)

// NullFloat is an indicator reading that may not be available yet.
// An invalid reading means "no signal possible", never zero.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Some wraps a defined reading.
func Some(v float64) NullFloat { return NullFloat{Float64: v, Valid: true} }

// MarshalJSON encodes invalid readings as null.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// UnmarshalJSON accepts null or a number.
func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullFloat{}
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*n = Some(v)
	return nil
}

// Series replays closes through ind and records its value after each update.
func Series(ind Indicator, closes []float64) []NullFloat {
	out := make([]NullFloat, len(closes))
	for i, c := range closes {
		ind.Update(c)
		if ind.Ready() {
			out[i] = Some(ind.Value())
		}
	}
	return out
}

// SMASeries returns the simple moving average of closes. Index i is valid only
// when i >= period-1. A non-positive period yields an all-invalid series.
func SMASeries(closes []float64, period int) []NullFloat {
	if period <= 0 {
		return make([]NullFloat, len(closes))
	}
	return Series(NewSMA(period), closes)
}

// RSISeries returns Wilder's RSI of closes. Index i is valid only when i >= period.
// A non-positive period yields an all-invalid series.
func RSISeries(closes []float64, period int) []NullFloat {
	if period <= 0 {
		return make([]NullFloat, len(closes))
	}
	return Series(NewRSI(period), closes)
}
