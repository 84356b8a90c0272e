package indicator

// RSI calculates the Relative Strength Index using Wilder's smoothing method.
// Average gain and average loss are each an SMMA over per-candle deltas, so
// the first period deltas seed a simple mean and later deltas are smoothed.
// Update is O(1) per candle, no history scans.
type RSI struct {
	period    int
	count     int
	prevClose float64
	gains     *SMMA
	losses    *SMMA
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		gains:  NewSMMA(period),
		losses: NewSMMA(period),
	}
}

func (r *RSI) Name() string { return "RSI" }

func (r *RSI) Update(price float64) {
	r.count++
	if r.count == 1 {
		// First candle, just record price, no delta yet
		r.prevClose = price
		return
	}

	delta := price - r.prevClose
	r.prevClose = price

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.gains.Update(gain)
	r.losses.Update(loss)
}

// Value returns the RSI in [0, 100]. A window with no losses is 100.
func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	avgLoss := r.losses.Value()
	if avgLoss == 0 {
		return 100.0
	}
	rs := r.gains.Value() / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

func (r *RSI) Ready() bool { return r.count > r.period }

// AvgGain and AvgLoss expose the smoothed averages (0 until Ready).
func (r *RSI) AvgGain() float64 { return r.gains.Value() }
func (r *RSI) AvgLoss() float64 { return r.losses.Value() }
