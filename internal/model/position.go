package model

// Position is either Flat or Long. The set of implementations is closed.
type Position interface {
	isPosition()
}

// Flat holds no asset.
type Flat struct{}

// Long holds the whole account in the asset.
type Long struct {
	EntryPrice float64 `json:"entry_price"`
	Quantity   float64 `json:"quantity"`
	EntryTime  int64   `json:"entry_time"` // epoch ms
}

func (Flat) isPosition() {}
func (Long) isPosition() {}

// IsLong reports whether p is an open long position.
func IsLong(p Position) bool {
	_, ok := p.(Long)
	return ok
}

// Account is the single-asset capital state of a simulation.
// While Long, all capital sits in the position and Cash is always zero;
// while Flat, all capital is Cash.
type Account struct {
	cash     float64
	position Position
}

// NewAccount opens a flat account funded with cash.
func NewAccount(cash float64) Account {
	return Account{cash: cash, position: Flat{}}
}

func (a Account) Cash() float64      { return a.cash }
func (a Account) Position() Position { return a.position }

// Quantity returns the held asset quantity (0 when flat).
func (a Account) Quantity() float64 {
	if l, ok := a.position.(Long); ok {
		return l.Quantity
	}
	return 0
}

// Equity values the account at the given price.
func (a Account) Equity(price float64) float64 {
	return a.cash + a.Quantity()*price
}

// Buy converts all cash into the asset at price. It returns the opened
// position and false if the account was not flat or has no usable cash.
func (a *Account) Buy(price float64, ts int64) (Long, bool) {
	if IsLong(a.position) || price <= 0 || a.cash <= 0 {
		return Long{}, false
	}
	l := Long{EntryPrice: price, Quantity: a.cash / price, EntryTime: ts}
	a.cash = 0
	a.position = l
	return l, true
}

// Sell liquidates the whole position at price and returns the closed
// position with its realized profit. It returns false when flat.
func (a *Account) Sell(price float64) (Long, float64, bool) {
	l, ok := a.position.(Long)
	if !ok {
		return Long{}, 0, false
	}
	a.cash = l.Quantity * price
	a.position = Flat{}
	return l, l.Quantity * (price - l.EntryPrice), true
}
