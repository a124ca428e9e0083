// Package accounting provides the cash ledger and position book shared by
// the backtest engine and the paper trader.
package accounting

// Ledger tracks the cash balance and the commission policy of one
// simulation. Cash is mutated only by fills and can never go negative:
// callers check affordability before committing a trade.
type Ledger struct {
	initialCapital float64
	cash           float64
	commissionRate float64 // fraction of notional, charged on both legs
}

// NewLedger creates a ledger with the given starting capital and
// commission rate (fraction of notional, e.g. 0.001 for 0.1%).
func NewLedger(initialCapital, commissionRate float64) *Ledger {
	return &Ledger{
		initialCapital: initialCapital,
		cash:           initialCapital,
		commissionRate: commissionRate,
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// InitialCapital returns the starting capital.
func (l *Ledger) InitialCapital() float64 {
	return l.initialCapital
}

// CommissionRate returns the commission rate.
func (l *Ledger) CommissionRate() float64 {
	return l.commissionRate
}

// Commission returns the commission charged on the given notional value.
func (l *Ledger) Commission(notional float64) float64 {
	return notional * l.commissionRate
}

// Credit adds amount to the cash balance.
func (l *Ledger) Credit(amount float64) {
	l.cash += amount
}

// Debit removes amount from the cash balance. Returns ErrInsufficientFunds
// without mutating state if the debit would drive cash negative.
func (l *Ledger) Debit(amount float64) error {
	if amount > l.cash {
		return ErrInsufficientFunds
	}
	l.cash -= amount
	return nil
}
