package domain

// Position represents an open long holding in a single symbol.
// Invariant: Quantity > 0 while the entry exists; a position whose quantity
// reaches zero is removed from the book rather than kept at zero.
type Position struct {
	Symbol    string  // instrument symbol
	Quantity  float64 // held shares, > 0
	AvgPrice  float64 // weighted-average entry price
	MarkPrice float64 // most recently observed price
}

// MarketValue returns the position value at the current mark price.
func (p *Position) MarketValue() float64 {
	return p.Quantity * p.MarkPrice
}

// UnrealizedPnL returns profit/loss against the current mark price.
func (p *Position) UnrealizedPnL() float64 {
	return (p.MarkPrice - p.AvgPrice) * p.Quantity
}

// UnrealizedPnLPct returns unrealized P&L as a fraction of the entry price.
func (p *Position) UnrealizedPnLPct() float64 {
	if p.AvgPrice == 0 {
		return 0
	}
	return (p.MarkPrice - p.AvgPrice) / p.AvgPrice
}
