package accounting

import (
	"sort"

	"strategy-lab/internal/domain"
)

// PositionBook is an owned table of per-symbol holdings. All mutation goes
// through a single entry point per operation kind; callers never receive
// references into the table that would let them bypass invariant checks.
type PositionBook struct {
	positions map[string]*domain.Position
}

// NewPositionBook creates an empty position book.
func NewPositionBook() *PositionBook {
	return &PositionBook{
		positions: make(map[string]*domain.Position),
	}
}

// OpenOrIncrease creates a position at price or increases an existing one,
// recomputing the weighted-average entry price.
func (b *PositionBook) OpenOrIncrease(symbol string, qty, price float64) {
	p, exists := b.positions[symbol]
	if !exists {
		b.positions[symbol] = &domain.Position{
			Symbol:    symbol,
			Quantity:  qty,
			AvgPrice:  price,
			MarkPrice: price,
		}
		return
	}

	totalCost := p.AvgPrice*p.Quantity + price*qty
	p.Quantity += qty
	p.AvgPrice = totalCost / p.Quantity
}

// Reduce decrements the held quantity. The entry is removed entirely once
// its quantity reaches zero; the symbol key ceases to exist rather than
// persisting at zero. Returns ErrInsufficientPosition without mutating
// state if no position exists or qty exceeds the held quantity.
func (b *PositionBook) Reduce(symbol string, qty float64) error {
	p, exists := b.positions[symbol]
	if !exists || qty > p.Quantity {
		return ErrInsufficientPosition
	}

	p.Quantity -= qty
	if p.Quantity <= 0 {
		delete(b.positions, symbol)
	}
	return nil
}

// MarkPrice updates the mark price of the position, if held. No side
// effects on quantity or average price.
func (b *PositionBook) MarkPrice(symbol string, price float64) {
	if p, exists := b.positions[symbol]; exists {
		p.MarkPrice = price
	}
}

// Get returns a copy of the position for symbol, or false if not held.
func (b *PositionBook) Get(symbol string) (domain.Position, bool) {
	p, exists := b.positions[symbol]
	if !exists {
		return domain.Position{}, false
	}
	return *p, true
}

// All returns copies of all held positions, ordered by symbol.
func (b *PositionBook) All() []domain.Position {
	out := make([]domain.Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Len returns the number of held positions.
func (b *PositionBook) Len() int {
	return len(b.positions)
}

// MarketValue returns the total market value of all held positions.
func (b *PositionBook) MarketValue() float64 {
	total := 0.0
	for _, p := range b.positions {
		total += p.MarketValue()
	}
	return total
}
