package paper

import "strategy-lab/internal/domain"

// PositionDetail is the per-position view included in a portfolio summary.
type PositionDetail struct {
	Symbol           string  `json:"symbol"`
	Quantity         float64 `json:"quantity"`
	AvgPrice         float64 `json:"avg_price"`
	CurrentPrice     float64 `json:"current_price"`
	MarketValue      float64 `json:"market_value"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	UnrealizedPnLPct float64 `json:"unrealized_pnl_pct"`
}

// Summary is a point-in-time portfolio snapshot.
type Summary struct {
	Cash           float64          `json:"cash"`
	PositionsValue float64          `json:"positions_value"`
	PortfolioValue float64          `json:"portfolio_value"`
	TotalPnL       float64          `json:"total_pnl"`
	TotalReturn    float64          `json:"total_return"`
	Positions      []PositionDetail `json:"positions"`
	NumPositions   int              `json:"num_positions"`
	NumOrders      int              `json:"num_orders"`
	NumTrades      int              `json:"num_trades"`
}

// Summary returns a portfolio snapshot at current mark prices.
func (t *Trader) Summary() Summary {
	positions := t.book.All()
	details := make([]PositionDetail, len(positions))
	positionsValue := 0.0
	for i, p := range positions {
		details[i] = positionDetail(p)
		positionsValue += p.MarketValue()
	}

	portfolioValue := t.ledger.Cash() + positionsValue
	totalPnL := portfolioValue - t.ledger.InitialCapital()
	totalReturn := 0.0
	if t.ledger.InitialCapital() != 0 {
		totalReturn = totalPnL / t.ledger.InitialCapital()
	}

	return Summary{
		Cash:           t.ledger.Cash(),
		PositionsValue: positionsValue,
		PortfolioValue: portfolioValue,
		TotalPnL:       totalPnL,
		TotalReturn:    totalReturn,
		Positions:      details,
		NumPositions:   len(positions),
		NumOrders:      len(t.orders),
		NumTrades:      len(t.executions),
	}
}

func positionDetail(p domain.Position) PositionDetail {
	return PositionDetail{
		Symbol:           p.Symbol,
		Quantity:         p.Quantity,
		AvgPrice:         p.AvgPrice,
		CurrentPrice:     p.MarkPrice,
		MarketValue:      p.MarketValue(),
		UnrealizedPnL:    p.UnrealizedPnL(),
		UnrealizedPnLPct: p.UnrealizedPnLPct(),
	}
}
