package domain

// TradeSide represents directional exposure of a backtest trade.
type TradeSide string

// Trade side constants. This engine only opens long positions; short is
// retained so realized P&L stays well-defined for both directions.
const (
	TradeSideLong  TradeSide = "long"
	TradeSideShort TradeSide = "short"
)

// ClosedTrade represents one backtest round trip. Created when the engine
// opens a position, completed when it closes or force-closes at series end.
type ClosedTrade struct {
	Symbol      string
	EntryTimeMs int64
	EntryPrice  float64
	Quantity    float64
	Side        TradeSide
	ExitTimeMs  *int64   // nil while unclosed
	ExitPrice   *float64 // nil while unclosed
}

// PnL returns realized profit/loss. The second return is false while the
// trade is still open.
func (t *ClosedTrade) PnL() (float64, bool) {
	if t.ExitPrice == nil {
		return 0, false
	}
	if t.Side == TradeSideShort {
		return (t.EntryPrice - *t.ExitPrice) * t.Quantity, true
	}
	return (*t.ExitPrice - t.EntryPrice) * t.Quantity, true
}

// EquityPoint represents one mark-to-market observation of a backtest run.
// One point per input bar, append-only, ordered by input sequence.
type EquityPoint struct {
	TimestampMs int64
	Equity      float64 // cash + unrealized value of any open position
	Cash        float64
}
