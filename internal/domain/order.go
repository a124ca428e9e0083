package domain

// Side represents order direction.
type Side string

// Side constants.
const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType represents how an order is matched against incoming ticks.
type OrderType string

// Order type constants. The tick handler switches exhaustively over all four.
const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// OrderStatus represents order lifecycle state.
// Transitions are monotone: pending -> {filled | cancelled | rejected}.
// Terminal states are final; a non-pending order is immutable.
type OrderStatus string

// Order status constants.
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Order represents a trading order owned by a paper trading session.
// Orders are never deleted; terminal orders are retained for audit.
type Order struct {
	OrderID  string    // deterministic hash (idgen.OrderID)
	Seq      uint64    // per-trader monotonic submission sequence
	Symbol   string    // instrument symbol
	Side     Side      // buy | sell
	Type     OrderType // market | limit | stop | stop_limit
	Quantity float64   // shares requested, > 0

	LimitPrice *float64 // limit price (limit, stop_limit)
	StopPrice  *float64 // stop trigger price (stop, stop_limit)

	Status         OrderStatus
	Triggered      bool     // stop trigger latched; monotone, never reset
	FilledQuantity float64  // equals Quantity once filled
	FilledPrice    *float64 // execution price (nullable)

	CreatedAtMs int64  // submission timestamp (ms)
	FilledAtMs  *int64 // fill timestamp (nullable)
}

// IsTerminal reports whether the order reached a final state.
func (o *Order) IsTerminal() bool {
	return o.Status != OrderStatusPending
}
