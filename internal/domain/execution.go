package domain

// Execution represents one historical fill. Append-only: one record per
// fill, never mutated after creation.
// Corresponds to executions table in PostgreSQL.
type Execution struct {
	ExecutionID string  // deterministic hash (idgen.ExecutionID)
	SessionID   string  // paper trading session (empty outside sessions)
	TimestampMs int64   // fill timestamp (ms)
	OrderID     string  // order that produced the fill
	Symbol      string  // instrument symbol
	Side        Side    // buy | sell
	Quantity    float64 // filled shares
	Price       float64 // fill price
	Commission  float64 // commission paid on this leg
}
