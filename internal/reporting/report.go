// Package reporting renders backtest and parameter-sweep results as CSV
// and Markdown documents.
package reporting

import "time"

// RunReport summarizes a single backtest run.
type RunReport struct {
	GeneratedAt time.Time
	Strategy    string
	Symbol      string
	Params      string // formatted "name=value" pairs, sorted by name

	// Data summary
	BarCount         int
	DateRangeStartMs int64
	DateRangeEndMs   int64

	// Metrics
	InitialCapital float64
	FinalCapital   float64
	TotalReturn    float64
	TotalPnL       float64
	TotalTrades    int
	WinningTrades  int
	LosingTrades   int
	WinRate        float64
	AvgWin         float64
	AvgLoss        float64
	ProfitFactor   float64
	MaxDrawdown    float64

	Trades []TradeRow
}

// TradeRow represents one closed trade in a run report.
type TradeRow struct {
	EntryTimeMs int64
	ExitTimeMs  int64
	EntryPrice  float64
	ExitPrice   float64
	Quantity    float64
	PnL         float64
}

// SweepReport summarizes a parameter sweep over one strategy and series.
type SweepReport struct {
	GeneratedAt time.Time
	Strategy    string
	Symbol      string
	Mode        string // grid, walkforward, montecarlo
	Metric      string

	// Data summary
	BarCount         int
	DateRangeStartMs int64
	DateRangeEndMs   int64

	Evaluated int
	Failures  int

	// Best combination; nil when every evaluation failed.
	Best *SweepRow

	// Successful evaluations sorted by metric value, best first. Ties keep
	// evaluation order, so the first row is always the sweep winner.
	Rows []SweepRow

	FailureRows []FailureRow
}

// SweepRow represents one successful parameter evaluation.
type SweepRow struct {
	Params      string // formatted "name=value" pairs, sorted by name
	MetricValue float64

	TotalReturn  float64
	TotalTrades  int
	WinRate      float64
	ProfitFactor float64
	MaxDrawdown  float64
	FinalCapital float64
}

// FailureRow represents one failed parameter evaluation.
type FailureRow struct {
	Params string
	Reason string
}
