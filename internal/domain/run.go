package domain

// BacktestRun represents one persisted backtest evaluation with its full
// metric set. Corresponds to backtest_runs table in PostgreSQL.
type BacktestRun struct {
	RunID        string // deterministic hash (idgen.RunID)
	StrategyName string
	Symbol       string
	Params       Params

	InitialCapital float64
	Commission     float64

	// Metrics
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	TotalPnL      float64
	TotalReturn   float64
	WinRate       float64
	AvgWin        float64
	AvgLoss       float64
	ProfitFactor  float64
	MaxDrawdown   float64
	FinalCapital  float64

	CreatedAtMs int64
}
