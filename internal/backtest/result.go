package backtest

import (
	"errors"
	"fmt"

	"strategy-lab/internal/domain"
)

// ErrUnknownMetric is returned by Metric for names outside the metric set.
var ErrUnknownMetric = errors.New("unknown metric")

// Metric name constants, matching the keys of Metrics().
const (
	MetricTotalTrades   = "total_trades"
	MetricWinningTrades = "winning_trades"
	MetricLosingTrades  = "losing_trades"
	MetricTotalPnL      = "total_pnl"
	MetricTotalReturn   = "total_return"
	MetricWinRate       = "win_rate"
	MetricAvgWin        = "avg_win"
	MetricAvgLoss       = "avg_loss"
	MetricProfitFactor  = "profit_factor"
	MetricMaxDrawdown   = "max_drawdown"
	MetricFinalCapital  = "final_capital"
)

// Result holds the output of a single backtest run: the closed-trade set,
// the equity curve, and summary metrics computed once over both.
type Result struct {
	InitialCapital float64
	FinalCapital   float64

	Trades      []*domain.ClosedTrade
	EquityCurve []*domain.EquityPoint

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
}

// Metrics returns the flat metric-name to value mapping consumed by
// callers. Serialized verbatim by the API and persistence layers.
func (r *Result) Metrics() map[string]float64 {
	return map[string]float64{
		MetricTotalTrades:   float64(r.TotalTrades),
		MetricWinningTrades: float64(r.WinningTrades),
		MetricLosingTrades:  float64(r.LosingTrades),
		MetricTotalPnL:      r.TotalPnL,
		MetricTotalReturn:   r.TotalReturn,
		MetricWinRate:       r.WinRate,
		MetricAvgWin:        r.AvgWin,
		MetricAvgLoss:       r.AvgLoss,
		MetricProfitFactor:  r.ProfitFactor,
		MetricMaxDrawdown:   r.MaxDrawdown,
		MetricFinalCapital:  r.FinalCapital,
	}
}

// Metric returns a single metric by name.
func (r *Result) Metric(name string) (float64, error) {
	v, ok := r.Metrics()[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return v, nil
}
