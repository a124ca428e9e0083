package reporting

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"strategy-lab/internal/backtest"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/optimizer"
)

// Generator builds reports from backtest and sweep results.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// BuildRunReport builds a report for a single backtest run.
func (g *Generator) BuildRunReport(strategy, symbol string, params domain.Params, series []*domain.Bar, result *backtest.Result) *RunReport {
	report := &RunReport{
		GeneratedAt:    g.now(),
		Strategy:       strategy,
		Symbol:         symbol,
		Params:         FormatParams(params),
		BarCount:       len(series),
		InitialCapital: result.InitialCapital,
		FinalCapital:   result.FinalCapital,
		TotalReturn:    result.TotalReturn,
		TotalPnL:       result.TotalPnL,
		TotalTrades:    result.TotalTrades,
		WinningTrades:  result.WinningTrades,
		LosingTrades:   result.LosingTrades,
		WinRate:        result.WinRate,
		AvgWin:         result.AvgWin,
		AvgLoss:        result.AvgLoss,
		ProfitFactor:   result.ProfitFactor,
		MaxDrawdown:    result.MaxDrawdown,
	}

	if len(series) > 0 {
		report.DateRangeStartMs = series[0].TimestampMs
		report.DateRangeEndMs = series[len(series)-1].TimestampMs
	}

	for _, trade := range result.Trades {
		pnl, closed := trade.PnL()
		if !closed {
			continue
		}
		report.Trades = append(report.Trades, TradeRow{
			EntryTimeMs: trade.EntryTimeMs,
			ExitTimeMs:  *trade.ExitTimeMs,
			EntryPrice:  trade.EntryPrice,
			ExitPrice:   *trade.ExitPrice,
			Quantity:    trade.Quantity,
			PnL:         pnl,
		})
	}

	return report
}

// BuildSweepReport builds a report for a grid or Monte Carlo sweep.
func (g *Generator) BuildSweepReport(strategy, symbol, mode, metric string, series []*domain.Bar, result *optimizer.GridResult) *SweepReport {
	report := &SweepReport{
		GeneratedAt: g.now(),
		Strategy:    strategy,
		Symbol:      symbol,
		Mode:        mode,
		Metric:      metric,
		BarCount:    len(series),
		Evaluated:   len(result.Evaluations),
		Failures:    result.Failures,
	}

	if len(series) > 0 {
		report.DateRangeStartMs = series[0].TimestampMs
		report.DateRangeEndMs = series[len(series)-1].TimestampMs
	}

	for _, eval := range result.Evaluations {
		if eval.Err != nil {
			report.FailureRows = append(report.FailureRows, FailureRow{
				Params: FormatParams(eval.Params),
				Reason: eval.Err.Error(),
			})
			continue
		}

		value, err := eval.Result.Metric(metric)
		if err != nil {
			// Evaluations with a result always carry the sweep metric;
			// anything else would have failed during the sweep itself.
			continue
		}

		report.Rows = append(report.Rows, SweepRow{
			Params:       FormatParams(eval.Params),
			MetricValue:  value,
			TotalReturn:  eval.Result.TotalReturn,
			TotalTrades:  eval.Result.TotalTrades,
			WinRate:      eval.Result.WinRate,
			ProfitFactor: eval.Result.ProfitFactor,
			MaxDrawdown:  eval.Result.MaxDrawdown,
			FinalCapital: eval.Result.FinalCapital,
		})
	}

	// Sort best first; SortStable keeps evaluation order for ties so the
	// top row matches the sweep's first-best selection.
	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].MetricValue > report.Rows[j].MetricValue
	})

	if len(report.Rows) > 0 {
		best := report.Rows[0]
		report.Best = &best
	}

	return report
}

// FormatParams renders params as "name=value" pairs, sorted by name.
// Integer-valued params render without a decimal point.
func FormatParams(params domain.Params) string {
	names := params.Names()

	parts := make([]string, 0, len(names))
	for _, name := range names {
		v := params[name]
		if v == float64(int64(v)) {
			parts = append(parts, fmt.Sprintf("%s=%d", name, int64(v)))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%s", name, strconv.FormatFloat(v, 'g', -1, 64)))
		}
	}
	return strings.Join(parts, " ")
}
