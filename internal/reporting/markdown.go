package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderRunMarkdown renders a single-run report as Markdown string.
func RenderRunMarkdown(r *RunReport) string {
	var sb strings.Builder

	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Strategy: %s | Symbol: %s\n\n", r.Strategy, r.Symbol))
	if r.Params != "" {
		sb.WriteString(fmt.Sprintf("Params: `%s`\n\n", r.Params))
	}

	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Bars | %d |\n", r.BarCount))
	sb.WriteString(fmt.Sprintf("| Date Range Start (ms) | %d |\n", r.DateRangeStartMs))
	sb.WriteString(fmt.Sprintf("| Date Range End (ms) | %d |\n", r.DateRangeEndMs))
	sb.WriteString("\n")

	sb.WriteString("## Performance\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Initial Capital | %.2f |\n", r.InitialCapital))
	sb.WriteString(fmt.Sprintf("| Final Capital | %.2f |\n", r.FinalCapital))
	sb.WriteString(fmt.Sprintf("| Total Return | %.4f |\n", r.TotalReturn))
	sb.WriteString(fmt.Sprintf("| Total P&L | %.2f |\n", r.TotalPnL))
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Winning Trades | %d |\n", r.WinningTrades))
	sb.WriteString(fmt.Sprintf("| Losing Trades | %d |\n", r.LosingTrades))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", r.WinRate))
	sb.WriteString(fmt.Sprintf("| Avg Win | %.4f |\n", r.AvgWin))
	sb.WriteString(fmt.Sprintf("| Avg Loss | %.4f |\n", r.AvgLoss))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %.4f |\n", r.ProfitFactor))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.4f |\n", r.MaxDrawdown))
	sb.WriteString("\n")

	sb.WriteString("## Trades\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| Entry (ms) | Exit (ms) | Entry Price | Exit Price | Qty | P&L |\n")
		sb.WriteString("|-----------|-----------|-------------|------------|-----|-----|\n")
		for _, tr := range r.Trades {
			sb.WriteString(fmt.Sprintf("| %d | %d | %.4f | %.4f | %.0f | %.2f |\n",
				tr.EntryTimeMs, tr.ExitTimeMs, tr.EntryPrice, tr.ExitPrice, tr.Quantity, tr.PnL))
		}
	} else {
		sb.WriteString("No closed trades.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderSweepMarkdown renders a sweep report as Markdown string.
func RenderSweepMarkdown(r *SweepReport) string {
	var sb strings.Builder

	sb.WriteString("# Parameter Sweep Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Strategy: %s | Symbol: %s | Mode: %s | Metric: %s\n\n",
		r.Strategy, r.Symbol, r.Mode, r.Metric))
	sb.WriteString(fmt.Sprintf("Bars: %d (%d - %d ms) | Evaluated: %d | Failures: %d\n\n",
		r.BarCount, r.DateRangeStartMs, r.DateRangeEndMs, r.Evaluated, r.Failures))

	sb.WriteString("## Best Combination\n\n")
	if r.Best != nil {
		sb.WriteString(fmt.Sprintf("`%s` with %s = %.6f\n\n", r.Best.Params, r.Metric, r.Best.MetricValue))
	} else {
		sb.WriteString("No successful evaluations.\n\n")
	}

	sb.WriteString("## Results\n\n")
	if len(r.Rows) > 0 {
		sb.WriteString(fmt.Sprintf("| Params | %s | Return | Trades | WinRate | ProfitFactor | MaxDD | Final |\n", r.Metric))
		sb.WriteString("|--------|-------|--------|--------|---------|--------------|-------|-------|\n")
		for _, row := range r.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %.6f | %.4f | %d | %.4f | %.4f | %.4f | %.2f |\n",
				row.Params, row.MetricValue, row.TotalReturn, row.TotalTrades,
				row.WinRate, row.ProfitFactor, row.MaxDrawdown, row.FinalCapital))
		}
	} else {
		sb.WriteString("No results available.\n")
	}
	sb.WriteString("\n")

	if len(r.FailureRows) > 0 {
		sb.WriteString("## Failures\n\n")
		sb.WriteString("| Params | Reason |\n")
		sb.WriteString("|--------|--------|\n")
		for _, f := range r.FailureRows {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", f.Params, f.Reason))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
