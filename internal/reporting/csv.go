package reporting

import (
	"fmt"
	"strings"
)

// RenderSweepCSV renders sweep rows as CSV string, best first.
func RenderSweepCSV(rows []SweepRow) string {
	var sb strings.Builder

	sb.WriteString("params,metric_value,total_return,total_trades,win_rate,profit_factor,max_drawdown,final_capital\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f,%d,%.6f,%.6f,%.6f,%.2f\n",
			quoteCSV(r.Params),
			r.MetricValue,
			r.TotalReturn,
			r.TotalTrades,
			r.WinRate,
			r.ProfitFactor,
			r.MaxDrawdown,
			r.FinalCapital,
		))
	}

	return sb.String()
}

// RenderTradesCSV renders closed trades of a run report as CSV string.
func RenderTradesCSV(trades []TradeRow) string {
	var sb strings.Builder

	sb.WriteString("entry_time_ms,exit_time_ms,entry_price,exit_price,quantity,pnl\n")

	for _, tr := range trades {
		sb.WriteString(fmt.Sprintf("%d,%d,%.6f,%.6f,%.6f,%.6f\n",
			tr.EntryTimeMs,
			tr.ExitTimeMs,
			tr.EntryPrice,
			tr.ExitPrice,
			tr.Quantity,
			tr.PnL,
		))
	}

	return sb.String()
}

// quoteCSV wraps a field in quotes when it contains a comma or quote.
func quoteCSV(field string) string {
	if !strings.ContainsAny(field, ",\"\n") {
		return field
	}
	return "\"" + strings.ReplaceAll(field, "\"", "\"\"") + "\""
}
