package backtest

import "strategy-lab/internal/domain"

// newResult computes all summary metrics once, over the full closed-trade
// set and equity curve.
func newResult(initialCapital, finalCapital float64, trades []*domain.ClosedTrade, equityCurve []*domain.EquityPoint) *Result {
	r := &Result{
		InitialCapital: initialCapital,
		FinalCapital:   finalCapital,
		Trades:         trades,
		EquityCurve:    equityCurve,
		MaxDrawdown:    computeMaxDrawdown(equityCurve),
	}

	if len(trades) == 0 {
		return r
	}

	grossProfit := 0.0
	grossLoss := 0.0
	for _, t := range trades {
		pnl, closed := t.PnL()
		if !closed {
			continue
		}
		r.TotalPnL += pnl
		// Zero-P&L trades count toward neither winners nor losers
		if pnl > 0 {
			r.WinningTrades++
			grossProfit += pnl
		} else if pnl < 0 {
			r.LosingTrades++
			grossLoss += -pnl
		}
	}

	r.TotalTrades = len(trades)
	r.TotalReturn = (finalCapital - initialCapital) / initialCapital
	r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades)
	if r.WinningTrades > 0 {
		r.AvgWin = grossProfit / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AvgLoss = grossLoss / float64(r.LosingTrades)
	}
	// Zero, not infinite, when gross loss is zero. Deliberate simplification.
	if grossLoss > 0 {
		r.ProfitFactor = grossProfit / grossLoss
	}

	return r
}

// computeMaxDrawdown returns the maximum fractional decline from a running
// equity peak. A curve of length zero yields zero.
func computeMaxDrawdown(curve []*domain.EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}

	peak := curve[0].Equity
	maxDD := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - p.Equity) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
