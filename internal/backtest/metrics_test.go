package backtest

import (
	"math"
	"testing"

	"strategy-lab/internal/domain"
)

func curve(values ...float64) []*domain.EquityPoint {
	out := make([]*domain.EquityPoint, len(values))
	for i, v := range values {
		out[i] = &domain.EquityPoint{TimestampMs: int64(i), Equity: v, Cash: v}
	}
	return out
}

func TestComputeMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty curve", nil, 0},
		{"flat curve", []float64{100, 100, 100}, 0},
		{"monotone rise", []float64{100, 110, 120}, 0},
		{"single dip", []float64{100, 80, 100}, 0.2},
		{"peak then trough", []float64{100, 120, 60, 90}, 0.5},
		{"recovering peaks", []float64{100, 90, 110, 99}, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeMaxDrawdown(curve(tt.values...))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("computeMaxDrawdown() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestNewResult_AverageWinLoss(t *testing.T) {
	exit := func(p float64) *float64 { return &p }
	ts := int64(0)
	trades := []*domain.ClosedTrade{
		{Symbol: "T", EntryPrice: 100, Quantity: 10, Side: domain.TradeSideLong, ExitTimeMs: &ts, ExitPrice: exit(110)}, // +100
		{Symbol: "T", EntryPrice: 100, Quantity: 10, Side: domain.TradeSideLong, ExitTimeMs: &ts, ExitPrice: exit(104)}, // +40
		{Symbol: "T", EntryPrice: 100, Quantity: 10, Side: domain.TradeSideLong, ExitTimeMs: &ts, ExitPrice: exit(95)},  // -50
	}

	r := newResult(100000, 100090, trades, nil)

	if r.WinningTrades != 2 || r.LosingTrades != 1 {
		t.Fatalf("wins/losses = %d/%d, want 2/1", r.WinningTrades, r.LosingTrades)
	}
	if math.Abs(r.AvgWin-70) > 1e-9 {
		t.Errorf("AvgWin = %f, want 70", r.AvgWin)
	}
	// AvgLoss is the mean absolute loss
	if math.Abs(r.AvgLoss-50) > 1e-9 {
		t.Errorf("AvgLoss = %f, want 50", r.AvgLoss)
	}
	if math.Abs(r.ProfitFactor-140.0/50.0) > 1e-9 {
		t.Errorf("ProfitFactor = %f, want %f", r.ProfitFactor, 140.0/50.0)
	}
	if math.Abs(r.TotalPnL-90) > 1e-9 {
		t.Errorf("TotalPnL = %f, want 90", r.TotalPnL)
	}
}
