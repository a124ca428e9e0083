package strategy

import (
	"errors"
	"math"
	"testing"

	"strategy-lab/internal/domain"
)

func makeBars(closes ...float64) []*domain.Bar {
	bars := make([]*domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = &domain.Bar{
			Symbol:      "TEST",
			TimestampMs: int64(i) * 60000,
			Close:       c,
		}
	}
	return bars
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{NameMACross, NameMomentum} {
		if _, err := Get(name); err != nil {
			t.Errorf("Get(%q) failed: %v", name, err)
		}
	}

	if _, err := Get("nonexistent"); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}

	names := Names()
	if len(names) != 2 {
		t.Errorf("Names() = %v, want 2 entries", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Names() not sorted: %v", names)
		}
	}
}

func TestMovingAverageCross(t *testing.T) {
	// Rising series: short MA above long MA once both windows fill
	bars := makeBars(100, 101, 102, 103, 104, 105, 106, 107)
	params := domain.Params{"short_window": 2, "long_window": 4}

	signals, err := MovingAverageCross(bars, params)
	if err != nil {
		t.Fatalf("MovingAverageCross failed: %v", err)
	}
	if len(signals) != len(bars) {
		t.Fatalf("signal length = %d, want %d", len(signals), len(bars))
	}

	// Signals hold until the long window fills at index 3
	for i := 0; i < 3; i++ {
		if signals[i] != 0 {
			t.Errorf("signals[%d] = %f, want 0 before long window fills", i, signals[i])
		}
	}
	for i := 3; i < len(signals); i++ {
		if signals[i] != 1 {
			t.Errorf("signals[%d] = %f, want 1 on rising series", i, signals[i])
		}
	}
}

func TestMovingAverageCross_Downtrend(t *testing.T) {
	bars := makeBars(107, 106, 105, 104, 103, 102, 101, 100)
	params := domain.Params{"short_window": 2, "long_window": 4}

	signals, err := MovingAverageCross(bars, params)
	if err != nil {
		t.Fatalf("MovingAverageCross failed: %v", err)
	}
	for i := 3; i < len(signals); i++ {
		if signals[i] != -1 {
			t.Errorf("signals[%d] = %f, want -1 on falling series", i, signals[i])
		}
	}
}

func TestMovingAverageCross_EqualMAsHold(t *testing.T) {
	bars := makeBars(100, 100, 100, 100, 100)
	params := domain.Params{"short_window": 2, "long_window": 3}

	signals, err := MovingAverageCross(bars, params)
	if err != nil {
		t.Fatalf("MovingAverageCross failed: %v", err)
	}
	for i, s := range signals {
		if s != 0 {
			t.Errorf("signals[%d] = %f, want 0 when MAs are equal", i, s)
		}
	}
}

func TestMovingAverageCross_InvalidParams(t *testing.T) {
	bars := makeBars(100, 101)
	_, err := MovingAverageCross(bars, domain.Params{"short_window": 0})
	if !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams, got %v", err)
	}
}

func TestRollingMean(t *testing.T) {
	bars := makeBars(1, 2, 3, 4, 5)
	got := rollingMean(bars, 3)

	want := []float64{0, 0, 2, 3, 4}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("rollingMean[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestMomentum(t *testing.T) {
	// 10% jump over a 2-bar lookback with a 5% threshold
	bars := makeBars(100, 100, 112, 112, 95)
	params := domain.Params{"lookback": 2, "threshold": 0.05}

	signals, err := Momentum(bars, params)
	if err != nil {
		t.Fatalf("Momentum failed: %v", err)
	}

	if signals[0] != 0 || signals[1] != 0 {
		t.Errorf("signals before lookback fills = %f, %f, want 0", signals[0], signals[1])
	}
	if signals[2] != 1 {
		t.Errorf("signals[2] = %f, want 1 (roc = 0.12)", signals[2])
	}
	if signals[4] != -1 {
		t.Errorf("signals[4] = %f, want -1 (roc ≈ -0.15)", signals[4])
	}
}

func TestMomentum_WithinThresholdHolds(t *testing.T) {
	bars := makeBars(100, 100, 101)
	params := domain.Params{"lookback": 1, "threshold": 0.05}

	signals, err := Momentum(bars, params)
	if err != nil {
		t.Fatalf("Momentum failed: %v", err)
	}
	for i, s := range signals {
		if s != 0 {
			t.Errorf("signals[%d] = %f, want 0 inside threshold band", i, s)
		}
	}
}

func TestMomentum_InvalidParams(t *testing.T) {
	bars := makeBars(100)
	if _, err := Momentum(bars, domain.Params{"lookback": 0}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams for lookback, got %v", err)
	}
	if _, err := Momentum(bars, domain.Params{"threshold": -1}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams for threshold, got %v", err)
	}
}
