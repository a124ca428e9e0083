package strategy

import (
	"fmt"

	"strategy-lab/internal/domain"
)

// MovingAverageCross signals long while the short-window SMA is above the
// long-window SMA and flat while it is below. Bars where either window is
// incomplete hold (signal 0).
//
// Params: short_window (default 20), long_window (default 50).
func MovingAverageCross(bars []*domain.Bar, params domain.Params) ([]float64, error) {
	short := params.Int("short_window", 20)
	long := params.Int("long_window", 50)
	if short < 1 || long < 1 {
		return nil, fmt.Errorf("%w: windows must be >= 1 (short=%d long=%d)", ErrInvalidParams, short, long)
	}

	shortMA := rollingMean(bars, short)
	longMA := rollingMean(bars, long)

	signals := make([]float64, len(bars))
	for i := range bars {
		sOK := i >= short-1
		lOK := i >= long-1
		if !sOK || !lOK {
			continue
		}
		switch {
		case shortMA[i] > longMA[i]:
			signals[i] = 1
		case shortMA[i] < longMA[i]:
			signals[i] = -1
		}
	}
	return signals, nil
}

// rollingMean computes the simple moving average of closes over window.
// Entries before the window is full are left at zero; callers gate on index.
func rollingMean(bars []*domain.Bar, window int) []float64 {
	out := make([]float64, len(bars))
	sum := 0.0
	for i, bar := range bars {
		sum += bar.Close
		if i >= window {
			sum -= bars[i-window].Close
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}
