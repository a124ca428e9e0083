package strategy

import (
	"fmt"

	"strategy-lab/internal/domain"
)

// Momentum signals long once the rate of change over the lookback window
// exceeds threshold, flat once it falls below -threshold, and holds in
// between or while the lookback is incomplete.
//
// Params: lookback (default 10), threshold (default 0.02).
func Momentum(bars []*domain.Bar, params domain.Params) ([]float64, error) {
	lookback := params.Int("lookback", 10)
	threshold := params.Get("threshold", 0.02)
	if lookback < 1 {
		return nil, fmt.Errorf("%w: lookback must be >= 1 (got %d)", ErrInvalidParams, lookback)
	}
	if threshold < 0 {
		return nil, fmt.Errorf("%w: threshold must be >= 0 (got %g)", ErrInvalidParams, threshold)
	}

	signals := make([]float64, len(bars))
	for i := range bars {
		if i < lookback {
			continue
		}
		base := bars[i-lookback].Close
		if base == 0 {
			continue
		}
		roc := (bars[i].Close - base) / base
		switch {
		case roc > threshold:
			signals[i] = 1
		case roc < -threshold:
			signals[i] = -1
		}
	}
	return signals, nil
}
