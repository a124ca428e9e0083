package marketdata

import (
	"math"
	"math/rand"

	"strategy-lab/internal/domain"
)

// SyntheticConfig controls generated series.
type SyntheticConfig struct {
	Symbol      string
	Bars        int
	StartMs     int64
	IntervalMs  int64
	StartPrice  float64
	Drift       float64 // per-bar fractional drift
	Noise       float64 // per-bar fractional noise amplitude
	Seed        int64
}

// DefaultSyntheticConfig returns a gently trending daily series.
func DefaultSyntheticConfig(symbol string) SyntheticConfig {
	return SyntheticConfig{
		Symbol:     symbol,
		Bars:       252,
		StartMs:    1704067200000, // 2024-01-01 00:00:00 UTC
		IntervalMs: 86_400_000,
		StartPrice: 100,
		Drift:      0.0005,
		Noise:      0.01,
		Seed:       1,
	}
}

// Synthetic generates a deterministic trending series with seeded noise.
// The same config always yields the same bars.
func Synthetic(cfg SyntheticConfig) []*domain.Bar {
	rng := rand.New(rand.NewSource(cfg.Seed))
	bars := make([]*domain.Bar, cfg.Bars)

	price := cfg.StartPrice
	for i := 0; i < cfg.Bars; i++ {
		move := cfg.Drift + cfg.Noise*rng.NormFloat64()
		next := price * (1 + move)
		if next < 0.01 {
			next = 0.01
		}

		high := math.Max(price, next) * (1 + 0.2*cfg.Noise*rng.Float64())
		low := math.Min(price, next) * (1 - 0.2*cfg.Noise*rng.Float64())
		bars[i] = &domain.Bar{
			Symbol:      cfg.Symbol,
			TimestampMs: cfg.StartMs + int64(i)*cfg.IntervalMs,
			Open:        price,
			High:        high,
			Low:         low,
			Close:       next,
			Volume:      float64(1_000_000 + rng.Intn(9_000_000)),
		}
		price = next
	}
	return bars
}
