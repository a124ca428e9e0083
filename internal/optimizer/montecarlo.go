package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"strategy-lab/internal/backtest"
	"strategy-lab/internal/domain"
)

// Monte Carlo errors
var (
	ErrEmptyRanges  = errors.New("no parameter ranges")
	ErrInvalidRange = errors.New("invalid parameter range")
)

// ParamRange is a uniform sampling range for one parameter. Integer ranges
// sample uniformly from the inclusive integer interval [Min, Max]; float
// ranges sample the half-open real interval [Min, Max).
type ParamRange struct {
	Name    string
	Min     float64
	Max     float64
	Integer bool
}

// ParamSensitivity reports, per parameter, the sample mean, population
// standard deviation, and Pearson correlation between sampled value and
// the target metric. A simple sensitivity signal, not a causal claim.
type ParamSensitivity struct {
	Mean        float64
	Stddev      float64
	Correlation float64
}

// MonteCarloResult holds the output of a random-sampling sweep.
type MonteCarloResult struct {
	BestParams  domain.Params
	BestMetric  float64
	BestResult  *backtest.Result
	Evaluations []Evaluation
	Failures    int
	Sensitivity map[string]ParamSensitivity
}

// MonteCarlo samples each parameter independently and uniformly from its
// range for each of n iterations and runs one backtest per sample. All
// samples are drawn up front from the seeded source in iteration order, so
// a given seed reproduces the same sweep regardless of worker count.
func (o *Optimizer) MonteCarlo(ctx context.Context, strategyFn backtest.SignalFunc, ranges []ParamRange, n int, metric string, seed int64) (*MonteCarloResult, error) {
	if len(ranges) == 0 {
		return nil, ErrEmptyRanges
	}
	for _, r := range ranges {
		if r.Max < r.Min {
			return nil, fmt.Errorf("%w: %s [%g, %g]", ErrInvalidRange, r.Name, r.Min, r.Max)
		}
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: iterations must be positive (got %d)", ErrInvalidRange, n)
	}

	rng := rand.New(rand.NewSource(seed))
	combos := make([]domain.Params, n)
	for i := 0; i < n; i++ {
		params := make(domain.Params, len(ranges))
		for _, r := range ranges {
			params[r.Name] = sample(rng, r)
		}
		combos[i] = params
	}

	evals, err := o.evaluate(ctx, strategyFn, combos, metric)
	if err != nil {
		return nil, err
	}

	result := &MonteCarloResult{
		BestMetric:  math.Inf(-1),
		Evaluations: evals,
	}
	for _, ev := range evals {
		if ev.Err != nil {
			result.Failures++
			continue
		}
		v, _ := ev.Result.Metric(metric)
		if v > result.BestMetric {
			result.BestMetric = v
			result.BestParams = ev.Params
			result.BestResult = ev.Result
		}
	}
	result.Sensitivity = analyzeSensitivity(ranges, evals, metric)
	return result, nil
}

func sample(rng *rand.Rand, r ParamRange) float64 {
	if r.Integer {
		lo, hi := int64(r.Min), int64(r.Max)
		return float64(lo + rng.Int63n(hi-lo+1))
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// analyzeSensitivity computes per-parameter statistics over all successful
// samples.
func analyzeSensitivity(ranges []ParamRange, evals []Evaluation, metric string) map[string]ParamSensitivity {
	var metrics []float64
	var ok []Evaluation
	for _, ev := range evals {
		if ev.Err != nil {
			continue
		}
		v, _ := ev.Result.Metric(metric)
		metrics = append(metrics, v)
		ok = append(ok, ev)
	}

	out := make(map[string]ParamSensitivity, len(ranges))
	for _, r := range ranges {
		values := make([]float64, len(ok))
		for i, ev := range ok {
			values[i] = ev.Params[r.Name]
		}
		out[r.Name] = ParamSensitivity{
			Mean:        mean(values),
			Stddev:      stddevPop(values),
			Correlation: pearson(values, metrics),
		}
	}
	return out
}

// pearson computes the Pearson correlation coefficient. Returns 0 when
// either series is constant (undefined correlation).
func pearson(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) == 0 {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - mx
		dy := ys[i] - my
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	denom := math.Sqrt(varX * varY)
	if denom == 0 {
		return 0
	}
	return cov / denom
}
