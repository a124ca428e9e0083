package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"strategy-lab/internal/backtest"
)

// ErrInvalidWindow is returned when train/test window lengths are not
// positive or the first train+test window does not fit the series.
var ErrInvalidWindow = errors.New("invalid walk-forward window")

// WalkForwardIteration records one train/test split: grid search on the
// training window, a single evaluation of the winning parameters on the
// held-out test window.
type WalkForwardIteration struct {
	TrainStart int
	TrainEnd   int // exclusive
	TestStart  int
	TestEnd    int // exclusive

	BestParams  map[string]float64
	TrainMetric float64
	TestMetric  float64
	TestResult  *backtest.Result
}

// WalkForwardResult aggregates all iterations. Consistency is the
// population standard deviation of the test metric: lower means more
// consistent out-of-sample performance.
type WalkForwardResult struct {
	Iterations    []WalkForwardIteration
	AvgTestMetric float64
	Consistency   float64
}

// WalkForward partitions the series into successive train+test windows and
// advances by the test length each iteration, so consecutive test windows
// are back-to-back and never overlap. Stops once a full train+test window
// no longer fits.
func (o *Optimizer) WalkForward(ctx context.Context, strategyFn backtest.SignalFunc, grid []GridParam, trainLen, testLen int, metric string) (*WalkForwardResult, error) {
	if trainLen <= 0 || testLen <= 0 {
		return nil, fmt.Errorf("%w: train=%d test=%d", ErrInvalidWindow, trainLen, testLen)
	}
	if trainLen+testLen > len(o.series) {
		return nil, fmt.Errorf("%w: train+test = %d exceeds series length %d", ErrInvalidWindow, trainLen+testLen, len(o.series))
	}

	result := &WalkForwardResult{}
	for start := 0; start+trainLen+testLen <= len(o.series); start += testLen {
		trainSeries := o.series[start : start+trainLen]
		testSeries := o.series[start+trainLen : start+trainLen+testLen]

		trainOpt := New(trainSeries, Options{
			InitialCapital: o.initialCapital,
			Commission:     o.commission,
			Workers:        o.workers,
		})
		trainResult, err := trainOpt.GridSearch(ctx, strategyFn, grid, metric)
		if err != nil {
			return nil, fmt.Errorf("train window [%d,%d): %w", start, start+trainLen, err)
		}
		// Every combination failed on this window: nothing to carry forward
		if trainResult.BestParams == nil {
			continue
		}

		engine := backtest.NewEngine(o.initialCapital, o.commission)
		testRun, err := engine.Run(testSeries, strategyFn, trainResult.BestParams)
		if err != nil {
			continue
		}
		testMetric, err := testRun.Metric(metric)
		if err != nil {
			continue
		}

		result.Iterations = append(result.Iterations, WalkForwardIteration{
			TrainStart:  start,
			TrainEnd:    start + trainLen,
			TestStart:   start + trainLen,
			TestEnd:     start + trainLen + testLen,
			BestParams:  trainResult.BestParams,
			TrainMetric: trainResult.BestMetric,
			TestMetric:  testMetric,
			TestResult:  testRun,
		})
	}

	metrics := make([]float64, len(result.Iterations))
	for i, it := range result.Iterations {
		metrics[i] = it.TestMetric
	}
	result.AvgTestMetric = mean(metrics)
	result.Consistency = stddevPop(metrics)
	return result, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddevPop is the population standard deviation (n denominator).
func stddevPop(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sumSq := 0.0
	for _, v := range values {
		diff := v - m
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
