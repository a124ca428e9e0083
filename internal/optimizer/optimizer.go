// Package optimizer orchestrates many independent backtest runs over a
// parameter space and reduces them to a best-by-metric selection.
//
// Evaluations share no mutable state: each gets a fresh engine instance
// and a read-only view of the input series, so they run on a bounded
// worker pool. Results land in per-index slots and are reduced
// sequentially after the pool drains, which keeps the first-max tie-break
// identical to a sequential sweep.
package optimizer

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sync"

	"strategy-lab/internal/backtest"
	"strategy-lab/internal/domain"
)

// ErrEmptyGrid is returned when a grid has no parameters or a parameter
// has no values.
var ErrEmptyGrid = errors.New("empty parameter grid")

// GridParam is one grid dimension: a parameter name and its candidate
// values in declared order. Grid order is the Cartesian product in the
// stable order parameters were declared, times declared value order.
type GridParam struct {
	Name   string
	Values []float64
}

// Evaluation is the recorded outcome of one parameter assignment.
// Failed evaluations carry Err and a nil Result; failure is local to the
// combination, never fatal to the sweep.
type Evaluation struct {
	Index  int
	Params domain.Params
	Result *backtest.Result
	Err    error
}

// GridResult holds the output of a grid search.
type GridResult struct {
	BestParams  domain.Params
	BestMetric  float64
	BestResult  *backtest.Result
	Evaluations []Evaluation
	Failures    int
}

// Options for creating an Optimizer.
type Options struct {
	InitialCapital float64
	Commission     float64

	// Workers bounds concurrent evaluations. Defaults to GOMAXPROCS.
	Workers int
}

// Optimizer drives backtest evaluations over a fixed price series.
// The series is never mutated.
type Optimizer struct {
	series         []*domain.Bar
	initialCapital float64
	commission     float64
	workers        int
}

// New creates an optimizer over the given series.
func New(series []*domain.Bar, opts Options) *Optimizer {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Optimizer{
		series:         series,
		initialCapital: opts.InitialCapital,
		commission:     opts.Commission,
		workers:        workers,
	}
}

// GridSearch evaluates the Cartesian product of all parameter values and
// returns the combination maximizing the chosen metric. Ties keep the
// first-encountered combination (strict > comparison). Combinations whose
// evaluation fails are recorded but excluded from best-tracking.
func (o *Optimizer) GridSearch(ctx context.Context, strategyFn backtest.SignalFunc, grid []GridParam, metric string) (*GridResult, error) {
	combos, err := enumerate(grid)
	if err != nil {
		return nil, err
	}

	evals, err := o.evaluate(ctx, strategyFn, combos, metric)
	if err != nil {
		return nil, err
	}

	result := &GridResult{
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
	return result, nil
}

// enumerate expands the grid into parameter assignments in declared order.
func enumerate(grid []GridParam) ([]domain.Params, error) {
	if len(grid) == 0 {
		return nil, ErrEmptyGrid
	}
	total := 1
	for _, p := range grid {
		if len(p.Values) == 0 {
			return nil, ErrEmptyGrid
		}
		total *= len(p.Values)
	}

	combos := make([]domain.Params, 0, total)
	indices := make([]int, len(grid))
	for {
		params := make(domain.Params, len(grid))
		for i, p := range grid {
			params[p.Name] = p.Values[indices[i]]
		}
		combos = append(combos, params)

		// Advance the odometer, last dimension fastest
		i := len(grid) - 1
		for ; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(grid[i].Values) {
				break
			}
			indices[i] = 0
		}
		if i < 0 {
			return combos, nil
		}
	}
}

// evaluate runs one backtest per parameter assignment on a bounded worker
// pool. Slot i of the returned slice always corresponds to combos[i].
func (o *Optimizer) evaluate(ctx context.Context, strategyFn backtest.SignalFunc, combos []domain.Params, metric string) ([]Evaluation, error) {
	evals := make([]Evaluation, len(combos))

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := o.workers
	if workers > len(combos) {
		workers = len(combos)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				evals[i] = o.evaluateOne(i, strategyFn, combos[i], metric)
			}
		}()
	}

	var ctxErr error
dispatch:
	for i := range combos {
		select {
		case jobs <- i:
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if ctxErr != nil {
		return nil, ctxErr
	}
	return evals, nil
}

// evaluateOne runs a single backtest with a fresh engine instance.
// Metric resolution failures (unknown metric name) count as evaluation
// failures so a bad metric never selects an arbitrary best.
func (o *Optimizer) evaluateOne(index int, strategyFn backtest.SignalFunc, params domain.Params, metric string) Evaluation {
	ev := Evaluation{Index: index, Params: params}

	engine := backtest.NewEngine(o.initialCapital, o.commission)
	result, err := engine.Run(o.series, strategyFn, params)
	if err != nil {
		ev.Err = err
		return ev
	}
	if _, err := result.Metric(metric); err != nil {
		ev.Err = err
		return ev
	}

	ev.Result = result
	return ev
}
