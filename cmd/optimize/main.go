// Package main runs parameter sweeps over a single strategy: exhaustive
// grid search, walk-forward validation, or Monte Carlo random sampling.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"strategy-lab/internal/backtest"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/marketdata"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/optimizer"
	"strategy-lab/internal/reporting"
	"strategy-lab/internal/strategy"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	csvPath := flag.String("csv", "", "CSV file with OHLCV bars (synthetic series when empty)")
	symbol := flag.String("symbol", "SYNTH", "Instrument symbol")
	strategyName := flag.String("strategy", "", "Strategy name: ma_cross, momentum (required)")
	mode := flag.String("mode", "grid", "Sweep mode: grid, walkforward, montecarlo")
	metric := flag.String("metric", backtest.MetricTotalReturn, "Metric to maximize")
	gridSpec := flag.String("grid", "", "Grid spec, e.g. \"short_window=5,10,20;long_window=30,50\"")
	rangeSpec := flag.String("range", "", "Monte Carlo ranges, e.g. \"lookback=5:50:int;threshold=0.0:0.1\"")
	iterations := flag.Int("iterations", 100, "Monte Carlo sample count")
	seed := flag.Int64("seed", 42, "Monte Carlo random seed")
	trainLen := flag.Int("train-len", 0, "Walk-forward training window length in bars")
	testLen := flag.Int("test-len", 0, "Walk-forward test window length in bars")
	workers := flag.Int("workers", 0, "Concurrent evaluations (0 = GOMAXPROCS)")
	initialCapital := flag.Float64("initial-capital", 100_000, "Starting cash")
	commission := flag.Float64("commission", 0.001, "Commission rate per trade leg")
	outputDir := flag.String("output-dir", "", "Write sweep.md and sweep.csv to this directory")

	flag.Parse()

	logger := log.New(os.Stderr, "[optimize] ", log.LstdFlags)

	if *strategyName == "" {
		logger.Fatalf("--strategy is required (one of: %s)", strings.Join(strategy.Names(), ", "))
	}
	strategyFn, err := strategy.Get(*strategyName)
	if err != nil {
		logger.Fatalf("Unknown strategy %q (one of: %s)", *strategyName, strings.Join(strategy.Names(), ", "))
	}

	series, err := loadSeries(*csvPath, *symbol)
	if err != nil {
		logger.Fatalf("Load series: %v", err)
	}
	logger.Printf("Loaded %d bars for %s", len(series), *symbol)

	opt := optimizer.New(series, optimizer.Options{
		InitialCapital: *initialCapital,
		Commission:     *commission,
		Workers:        *workers,
	})

	ctx := context.Background()
	start := time.Now()

	switch *mode {
	case "grid":
		grid, err := parseGrid(*gridSpec)
		if err != nil {
			logger.Fatalf("Invalid --grid: %v", err)
		}
		result, err := opt.GridSearch(ctx, strategyFn, grid, *metric)
		if err != nil {
			observability.RecordSweep(*mode, "error", time.Since(start).Seconds(), 0, 0)
			logger.Fatalf("Grid search failed: %v", err)
		}
		recordSweep(*mode, start, result)
		reportSweep(logger, *strategyName, *symbol, *mode, *metric, *outputDir, series, result)

	case "montecarlo":
		ranges, err := parseRanges(*rangeSpec)
		if err != nil {
			logger.Fatalf("Invalid --range: %v", err)
		}
		result, err := opt.MonteCarlo(ctx, strategyFn, ranges, *iterations, *metric, *seed)
		if err != nil {
			observability.RecordSweep(*mode, "error", time.Since(start).Seconds(), 0, 0)
			logger.Fatalf("Monte Carlo sweep failed: %v", err)
		}
		// Reuse the grid report shape; the evaluation list is the same.
		gridResult := &optimizer.GridResult{
			BestParams:  result.BestParams,
			BestMetric:  result.BestMetric,
			BestResult:  result.BestResult,
			Evaluations: result.Evaluations,
			Failures:    result.Failures,
		}
		recordSweep(*mode, start, gridResult)
		reportSweep(logger, *strategyName, *symbol, *mode, *metric, *outputDir, series, gridResult)
		printSensitivity(result.Sensitivity)

	case "walkforward":
		grid, err := parseGrid(*gridSpec)
		if err != nil {
			logger.Fatalf("Invalid --grid: %v", err)
		}
		if *trainLen <= 0 || *testLen <= 0 {
			logger.Fatal("--train-len and --test-len are required for walkforward mode")
		}
		result, err := opt.WalkForward(ctx, strategyFn, grid, *trainLen, *testLen, *metric)
		if err != nil {
			observability.RecordSweep(*mode, "error", time.Since(start).Seconds(), 0, 0)
			logger.Fatalf("Walk-forward sweep failed: %v", err)
		}
		observability.RecordSweep(*mode, "success", time.Since(start).Seconds(), len(result.Iterations), 0)
		printWalkForward(result, *metric)

	default:
		logger.Fatalf("Unknown mode %q (one of: grid, walkforward, montecarlo)", *mode)
	}
}

func loadSeries(csvPath, symbol string) ([]*domain.Bar, error) {
	if csvPath == "" {
		return marketdata.Synthetic(marketdata.DefaultSyntheticConfig(symbol)), nil
	}
	return marketdata.LoadCSV(csvPath, symbol)
}

// parseGrid parses "name=v1,v2,v3;name=v4,v5" into grid dimensions in
// declared order.
func parseGrid(s string) ([]optimizer.GridParam, error) {
	if s == "" {
		return nil, fmt.Errorf("empty grid spec")
	}

	var grid []optimizer.GridParam
	for _, dim := range strings.Split(s, ";") {
		parts := strings.SplitN(strings.TrimSpace(dim), "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("malformed dimension %q", dim)
		}

		var values []float64
		for _, raw := range strings.Split(parts[1], ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("parse value for %q: %w", parts[0], err)
			}
			values = append(values, v)
		}
		grid = append(grid, optimizer.GridParam{Name: parts[0], Values: values})
	}
	return grid, nil
}

// parseRanges parses "name=min:max[:int];..." into Monte Carlo ranges.
func parseRanges(s string) ([]optimizer.ParamRange, error) {
	if s == "" {
		return nil, fmt.Errorf("empty range spec")
	}

	var ranges []optimizer.ParamRange
	for _, dim := range strings.Split(s, ";") {
		parts := strings.SplitN(strings.TrimSpace(dim), "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("malformed range %q", dim)
		}

		bounds := strings.Split(parts[1], ":")
		if len(bounds) != 2 && len(bounds) != 3 {
			return nil, fmt.Errorf("range for %q must be min:max or min:max:int", parts[0])
		}
		min, err := strconv.ParseFloat(bounds[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parse min for %q: %w", parts[0], err)
		}
		max, err := strconv.ParseFloat(bounds[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse max for %q: %w", parts[0], err)
		}

		integer := false
		if len(bounds) == 3 {
			if bounds[2] != "int" {
				return nil, fmt.Errorf("unknown range modifier %q for %q", bounds[2], parts[0])
			}
			integer = true
		}
		ranges = append(ranges, optimizer.ParamRange{Name: parts[0], Min: min, Max: max, Integer: integer})
	}
	return ranges, nil
}

func recordSweep(mode string, start time.Time, result *optimizer.GridResult) {
	succeeded := len(result.Evaluations) - result.Failures
	observability.RecordSweep(mode, "success", time.Since(start).Seconds(), succeeded, result.Failures)
}

// reportSweep prints the sweep summary and optionally writes sweep.md and
// sweep.csv to the output directory.
func reportSweep(logger *log.Logger, strategyName, symbol, mode, metric, outputDir string, series []*domain.Bar, result *optimizer.GridResult) {
	report := reporting.NewGenerator().BuildSweepReport(strategyName, symbol, mode, metric, series, result)

	fmt.Printf("Evaluated %d combinations (%d failed)\n", report.Evaluated, report.Failures)
	if report.Best == nil {
		fmt.Println("No successful evaluations.")
	} else {
		fmt.Printf("Best params:   %s\n", report.Best.Params)
		fmt.Printf("Best %s: %.6f\n", metric, report.Best.MetricValue)
		fmt.Printf("Total trades:  %d\n", report.Best.TotalTrades)
		fmt.Printf("Final capital: %.2f\n", report.Best.FinalCapital)
	}

	if outputDir == "" {
		return
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		logger.Fatalf("Create output directory: %v", err)
	}
	md := reporting.RenderSweepMarkdown(report)
	if err := os.WriteFile(filepath.Join(outputDir, "sweep.md"), []byte(md), 0644); err != nil {
		logger.Fatalf("Write sweep.md: %v", err)
	}
	csv := reporting.RenderSweepCSV(report.Rows)
	if err := os.WriteFile(filepath.Join(outputDir, "sweep.csv"), []byte(csv), 0644); err != nil {
		logger.Fatalf("Write sweep.csv: %v", err)
	}
	logger.Printf("Reports written to %s/", outputDir)
}

func printSensitivity(sensitivity map[string]optimizer.ParamSensitivity) {
	if len(sensitivity) == 0 {
		return
	}

	names := make([]string, 0, len(sensitivity))
	for name := range sensitivity {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nParameter sensitivity:")
	for _, name := range names {
		s := sensitivity[name]
		fmt.Printf("  %-16s mean=%.4f stddev=%.4f correlation=%+.4f\n", name, s.Mean, s.Stddev, s.Correlation)
	}
}

func printWalkForward(result *optimizer.WalkForwardResult, metric string) {
	fmt.Printf("Walk-forward iterations: %d\n", len(result.Iterations))
	for i, it := range result.Iterations {
		fmt.Printf("  #%d train [%d,%d) test [%d,%d)  train %s=%.6f  test %s=%.6f  params=%s\n",
			i+1, it.TrainStart, it.TrainEnd, it.TestStart, it.TestEnd,
			metric, it.TrainMetric, metric, it.TestMetric,
			reporting.FormatParams(it.BestParams))
	}
	fmt.Printf("Avg test %s: %.6f\n", metric, result.AvgTestMetric)
	fmt.Printf("Consistency (stddev): %.6f\n", result.Consistency)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
