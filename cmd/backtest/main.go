// Package main runs a single backtest of one strategy over one price
// series and prints the resulting metrics.
package main

import (
	"context"
	"encoding/json"
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
	"strategy-lab/internal/idgen"
	"strategy-lab/internal/marketdata"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/reporting"
	"strategy-lab/internal/storage/migrations"
	pgstore "strategy-lab/internal/storage/postgres"
	"strategy-lab/internal/strategy"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	csvPath := flag.String("csv", "", "CSV file with OHLCV bars (synthetic series when empty)")
	symbol := flag.String("symbol", "SYNTH", "Instrument symbol")
	strategyName := flag.String("strategy", "", "Strategy name: ma_cross, momentum (required)")
	paramsFlag := flag.String("params", "", "Strategy params as name=value pairs, comma-separated")
	initialCapital := flag.Float64("initial-capital", 100_000, "Starting cash")
	commission := flag.Float64("commission", 0.001, "Commission rate per trade leg")
	outputJSON := flag.Bool("json", false, "Output metrics as JSON")
	outputDir := flag.String("output-dir", "", "Write report.md and trades.csv to this directory")
	persist := flag.Bool("persist", false, "Persist the run to PostgreSQL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")

	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *strategyName == "" {
		logger.Fatalf("--strategy is required (one of: %s)", strings.Join(strategy.Names(), ", "))
	}

	strategyFn, err := strategy.Get(*strategyName)
	if err != nil {
		logger.Fatalf("Unknown strategy %q (one of: %s)", *strategyName, strings.Join(strategy.Names(), ", "))
	}

	params, err := parseParams(*paramsFlag)
	if err != nil {
		logger.Fatalf("Invalid --params: %v", err)
	}

	series, err := loadSeries(*csvPath, *symbol)
	if err != nil {
		logger.Fatalf("Load series: %v", err)
	}
	logger.Printf("Loaded %d bars for %s", len(series), *symbol)

	engine := backtest.NewEngine(*initialCapital, *commission)

	start := time.Now()
	result, err := engine.Run(series, strategyFn, params)
	if err != nil {
		observability.RecordBacktestRun(*strategyName, "error", time.Since(start).Seconds(), 0)
		logger.Fatalf("Backtest failed: %v", err)
	}
	observability.RecordBacktestRun(*strategyName, "success", time.Since(start).Seconds(), result.TotalTrades)

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Metrics()); err != nil {
			logger.Fatalf("Encode metrics: %v", err)
		}
	} else {
		printMetrics(result)
	}

	if *outputDir != "" {
		if err := writeReports(*outputDir, *strategyName, *symbol, params, series, result); err != nil {
			logger.Fatalf("Write reports: %v", err)
		}
		logger.Printf("Reports written to %s/", *outputDir)
	}

	if *persist {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required with --persist")
		}
		if err := persistRun(*postgresDSN, *strategyName, *symbol, params, *initialCapital, *commission, result); err != nil {
			logger.Fatalf("Persist run: %v", err)
		}
		logger.Println("Run persisted")
	}
}

// loadSeries reads bars from CSV, or generates a synthetic series when no
// path is given.
func loadSeries(csvPath, symbol string) ([]*domain.Bar, error) {
	if csvPath == "" {
		return marketdata.Synthetic(marketdata.DefaultSyntheticConfig(symbol)), nil
	}
	return marketdata.LoadCSV(csvPath, symbol)
}

// parseParams parses "name=value,name=value" into Params.
func parseParams(s string) (domain.Params, error) {
	params := domain.Params{}
	if s == "" {
		return params, nil
	}

	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("malformed pair %q", pair)
		}
		v, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse value for %q: %w", parts[0], err)
		}
		params[parts[0]] = v
	}
	return params, nil
}

// printMetrics prints the metric map in sorted key order.
func printMetrics(result *backtest.Result) {
	metrics := result.Metrics()
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%-16s %.6f\n", name, metrics[name])
	}
}

// writeReports writes report.md and trades.csv into dir.
func writeReports(dir, strategyName, symbol string, params domain.Params, series []*domain.Bar, result *backtest.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	report := reporting.NewGenerator().BuildRunReport(strategyName, symbol, params, series, result)

	md := reporting.RenderRunMarkdown(report)
	if err := os.WriteFile(filepath.Join(dir, "report.md"), []byte(md), 0644); err != nil {
		return fmt.Errorf("write report.md: %w", err)
	}

	csv := reporting.RenderTradesCSV(report.Trades)
	if err := os.WriteFile(filepath.Join(dir, "trades.csv"), []byte(csv), 0644); err != nil {
		return fmt.Errorf("write trades.csv: %w", err)
	}

	return nil
}

// persistRun stores the run in PostgreSQL, applying migrations first.
func persistRun(dsn, strategyName, symbol string, params domain.Params, initialCapital, commission float64, result *backtest.Result) error {
	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	now := time.Now().UnixMilli()
	run := &domain.BacktestRun{
		RunID:          idgen.RunID(strategyName, symbol, params, now),
		StrategyName:   strategyName,
		Symbol:         symbol,
		Params:         params,
		InitialCapital: initialCapital,
		Commission:     commission,
		TotalTrades:    result.TotalTrades,
		WinningTrades:  result.WinningTrades,
		LosingTrades:   result.LosingTrades,
		TotalPnL:       result.TotalPnL,
		TotalReturn:    result.TotalReturn,
		WinRate:        result.WinRate,
		AvgWin:         result.AvgWin,
		AvgLoss:        result.AvgLoss,
		ProfitFactor:   result.ProfitFactor,
		MaxDrawdown:    result.MaxDrawdown,
		FinalCapital:   result.FinalCapital,
		CreatedAtMs:    now,
	}

	return pgstore.NewBacktestRunStore(pool).Insert(ctx, run)
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
