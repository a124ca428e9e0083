// Package main runs the HTTP API server: bar ingestion and queries,
// backtests, parameter sweeps, option greeks, and managed paper-trading
// sessions, with health/metrics/status endpoints.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"strategy-lab/internal/backtest"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/greeks"
	"strategy-lab/internal/idgen"
	"strategy-lab/internal/marketdata"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/optimizer"
	"strategy-lab/internal/paper"
	"strategy-lab/internal/storage"
	chstore "strategy-lab/internal/storage/clickhouse"
	"strategy-lab/internal/storage/memory"
	"strategy-lab/internal/storage/migrations"
	pgstore "strategy-lab/internal/storage/postgres"
	"strategy-lab/internal/strategy"
)

// Stores holds all storage interfaces used by the server.
type Stores struct {
	bars       storage.BarStore
	executions storage.ExecutionStore
	runs       storage.BacktestRunStore
}

// Server is the HTTP API server.
type Server struct {
	stores   *Stores
	sessions *paper.SessionManager
	logger   *log.Logger

	backend string
	started time.Time

	mu            sync.Mutex
	backtestRuns  int
	sweepRuns     int
	ticksReceived int
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", ":8080", "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, backend, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()
	logger.Printf("Storage backend: %s", backend)

	server := &Server{
		stores:   stores,
		sessions: paper.NewSessionManager(observability.SetActiveSessions),
		logger:   logger,
		backend:  backend,
		started:  time.Now(),
	}

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.routes(),
	}

	// Uptime counter
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.RecordUptime(15)
			}
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		cancel()
	}()

	logger.Printf("Starting HTTP server on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores builds the storage layer: in-memory, or PostgreSQL for
// executions and runs plus ClickHouse for bars, with migrations applied.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*Stores, string, func(), error) {
	if useMemory {
		stores := &Stores{
			bars:       memory.NewBarStore(),
			executions: memory.NewExecutionStore(),
			runs:       memory.NewBacktestRunStore(),
		}
		return stores, "memory", func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, "", nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, "", nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, "", nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &Stores{
		bars:       chstore.NewBarStore(conn),
		executions: pgstore.NewExecutionStore(pool),
		runs:       pgstore.NewBacktestRunStore(pool),
	}
	cleanup := func() {
		pool.Close()
		conn.Close()
	}
	return stores, "postgres+clickhouse", cleanup, nil
}

// routes wires all endpoints.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)

	mux.HandleFunc("POST /bars", s.handleInsertBars)
	mux.HandleFunc("GET /bars/{symbol}", s.handleGetBars)

	mux.HandleFunc("POST /backtest", s.handleBacktest)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)

	mux.HandleFunc("POST /optimize", s.handleOptimize)
	mux.HandleFunc("POST /greeks", s.handleGreeks)

	mux.HandleFunc("POST /sessions", s.handleOpenSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleCloseSession)
	mux.HandleFunc("POST /sessions/{id}/orders", s.handleSubmitOrder)
	mux.HandleFunc("GET /sessions/{id}/orders", s.handleListOrders)
	mux.HandleFunc("DELETE /sessions/{id}/orders/{orderID}", s.handleCancelOrder)
	mux.HandleFunc("GET /sessions/{id}/executions", s.handleListExecutions)
	mux.HandleFunc("POST /sessions/{id}/ticks", s.handleSessionTick)
	mux.HandleFunc("POST /ticks", s.handleBroadcastTick)

	return mux
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status         string   `json:"status"`
	Uptime         string   `json:"uptime"`
	StorageBackend string   `json:"storage_backend"`
	ActiveSessions int      `json:"active_sessions"`
	BacktestRuns   int      `json:"backtest_runs"`
	SweepRuns      int      `json:"sweep_runs"`
	TicksReceived  int      `json:"ticks_received"`
	Strategies     []string `json:"strategies"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:         "running",
		Uptime:         time.Since(s.started).String(),
		StorageBackend: s.backend,
		ActiveSessions: s.sessions.Count(),
		BacktestRuns:   s.backtestRuns,
		SweepRuns:      s.sweepRuns,
		TicksReceived:  s.ticksReceived,
		Strategies:     strategy.Names(),
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// barPayload is the wire form of a bar.
type barPayload struct {
	Symbol      string  `json:"symbol"`
	TimestampMs int64   `json:"timestamp_ms"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
}

func toBar(p barPayload) *domain.Bar {
	return &domain.Bar{
		Symbol:      p.Symbol,
		TimestampMs: p.TimestampMs,
		Open:        p.Open,
		High:        p.High,
		Low:         p.Low,
		Close:       p.Close,
		Volume:      p.Volume,
	}
}

func fromBar(b *domain.Bar) barPayload {
	return barPayload{
		Symbol:      b.Symbol,
		TimestampMs: b.TimestampMs,
		Open:        b.Open,
		High:        b.High,
		Low:         b.Low,
		Close:       b.Close,
		Volume:      b.Volume,
	}
}

func (s *Server) handleInsertBars(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Bars []barPayload `json:"bars"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if len(req.Bars) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("bars must not be empty"))
		return
	}

	bars := make([]*domain.Bar, len(req.Bars))
	for i, p := range req.Bars {
		bars[i] = toBar(p)
	}

	start := time.Now()
	err := s.stores.bars.InsertBulk(r.Context(), bars)
	observability.RecordDBQuery(s.backend, "insert_bars", time.Since(start).Seconds(), err)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"inserted": len(bars)})
}

func (s *Server) handleGetBars(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	var (
		bars []*domain.Bar
		err  error
	)
	startParam := r.URL.Query().Get("start")
	endParam := r.URL.Query().Get("end")

	start := time.Now()
	if startParam != "" || endParam != "" {
		from, perr := parseInt64Param(startParam, 0)
		if perr != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parse start: %w", perr))
			return
		}
		to, perr := parseInt64Param(endParam, time.Now().UnixMilli())
		if perr != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parse end: %w", perr))
			return
		}
		bars, err = s.stores.bars.GetByTimeRange(r.Context(), symbol, from, to)
	} else {
		bars, err = s.stores.bars.GetBySymbol(r.Context(), symbol)
	}
	observability.RecordDBQuery(s.backend, "get_bars", time.Since(start).Seconds(), err)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	payload := make([]barPayload, len(bars))
	for i, b := range bars {
		payload[i] = fromBar(b)
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "count": len(bars), "bars": payload})
}

// backtestRequest drives one backtest over stored or synthetic bars.
type backtestRequest struct {
	Strategy       string             `json:"strategy"`
	Symbol         string             `json:"symbol"`
	Params         map[string]float64 `json:"params"`
	InitialCapital float64            `json:"initial_capital"`
	Commission     float64            `json:"commission"`
	StartMs        *int64             `json:"start_ms"`
	EndMs          *int64             `json:"end_ms"`
	Synthetic      bool               `json:"synthetic"`
	Persist        bool               `json:"persist"`
}

func (r *backtestRequest) applyDefaults() {
	if r.InitialCapital == 0 {
		r.InitialCapital = 100_000
	}
	if r.Commission == 0 {
		r.Commission = 0.001
	}
	if r.Symbol == "" {
		r.Symbol = "SYNTH"
	}
}

// loadBars resolves the series for a request: synthetic generation or the
// bar store.
func (s *Server) loadBars(ctx context.Context, symbol string, startMs, endMs *int64, synthetic bool) ([]*domain.Bar, error) {
	if synthetic {
		return marketdata.Synthetic(marketdata.DefaultSyntheticConfig(symbol)), nil
	}

	var (
		bars []*domain.Bar
		err  error
	)
	start := time.Now()
	if startMs != nil || endMs != nil {
		from := int64(0)
		if startMs != nil {
			from = *startMs
		}
		to := time.Now().UnixMilli()
		if endMs != nil {
			to = *endMs
		}
		bars, err = s.stores.bars.GetByTimeRange(ctx, symbol, from, to)
	} else {
		bars, err = s.stores.bars.GetBySymbol(ctx, symbol)
	}
	observability.RecordDBQuery(s.backend, "get_bars", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars stored for %s (set synthetic=true for a generated series)", symbol)
	}
	return bars, nil
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	req.applyDefaults()

	strategyFn, err := strategy.Get(req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown strategy %q (one of: %s)", req.Strategy, strings.Join(strategy.Names(), ", ")))
		return
	}

	bars, err := s.loadBars(r.Context(), req.Symbol, req.StartMs, req.EndMs, req.Synthetic)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	result, err := backtest.NewEngine(req.InitialCapital, req.Commission).Run(bars, strategyFn, domain.Params(req.Params))
	if err != nil {
		observability.RecordBacktestRun(req.Strategy, "error", time.Since(start).Seconds(), 0)
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	observability.RecordBacktestRun(req.Strategy, "success", time.Since(start).Seconds(), result.TotalTrades)

	s.mu.Lock()
	s.backtestRuns++
	s.mu.Unlock()

	resp := map[string]any{
		"strategy": req.Strategy,
		"symbol":   req.Symbol,
		"bars":     len(bars),
		"metrics":  result.Metrics(),
	}

	if req.Persist {
		run := buildRun(&req, result)
		qStart := time.Now()
		err := s.stores.runs.Insert(r.Context(), run)
		observability.RecordDBQuery(s.backend, "insert_run", time.Since(qStart).Seconds(), err)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		resp["run_id"] = run.RunID
	}

	writeJSON(w, http.StatusOK, resp)
}

func buildRun(req *backtestRequest, result *backtest.Result) *domain.BacktestRun {
	now := time.Now().UnixMilli()
	params := domain.Params(req.Params)
	return &domain.BacktestRun{
		RunID:          idgen.RunID(req.Strategy, req.Symbol, params, now),
		StrategyName:   req.Strategy,
		Symbol:         req.Symbol,
		Params:         params,
		InitialCapital: req.InitialCapital,
		Commission:     req.Commission,
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
}

// runPayload is the wire form of a stored run.
type runPayload struct {
	RunID          string             `json:"run_id"`
	StrategyName   string             `json:"strategy_name"`
	Symbol         string             `json:"symbol"`
	Params         map[string]float64 `json:"params"`
	InitialCapital float64            `json:"initial_capital"`
	Commission     float64            `json:"commission"`
	TotalTrades    int                `json:"total_trades"`
	WinningTrades  int                `json:"winning_trades"`
	LosingTrades   int                `json:"losing_trades"`
	TotalPnL       float64            `json:"total_pnl"`
	TotalReturn    float64            `json:"total_return"`
	WinRate        float64            `json:"win_rate"`
	AvgWin         float64            `json:"avg_win"`
	AvgLoss        float64            `json:"avg_loss"`
	ProfitFactor   float64            `json:"profit_factor"`
	MaxDrawdown    float64            `json:"max_drawdown"`
	FinalCapital   float64            `json:"final_capital"`
	CreatedAtMs    int64              `json:"created_at_ms"`
}

func fromRun(r *domain.BacktestRun) runPayload {
	return runPayload{
		RunID:          r.RunID,
		StrategyName:   r.StrategyName,
		Symbol:         r.Symbol,
		Params:         r.Params,
		InitialCapital: r.InitialCapital,
		Commission:     r.Commission,
		TotalTrades:    r.TotalTrades,
		WinningTrades:  r.WinningTrades,
		LosingTrades:   r.LosingTrades,
		TotalPnL:       r.TotalPnL,
		TotalReturn:    r.TotalReturn,
		WinRate:        r.WinRate,
		AvgWin:         r.AvgWin,
		AvgLoss:        r.AvgLoss,
		ProfitFactor:   r.ProfitFactor,
		MaxDrawdown:    r.MaxDrawdown,
		FinalCapital:   r.FinalCapital,
		CreatedAtMs:    r.CreatedAtMs,
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	var (
		runs []*domain.BacktestRun
		err  error
	)

	start := time.Now()
	if name := r.URL.Query().Get("strategy"); name != "" {
		runs, err = s.stores.runs.GetByStrategy(r.Context(), name)
	} else {
		runs, err = s.stores.runs.GetAll(r.Context())
	}
	observability.RecordDBQuery(s.backend, "get_runs", time.Since(start).Seconds(), err)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	payload := make([]runPayload, len(runs))
	for i, run := range runs {
		payload[i] = fromRun(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(runs), "runs": payload})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	run, err := s.stores.runs.GetByID(r.Context(), r.PathValue("id"))
	observability.RecordDBQuery(s.backend, "get_run", time.Since(start).Seconds(), err)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fromRun(run))
}

// optimizeRequest drives one parameter sweep.
type optimizeRequest struct {
	Mode     string `json:"mode"`
	Strategy string `json:"strategy"`
	Symbol   string `json:"symbol"`
	Metric   string `json:"metric"`

	Grid []struct {
		Name   string    `json:"name"`
		Values []float64 `json:"values"`
	} `json:"grid"`

	Ranges []struct {
		Name    string  `json:"name"`
		Min     float64 `json:"min"`
		Max     float64 `json:"max"`
		Integer bool    `json:"integer"`
	} `json:"ranges"`

	Iterations int   `json:"iterations"`
	Seed       int64 `json:"seed"`
	TrainLen   int   `json:"train_len"`
	TestLen    int   `json:"test_len"`
	Workers    int   `json:"workers"`

	InitialCapital float64 `json:"initial_capital"`
	Commission     float64 `json:"commission"`
	StartMs        *int64  `json:"start_ms"`
	EndMs          *int64  `json:"end_ms"`
	Synthetic      bool    `json:"synthetic"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Mode == "" {
		req.Mode = "grid"
	}
	if req.Metric == "" {
		req.Metric = backtest.MetricTotalReturn
	}
	if req.InitialCapital == 0 {
		req.InitialCapital = 100_000
	}
	if req.Commission == 0 {
		req.Commission = 0.001
	}
	if req.Symbol == "" {
		req.Symbol = "SYNTH"
	}
	if req.Iterations == 0 {
		req.Iterations = 100
	}

	strategyFn, err := strategy.Get(req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown strategy %q (one of: %s)", req.Strategy, strings.Join(strategy.Names(), ", ")))
		return
	}

	bars, err := s.loadBars(r.Context(), req.Symbol, req.StartMs, req.EndMs, req.Synthetic)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	opt := optimizer.New(bars, optimizer.Options{
		InitialCapital: req.InitialCapital,
		Commission:     req.Commission,
		Workers:        req.Workers,
	})

	grid := make([]optimizer.GridParam, len(req.Grid))
	for i, g := range req.Grid {
		grid[i] = optimizer.GridParam{Name: g.Name, Values: g.Values}
	}
	ranges := make([]optimizer.ParamRange, len(req.Ranges))
	for i, pr := range req.Ranges {
		ranges[i] = optimizer.ParamRange{Name: pr.Name, Min: pr.Min, Max: pr.Max, Integer: pr.Integer}
	}

	start := time.Now()
	var resp map[string]any

	switch req.Mode {
	case "grid":
		result, gerr := opt.GridSearch(r.Context(), strategyFn, grid, req.Metric)
		if gerr != nil {
			observability.RecordSweep(req.Mode, "error", time.Since(start).Seconds(), 0, 0)
			writeError(w, http.StatusUnprocessableEntity, gerr)
			return
		}
		observability.RecordSweep(req.Mode, "success", time.Since(start).Seconds(), len(result.Evaluations)-result.Failures, result.Failures)
		resp = sweepResponse(req.Mode, req.Metric, result)

	case "montecarlo":
		result, merr := opt.MonteCarlo(r.Context(), strategyFn, ranges, req.Iterations, req.Metric, req.Seed)
		if merr != nil {
			observability.RecordSweep(req.Mode, "error", time.Since(start).Seconds(), 0, 0)
			writeError(w, http.StatusUnprocessableEntity, merr)
			return
		}
		observability.RecordSweep(req.Mode, "success", time.Since(start).Seconds(), len(result.Evaluations)-result.Failures, result.Failures)
		resp = sweepResponse(req.Mode, req.Metric, &optimizer.GridResult{
			BestParams:  result.BestParams,
			BestMetric:  result.BestMetric,
			BestResult:  result.BestResult,
			Evaluations: result.Evaluations,
			Failures:    result.Failures,
		})
		sensitivity := make(map[string]map[string]float64, len(result.Sensitivity))
		for name, sens := range result.Sensitivity {
			sensitivity[name] = map[string]float64{
				"mean":        sens.Mean,
				"stddev":      sens.Stddev,
				"correlation": sens.Correlation,
			}
		}
		resp["sensitivity"] = sensitivity

	case "walkforward":
		if req.TrainLen <= 0 || req.TestLen <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("train_len and test_len are required for walkforward mode"))
			return
		}
		result, werr := opt.WalkForward(r.Context(), strategyFn, grid, req.TrainLen, req.TestLen, req.Metric)
		if werr != nil {
			observability.RecordSweep(req.Mode, "error", time.Since(start).Seconds(), 0, 0)
			writeError(w, http.StatusUnprocessableEntity, werr)
			return
		}
		observability.RecordSweep(req.Mode, "success", time.Since(start).Seconds(), len(result.Iterations), 0)

		iterations := make([]map[string]any, len(result.Iterations))
		for i, it := range result.Iterations {
			iterations[i] = map[string]any{
				"train_start":  it.TrainStart,
				"train_end":    it.TrainEnd,
				"test_start":   it.TestStart,
				"test_end":     it.TestEnd,
				"best_params":  it.BestParams,
				"train_metric": it.TrainMetric,
				"test_metric":  it.TestMetric,
			}
		}
		resp = map[string]any{
			"mode":            req.Mode,
			"metric":          req.Metric,
			"iterations":      iterations,
			"avg_test_metric": result.AvgTestMetric,
			"consistency":     result.Consistency,
		}

	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown mode %q (one of: grid, walkforward, montecarlo)", req.Mode))
		return
	}

	s.mu.Lock()
	s.sweepRuns++
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func sweepResponse(mode, metric string, result *optimizer.GridResult) map[string]any {
	resp := map[string]any{
		"mode":      mode,
		"metric":    metric,
		"evaluated": len(result.Evaluations),
		"failures":  result.Failures,
	}
	if result.BestResult != nil {
		resp["best_params"] = result.BestParams
		resp["best_metric"] = result.BestMetric
		resp["best_metrics"] = result.BestResult.Metrics()
	}
	return resp
}

// greeksRequest holds Black-Scholes inputs plus the option type.
type greeksRequest struct {
	Spot          float64 `json:"spot"`
	Strike        float64 `json:"strike"`
	TimeToExpiry  float64 `json:"time_to_expiry"`
	Volatility    float64 `json:"volatility"`
	RiskFreeRate  float64 `json:"risk_free_rate"`
	DividendYield float64 `json:"dividend_yield"`
	OptionType    string  `json:"option_type"`
}

func (s *Server) handleGreeks(w http.ResponseWriter, r *http.Request) {
	var req greeksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	typ := greeks.OptionType(req.OptionType)
	if typ != greeks.Call && typ != greeks.Put {
		writeError(w, http.StatusBadRequest, fmt.Errorf("option_type must be %q or %q", greeks.Call, greeks.Put))
		return
	}

	result, err := greeks.All(greeks.Inputs{
		Spot:          req.Spot,
		Strike:        req.Strike,
		TimeToExpiry:  req.TimeToExpiry,
		Volatility:    req.Volatility,
		RiskFreeRate:  req.RiskFreeRate,
		DividendYield: req.DividendYield,
	}, typ)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InitialCapital float64 `json:"initial_capital"`
		Commission     float64 `json:"commission"`
	}
	// Empty body means defaults.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.InitialCapital == 0 {
		req.InitialCapital = 100_000
	}
	if req.Commission == 0 {
		req.Commission = 0.001
	}

	sess := s.sessions.Open(paper.Options{
		InitialCapital: req.InitialCapital,
		Commission:     req.Commission,
	})
	s.logger.Printf("Opened session %s (capital=%.2f commission=%.4f)", sess.ID, req.InitialCapital, req.Commission)

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id":      sess.ID,
		"initial_capital": req.InitialCapital,
		"commission":      req.Commission,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var summary paper.Summary
	sess.Do(func(t *paper.Trader) {
		summary = t.Summary()
	})

	writeJSON(w, http.StatusOK, map[string]any{"session_id": sess.ID, "summary": summary})
}

// handleCloseSession persists the session's executions and returns the
// final summary.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var executions []domain.Execution
	sess.Do(func(t *paper.Trader) {
		executions = t.Executions()
	})

	if len(executions) > 0 {
		records := make([]*domain.Execution, len(executions))
		for i := range executions {
			e := executions[i]
			e.SessionID = sessionID
			records[i] = &e
		}
		start := time.Now()
		err := s.stores.executions.InsertBulk(r.Context(), records)
		observability.RecordDBQuery(s.backend, "insert_executions", time.Since(start).Seconds(), err)
		if err != nil {
			writeStoreError(w, err)
			return
		}
	}

	summary, err := s.sessions.Close(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.logger.Printf("Closed session %s (%d executions persisted)", sessionID, len(executions))

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"executions": len(executions),
		"summary":    summary,
	})
}

// orderRequest is the wire form of an order submission.
type orderRequest struct {
	Side       string   `json:"side"`
	Type       string   `json:"type"`
	Symbol     string   `json:"symbol"`
	Quantity   float64  `json:"quantity"`
	LimitPrice *float64 `json:"limit_price"`
	StopPrice  *float64 `json:"stop_price"`
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	var (
		order     domain.Order
		submitErr error
	)
	sess.Do(func(t *paper.Trader) {
		submitted, err := t.Submit(req.Symbol, domain.Side(req.Side), domain.OrderType(req.Type), req.Quantity, req.LimitPrice, req.StopPrice)
		if err != nil {
			submitErr = err
			return
		}
		order = *submitted
	})
	if submitErr != nil {
		observability.RecordOrderRejected(submitErr.Error())
		writeError(w, http.StatusUnprocessableEntity, submitErr)
		return
	}
	observability.RecordOrderSubmitted(string(order.Type), string(order.Side))

	writeJSON(w, http.StatusCreated, fromOrder(order))
}

// orderPayload is the wire form of a tracked order.
type orderPayload struct {
	OrderID        string   `json:"order_id"`
	Symbol         string   `json:"symbol"`
	Side           string   `json:"side"`
	Type           string   `json:"type"`
	Quantity       float64  `json:"quantity"`
	LimitPrice     *float64 `json:"limit_price,omitempty"`
	StopPrice      *float64 `json:"stop_price,omitempty"`
	Status         string   `json:"status"`
	Triggered      bool     `json:"triggered"`
	FilledQuantity float64  `json:"filled_quantity"`
	FilledPrice    *float64 `json:"filled_price,omitempty"`
	CreatedAtMs    int64    `json:"created_at_ms"`
	FilledAtMs     *int64   `json:"filled_at_ms,omitempty"`
}

func fromOrder(o domain.Order) orderPayload {
	return orderPayload{
		OrderID:        o.OrderID,
		Symbol:         o.Symbol,
		Side:           string(o.Side),
		Type:           string(o.Type),
		Quantity:       o.Quantity,
		LimitPrice:     o.LimitPrice,
		StopPrice:      o.StopPrice,
		Status:         string(o.Status),
		Triggered:      o.Triggered,
		FilledQuantity: o.FilledQuantity,
		FilledPrice:    o.FilledPrice,
		CreatedAtMs:    o.CreatedAtMs,
		FilledAtMs:     o.FilledAtMs,
	}
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var orders []domain.Order
	sess.Do(func(t *paper.Trader) {
		orders = t.Orders()
	})

	payload := make([]orderPayload, len(orders))
	for i, o := range orders {
		payload[i] = fromOrder(o)
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sess.ID, "count": len(orders), "orders": payload})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	orderID := r.PathValue("orderID")

	var cancelErr error
	sess.Do(func(t *paper.Trader) {
		cancelErr = t.Cancel(orderID)
	})
	switch {
	case errors.Is(cancelErr, paper.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, cancelErr)
		return
	case errors.Is(cancelErr, paper.ErrInvalidOrderState):
		writeError(w, http.StatusConflict, cancelErr)
		return
	case cancelErr != nil:
		writeError(w, http.StatusInternalServerError, cancelErr)
		return
	}
	observability.RecordOrderCancelled()

	writeJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": string(domain.OrderStatusCancelled)})
}

// executionPayload is the wire form of a fill.
type executionPayload struct {
	ExecutionID string  `json:"execution_id"`
	TimestampMs int64   `json:"timestamp_ms"`
	OrderID     string  `json:"order_id"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	Commission  float64 `json:"commission"`
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var executions []domain.Execution
	sess.Do(func(t *paper.Trader) {
		executions = t.Executions()
	})

	payload := make([]executionPayload, len(executions))
	for i, e := range executions {
		payload[i] = executionPayload{
			ExecutionID: e.ExecutionID,
			TimestampMs: e.TimestampMs,
			OrderID:     e.OrderID,
			Symbol:      e.Symbol,
			Side:        string(e.Side),
			Quantity:    e.Quantity,
			Price:       e.Price,
			Commission:  e.Commission,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sess.ID, "count": len(executions), "executions": payload})
}

// tickRequest is the wire form of a pushed tick.
type tickRequest struct {
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// handleSessionTick delivers one tick to a single session.
func (s *Server) handleSessionTick(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Symbol == "" || req.Price <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("tick needs a symbol and a positive price"))
		return
	}

	sess.Do(func(t *paper.Trader) {
		t.OnTick(map[string]float64{req.Symbol: req.Price})
	})
	observability.RecordTick()

	s.mu.Lock()
	s.ticksReceived++
	s.mu.Unlock()

	var summary paper.Summary
	sess.Do(func(t *paper.Trader) {
		summary = t.Summary()
	})
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sess.ID, "summary": summary})
}

// handleBroadcastTick delivers one tick to every open session.
func (s *Server) handleBroadcastTick(w http.ResponseWriter, r *http.Request) {
	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Symbol == "" || req.Price <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("tick needs a symbol and a positive price"))
		return
	}

	s.sessions.Broadcast(domain.Tick{
		Symbol:      req.Symbol,
		Price:       req.Price,
		TimestampMs: req.TimestampMs,
	})
	observability.RecordTick()

	s.mu.Lock()
	s.ticksReceived++
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"delivered_to": s.sessions.Count()})
}

func parseInt64Param(s string, fallback int64) (int64, error) {
	if s == "" {
		return fallback, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeStoreError maps storage sentinel errors to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, storage.ErrDuplicateKey):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, storage.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
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
