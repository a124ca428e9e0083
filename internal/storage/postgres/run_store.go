package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

// BacktestRunStore implements storage.BacktestRunStore using PostgreSQL.
// Params are stored as a JSONB column.
type BacktestRunStore struct {
	pool *Pool
}

// NewBacktestRunStore creates a new BacktestRunStore.
func NewBacktestRunStore(pool *Pool) *BacktestRunStore {
	return &BacktestRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)

const selectRunColumns = `
	run_id, strategy_name, symbol, params,
	initial_capital, commission,
	total_trades, winning_trades, losing_trades,
	total_pnl, total_return, win_rate, avg_win, avg_loss,
	profit_factor, max_drawdown, final_capital,
	created_at_ms
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestRunStore) Insert(ctx context.Context, r *domain.BacktestRun) error {
	params, err := json.Marshal(r.Params)
	if err != nil {
		return fmt.Errorf("marshal run params: %w", err)
	}

	query := `
		INSERT INTO backtest_runs (
			run_id, strategy_name, symbol, params,
			initial_capital, commission,
			total_trades, winning_trades, losing_trades,
			total_pnl, total_return, win_rate, avg_win, avg_loss,
			profit_factor, max_drawdown, final_capital,
			created_at_ms
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17,
			$18
		)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.StrategyName, r.Symbol, params,
		r.InitialCapital, r.Commission,
		r.TotalTrades, r.WinningTrades, r.LosingTrades,
		r.TotalPnL, r.TotalReturn, r.WinRate, r.AvgWin, r.AvgLoss,
		r.ProfitFactor, r.MaxDrawdown, r.FinalCapital,
		r.CreatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *BacktestRunStore) GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error) {
	query := `
		SELECT ` + selectRunColumns + `
		FROM backtest_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run by id: %w", err)
	}
	return r, nil
}

// GetByStrategy retrieves all runs for a strategy, newest first.
func (s *BacktestRunStore) GetByStrategy(ctx context.Context, strategyName string) ([]*domain.BacktestRun, error) {
	query := `
		SELECT ` + selectRunColumns + `
		FROM backtest_runs
		WHERE strategy_name = $1
		ORDER BY created_at_ms DESC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, strategyName)
	if err != nil {
		return nil, fmt.Errorf("get backtest runs by strategy: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// GetAll retrieves all runs, newest first.
func (s *BacktestRunStore) GetAll(ctx context.Context) ([]*domain.BacktestRun, error) {
	query := `
		SELECT ` + selectRunColumns + `
		FROM backtest_runs
		ORDER BY created_at_ms DESC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all backtest runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// scanRun scans a single row into a BacktestRun.
func scanRun(row pgx.Row) (*domain.BacktestRun, error) {
	var r domain.BacktestRun
	var params []byte

	err := row.Scan(
		&r.RunID, &r.StrategyName, &r.Symbol, &params,
		&r.InitialCapital, &r.Commission,
		&r.TotalTrades, &r.WinningTrades, &r.LosingTrades,
		&r.TotalPnL, &r.TotalReturn, &r.WinRate, &r.AvgWin, &r.AvgLoss,
		&r.ProfitFactor, &r.MaxDrawdown, &r.FinalCapital,
		&r.CreatedAtMs,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(params, &r.Params); err != nil {
		return nil, fmt.Errorf("unmarshal run params: %w", err)
	}

	return &r, nil
}

// scanRuns scans multiple rows into a slice of BacktestRun.
func scanRuns(rows pgx.Rows) ([]*domain.BacktestRun, error) {
	var runs []*domain.BacktestRun

	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest run rows: %w", err)
	}

	return runs, nil
}
