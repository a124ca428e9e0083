package storage

import (
	"context"

	"strategy-lab/internal/domain"
)

// BarStore provides access to bars storage.
type BarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, bars []*domain.Bar) error

	// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.Bar, error)

	// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.Bar, error)
}

// ExecutionStore provides access to executions storage.
type ExecutionStore interface {
	// Insert adds a new execution. Returns ErrDuplicateKey if execution_id exists.
	Insert(ctx context.Context, e *domain.Execution) error

	// InsertBulk adds multiple executions atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, executions []*domain.Execution) error

	// GetByOrderID retrieves all executions for an order, ordered by timestamp ASC.
	GetByOrderID(ctx context.Context, orderID string) ([]*domain.Execution, error)

	// GetBySession retrieves all executions for a session, ordered by timestamp ASC.
	GetBySession(ctx context.Context, sessionID string) ([]*domain.Execution, error)
}

// BacktestRunStore provides access to backtest_runs storage.
type BacktestRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.BacktestRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error)

	// GetByStrategy retrieves all runs for a strategy, newest first.
	GetByStrategy(ctx context.Context, strategyName string) ([]*domain.BacktestRun, error)

	// GetAll retrieves all runs, newest first.
	GetAll(ctx context.Context) ([]*domain.BacktestRun, error)
}
