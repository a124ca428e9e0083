package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

// ExecutionStore implements storage.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	pool *Pool
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(pool *Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExecutionStore = (*ExecutionStore)(nil)

const insertExecutionQuery = `
	INSERT INTO executions (
		execution_id, session_id, timestamp_ms, order_id,
		symbol, side, quantity, price, commission
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9
	)
`

const selectExecutionColumns = `
	execution_id, session_id, timestamp_ms, order_id,
	symbol, side, quantity, price, commission
`

// Insert adds a new execution. Returns ErrDuplicateKey if execution_id exists.
func (s *ExecutionStore) Insert(ctx context.Context, e *domain.Execution) error {
	_, err := s.pool.Exec(ctx, insertExecutionQuery,
		e.ExecutionID, e.SessionID, e.TimestampMs, e.OrderID,
		e.Symbol, string(e.Side), e.Quantity, e.Price, e.Commission,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// InsertBulk adds multiple executions atomically. Fails entire batch on any duplicate.
func (s *ExecutionStore) InsertBulk(ctx context.Context, executions []*domain.Execution) error {
	if len(executions) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range executions {
		_, err := tx.Exec(ctx, insertExecutionQuery,
			e.ExecutionID, e.SessionID, e.TimestampMs, e.OrderID,
			e.Symbol, string(e.Side), e.Quantity, e.Price, e.Commission,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert execution in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByOrderID retrieves all executions for an order, ordered by timestamp ASC.
func (s *ExecutionStore) GetByOrderID(ctx context.Context, orderID string) ([]*domain.Execution, error) {
	query := `
		SELECT ` + selectExecutionColumns + `
		FROM executions
		WHERE order_id = $1
		ORDER BY timestamp_ms ASC, execution_id ASC
	`

	rows, err := s.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("get executions by order id: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// GetBySession retrieves all executions for a session, ordered by timestamp ASC.
func (s *ExecutionStore) GetBySession(ctx context.Context, sessionID string) ([]*domain.Execution, error) {
	query := `
		SELECT ` + selectExecutionColumns + `
		FROM executions
		WHERE session_id = $1
		ORDER BY timestamp_ms ASC, execution_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get executions by session: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// scanExecutions scans multiple rows into a slice of Execution.
func scanExecutions(rows pgx.Rows) ([]*domain.Execution, error) {
	var executions []*domain.Execution

	for rows.Next() {
		var e domain.Execution
		var side string

		err := rows.Scan(
			&e.ExecutionID, &e.SessionID, &e.TimestampMs, &e.OrderID,
			&e.Symbol, &side, &e.Quantity, &e.Price, &e.Commission,
		)
		if err != nil {
			return nil, fmt.Errorf("scan execution row: %w", err)
		}

		e.Side = domain.Side(side)
		executions = append(executions, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution rows: %w", err)
	}

	return executions, nil
}
