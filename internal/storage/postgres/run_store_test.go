package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

func createTestRun(runID, strategyName string, createdAtMs int64) *domain.BacktestRun {
	return &domain.BacktestRun{
		RunID:          runID,
		StrategyName:   strategyName,
		Symbol:         "AAPL",
		Params:         domain.Params{"short_window": 5, "long_window": 20},
		InitialCapital: 100000,
		Commission:     0.001,
		TotalTrades:    3,
		WinningTrades:  2,
		LosingTrades:   1,
		TotalPnL:       9300,
		TotalReturn:    0.093,
		WinRate:        0.6667,
		AvgWin:         5000,
		AvgLoss:        700,
		ProfitFactor:   14.29,
		MaxDrawdown:    0.021,
		FinalCapital:   109300,
		CreatedAtMs:    createdAtMs,
	}
}

func TestBacktestRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBacktestRunStore(pool)

	run := createTestRun("run-001", "ma_cross", 1000)

	err := store.Insert(ctx, run)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "run-001")
	require.NoError(t, err)

	assert.Equal(t, run.RunID, retrieved.RunID)
	assert.Equal(t, run.StrategyName, retrieved.StrategyName)
	assert.Equal(t, run.Symbol, retrieved.Symbol)
	assert.Equal(t, run.Params, retrieved.Params)
	assert.InDelta(t, run.InitialCapital, retrieved.InitialCapital, 0.0001)
	assert.InDelta(t, run.Commission, retrieved.Commission, 0.0001)
	assert.Equal(t, run.TotalTrades, retrieved.TotalTrades)
	assert.Equal(t, run.WinningTrades, retrieved.WinningTrades)
	assert.Equal(t, run.LosingTrades, retrieved.LosingTrades)
	assert.InDelta(t, run.TotalPnL, retrieved.TotalPnL, 0.0001)
	assert.InDelta(t, run.TotalReturn, retrieved.TotalReturn, 0.0001)
	assert.InDelta(t, run.WinRate, retrieved.WinRate, 0.0001)
	assert.InDelta(t, run.ProfitFactor, retrieved.ProfitFactor, 0.0001)
	assert.InDelta(t, run.MaxDrawdown, retrieved.MaxDrawdown, 0.0001)
	assert.InDelta(t, run.FinalCapital, retrieved.FinalCapital, 0.0001)
	assert.Equal(t, run.CreatedAtMs, retrieved.CreatedAtMs)
}

func TestBacktestRunStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBacktestRunStore(pool)

	run := createTestRun("run-001", "ma_cross", 1000)

	require.NoError(t, store.Insert(ctx, run))

	err := store.Insert(ctx, run)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestBacktestRunStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBacktestRunStore(pool)

	_, err := store.GetByID(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBacktestRunStore_GetByStrategy(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBacktestRunStore(pool)

	require.NoError(t, store.Insert(ctx, createTestRun("run-001", "ma_cross", 1000)))
	require.NoError(t, store.Insert(ctx, createTestRun("run-002", "ma_cross", 3000)))
	require.NoError(t, store.Insert(ctx, createTestRun("run-003", "momentum", 2000)))

	retrieved, err := store.GetByStrategy(ctx, "ma_cross")
	require.NoError(t, err)
	require.Len(t, retrieved, 2)

	// Newest first
	assert.Equal(t, "run-002", retrieved[0].RunID)
	assert.Equal(t, "run-001", retrieved[1].RunID)
}

func TestBacktestRunStore_GetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBacktestRunStore(pool)

	require.NoError(t, store.Insert(ctx, createTestRun("run-001", "ma_cross", 1000)))
	require.NoError(t, store.Insert(ctx, createTestRun("run-002", "momentum", 2000)))

	retrieved, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, retrieved, 2)

	assert.Equal(t, "run-002", retrieved[0].RunID)
}
