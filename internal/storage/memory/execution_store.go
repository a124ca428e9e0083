package memory

import (
	"context"
	"sort"
	"sync"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/storage"
)

// ExecutionStore is an in-memory implementation of storage.ExecutionStore.
type ExecutionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Execution // keyed by execution_id
}

// NewExecutionStore creates a new in-memory execution store.
func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{
		data: make(map[string]*domain.Execution),
	}
}

// Insert adds a new execution. Returns ErrDuplicateKey if execution_id exists.
func (s *ExecutionStore) Insert(_ context.Context, e *domain.Execution) error {
	if e == nil || e.ExecutionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ExecutionID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[e.ExecutionID] = &copy
	return nil
}

// InsertBulk adds multiple executions atomically. Fails entire batch on any duplicate.
func (s *ExecutionStore) InsertBulk(_ context.Context, executions []*domain.Execution) error {
	if len(executions) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(executions))

	// First pass: check for duplicates (existing + intra-batch)
	for _, e := range executions {
		if e == nil || e.ExecutionID == "" {
			return storage.ErrInvalidInput
		}

		if _, exists := s.data[e.ExecutionID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[e.ExecutionID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[e.ExecutionID] = struct{}{}
	}

	// Second pass: insert all
	for _, e := range executions {
		copy := *e
		s.data[e.ExecutionID] = &copy
	}

	return nil
}

// GetByOrderID retrieves all executions for an order, ordered by timestamp ASC.
func (s *ExecutionStore) GetByOrderID(_ context.Context, orderID string) ([]*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Execution
	for _, e := range s.data {
		if e.OrderID == orderID {
			copy := *e
			result = append(result, &copy)
		}
	}

	sortExecutions(result)
	return result, nil
}

// GetBySession retrieves all executions for a session, ordered by timestamp ASC.
func (s *ExecutionStore) GetBySession(_ context.Context, sessionID string) ([]*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Execution
	for _, e := range s.data {
		if e.SessionID == sessionID {
			copy := *e
			result = append(result, &copy)
		}
	}

	sortExecutions(result)
	return result, nil
}

// sortExecutions orders by (timestamp_ms, execution_id) for deterministic reads.
func sortExecutions(executions []*domain.Execution) {
	sort.Slice(executions, func(i, j int) bool {
		if executions[i].TimestampMs != executions[j].TimestampMs {
			return executions[i].TimestampMs < executions[j].TimestampMs
		}
		return executions[i].ExecutionID < executions[j].ExecutionID
	})
}

var _ storage.ExecutionStore = (*ExecutionStore)(nil)
