package memory

import (
	"context"
	"sync"

	"captable-lab/internal/domain"
	"captable-lab/internal/storage"
)

// BreakpointStore is an in-memory implementation of storage.BreakpointStore.
type BreakpointStore struct {
	mu   sync.RWMutex
	data map[string][]domain.Breakpoint // run_id -> schedule in priority order
}

// NewBreakpointStore creates a new in-memory breakpoint store.
func NewBreakpointStore() *BreakpointStore {
	return &BreakpointStore{
		data: make(map[string][]domain.Breakpoint),
	}
}

// InsertBulk adds a run's full schedule atomically.
// Returns ErrDuplicateKey if the run already has breakpoints.
func (s *BreakpointStore) InsertBulk(_ context.Context, runID string, bps []domain.Breakpoint) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	schedule := make([]domain.Breakpoint, len(bps))
	for i, bp := range bps {
		schedule[i] = copyBreakpoint(bp)
	}
	s.data[runID] = schedule
	return nil
}

// GetByRunID retrieves a run's schedule, ordered by priority_order ASC.
// A run without stored breakpoints yields an empty schedule.
func (s *BreakpointStore) GetByRunID(_ context.Context, runID string) ([]domain.Breakpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schedule := s.data[runID]
	result := make([]domain.Breakpoint, len(schedule))
	for i, bp := range schedule {
		result[i] = copyBreakpoint(bp)
	}
	return result, nil
}

// copyBreakpoint deep-copies the slice fields so callers cannot mutate
// stored schedules.
func copyBreakpoint(bp domain.Breakpoint) domain.Breakpoint {
	bp.AffectedSecurities = append([]string(nil), bp.AffectedSecurities...)
	bp.Dependencies = append([]string(nil), bp.Dependencies...)
	return bp
}

// Verify interface compliance at compile time.
var _ storage.BreakpointStore = (*BreakpointStore)(nil)
