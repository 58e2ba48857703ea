package memory

import (
	"context"
	"sort"
	"sync"

	"captable-lab/internal/domain"
	"captable-lab/internal/storage"
)

// AnalysisRunStore is an in-memory implementation of storage.AnalysisRunStore.
type AnalysisRunStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.AnalysisRun // keyed by run_id
	byRef map[string]string              // run_ref -> run_id
}

// NewAnalysisRunStore creates a new in-memory analysis run store.
func NewAnalysisRunStore() *AnalysisRunStore {
	return &AnalysisRunStore{
		data:  make(map[string]*domain.AnalysisRun),
		byRef: make(map[string]string),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *AnalysisRunStore) Insert(_ context.Context, r *domain.AnalysisRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	runCopy := *r
	s.data[r.RunID] = &runCopy
	if r.RunRef != "" {
		s.byRef[r.RunRef] = r.RunID
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *AnalysisRunStore) GetByID(_ context.Context, runID string) (*domain.AnalysisRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	runCopy := *r
	return &runCopy, nil
}

// GetByRef retrieves a run by its short ref. Returns ErrNotFound if not exists.
func (s *AnalysisRunStore) GetByRef(_ context.Context, runRef string) (*domain.AnalysisRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runID, exists := s.byRef[runRef]
	if !exists {
		return nil, storage.ErrNotFound
	}

	runCopy := *s.data[runID]
	return &runCopy, nil
}

// GetByValuation retrieves all runs of a valuation, ordered by
// created_at DESC, run_id ASC.
func (s *AnalysisRunStore) GetByValuation(_ context.Context, valuationID string) ([]*domain.AnalysisRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AnalysisRun
	for _, r := range s.data {
		if r.ValuationID == valuationID {
			runCopy := *r
			result = append(result, &runCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.AnalysisRunStore = (*AnalysisRunStore)(nil)
