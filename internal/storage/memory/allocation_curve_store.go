package memory

import (
	"context"
	"sort"
	"sync"

	"captable-lab/internal/domain"
	"captable-lab/internal/storage"
)

// AllocationCurveStore is an in-memory implementation of
// storage.AllocationCurveStore.
type AllocationCurveStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.AllocationPoint // run_id -> points
}

// NewAllocationCurveStore creates a new in-memory allocation curve store.
func NewAllocationCurveStore() *AllocationCurveStore {
	return &AllocationCurveStore{
		data: make(map[string][]*domain.AllocationPoint),
	}
}

// InsertBulk adds sampled curve points.
func (s *AllocationCurveStore) InsertBulk(_ context.Context, points []*domain.AllocationPoint) error {
	for _, p := range points {
		if p == nil || p.RunID == "" || p.SecurityID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		pointCopy := *p
		s.data[p.RunID] = append(s.data[p.RunID], &pointCopy)
	}
	return nil
}

// GetByRunID retrieves all points of a run, ordered by
// (exit_value ASC, security_id ASC).
func (s *AllocationCurveStore) GetByRunID(_ context.Context, runID string) ([]*domain.AllocationPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.data[runID]
	result := make([]*domain.AllocationPoint, 0, len(points))
	for _, p := range points {
		pointCopy := *p
		result = append(result, &pointCopy)
	}

	sortPoints(result)
	return result, nil
}

// GetBySecurity retrieves one security's curve, ordered by exit_value ASC.
func (s *AllocationCurveStore) GetBySecurity(_ context.Context, runID, securityID string) ([]*domain.AllocationPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AllocationPoint
	for _, p := range s.data[runID] {
		if p.SecurityID == securityID {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sortPoints(result)
	return result, nil
}

func sortPoints(points []*domain.AllocationPoint) {
	sort.Slice(points, func(i, j int) bool {
		if !points[i].ExitValue.Equal(points[j].ExitValue) {
			return points[i].ExitValue.LessThan(points[j].ExitValue)
		}
		return points[i].SecurityID < points[j].SecurityID
	})
}

// Verify interface compliance at compile time.
var _ storage.AllocationCurveStore = (*AllocationCurveStore)(nil)
