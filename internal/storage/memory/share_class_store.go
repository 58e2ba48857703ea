package memory

import (
	"context"
	"sort"
	"sync"

	"captable-lab/internal/domain"
	"captable-lab/internal/storage"
)

// ShareClassStore is an in-memory implementation of storage.ShareClassStore.
type ShareClassStore struct {
	mu   sync.RWMutex
	data map[string]map[string]domain.ShareClass // valuation_id -> class_id -> class
}

// NewShareClassStore creates a new in-memory share class store.
func NewShareClassStore() *ShareClassStore {
	return &ShareClassStore{
		data: make(map[string]map[string]domain.ShareClass),
	}
}

// InsertBulk adds all classes of a valuation atomically.
// Returns ErrDuplicateKey if any (valuation_id, class_id) exists.
func (s *ShareClassStore) InsertBulk(_ context.Context, valuationID string, classes []domain.ShareClass) error {
	if valuationID == "" {
		return storage.ErrInvalidInput
	}
	for _, c := range classes {
		if c.ID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.data[valuationID]
	if byID == nil {
		byID = make(map[string]domain.ShareClass, len(classes))
		s.data[valuationID] = byID
	}

	// Reject the whole batch before storing anything
	seen := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		if _, exists := byID[c.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := seen[c.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[c.ID] = struct{}{}
	}

	for _, c := range classes {
		byID[c.ID] = c
	}
	return nil
}

// GetByValuation retrieves all classes of a valuation, ordered by class_id ASC.
func (s *ShareClassStore) GetByValuation(_ context.Context, valuationID string) ([]domain.ShareClass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.data[valuationID]
	result := make([]domain.ShareClass, 0, len(byID))
	for _, c := range byID {
		result = append(result, c)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ShareClassStore = (*ShareClassStore)(nil)
