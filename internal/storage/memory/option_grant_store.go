package memory

import (
	"context"
	"sort"
	"sync"

	"captable-lab/internal/domain"
	"captable-lab/internal/storage"
)

// OptionGrantStore is an in-memory implementation of storage.OptionGrantStore.
type OptionGrantStore struct {
	mu   sync.RWMutex
	data map[string]map[string]domain.OptionGrant // valuation_id -> grant_id -> grant
}

// NewOptionGrantStore creates a new in-memory option grant store.
func NewOptionGrantStore() *OptionGrantStore {
	return &OptionGrantStore{
		data: make(map[string]map[string]domain.OptionGrant),
	}
}

// InsertBulk adds all grants of a valuation atomically.
// Returns ErrDuplicateKey if any (valuation_id, grant_id) exists.
func (s *OptionGrantStore) InsertBulk(_ context.Context, valuationID string, grants []domain.OptionGrant) error {
	if valuationID == "" {
		return storage.ErrInvalidInput
	}
	for _, g := range grants {
		if g.ID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.data[valuationID]
	if byID == nil {
		byID = make(map[string]domain.OptionGrant, len(grants))
		s.data[valuationID] = byID
	}

	seen := make(map[string]struct{}, len(grants))
	for _, g := range grants {
		if _, exists := byID[g.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := seen[g.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[g.ID] = struct{}{}
	}

	for _, g := range grants {
		byID[g.ID] = g
	}
	return nil
}

// GetByValuation retrieves all grants of a valuation, ordered by grant_id ASC.
func (s *OptionGrantStore) GetByValuation(_ context.Context, valuationID string) ([]domain.OptionGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.data[valuationID]
	result := make([]domain.OptionGrant, 0, len(byID))
	for _, g := range byID {
		result = append(result, g)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.OptionGrantStore = (*OptionGrantStore)(nil)
