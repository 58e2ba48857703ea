package memory

import (
	"context"
	"sort"
	"sync"

	"captable-lab/internal/domain"
	"captable-lab/internal/storage"
)

// ValuationStore is an in-memory implementation of storage.ValuationStore.
type ValuationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Valuation // keyed by valuation_id
}

// NewValuationStore creates a new in-memory valuation store.
func NewValuationStore() *ValuationStore {
	return &ValuationStore{
		data: make(map[string]*domain.Valuation),
	}
}

// Insert adds a new valuation. Returns ErrDuplicateKey if valuation_id exists.
func (s *ValuationStore) Insert(_ context.Context, v *domain.Valuation) error {
	if v == nil || v.ValuationID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[v.ValuationID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	valuationCopy := *v
	s.data[v.ValuationID] = &valuationCopy
	return nil
}

// GetByID retrieves a valuation by its ID. Returns ErrNotFound if not exists.
func (s *ValuationStore) GetByID(_ context.Context, valuationID string) (*domain.Valuation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[valuationID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	valuationCopy := *v
	return &valuationCopy, nil
}

// List retrieves all valuations, ordered by valuation_id ASC.
func (s *ValuationStore) List(_ context.Context) ([]*domain.Valuation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Valuation, 0, len(s.data))
	for _, v := range s.data {
		valuationCopy := *v
		result = append(result, &valuationCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ValuationID < result[j].ValuationID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ValuationStore = (*ValuationStore)(nil)
