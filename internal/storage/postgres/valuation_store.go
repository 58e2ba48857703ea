package postgres

import (
	"context"
	"fmt"

	"captable-lab/internal/domain"
	"captable-lab/internal/storage"
)

// ValuationStore implements storage.ValuationStore using PostgreSQL.
type ValuationStore struct {
	pool *Pool
}

// NewValuationStore creates a new ValuationStore.
func NewValuationStore(pool *Pool) *ValuationStore {
	return &ValuationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ValuationStore = (*ValuationStore)(nil)

// Insert adds a new valuation. Returns ErrDuplicateKey if valuation_id exists.
func (s *ValuationStore) Insert(ctx context.Context, v *domain.Valuation) error {
	query := `
		INSERT INTO valuations (valuation_id, company_id, name, valuation_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		v.ValuationID, v.CompanyID, v.Name, v.ValuationDate, v.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert valuation: %w", err)
	}
	return nil
}

// GetByID retrieves a valuation by its ID. Returns ErrNotFound if not exists.
func (s *ValuationStore) GetByID(ctx context.Context, valuationID string) (*domain.Valuation, error) {
	query := `
		SELECT valuation_id, company_id, name, valuation_date, created_at
		FROM valuations
		WHERE valuation_id = $1
	`

	var v domain.Valuation
	err := s.pool.QueryRow(ctx, query, valuationID).Scan(
		&v.ValuationID, &v.CompanyID, &v.Name, &v.ValuationDate, &v.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get valuation by id: %w", err)
	}
	return &v, nil
}

// List retrieves all valuations, ordered by valuation_id ASC.
func (s *ValuationStore) List(ctx context.Context) ([]*domain.Valuation, error) {
	query := `
		SELECT valuation_id, company_id, name, valuation_date, created_at
		FROM valuations
		ORDER BY valuation_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list valuations: %w", err)
	}
	defer rows.Close()

	var result []*domain.Valuation
	for rows.Next() {
		var v domain.Valuation
		if err := rows.Scan(&v.ValuationID, &v.CompanyID, &v.Name, &v.ValuationDate, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan valuation: %w", err)
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate valuations: %w", err)
	}
	return result, nil
}
