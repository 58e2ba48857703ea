package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"captable-lab/internal/domain"
	"captable-lab/internal/money"
	"captable-lab/internal/storage"
)

// OptionGrantStore implements storage.OptionGrantStore using PostgreSQL.
type OptionGrantStore struct {
	pool *Pool
}

// NewOptionGrantStore creates a new OptionGrantStore.
func NewOptionGrantStore(pool *Pool) *OptionGrantStore {
	return &OptionGrantStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OptionGrantStore = (*OptionGrantStore)(nil)

// InsertBulk adds all grants of a valuation atomically.
// Returns ErrDuplicateKey if any (valuation_id, grant_id) exists.
func (s *OptionGrantStore) InsertBulk(ctx context.Context, valuationID string, grants []domain.OptionGrant) error {
	if len(grants) == 0 {
		return nil
	}

	query := `
		INSERT INTO option_grants (valuation_id, grant_id, name, num_options, exercise_price, kind)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert option grants: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, g := range grants {
		_, err := tx.Exec(ctx, query,
			valuationID, g.ID, g.Name,
			money.Canonical(g.NumOptions), money.Canonical(g.ExercisePrice), string(g.Kind),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert option grant %s: %w", g.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit option grants: %w", err)
	}
	return nil
}

// GetByValuation retrieves all grants of a valuation, ordered by grant_id ASC.
func (s *OptionGrantStore) GetByValuation(ctx context.Context, valuationID string) ([]domain.OptionGrant, error) {
	query := `
		SELECT grant_id, name, num_options::text, exercise_price::text, kind
		FROM option_grants
		WHERE valuation_id = $1
		ORDER BY grant_id ASC
	`

	rows, err := s.pool.Query(ctx, query, valuationID)
	if err != nil {
		return nil, fmt.Errorf("get option grants: %w", err)
	}
	defer rows.Close()

	var result []domain.OptionGrant
	for rows.Next() {
		var (
			g           domain.OptionGrant
			num, strike string
			kind        string
		)
		if err := rows.Scan(&g.ID, &g.Name, &num, &strike, &kind); err != nil {
			return nil, fmt.Errorf("scan option grant: %w", err)
		}
		if g.Kind, err = domain.ParseGrantKind(kind); err != nil {
			return nil, fmt.Errorf("option grant %s: %w", g.ID, err)
		}
		if g.NumOptions, err = decimal.NewFromString(num); err != nil {
			return nil, fmt.Errorf("option grant %s: parse num options %q: %w", g.ID, num, err)
		}
		if g.ExercisePrice, err = decimal.NewFromString(strike); err != nil {
			return nil, fmt.Errorf("option grant %s: parse exercise price %q: %w", g.ID, strike, err)
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate option grants: %w", err)
	}
	return result, nil
}
