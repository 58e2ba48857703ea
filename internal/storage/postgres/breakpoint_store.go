package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"captable-lab/internal/domain"
	"captable-lab/internal/money"
	"captable-lab/internal/storage"
)

// BreakpointStore implements storage.BreakpointStore using PostgreSQL.
// Exit values are NUMERIC and round-trip as canonical decimal strings.
type BreakpointStore struct {
	pool *Pool
}

// NewBreakpointStore creates a new BreakpointStore.
func NewBreakpointStore(pool *Pool) *BreakpointStore {
	return &BreakpointStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BreakpointStore = (*BreakpointStore)(nil)

// InsertBulk adds a run's full schedule atomically.
// Returns ErrDuplicateKey if the run already has breakpoints.
func (s *BreakpointStore) InsertBulk(ctx context.Context, runID string, bps []domain.Breakpoint) error {
	query := `
		INSERT INTO breakpoints (
			run_id, priority_order, breakpoint_type, exit_value,
			affected_securities, dependencies,
			calculation_method, explanation, derivation
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert breakpoints: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, bp := range bps {
		_, err := tx.Exec(ctx, query,
			runID, bp.PriorityOrder, string(bp.Type), money.Canonical(bp.ExitValue),
			bp.AffectedSecurities, bp.Dependencies,
			bp.CalculationMethod, bp.Explanation, bp.Derivation,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert breakpoint %d: %w", bp.PriorityOrder, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit breakpoints: %w", err)
	}
	return nil
}

// GetByRunID retrieves a run's schedule, ordered by priority_order ASC.
// A run without stored breakpoints yields an empty schedule.
func (s *BreakpointStore) GetByRunID(ctx context.Context, runID string) ([]domain.Breakpoint, error) {
	query := `
		SELECT priority_order, breakpoint_type, exit_value::text,
		       affected_securities, dependencies,
		       calculation_method, explanation, derivation
		FROM breakpoints
		WHERE run_id = $1
		ORDER BY priority_order ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get breakpoints: %w", err)
	}
	defer rows.Close()

	var result []domain.Breakpoint
	for rows.Next() {
		var (
			bp       domain.Breakpoint
			typ, val string
		)
		err := rows.Scan(
			&bp.PriorityOrder, &typ, &val,
			&bp.AffectedSecurities, &bp.Dependencies,
			&bp.CalculationMethod, &bp.Explanation, &bp.Derivation,
		)
		if err != nil {
			return nil, fmt.Errorf("scan breakpoint: %w", err)
		}
		if bp.Type, err = domain.ParseBreakpointType(typ); err != nil {
			return nil, fmt.Errorf("breakpoint %d: %w", bp.PriorityOrder, err)
		}
		if bp.ExitValue, err = decimal.NewFromString(val); err != nil {
			return nil, fmt.Errorf("breakpoint %d: parse exit value %q: %w", bp.PriorityOrder, val, err)
		}
		result = append(result, bp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate breakpoints: %w", err)
	}
	return result, nil
}
