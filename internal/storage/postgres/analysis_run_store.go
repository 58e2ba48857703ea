package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"captable-lab/internal/domain"
	"captable-lab/internal/storage"
)

// AnalysisRunStore implements storage.AnalysisRunStore using PostgreSQL.
type AnalysisRunStore struct {
	pool *Pool
}

// NewAnalysisRunStore creates a new AnalysisRunStore.
func NewAnalysisRunStore(pool *Pool) *AnalysisRunStore {
	return &AnalysisRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AnalysisRunStore = (*AnalysisRunStore)(nil)

const runColumns = `
	run_id, run_ref, valuation_id, company_id, valuation_date,
	total_breakpoints, cnt_liquidation_preference, cnt_pro_rata,
	cnt_option_exercise, cnt_participation_cap, cnt_conversion,
	validation_failures, elapsed_micros, created_at
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *AnalysisRunStore) Insert(ctx context.Context, r *domain.AnalysisRun) error {
	query := `
		INSERT INTO analysis_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.RunRef, r.ValuationID, r.CompanyID, r.ValuationDate,
		r.TotalBreakpoints, r.Counts.LiquidationPreference, r.Counts.ProRata,
		r.Counts.OptionExercise, r.Counts.ParticipationCap, r.Counts.Conversion,
		r.ValidationFailures, r.ElapsedMicros, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert analysis run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *AnalysisRunStore) GetByID(ctx context.Context, runID string) (*domain.AnalysisRun, error) {
	query := `SELECT ` + runColumns + ` FROM analysis_runs WHERE run_id = $1`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return r, nil
}

// GetByRef retrieves a run by its short ref. Returns ErrNotFound if not exists.
func (s *AnalysisRunStore) GetByRef(ctx context.Context, runRef string) (*domain.AnalysisRun, error) {
	query := `SELECT ` + runColumns + ` FROM analysis_runs WHERE run_ref = $1`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runRef))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by ref: %w", err)
	}
	return r, nil
}

// GetByValuation retrieves all runs of a valuation, ordered by
// created_at DESC, run_id ASC.
func (s *AnalysisRunStore) GetByValuation(ctx context.Context, valuationID string) ([]*domain.AnalysisRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM analysis_runs
		WHERE valuation_id = $1
		ORDER BY created_at DESC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, valuationID)
	if err != nil {
		return nil, fmt.Errorf("get runs by valuation: %w", err)
	}
	defer rows.Close()

	var result []*domain.AnalysisRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return result, nil
}

func scanRun(row pgx.Row) (*domain.AnalysisRun, error) {
	var r domain.AnalysisRun
	err := row.Scan(
		&r.RunID, &r.RunRef, &r.ValuationID, &r.CompanyID, &r.ValuationDate,
		&r.TotalBreakpoints, &r.Counts.LiquidationPreference, &r.Counts.ProRata,
		&r.Counts.OptionExercise, &r.Counts.ParticipationCap, &r.Counts.Conversion,
		&r.ValidationFailures, &r.ElapsedMicros, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
