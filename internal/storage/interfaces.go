package storage

import (
	"context"

	"captable-lab/internal/domain"
)

// ValuationStore provides access to valuations storage.
type ValuationStore interface {
	// Insert adds a new valuation. Returns ErrDuplicateKey if valuation_id exists.
	Insert(ctx context.Context, v *domain.Valuation) error

	// GetByID retrieves a valuation by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, valuationID string) (*domain.Valuation, error)

	// List retrieves all valuations, ordered by valuation_id ASC.
	List(ctx context.Context) ([]*domain.Valuation, error)
}

// ShareClassStore provides access to share_classes storage.
type ShareClassStore interface {
	// InsertBulk adds all classes of a valuation atomically.
	// Returns ErrDuplicateKey if any (valuation_id, class_id) exists.
	InsertBulk(ctx context.Context, valuationID string, classes []domain.ShareClass) error

	// GetByValuation retrieves all classes of a valuation, ordered by class_id ASC.
	GetByValuation(ctx context.Context, valuationID string) ([]domain.ShareClass, error)
}

// OptionGrantStore provides access to option_grants storage.
type OptionGrantStore interface {
	// InsertBulk adds all grants of a valuation atomically.
	// Returns ErrDuplicateKey if any (valuation_id, grant_id) exists.
	InsertBulk(ctx context.Context, valuationID string, grants []domain.OptionGrant) error

	// GetByValuation retrieves all grants of a valuation, ordered by grant_id ASC.
	GetByValuation(ctx context.Context, valuationID string) ([]domain.OptionGrant, error)
}

// AnalysisRunStore provides access to analysis_runs storage.
type AnalysisRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists,
	// which marks a re-analysis of unchanged input.
	Insert(ctx context.Context, r *domain.AnalysisRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.AnalysisRun, error)

	// GetByRef retrieves a run by its short ref. Returns ErrNotFound if not exists.
	GetByRef(ctx context.Context, runRef string) (*domain.AnalysisRun, error)

	// GetByValuation retrieves all runs of a valuation, ordered by
	// created_at DESC, run_id ASC.
	GetByValuation(ctx context.Context, valuationID string) ([]*domain.AnalysisRun, error)
}

// BreakpointStore provides access to breakpoints storage.
type BreakpointStore interface {
	// InsertBulk adds a run's full schedule atomically.
	// Returns ErrDuplicateKey if the run already has breakpoints.
	InsertBulk(ctx context.Context, runID string, bps []domain.Breakpoint) error

	// GetByRunID retrieves a run's schedule, ordered by priority_order ASC.
	// A run without stored breakpoints yields an empty schedule.
	GetByRunID(ctx context.Context, runID string) ([]domain.Breakpoint, error)
}

// AllocationCurveStore provides access to allocation_curve storage.
type AllocationCurveStore interface {
	// InsertBulk adds sampled curve points.
	InsertBulk(ctx context.Context, points []*domain.AllocationPoint) error

	// GetByRunID retrieves all points of a run, ordered by
	// (exit_value ASC, security_id ASC).
	GetByRunID(ctx context.Context, runID string) ([]*domain.AllocationPoint, error)

	// GetBySecurity retrieves one security's curve, ordered by exit_value ASC.
	GetBySecurity(ctx context.Context, runID, securityID string) ([]*domain.AllocationPoint, error)
}
