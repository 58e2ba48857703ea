package clickhouse

import (
	"context"
	"fmt"

	"captable-lab/internal/domain"
	"captable-lab/internal/storage"
)

// AllocationCurveStore implements storage.AllocationCurveStore using ClickHouse.
// Exit values and amounts are Decimal(38,10) columns, which clickhouse-go maps
// directly onto shopspring decimals.
type AllocationCurveStore struct {
	conn *Conn
}

// NewAllocationCurveStore creates a new AllocationCurveStore.
func NewAllocationCurveStore(conn *Conn) *AllocationCurveStore {
	return &AllocationCurveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AllocationCurveStore = (*AllocationCurveStore)(nil)

// InsertBulk adds sampled curve points. Fails the entire batch on a duplicate
// (run_id, exit_value, security_id).
func (s *AllocationCurveStore) InsertBulk(ctx context.Context, points []*domain.AllocationPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		runID      string
		exitValue  string
		securityID string
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.RunID, p.ExitValue.String(), p.SecurityID}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// MergeTree does not enforce uniqueness, so re-persisting a run has to be
	// caught here before the batch goes out.
	runs := make(map[string]struct{})
	for _, p := range points {
		runs[p.RunID] = struct{}{}
	}
	for runID := range runs {
		exists, err := s.runExists(ctx, runID)
		if err != nil {
			return fmt.Errorf("check run exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO allocation_curve (run_id, exit_value, security_id, amount)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(p.RunID, p.ExitValue, p.SecurityID, p.Amount); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all points of a run, ordered by (exit_value ASC, security_id ASC).
func (s *AllocationCurveStore) GetByRunID(ctx context.Context, runID string) ([]*domain.AllocationPoint, error) {
	query := `
		SELECT run_id, exit_value, security_id, amount
		FROM allocation_curve
		WHERE run_id = ?
		ORDER BY exit_value ASC, security_id ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanAllocationPoints(rows)
}

// GetBySecurity retrieves one security's curve, ordered by exit_value ASC.
func (s *AllocationCurveStore) GetBySecurity(ctx context.Context, runID, securityID string) ([]*domain.AllocationPoint, error) {
	query := `
		SELECT run_id, exit_value, security_id, amount
		FROM allocation_curve
		WHERE run_id = ? AND security_id = ?
		ORDER BY exit_value ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, securityID)
	if err != nil {
		return nil, fmt.Errorf("query by security: %w", err)
	}
	defer rows.Close()

	return scanAllocationPoints(rows)
}

// runExists checks if any point for the run is already stored.
func (s *AllocationCurveStore) runExists(ctx context.Context, runID string) (bool, error) {
	query := `SELECT count(*) FROM allocation_curve WHERE run_id = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, runID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanAllocationPoints scans multiple rows.
func scanAllocationPoints(rows chRows) ([]*domain.AllocationPoint, error) {
	var points []*domain.AllocationPoint

	for rows.Next() {
		var p domain.AllocationPoint
		err := rows.Scan(&p.RunID, &p.ExitValue, &p.SecurityID, &p.Amount)
		if err != nil {
			return nil, fmt.Errorf("scan allocation point: %w", err)
		}
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allocation points: %w", err)
	}

	return points, nil
}
