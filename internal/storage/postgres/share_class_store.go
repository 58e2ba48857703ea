package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"captable-lab/internal/domain"
	"captable-lab/internal/money"
	"captable-lab/internal/storage"
)

// ShareClassStore implements storage.ShareClassStore using PostgreSQL.
// Monetary columns are NUMERIC and round-trip as canonical decimal strings
// so stored values compare exactly.
type ShareClassStore struct {
	pool *Pool
}

// NewShareClassStore creates a new ShareClassStore.
func NewShareClassStore(pool *Pool) *ShareClassStore {
	return &ShareClassStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ShareClassStore = (*ShareClassStore)(nil)

// InsertBulk adds all classes of a valuation atomically.
// Returns ErrDuplicateKey if any (valuation_id, class_id) exists.
func (s *ShareClassStore) InsertBulk(ctx context.Context, valuationID string, classes []domain.ShareClass) error {
	if len(classes) == 0 {
		return nil
	}

	query := `
		INSERT INTO share_classes (
			valuation_id, class_id, name, share_type,
			shares_outstanding, price_per_share, round_date, seniority,
			liquidation_multiple, preference_type, participation_cap, conversion_ratio,
			dividends_declared, dividend_rate, dividend_type, compounding
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert share classes: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range classes {
		_, err := tx.Exec(ctx, query,
			valuationID, c.ID, c.Name, string(c.Type),
			money.Canonical(c.SharesOutstanding), money.Canonical(c.PricePerShare), c.RoundDate, c.Seniority,
			money.Canonical(c.LiquidationMultiple), string(c.PreferenceType),
			money.Canonical(c.ParticipationCap), money.Canonical(c.ConversionRatio),
			c.DividendsDeclared, money.Canonical(c.DividendRate), string(c.DividendType), c.Compounding,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert share class %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit share classes: %w", err)
	}
	return nil
}

// GetByValuation retrieves all classes of a valuation, ordered by class_id ASC.
func (s *ShareClassStore) GetByValuation(ctx context.Context, valuationID string) ([]domain.ShareClass, error) {
	query := `
		SELECT class_id, name, share_type,
		       shares_outstanding::text, price_per_share::text, round_date, seniority,
		       liquidation_multiple::text, preference_type, participation_cap::text, conversion_ratio::text,
		       dividends_declared, dividend_rate::text, dividend_type, compounding
		FROM share_classes
		WHERE valuation_id = $1
		ORDER BY class_id ASC
	`

	rows, err := s.pool.Query(ctx, query, valuationID)
	if err != nil {
		return nil, fmt.Errorf("get share classes: %w", err)
	}
	defer rows.Close()

	var result []domain.ShareClass
	for rows.Next() {
		c, err := scanShareClass(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate share classes: %w", err)
	}
	return result, nil
}

// scanShareClass maps one row onto the domain type, converting stored
// strings to closed enums at this adapter boundary.
func scanShareClass(row pgx.Row) (domain.ShareClass, error) {
	var (
		c                            domain.ShareClass
		shareType, prefType, divType string
		shares, price, multiple      string
		capAmt, ratio, rate          string
	)
	err := row.Scan(
		&c.ID, &c.Name, &shareType,
		&shares, &price, &c.RoundDate, &c.Seniority,
		&multiple, &prefType, &capAmt, &ratio,
		&c.DividendsDeclared, &rate, &divType, &c.Compounding,
	)
	if err != nil {
		return c, fmt.Errorf("scan share class: %w", err)
	}

	if c.Type, err = domain.ParseShareType(shareType); err != nil {
		return c, fmt.Errorf("share class %s: %w", c.ID, err)
	}
	if prefType != "" {
		if c.PreferenceType, err = domain.ParsePreferenceType(prefType); err != nil {
			return c, fmt.Errorf("share class %s: %w", c.ID, err)
		}
	}
	if divType != "" {
		if c.DividendType, err = domain.ParseDividendType(divType); err != nil {
			return c, fmt.Errorf("share class %s: %w", c.ID, err)
		}
	}

	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&c.SharesOutstanding, shares},
		{&c.PricePerShare, price},
		{&c.LiquidationMultiple, multiple},
		{&c.ParticipationCap, capAmt},
		{&c.ConversionRatio, ratio},
		{&c.DividendRate, rate},
	} {
		if *field.dst, err = decimal.NewFromString(field.src); err != nil {
			return c, fmt.Errorf("share class %s: parse numeric %q: %w", c.ID, field.src, err)
		}
	}
	return c, nil
}
