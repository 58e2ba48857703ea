package domain

import "github.com/shopspring/decimal"

// Valuation is the header record a cap table hangs off.
// Corresponds to valuations table in PostgreSQL.
type Valuation struct {
	ValuationID   string // PRIMARY KEY
	CompanyID     string
	Name          string // display name, e.g. "FY2026 409A"
	ValuationDate int64  // Unix ms UTC; 0 when not set
	CreatedAt     int64  // record creation timestamp (ms)
}

// AnalysisRun is the persisted header of one completed analysis.
// Corresponds to analysis_runs table in PostgreSQL.
type AnalysisRun struct {
	RunID              string // PRIMARY KEY, deterministic hash of the input structure
	RunRef             string // short base58 handle derived from RunID
	ValuationID        string // valuation the run belongs to
	CompanyID          string
	ValuationDate      int64 // Unix ms UTC; 0 when not supplied
	TotalBreakpoints   int
	Counts             BreakpointCounts
	ValidationFailures int
	ElapsedMicros      int64
	CreatedAt          int64 // record creation timestamp (ms)
}

// AllocationPoint is one sampled point of a security's payoff curve.
// Corresponds to allocation_curve table in ClickHouse.
type AllocationPoint struct {
	RunID      string
	SecurityID string
	ExitValue  decimal.Decimal
	Amount     decimal.Decimal
}
