package reporting

import (
	"time"

	"captable-lab/internal/domain"
)

// Report is the renderable view of one analysis run.
type Report struct {
	// Metadata
	RunID       string
	RunRef      string
	ValuationID string
	CompanyID   string
	GeneratedAt time.Time

	// Schedule (ascending exit value)
	Schedule []ScheduleRow

	// Counts by breakpoint type
	Counts domain.BreakpointCounts

	// Validation outcomes (analysis order preserved)
	Validations []ValidationRow

	// Exit values where several securities change treatment at once
	CriticalValues []CriticalValueRow

	// Cap-table reconciliation quantities
	Audit domain.AuditSummary

	// Derivation effort
	Performance domain.PerformanceMetrics
}

// ScheduleRow is one breakpoint of the schedule, stringified for rendering.
type ScheduleRow struct {
	PriorityOrder      int
	Type               string
	ExitValue          string // USD, 2 dp
	AffectedSecurities []string
	CalculationMethod  string
	Explanation        string
	Derivation         string
	Dependencies       []string
}

// ValidationRow is one invariant check outcome.
type ValidationRow struct {
	Check              string
	Severity           string
	Status             string // PASS | FAIL
	Message            string
	AffectedSecurities []string
}

// CriticalValueRow is one coincident-event exit value.
type CriticalValueRow struct {
	ExitValue          string // USD, 2 dp
	Triggers           []string
	AffectedSecurities []string
}

// FailureCount returns the number of failed validation rows.
func (r *Report) FailureCount() int {
	n := 0
	for _, v := range r.Validations {
		if v.Status == statusFail {
			n++
		}
	}
	return n
}

const (
	statusPass = "PASS"
	statusFail = "FAIL"
)
