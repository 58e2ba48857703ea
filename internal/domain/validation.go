package domain

// Severity grades a validation finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// String returns the string representation of Severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid checks if the severity is a valid value.
func (s Severity) IsValid() bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityError
}

// ValidationResult records the outcome of one invariant check. Checks never
// abort an analysis; failures ride along in the result.
type ValidationResult struct {
	Check              string   // stable check identifier, e.g. "conservation"
	Severity           Severity // info | warning | error
	Passed             bool
	Message            string
	AffectedSecurities []string // ids the finding concerns, sorted; empty when structure-wide
}

// Validation check identifiers.
const (
	CheckConservation     = "conservation"
	CheckMonotonicity     = "monotonicity"
	CheckZeroValue        = "zero-value"
	CheckDividendAccrual  = "dividend-accrual"
	CheckClassTerms       = "class-terms"
	CheckGrantTerms       = "grant-terms"
	CheckDegenerateInput  = "degenerate-input"
	CheckResidualCoverage = "residual-coverage"
	CheckScheduleOrder    = "schedule-order"
)
