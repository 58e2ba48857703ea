package domain

import "github.com/shopspring/decimal"

// BreakpointCounts tallies a schedule by breakpoint type.
type BreakpointCounts struct {
	LiquidationPreference int
	ProRata               int
	OptionExercise        int
	ParticipationCap      int
	Conversion            int
}

// Total returns the sum across all types.
func (c BreakpointCounts) Total() int {
	return c.LiquidationPreference + c.ProRata + c.OptionExercise + c.ParticipationCap + c.Conversion
}

// Add increments the tally for one breakpoint type.
func (c *BreakpointCounts) Add(t BreakpointType) {
	switch t {
	case BreakpointLiquidationPreference:
		c.LiquidationPreference++
	case BreakpointProRata:
		c.ProRata++
	case BreakpointOptionExercise:
		c.OptionExercise++
	case BreakpointParticipationCap:
		c.ParticipationCap++
	case BreakpointConversion:
		c.Conversion++
	}
}

// AuditSummary aggregates the cap-table quantities behind a run so a reviewer
// can reconcile the schedule against its inputs.
type AuditSummary struct {
	TotalInvestedCapital       decimal.Decimal
	TotalLiquidationPreference decimal.Decimal // includes accrued dividends
	TotalAccruedDividends      decimal.Decimal
	CommonShares               decimal.Decimal
	PreferredShares            decimal.Decimal
	PreferredAsConverted       decimal.Decimal
	OptionsOutstanding         decimal.Decimal
	FullyDilutedShares         decimal.Decimal // common + preferred as-converted + options
	SeniorityTiers             int
	Notes                      []string // free-form observations, e.g. degenerate-input markers
}

// PerformanceMetrics records derivation effort for diagnostics. Timings vary
// between runs and are excluded from determinism guarantees.
type PerformanceMetrics struct {
	SweepIterations  int   // state-walk steps taken by the derivation
	ProbeEvaluations int   // waterfall evaluations spent on audit probes
	ElapsedMicros    int64 // wall time of the analysis
}

// AnalysisResult is the complete outcome of one breakpoint analysis.
type AnalysisResult struct {
	Breakpoints       []Breakpoint // ascending exit value, equal values tie-broken by type rank
	CriticalValues    []CriticalValue
	ValidationResults []ValidationResult
	Counts            BreakpointCounts
	Audit             AuditSummary
	Performance       PerformanceMetrics
}

// FailureCount returns the number of failed validation checks.
func (r *AnalysisResult) FailureCount() int {
	n := 0
	for _, v := range r.ValidationResults {
		if !v.Passed {
			n++
		}
	}
	return n
}
