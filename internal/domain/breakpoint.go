package domain

import "github.com/shopspring/decimal"

// BreakpointType identifies which payoff-structure event a breakpoint marks.
type BreakpointType string

const (
	BreakpointLiquidationPreference BreakpointType = "liquidation-preference-satisfied"
	BreakpointProRata               BreakpointType = "pro-rata-threshold"
	BreakpointOptionExercise        BreakpointType = "option-exercise"
	BreakpointParticipationCap      BreakpointType = "participation-cap-reached"
	BreakpointConversion            BreakpointType = "conversion-crossover"
)

// String returns the string representation of BreakpointType.
func (t BreakpointType) String() string {
	return string(t)
}

// IsValid checks if the breakpoint type is a valid value.
func (t BreakpointType) IsValid() bool {
	switch t {
	case BreakpointLiquidationPreference, BreakpointProRata, BreakpointOptionExercise,
		BreakpointParticipationCap, BreakpointConversion:
		return true
	}
	return false
}

// Rank returns the tie-break position for breakpoints sharing an exit value.
// Lower ranks sort first: preference satisfaction, then participation opening,
// then option exercise, then caps, then conversions.
func (t BreakpointType) Rank() int {
	switch t {
	case BreakpointLiquidationPreference:
		return 0
	case BreakpointProRata:
		return 1
	case BreakpointOptionExercise:
		return 2
	case BreakpointParticipationCap:
		return 3
	case BreakpointConversion:
		return 4
	}
	return 5
}

// Breakpoint marks an exit value at which the marginal allocation of proceeds
// changes for at least one security. Corresponds to breakpoints table in
// PostgreSQL.
type Breakpoint struct {
	Type               BreakpointType
	ExitValue          decimal.Decimal // total exit proceeds at which the change occurs
	AffectedSecurities []string        // ids whose treatment changes at this point, sorted
	CalculationMethod  string          // formula family used to locate the value
	Explanation        string          // plain-language reading of the event
	Derivation         string          // the arithmetic with the actual inputs
	Dependencies       []string        // security ids whose terms feed the value, sorted
	PriorityOrder      int             // position in the ascending schedule, 0-based
}

// CriticalValue is an exit value where the payoffs of several securities
// change at once.
type CriticalValue struct {
	ExitValue          decimal.Decimal
	Triggers           []string // what fires at this value, one entry per event
	AffectedSecurities []string // union of affected ids, sorted
}
