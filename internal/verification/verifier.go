// Package verification audits a derived breakpoint schedule against the
// waterfall evaluator. The evaluator allocates from scratch at any exit
// value, so the checks are independent of the derivation that produced the
// schedule. Findings are data: a failed check rides along in the analysis
// result, it never aborts the run.
package verification

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"captable-lab/internal/captable"
	"captable-lab/internal/domain"
	"captable-lab/internal/money"
	"captable-lab/internal/waterfall"
)

var two = decimal.NewFromInt(2)

// Probes runs the audit checks over a schedule:
//
//   - zero value: nothing is allocated at an exit value of zero
//   - conservation: allocated amounts plus unallocated residue equal the
//     probe value exactly, at every probe
//   - monotonicity: no security's payoff decreases between probes
//   - residual coverage: past the last breakpoint some cohort absorbs the
//     residual, otherwise proceeds go unallocated
//
// Probe values are 0, every breakpoint, the midpoints between adjacent
// distinct breakpoints, and a margin past the last breakpoint.
func Probes(eval *waterfall.Evaluator, s *captable.Structure, bps []domain.Breakpoint) []domain.ValidationResult {
	probes := probeValues(s, bps)
	allocs := make([]waterfall.Allocation, len(probes))
	for i, v := range probes {
		allocs[i] = eval.AllocationAt(v)
	}

	return []domain.ValidationResult{
		checkZeroValue(allocs[0]),
		checkConservation(probes, allocs),
		checkMonotonicity(s, probes, allocs),
		checkResidualCoverage(s, probes, allocs),
	}
}

// probeValues builds the ascending probe grid. The first probe is always
// zero; the last always clears every breakpoint.
func probeValues(s *captable.Structure, bps []domain.Breakpoint) []decimal.Decimal {
	probes := []decimal.Decimal{decimal.Zero}
	for _, bp := range bps {
		last := probes[len(probes)-1]
		if bp.ExitValue.Equal(last) {
			continue
		}
		mid := money.Div(last.Add(bp.ExitValue), two)
		if mid.GreaterThan(last) && mid.LessThan(bp.ExitValue) {
			probes = append(probes, mid)
		}
		probes = append(probes, bp.ExitValue)
	}

	margin := s.TotalPreference.Add(s.TotalInvestedCapital)
	if margin.Sign() <= 0 {
		margin = decimal.NewFromInt(1_000_000)
	}
	probes = append(probes, probes[len(probes)-1].Add(margin))
	return probes
}

func checkZeroValue(alloc waterfall.Allocation) domain.ValidationResult {
	var offenders []string
	for id, amt := range alloc.Amounts {
		if amt.Sign() != 0 {
			offenders = append(offenders, id)
		}
	}
	sort.Strings(offenders)

	if len(offenders) > 0 {
		return domain.ValidationResult{
			Check:              domain.CheckZeroValue,
			Severity:           domain.SeverityError,
			Message:            fmt.Sprintf("%d securities allocated proceeds at zero exit value", len(offenders)),
			AffectedSecurities: offenders,
		}
	}
	return domain.ValidationResult{
		Check:    domain.CheckZeroValue,
		Severity: domain.SeverityInfo,
		Passed:   true,
		Message:  "no proceeds allocated at zero exit value",
	}
}

func checkConservation(probes []decimal.Decimal, allocs []waterfall.Allocation) domain.ValidationResult {
	for i, v := range probes {
		total := allocs[i].Unallocated
		for _, amt := range allocs[i].Amounts {
			total = total.Add(amt)
		}
		if !total.Equal(v) {
			return domain.ValidationResult{
				Check:    domain.CheckConservation,
				Severity: domain.SeverityError,
				Message: fmt.Sprintf("allocated %s at probe %s, difference %s",
					money.USD(total), money.USD(v), money.USD(total.Sub(v))),
			}
		}
	}
	return domain.ValidationResult{
		Check:    domain.CheckConservation,
		Severity: domain.SeverityInfo,
		Passed:   true,
		Message:  fmt.Sprintf("allocations sum to the exit value at all %d probes", len(probes)),
	}
}

func checkMonotonicity(s *captable.Structure, probes []decimal.Decimal, allocs []waterfall.Allocation) domain.ValidationResult {
	var offenders []string
	for _, id := range s.SecurityIDs() {
		for i := 1; i < len(allocs); i++ {
			if allocs[i].Amounts[id].LessThan(allocs[i-1].Amounts[id]) {
				offenders = append(offenders, id)
				break
			}
		}
	}

	if len(offenders) > 0 {
		return domain.ValidationResult{
			Check:              domain.CheckMonotonicity,
			Severity:           domain.SeverityError,
			Message:            fmt.Sprintf("%d securities lose value between probes", len(offenders)),
			AffectedSecurities: offenders,
		}
	}
	return domain.ValidationResult{
		Check:    domain.CheckMonotonicity,
		Severity: domain.SeverityInfo,
		Passed:   true,
		Message:  fmt.Sprintf("every security's payoff is non-decreasing across %d probes", len(probes)),
	}
}

// checkResidualCoverage verifies the top probe leaves nothing unallocated.
// A structure of only non-participating preferred can strand residue with
// no cohort to absorb it; that is a data-quality warning, not an error.
func checkResidualCoverage(s *captable.Structure, probes []decimal.Decimal, allocs []waterfall.Allocation) domain.ValidationResult {
	if s.Empty() {
		return domain.ValidationResult{
			Check:    domain.CheckResidualCoverage,
			Severity: domain.SeverityInfo,
			Passed:   true,
			Message:  "no securities: residual coverage not applicable",
		}
	}
	top := allocs[len(allocs)-1]
	if top.Unallocated.Sign() > 0 {
		return domain.ValidationResult{
			Check:    domain.CheckResidualCoverage,
			Severity: domain.SeverityWarning,
			Message: fmt.Sprintf("%s unallocated at probe %s: no participating cohort absorbs the residual",
				money.USD(top.Unallocated), money.USD(probes[len(probes)-1])),
		}
	}
	return domain.ValidationResult{
		Check:    domain.CheckResidualCoverage,
		Severity: domain.SeverityInfo,
		Passed:   true,
		Message:  "residual proceeds fully absorbed past the last breakpoint",
	}
}
