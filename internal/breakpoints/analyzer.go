// Package breakpoints derives the complete breakpoint schedule of a capital
// structure: the ordered exit values at which the marginal allocation of
// proceeds among securities changes.
package breakpoints

import (
	"time"

	"captable-lab/internal/captable"
	"captable-lab/internal/domain"
	"captable-lab/internal/verification"
	"captable-lab/internal/waterfall"
)

// Analyzer derives breakpoint schedules for one normalized structure.
// It holds no state across analyses; every call recomputes from the
// structure, so independent analyzers may run concurrently.
type Analyzer struct {
	s *captable.Structure
}

// New validates and normalizes the raw cap table and returns an analyzer
// over it. Structurally invalid input fails here, before any analysis runs.
func New(classes []domain.ShareClass, grants []domain.OptionGrant, cfg captable.Config) (*Analyzer, error) {
	s, err := captable.NewStructure(classes, grants, cfg)
	if err != nil {
		return nil, err
	}
	return NewFromStructure(s), nil
}

// NewFromStructure returns an analyzer over an already-normalized structure.
func NewFromStructure(s *captable.Structure) *Analyzer {
	return &Analyzer{s: s}
}

// Structure returns the normalized structure under analysis.
func (a *Analyzer) Structure() *captable.Structure {
	return a.s
}

// AnalyzeCompleteBreakpointStructure derives the full breakpoint schedule.
//
// Derivation order:
//  1. Liquidation preference thresholds, one per seniority tier, closed form
//  2. Participation opening for zero-strike grants
//  3. Ascending sweep over elective events (option exercises, cap pins,
//     conversion crossovers), each located by a linear solve under the
//     payoff regime in force below it
//  4. Merge, sort by (exit value ASC, type rank ASC), dedupe, number
//  5. Critical values where several events coincide
//  6. Audit probes against the waterfall evaluator
//
// The method never fails: degenerate structures produce short or empty
// schedules, and every irregularity rides along as a validation result.
func (a *Analyzer) AnalyzeCompleteBreakpointStructure() *domain.AnalysisResult {
	started := time.Now()

	res := &domain.AnalysisResult{
		ValidationResults: append([]domain.ValidationResult(nil), a.s.Findings...),
		Audit:             a.s.Audit(),
	}

	bps := a.preferenceBreakpoints()
	bps = append(bps, a.participationOpening()...)

	sw := newSweep(a.s)
	bps = append(bps, sw.run()...)
	res.Performance.SweepIterations = sw.iterations

	res.Breakpoints = buildSchedule(bps)
	for i := range res.Breakpoints {
		res.Counts.Add(res.Breakpoints[i].Type)
	}
	res.CriticalValues = criticalValues(res.Breakpoints, sw)

	a.audit(res)

	res.Performance.ElapsedMicros = time.Since(started).Microseconds()
	return res
}

// audit runs the probe checks and annotates degenerate structures.
func (a *Analyzer) audit(res *domain.AnalysisResult) {
	eval := waterfall.NewEvaluator(a.s)
	res.ValidationResults = append(res.ValidationResults, verification.Probes(eval, a.s, res.Breakpoints)...)
	res.ValidationResults = append(res.ValidationResults, verification.ScheduleOrder(res.Breakpoints))
	res.Performance.ProbeEvaluations = eval.Evaluations()

	switch {
	case a.s.Empty():
		res.Audit.Notes = append(res.Audit.Notes, "empty capital structure: nothing to allocate")
	case a.s.FullyDilutedShares.Sign() == 0:
		res.Audit.Notes = append(res.Audit.Notes, "zero fully diluted shares: no residual participants")
	case len(res.Breakpoints) == 0:
		res.Audit.Notes = append(res.Audit.Notes, "no allocation-changing events: single-behavior structure")
	}
}
