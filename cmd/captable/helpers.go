// Shared helpers for the captable CLI commands.
package main

import (
	"time"

	"github.com/shopspring/decimal"

	"captable-lab/internal/breakpoints"
	"captable-lab/internal/captable"
	"captable-lab/internal/domain"
	"captable-lab/internal/idhash"
)

// loadAnalyzer reads a cap-table document and constructs the analyzer.
func loadAnalyzer(path string) (*breakpoints.Analyzer, *domain.Valuation, error) {
	doc, err := captable.LoadDocument(path)
	if err != nil {
		return nil, nil, err
	}
	v, classes, grants, err := doc.ToDomain()
	if err != nil {
		return nil, nil, err
	}

	analyzer, err := breakpoints.New(classes, grants, captable.Config{ValuationDate: v.ValuationDate})
	if err != nil {
		return nil, nil, err
	}
	return analyzer, v, nil
}

// buildRun assembles the run header a file-based analysis reports under.
func buildRun(v *domain.Valuation, s *captable.Structure, res *domain.AnalysisResult) *domain.AnalysisRun {
	runID := idhash.ComputeRunID(v.ValuationID, v.CompanyID, s)
	return &domain.AnalysisRun{
		RunID:              runID,
		RunRef:             idhash.RunRef(runID),
		ValuationID:        v.ValuationID,
		CompanyID:          v.CompanyID,
		ValuationDate:      v.ValuationDate,
		TotalBreakpoints:   len(res.Breakpoints),
		Counts:             res.Counts,
		ValidationFailures: res.FailureCount(),
		ElapsedMicros:      res.Performance.ElapsedMicros,
		CreatedAt:          time.Now().UTC().UnixMilli(),
	}
}

// pointRefs converts sampled curve points to the slice shape the report
// generator and stores consume.
func pointRefs(points []domain.AllocationPoint) []*domain.AllocationPoint {
	rows := make([]*domain.AllocationPoint, len(points))
	for i := range points {
		rows[i] = &points[i]
	}
	return rows
}

// curveLimit picks the sampling upper bound: the last breakpoint plus the
// preference-and-capital margin, or the margin alone for flat structures.
func curveLimit(s *captable.Structure, res *domain.AnalysisResult) decimal.Decimal {
	margin := s.TotalPreference.Add(s.TotalInvestedCapital)
	if margin.Sign() == 0 {
		margin = decimal.NewFromInt(1_000_000)
	}
	if n := len(res.Breakpoints); n > 0 {
		return res.Breakpoints[n-1].ExitValue.Add(margin)
	}
	return margin
}
