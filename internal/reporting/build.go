package reporting

import (
	"time"

	"captable-lab/internal/domain"
	"captable-lab/internal/money"
)

// Build assembles a Report from a persisted run header and its analysis result.
func Build(run *domain.AnalysisRun, res *domain.AnalysisResult, generatedAt time.Time) *Report {
	r := &Report{
		RunID:       run.RunID,
		RunRef:      run.RunRef,
		ValuationID: run.ValuationID,
		CompanyID:   run.CompanyID,
		GeneratedAt: generatedAt.UTC(),
		Counts:      res.Counts,
		Audit:       res.Audit,
		Performance: res.Performance,
	}

	r.Schedule = make([]ScheduleRow, len(res.Breakpoints))
	for i, bp := range res.Breakpoints {
		r.Schedule[i] = ScheduleRow{
			PriorityOrder:      bp.PriorityOrder,
			Type:               bp.Type.String(),
			ExitValue:          money.USD(bp.ExitValue),
			AffectedSecurities: bp.AffectedSecurities,
			CalculationMethod:  bp.CalculationMethod,
			Explanation:        bp.Explanation,
			Derivation:         bp.Derivation,
			Dependencies:       bp.Dependencies,
		}
	}

	r.Validations = make([]ValidationRow, len(res.ValidationResults))
	for i, v := range res.ValidationResults {
		status := statusFail
		if v.Passed {
			status = statusPass
		}
		r.Validations[i] = ValidationRow{
			Check:              v.Check,
			Severity:           v.Severity.String(),
			Status:             status,
			Message:            v.Message,
			AffectedSecurities: v.AffectedSecurities,
		}
	}

	r.CriticalValues = make([]CriticalValueRow, len(res.CriticalValues))
	for i, cv := range res.CriticalValues {
		r.CriticalValues[i] = CriticalValueRow{
			ExitValue:          money.USD(cv.ExitValue),
			Triggers:           cv.Triggers,
			AffectedSecurities: cv.AffectedSecurities,
		}
	}

	return r
}
