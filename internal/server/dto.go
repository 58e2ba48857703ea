package server

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"captable-lab/internal/domain"
)

// envelope wraps every API response.
type envelope struct {
	Success     bool        `json:"success"`
	Data        interface{} `json:"data,omitempty"`
	Error       string      `json:"error,omitempty"`
	ValuationID string      `json:"valuation_id,omitempty"`
	CompanyID   string      `json:"company_id,omitempty"`
	GeneratedAt string      `json:"generated_at"`
}

// AnalyzeRequest is the cap table document accepted by the analyze endpoint.
// Decimal fields accept JSON numbers or strings.
type AnalyzeRequest struct {
	ValuationID   string            `json:"valuation_id"`
	CompanyID     string            `json:"company_id"`
	ValuationDate int64             `json:"valuation_date_ms,omitempty"`
	ShareClasses  []ShareClassDTO   `json:"share_classes"`
	OptionGrants  []OptionGrantDTO  `json:"option_grants,omitempty"`
}

// ShareClassDTO mirrors domain.ShareClass on the wire.
type ShareClassDTO struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name,omitempty"`
	Type                string          `json:"type"`
	SharesOutstanding   decimal.Decimal `json:"shares_outstanding"`
	PricePerShare       decimal.Decimal `json:"price_per_share,omitempty"`
	RoundDate           int64           `json:"round_date_ms,omitempty"`
	Seniority           int             `json:"seniority,omitempty"`
	LiquidationMultiple decimal.Decimal `json:"liquidation_multiple,omitempty"`
	PreferenceType      string          `json:"preference_type,omitempty"`
	ParticipationCap    decimal.Decimal `json:"participation_cap,omitempty"`
	ConversionRatio     decimal.Decimal `json:"conversion_ratio,omitempty"`
	DividendsDeclared   bool            `json:"dividends_declared,omitempty"`
	DividendRate        decimal.Decimal `json:"dividend_rate,omitempty"`
	DividendType        string          `json:"dividend_type,omitempty"`
	Compounding         bool            `json:"compounding,omitempty"`
}

// OptionGrantDTO mirrors domain.OptionGrant on the wire.
type OptionGrantDTO struct {
	ID            string          `json:"id"`
	Name          string          `json:"name,omitempty"`
	Kind          string          `json:"kind"`
	NumOptions    decimal.Decimal `json:"num_options"`
	ExercisePrice decimal.Decimal `json:"exercise_price,omitempty"`
}

func (r *AnalyzeRequest) toDomain() ([]domain.ShareClass, []domain.OptionGrant, error) {
	classes := make([]domain.ShareClass, len(r.ShareClasses))
	for i, dto := range r.ShareClasses {
		c := domain.ShareClass{
			ID:                  dto.ID,
			Name:                dto.Name,
			SharesOutstanding:   dto.SharesOutstanding,
			PricePerShare:       dto.PricePerShare,
			RoundDate:           dto.RoundDate,
			Seniority:           dto.Seniority,
			LiquidationMultiple: dto.LiquidationMultiple,
			ParticipationCap:    dto.ParticipationCap,
			ConversionRatio:     dto.ConversionRatio,
			DividendsDeclared:   dto.DividendsDeclared,
			DividendRate:        dto.DividendRate,
			Compounding:         dto.Compounding,
		}
		var err error
		if c.Type, err = domain.ParseShareType(dto.Type); err != nil {
			return nil, nil, fmt.Errorf("share class %s: %w", dto.ID, err)
		}
		if dto.PreferenceType != "" {
			if c.PreferenceType, err = domain.ParsePreferenceType(dto.PreferenceType); err != nil {
				return nil, nil, fmt.Errorf("share class %s: %w", dto.ID, err)
			}
		}
		if dto.DividendType != "" {
			if c.DividendType, err = domain.ParseDividendType(dto.DividendType); err != nil {
				return nil, nil, fmt.Errorf("share class %s: %w", dto.ID, err)
			}
		}
		classes[i] = c
	}

	grants := make([]domain.OptionGrant, len(r.OptionGrants))
	for i, dto := range r.OptionGrants {
		g := domain.OptionGrant{
			ID:            dto.ID,
			Name:          dto.Name,
			NumOptions:    dto.NumOptions,
			ExercisePrice: dto.ExercisePrice,
		}
		var err error
		if g.Kind, err = domain.ParseGrantKind(dto.Kind); err != nil {
			return nil, nil, fmt.Errorf("option grant %s: %w", dto.ID, err)
		}
		grants[i] = g
	}

	return classes, grants, nil
}

// AnalysisDTO is the analyze endpoint's data payload. Decimals are converted
// to JSON numbers via InexactFloat64 at this boundary only.
type AnalysisDTO struct {
	RunID              string              `json:"run_id"`
	RunRef             string              `json:"run_ref"`
	Breakpoints        []BreakpointDTO     `json:"breakpoints"`
	Counts             CountsDTO           `json:"counts"`
	CriticalValues     []CriticalValueDTO  `json:"critical_values"`
	Validations        []ValidationDTO     `json:"validation_results"`
	Audit              AuditDTO            `json:"audit_summary"`
	Performance        PerformanceDTO      `json:"performance"`
	ValidationFailures int                 `json:"validation_failures"`
}

// BreakpointDTO is one schedule entry on the wire.
type BreakpointDTO struct {
	PriorityOrder      int      `json:"priority_order"`
	Type               string   `json:"breakpoint_type"`
	ExitValue          float64  `json:"exit_value"`
	AffectedSecurities []string `json:"affected_securities,omitempty"`
	CalculationMethod  string   `json:"calculation_method,omitempty"`
	Explanation        string   `json:"explanation,omitempty"`
	Derivation         string   `json:"derivation,omitempty"`
	Dependencies       []string `json:"dependencies,omitempty"`
}

// CountsDTO tallies the schedule by type.
type CountsDTO struct {
	LiquidationPreference int `json:"liquidation_preference"`
	ProRata               int `json:"pro_rata"`
	OptionExercise        int `json:"option_exercise"`
	ParticipationCap      int `json:"participation_cap"`
	Conversion            int `json:"conversion"`
	Total                 int `json:"total"`
}

// CriticalValueDTO is one coincident-event exit value.
type CriticalValueDTO struct {
	ExitValue          float64  `json:"exit_value"`
	Triggers           []string `json:"triggers"`
	AffectedSecurities []string `json:"affected_securities,omitempty"`
}

// ValidationDTO is one invariant check outcome.
type ValidationDTO struct {
	Check              string   `json:"check"`
	Severity           string   `json:"severity"`
	Passed             bool     `json:"passed"`
	Message            string   `json:"message"`
	AffectedSecurities []string `json:"affected_securities,omitempty"`
}

// AuditDTO carries the reconciliation quantities.
type AuditDTO struct {
	TotalInvestedCapital       float64  `json:"total_invested_capital"`
	TotalLiquidationPreference float64  `json:"total_liquidation_preference"`
	TotalAccruedDividends      float64  `json:"total_accrued_dividends"`
	CommonShares               float64  `json:"common_shares"`
	PreferredShares            float64  `json:"preferred_shares"`
	PreferredAsConverted       float64  `json:"preferred_as_converted"`
	OptionsOutstanding         float64  `json:"options_outstanding"`
	FullyDilutedShares         float64  `json:"fully_diluted_shares"`
	SeniorityTiers             int      `json:"seniority_tiers"`
	Notes                      []string `json:"notes,omitempty"`
}

// PerformanceDTO carries derivation effort counters.
type PerformanceDTO struct {
	SweepIterations  int   `json:"sweep_iterations"`
	ProbeEvaluations int   `json:"probe_evaluations"`
	ElapsedMicros    int64 `json:"elapsed_micros"`
}

// RunDTO is the stored run view served by the runs endpoint.
type RunDTO struct {
	RunID              string          `json:"run_id"`
	RunRef             string          `json:"run_ref"`
	ValuationID        string          `json:"valuation_id"`
	CompanyID          string          `json:"company_id"`
	ValuationDate      int64           `json:"valuation_date_ms,omitempty"`
	TotalBreakpoints   int             `json:"total_breakpoints"`
	Counts             CountsDTO       `json:"counts"`
	ValidationFailures int             `json:"validation_failures"`
	ElapsedMicros      int64           `json:"elapsed_micros"`
	CreatedAt          int64           `json:"created_at_ms"`
	Breakpoints        []BreakpointDTO `json:"breakpoints"`
}

// AnalysisEvent is pushed to websocket feed subscribers after each analysis.
type AnalysisEvent struct {
	Event              string `json:"event"` // always "analysis-completed"
	RunID              string `json:"run_id"`
	RunRef             string `json:"run_ref"`
	ValuationID        string `json:"valuation_id"`
	CompanyID          string `json:"company_id"`
	TotalBreakpoints   int    `json:"total_breakpoints"`
	ValidationFailures int    `json:"validation_failures"`
	GeneratedAt        string `json:"generated_at"`
}

func breakpointDTOs(bps []domain.Breakpoint) []BreakpointDTO {
	out := make([]BreakpointDTO, len(bps))
	for i, bp := range bps {
		out[i] = BreakpointDTO{
			PriorityOrder:      bp.PriorityOrder,
			Type:               bp.Type.String(),
			ExitValue:          bp.ExitValue.InexactFloat64(),
			AffectedSecurities: bp.AffectedSecurities,
			CalculationMethod:  bp.CalculationMethod,
			Explanation:        bp.Explanation,
			Derivation:         bp.Derivation,
			Dependencies:       bp.Dependencies,
		}
	}
	return out
}

func countsDTO(c domain.BreakpointCounts) CountsDTO {
	return CountsDTO{
		LiquidationPreference: c.LiquidationPreference,
		ProRata:               c.ProRata,
		OptionExercise:        c.OptionExercise,
		ParticipationCap:      c.ParticipationCap,
		Conversion:            c.Conversion,
		Total:                 c.Total(),
	}
}

func analysisDTO(runID, runRef string, res *domain.AnalysisResult) *AnalysisDTO {
	dto := &AnalysisDTO{
		RunID:              runID,
		RunRef:             runRef,
		Breakpoints:        breakpointDTOs(res.Breakpoints),
		Counts:             countsDTO(res.Counts),
		ValidationFailures: res.FailureCount(),
		Audit: AuditDTO{
			TotalInvestedCapital:       res.Audit.TotalInvestedCapital.InexactFloat64(),
			TotalLiquidationPreference: res.Audit.TotalLiquidationPreference.InexactFloat64(),
			TotalAccruedDividends:      res.Audit.TotalAccruedDividends.InexactFloat64(),
			CommonShares:               res.Audit.CommonShares.InexactFloat64(),
			PreferredShares:            res.Audit.PreferredShares.InexactFloat64(),
			PreferredAsConverted:       res.Audit.PreferredAsConverted.InexactFloat64(),
			OptionsOutstanding:         res.Audit.OptionsOutstanding.InexactFloat64(),
			FullyDilutedShares:         res.Audit.FullyDilutedShares.InexactFloat64(),
			SeniorityTiers:             res.Audit.SeniorityTiers,
			Notes:                      res.Audit.Notes,
		},
		Performance: PerformanceDTO{
			SweepIterations:  res.Performance.SweepIterations,
			ProbeEvaluations: res.Performance.ProbeEvaluations,
			ElapsedMicros:    res.Performance.ElapsedMicros,
		},
	}

	dto.CriticalValues = make([]CriticalValueDTO, len(res.CriticalValues))
	for i, cv := range res.CriticalValues {
		dto.CriticalValues[i] = CriticalValueDTO{
			ExitValue:          cv.ExitValue.InexactFloat64(),
			Triggers:           cv.Triggers,
			AffectedSecurities: cv.AffectedSecurities,
		}
	}

	dto.Validations = make([]ValidationDTO, len(res.ValidationResults))
	for i, v := range res.ValidationResults {
		dto.Validations[i] = ValidationDTO{
			Check:              v.Check,
			Severity:           v.Severity.String(),
			Passed:             v.Passed,
			Message:            v.Message,
			AffectedSecurities: v.AffectedSecurities,
		}
	}

	return dto
}

func runDTO(run *domain.AnalysisRun, bps []domain.Breakpoint) *RunDTO {
	return &RunDTO{
		RunID:              run.RunID,
		RunRef:             run.RunRef,
		ValuationID:        run.ValuationID,
		CompanyID:          run.CompanyID,
		ValuationDate:      run.ValuationDate,
		TotalBreakpoints:   run.TotalBreakpoints,
		Counts:             countsDTO(run.Counts),
		ValidationFailures: run.ValidationFailures,
		ElapsedMicros:      run.ElapsedMicros,
		CreatedAt:          run.CreatedAt,
		Breakpoints:        breakpointDTOs(bps),
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
