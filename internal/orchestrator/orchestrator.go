// Package orchestrator coordinates the analysis pipeline.
// Flow: load cap table → analyze → persist run + schedule → sample curve → reports
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"captable-lab/internal/breakpoints"
	"captable-lab/internal/captable"
	"captable-lab/internal/domain"
	"captable-lab/internal/idhash"
	"captable-lab/internal/observability"
	"captable-lab/internal/reporting"
	"captable-lab/internal/storage"
	"captable-lab/internal/waterfall"
)

// DefaultCurvePoints is the grid size used when Options leaves CurvePoints zero.
const DefaultCurvePoints = 101

// Orchestrator runs the full pipeline for stored valuations.
type Orchestrator struct {
	// Stores
	valuationStore  storage.ValuationStore
	shareClassStore storage.ShareClassStore
	grantStore      storage.OptionGrantStore
	runStore        storage.AnalysisRunStore
	breakpointStore storage.BreakpointStore
	curveStore      storage.AllocationCurveStore // optional

	// Collaborators
	reportGen *reporting.Generator // optional

	// Options
	curvePoints   int
	recordMetrics bool
	verbose       bool
	now           func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	ValuationStore  storage.ValuationStore
	ShareClassStore storage.ShareClassStore
	GrantStore      storage.OptionGrantStore
	RunStore        storage.AnalysisRunStore
	BreakpointStore storage.BreakpointStore

	// Optional collaborators
	CurveStore      storage.AllocationCurveStore // nil skips curve sampling
	ReportGenerator *reporting.Generator         // nil skips report files

	// Options
	CurvePoints   int  // grid size for allocation curve sampling
	RecordMetrics bool // publish prometheus counters
	Verbose       bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	points := opts.CurvePoints
	if points <= 0 {
		points = DefaultCurvePoints
	}
	return &Orchestrator{
		valuationStore:  opts.ValuationStore,
		shareClassStore: opts.ShareClassStore,
		grantStore:      opts.GrantStore,
		runStore:        opts.RunStore,
		breakpointStore: opts.BreakpointStore,
		curveStore:      opts.CurveStore,
		reportGen:       opts.ReportGenerator,
		curvePoints:     points,
		recordMetrics:   opts.RecordMetrics,
		verbose:         opts.Verbose,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic run headers.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// RunResult describes one completed valuation analysis.
type RunResult struct {
	RunID              string
	RunRef             string
	ValuationID        string
	Unchanged          bool // input hash already analyzed; nothing re-persisted
	Breakpoints        int
	ValidationFailures int
	CurvePoints        int
	Result             *domain.AnalysisResult
	Files              *reporting.WrittenFiles // nil when reports were skipped
}

// BatchResult tallies an AnalyzeAll pass.
type BatchResult struct {
	Completed int
	Unchanged int
	Errors    []string
}

// ImportValuation stores a cap table as the input of future analyses.
func (o *Orchestrator) ImportValuation(ctx context.Context, v *domain.Valuation, classes []domain.ShareClass, grants []domain.OptionGrant) error {
	if err := o.valuationStore.Insert(ctx, v); err != nil {
		return fmt.Errorf("insert valuation %s: %w", v.ValuationID, err)
	}
	if err := o.shareClassStore.InsertBulk(ctx, v.ValuationID, classes); err != nil {
		return fmt.Errorf("insert share classes for %s: %w", v.ValuationID, err)
	}
	if err := o.grantStore.InsertBulk(ctx, v.ValuationID, grants); err != nil {
		return fmt.Errorf("insert option grants for %s: %w", v.ValuationID, err)
	}
	o.log("imported valuation %s (%d classes, %d grants)", v.ValuationID, len(classes), len(grants))
	return nil
}

// AnalyzeValuation runs the pipeline for one stored valuation.
func (o *Orchestrator) AnalyzeValuation(ctx context.Context, valuationID string) (*RunResult, error) {
	// Phase 1: load cap table
	o.log("phase 1: loading cap table %s", valuationID)
	valuation, err := o.valuationStore.GetByID(ctx, valuationID)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load valuation): %w", err)
	}
	classes, err := o.shareClassStore.GetByValuation(ctx, valuationID)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load share classes): %w", err)
	}
	grants, err := o.grantStore.GetByValuation(ctx, valuationID)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load option grants): %w", err)
	}

	structure, err := captable.NewStructure(classes, grants, captable.Config{ValuationDate: valuation.ValuationDate})
	if err != nil {
		if o.recordMetrics {
			observability.RecordAnalysisRejected()
		}
		return nil, fmt.Errorf("phase 1 (build structure): %w", err)
	}

	// Phase 2: analyze
	o.log("phase 2: analyzing")
	res := breakpoints.NewFromStructure(structure).AnalyzeCompleteBreakpointStructure()

	runID := idhash.ComputeRunID(valuationID, valuation.CompanyID, structure)
	run := &domain.AnalysisRun{
		RunID:              runID,
		RunRef:             idhash.RunRef(runID),
		ValuationID:        valuationID,
		CompanyID:          valuation.CompanyID,
		ValuationDate:      valuation.ValuationDate,
		TotalBreakpoints:   len(res.Breakpoints),
		Counts:             res.Counts,
		ValidationFailures: res.FailureCount(),
		ElapsedMicros:      res.Performance.ElapsedMicros,
		CreatedAt:          o.now().UnixMilli(),
	}

	result := &RunResult{
		RunID:              run.RunID,
		RunRef:             run.RunRef,
		ValuationID:        valuationID,
		Breakpoints:        len(res.Breakpoints),
		ValidationFailures: run.ValidationFailures,
		Result:             res,
	}

	// Phase 3: persist run + schedule
	o.log("phase 3: persisting run %s", run.RunRef)
	if err := o.runStore.Insert(ctx, run); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Same input hash: the stored run already covers this cap table.
			o.log("  run %s already stored, input unchanged", run.RunRef)
			result.Unchanged = true
			return result, nil
		}
		return nil, fmt.Errorf("phase 3 (insert run): %w", err)
	}
	if err := o.breakpointStore.InsertBulk(ctx, run.RunID, res.Breakpoints); err != nil {
		return nil, fmt.Errorf("phase 3 (insert breakpoints): %w", err)
	}
	if o.recordMetrics {
		observability.RecordAnalysis(res, float64(run.CreatedAt)/1e3)
	}

	// Phase 4: sample allocation curve
	var curve []*domain.AllocationPoint
	if o.curveStore != nil {
		o.log("phase 4: sampling allocation curve")
		curve = o.sampleCurve(structure, res, run.RunID)
		if err := o.curveStore.InsertBulk(ctx, curve); err != nil {
			return nil, fmt.Errorf("phase 4 (store curve): %w", err)
		}
		result.CurvePoints = len(curve)
		if o.recordMetrics {
			observability.RecordCurveSampled(len(curve))
		}
		o.log("  stored %d curve points", len(curve))
	}

	// Phase 5: reports
	if o.reportGen != nil {
		o.log("phase 5: writing reports")
		files, err := o.reportGen.Write(run, res, curve)
		if err != nil {
			return nil, fmt.Errorf("phase 5 (write reports): %w", err)
		}
		result.Files = files
		if o.recordMetrics {
			observability.RecordReportGenerated()
		}
	}

	o.log("completed run %s: %d breakpoints, %d validation failures",
		run.RunRef, result.Breakpoints, result.ValidationFailures)
	return result, nil
}

// AnalyzeAll runs the pipeline over every stored valuation. Individual
// failures are collected, not fatal, so one bad cap table cannot stall a
// scheduled pass.
func (o *Orchestrator) AnalyzeAll(ctx context.Context) (*BatchResult, error) {
	valuations, err := o.valuationStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list valuations: %w", err)
	}

	batch := &BatchResult{}
	for _, v := range valuations {
		res, err := o.AnalyzeValuation(ctx, v.ValuationID)
		if err != nil {
			batch.Errors = append(batch.Errors, fmt.Sprintf("analyze %s: %v", v.ValuationID, err))
			continue
		}
		if res.Unchanged {
			batch.Unchanged++
		} else {
			batch.Completed++
		}
	}

	o.log("batch done: %d completed, %d unchanged, %d errors",
		batch.Completed, batch.Unchanged, len(batch.Errors))
	return batch, nil
}

// sampleCurve evaluates the payoff grid out to the last breakpoint plus a
// margin, so charts show the final linear regime.
func (o *Orchestrator) sampleCurve(s *captable.Structure, res *domain.AnalysisResult, runID string) []*domain.AllocationPoint {
	limit := curveLimit(s, res)
	eval := waterfall.NewEvaluator(s)
	points := waterfall.SampleCurve(eval, runID, limit, o.curvePoints)

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

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
