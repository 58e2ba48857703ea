package orchestrator

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"captable-lab/internal/domain"
	"captable-lab/internal/reporting"
	"captable-lab/internal/storage"
	"captable-lab/internal/storage/memory"
)

type testStores struct {
	valuations  *memory.ValuationStore
	classes     *memory.ShareClassStore
	grants      *memory.OptionGrantStore
	runs        *memory.AnalysisRunStore
	breakpoints *memory.BreakpointStore
	curve       *memory.AllocationCurveStore
}

func newTestStores() testStores {
	return testStores{
		valuations:  memory.NewValuationStore(),
		classes:     memory.NewShareClassStore(),
		grants:      memory.NewOptionGrantStore(),
		runs:        memory.NewAnalysisRunStore(),
		breakpoints: memory.NewBreakpointStore(),
		curve:       memory.NewAllocationCurveStore(),
	}
}

func (s testStores) options() Options {
	return Options{
		ValuationStore:  s.valuations,
		ShareClassStore: s.classes,
		GrantStore:      s.grants,
		RunStore:        s.runs,
		BreakpointStore: s.breakpoints,
		CurveStore:      s.curve,
	}
}

func seedCapTable(t *testing.T, o *Orchestrator) {
	t.Helper()

	v := &domain.Valuation{
		ValuationID: "val-001",
		CompanyID:   "co-acme",
		Name:        "FY2026 409A",
		CreatedAt:   1_700_000_000_000,
	}
	classes := []domain.ShareClass{
		{
			ID:                  "series-a",
			Type:                domain.ShareTypePreferred,
			SharesOutstanding:   decimal.NewFromInt(1_000_000),
			PricePerShare:       decimal.NewFromInt(1),
			Seniority:           1,
			LiquidationMultiple: decimal.NewFromInt(1),
			PreferenceType:      domain.PreferenceNonParticipating,
			ConversionRatio:     decimal.NewFromInt(1),
		},
		{
			ID:                "common",
			Type:              domain.ShareTypeCommon,
			SharesOutstanding: decimal.NewFromInt(4_000_000),
			ConversionRatio:   decimal.NewFromInt(1),
		},
	}
	require.NoError(t, o.ImportValuation(context.Background(), v, classes, nil))
}

func TestAnalyzeValuationPersistsRun(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores()
	orch := New(stores.options())
	seedCapTable(t, orch)

	res, err := orch.AnalyzeValuation(ctx, "val-001")
	require.NoError(t, err)

	assert.False(t, res.Unchanged)
	assert.NotEmpty(t, res.RunID)
	assert.NotEmpty(t, res.RunRef)
	assert.Equal(t, 2, res.Breakpoints) // preference satisfied + conversion
	assert.Zero(t, res.ValidationFailures)

	run, err := stores.runs.GetByID(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "co-acme", run.CompanyID)
	assert.Equal(t, 2, run.TotalBreakpoints)
	assert.Equal(t, 1, run.Counts.LiquidationPreference)
	assert.Equal(t, 1, run.Counts.Conversion)

	schedule, err := stores.breakpoints.GetByRunID(ctx, res.RunID)
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.Equal(t, domain.BreakpointLiquidationPreference, schedule[0].Type)
	assert.True(t, schedule[0].ExitValue.Equal(decimal.NewFromInt(1_000_000)))

	curve, err := stores.curve.GetByRunID(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.CurvePoints, len(curve))
	assert.NotEmpty(t, curve)
}

func TestAnalyzeValuationUnchangedInput(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores()
	orch := New(stores.options())
	seedCapTable(t, orch)

	first, err := orch.AnalyzeValuation(ctx, "val-001")
	require.NoError(t, err)

	second, err := orch.AnalyzeValuation(ctx, "val-001")
	require.NoError(t, err)
	assert.True(t, second.Unchanged)
	assert.Equal(t, first.RunID, second.RunID)

	runs, err := stores.runs.GetByValuation(ctx, "val-001")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestAnalyzeValuationMissing(t *testing.T) {
	stores := newTestStores()
	orch := New(stores.options())

	_, err := orch.AnalyzeValuation(context.Background(), "val-missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAnalyzeValuationWritesReports(t *testing.T) {
	dir := t.TempDir()
	stores := newTestStores()

	opts := stores.options()
	opts.ReportGenerator = reporting.NewGenerator(dir).WithClock(func() time.Time {
		return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	})

	orch := New(opts)
	seedCapTable(t, orch)

	res, err := orch.AnalyzeValuation(context.Background(), "val-001")
	require.NoError(t, err)
	require.NotNil(t, res.Files)

	md, err := os.ReadFile(res.Files.Markdown)
	require.NoError(t, err)
	assert.Contains(t, string(md), res.RunRef)
	assert.Contains(t, string(md), "liquidation-preference-satisfied")

	_, err = os.Stat(res.Files.ScheduleCSV)
	require.NoError(t, err)
	_, err = os.Stat(res.Files.CurveCSV)
	require.NoError(t, err)
}

func TestAnalyzeAll(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores()
	orch := New(stores.options())
	seedCapTable(t, orch)

	require.NoError(t, stores.valuations.Insert(ctx, &domain.Valuation{
		ValuationID: "val-002",
		CompanyID:   "co-acme",
	}))
	require.NoError(t, stores.classes.InsertBulk(ctx, "val-002", []domain.ShareClass{{
		ID:                "common",
		Type:              domain.ShareTypeCommon,
		SharesOutstanding: decimal.NewFromInt(1_000_000),
		ConversionRatio:   decimal.NewFromInt(1),
	}}))

	batch, err := orch.AnalyzeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Completed)
	assert.Zero(t, batch.Unchanged)
	assert.Empty(t, batch.Errors)

	// A second pass sees both inputs unchanged.
	batch, err = orch.AnalyzeAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, batch.Completed)
	assert.Equal(t, 2, batch.Unchanged)
}
