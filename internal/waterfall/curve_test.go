package waterfall

import (
	"testing"

	"captable-lab/internal/domain"
)

func TestSampleCurveShapeAndOrdering(t *testing.T) {
	s := mustStructure(t, []domain.ShareClass{
		preferred("series-a", "1000000", "1.00", "1", 1, domain.PreferenceNonParticipating),
		common("common", "1000000"),
	}, nil)
	e := NewEvaluator(s)

	points := SampleCurve(e, "run-1", dec("4000000"), 5)
	if len(points) != 5*2 {
		t.Fatalf("points = %d, want 10", len(points))
	}

	// Rows come out (exit value ASC, security id ASC).
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		if a.ExitValue.GreaterThan(b.ExitValue) {
			t.Fatalf("exit values out of order at %d: %s > %s", i, a.ExitValue, b.ExitValue)
		}
		if a.ExitValue.Equal(b.ExitValue) && a.SecurityID >= b.SecurityID {
			t.Fatalf("security ids out of order at %d: %s >= %s", i, a.SecurityID, b.SecurityID)
		}
	}

	if !points[0].ExitValue.IsZero() {
		t.Errorf("first grid value = %s, want 0", points[0].ExitValue)
	}
	last := points[len(points)-1]
	if !last.ExitValue.Equal(dec("4000000")) {
		t.Errorf("last grid value = %s, want 4000000", last.ExitValue)
	}
	if last.RunID != "run-1" {
		t.Errorf("run id = %q, want run-1", last.RunID)
	}
}

func TestSampleCurveNonPositiveLimit(t *testing.T) {
	s := mustStructure(t, []domain.ShareClass{common("common", "100")}, nil)
	e := NewEvaluator(s)

	if got := SampleCurve(e, "run-1", dec("0"), 10); got != nil {
		t.Errorf("zero limit should produce no rows, got %d", len(got))
	}
}
