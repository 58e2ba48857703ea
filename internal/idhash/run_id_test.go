package idhash

import (
	"testing"

	"github.com/shopspring/decimal"

	"captable-lab/internal/captable"
	"captable-lab/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func structure(t *testing.T, classes []domain.ShareClass) *captable.Structure {
	t.Helper()
	s, err := captable.NewStructure(classes, nil, captable.Config{})
	if err != nil {
		t.Fatalf("NewStructure: %v", err)
	}
	return s
}

func classes() []domain.ShareClass {
	return []domain.ShareClass{
		{
			ID: "series-a", Name: "series-a", Type: domain.ShareTypePreferred,
			SharesOutstanding: dec("1000000"), PricePerShare: dec("1.00"),
			Seniority: 1, LiquidationMultiple: dec("1"),
			PreferenceType: domain.PreferenceNonParticipating, ConversionRatio: dec("1"),
		},
		{ID: "common", Name: "common", Type: domain.ShareTypeCommon, SharesOutstanding: dec("1000000")},
	}
}

func TestComputeRunIDDeterministic(t *testing.T) {
	s := structure(t, classes())

	first := ComputeRunID("val-1", "co-1", s)
	if len(first) != 64 {
		t.Fatalf("run id length = %d, want 64", len(first))
	}
	for i := 0; i < 10; i++ {
		if got := ComputeRunID("val-1", "co-1", s); got != first {
			t.Fatalf("run id not deterministic: %s != %s", got, first)
		}
	}
}

func TestComputeRunIDIndependentOfInputOrder(t *testing.T) {
	cs := classes()
	forward := structure(t, cs)
	backward := structure(t, []domain.ShareClass{cs[1], cs[0]})

	if ComputeRunID("val-1", "co-1", forward) != ComputeRunID("val-1", "co-1", backward) {
		t.Error("run id depends on input order")
	}
}

func TestComputeRunIDSensitivity(t *testing.T) {
	s := structure(t, classes())
	base := ComputeRunID("val-1", "co-1", s)

	if ComputeRunID("val-2", "co-1", s) == base {
		t.Error("different valuation should produce different run id")
	}
	if ComputeRunID("val-1", "co-2", s) == base {
		t.Error("different company should produce different run id")
	}

	changed := classes()
	changed[0].SharesOutstanding = dec("2000000")
	if ComputeRunID("val-1", "co-1", structure(t, changed)) == base {
		t.Error("different share count should produce different run id")
	}
}

func TestRunRef(t *testing.T) {
	s := structure(t, classes())
	id := ComputeRunID("val-1", "co-1", s)

	ref := RunRef(id)
	if ref == "" {
		t.Fatal("empty run ref for valid id")
	}
	if RunRef(id) != ref {
		t.Error("run ref not deterministic")
	}
	if RunRef("not-hex") != "" {
		t.Error("invalid hex should produce empty ref")
	}
}
