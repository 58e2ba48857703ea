package waterfall

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

func mustStructure(t *testing.T, classes []domain.ShareClass, grants []domain.OptionGrant) *captable.Structure {
	t.Helper()
	s, err := captable.NewStructure(classes, grants, captable.Config{})
	if err != nil {
		t.Fatalf("NewStructure: %v", err)
	}
	return s
}

func common(id, shares string) domain.ShareClass {
	return domain.ShareClass{
		ID:                id,
		Name:              id,
		Type:              domain.ShareTypeCommon,
		SharesOutstanding: dec(shares),
	}
}

func preferred(id, shares, price, multiple string, seniority int, pref domain.PreferenceType) domain.ShareClass {
	return domain.ShareClass{
		ID:                  id,
		Name:                id,
		Type:                domain.ShareTypePreferred,
		SharesOutstanding:   dec(shares),
		PricePerShare:       dec(price),
		Seniority:           seniority,
		LiquidationMultiple: dec(multiple),
		PreferenceType:      pref,
		ConversionRatio:     dec("1"),
	}
}

func grant(id, num, strike string) domain.OptionGrant {
	return domain.OptionGrant{
		ID:            id,
		Name:          id,
		NumOptions:    dec(num),
		ExercisePrice: dec(strike),
		Kind:          domain.GrantOption,
	}
}

func checkAmount(t *testing.T, alloc Allocation, id, want string) {
	t.Helper()
	got, ok := alloc.Amounts[id]
	if !ok {
		t.Fatalf("security %q missing from allocation", id)
	}
	if !got.Equal(dec(want)) {
		t.Errorf("allocation[%s] = %s, want %s", id, got, want)
	}
}

func checkConserved(t *testing.T, alloc Allocation, v decimal.Decimal) {
	t.Helper()
	sum := alloc.Unallocated
	for _, a := range alloc.Amounts {
		sum = sum.Add(a)
	}
	if !sum.Equal(v) {
		t.Errorf("allocations sum to %s, want %s", sum, v)
	}
}

func TestAllocationNonParticipatingPreferred(t *testing.T) {
	s := mustStructure(t, []domain.ShareClass{
		preferred("series-a", "1000000", "1.00", "1", 1, domain.PreferenceNonParticipating),
		common("common", "1000000"),
	}, nil)
	e := NewEvaluator(s)

	tests := []struct {
		v       string
		seriesA string
		common  string
	}{
		{"500000", "500000", "0"},         // preference short
		{"1000000", "1000000", "0"},       // preference exactly satisfied
		{"1500000", "1000000", "500000"},  // residual to common only
		{"2000000", "1000000", "1000000"}, // conversion indifference point
		{"3000000", "1500000", "1500000"}, // converted, 50/50 split
	}
	for _, tt := range tests {
		v := dec(tt.v)
		alloc := e.AllocationAt(v)
		checkAmount(t, alloc, "series-a", tt.seriesA)
		checkAmount(t, alloc, "common", tt.common)
		checkConserved(t, alloc, v)
	}
}

func TestAllocationOptionExercise(t *testing.T) {
	s := mustStructure(t, []domain.ShareClass{
		preferred("series-a", "1000000", "1.00", "1", 1, domain.PreferenceNonParticipating),
		common("common", "1000000"),
	}, []domain.OptionGrant{
		grant("pool", "100000", "0.50"),
	})
	e := NewEvaluator(s)

	// At the strike-parity value the option is not yet in the money.
	alloc := e.AllocationAt(dec("1500000"))
	checkAmount(t, alloc, "series-a", "1000000")
	checkAmount(t, alloc, "common", "500000")
	checkAmount(t, alloc, "pool", "0")
	checkConserved(t, alloc, dec("1500000"))

	// Exercise proceeds join the pool: at 2,050,000 the residual plus
	// 50,000 of strike spreads over 1,100,000 shares at exactly 1.00.
	alloc = e.AllocationAt(dec("2050000"))
	checkAmount(t, alloc, "series-a", "1000000")
	checkAmount(t, alloc, "common", "1000000")
	checkAmount(t, alloc, "pool", "50000")
	checkConserved(t, alloc, dec("2050000"))

	// Above the crossover the preferred converts and every path conserves.
	v := dec("2060000")
	alloc = e.AllocationAt(v)
	if !alloc.Amounts["series-a"].GreaterThan(dec("1000000")) {
		t.Errorf("series-a should beat its preference after converting, got %s", alloc.Amounts["series-a"])
	}
	checkConserved(t, alloc, v)
}

func TestAllocationParticipationCap(t *testing.T) {
	capped := preferred("series-a", "1000000", "1.00", "1", 1, domain.PreferenceParticipatingCapped)
	capped.ParticipationCap = dec("2")
	s := mustStructure(t, []domain.ShareClass{capped, common("common", "1000000")}, nil)
	e := NewEvaluator(s)

	tests := []struct {
		v       string
		seriesA string
		common  string
	}{
		{"2000000", "1500000", "500000"},  // preference plus half the residual
		{"3000000", "2000000", "1000000"}, // cap reached exactly
		{"3500000", "2000000", "1500000"}, // pinned at cap, common takes the margin
		{"4000000", "2000000", "2000000"}, // conversion indifference: as-converted equals the cap
		{"5000000", "2500000", "2500000"}, // converted to common
	}
	for _, tt := range tests {
		v := dec(tt.v)
		alloc := e.AllocationAt(v)
		checkAmount(t, alloc, "series-a", tt.seriesA)
		checkAmount(t, alloc, "common", tt.common)
		checkConserved(t, alloc, v)
	}
}

func TestAllocationParticipatingUncapped(t *testing.T) {
	s := mustStructure(t, []domain.ShareClass{
		preferred("series-a", "1000000", "1.00", "1", 1, domain.PreferenceParticipating),
		common("common", "1000000"),
	}, nil)
	e := NewEvaluator(s)

	// Preference stacks on a full pro-rata share; converting never wins.
	v := dec("10000000")
	alloc := e.AllocationAt(v)
	checkAmount(t, alloc, "series-a", "5500000")
	checkAmount(t, alloc, "common", "4500000")
	checkConserved(t, alloc, v)
}

func TestAllocationPariPassuShortfall(t *testing.T) {
	s := mustStructure(t, []domain.ShareClass{
		preferred("series-b1", "600000", "1.00", "1", 2, domain.PreferenceNonParticipating),
		preferred("series-b2", "400000", "1.00", "1", 2, domain.PreferenceNonParticipating),
		common("common", "1000000"),
	}, nil)
	e := NewEvaluator(s)

	v := dec("500000")
	alloc := e.AllocationAt(v)
	checkAmount(t, alloc, "series-b1", "300000")
	checkAmount(t, alloc, "series-b2", "200000")
	checkAmount(t, alloc, "common", "0")
	checkConserved(t, alloc, v)
}

func TestAllocationSeniorityOrder(t *testing.T) {
	s := mustStructure(t, []domain.ShareClass{
		preferred("series-a", "1000000", "1.00", "1", 1, domain.PreferenceNonParticipating),
		preferred("series-b", "500000", "2.00", "1", 2, domain.PreferenceNonParticipating),
		common("common", "1000000"),
	}, nil)
	e := NewEvaluator(s)

	// 1,200,000 covers the senior 1,000,000 and leaves 200,000 for series-a.
	v := dec("1200000")
	alloc := e.AllocationAt(v)
	checkAmount(t, alloc, "series-b", "1000000")
	checkAmount(t, alloc, "series-a", "200000")
	checkAmount(t, alloc, "common", "0")
	checkConserved(t, alloc, v)
}

func TestAllocationZeroStrikeGrant(t *testing.T) {
	s := mustStructure(t, []domain.ShareClass{
		common("common", "1000000"),
	}, []domain.OptionGrant{
		{ID: "rsu", Name: "rsu", NumOptions: dec("100000"), ExercisePrice: dec("0"), Kind: domain.GrantRSU},
	})
	e := NewEvaluator(s)

	// Zero-strike units share from the first dollar.
	v := dec("1100000")
	alloc := e.AllocationAt(v)
	checkAmount(t, alloc, "common", "1000000")
	checkAmount(t, alloc, "rsu", "100000")
	checkConserved(t, alloc, v)
}

func TestAllocationZeroAndNegativeValues(t *testing.T) {
	s := mustStructure(t, []domain.ShareClass{
		preferred("series-a", "1000000", "1.00", "1", 1, domain.PreferenceNonParticipating),
		common("common", "1000000"),
	}, nil)
	e := NewEvaluator(s)

	for _, v := range []string{"0", "-5"} {
		alloc := e.AllocationAt(dec(v))
		for id, a := range alloc.Amounts {
			if !a.IsZero() {
				t.Errorf("v=%s: allocation[%s] = %s, want 0", v, id, a)
			}
		}
	}
}

func TestAllocationUnallocatedResidual(t *testing.T) {
	// Options with a positive strike but no underlying shares: the residual
	// has no takers and must be surfaced, not silently dropped.
	s := mustStructure(t, nil, []domain.OptionGrant{grant("pool", "100000", "0.50")})
	e := NewEvaluator(s)

	v := dec("100")
	alloc := e.AllocationAt(v)
	if !alloc.Unallocated.Equal(v) {
		t.Errorf("unallocated = %s, want %s", alloc.Unallocated, v)
	}
	checkConserved(t, alloc, v)
}

func TestAllocationConservationAndMonotonicity(t *testing.T) {
	seriesB := preferred("series-b", "500000", "2.00", "1.5", 2, domain.PreferenceNonParticipating)
	seriesB.ConversionRatio = dec("1.2")
	seriesA := preferred("series-a", "1000000", "1.00", "1", 1, domain.PreferenceParticipatingCapped)
	seriesA.ParticipationCap = dec("2.5")

	s := mustStructure(t, []domain.ShareClass{
		seriesB,
		seriesA,
		common("common", "2000000"),
	}, []domain.OptionGrant{
		grant("pool-a", "300000", "0.25"),
		grant("pool-b", "200000", "1.50"),
		{ID: "rsu", Name: "rsu", NumOptions: dec("50000"), ExercisePrice: dec("0"), Kind: domain.GrantRSU},
	})
	e := NewEvaluator(s)

	probes := []string{
		"0", "123456.78", "1000000", "2500000.01", "5000000",
		"7777777.77", "12000000", "100000000",
	}

	prev := make(map[string]decimal.Decimal)
	for _, p := range probes {
		v := dec(p)
		alloc := e.AllocationAt(v)
		checkConserved(t, alloc, v)

		for id, a := range alloc.Amounts {
			if last, ok := prev[id]; ok && a.LessThan(last) {
				t.Errorf("v=%s: %s payout fell from %s to %s", p, id, last, a)
			}
			prev[id] = a
		}
	}
}
