package captable

import (
	"testing"
	"time"

	"captable-lab/internal/domain"
)

func dividendClass(divType domain.DividendType, compounding bool) domain.ShareClass {
	c := preferredClass("series-a", "1000000", "1.00", 1, domain.PreferenceNonParticipating)
	c.DividendsDeclared = true
	c.DividendRate = dec("0.08")
	c.DividendType = divType
	c.Compounding = compounding
	return c
}

func TestAccrualCumulativeSimple(t *testing.T) {
	c := dividendClass(domain.DividendCumulative, false)
	c.RoundDate = ms(2023, time.January, 1)

	// 730 days = exactly 2 years ACT/365.
	got := accrueDividends(&c, dec("1000000"), ms(2024, time.December, 31))
	want := dec("160000")
	if !got.Equal(want) {
		t.Errorf("simple accrual = %s, want %s", got, want)
	}
}

func TestAccrualCompoundingAnnual(t *testing.T) {
	c := dividendClass(domain.DividendCumulative, true)
	c.RoundDate = ms(2022, time.January, 1)

	// 1095 days = exactly 3 whole years: (1.08^3 - 1) × 1,000,000.
	got := accrueDividends(&c, dec("1000000"), ms(2024, time.December, 31))
	want := dec("259712")
	if !got.Equal(want) {
		t.Errorf("compound accrual = %s, want %s", got, want)
	}
}

func TestAccrualCompoundingPartialYear(t *testing.T) {
	c := dividendClass(domain.DividendCumulative, true)
	c.RoundDate = ms(2023, time.January, 1)

	// 547 days = 1 whole year + 182/365. Growth = 1.08 × (1 + 0.08 × 182/365).
	got := accrueDividends(&c, dec("1000000"), ms(2024, time.July, 1))
	oneYear := dec("1.08")
	frac := dec("182").DivRound(dec("365"), 28)
	want := oneYear.Mul(dec("1").Add(dec("0.08").Mul(frac))).Sub(dec("1")).Mul(dec("1000000"))
	if !got.Equal(want) {
		t.Errorf("partial compound accrual = %s, want %s", got, want)
	}
}

func TestAccrualNonCumulativeSinglePeriod(t *testing.T) {
	c := dividendClass(domain.DividendNonCumulative, false)
	c.RoundDate = ms(2020, time.January, 1)

	// Five years out, but non-cumulative accrues at most one period.
	got := accrueDividends(&c, dec("1000000"), ms(2025, time.January, 1))
	want := dec("80000")
	if !got.Equal(want) {
		t.Errorf("non-cumulative accrual = %s, want %s", got, want)
	}

	// Half a year in: a single partial period.
	c.RoundDate = ms(2024, time.January, 1)
	got = accrueDividends(&c, dec("1000000"), ms(2024, time.July, 1)) // 182 days
	want = dec("1000000").Mul(dec("0.08")).Mul(dec("182").DivRound(dec("365"), 28))
	if !got.Equal(want) {
		t.Errorf("partial non-cumulative accrual = %s, want %s", got, want)
	}
}

func TestAccrualSkippedWithoutDates(t *testing.T) {
	c := dividendClass(domain.DividendCumulative, false)

	if got := accrueDividends(&c, dec("1000000"), 0); !got.IsZero() {
		t.Errorf("zero valuation date: accrual = %s, want 0", got)
	}
	c.RoundDate = 0
	if got := accrueDividends(&c, dec("1000000"), ms(2024, time.June, 1)); !got.IsZero() {
		t.Errorf("zero round date: accrual = %s, want 0", got)
	}
	c.RoundDate = ms(2025, time.January, 1)
	if got := accrueDividends(&c, dec("1000000"), ms(2024, time.June, 1)); !got.IsZero() {
		t.Errorf("valuation before round: accrual = %s, want 0", got)
	}
}

func TestAccrualUndeclaredIsZero(t *testing.T) {
	c := dividendClass(domain.DividendCumulative, false)
	c.DividendsDeclared = false
	c.RoundDate = ms(2023, time.January, 1)

	if got := accrueDividends(&c, dec("1000000"), ms(2024, time.January, 1)); !got.IsZero() {
		t.Errorf("undeclared dividends: accrual = %s, want 0", got)
	}
}
