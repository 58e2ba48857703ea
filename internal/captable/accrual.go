package captable

import (
	"github.com/shopspring/decimal"

	"captable-lab/internal/domain"
	"captable-lab/internal/money"
)

const msPerDay = int64(24 * 60 * 60 * 1000)

var one = decimal.NewFromInt(1)

// accrueDividends computes the dividend claim of one class as of the
// valuation date.
//
// Accrual rules:
//   - non-cumulative: at most a single period, invested × rate × min(years, 1)
//   - cumulative, simple: invested × rate × years
//   - cumulative, compounding: invested × ((1+rate)^whole × (1 + rate × frac) − 1),
//     compounded annually
//
// years is ACT/365 in whole days from the round date. A zero valuation or
// round date accrues nothing; callers surface that as a finding.
func accrueDividends(c *domain.ShareClass, invested decimal.Decimal, valuationDate int64) decimal.Decimal {
	if !c.DividendsDeclared || c.DividendRate.Sign() <= 0 {
		return decimal.Zero
	}
	if valuationDate == 0 || c.RoundDate == 0 || valuationDate <= c.RoundDate {
		return decimal.Zero
	}

	days := (valuationDate - c.RoundDate) / msPerDay
	years := money.Div(decimal.NewFromInt(days), decimal.NewFromInt(365))

	if c.DividendType == domain.DividendNonCumulative {
		if years.GreaterThan(one) {
			years = one
		}
		return invested.Mul(c.DividendRate).Mul(years)
	}

	if c.Compounding {
		whole := years.IntPart()
		frac := years.Sub(decimal.NewFromInt(whole))
		growth := one.Add(c.DividendRate).
			Pow(decimal.NewFromInt(whole)).
			Mul(one.Add(c.DividendRate.Mul(frac)))
		return invested.Mul(growth.Sub(one))
	}

	return invested.Mul(c.DividendRate).Mul(years)
}
