package breakpoints

import (
	"fmt"

	"github.com/shopspring/decimal"

	"captable-lab/internal/domain"
	"captable-lab/internal/money"
)

// preferenceBreakpoints derives one breakpoint per seniority tier at the
// cumulative exit value that fully satisfies the tier's aggregate claim.
// Tiers are walked most senior first, so thresholds are non-decreasing by
// construction.
func (a *Analyzer) preferenceBreakpoints() []domain.Breakpoint {
	var bps []domain.Breakpoint
	cumulative := decimal.Zero
	var senior []string

	for _, tier := range a.s.Tiers {
		prior := cumulative
		cumulative = cumulative.Add(tier.Amount)

		bp := domain.Breakpoint{
			Type:               domain.BreakpointLiquidationPreference,
			ExitValue:          cumulative,
			AffectedSecurities: append([]string(nil), tier.ClassIDs...),
			Dependencies:       append([]string(nil), senior...),
			CalculationMethod:  "cumulative seniority-tier liquidation preference",
			Explanation: fmt.Sprintf("seniority %d preference of %s fully satisfied; proceeds above this flow to the next claim",
				tier.Seniority, money.USD(tier.Amount)),
			Derivation: fmt.Sprintf("%s senior claims + %s tier claim = %s",
				money.USD(prior), money.USD(tier.Amount), money.USD(cumulative)),
		}
		if len(tier.ClassIDs) > 1 {
			bp.Explanation += fmt.Sprintf("; %d pari passu classes split the tranche pro rata by claim", len(tier.ClassIDs))
		}
		bps = append(bps, bp)

		senior = append(senior, tier.ClassIDs...)
	}
	return bps
}

// participationOpening derives the pro-rata threshold at which zero-strike
// grants join the participating cohort: the first dollar past the full
// preference stack. With no preference stack the cohort participates from
// zero and no threshold exists; strike-bearing grants are handled by the
// sweep instead.
func (a *Analyzer) participationOpening() []domain.Breakpoint {
	if a.s.TotalPreference.Sign() <= 0 {
		return nil
	}

	var ids []string
	units := decimal.Zero
	for _, g := range a.s.Grants {
		if g.Active() && g.ZeroStrike() {
			ids = append(ids, g.ID)
			units = units.Add(g.NumOptions)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var deps []string
	for _, t := range a.s.Tiers {
		deps = append(deps, t.ClassIDs...)
	}

	return []domain.Breakpoint{{
		Type:               domain.BreakpointProRata,
		ExitValue:          a.s.TotalPreference,
		AffectedSecurities: ids,
		Dependencies:       deps,
		CalculationMethod:  "residual participation threshold",
		Explanation: fmt.Sprintf("%s zero-strike units begin sharing residual proceeds once the full preference stack is paid",
			money.Quantity(units)),
		Derivation: fmt.Sprintf("total liquidation preference %s", money.USD(a.s.TotalPreference)),
	}}
}
