package breakpoints

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"captable-lab/internal/captable"
	"captable-lab/internal/domain"
	"captable-lab/internal/money"
)

// sweep walks elective events in ascending exit-value order. Every election
// is monotone in the exit value (once in the money, always in the money;
// once converted, always converted; once capped, capped until conversion),
// so applying the cheapest pending event and re-solving the rest converges
// in at most one flip per election.
//
// Between events the residual regime is linear:
//
//	perShare(v) = (v − P − F + E) / D
//
// where P is the unconverted preference stack, F the cap excess taken by
// pinned classes, E the exercise proceeds paid in by in-the-money grants,
// and D the participating share count. Each candidate event is the linear
// solve of its trigger condition against this regime.
type sweep struct {
	s          *captable.Structure
	converted  map[string]bool
	frozen     map[string]bool
	exercised  map[string]bool
	iterations int

	conversions []decimal.Decimal // conversion crossovers in sweep order
}

func newSweep(s *captable.Structure) *sweep {
	return &sweep{
		s:         s,
		converted: make(map[string]bool),
		frozen:    make(map[string]bool),
		exercised: make(map[string]bool),
	}
}

// candidate is one pending elective event and the exit value that triggers it.
type candidate struct {
	value decimal.Decimal
	typ   domain.BreakpointType
	id    string
	build func() domain.Breakpoint
}

// run derives option-exercise, participation-cap, and conversion breakpoints.
func (sw *sweep) run() []domain.Breakpoint {
	var bps []domain.Breakpoint

	maxFlips := 2*len(sw.s.Classes) + len(sw.s.Grants) + 1
	for i := 0; i < maxFlips; i++ {
		c, ok := sw.next()
		if !ok {
			break
		}
		sw.iterations++
		bps = append(bps, c.build())
		sw.apply(c)
	}
	return bps
}

// next returns the pending event with the lowest trigger value. Ties go to
// the lower type rank, then the lower id, matching the schedule order.
func (sw *sweep) next() (candidate, bool) {
	var cands []candidate
	cands = append(cands, sw.exerciseCandidates()...)
	cands = append(cands, sw.capCandidates()...)
	cands = append(cands, sw.conversionCandidates()...)
	if len(cands) == 0 {
		return candidate{}, false
	}

	sort.Slice(cands, func(i, j int) bool {
		if !cands[i].value.Equal(cands[j].value) {
			return cands[i].value.LessThan(cands[j].value)
		}
		if cands[i].typ != cands[j].typ {
			return cands[i].typ.Rank() < cands[j].typ.Rank()
		}
		return cands[i].id < cands[j].id
	})
	return cands[0], true
}

func (sw *sweep) apply(c candidate) {
	switch c.typ {
	case domain.BreakpointOptionExercise:
		sw.exercised[c.id] = true
	case domain.BreakpointParticipationCap:
		sw.frozen[c.id] = true
	case domain.BreakpointConversion:
		sw.converted[c.id] = true
		delete(sw.frozen, c.id)
		sw.conversions = append(sw.conversions, c.value)
	}
}

// Regime coefficients under the current election state.

// pref sums the preference claims still held as preferred.
func (sw *sweep) pref() decimal.Decimal {
	p := decimal.Zero
	for _, c := range sw.s.Classes {
		if c.IsPreferred() && !sw.converted[c.ID] {
			p = p.Add(c.PreferenceAmount)
		}
	}
	return p
}

// frozenExtra sums the residual take of pinned classes above their preference.
func (sw *sweep) frozenExtra() decimal.Decimal {
	f := decimal.Zero
	for _, c := range sw.s.Classes {
		if sw.frozen[c.ID] {
			f = f.Add(c.CapAmount.Sub(c.PreferenceAmount))
		}
	}
	return f
}

// exerciseProceeds sums the strike payments of in-the-money grants.
func (sw *sweep) exerciseProceeds() decimal.Decimal {
	e := decimal.Zero
	for _, g := range sw.s.Grants {
		if sw.exercised[g.ID] {
			e = e.Add(g.StrikeProceeds)
		}
	}
	return e
}

// cohortShares counts the shares splitting residual proceeds: common,
// as-converted preferred (converted or participating and not pinned), and
// in-the-money grant units.
func (sw *sweep) cohortShares() decimal.Decimal {
	d := decimal.Zero
	for _, c := range sw.s.Classes {
		switch {
		case sw.converted[c.ID]:
			d = d.Add(c.ConvertedShares)
		case !c.IsPreferred():
			d = d.Add(c.SharesOutstanding)
		case c.Participating() && !sw.frozen[c.ID]:
			d = d.Add(c.ConvertedShares)
		}
	}
	for _, g := range sw.s.Grants {
		if g.Active() && (g.ZeroStrike() || sw.exercised[g.ID]) {
			d = d.Add(g.NumOptions)
		}
	}
	return d
}

// triggerValue inverts the regime: the exit value at which perShare reaches
// the given per-share threshold.
func (sw *sweep) triggerValue(perShare, denom decimal.Decimal) decimal.Decimal {
	return perShare.Mul(denom).Add(sw.pref()).Add(sw.frozenExtra()).Sub(sw.exerciseProceeds())
}

// exerciseCandidates locates the exit value at which each out-of-the-money
// grant's residual per-share value reaches its strike. At the trigger the
// grant's entry is value-neutral (its units and strike proceeds join the
// pool at exactly the strike), so the pre-entry regime locates it exactly.
func (sw *sweep) exerciseCandidates() []candidate {
	denom := sw.cohortShares()
	if denom.Sign() == 0 {
		return nil
	}

	var cands []candidate
	for _, g := range sw.s.Grants {
		if !g.Active() || g.ZeroStrike() || sw.exercised[g.ID] {
			continue
		}
		g := g
		v := sw.triggerValue(g.ExercisePrice, denom)
		deps := sw.unconvertedPreferredIDs()
		cands = append(cands, candidate{
			value: v,
			typ:   domain.BreakpointOptionExercise,
			id:    g.ID,
			build: func() domain.Breakpoint {
				return domain.Breakpoint{
					Type:               domain.BreakpointOptionExercise,
					ExitValue:          v,
					AffectedSecurities: []string{g.ID},
					Dependencies:       deps,
					CalculationMethod:  "residual per-share value reaching the exercise price",
					Explanation: fmt.Sprintf("%s units strike %s become in the money; exercise proceeds of %s join the residual pool",
						money.Quantity(g.NumOptions), money.USD(g.ExercisePrice), money.USD(g.StrikeProceeds)),
					Derivation: fmt.Sprintf("%s × %s shares + %s preferences + %s cap excess − %s prior exercise proceeds = %s",
						money.USD(g.ExercisePrice), money.Quantity(denom), money.USD(sw.pref()),
						money.USD(sw.frozenExtra()), money.USD(sw.exerciseProceeds()), money.USD(v)),
				}
			},
		})
	}
	return cands
}

// capCandidates locates the exit value at which each capped class's total
// proceeds (preference plus participation) reach its cap amount.
func (sw *sweep) capCandidates() []candidate {
	denom := sw.cohortShares()
	if denom.Sign() == 0 {
		return nil
	}

	var cands []candidate
	for _, c := range sw.s.Classes {
		if !c.Capped() || sw.frozen[c.ID] || sw.converted[c.ID] {
			continue
		}
		if c.ConvertedShares.Sign() == 0 {
			continue
		}
		c := c
		headroom := money.Div(c.CapAmount.Sub(c.PreferenceAmount), c.ConvertedShares)
		v := sw.triggerValue(headroom, denom)
		cands = append(cands, candidate{
			value: v,
			typ:   domain.BreakpointParticipationCap,
			id:    c.ID,
			build: func() domain.Breakpoint {
				return domain.Breakpoint{
					Type:               domain.BreakpointParticipationCap,
					ExitValue:          v,
					AffectedSecurities: []string{c.ID},
					Dependencies:       []string{c.ID},
					CalculationMethod:  "participation proceeds reaching the cap amount",
					Explanation: fmt.Sprintf("class %q total proceeds reach the %s cap (%s× invested capital); participation stops until conversion pays more",
						c.ID, money.USD(c.CapAmount), c.ParticipationCap),
					Derivation: fmt.Sprintf("cap headroom (%s − %s) / %s shares = %s per share, triggered at %s",
						money.USD(c.CapAmount), money.USD(c.PreferenceAmount),
						money.Quantity(c.ConvertedShares), money.USD(headroom), money.USD(v)),
				}
			},
		})
	}
	return cands
}

// conversionCandidates locates each crossover at which taking as-converted
// common treatment strictly beats the preferred claim: the fixed preference
// for non-participating classes, the cap amount for pinned classes. The
// solve uses the post-conversion regime, where the class forfeits its
// preference and its as-converted shares join the cohort.
func (sw *sweep) conversionCandidates() []candidate {
	var cands []candidate
	for _, c := range sw.s.Classes {
		if !c.IsPreferred() || sw.converted[c.ID] {
			continue
		}
		if c.ConvertedShares.Sign() == 0 {
			continue
		}

		var keep decimal.Decimal
		switch {
		case sw.frozen[c.ID]:
			keep = c.CapAmount
		case c.Participating():
			// Converting forfeits the preference for the same pro-rata
			// share; never an improvement while participation is open.
			continue
		default:
			keep = c.PreferenceAmount
		}

		c := c
		denomAfter := sw.cohortShares().Add(c.ConvertedShares)
		prefAfter := sw.pref().Sub(c.PreferenceAmount)
		extraAfter := sw.frozenExtra()
		if sw.frozen[c.ID] {
			extraAfter = extraAfter.Sub(c.CapAmount.Sub(c.PreferenceAmount))
		}
		v := money.Div(keep.Mul(denomAfter), c.ConvertedShares).
			Add(prefAfter).Add(extraAfter).Sub(sw.exerciseProceeds())

		deps := sw.unconvertedPreferredIDs()
		cands = append(cands, candidate{
			value: v,
			typ:   domain.BreakpointConversion,
			id:    c.ID,
			build: func() domain.Breakpoint {
				return domain.Breakpoint{
					Type:               domain.BreakpointConversion,
					ExitValue:          v,
					AffectedSecurities: []string{c.ID},
					Dependencies:       deps,
					CalculationMethod:  "as-converted proceeds overtaking the preferred claim",
					Explanation: fmt.Sprintf("class %q converts to %s common shares; above this value conversion pays more than its %s claim",
						c.ID, money.Quantity(c.ConvertedShares), money.USD(keep)),
					Derivation: fmt.Sprintf("%s × %s shares / %s shares + %s remaining preferences + %s cap excess − %s exercise proceeds = %s",
						money.USD(keep), money.Quantity(denomAfter), money.Quantity(c.ConvertedShares),
						money.USD(prefAfter), money.USD(extraAfter), money.USD(sw.exerciseProceeds()), money.USD(v)),
				}
			},
		})
	}
	return cands
}

// unconvertedPreferredIDs lists the preferred classes whose claims shape the
// current regime, sorted ascending.
func (sw *sweep) unconvertedPreferredIDs() []string {
	var ids []string
	for _, c := range sw.s.Classes {
		if c.IsPreferred() && !sw.converted[c.ID] && c.PreferenceAmount.Sign() > 0 {
			ids = append(ids, c.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// allPreferredResolved reports whether no class still holds a preferred
// claim: everything is common, converted, or participating without a cap.
func (sw *sweep) allPreferredResolved() bool {
	for _, c := range sw.s.Classes {
		if !c.IsPreferred() || sw.converted[c.ID] {
			continue
		}
		if !c.Participating() || c.Capped() {
			return false
		}
	}
	return true
}
