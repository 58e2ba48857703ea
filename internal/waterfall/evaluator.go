package waterfall

import (
	"github.com/shopspring/decimal"

	"captable-lab/internal/captable"
	"captable-lab/internal/money"
)

// Evaluator computes the exact division of exit proceeds for one structure.
// It is the ground truth the breakpoint schedule is audited against: payoffs
// are evaluated from scratch at any exit value, independently of the
// schedule derivation.
type Evaluator struct {
	s        *captable.Structure
	classes  map[string]*captable.Class
	grants   map[string]*captable.Grant
	evalsRun int
}

// NewEvaluator creates an evaluator over a normalized structure.
func NewEvaluator(s *captable.Structure) *Evaluator {
	e := &Evaluator{
		s:       s,
		classes: make(map[string]*captable.Class, len(s.Classes)),
		grants:  make(map[string]*captable.Grant, len(s.Grants)),
	}
	for _, c := range s.Classes {
		e.classes[c.ID] = c
	}
	for _, g := range s.Grants {
		e.grants[g.ID] = g
	}
	return e
}

// Allocation is the exact division of one exit value across securities.
// Amounts plus Unallocated always sum to the exit value.
type Allocation struct {
	Amounts     map[string]decimal.Decimal // by security id
	Unallocated decimal.Decimal            // residual with no participating shares to absorb it
}

// Evaluations returns how many waterfall evaluations have run, including the
// hypothetical ones behind elective decisions.
func (e *Evaluator) Evaluations() int {
	return e.evalsRun
}

// state marks which elective treatments are in effect at a given exit value.
// Every flip is monotone in the exit value: once in the money, exercised for
// all higher values; once converted, converted for all higher values.
type state struct {
	converted map[string]bool // preferred classes taking as-converted common treatment
	frozen    map[string]bool // capped classes pinned at their cap amount
	exercised map[string]bool // grants in the money
}

func newState() state {
	return state{
		converted: make(map[string]bool),
		frozen:    make(map[string]bool),
		exercised: make(map[string]bool),
	}
}

func (st state) clone() state {
	next := newState()
	for id := range st.converted {
		next.converted[id] = true
	}
	for id := range st.frozen {
		next.frozen[id] = true
	}
	for id := range st.exercised {
		next.exercised[id] = true
	}
	return next
}

func (st state) withConverted(id string) state {
	next := st.clone()
	next.converted[id] = true
	delete(next.frozen, id)
	return next
}

// AllocationAt returns the allocation of total exit proceeds v.
// Holders elect the treatment that pays them most: non-participating
// preferred converts when as-converted proceeds strictly exceed the
// preference, capped classes pin at their cap and later re-enter as common,
// options exercise when the per-share value strictly exceeds the strike.
func (e *Evaluator) AllocationAt(v decimal.Decimal) Allocation {
	st := e.resolveState(v)
	alloc, _, _ := e.allocate(v, st)
	return alloc
}

// resolveState finds the stable elective state at exit value v, flipping one
// election at a time until no holder can improve. Flip order is fixed (cap
// pins, then exercises, then conversions, each in normalized order) so the
// walk is deterministic.
func (e *Evaluator) resolveState(v decimal.Decimal) state {
	st := newState()
	if v.Sign() <= 0 {
		return st
	}

	maxFlips := 2*len(e.s.Classes) + len(e.s.Grants) + 1
	for iter := 0; iter < maxFlips; iter++ {
		alloc, perShare, _ := e.allocate(v, st)

		if id, ok := e.findCapPin(st, alloc); ok {
			st.frozen[id] = true
			continue
		}
		if id, ok := e.findExercise(st, perShare); ok {
			st.exercised[id] = true
			continue
		}
		if next, ok := e.findConversion(v, st); ok {
			st = next
			continue
		}
		break
	}
	return st
}

func (e *Evaluator) findCapPin(st state, alloc Allocation) (string, bool) {
	for _, c := range e.s.Classes {
		if !c.Capped() || st.frozen[c.ID] || st.converted[c.ID] {
			continue
		}
		if alloc.Amounts[c.ID].GreaterThan(c.CapAmount) {
			return c.ID, true
		}
	}
	return "", false
}

func (e *Evaluator) findExercise(st state, perShare decimal.Decimal) (string, bool) {
	for _, g := range e.s.Grants {
		if !g.Active() || g.ZeroStrike() || st.exercised[g.ID] {
			continue
		}
		if perShare.GreaterThan(g.ExercisePrice) {
			return g.ID, true
		}
	}
	return "", false
}

func (e *Evaluator) findConversion(v decimal.Decimal, st state) (state, bool) {
	for _, c := range e.s.Classes {
		if !c.IsPreferred() || st.converted[c.ID] {
			continue
		}
		var keep decimal.Decimal
		switch {
		case st.frozen[c.ID]:
			keep = c.CapAmount
		case c.Participating():
			// Converting forfeits the preference for the same pro-rata
			// share; never an improvement while participation is open.
			continue
		default:
			keep = c.PreferenceAmount
		}
		trial := st.withConverted(c.ID)
		hypo, _, _ := e.allocate(v, trial)
		if hypo.Amounts[c.ID].GreaterThan(keep) {
			return trial, true
		}
	}
	return state{}, false
}

// allocate divides v under a fixed elective state. It returns the allocation,
// the residual per-share value, and the participating share count.
//
// Phases:
//  1. Preference walk, most senior tier first. Converted classes forfeit
//     their claim. A short tier splits pari passu by claim and ends the walk.
//  2. Residual distribution over the participating cohort: common, converted
//     classes, participating preferred not yet pinned, in-the-money grants.
//     Exercise proceeds of in-the-money grants join the pool; pinned classes
//     take their fixed cap amounts off the top.
//
// All splits go through money.Split, so amounts plus Unallocated equal v
// exactly.
func (e *Evaluator) allocate(v decimal.Decimal, st state) (Allocation, decimal.Decimal, decimal.Decimal) {
	e.evalsRun++
	alloc := Allocation{
		Amounts:     make(map[string]decimal.Decimal, len(e.s.Classes)+len(e.s.Grants)),
		Unallocated: decimal.Zero,
	}
	for _, c := range e.s.Classes {
		alloc.Amounts[c.ID] = decimal.Zero
	}
	for _, g := range e.s.Grants {
		if g.Active() {
			alloc.Amounts[g.ID] = decimal.Zero
		}
	}
	if v.Sign() <= 0 {
		return alloc, decimal.Zero, decimal.Zero
	}

	// Phase 1: preference walk.
	remaining := v
	for _, tier := range e.s.Tiers {
		ids := make([]string, 0, len(tier.ClassIDs))
		claims := make([]decimal.Decimal, 0, len(tier.ClassIDs))
		tierAmount := decimal.Zero
		for _, id := range tier.ClassIDs {
			if st.converted[id] {
				continue
			}
			ids = append(ids, id)
			claims = append(claims, e.classes[id].PreferenceAmount)
			tierAmount = tierAmount.Add(e.classes[id].PreferenceAmount)
		}
		if len(ids) == 0 {
			continue
		}
		if remaining.GreaterThanOrEqual(tierAmount) {
			for i, id := range ids {
				alloc.Amounts[id] = claims[i]
			}
			remaining = remaining.Sub(tierAmount)
			continue
		}
		parts := money.Split(remaining, claims)
		for i, id := range ids {
			alloc.Amounts[id] = parts[i]
		}
		return alloc, decimal.Zero, decimal.Zero
	}
	if remaining.Sign() <= 0 {
		return alloc, decimal.Zero, decimal.Zero
	}

	// Phase 2: residual distribution.
	pool := remaining
	for _, g := range e.s.Grants {
		if g.Active() && st.exercised[g.ID] {
			pool = pool.Add(g.StrikeProceeds)
		}
	}

	frozenTake := decimal.Zero
	for _, c := range e.s.Classes {
		if st.frozen[c.ID] {
			frozenTake = frozenTake.Add(c.CapAmount.Sub(c.PreferenceAmount))
			alloc.Amounts[c.ID] = c.CapAmount
		}
	}
	distributable := pool.Sub(frozenTake)
	if distributable.Sign() < 0 {
		distributable = decimal.Zero
	}

	type member struct {
		id        string
		grantCost decimal.Decimal // exercise proceeds to net out; zero for classes
		addOnTop  bool            // participating preferred stacks on its preference
	}
	members := make([]member, 0, len(e.s.Classes)+len(e.s.Grants))
	weights := make([]decimal.Decimal, 0, len(e.s.Classes)+len(e.s.Grants))
	denom := decimal.Zero

	for _, c := range e.s.Classes {
		switch {
		case st.converted[c.ID]:
			members = append(members, member{id: c.ID})
			weights = append(weights, c.ConvertedShares)
			denom = denom.Add(c.ConvertedShares)
		case !c.IsPreferred():
			members = append(members, member{id: c.ID})
			weights = append(weights, c.SharesOutstanding)
			denom = denom.Add(c.SharesOutstanding)
		case c.Participating() && !st.frozen[c.ID]:
			members = append(members, member{id: c.ID, addOnTop: true})
			weights = append(weights, c.ConvertedShares)
			denom = denom.Add(c.ConvertedShares)
		}
	}
	for _, g := range e.s.Grants {
		if !g.Active() {
			continue
		}
		if g.ZeroStrike() || st.exercised[g.ID] {
			members = append(members, member{id: g.ID, grantCost: g.StrikeProceeds})
			weights = append(weights, g.NumOptions)
			denom = denom.Add(g.NumOptions)
		}
	}

	if denom.Sign() == 0 {
		alloc.Unallocated = distributable
		return alloc, decimal.Zero, decimal.Zero
	}

	perShare := money.Div(distributable, denom)
	parts := money.Split(distributable, weights)
	for i, m := range members {
		if m.addOnTop {
			alloc.Amounts[m.id] = alloc.Amounts[m.id].Add(parts[i])
			continue
		}
		alloc.Amounts[m.id] = parts[i].Sub(m.grantCost)
	}
	return alloc, perShare, denom
}
