package breakpoints

import (
	"sort"

	"captable-lab/internal/domain"
)

// buildSchedule merges the derived breakpoints into the final schedule:
// sorted by (exit value ASC, type rank ASC, first affected id ASC), equal
// (type, exit value) entries folded into one, priority order assigned by
// position. Exit values compare by exact decimal equality; there is no
// epsilon merging.
func buildSchedule(bps []domain.Breakpoint) []domain.Breakpoint {
	for i := range bps {
		sort.Strings(bps[i].AffectedSecurities)
		sort.Strings(bps[i].Dependencies)
	}

	sort.SliceStable(bps, func(i, j int) bool {
		if !bps[i].ExitValue.Equal(bps[j].ExitValue) {
			return bps[i].ExitValue.LessThan(bps[j].ExitValue)
		}
		if bps[i].Type != bps[j].Type {
			return bps[i].Type.Rank() < bps[j].Type.Rank()
		}
		return first(bps[i].AffectedSecurities) < first(bps[j].AffectedSecurities)
	})

	out := make([]domain.Breakpoint, 0, len(bps))
	for _, bp := range bps {
		if n := len(out); n > 0 && out[n-1].Type == bp.Type && out[n-1].ExitValue.Equal(bp.ExitValue) {
			prev := &out[n-1]
			prev.AffectedSecurities = mergeSorted(prev.AffectedSecurities, bp.AffectedSecurities)
			prev.Dependencies = mergeSorted(prev.Dependencies, bp.Dependencies)
			if bp.Explanation != "" && bp.Explanation != prev.Explanation {
				prev.Explanation += "; " + bp.Explanation
			}
			continue
		}
		out = append(out, bp)
	}

	for i := range out {
		out[i].PriorityOrder = i
	}
	return out
}

// criticalValues flags exit values where several distinct events land at
// once, plus the value past which no preferred claim remains outstanding.
func criticalValues(bps []domain.Breakpoint, sw *sweep) []domain.CriticalValue {
	var cvs []domain.CriticalValue

	for i := 0; i < len(bps); {
		j := i + 1
		for j < len(bps) && bps[j].ExitValue.Equal(bps[i].ExitValue) {
			j++
		}
		if j-i > 1 {
			cv := domain.CriticalValue{ExitValue: bps[i].ExitValue}
			for _, bp := range bps[i:j] {
				cv.Triggers = append(cv.Triggers, bp.Type.String())
				cv.AffectedSecurities = mergeSorted(cv.AffectedSecurities, bp.AffectedSecurities)
			}
			cvs = append(cvs, cv)
		}
		i = j
	}

	if n := len(sw.conversions); n > 0 && sw.allPreferredResolved() {
		last := sw.conversions[n-1]
		cv := domain.CriticalValue{
			ExitValue: last,
			Triggers:  []string{"all preferred claims resolved: every class holds as-converted common or open participation"},
		}
		for _, c := range sw.s.Classes {
			if c.IsPreferred() {
				cv.AffectedSecurities = append(cv.AffectedSecurities, c.ID)
			}
		}
		sort.Strings(cv.AffectedSecurities)
		cvs = append(cvs, cv)
	}

	sort.SliceStable(cvs, func(i, j int) bool {
		return cvs[i].ExitValue.LessThan(cvs[j].ExitValue)
	})
	return cvs
}

// mergeSorted unions two sorted string slices, dropping duplicates.
func mergeSorted(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i, j = i+1, j+1
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func first(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
