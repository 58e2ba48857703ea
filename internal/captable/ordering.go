package captable

import "sort"

// Deterministic ordering rules for normalized structures. Every consumer of
// a Structure sees the same sequence regardless of input order:
//
//   - classes: (seniority DESC, id ASC)
//   - grants:  (exercise price ASC, id ASC)
//   - tiers:   seniority DESC, members (id ASC)
func sortClasses(classes []*Class) {
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Seniority != classes[j].Seniority {
			return classes[i].Seniority > classes[j].Seniority
		}
		return classes[i].ID < classes[j].ID
	})
}

func sortGrants(grants []*Grant) {
	sort.Slice(grants, func(i, j int) bool {
		if !grants[i].ExercisePrice.Equal(grants[j].ExercisePrice) {
			return grants[i].ExercisePrice.LessThan(grants[j].ExercisePrice)
		}
		return grants[i].ID < grants[j].ID
	})
}

func sortStrings(ids []string) {
	sort.Strings(ids)
}

func sortIntsDesc(ranks []int) {
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))
}
