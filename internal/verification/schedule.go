package verification

import (
	"fmt"

	"captable-lab/internal/domain"
)

// ScheduleOrder checks the structural invariants of a finished schedule:
// exit values ascend, equal values keep the fixed type precedence, and
// priority order matches position.
func ScheduleOrder(bps []domain.Breakpoint) domain.ValidationResult {
	for i := range bps {
		if bps[i].PriorityOrder != i {
			return scheduleFailure(fmt.Sprintf("priority order %d at position %d", bps[i].PriorityOrder, i))
		}
		if i == 0 {
			continue
		}
		if bps[i].ExitValue.LessThan(bps[i-1].ExitValue) {
			return scheduleFailure(fmt.Sprintf("exit value decreases at position %d", i))
		}
		if bps[i].ExitValue.Equal(bps[i-1].ExitValue) && bps[i].Type.Rank() < bps[i-1].Type.Rank() {
			return scheduleFailure(fmt.Sprintf("type precedence violated at position %d: %s before %s",
				i, bps[i-1].Type, bps[i].Type))
		}
	}
	return domain.ValidationResult{
		Check:    domain.CheckScheduleOrder,
		Severity: domain.SeverityInfo,
		Passed:   true,
		Message:  fmt.Sprintf("%d breakpoints in ascending order with stable tie precedence", len(bps)),
	}
}

func scheduleFailure(msg string) domain.ValidationResult {
	return domain.ValidationResult{
		Check:    domain.CheckScheduleOrder,
		Severity: domain.SeverityError,
		Message:  msg,
	}
}
