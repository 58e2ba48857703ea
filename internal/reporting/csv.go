package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"

	"captable-lab/internal/domain"
	"captable-lab/internal/money"
)

// RenderScheduleCSV renders a breakpoint schedule as CSV. Exit values are
// canonical decimal strings so the file loads back without cent rounding.
func RenderScheduleCSV(bps []domain.Breakpoint) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	_ = w.Write([]string{
		"priority_order", "breakpoint_type", "exit_value",
		"affected_securities", "dependencies",
		"calculation_method", "explanation",
	})

	for _, bp := range bps {
		_ = w.Write([]string{
			strconv.Itoa(bp.PriorityOrder),
			bp.Type.String(),
			money.Canonical(bp.ExitValue),
			strings.Join(bp.AffectedSecurities, "|"),
			strings.Join(bp.Dependencies, "|"),
			bp.CalculationMethod,
			bp.Explanation,
		})
	}

	w.Flush()
	return sb.String()
}

// RenderCurveCSV renders sampled allocation points as CSV, one row per
// (exit_value, security_id).
func RenderCurveCSV(points []*domain.AllocationPoint) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	_ = w.Write([]string{"exit_value", "security_id", "amount"})

	for _, p := range points {
		_ = w.Write([]string{
			money.Canonical(p.ExitValue),
			p.SecurityID,
			money.Canonical(p.Amount),
		})
	}

	w.Flush()
	return sb.String()
}
