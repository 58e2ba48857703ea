package waterfall

import (
	"github.com/shopspring/decimal"

	"captable-lab/internal/domain"
	"captable-lab/internal/money"
)

// SampleCurve evaluates every security's payoff on an even grid from zero to
// limit, inclusive, producing rows for the analytics store. Points are
// ordered by (exit value ASC, security id ASC).
func SampleCurve(e *Evaluator, runID string, limit decimal.Decimal, points int) []domain.AllocationPoint {
	if points < 2 {
		points = 2
	}
	if limit.Sign() <= 0 {
		return nil
	}

	ids := e.s.SecurityIDs()
	rows := make([]domain.AllocationPoint, 0, points*len(ids))
	steps := decimal.NewFromInt(int64(points - 1))

	for i := 0; i < points; i++ {
		v := money.Div(limit.Mul(decimal.NewFromInt(int64(i))), steps)
		if i == points-1 {
			v = limit
		}
		alloc := e.AllocationAt(v)
		for _, id := range ids {
			rows = append(rows, domain.AllocationPoint{
				RunID:      runID,
				SecurityID: id,
				ExitValue:  v,
				Amount:     alloc.Amounts[id],
			})
		}
	}
	return rows
}
