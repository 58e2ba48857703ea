package money

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DivPrecision is the number of fractional digits kept by Div. Every interior
// division in the engine goes through Div so results never depend on a global
// precision setting or call order.
const DivPrecision = 28

// CentPlaces is the display quantum for monetary output. Interior math stays
// at full precision; rounding to cents happens only at presentation.
const CentPlaces = 2

// Div divides a by b at DivPrecision fractional digits, rounding half away
// from zero.
func Div(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, DivPrecision)
}

// Cents rounds v to two fractional digits for presentation.
func Cents(v decimal.Decimal) decimal.Decimal {
	return v.Round(CentPlaces)
}

// Canonical renders v with trailing fractional zeros trimmed, so equal values
// always produce the same string regardless of their arithmetic history.
func Canonical(v decimal.Decimal) string {
	s := v.String()
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// Split divides total among weights pro rata so the parts sum to total
// exactly. Each part is truncated at DivPrecision digits and the leftover is
// handed out one smallest unit at a time by descending division remainder,
// lowest index breaking ties. Zero and negative weights receive nothing; a
// non-positive weight sum or negative total yields all-zero parts.
func Split(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	parts := make([]decimal.Decimal, len(weights))
	for i := range parts {
		parts[i] = decimal.Zero
	}
	if len(weights) == 0 || total.Sign() <= 0 {
		return parts
	}

	weightSum := decimal.Zero
	for _, w := range weights {
		if w.Sign() > 0 {
			weightSum = weightSum.Add(w)
		}
	}
	if weightSum.Sign() <= 0 {
		return parts
	}

	type share struct {
		idx int
		rem decimal.Decimal
	}
	shares := make([]share, 0, len(weights))
	allotted := decimal.Zero
	for i, w := range weights {
		if w.Sign() <= 0 {
			continue
		}
		q, r := total.Mul(w).QuoRem(weightSum, DivPrecision)
		parts[i] = q
		allotted = allotted.Add(q)
		shares = append(shares, share{idx: i, rem: r})
	}

	leftover := total.Sub(allotted)
	if leftover.Sign() <= 0 {
		return parts
	}

	sort.SliceStable(shares, func(a, b int) bool {
		return shares[a].rem.GreaterThan(shares[b].rem)
	})

	unit := decimal.New(1, -DivPrecision)
	for leftover.GreaterThanOrEqual(unit) {
		for i := 0; i < len(shares) && leftover.GreaterThanOrEqual(unit); i++ {
			parts[shares[i].idx] = parts[shares[i].idx].Add(unit)
			leftover = leftover.Sub(unit)
		}
	}
	// Sub-unit residue shows up only when total carries more than
	// DivPrecision fractional digits; park it on the largest remainder.
	if leftover.Sign() > 0 {
		parts[shares[0].idx] = parts[shares[0].idx].Add(leftover)
	}
	return parts
}

// USD renders v as a dollar amount rounded to cents with thousands
// separators, e.g. "$1,500,000.00".
func USD(v decimal.Decimal) string {
	s := v.Round(CentPlaces).StringFixed(CentPlaces)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.IndexByte(s, '.')
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	writeGrouped(&b, s[:dot])
	b.WriteString(s[dot:])
	return b.String()
}

// Quantity renders a share count with thousands separators and trailing
// fractional zeros trimmed, e.g. "1,000,000" or "1,234.5".
func Quantity(v decimal.Decimal) string {
	s := Canonical(v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		whole, frac = s[:dot], s[dot:]
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	writeGrouped(&b, whole)
	b.WriteString(frac)
	return b.String()
}

// writeGrouped writes an unsigned integer string with comma separators.
func writeGrouped(b *strings.Builder, digits string) {
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte(',')
		}
	}
}
