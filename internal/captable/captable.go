package captable

import (
	"github.com/shopspring/decimal"

	"captable-lab/internal/domain"
)

// Config carries analysis-wide settings that are inputs in their own right.
// The valuation date is explicit so two runs over the same structure always
// accrue the same dividends.
type Config struct {
	ValuationDate int64 // Unix ms UTC; 0 disables dividend accrual
}

// Class is a share class with its derived liquidation amounts.
type Class struct {
	domain.ShareClass

	InvestedCapital  decimal.Decimal // shares outstanding × original issue price
	AccruedDividends decimal.Decimal // dividend claim as of the valuation date
	PreferenceAmount decimal.Decimal // liquidation multiple × invested capital + accrued dividends
	CapAmount        decimal.Decimal // participation cap × invested capital; zero when uncapped
	ConvertedShares  decimal.Decimal // common shares on an as-converted basis
}

// Participating reports whether the class shares in residual proceeds while
// still preferred.
func (c *Class) Participating() bool {
	return c.IsPreferred() &&
		(c.PreferenceType == domain.PreferenceParticipating ||
			c.PreferenceType == domain.PreferenceParticipatingCapped)
}

// Capped reports whether the class carries a participation cap.
func (c *Class) Capped() bool {
	return c.IsPreferred() &&
		c.PreferenceType == domain.PreferenceParticipatingCapped &&
		c.CapAmount.Sign() > 0
}

// Grant is an option grant with its derived exercise amounts.
type Grant struct {
	domain.OptionGrant

	StrikeProceeds decimal.Decimal // num options × exercise price
}

// Active reports whether the grant contributes shares to the analysis.
// Empty grants are carried for audit but produce no breakpoints.
func (g *Grant) Active() bool {
	return g.NumOptions.Sign() > 0
}

// ZeroStrike reports whether the grant is in the money from the first
// participating dollar.
func (g *Grant) ZeroStrike() bool {
	return g.ExercisePrice.Sign() == 0
}

// Tier groups pari passu preferred classes at one seniority rank.
// Tiers are ordered most senior first and hold only classes with a
// positive preference claim.
type Tier struct {
	Seniority int
	ClassIDs  []string        // members, sorted ascending
	Amount    decimal.Decimal // summed preference amounts
}

// Structure is a validated, normalized capital structure ready for analysis.
// Construction fails fast on structurally invalid input; everything softer
// is recorded as a finding and carried into the analysis output.
type Structure struct {
	Classes  []*Class // seniority descending, then id ascending
	Grants   []*Grant // exercise price ascending, then id ascending
	Tiers    []Tier   // most senior first
	Findings []domain.ValidationResult
	Config   Config

	TotalInvestedCapital  decimal.Decimal
	TotalPreference       decimal.Decimal // includes accrued dividends
	TotalAccruedDividends decimal.Decimal
	CommonShares          decimal.Decimal
	PreferredShares       decimal.Decimal
	PreferredAsConverted  decimal.Decimal
	OptionUnits           decimal.Decimal
	FullyDilutedShares    decimal.Decimal
}

// ClassByID returns the normalized class with the given id, or nil.
func (s *Structure) ClassByID(id string) *Class {
	for _, c := range s.Classes {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// SecurityIDs returns every class and active grant id, sorted ascending.
func (s *Structure) SecurityIDs() []string {
	ids := make([]string, 0, len(s.Classes)+len(s.Grants))
	for _, c := range s.Classes {
		ids = append(ids, c.ID)
	}
	for _, g := range s.Grants {
		if g.Active() {
			ids = append(ids, g.ID)
		}
	}
	sortStrings(ids)
	return ids
}

// Empty reports whether the structure holds no securities at all.
func (s *Structure) Empty() bool {
	return len(s.Classes) == 0 && len(s.Grants) == 0
}

// Audit summarizes the structure's totals for reconciliation.
func (s *Structure) Audit() domain.AuditSummary {
	return domain.AuditSummary{
		TotalInvestedCapital:       s.TotalInvestedCapital,
		TotalLiquidationPreference: s.TotalPreference,
		TotalAccruedDividends:      s.TotalAccruedDividends,
		CommonShares:               s.CommonShares,
		PreferredShares:            s.PreferredShares,
		PreferredAsConverted:       s.PreferredAsConverted,
		OptionsOutstanding:         s.OptionUnits,
		FullyDilutedShares:         s.FullyDilutedShares,
		SeniorityTiers:             len(s.Tiers),
	}
}
