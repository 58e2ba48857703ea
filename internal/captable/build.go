package captable

import (
	"fmt"

	"github.com/shopspring/decimal"

	"captable-lab/internal/domain"
)

// NewStructure validates and normalizes a capital structure.
// Steps:
//  1. Fail fast on structurally invalid classes and grants
//  2. Copy and normalize each class, deriving invested capital, accrued
//     dividends, preference amount, cap amount, and as-converted shares
//  3. Copy each grant, deriving exercise proceeds
//  4. Sort deterministically and build seniority tiers
//  5. Aggregate structure totals
//
// Soft issues (ignored fields, skipped accrual, empty grants) become
// findings on the returned structure, never errors.
func NewStructure(classes []domain.ShareClass, grants []domain.OptionGrant, cfg Config) (*Structure, error) {
	seen := make(map[string]struct{}, len(classes)+len(grants))
	if err := validateClasses(classes, seen); err != nil {
		return nil, err
	}
	if err := validateGrants(grants, seen); err != nil {
		return nil, err
	}

	s := &Structure{Config: cfg}
	classWarnings := 0
	grantWarnings := 0

	for i := range classes {
		c := &Class{ShareClass: classes[i]}

		if !c.IsPreferred() {
			if c.LiquidationMultiple.Sign() > 0 || c.ParticipationCap.Sign() > 0 {
				s.warn(domain.CheckClassTerms, fmt.Sprintf("class %q: preference terms on common stock ignored", c.ID), c.ID)
				classWarnings++
			}
			c.LiquidationMultiple = decimal.Zero
			c.ParticipationCap = decimal.Zero
			c.PreferenceType = ""
			c.ConvertedShares = c.SharesOutstanding
			c.InvestedCapital = c.SharesOutstanding.Mul(c.PricePerShare)
			s.Classes = append(s.Classes, c)
			continue
		}

		if c.ParticipationCap.Sign() > 0 && c.PreferenceType != domain.PreferenceParticipatingCapped {
			s.warn(domain.CheckClassTerms, fmt.Sprintf("class %q: participation cap on %s preference ignored", c.ID, c.PreferenceType), c.ID)
			classWarnings++
			c.ParticipationCap = decimal.Zero
		}
		if c.DividendRate.Sign() > 0 && !c.DividendsDeclared {
			s.warn(domain.CheckDividendAccrual, fmt.Sprintf("class %q: dividend rate without declared dividends ignored", c.ID), c.ID)
			classWarnings++
		}
		if c.LiquidationMultiple.Sign() == 0 {
			s.warn(domain.CheckClassTerms, fmt.Sprintf("class %q: preferred stock with zero liquidation multiple", c.ID), c.ID)
			classWarnings++
		}

		c.InvestedCapital = c.SharesOutstanding.Mul(c.PricePerShare)
		c.ConvertedShares = c.SharesOutstanding.Mul(c.ConversionRatio)

		if c.DividendsDeclared && c.DividendRate.Sign() > 0 {
			switch {
			case cfg.ValuationDate == 0:
				s.warn(domain.CheckDividendAccrual, fmt.Sprintf("class %q: no valuation date, dividend accrual skipped", c.ID), c.ID)
				classWarnings++
			case c.RoundDate == 0:
				s.warn(domain.CheckDividendAccrual, fmt.Sprintf("class %q: no round date, dividend accrual skipped", c.ID), c.ID)
				classWarnings++
			case cfg.ValuationDate < c.RoundDate:
				s.warn(domain.CheckDividendAccrual, fmt.Sprintf("class %q: valuation date precedes round date, dividend accrual skipped", c.ID), c.ID)
				classWarnings++
			}
		}
		c.AccruedDividends = accrueDividends(&c.ShareClass, c.InvestedCapital, cfg.ValuationDate)
		c.PreferenceAmount = c.InvestedCapital.Mul(c.LiquidationMultiple).Add(c.AccruedDividends)

		if c.PreferenceType == domain.PreferenceParticipatingCapped && c.ParticipationCap.Sign() > 0 {
			c.CapAmount = c.InvestedCapital.Mul(c.ParticipationCap)
			if c.PreferenceAmount.GreaterThan(c.CapAmount) {
				s.warn(domain.CheckDividendAccrual, fmt.Sprintf("class %q: accrued dividends push preference above participation cap, preference clamped to cap", c.ID), c.ID)
				classWarnings++
				c.PreferenceAmount = c.CapAmount
			}
		}

		s.Classes = append(s.Classes, c)
	}

	for i := range grants {
		g := &Grant{OptionGrant: grants[i]}
		g.StrikeProceeds = g.NumOptions.Mul(g.ExercisePrice)

		if !g.Active() {
			s.finding(domain.CheckGrantTerms, domain.SeverityInfo, true,
				fmt.Sprintf("grant %q: zero options, excluded from derivation", g.ID), g.ID)
		}
		if g.Kind == domain.GrantRSU && g.ExercisePrice.Sign() > 0 {
			s.warn(domain.CheckGrantTerms, fmt.Sprintf("grant %q: rsu with non-zero exercise price, price honored", g.ID), g.ID)
			grantWarnings++
		}

		s.Grants = append(s.Grants, g)
	}

	sortClasses(s.Classes)
	sortGrants(s.Grants)
	s.buildTiers()
	s.aggregate()

	s.finding(domain.CheckClassTerms, domain.SeverityInfo, classWarnings == 0,
		fmt.Sprintf("%d share classes validated, %d warnings", len(s.Classes), classWarnings))
	s.finding(domain.CheckGrantTerms, domain.SeverityInfo, grantWarnings == 0,
		fmt.Sprintf("%d option grants validated, %d warnings", len(s.Grants), grantWarnings))
	if s.Empty() {
		s.finding(domain.CheckDegenerateInput, domain.SeverityInfo, true, "empty capital structure")
	} else if s.FullyDilutedShares.Sign() == 0 {
		s.warn(domain.CheckDegenerateInput, "structure has securities but zero fully diluted shares")
	}

	return s, nil
}

// buildTiers groups preferred classes with a positive claim by seniority,
// most senior first.
func (s *Structure) buildTiers() {
	byRank := make(map[int]*Tier)
	var ranks []int
	for _, c := range s.Classes {
		if !c.IsPreferred() || c.PreferenceAmount.Sign() <= 0 {
			continue
		}
		t, ok := byRank[c.Seniority]
		if !ok {
			t = &Tier{Seniority: c.Seniority, Amount: decimal.Zero}
			byRank[c.Seniority] = t
			ranks = append(ranks, c.Seniority)
		}
		t.ClassIDs = append(t.ClassIDs, c.ID)
		t.Amount = t.Amount.Add(c.PreferenceAmount)
	}

	sortIntsDesc(ranks)
	for _, r := range ranks {
		t := byRank[r]
		sortStrings(t.ClassIDs)
		s.Tiers = append(s.Tiers, *t)
	}
}

// aggregate computes structure-level totals.
func (s *Structure) aggregate() {
	s.TotalInvestedCapital = decimal.Zero
	s.TotalPreference = decimal.Zero
	s.TotalAccruedDividends = decimal.Zero
	s.CommonShares = decimal.Zero
	s.PreferredShares = decimal.Zero
	s.PreferredAsConverted = decimal.Zero
	s.OptionUnits = decimal.Zero

	for _, c := range s.Classes {
		s.TotalInvestedCapital = s.TotalInvestedCapital.Add(c.InvestedCapital)
		if c.IsPreferred() {
			s.PreferredShares = s.PreferredShares.Add(c.SharesOutstanding)
			s.PreferredAsConverted = s.PreferredAsConverted.Add(c.ConvertedShares)
			s.TotalPreference = s.TotalPreference.Add(c.PreferenceAmount)
			s.TotalAccruedDividends = s.TotalAccruedDividends.Add(c.AccruedDividends)
		} else {
			s.CommonShares = s.CommonShares.Add(c.SharesOutstanding)
		}
	}
	for _, g := range s.Grants {
		s.OptionUnits = s.OptionUnits.Add(g.NumOptions)
	}
	s.FullyDilutedShares = s.CommonShares.Add(s.PreferredAsConverted).Add(s.OptionUnits)
}

func (s *Structure) warn(check, msg string, ids ...string) {
	s.finding(check, domain.SeverityWarning, false, msg, ids...)
}

func (s *Structure) finding(check string, sev domain.Severity, passed bool, msg string, ids ...string) {
	s.Findings = append(s.Findings, domain.ValidationResult{
		Check:              check,
		Severity:           sev,
		Passed:             passed,
		Message:            msg,
		AffectedSecurities: ids,
	})
}
