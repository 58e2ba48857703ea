package captable

import (
	"errors"
	"fmt"

	"captable-lab/internal/domain"
)

// Construction errors. Structurally invalid input is rejected here, before
// any analysis runs; softer issues become findings instead.
var (
	ErrDuplicateID  = errors.New("duplicate security id")
	ErrInvalidClass = errors.New("invalid share class")
	ErrInvalidGrant = errors.New("invalid option grant")
)

// validateClasses rejects share classes the engine cannot represent.
// Classes and grants share one id namespace; seen carries ids across both.
func validateClasses(classes []domain.ShareClass, seen map[string]struct{}) error {
	for i := range classes {
		c := &classes[i]
		if c.ID == "" {
			return fmt.Errorf("%w: class %d has empty id", ErrInvalidClass, i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateID, c.ID)
		}
		seen[c.ID] = struct{}{}

		if !c.Type.IsValid() {
			return fmt.Errorf("%w: %q has share type %q", ErrInvalidClass, c.ID, c.Type)
		}
		if c.SharesOutstanding.Sign() < 0 {
			return fmt.Errorf("%w: %q has negative shares outstanding", ErrInvalidClass, c.ID)
		}
		if c.PricePerShare.Sign() < 0 {
			return fmt.Errorf("%w: %q has negative price per share", ErrInvalidClass, c.ID)
		}
		if c.LiquidationMultiple.Sign() < 0 {
			return fmt.Errorf("%w: %q has negative liquidation multiple", ErrInvalidClass, c.ID)
		}
		if c.ParticipationCap.Sign() < 0 {
			return fmt.Errorf("%w: %q has negative participation cap", ErrInvalidClass, c.ID)
		}
		if c.DividendRate.Sign() < 0 {
			return fmt.Errorf("%w: %q has negative dividend rate", ErrInvalidClass, c.ID)
		}

		if c.IsPreferred() {
			if !c.PreferenceType.IsValid() {
				return fmt.Errorf("%w: %q has preference type %q", ErrInvalidClass, c.ID, c.PreferenceType)
			}
			if c.ConversionRatio.Sign() <= 0 {
				return fmt.Errorf("%w: %q has non-positive conversion ratio", ErrInvalidClass, c.ID)
			}
			if c.PreferenceType == domain.PreferenceParticipatingCapped &&
				c.ParticipationCap.Sign() > 0 &&
				c.ParticipationCap.LessThan(c.LiquidationMultiple) {
				return fmt.Errorf("%w: %q participation cap %s is below liquidation multiple %s",
					ErrInvalidClass, c.ID, c.ParticipationCap, c.LiquidationMultiple)
			}
		}
		if c.DividendsDeclared && !c.DividendType.IsValid() {
			return fmt.Errorf("%w: %q declares dividends with dividend type %q", ErrInvalidClass, c.ID, c.DividendType)
		}
	}
	return nil
}

// validateGrants rejects option grants the engine cannot represent.
func validateGrants(grants []domain.OptionGrant, seen map[string]struct{}) error {
	for i := range grants {
		g := &grants[i]
		if g.ID == "" {
			return fmt.Errorf("%w: grant %d has empty id", ErrInvalidGrant, i)
		}
		if _, dup := seen[g.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateID, g.ID)
		}
		seen[g.ID] = struct{}{}

		if !g.Kind.IsValid() {
			return fmt.Errorf("%w: %q has grant kind %q", ErrInvalidGrant, g.ID, g.Kind)
		}
		if g.NumOptions.Sign() < 0 {
			return fmt.Errorf("%w: %q has negative option count", ErrInvalidGrant, g.ID)
		}
		if g.ExercisePrice.Sign() < 0 {
			return fmt.Errorf("%w: %q has negative exercise price", ErrInvalidGrant, g.ID)
		}
	}
	return nil
}
