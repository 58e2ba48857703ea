package domain

import "github.com/shopspring/decimal"

// ShareType distinguishes common stock from preferred stock.
type ShareType string

const (
	ShareTypeCommon    ShareType = "common"
	ShareTypePreferred ShareType = "preferred"
)

// String returns the string representation of ShareType.
func (t ShareType) String() string {
	return string(t)
}

// IsValid checks if the share type is a valid value.
func (t ShareType) IsValid() bool {
	return t == ShareTypeCommon || t == ShareTypePreferred
}

// PreferenceType describes how a preferred class takes part in residual
// proceeds after its liquidation preference is satisfied.
type PreferenceType string

const (
	PreferenceNonParticipating    PreferenceType = "non-participating"
	PreferenceParticipating       PreferenceType = "participating"
	PreferenceParticipatingCapped PreferenceType = "participating-with-cap"
)

// String returns the string representation of PreferenceType.
func (p PreferenceType) String() string {
	return string(p)
}

// IsValid checks if the preference type is a valid value.
func (p PreferenceType) IsValid() bool {
	switch p {
	case PreferenceNonParticipating, PreferenceParticipating, PreferenceParticipatingCapped:
		return true
	}
	return false
}

// DividendType describes whether unpaid dividends accumulate across periods.
type DividendType string

const (
	DividendCumulative    DividendType = "cumulative"
	DividendNonCumulative DividendType = "non-cumulative"
)

// String returns the string representation of DividendType.
func (d DividendType) String() string {
	return string(d)
}

// IsValid checks if the dividend type is a valid value.
func (d DividendType) IsValid() bool {
	return d == DividendCumulative || d == DividendNonCumulative
}

// ShareClass represents one class of stock on a cap table.
// Corresponds to share_classes table in PostgreSQL.
type ShareClass struct {
	ID                  string          // unique within a valuation, shared namespace with option grants
	Name                string          // display name, e.g. "Series A Preferred"
	Type                ShareType       // common | preferred
	SharesOutstanding   decimal.Decimal // issued shares
	PricePerShare       decimal.Decimal // original issue price per share
	RoundDate           int64           // issue date, Unix ms UTC; 0 when unknown
	Seniority           int             // liquidation rank; higher ranks are paid first, equal ranks are pari passu
	LiquidationMultiple decimal.Decimal // preference as a multiple of invested capital (preferred only)
	PreferenceType      PreferenceType  // residual participation mode (preferred only)
	ParticipationCap    decimal.Decimal // cap on total proceeds as a multiple of invested capital; zero means uncapped
	ConversionRatio     decimal.Decimal // common shares received per preferred share on conversion
	DividendsDeclared   bool            // class carries a dividend right
	DividendRate        decimal.Decimal // annual rate as a fraction of invested capital, e.g. 0.08
	DividendType        DividendType    // cumulative | non-cumulative
	Compounding         bool            // cumulative dividends compound annually (PIK)
}

// IsPreferred reports whether the class holds a liquidation preference.
func (c *ShareClass) IsPreferred() bool {
	return c.Type == ShareTypePreferred
}
