package domain

import "github.com/shopspring/decimal"

// GrantKind distinguishes instrument flavors inside the option pool.
type GrantKind string

const (
	GrantOption  GrantKind = "option"
	GrantWarrant GrantKind = "warrant"
	GrantRSU     GrantKind = "rsu"
)

// String returns the string representation of GrantKind.
func (k GrantKind) String() string {
	return string(k)
}

// IsValid checks if the grant kind is a valid value.
func (k GrantKind) IsValid() bool {
	switch k {
	case GrantOption, GrantWarrant, GrantRSU:
		return true
	}
	return false
}

// OptionGrant represents a pool of identical options or warrants on common stock.
// RSUs are modeled as zero-strike grants. Corresponds to option_grants table
// in PostgreSQL.
type OptionGrant struct {
	ID            string          // unique within a valuation, shared namespace with share classes
	Name          string          // display name, e.g. "2021 Employee Pool"
	NumOptions    decimal.Decimal // granted units
	ExercisePrice decimal.Decimal // strike per share; zero for RSUs
	Kind          GrantKind       // option | warrant | rsu
}
