package captable

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"captable-lab/internal/domain"
)

// Document is the YAML cap-table file read by the CLI and the one-shot
// analyzer. Decimal and date fields are strings so the document keeps exact
// values; parsing happens at this boundary only.
type Document struct {
	ValuationID   string `yaml:"valuation_id"` // generated when empty
	CompanyID     string `yaml:"company_id"`   // generated when empty
	Name          string `yaml:"name"`
	ValuationDate string `yaml:"valuation_date"` // YYYY-MM-DD

	ShareClasses []DocumentShareClass `yaml:"share_classes"`
	OptionGrants []DocumentOptionGrant `yaml:"option_grants"`
}

// DocumentShareClass is one share class entry of a cap-table document.
type DocumentShareClass struct {
	ID                  string `yaml:"id"`
	Name                string `yaml:"name"`
	Type                string `yaml:"type"`
	SharesOutstanding   string `yaml:"shares_outstanding"`
	PricePerShare       string `yaml:"price_per_share"`
	RoundDate           string `yaml:"round_date"` // YYYY-MM-DD, optional
	Seniority           int    `yaml:"seniority"`
	LiquidationMultiple string `yaml:"liquidation_multiple"`
	PreferenceType      string `yaml:"preference_type"`
	ParticipationCap    string `yaml:"participation_cap"` // empty means uncapped
	ConversionRatio     string `yaml:"conversion_ratio"`
	DividendsDeclared   bool   `yaml:"dividends_declared"`
	DividendRate        string `yaml:"dividend_rate"`
	DividendType        string `yaml:"dividend_type"`
	Compounding         bool   `yaml:"compounding"`
}

// DocumentOptionGrant is one option pool entry of a cap-table document.
type DocumentOptionGrant struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	NumOptions    string `yaml:"num_options"`
	ExercisePrice string `yaml:"exercise_price"`
	Kind          string `yaml:"kind"`
}

// LoadDocument reads and parses a YAML cap-table document from disk.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document %s: %w", path, err)
	}
	return &doc, nil
}

// ToDomain converts the document into the domain records the engine and
// stores consume. Missing valuation and company identifiers are generated.
func (d *Document) ToDomain() (*domain.Valuation, []domain.ShareClass, []domain.OptionGrant, error) {
	valuationDate, err := parseDocDate("valuation_date", d.ValuationDate)
	if err != nil {
		return nil, nil, nil, err
	}

	v := &domain.Valuation{
		ValuationID:   d.ValuationID,
		CompanyID:     d.CompanyID,
		Name:          d.Name,
		ValuationDate: valuationDate,
	}
	if v.ValuationID == "" {
		v.ValuationID = uuid.NewString()
	}
	if v.CompanyID == "" {
		v.CompanyID = uuid.NewString()
	}

	classes := make([]domain.ShareClass, 0, len(d.ShareClasses))
	for i, dc := range d.ShareClasses {
		c, err := dc.toDomain()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("share_classes[%d]: %w", i, err)
		}
		classes = append(classes, c)
	}

	grants := make([]domain.OptionGrant, 0, len(d.OptionGrants))
	for i, dg := range d.OptionGrants {
		g, err := dg.toDomain()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("option_grants[%d]: %w", i, err)
		}
		grants = append(grants, g)
	}

	return v, classes, grants, nil
}

func (dc *DocumentShareClass) toDomain() (domain.ShareClass, error) {
	c := domain.ShareClass{
		ID:                dc.ID,
		Name:              dc.Name,
		Seniority:         dc.Seniority,
		DividendsDeclared: dc.DividendsDeclared,
		Compounding:       dc.Compounding,
	}

	var err error
	if c.Type, err = domain.ParseShareType(dc.Type); err != nil {
		return c, err
	}
	if c.SharesOutstanding, err = parseDocDecimal("shares_outstanding", dc.SharesOutstanding); err != nil {
		return c, err
	}
	if c.PricePerShare, err = parseDocDecimalDefault("price_per_share", dc.PricePerShare, decimal.Zero); err != nil {
		return c, err
	}
	if c.RoundDate, err = parseDocDate("round_date", dc.RoundDate); err != nil {
		return c, err
	}

	// Common classes leave the preference block empty.
	if c.Type == domain.ShareTypeCommon {
		c.ConversionRatio = decimal.NewFromInt(1)
		if dc.ConversionRatio != "" {
			if c.ConversionRatio, err = parseDocDecimal("conversion_ratio", dc.ConversionRatio); err != nil {
				return c, err
			}
		}
		return c, nil
	}

	if c.PreferenceType, err = domain.ParsePreferenceType(dc.PreferenceType); err != nil {
		return c, err
	}
	if c.LiquidationMultiple, err = parseDocDecimalDefault("liquidation_multiple", dc.LiquidationMultiple, decimal.NewFromInt(1)); err != nil {
		return c, err
	}
	if c.ParticipationCap, err = parseDocDecimalDefault("participation_cap", dc.ParticipationCap, decimal.Zero); err != nil {
		return c, err
	}
	if c.ConversionRatio, err = parseDocDecimalDefault("conversion_ratio", dc.ConversionRatio, decimal.NewFromInt(1)); err != nil {
		return c, err
	}
	if c.DividendRate, err = parseDocDecimalDefault("dividend_rate", dc.DividendRate, decimal.Zero); err != nil {
		return c, err
	}
	if dc.DividendType != "" {
		if c.DividendType, err = domain.ParseDividendType(dc.DividendType); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (dg *DocumentOptionGrant) toDomain() (domain.OptionGrant, error) {
	g := domain.OptionGrant{
		ID:   dg.ID,
		Name: dg.Name,
	}

	var err error
	if g.NumOptions, err = parseDocDecimal("num_options", dg.NumOptions); err != nil {
		return g, err
	}
	if g.ExercisePrice, err = parseDocDecimalDefault("exercise_price", dg.ExercisePrice, decimal.Zero); err != nil {
		return g, err
	}
	if g.Kind, err = domain.ParseGrantKind(dg.Kind); err != nil {
		return g, err
	}
	return g, nil
}

func parseDocDecimal(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%s: value required", field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func parseDocDecimalDefault(field, s string, def decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return parseDocDecimal(field, s)
}

// parseDocDate converts a YYYY-MM-DD document date to Unix ms UTC.
// Empty strings stay zero.
func parseDocDate(field, s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return t.UnixMilli(), nil
}
