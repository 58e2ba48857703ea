package captable

import (
	"os"
	"path/filepath"
	"testing"

	"captable-lab/internal/domain"
)

const sampleDocument = `
valuation_id: val-2026-001
company_id: co-acme
name: FY2026 409A
valuation_date: 2026-01-15
share_classes:
  - id: series-a
    name: Series A Preferred
    type: Preferred
    shares_outstanding: "1000000"
    price_per_share: "1.50"
    round_date: 2023-06-01
    seniority: 1
    preference_type: participating-with-cap
    participation_cap: "3"
    dividends_declared: true
    dividend_rate: "0.08"
    dividend_type: cumulative
    compounding: true
  - id: common
    name: Common Stock
    type: common
    shares_outstanding: "4000000"
option_grants:
  - id: pool-2024
    name: 2024 Plan
    num_options: "500000"
    exercise_price: "0.25"
    kind: option
`

func writeDocument(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "captable.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDocument(t *testing.T) {
	doc, err := LoadDocument(writeDocument(t, sampleDocument))
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}

	v, classes, grants, err := doc.ToDomain()
	if err != nil {
		t.Fatalf("ToDomain: %v", err)
	}

	if v.ValuationID != "val-2026-001" || v.CompanyID != "co-acme" {
		t.Errorf("unexpected valuation header: %+v", v)
	}
	if v.ValuationDate == 0 {
		t.Error("valuation date not parsed")
	}

	if len(classes) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(classes))
	}
	a := classes[0]
	if a.Type != domain.ShareTypePreferred {
		t.Errorf("type %q not folded to preferred", a.Type)
	}
	if a.PreferenceType != domain.PreferenceParticipatingCapped {
		t.Errorf("preference type = %v", a.PreferenceType)
	}
	if !a.LiquidationMultiple.Equal(dec("1")) {
		t.Errorf("liquidation multiple default = %v, want 1", a.LiquidationMultiple)
	}
	if !a.ParticipationCap.Equal(dec("3")) {
		t.Errorf("participation cap = %v, want 3", a.ParticipationCap)
	}
	if a.DividendType != domain.DividendCumulative || !a.Compounding {
		t.Errorf("dividend fields lost: %+v", a)
	}

	c := classes[1]
	if !c.ConversionRatio.Equal(dec("1")) {
		t.Errorf("common conversion ratio default = %v, want 1", c.ConversionRatio)
	}

	if len(grants) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(grants))
	}
	if grants[0].Kind != domain.GrantOption || !grants[0].NumOptions.Equal(dec("500000")) {
		t.Errorf("unexpected grant: %+v", grants[0])
	}
}

func TestDocumentGeneratesIdentifiers(t *testing.T) {
	doc, err := LoadDocument(writeDocument(t, `
share_classes:
  - id: common
    type: common
    shares_outstanding: "100"
`))
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}

	v, _, _, err := doc.ToDomain()
	if err != nil {
		t.Fatalf("ToDomain: %v", err)
	}
	if v.ValuationID == "" || v.CompanyID == "" {
		t.Error("expected generated identifiers")
	}
}

func TestDocumentRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown share type", `
share_classes:
  - id: x
    type: ordinary
    shares_outstanding: "100"
`},
		{"missing shares", `
share_classes:
  - id: x
    type: common
`},
		{"bad grant kind", `
share_classes:
  - id: common
    type: common
    shares_outstanding: "100"
option_grants:
  - id: g
    num_options: "10"
    kind: sar
`},
		{"bad date", `
valuation_date: 15-01-2026
share_classes:
  - id: common
    type: common
    shares_outstanding: "100"
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := LoadDocument(writeDocument(t, tt.body))
			if err != nil {
				t.Fatalf("LoadDocument: %v", err)
			}
			if _, _, _, err := doc.ToDomain(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
