package reporting

import (
	"fmt"
	"strings"
	"time"

	"captable-lab/internal/money"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Breakpoint Analysis Report\n\n")
	sb.WriteString(fmt.Sprintf("Run: %s (%s)\n\n", r.RunRef, r.RunID))
	sb.WriteString(fmt.Sprintf("Valuation: %s | Company: %s\n\n", r.ValuationID, r.CompanyID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Schedule
	sb.WriteString("## Breakpoint Schedule\n\n")
	if len(r.Schedule) > 0 {
		sb.WriteString("| # | Type | Exit Value | Affected | Method | Explanation |\n")
		sb.WriteString("|---|------|-----------|----------|--------|-------------|\n")
		for _, row := range r.Schedule {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s |\n",
				row.PriorityOrder, row.Type, row.ExitValue,
				strings.Join(row.AffectedSecurities, ", "),
				row.CalculationMethod, row.Explanation))
		}
		sb.WriteString("\n")

		sb.WriteString("### Derivations\n\n")
		for _, row := range r.Schedule {
			if row.Derivation == "" && len(row.Dependencies) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("- **%d. %s at %s**: %s", row.PriorityOrder, row.Type, row.ExitValue, row.Derivation))
			if len(row.Dependencies) > 0 {
				sb.WriteString(fmt.Sprintf(" (depends on: %s)", strings.Join(row.Dependencies, ", ")))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No breakpoints. The structure pays out pro rata from the first dollar.\n\n")
	}

	// Counts
	sb.WriteString("## Breakpoint Counts\n\n")
	sb.WriteString("| Type | Count |\n")
	sb.WriteString("|------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Liquidation preference | %d |\n", r.Counts.LiquidationPreference))
	sb.WriteString(fmt.Sprintf("| Pro-rata threshold | %d |\n", r.Counts.ProRata))
	sb.WriteString(fmt.Sprintf("| Option exercise | %d |\n", r.Counts.OptionExercise))
	sb.WriteString(fmt.Sprintf("| Participation cap | %d |\n", r.Counts.ParticipationCap))
	sb.WriteString(fmt.Sprintf("| Conversion | %d |\n", r.Counts.Conversion))
	sb.WriteString(fmt.Sprintf("| **Total** | %d |\n", r.Counts.Total()))
	sb.WriteString("\n")

	// Validation
	sb.WriteString("## Validation\n\n")
	if len(r.Validations) > 0 {
		sb.WriteString("| Check | Severity | Status | Message |\n")
		sb.WriteString("|-------|----------|--------|--------|\n")
		for _, v := range r.Validations {
			msg := v.Message
			if len(v.AffectedSecurities) > 0 {
				msg = fmt.Sprintf("%s [%s]", msg, strings.Join(v.AffectedSecurities, ", "))
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", v.Check, v.Severity, v.Status, msg))
		}
		sb.WriteString("\n")

		if n := r.FailureCount(); n > 0 {
			sb.WriteString(fmt.Sprintf("**%d check(s) failed.** The schedule above should not be relied on until the inputs are corrected.\n\n", n))
		} else {
			sb.WriteString("**All checks passed.**\n\n")
		}
	} else {
		sb.WriteString("No validation checks recorded.\n\n")
	}

	// Critical values
	sb.WriteString("## Critical Values\n\n")
	if len(r.CriticalValues) > 0 {
		sb.WriteString("| Exit Value | Triggers | Affected |\n")
		sb.WriteString("|-----------|----------|----------|\n")
		for _, cv := range r.CriticalValues {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
				cv.ExitValue,
				strings.Join(cv.Triggers, "; "),
				strings.Join(cv.AffectedSecurities, ", ")))
		}
	} else {
		sb.WriteString("No coincident events.\n")
	}
	sb.WriteString("\n")

	// Audit summary
	sb.WriteString("## Audit Summary\n\n")
	sb.WriteString("| Quantity | Value |\n")
	sb.WriteString("|----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total invested capital | %s |\n", money.USD(r.Audit.TotalInvestedCapital)))
	sb.WriteString(fmt.Sprintf("| Total liquidation preference | %s |\n", money.USD(r.Audit.TotalLiquidationPreference)))
	sb.WriteString(fmt.Sprintf("| Accrued dividends | %s |\n", money.USD(r.Audit.TotalAccruedDividends)))
	sb.WriteString(fmt.Sprintf("| Common shares | %s |\n", money.Quantity(r.Audit.CommonShares)))
	sb.WriteString(fmt.Sprintf("| Preferred shares | %s |\n", money.Quantity(r.Audit.PreferredShares)))
	sb.WriteString(fmt.Sprintf("| Preferred as-converted | %s |\n", money.Quantity(r.Audit.PreferredAsConverted)))
	sb.WriteString(fmt.Sprintf("| Options outstanding | %s |\n", money.Quantity(r.Audit.OptionsOutstanding)))
	sb.WriteString(fmt.Sprintf("| Fully diluted shares | %s |\n", money.Quantity(r.Audit.FullyDilutedShares)))
	sb.WriteString(fmt.Sprintf("| Seniority tiers | %d |\n", r.Audit.SeniorityTiers))
	sb.WriteString("\n")
	if len(r.Audit.Notes) > 0 {
		for _, note := range r.Audit.Notes {
			sb.WriteString(fmt.Sprintf("- %s\n", note))
		}
		sb.WriteString("\n")
	}

	// Performance
	sb.WriteString("## Performance\n\n")
	sb.WriteString(fmt.Sprintf("Sweep iterations: %d | Probe evaluations: %d | Elapsed: %dus\n",
		r.Performance.SweepIterations, r.Performance.ProbeEvaluations, r.Performance.ElapsedMicros))

	return sb.String()
}
