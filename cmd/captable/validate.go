// Validate command for the captable CLI.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <captable.yaml>",
	Short: "Check a cap-table document and its derived schedule",
	Long: `Validate constructs the cap table, runs the full analysis and prints
every invariant check. The command fails when the document cannot be
constructed or any check fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		analyzer, v, err := loadAnalyzer(args[0])
		if err != nil {
			return err
		}

		res := analyzer.AnalyzeCompleteBreakpointStructure()

		fmt.Printf("Valuation %s: %d breakpoints, %d checks\n\n",
			v.ValuationID, len(res.Breakpoints), len(res.ValidationResults))
		for _, check := range res.ValidationResults {
			status := "PASS"
			if !check.Passed {
				status = "FAIL"
			}
			line := fmt.Sprintf("  [%s] %-18s %-8s %s", status, check.Check, check.Severity, check.Message)
			if len(check.AffectedSecurities) > 0 {
				line += " (" + strings.Join(check.AffectedSecurities, ", ") + ")"
			}
			fmt.Println(line)
		}

		if n := res.FailureCount(); n > 0 {
			return fmt.Errorf("%d check(s) failed", n)
		}
		fmt.Println("\nAll checks passed.")
		return nil
	},
}
