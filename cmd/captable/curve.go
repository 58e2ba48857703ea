// Curve command for the captable CLI.
package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"captable-lab/internal/reporting"
	"captable-lab/internal/waterfall"
)

var (
	flagCurvePoints int
	flagCurveLimit  string
)

var curveCmd = &cobra.Command{
	Use:   "curve <captable.yaml>",
	Short: "Sample the per-security allocation curve as CSV",
	Long: `Curve evaluates the exit-value waterfall on an even grid and prints
the per-security allocations as CSV. The grid runs from zero to the last
breakpoint plus a margin unless --limit overrides the upper bound.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		analyzer, v, err := loadAnalyzer(args[0])
		if err != nil {
			return err
		}

		res := analyzer.AnalyzeCompleteBreakpointStructure()
		run := buildRun(v, analyzer.Structure(), res)

		limit := curveLimit(analyzer.Structure(), res)
		if flagCurveLimit != "" {
			if limit, err = decimal.NewFromString(flagCurveLimit); err != nil {
				return fmt.Errorf("--limit: %w", err)
			}
		}

		points := flagCurvePoints
		if points <= 0 {
			points = cfg.CurvePoints
		}

		eval := waterfall.NewEvaluator(analyzer.Structure())
		curve := waterfall.SampleCurve(eval, run.RunID, limit, points)
		fmt.Print(reporting.RenderCurveCSV(pointRefs(curve)))
		return nil
	},
}

func init() {
	curveCmd.Flags().IntVar(&flagCurvePoints, "points", 0, "sample points (default: config curve_points)")
	curveCmd.Flags().StringVar(&flagCurveLimit, "limit", "", "upper exit value bound (default: last breakpoint plus margin)")
}
