// Analyze command for the captable CLI.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"captable-lab/internal/reporting"
	"captable-lab/internal/waterfall"
)

var flagWrite bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <captable.yaml>",
	Short: "Derive the complete breakpoint structure of a cap table",
	Long: `Analyze reads a YAML cap-table document, derives its breakpoint
schedule and prints the markdown report to stdout. With --write the
report files (markdown, schedule CSV, allocation curve CSV) are written
to the output directory instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		analyzer, v, err := loadAnalyzer(args[0])
		if err != nil {
			return err
		}

		res := analyzer.AnalyzeCompleteBreakpointStructure()
		run := buildRun(v, analyzer.Structure(), res)

		if !flagWrite {
			report := reporting.Build(run, res, time.Now().UTC())
			fmt.Print(reporting.RenderMarkdown(report))
			return nil
		}

		eval := waterfall.NewEvaluator(analyzer.Structure())
		points := waterfall.SampleCurve(eval, run.RunID, curveLimit(analyzer.Structure(), res), cfg.CurvePoints)

		files, err := reporting.NewGenerator(outputDir()).Write(run, res, pointRefs(points))
		if err != nil {
			return err
		}

		fmt.Printf("Analysis completed (run %s):\n", run.RunRef)
		fmt.Printf("  Breakpoints:         %d\n", run.TotalBreakpoints)
		fmt.Printf("  Validation failures: %d\n", run.ValidationFailures)
		fmt.Printf("  - %s\n", files.Markdown)
		fmt.Printf("  - %s\n", files.ScheduleCSV)
		fmt.Printf("  - %s\n", files.CurveCSV)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&flagWrite, "write", false, "write report files instead of printing markdown")
}
