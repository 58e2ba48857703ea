package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"captable-lab/internal/domain"
)

// Generator writes report files for completed runs. Filenames carry the short
// base58 run ref so repeated analyses of the same input overwrite in place.
type Generator struct {
	outputDir string
	now       func() time.Time // injectable clock for deterministic output
}

// NewGenerator creates a report generator writing under outputDir.
func NewGenerator(outputDir string) *Generator {
	return &Generator{
		outputDir: outputDir,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WrittenFiles lists the artifacts of one Write call.
type WrittenFiles struct {
	Markdown    string
	ScheduleCSV string
	CurveCSV    string // empty when no curve points were supplied
}

// Write renders and persists the report artifacts for a run.
func (g *Generator) Write(run *domain.AnalysisRun, res *domain.AnalysisResult, curve []*domain.AllocationPoint) (*WrittenFiles, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	report := Build(run, res, g.now())

	files := &WrittenFiles{
		Markdown:    filepath.Join(g.outputDir, run.RunRef+"_report.md"),
		ScheduleCSV: filepath.Join(g.outputDir, run.RunRef+"_schedule.csv"),
	}

	if err := os.WriteFile(files.Markdown, []byte(RenderMarkdown(report)), 0o644); err != nil {
		return nil, fmt.Errorf("write markdown report: %w", err)
	}
	if err := os.WriteFile(files.ScheduleCSV, []byte(RenderScheduleCSV(res.Breakpoints)), 0o644); err != nil {
		return nil, fmt.Errorf("write schedule csv: %w", err)
	}

	if len(curve) > 0 {
		files.CurveCSV = filepath.Join(g.outputDir, run.RunRef+"_curve.csv")
		if err := os.WriteFile(files.CurveCSV, []byte(RenderCurveCSV(curve)), 0o644); err != nil {
			return nil, fmt.Errorf("write curve csv: %w", err)
		}
	}

	return files, nil
}
