// Package main provides the one-shot analysis entry point.
// Executes: load cap table → analyze → persist → report
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"captable-lab/internal/captable"
	"captable-lab/internal/orchestrator"
	"captable-lab/internal/reporting"
	"captable-lab/internal/storage"
	chstore "captable-lab/internal/storage/clickhouse"
	"captable-lab/internal/storage/memory"
	"captable-lab/internal/storage/migrations"
	pgstore "captable-lab/internal/storage/postgres"
)

func main() {
	godotenv.Load()

	file := flag.String("file", "", "YAML cap-table document to analyze")
	valuationID := flag.String("valuation-id", "", "Stored valuation to analyze (database mode)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	outputDir := flag.String("output-dir", "output", "Output directory for report files")
	curvePoints := flag.Int("curve-points", orchestrator.DefaultCurvePoints, "Allocation curve sample points")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	if (*file == "") == (*valuationID == "") {
		fmt.Fprintln(os.Stderr, "Exactly one of --file or --valuation-id is required")
		os.Exit(1)
	}

	useDB := *postgresDSN != "" && *clickhouseDSN != ""
	if *valuationID != "" && !useDB {
		fmt.Fprintln(os.Stderr, "--valuation-id requires --postgres-dsn and --clickhouse-dsn")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling analysis...\n", sig)
		cancel()
	}()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, useDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating stores: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	orch := orchestrator.New(orchestrator.Options{
		ValuationStore:  stores.valuations,
		ShareClassStore: stores.shareClasses,
		GrantStore:      stores.grants,
		RunStore:        stores.runs,
		BreakpointStore: stores.breakpoints,
		CurveStore:      stores.curve,
		ReportGenerator: reporting.NewGenerator(*outputDir),
		CurvePoints:     *curvePoints,
		Verbose:         *verbose,
	})

	target := *valuationID
	if *file != "" {
		target, err = importDocument(ctx, orch, *file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error importing %s: %v\n", *file, err)
			os.Exit(1)
		}
	}

	result, err := orch.AnalyzeValuation(ctx, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analysis error: %v\n", err)
		os.Exit(1)
	}

	if result.Unchanged {
		fmt.Printf("Valuation %s unchanged since run %s, nothing re-persisted\n",
			result.ValuationID, result.RunRef)
		return
	}

	fmt.Printf("Analysis completed (run %s):\n", result.RunRef)
	fmt.Printf("  Breakpoints:         %d\n", result.Breakpoints)
	fmt.Printf("  Validation failures: %d\n", result.ValidationFailures)
	fmt.Printf("  Curve points:        %d\n", result.CurvePoints)
	if result.Files != nil {
		fmt.Printf("  - %s\n", result.Files.Markdown)
		fmt.Printf("  - %s\n", result.Files.ScheduleCSV)
		fmt.Printf("  - %s\n", result.Files.CurveCSV)
	}
}

// importDocument loads the YAML cap table and stores it as a valuation.
// A cap table already imported under the same valuation id is reused.
func importDocument(ctx context.Context, orch *orchestrator.Orchestrator, path string) (string, error) {
	doc, err := captable.LoadDocument(path)
	if err != nil {
		return "", err
	}
	v, classes, grants, err := doc.ToDomain()
	if err != nil {
		return "", err
	}

	if err := orch.ImportValuation(ctx, v, classes, grants); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			fmt.Printf("Valuation %s already imported, analyzing stored cap table\n", v.ValuationID)
			return v.ValuationID, nil
		}
		return "", err
	}

	fmt.Printf("Imported valuation %s (%d classes, %d grants)\n",
		v.ValuationID, len(classes), len(grants))
	return v.ValuationID, nil
}

// analyzeStores holds the storage implementations of one invocation.
type analyzeStores struct {
	valuations   storage.ValuationStore
	shareClasses storage.ShareClassStore
	grants       storage.OptionGrantStore
	runs         storage.AnalysisRunStore
	breakpoints  storage.BreakpointStore
	curve        storage.AllocationCurveStore
}

// createStores creates memory stores for file mode, database stores otherwise.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useDB bool) (*analyzeStores, func(), error) {
	if !useDB {
		return &analyzeStores{
			valuations:   memory.NewValuationStore(),
			shareClasses: memory.NewShareClassStore(),
			grants:       memory.NewOptionGrantStore(),
			runs:         memory.NewAnalysisRunStore(),
			breakpoints:  memory.NewBreakpointStore(),
			curve:        memory.NewAllocationCurveStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &analyzeStores{
		valuations:   pgstore.NewValuationStore(pool),
		shareClasses: pgstore.NewShareClassStore(pool),
		grants:       pgstore.NewOptionGrantStore(pool),
		runs:         pgstore.NewAnalysisRunStore(pool),
		breakpoints:  pgstore.NewBreakpointStore(pool),
		curve:        chstore.NewAllocationCurveStore(chConn),
	}
	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}
