// Package main runs the capital structure analysis service:
// - HTTP API (continuous): on-demand breakpoint analysis, run lookups
// - WebSocket feed (continuous): analysis-completed events
// - Orchestrator (scheduled): re-analyzes every stored valuation
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"captable-lab/internal/orchestrator"
	"captable-lab/internal/reporting"
	"captable-lab/internal/server"
	"captable-lab/internal/storage"
	chstore "captable-lab/internal/storage/clickhouse"
	"captable-lab/internal/storage/memory"
	"captable-lab/internal/storage/migrations"
	pgstore "captable-lab/internal/storage/postgres"
)

// allStores holds all storage implementations.
type allStores struct {
	valuationStore  storage.ValuationStore
	shareClassStore storage.ShareClassStore
	grantStore      storage.OptionGrantStore
	runStore        storage.AnalysisRunStore
	breakpointStore storage.BreakpointStore
	curveStore      storage.AllocationCurveStore
}

// service schedules orchestrator passes next to the HTTP API.
type service struct {
	stores          *allStores
	orch            *orchestrator.Orchestrator
	analyzeInterval time.Duration
	logger          *log.Logger

	mu          sync.Mutex
	lastPass    time.Time
	passRunning bool
	passes      int
}

func main() {
	// Env vars from .env seed the flag defaults; the file is optional.
	godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	outputDir := flag.String("output-dir", "output", "Output directory for report files (empty disables reports)")
	analyzeInterval := flag.Duration("analyze-interval", 1*time.Hour, "Stored-valuation re-analysis interval (0 disables)")
	curvePoints := flag.Int("curve-points", orchestrator.DefaultCurvePoints, "Allocation curve sample points per run")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	verbose := flag.Bool("verbose", false, "Verbose orchestrator logging")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	var reportGen *reporting.Generator
	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			logger.Fatalf("Failed to create output directory: %v", err)
		}
		reportGen = reporting.NewGenerator(*outputDir)
	}

	orch := orchestrator.New(orchestrator.Options{
		ValuationStore:  stores.valuationStore,
		ShareClassStore: stores.shareClassStore,
		GrantStore:      stores.grantStore,
		RunStore:        stores.runStore,
		BreakpointStore: stores.breakpointStore,
		CurveStore:      stores.curveStore,
		ReportGenerator: reportGen,
		CurvePoints:     *curvePoints,
		RecordMetrics:   true,
		Verbose:         *verbose,
	})

	svc := &service{
		stores:          stores,
		orch:            orch,
		analyzeInterval: *analyzeInterval,
		logger:          logger,
	}

	hub := server.NewHub(log.New(os.Stdout, "[ws] ", log.LstdFlags))
	api := server.New(server.Options{
		RunStore:        stores.runStore,
		BreakpointStore: stores.breakpointStore,
		Hub:             hub,
		Logger:          logger,
		RecordMetrics:   true,
	})

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: api.Router(),
	}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	go hub.Run(ctx)

	go func() {
		logger.Printf("Starting HTTP server on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("HTTP server error: %v", err)
			cancel()
		}
	}()

	err = svc.run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			valuationStore:  memory.NewValuationStore(),
			shareClassStore: memory.NewShareClassStore(),
			grantStore:      memory.NewOptionGrantStore(),
			runStore:        memory.NewAnalysisRunStore(),
			breakpointStore: memory.NewBreakpointStore(),
			curveStore:      memory.NewAllocationCurveStore(),
		}
		return stores, func() {}, nil
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

	stores := &allStores{
		// PostgreSQL stores (cap table inputs + run headers + schedules)
		valuationStore:  pgstore.NewValuationStore(pool),
		shareClassStore: pgstore.NewShareClassStore(pool),
		grantStore:      pgstore.NewOptionGrantStore(pool),
		runStore:        pgstore.NewAnalysisRunStore(pool),
		breakpointStore: pgstore.NewBreakpointStore(pool),

		// ClickHouse store (analytics)
		curveStore: chstore.NewAllocationCurveStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// run drives the scheduled re-analysis of stored valuations until ctx ends.
func (s *service) run(ctx context.Context) error {
	if s.analyzeInterval <= 0 {
		s.logger.Println("Scheduled analysis disabled, serving API only")
		<-ctx.Done()
		return ctx.Err()
	}

	s.logger.Printf("Starting analysis scheduler (interval: %v)...", s.analyzeInterval)

	// Run immediately on start
	s.runPass(ctx)

	ticker := time.NewTicker(s.analyzeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

// runPass executes one AnalyzeAll sweep over the stored valuations.
func (s *service) runPass(ctx context.Context) {
	s.mu.Lock()
	if s.passRunning {
		s.mu.Unlock()
		s.logger.Println("Analysis pass already running, skipping...")
		return
	}
	s.passRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.passRunning = false
		s.lastPass = time.Now()
		s.passes++
		s.mu.Unlock()
	}()

	s.logger.Println("Running analysis pass...")
	start := time.Now()

	batch, err := s.orch.AnalyzeAll(ctx)
	if err != nil {
		s.logger.Printf("Analysis pass error: %v", err)
		return
	}

	s.logger.Printf("Analysis pass completed in %v: %d analyzed, %d unchanged, %d errors",
		time.Since(start), batch.Completed, batch.Unchanged, len(batch.Errors))
	for _, e := range batch.Errors {
		s.logger.Printf("  %s", e)
	}
}
