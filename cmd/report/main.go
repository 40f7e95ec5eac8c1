// Package main renders valuation reports (Markdown, CSV, HTML) for one or
// all stored companies.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"fundamentals-lab/internal/reporting"
	"fundamentals-lab/internal/storage"
	filestore "fundamentals-lab/internal/storage/file"
	"fundamentals-lab/internal/storage/memory"
	"fundamentals-lab/internal/storage/migrations"
	pgstore "fundamentals-lab/internal/storage/postgres"
)

func main() {
	// Load .env file if exists; system env vars take precedence.
	_ = godotenv.Load()

	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	ticker := flag.String("ticker", "", "Ticker symbol of the company to report on")
	exchange := flag.String("exchange", "", "Exchange code of the company to report on")
	all := flag.Bool("all", false, "Report on every stored company")
	multiple := flag.Float64("multiple", 15, "Target earnings multiple")
	dataDir := flag.String("data-dir", envOr("DATA_DIR", "data"), "Directory of file-store datasets")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (file store when empty)")
	useFixtures := flag.Bool("use-fixtures", false, "Use in-memory fixtures instead of stored datasets")

	flag.Parse()

	ctx := context.Background()

	if !*all && (*ticker == "" || *exchange == "") {
		fmt.Fprintln(os.Stderr, "Error: --ticker and --exchange are required unless --all is set")
		os.Exit(1)
	}

	store, cleanup, err := createStore(ctx, *dataDir, *postgresDSN, *useFixtures)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating store: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	generator := reporting.NewGenerator(store)
	if *useFixtures {
		// Fixed clock for deterministic demo output
		fixedTime := time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC)
		generator = generator.WithClock(func() time.Time { return fixedTime })
	}

	var reports []*reporting.Report
	if *all {
		reports, err = generator.GenerateAll(ctx, *multiple)
	} else {
		var report *reporting.Report
		report, err = generator.Generate(ctx, *exchange, *ticker, *multiple)
		reports = []*reporting.Report{report}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating reports: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	for _, report := range reports {
		if err := writeReport(*outputDir, report); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report for %s: %v\n", report.Key(), err)
			os.Exit(1)
		}
		fmt.Printf("Wrote VALUATION_%s.{md,html} and CSVs to %s/\n", report.Key(), *outputDir)
	}
}

// writeReport renders one report in every format.
func writeReport(dir string, report *reporting.Report) error {
	key := report.Key()

	markdown := reporting.RenderMarkdown(report)
	if err := writeFile(dir, "VALUATION_"+key+".md", markdown); err != nil {
		return err
	}

	html, err := reporting.RenderHTML(report)
	if err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	if err := writeFile(dir, "VALUATION_"+key+".html", html); err != nil {
		return err
	}

	if err := writeFile(dir, "GROWTH_"+key+".csv", reporting.RenderGrowthCSV(report)); err != nil {
		return err
	}
	return writeFile(dir, "FAIRVALUE_"+key+".csv", reporting.RenderFairValueCSV(report))
}

func writeFile(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)
}

// createStore selects the dataset backend: in-memory fixtures with
// --use-fixtures, Postgres when a DSN is set, file store otherwise.
func createStore(ctx context.Context, dataDir, postgresDSN string, useFixtures bool) (storage.DatasetStore, func(), error) {
	if useFixtures {
		store := memory.NewDatasetStore()
		if err := reporting.LoadDemoDatasets(ctx, store); err != nil {
			return nil, nil, fmt.Errorf("load fixtures: %w", err)
		}
		return store, func() {}, nil
	}

	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		return pgstore.NewDatasetStore(pool), pool.Close, nil
	}

	store, err := filestore.NewDatasetStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("create file store: %w", err)
	}
	return store, func() {}, nil
}

// envOr returns the environment variable value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
