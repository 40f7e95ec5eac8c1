// Package main ingests company fundamentals spreadsheets (XLSX, CSV or
// JSON) into the dataset store and rebuilds the catalog artifact.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"fundamentals-lab/internal/catalog"
	"fundamentals-lab/internal/ingestion"
	"fundamentals-lab/internal/observability"
	"fundamentals-lab/internal/storage"
	filestore "fundamentals-lab/internal/storage/file"
	"fundamentals-lab/internal/storage/migrations"
	pgstore "fundamentals-lab/internal/storage/postgres"
)

func main() {
	// Load .env file if exists; system env vars take precedence.
	_ = godotenv.Load()

	input := flag.String("input", "", "Source file or directory of {EXCHANGE}_{TICKER}.{xlsx,csv,json} files")
	ticker := flag.String("ticker", "", "Ticker symbol (required for single files not named {EXCHANGE}_{TICKER}.ext)")
	exchange := flag.String("exchange", "", "Exchange code (required for single files not named {EXCHANGE}_{TICKER}.ext)")
	dataDir := flag.String("data-dir", envOr("DATA_DIR", "data"), "Directory for file-store datasets and the catalog artifact")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (file store when empty)")
	concurrency := flag.Int("concurrency", 4, "Parallel files when ingesting a directory")
	noCatalog := flag.Bool("no-catalog", false, "Skip rebuilding the catalog artifact after ingestion")

	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if *input == "" {
		logger.Fatal("--input is required")
	}

	ctx := context.Background()

	store, mirror, cleanup, err := createStores(ctx, *dataDir, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Store:       store,
		Mirror:      mirror,
		Concurrency: *concurrency,
		Logger:      logger,
	})

	info, err := os.Stat(*input)
	if err != nil {
		logger.Fatalf("Cannot read --input: %v", err)
	}

	var results []*ingestion.Result
	var runErr error
	if info.IsDir() {
		results, runErr = runner.IngestDir(ctx, *input)
	} else {
		results, runErr = ingestOne(ctx, runner, *input, *exchange, *ticker, logger)
	}

	for _, result := range results {
		logger.Printf("%s: %d rows read, %d records kept, %d dropped (run %s)",
			result.Key, result.RowsRead, result.RecordsKept, result.RowsDropped, result.RunID)
	}

	if runErr != nil {
		logger.Fatalf("Ingestion failed: %v", runErr)
	}
	if len(results) == 0 {
		logger.Fatal("No files ingested")
	}

	if !*noCatalog {
		path := filepath.Join(*dataDir, "catalog.json")
		if err := rebuildCatalog(ctx, store, path); err != nil {
			logger.Fatalf("Catalog rebuild failed: %v", err)
		}
		logger.Printf("Catalog written to %s", path)
	}

	observability.MarkIngestSuccess(time.Now().Unix())
	logger.Printf("Done: %d datasets ingested", len(results))
}

// ingestOne ingests a single file. Identity comes from the flags, falling
// back to the {EXCHANGE}_{TICKER}.ext filename convention.
func ingestOne(ctx context.Context, runner *ingestion.Runner, path, exchange, ticker string, logger *log.Logger) ([]*ingestion.Result, error) {
	if exchange == "" || ticker == "" {
		ex, tk, ok := ingestion.ParseFilename(filepath.Base(path))
		if !ok {
			return nil, fmt.Errorf("--exchange and --ticker are required when the file is not named {EXCHANGE}_{TICKER}.ext")
		}
		if exchange == "" {
			exchange = ex
		}
		if ticker == "" {
			ticker = tk
		}
		logger.Printf("Identity from filename: %s:%s", exchange, ticker)
	}

	result, err := runner.IngestFile(ctx, path, exchange, ticker)
	if err != nil {
		return nil, err
	}
	return []*ingestion.Result{result}, nil
}

// createStores builds the primary dataset store and an optional mirror.
// With Postgres configured the database is the primary and the file store
// mirrors every dataset, so artifacts stay inspectable on disk.
func createStores(ctx context.Context, dataDir, postgresDSN string) (storage.DatasetStore, storage.DatasetStore, func(), error) {
	fileStore, err := filestore.NewDatasetStore(dataDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create file store: %w", err)
	}

	if postgresDSN == "" {
		return fileStore, nil, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
	}

	return pgstore.NewDatasetStore(pool), fileStore, pool.Close, nil
}

func rebuildCatalog(ctx context.Context, store storage.DatasetStore, path string) error {
	c, err := catalog.NewBuilder(store).Build(ctx)
	if err != nil {
		return err
	}
	return catalog.WriteFile(path, c)
}

// envOr returns the environment variable value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
