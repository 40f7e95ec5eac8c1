package ingestion

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/normalization"
	"fundamentals-lab/internal/observability"
	"fundamentals-lab/internal/storage"
)

// Result summarizes one ingested file.
type Result struct {
	RunID       string `json:"runId"`
	Key         string `json:"key"`
	RowsRead    int    `json:"rowsRead"`
	RecordsKept int    `json:"recordsKept"`
	RowsDropped int    `json:"rowsDropped"`
}

// Runner reads source files, normalizes them and saves company datasets.
type Runner struct {
	store       storage.DatasetStore
	mirror      storage.DatasetStore
	concurrency int
	logger      *log.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Store       storage.DatasetStore
	Mirror      storage.DatasetStore // optional secondary sink, receives every saved dataset
	Concurrency int                  // Default: 4 - parallel files in IngestDir
	Logger      *log.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		store:       opts.Store,
		mirror:      opts.Mirror,
		concurrency: concurrency,
		logger:      logger,
	}
}

// IngestFile reads one source file, normalizes it and saves the dataset
// under the company's canonical key.
func (r *Runner) IngestFile(ctx context.Context, path, exchange, ticker string) (*Result, error) {
	if strings.TrimSpace(exchange) == "" || strings.TrimSpace(ticker) == "" {
		return nil, storage.ErrInvalidInput
	}

	runID := uuid.New().String()
	start := time.Now()
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

	raw, err := ReadRows(path)
	if err != nil {
		observability.RecordIngestionError(format, "read")
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	records := normalization.Normalize(raw)

	ds := &domain.CompanyDataset{
		Ticker:   strings.ToUpper(strings.TrimSpace(ticker)),
		Exchange: strings.ToUpper(strings.TrimSpace(exchange)),
		Rows:     records,
	}

	if err := r.store.Save(ctx, ds); err != nil {
		observability.RecordIngestionError(format, "store")
		return nil, fmt.Errorf("save %s: %w", ds.Key(), err)
	}
	if r.mirror != nil {
		if err := r.mirror.Save(ctx, ds); err != nil {
			observability.RecordIngestionError(format, "mirror")
			return nil, fmt.Errorf("mirror %s: %w", ds.Key(), err)
		}
	}

	result := &Result{
		RunID:       runID,
		Key:         ds.Key(),
		RowsRead:    len(raw),
		RecordsKept: len(records),
		RowsDropped: len(raw) - len(records),
	}

	observability.RecordFileIngested(format)
	observability.RecordRowsNormalized(result.RecordsKept)
	observability.RecordRowsDropped(result.RowsDropped)
	observability.RecordIngestDuration(time.Since(start).Seconds())

	r.logger.Printf("ingested %s: run=%s rows=%d kept=%d dropped=%d",
		result.Key, result.RunID, result.RowsRead, result.RecordsKept, result.RowsDropped)
	return result, nil
}

// IngestDir ingests every supported file in dir. File names carry company
// identity as {EXCHANGE}_{TICKER}.ext; files that don't match are skipped
// with a log line. Per-file failures are collected rather than aborting the
// batch.
func (r *Runner) IngestDir(ctx context.Context, dir string) ([]*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	var mu sync.Mutex
	var results []*Result
	var failed []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".xlsx", ".csv", ".json":
		default:
			continue
		}

		exchange, ticker, ok := ParseFilename(name)
		if !ok {
			r.logger.Printf("skipping %s: name does not match {EXCHANGE}_{TICKER}", name)
			continue
		}

		path := filepath.Join(dir, name)
		g.Go(func() error {
			result, err := r.IngestFile(ctx, path, exchange, ticker)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Printf("ingest %s failed: %v", name, err)
				failed = append(failed, name)
				return nil
			}
			results = append(results, result)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Key < results[j].Key
	})

	if len(failed) > 0 {
		sort.Strings(failed)
		return results, fmt.Errorf("%d of %d files failed: %s",
			len(failed), len(failed)+len(results), strings.Join(failed, ", "))
	}
	return results, nil
}

// ParseFilename splits {EXCHANGE}_{TICKER}.ext into its identity parts.
func ParseFilename(name string) (exchange, ticker string, ok bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.SplitN(base, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
