// Package main runs the fundamentals API server:
// - HTTP API: company catalog, per-company analytics, live valuation
// - Catalog scheduler: rebuilds the catalog.json artifact on an interval
// - Snapshot scheduler: refreshes live valuations into the warehouse
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
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fundamentals-lab/internal/api"
	"fundamentals-lab/internal/catalog"
	"fundamentals-lab/internal/narrative"
	"fundamentals-lab/internal/observability"
	"fundamentals-lab/internal/snapshot"
	"fundamentals-lab/internal/storage"
	chstore "fundamentals-lab/internal/storage/clickhouse"
	filestore "fundamentals-lab/internal/storage/file"
	"fundamentals-lab/internal/storage/memory"
	"fundamentals-lab/internal/storage/migrations"
	pgstore "fundamentals-lab/internal/storage/postgres"
)

// Server holds the background schedulers' dependencies and state.
type Server struct {
	store            storage.DatasetStore
	snapshots        *snapshot.Service
	stream           *snapshot.StreamClient
	dataDir          string
	catalogInterval  time.Duration
	snapshotInterval time.Duration
	logger           *log.Logger

	mu             sync.Mutex
	catalogRunning bool
	refreshRunning bool
	subscribed     map[string]bool
}

func main() {
	// Load .env file if exists; system env vars take precedence.
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("SERVER_ADDR", ":8080"), "HTTP listen address")
	dataDir := flag.String("data-dir", envOr("DATA_DIR", "data"), "Directory for file-store datasets and the catalog artifact")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (file store when empty)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (in-memory warehouse when empty)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory dataset storage")
	multiple := flag.Float64("multiple", envFloat("TARGET_MULTIPLE", 15), "Default target earnings multiple")
	snapshotBaseURL := flag.String("snapshot-base-url", envOr("SNAPSHOT_BASE_URL", "https://query1.finance.yahoo.com"), "Market data provider base URL")
	snapshotAPIKey := flag.String("snapshot-api-key", os.Getenv("SNAPSHOT_API_KEY"), "Market data provider API key (optional)")
	streamEndpoint := flag.String("stream-endpoint", os.Getenv("STREAM_ENDPOINT"), "WebSocket quote stream endpoint (disabled when empty)")
	geminiAPIKey := flag.String("gemini-api-key", os.Getenv("GEMINI_API_KEY"), "Gemini API key for narrative generation (disabled when empty)")
	geminiModel := flag.String("gemini-model", os.Getenv("GEMINI_MODEL"), "Gemini model name (default when empty)")
	catalogInterval := flag.Duration("catalog-interval", 15*time.Minute, "Catalog rebuild interval")
	snapshotInterval := flag.Duration("snapshot-interval", 5*time.Minute, "Snapshot refresh interval")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores
	store, cleanup, err := createDatasetStore(ctx, *dataDir, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create dataset store: %v", err)
	}
	defer cleanup()

	warehouse, whCleanup, err := createSnapshotStore(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("Failed to create snapshot warehouse: %v", err)
	}
	defer whCleanup()

	// Live valuation
	snapshots := snapshot.NewService(snapshot.ServiceOptions{
		Fetcher: snapshot.NewClient(snapshot.ClientConfig{
			BaseURL: *snapshotBaseURL,
			APIKey:  *snapshotAPIKey,
			Timeout: 30 * time.Second,
		}),
		Warehouse: warehouse,
		Logger:    log.New(os.Stdout, "[snapshot] ", log.LstdFlags|log.Lshortfile),
	})

	var stream *snapshot.StreamClient
	if *streamEndpoint != "" {
		stream, err = snapshot.NewStreamClient(ctx, *streamEndpoint, nil, snapshots.HandleQuote)
		if err != nil {
			logger.Fatalf("Failed to connect quote stream: %v", err)
		}
		defer stream.Close()
		logger.Printf("Quote stream connected to %s", *streamEndpoint)
	}

	// Narrative
	var narratives *narrative.Service
	if *geminiAPIKey != "" {
		narratives = narrative.NewService(narrative.ServiceOptions{
			Provider: narrative.NewGeminiProvider(*geminiAPIKey, *geminiModel),
			Logger:   log.New(os.Stdout, "[narrative] ", log.LstdFlags|log.Lshortfile),
		})
		logger.Println("Narrative generation enabled")
	}

	server := &Server{
		store:            store,
		snapshots:        snapshots,
		stream:           stream,
		dataDir:          *dataDir,
		catalogInterval:  *catalogInterval,
		snapshotInterval: *snapshotInterval,
		logger:           logger,
		subscribed:       make(map[string]bool),
	}

	httpServer := api.NewServer(api.ServerOptions{
		Store:                 store,
		Snapshots:             snapshots,
		Narratives:            narratives,
		DefaultTargetMultiple: *multiple,
		Logger:                logger,
	}).HTTPServer(*addr)

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}

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

	go server.runCatalogScheduler(ctx)
	go server.runSnapshotScheduler(ctx)

	logger.Printf("Listening on %s", *addr)
	err = httpServer.ListenAndServe()
	done <- err

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createDatasetStore selects the dataset backend: memory with -use-memory,
// Postgres when a DSN is set, file store otherwise. Postgres migrations
// are applied on start.
func createDatasetStore(ctx context.Context, dataDir, postgresDSN string, useMemory bool) (storage.DatasetStore, func(), error) {
	if useMemory {
		return memory.NewDatasetStore(), func() {}, nil
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

// createSnapshotStore selects the warehouse backend: ClickHouse when a DSN
// is set (migrations applied on start), in-memory otherwise.
func createSnapshotStore(ctx context.Context, clickhouseDSN string) (storage.SnapshotStore, func(), error) {
	if clickhouseDSN == "" {
		return memory.NewSnapshotStore(), func() {}, nil
	}

	conn, err := migrations.RunClickhouse(ctx, clickhouseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("apply clickhouse migrations: %w", err)
	}
	return chstore.NewSnapshotStore(conn), func() { conn.Close() }, nil
}

// runCatalogScheduler rebuilds the catalog artifact on an interval.
func (s *Server) runCatalogScheduler(ctx context.Context) {
	s.logger.Printf("Starting catalog scheduler (interval: %v)...", s.catalogInterval)

	// Run immediately on start
	s.rebuildCatalog(ctx)

	ticker := time.NewTicker(s.catalogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.rebuildCatalog(ctx)
		}
	}
}

func (s *Server) rebuildCatalog(ctx context.Context) {
	s.mu.Lock()
	if s.catalogRunning {
		s.mu.Unlock()
		s.logger.Println("Catalog rebuild already running, skipping...")
		return
	}
	s.catalogRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.catalogRunning = false
		s.mu.Unlock()
	}()

	c, err := catalog.NewBuilder(s.store).Build(ctx)
	if err != nil {
		s.logger.Printf("Catalog build error: %v", err)
		return
	}

	path := filepath.Join(s.dataDir, "catalog.json")
	if err := catalog.WriteFile(path, c); err != nil {
		s.logger.Printf("Catalog write error: %v", err)
		return
	}
	s.logger.Printf("Catalog rebuilt: %d companies", len(c.Companies))
}

// runSnapshotScheduler refreshes the live valuation of every cataloged
// company on an interval, feeding the warehouse via the snapshot service.
func (s *Server) runSnapshotScheduler(ctx context.Context) {
	s.logger.Printf("Starting snapshot scheduler (interval: %v)...", s.snapshotInterval)

	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshSnapshots(ctx)
		}
	}
}

func (s *Server) refreshSnapshots(ctx context.Context) {
	s.mu.Lock()
	if s.refreshRunning {
		s.mu.Unlock()
		s.logger.Println("Snapshot refresh already running, skipping...")
		return
	}
	s.refreshRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refreshRunning = false
		s.mu.Unlock()
	}()

	datasets, err := s.store.List(ctx)
	if err != nil {
		s.logger.Printf("Snapshot refresh: list datasets failed: %v", err)
		return
	}

	start := time.Now()
	for _, ds := range datasets {
		if ctx.Err() != nil {
			return
		}
		s.subscribeStream(ds.Ticker)
		s.snapshots.GetSnapshot(ctx, ds.Exchange, ds.Ticker)
	}

	observability.MarkSnapshotSuccess(time.Now().Unix())
	s.logger.Printf("Snapshot refresh completed in %v: %d companies", time.Since(start), len(datasets))
}

// subscribeStream subscribes the quote stream to a ticker once.
func (s *Server) subscribeStream(ticker string) {
	if s.stream == nil {
		return
	}

	s.mu.Lock()
	seen := s.subscribed[ticker]
	s.subscribed[ticker] = true
	s.mu.Unlock()
	if seen {
		return
	}

	if err := s.stream.Subscribe(ticker); err != nil {
		s.logger.Printf("Stream subscribe %s failed: %v", ticker, err)
	}
}

// envOr returns the environment variable value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envFloat returns the environment variable parsed as a float or a fallback.
func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
