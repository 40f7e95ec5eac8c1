package snapshot

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/metrics"
	"fundamentals-lab/internal/observability"
	"fundamentals-lab/internal/storage"
)

// Fetcher is the provider surface the service depends on. *Client
// implements it; tests substitute stubs.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, exchange, ticker string) (*domain.ValuationSnapshot, error)
	FetchKeyStatistics(ctx context.Context, exchange, ticker string) (*domain.ValuationSnapshot, error)
}

// ServiceOptions contains configuration for creating a Service.
type ServiceOptions struct {
	Fetcher Fetcher
	// Warehouse receives a SnapshotRecord per successful fetch when set.
	Warehouse storage.SnapshotStore
	// FetchTimeout bounds one provider call. Default: 15s.
	FetchTimeout time.Duration
	Logger       *log.Logger
}

// Service resolves valuation snapshots for the API and the refresh
// scheduler. Provider failure never reaches the caller: the REST endpoint
// is tried first, then the key-statistics scrape, and when both fail the
// service degrades to a zero-valued snapshot with blended fair value 0.
type Service struct {
	fetcher      Fetcher
	warehouse    storage.SnapshotStore
	fetchTimeout time.Duration
	logger       *log.Logger

	// prices holds the freshest stream tick per symbol.
	prices   map[string]QuoteUpdate
	pricesMu sync.RWMutex
}

// NewService creates a snapshot service.
func NewService(opts ServiceOptions) *Service {
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		fetcher:      opts.Fetcher,
		warehouse:    opts.Warehouse,
		fetchTimeout: timeout,
		logger:       logger,
		prices:       make(map[string]QuoteUpdate),
	}
}

// HandleQuote records a stream tick. Wired as the StreamClient handler.
func (s *Service) HandleQuote(update QuoteUpdate) {
	s.pricesMu.Lock()
	defer s.pricesMu.Unlock()
	if prev, ok := s.prices[update.Symbol]; ok && prev.At.After(update.At) {
		return
	}
	s.prices[update.Symbol] = update
}

// GetSnapshot resolves the current snapshot and blended fair value for one
// company. Never returns an error: total upstream failure degrades to a
// zero-valued snapshot and blended 0, which render as "no data" rather
// than failing the response.
func (s *Service) GetSnapshot(ctx context.Context, exchange, ticker string) (domain.ValuationSnapshot, float64) {
	snap := s.fetch(ctx, exchange, ticker)
	degraded := isZero(snap)

	// A stream tick can be fresher than the fetched quote.
	s.pricesMu.RLock()
	tick, ok := s.prices[ticker]
	s.pricesMu.RUnlock()
	if ok && tick.Price > 0 {
		snap.Price = tick.Price
	}

	blended := metrics.ComputeBlendedFairValue(snap)

	// Degraded fetches never reach the warehouse, even when a stream tick
	// overlays a price; a row with zeroed fair values would skew PriceStats.
	if s.warehouse != nil && !degraded {
		record := &domain.SnapshotRecord{
			Ticker:    ticker,
			Exchange:  exchange,
			FetchedAt: time.Now().UTC(),
			Snapshot:  snap,
		}
		if err := s.warehouse.Append(ctx, []*domain.SnapshotRecord{record}); err != nil {
			s.logger.Printf("warehouse append %s:%s failed: %v", exchange, ticker, err)
		} else {
			observability.RecordSnapshotsStored(1)
		}
	}

	return snap, blended
}

// fetch tries the REST endpoint, then the key-statistics scrape, then
// degrades to zeros.
func (s *Service) fetch(ctx context.Context, exchange, ticker string) domain.ValuationSnapshot {
	if s.fetcher == nil {
		return domain.ValuationSnapshot{}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	start := time.Now()
	snap, err := s.fetcher.FetchSnapshot(fetchCtx, exchange, ticker)
	if err == nil {
		observability.RecordSnapshotFetch("rest", "success", time.Since(start).Seconds())
		return *snap
	}
	observability.RecordSnapshotFetch("rest", "error", time.Since(start).Seconds())
	s.logger.Printf("snapshot fetch %s:%s failed, trying key statistics: %v", exchange, ticker, err)

	start = time.Now()
	snap, err = s.fetcher.FetchKeyStatistics(fetchCtx, exchange, ticker)
	if err == nil {
		observability.RecordSnapshotFetch("scrape", "success", time.Since(start).Seconds())
		return *snap
	}
	observability.RecordSnapshotFetch("scrape", "error", time.Since(start).Seconds())
	s.logger.Printf("key statistics %s:%s failed, degrading to zeros: %v", exchange, ticker, err)

	return domain.ValuationSnapshot{}
}

func isZero(snap domain.ValuationSnapshot) bool {
	return snap == domain.ValuationSnapshot{}
}

// historyWindow bounds the PriceStats aggregation of History.
const historyWindow = 7 * 24 * time.Hour

// History summarizes what the warehouse holds for one company: when the
// last snapshot was stored, and price statistics over the trailing week.
type History struct {
	LastFetchedAt time.Time          `json:"lastFetchedAt"`
	PriceStats    *domain.PriceStats `json:"priceStats"`
}

// History reads the warehouse for a company. Nil when no warehouse is
// configured or nothing is stored; read failures degrade to nil the same
// way fetch failures degrade to zeros. PriceStats stays nil when every
// stored snapshot is older than the window.
func (s *Service) History(ctx context.Context, exchange, ticker string) *History {
	if s.warehouse == nil {
		return nil
	}

	latest, err := s.warehouse.Latest(ctx, exchange, ticker)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Printf("warehouse latest %s:%s failed: %v", exchange, ticker, err)
		}
		return nil
	}
	h := &History{LastFetchedAt: latest.FetchedAt}

	stats, err := s.warehouse.PriceStats(ctx, exchange, ticker, time.Now().UTC().Add(-historyWindow))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Printf("warehouse price stats %s:%s failed: %v", exchange, ticker, err)
		}
		return h
	}
	h.PriceStats = stats
	return h
}
