package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
// It mirrors the warehouse semantics: rows are appended, never updated.
type SnapshotStore struct {
	mu   sync.RWMutex
	rows []*domain.SnapshotRecord
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Append adds snapshot records.
func (s *SnapshotStore) Append(_ context.Context, records []*domain.SnapshotRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r == nil || r.Ticker == "" || r.Exchange == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		recordCopy := *r
		s.rows = append(s.rows, &recordCopy)
	}
	return nil
}

// Latest retrieves the most recent snapshot for a company.
// Returns ErrNotFound if none exists.
func (s *SnapshotStore) Latest(_ context.Context, exchange, ticker string) (*domain.SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := domain.DatasetKey(exchange, ticker)
	var latest *domain.SnapshotRecord
	for _, r := range s.rows {
		if domain.DatasetKey(r.Exchange, r.Ticker) != key {
			continue
		}
		if latest == nil || r.FetchedAt.After(latest.FetchedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	recordCopy := *latest
	return &recordCopy, nil
}

// Range retrieves snapshots for a company within [start, end] (inclusive),
// ordered by fetched_at ASC.
func (s *SnapshotStore) Range(_ context.Context, exchange, ticker string, start, end time.Time) ([]*domain.SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := domain.DatasetKey(exchange, ticker)
	var result []*domain.SnapshotRecord
	for _, r := range s.rows {
		if domain.DatasetKey(r.Exchange, r.Ticker) != key {
			continue
		}
		if r.FetchedAt.Before(start) || r.FetchedAt.After(end) {
			continue
		}
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	// Sort by fetched_at ASC
	sort.Slice(result, func(i, j int) bool {
		return result[i].FetchedAt.Before(result[j].FetchedAt)
	})

	return result, nil
}

// PriceStats computes count/avg/min/max over the prices of a company's
// snapshots fetched at or after since. Returns ErrNotFound on an empty window.
func (s *SnapshotStore) PriceStats(_ context.Context, exchange, ticker string, since time.Time) (*domain.PriceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := domain.DatasetKey(exchange, ticker)
	stats := &domain.PriceStats{}
	var sum float64
	for _, r := range s.rows {
		if domain.DatasetKey(r.Exchange, r.Ticker) != key || r.FetchedAt.Before(since) {
			continue
		}
		price := r.Snapshot.Price
		if stats.Count == 0 {
			stats.MinPrice = price
			stats.MaxPrice = price
		} else {
			if price < stats.MinPrice {
				stats.MinPrice = price
			}
			if price > stats.MaxPrice {
				stats.MaxPrice = price
			}
		}
		sum += price
		stats.Count++
	}
	if stats.Count == 0 {
		return nil, storage.ErrNotFound
	}
	stats.AvgPrice = sum / float64(stats.Count)

	return stats, nil
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)
