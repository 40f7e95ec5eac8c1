package memory

import (
	"context"
	"sort"
	"sync"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/storage"
)

// DatasetStore is an in-memory implementation of storage.DatasetStore.
type DatasetStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CompanyDataset // keyed by {EXCHANGE}_{TICKER}
}

// NewDatasetStore creates a new in-memory dataset store.
func NewDatasetStore() *DatasetStore {
	return &DatasetStore{
		data: make(map[string]*domain.CompanyDataset),
	}
}

// copyDataset clones a dataset including its row slice, so callers cannot
// mutate stored state through returned pointers.
func copyDataset(ds *domain.CompanyDataset) *domain.CompanyDataset {
	clone := *ds
	clone.Rows = make([]domain.FinancialRecord, len(ds.Rows))
	copy(clone.Rows, ds.Rows)
	return &clone
}

// Save stores a dataset under its key, replacing any previous rows.
func (s *DatasetStore) Save(_ context.Context, ds *domain.CompanyDataset) error {
	if ds == nil || ds.Ticker == "" || ds.Exchange == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[ds.Key()] = copyDataset(ds)
	return nil
}

// Get retrieves a dataset by exchange and ticker. Returns ErrNotFound if not exists.
func (s *DatasetStore) Get(_ context.Context, exchange, ticker string) (*domain.CompanyDataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, exists := s.data[domain.DatasetKey(exchange, ticker)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyDataset(ds), nil
}

// List retrieves all datasets, ordered by key ASC.
func (s *DatasetStore) List(_ context.Context) ([]*domain.CompanyDataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.CompanyDataset, 0, len(s.data))
	for _, ds := range s.data {
		result = append(result, copyDataset(ds))
	}

	// Sort by key ASC
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key() < result[j].Key()
	})

	return result, nil
}

// Keys retrieves all dataset keys, ordered ASC.
func (s *DatasetStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys, nil
}

// Verify interface compliance at compile time.
var _ storage.DatasetStore = (*DatasetStore)(nil)
