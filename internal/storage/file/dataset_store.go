package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/storage"
)

// DatasetStore is a file-backed implementation of storage.DatasetStore.
// Each dataset lives in {dir}/{EXCHANGE}_{TICKER}.json so a data directory
// can be inspected and versioned without any tooling.
type DatasetStore struct {
	dir string
}

// NewDatasetStore creates a dataset store rooted at dir, creating the
// directory if needed.
func NewDatasetStore(dir string) (*DatasetStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &DatasetStore{dir: dir}, nil
}

func (s *DatasetStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Save stores a dataset under its key, replacing any previous file.
func (s *DatasetStore) Save(_ context.Context, ds *domain.CompanyDataset) error {
	if ds == nil || ds.Ticker == "" || ds.Exchange == "" {
		return storage.ErrInvalidInput
	}
	key := ds.Key()
	// Keys containing path separators would escape the data directory.
	if strings.ContainsAny(key, `/\`) {
		return storage.ErrInvalidInput
	}

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset %s: %w", key, err)
	}
	if err := os.WriteFile(s.path(key), data, 0644); err != nil {
		return fmt.Errorf("write dataset %s: %w", key, err)
	}
	return nil
}

// Get retrieves a dataset by exchange and ticker. Returns ErrNotFound if not exists.
func (s *DatasetStore) Get(_ context.Context, exchange, ticker string) (*domain.CompanyDataset, error) {
	key := domain.DatasetKey(exchange, ticker)
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read dataset %s: %w", key, err)
	}

	var ds domain.CompanyDataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", key, err)
	}
	return &ds, nil
}

// List retrieves all datasets, ordered by key ASC.
func (s *DatasetStore) List(ctx context.Context) ([]*domain.CompanyDataset, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.CompanyDataset, 0, len(keys))
	for _, key := range keys {
		data, err := os.ReadFile(s.path(key))
		if err != nil {
			return nil, fmt.Errorf("read dataset %s: %w", key, err)
		}
		var ds domain.CompanyDataset
		if err := json.Unmarshal(data, &ds); err != nil {
			return nil, fmt.Errorf("decode dataset %s: %w", key, err)
		}
		result = append(result, &ds)
	}
	return result, nil
}

// Keys retrieves all dataset keys, ordered ASC.
func (s *DatasetStore) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}

// Verify interface compliance at compile time.
var _ storage.DatasetStore = (*DatasetStore)(nil)
