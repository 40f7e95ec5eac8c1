// Package catalog builds the static multi-company index artifact consumed
// directly by presentation layers.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/storage"
)

// Builder assembles a catalog from the dataset store.
type Builder struct {
	store storage.DatasetStore
}

// NewBuilder creates a catalog builder.
func NewBuilder(store storage.DatasetStore) *Builder {
	return &Builder{store: store}
}

// Build lists every persisted dataset into one catalog, sorted by key.
func (b *Builder) Build(ctx context.Context) (*domain.Catalog, error) {
	datasets, err := b.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	sort.Slice(datasets, func(i, j int) bool {
		return datasets[i].Key() < datasets[j].Key()
	})

	return &domain.Catalog{Companies: datasets}, nil
}

// WriteFile persists the catalog as an indented JSON artifact.
func WriteFile(path string, c *domain.Catalog) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create catalog dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}
