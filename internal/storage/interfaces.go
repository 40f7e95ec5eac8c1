package storage

import (
	"context"
	"time"

	"fundamentals-lab/internal/domain"
)

// DatasetStore provides access to normalized company datasets.
type DatasetStore interface {
	// Save stores a dataset under its {EXCHANGE}_{TICKER} key, replacing
	// any previous rows for that company.
	Save(ctx context.Context, ds *domain.CompanyDataset) error

	// Get retrieves a dataset by exchange and ticker. Returns ErrNotFound if not exists.
	Get(ctx context.Context, exchange, ticker string) (*domain.CompanyDataset, error)

	// List retrieves all datasets, ordered by key ASC.
	List(ctx context.Context) ([]*domain.CompanyDataset, error)

	// Keys retrieves all dataset keys, ordered ASC.
	Keys(ctx context.Context) ([]string, error)
}

// SnapshotStore provides access to valuation_snapshots storage.
type SnapshotStore interface {
	// Append adds snapshot records. The warehouse is append-only; rows are
	// never updated in place.
	Append(ctx context.Context, records []*domain.SnapshotRecord) error

	// Latest retrieves the most recent snapshot for a company.
	// Returns ErrNotFound if none exists.
	Latest(ctx context.Context, exchange, ticker string) (*domain.SnapshotRecord, error)

	// Range retrieves snapshots for a company within [start, end] (inclusive),
	// ordered by fetched_at ASC.
	Range(ctx context.Context, exchange, ticker string, start, end time.Time) ([]*domain.SnapshotRecord, error)

	// PriceStats computes count/avg/min/max over the stored prices of a
	// company, restricted to snapshots fetched at or after since.
	// Returns ErrNotFound if the window holds no snapshots.
	PriceStats(ctx context.Context, exchange, ticker string, since time.Time) (*domain.PriceStats, error)
}
