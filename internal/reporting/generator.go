package reporting

import (
	"context"
	"time"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/metrics"
	"fundamentals-lab/internal/storage"
)

// SnapshotSource resolves a live snapshot and blended fair value for one
// company. snapshot.Service implements it.
type SnapshotSource interface {
	GetSnapshot(ctx context.Context, exchange, ticker string) (domain.ValuationSnapshot, float64)
}

// Generator produces reports from stored datasets.
type Generator struct {
	store     storage.DatasetStore
	snapshots SnapshotSource // optional
	now       func() time.Time
}

// NewGenerator creates a report generator.
func NewGenerator(store storage.DatasetStore) *Generator {
	return &Generator{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithSnapshots adds a live-valuation section to generated reports.
func (g *Generator) WithSnapshots(src SnapshotSource) *Generator {
	g.snapshots = src
	return g
}

// Generate builds the report for one company at the given target multiple.
// Returns storage.ErrNotFound when no dataset exists for the identity.
func (g *Generator) Generate(ctx context.Context, exchange, ticker string, targetMultiple float64) (*Report, error) {
	ds, err := g.store.Get(ctx, exchange, ticker)
	if err != nil {
		return nil, err
	}

	growth := metrics.ComputeGrowth(ds.Rows)

	report := &Report{
		Ticker:         ds.Ticker,
		Exchange:       ds.Exchange,
		GeneratedAt:    g.now(),
		TargetMultiple: targetMultiple,
		Rows:           ds.Rows,
		Growth:         growth,
		GrowthSummary:  metrics.SummarizeGrowth(growth),
		FairValues:     metrics.ComputeFairValues(ds.Rows, targetMultiple),
	}

	if g.snapshots != nil {
		snap, blended := g.snapshots.GetSnapshot(ctx, ds.Exchange, ds.Ticker)
		// A fully zeroed snapshot means the provider degraded; the report
		// omits the section rather than printing zeros as data.
		if snap != (domain.ValuationSnapshot{}) {
			report.Snapshot = &snap
			report.BlendedFairValue = blended
		}
	}

	return report, nil
}

// GenerateAll builds reports for every persisted company, in key order.
func (g *Generator) GenerateAll(ctx context.Context, targetMultiple float64) ([]*Report, error) {
	datasets, err := g.store.List(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]*Report, 0, len(datasets))
	for _, ds := range datasets {
		report, err := g.Generate(ctx, ds.Exchange, ds.Ticker, targetMultiple)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
