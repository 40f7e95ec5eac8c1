package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v6"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/storage"
	"fundamentals-lab/internal/storage/memory"
)

var fixedTime = time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC)

func testGenerator(t *testing.T) *Generator {
	t.Helper()
	store := memory.NewDatasetStore()
	ds := &domain.CompanyDataset{
		Ticker:   "AAPL",
		Exchange: "NASDAQ",
		Rows: []domain.FinancialRecord{
			{Year: 2022, Revenue: null.FloatFrom(100), NetIncome: null.FloatFrom(10), SharesOutstanding: null.FloatFrom(5)},
			{Year: 2023, Revenue: null.FloatFrom(150), NetIncome: null.FloatFrom(20), SharesOutstanding: null.FloatFrom(5)},
		},
	}
	if err := store.Save(context.Background(), ds); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return NewGenerator(store).WithClock(func() time.Time { return fixedTime })
}

type stubSnapshotSource struct {
	snap    domain.ValuationSnapshot
	blended float64
}

func (s *stubSnapshotSource) GetSnapshot(context.Context, string, string) (domain.ValuationSnapshot, float64) {
	return s.snap, s.blended
}

func TestGenerator_Generate(t *testing.T) {
	g := testGenerator(t)

	r, err := g.Generate(context.Background(), "NASDAQ", "AAPL", 25)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if r.GeneratedAt != fixedTime {
		t.Errorf("Expected fixed clock time, got %v", r.GeneratedAt)
	}
	if len(r.Growth) != 1 {
		t.Fatalf("Expected 1 growth point, got %d", len(r.Growth))
	}
	// (150 - 100) / 100 = 0.5
	if !r.Growth[0].Growth.Valid || r.Growth[0].Growth.Float64 != 0.5 {
		t.Errorf("Expected growth 0.5, got %+v", r.Growth[0].Growth)
	}
	if len(r.FairValues) != 2 {
		t.Fatalf("Expected 2 fair value points, got %d", len(r.FairValues))
	}
	// 20 * 25 / 5 = 100
	if r.FairValues[1].FairValuePerShare.Float64 != 100 {
		t.Errorf("Expected fair value per share 100, got %+v", r.FairValues[1].FairValuePerShare)
	}
	if r.Snapshot != nil {
		t.Error("Expected no snapshot section without a snapshot source")
	}
}

func TestGenerator_GenerateNotFound(t *testing.T) {
	g := testGenerator(t)

	_, err := g.Generate(context.Background(), "NASDAQ", "NONEXISTENT", 25)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGenerator_SnapshotSection(t *testing.T) {
	g := testGenerator(t).WithSnapshots(&stubSnapshotSource{
		snap:    domain.ValuationSnapshot{Price: 180, FairValueEV: 200},
		blended: 100,
	})

	r, err := g.Generate(context.Background(), "NASDAQ", "AAPL", 25)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if r.Snapshot == nil || r.Snapshot.Price != 180 {
		t.Fatalf("Expected snapshot section, got %+v", r.Snapshot)
	}
	if r.BlendedFairValue != 100 {
		t.Errorf("Expected blended 100, got %f", r.BlendedFairValue)
	}
}

func TestGenerator_DegradedSnapshotOmitted(t *testing.T) {
	g := testGenerator(t).WithSnapshots(&stubSnapshotSource{})

	r, err := g.Generate(context.Background(), "NASDAQ", "AAPL", 25)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if r.Snapshot != nil {
		t.Error("Expected degraded snapshot to be omitted from the report")
	}
}

func TestGenerator_GenerateAll(t *testing.T) {
	store := memory.NewDatasetStore()
	ctx := context.Background()
	if err := LoadDemoDatasets(ctx, store); err != nil {
		t.Fatalf("LoadDemoDatasets failed: %v", err)
	}

	g := NewGenerator(store).WithClock(func() time.Time { return fixedTime })
	reports, err := g.GenerateAll(ctx, 20)
	if err != nil {
		t.Fatalf("GenerateAll failed: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("Expected 3 reports, got %d", len(reports))
	}
	// Key order from the store's List.
	if reports[0].Key() != "NASDAQ_AAPL" {
		t.Errorf("Expected NASDAQ_AAPL first, got %s", reports[0].Key())
	}
}

func TestRenderMarkdown(t *testing.T) {
	g := testGenerator(t)
	r, err := g.Generate(context.Background(), "NASDAQ", "AAPL", 25)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(r)

	for _, want := range []string{
		"# Valuation Report: AAPL (NASDAQ)",
		"| 2023 | 150.00 |",
		"| 2023 | 50.00% |",
		"| 2023 | 500.00 | 100.00 |",
		"Target P/E multiple: 25",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q", want)
		}
	}
	if strings.Contains(md, "Live Valuation") {
		t.Error("Markdown has live valuation section without a snapshot")
	}
}

func TestRenderMarkdown_NullCells(t *testing.T) {
	r := &Report{
		Ticker: "DEMO", Exchange: "OTC", GeneratedAt: fixedTime, TargetMultiple: 10,
		Rows:   []domain.FinancialRecord{{Year: 2023, Revenue: null.FloatFrom(150)}},
		Growth: []domain.GrowthPoint{{Year: 2023}},
	}

	md := RenderMarkdown(r)
	if !strings.Contains(md, "| 2023 | 150.00 | n/a | n/a | n/a |") {
		t.Errorf("Expected null record cells as n/a, got:\n%s", md)
	}
	if !strings.Contains(md, "| 2023 | n/a |") {
		t.Errorf("Expected null growth as n/a, got:\n%s", md)
	}
}

func TestRenderCSV(t *testing.T) {
	g := testGenerator(t)
	r, err := g.Generate(context.Background(), "NASDAQ", "AAPL", 25)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	growthCSV := RenderGrowthCSV(r)
	if !strings.HasPrefix(growthCSV, "year,growth\n") {
		t.Errorf("Unexpected growth CSV header: %q", growthCSV)
	}
	if !strings.Contains(growthCSV, "2023,0.500000\n") {
		t.Errorf("Growth CSV missing 2023 row: %q", growthCSV)
	}

	fvCSV := RenderFairValueCSV(r)
	if !strings.Contains(fvCSV, "2022,250.000000,50.000000\n") {
		t.Errorf("Fair value CSV missing 2022 row: %q", fvCSV)
	}
}

func TestRenderCSV_NullsAsEmptyCells(t *testing.T) {
	r := &Report{
		Growth:     []domain.GrowthPoint{{Year: 2023}},
		FairValues: []domain.FairValuePoint{{Year: 2023}},
	}

	if got := RenderGrowthCSV(r); !strings.Contains(got, "2023,\n") {
		t.Errorf("Expected empty growth cell, got %q", got)
	}
	if got := RenderFairValueCSV(r); !strings.Contains(got, "2023,,\n") {
		t.Errorf("Expected empty fair value cells, got %q", got)
	}
}

func TestRenderHTML(t *testing.T) {
	g := testGenerator(t)
	r, err := g.Generate(context.Background(), "NASDAQ", "AAPL", 25)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	html, err := RenderHTML(r)
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	if !strings.Contains(html, "<title>Valuation Report: AAPL (NASDAQ)</title>") {
		t.Error("HTML missing title")
	}
	// Pipe tables must come out as real tables, not literal pipes.
	if !strings.Contains(html, "<table>") {
		t.Error("HTML missing rendered table")
	}
}
