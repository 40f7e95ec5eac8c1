package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/guregu/null/v6"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/storage"
)

func TestDatasetStore_SaveAndGet(t *testing.T) {
	store, err := NewDatasetStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDatasetStore failed: %v", err)
	}
	ctx := context.Background()

	ds := &domain.CompanyDataset{
		Ticker:   "AAPL",
		Exchange: "NASDAQ",
		Rows: []domain.FinancialRecord{
			{Year: 2022, Revenue: null.FloatFrom(100), NetIncome: null.FloatFrom(10)},
			{Year: 2023, Revenue: null.FloatFrom(150)},
		},
	}

	if err := store.Save(ctx, ds); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, "NASDAQ", "AAPL")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.Ticker != "AAPL" || got.Exchange != "NASDAQ" {
		t.Errorf("Identity mismatch: got %s/%s", got.Exchange, got.Ticker)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(got.Rows))
	}
	if !got.Rows[0].NetIncome.Valid || got.Rows[0].NetIncome.Float64 != 10 {
		t.Errorf("Expected net income 10, got %v", got.Rows[0].NetIncome)
	}
	// Nulls survive the round trip as nulls, not zeros
	if got.Rows[1].NetIncome.Valid {
		t.Errorf("Expected null net income, got %v", got.Rows[1].NetIncome)
	}
}

func TestDatasetStore_FileLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDatasetStore(dir)
	if err != nil {
		t.Fatalf("NewDatasetStore failed: %v", err)
	}
	ctx := context.Background()

	ds := &domain.CompanyDataset{Ticker: "sap", Exchange: "xetra"}
	if err := store.Save(ctx, ds); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// One file per company, named by canonical key
	data, err := os.ReadFile(filepath.Join(dir, "XETRA_SAP.json"))
	if err != nil {
		t.Fatalf("Expected XETRA_SAP.json on disk: %v", err)
	}
	if !strings.Contains(string(data), "\"ticker\"") {
		t.Errorf("Expected JSON body with ticker field, got %s", data)
	}
}

func TestDatasetStore_NotFound(t *testing.T) {
	store, err := NewDatasetStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDatasetStore failed: %v", err)
	}

	_, err = store.Get(context.Background(), "NYSE", "NONEXISTENT")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDatasetStore_SaveReplaces(t *testing.T) {
	store, err := NewDatasetStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDatasetStore failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, &domain.CompanyDataset{
		Ticker: "AAPL", Exchange: "NASDAQ",
		Rows: []domain.FinancialRecord{{Year: 2020}},
	}); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := store.Save(ctx, &domain.CompanyDataset{
		Ticker: "AAPL", Exchange: "NASDAQ",
		Rows: []domain.FinancialRecord{{Year: 2022}, {Year: 2023}},
	}); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	got, err := store.Get(ctx, "NASDAQ", "AAPL")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Rows) != 2 || got.Rows[0].Year != 2022 {
		t.Errorf("Expected replaced rows [2022 2023], got %+v", got.Rows)
	}
}

func TestDatasetStore_ListAndKeysOrdered(t *testing.T) {
	store, err := NewDatasetStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDatasetStore failed: %v", err)
	}
	ctx := context.Background()

	for _, ds := range []*domain.CompanyDataset{
		{Ticker: "SAP", Exchange: "XETRA"},
		{Ticker: "AAPL", Exchange: "NASDAQ"},
	} {
		if err := store.Save(ctx, ds); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "NASDAQ_AAPL" || keys[1] != "XETRA_SAP" {
		t.Errorf("Expected ordered keys [NASDAQ_AAPL XETRA_SAP], got %v", keys)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].Key() != "NASDAQ_AAPL" {
		t.Errorf("Expected ordered list starting with NASDAQ_AAPL, got %d entries", len(list))
	}
}

func TestDatasetStore_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDatasetStore(dir)
	if err != nil {
		t.Fatalf("NewDatasetStore failed: %v", err)
	}
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("notes"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := store.Save(ctx, &domain.CompanyDataset{Ticker: "AAPL", Exchange: "NASDAQ"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "NASDAQ_AAPL" {
		t.Errorf("Expected only NASDAQ_AAPL, got %v", keys)
	}
}

func TestDatasetStore_InvalidInput(t *testing.T) {
	store, err := NewDatasetStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDatasetStore failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Save(ctx, &domain.CompanyDataset{Ticker: "AAPL"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty exchange, got %v", err)
	}
	if err := store.Save(ctx, &domain.CompanyDataset{Ticker: "A/../B", Exchange: "NYSE"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for path separator in key, got %v", err)
	}
}
