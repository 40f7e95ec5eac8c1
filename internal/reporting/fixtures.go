package reporting

import (
	"context"

	"github.com/guregu/null/v6"

	"fundamentals-lab/internal/domain"
	"fundamentals-lab/internal/storage"
)

// LoadDemoDatasets populates a store with demo companies so the report
// binary runs without any ingested data. Figures are rounded published
// annuals in millions.
func LoadDemoDatasets(ctx context.Context, store storage.DatasetStore) error {
	datasets := []*domain.CompanyDataset{
		{
			Ticker:   "AAPL",
			Exchange: "NASDAQ",
			Rows: []domain.FinancialRecord{
				{Year: 2021, Revenue: null.FloatFrom(365817), OperatingIncome: null.FloatFrom(108949), NetIncome: null.FloatFrom(94680), SharesOutstanding: null.FloatFrom(16701)},
				{Year: 2022, Revenue: null.FloatFrom(394328), OperatingIncome: null.FloatFrom(119437), NetIncome: null.FloatFrom(99803), SharesOutstanding: null.FloatFrom(16326)},
				{Year: 2023, Revenue: null.FloatFrom(383285), OperatingIncome: null.FloatFrom(114301), NetIncome: null.FloatFrom(96995), SharesOutstanding: null.FloatFrom(15744)},
			},
		},
		{
			Ticker:   "SAP",
			Exchange: "XETRA",
			Rows: []domain.FinancialRecord{
				{Year: 2021, Revenue: null.FloatFrom(27842), OperatingIncome: null.FloatFrom(4659), NetIncome: null.FloatFrom(5376), SharesOutstanding: null.FloatFrom(1191)},
				{Year: 2022, Revenue: null.FloatFrom(30871), OperatingIncome: null.FloatFrom(6066), NetIncome: null.FloatFrom(2284), SharesOutstanding: null.FloatFrom(1178)},
				{Year: 2023, Revenue: null.FloatFrom(31207), OperatingIncome: null.FloatFrom(5790), NetIncome: null.FloatFrom(6143), SharesOutstanding: null.FloatFrom(1166)},
			},
		},
		{
			// A sparse dataset: missing fields and no share counts, the
			// shape free-form spreadsheet exports typically produce.
			Ticker:   "DEMO",
			Exchange: "OTC",
			Rows: []domain.FinancialRecord{
				{Year: 2022, Revenue: null.FloatFrom(120)},
				{Year: 2023, Revenue: null.FloatFrom(150), NetIncome: null.FloatFrom(12)},
			},
		},
	}

	for _, ds := range datasets {
		if err := store.Save(ctx, ds); err != nil {
			return err
		}
	}
	return nil
}
