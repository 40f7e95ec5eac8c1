package metrics

import (
	"github.com/guregu/null/v6"

	"fundamentals-lab/internal/domain"
)

// Series names served to chart consumers. They match the record JSON field
// names so the dashboard can key both views the same way.
const (
	SeriesRevenue           = "revenue"
	SeriesOperatingIncome   = "operatingIncome"
	SeriesNetIncome         = "netIncome"
	SeriesSharesOutstanding = "sharesOutstanding"
)

// BuildSeries splits records into chart-ready per-metric series, years and
// values index-aligned with input order. Missing fields stay null in the
// value slices so charts can render gaps instead of zeros.
func BuildSeries(rows []domain.FinancialRecord) []domain.Series {
	years := make([]int, len(rows))
	revenue := make([]null.Float, len(rows))
	operating := make([]null.Float, len(rows))
	net := make([]null.Float, len(rows))
	shares := make([]null.Float, len(rows))

	for i, r := range rows {
		years[i] = r.Year
		revenue[i] = r.Revenue
		operating[i] = r.OperatingIncome
		net[i] = r.NetIncome
		shares[i] = r.SharesOutstanding
	}

	return []domain.Series{
		{Name: SeriesRevenue, Years: years, Values: revenue},
		{Name: SeriesOperatingIncome, Years: years, Values: operating},
		{Name: SeriesNetIncome, Years: years, Values: net},
		{Name: SeriesSharesOutstanding, Years: years, Values: shares},
	}
}
