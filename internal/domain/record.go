package domain

import (
	"fmt"
	"strings"

	"github.com/guregu/null/v6"
)

// FinancialRecord is one reported fiscal year for one company.
// Numeric fields are nullable: a missing or unparseable source cell stays
// null, never defaulted to zero.
type FinancialRecord struct {
	Year              int        `json:"year"`
	Revenue           null.Float `json:"revenue"`
	OperatingIncome   null.Float `json:"operatingIncome"`
	NetIncome         null.Float `json:"netIncome"`
	SharesOutstanding null.Float `json:"sharesOutstanding"`
}

// CompanyDataset is the persisted artifact for one company: identity plus
// records sorted ascending by year. Written by ingestion, read back by the
// server and the report generator. Year uniqueness is not enforced;
// duplicate years from bad source data pass through in source order.
type CompanyDataset struct {
	Ticker   string            `json:"ticker"`
	Exchange string            `json:"exchange"`
	Rows     []FinancialRecord `json:"rows"`
}

// Key returns the artifact key for this dataset.
func (d *CompanyDataset) Key() string {
	return DatasetKey(d.Exchange, d.Ticker)
}

// DatasetKey builds the canonical artifact key: {EXCHANGE}_{TICKER},
// upper-cased and underscore-joined.
func DatasetKey(exchange, ticker string) string {
	return fmt.Sprintf("%s_%s",
		strings.ToUpper(strings.TrimSpace(exchange)),
		strings.ToUpper(strings.TrimSpace(ticker)))
}

// Catalog is the static multi-company index artifact consumed directly by
// presentation layers.
type Catalog struct {
	Companies []*CompanyDataset `json:"companies"`
}
