package domain

import "time"

// ValuationSnapshot bundles point-in-time per-share valuation inputs from
// the market-data provider. This path zero-defaults: unresolved fields are
// 0, never null (contrast with FinancialRecord).
type ValuationSnapshot struct {
	Price              float64 `json:"price"`
	FairValueEV        float64 `json:"fairValueEV"`
	FairValuePE        float64 `json:"fairValuePE"`
	FairValuePS        float64 `json:"fairValuePS"`
	BookValuePerShare  float64 `json:"bookValuePerShare"`
	GrossMarginPct     float64 `json:"grossMarginPct"`
	OperatingMarginPct float64 `json:"operatingMarginPct"`
	NetMarginPct       float64 `json:"netMarginPct"`
}

// SnapshotRecord binds a ValuationSnapshot to a company and fetch time.
// Corresponds to the valuation_snapshots table in ClickHouse.
type SnapshotRecord struct {
	Ticker    string            `json:"ticker"`
	Exchange  string            `json:"exchange"`
	FetchedAt time.Time         `json:"fetchedAt"`
	Snapshot  ValuationSnapshot `json:"snapshot"`
}

// PriceStats summarizes warehouse snapshot prices over a time window.
type PriceStats struct {
	Count    uint64  `json:"count"`
	AvgPrice float64 `json:"avgPrice"`
	MinPrice float64 `json:"minPrice"`
	MaxPrice float64 `json:"maxPrice"`
}
