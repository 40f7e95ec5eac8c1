package domain

import "github.com/guregu/null/v6"

// GrowthPoint is the year-over-year revenue growth ratio for one year
// relative to the previous record (0.12 = 12%). Growth is null when either
// endpoint revenue is missing or the base revenue is zero.
type GrowthPoint struct {
	Year   int        `json:"year"`
	Growth null.Float `json:"growth"`
}

// FairValuePoint projects equity value from net income at a target
// price-to-earnings multiple. FairValuePerShare is null unless shares
// outstanding is present and non-zero.
type FairValuePoint struct {
	Year              int        `json:"year"`
	EquityValue       null.Float `json:"equityValue"`
	FairValuePerShare null.Float `json:"fairValuePerShare"`
}

// Series is a chart-ready view of one record field across years.
// Years and Values are index-aligned with the source records.
type Series struct {
	Name   string       `json:"name"`
	Years  []int        `json:"years"`
	Values []null.Float `json:"values"`
}

// GrowthSummary aggregates the valid growth ratios of one company.
// Mean/Min/Max are null when no ratio is valid; StdDev additionally
// requires at least two.
type GrowthSummary struct {
	Count  int        `json:"count"`
	Mean   null.Float `json:"mean"`
	StdDev null.Float `json:"stdDev"`
	Min    null.Float `json:"min"`
	Max    null.Float `json:"max"`
}
