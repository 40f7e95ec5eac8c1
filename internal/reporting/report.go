package reporting

import (
	"time"

	"fundamentals-lab/internal/domain"
)

// Report is the rendered valuation view of one company: its stored
// records plus every derived metric at one target multiple.
type Report struct {
	// Identity
	Ticker   string
	Exchange string

	// Metadata
	GeneratedAt    time.Time
	TargetMultiple float64

	// Stored records, ascending by year
	Rows []domain.FinancialRecord

	// Derived metrics
	Growth        []domain.GrowthPoint
	GrowthSummary domain.GrowthSummary
	FairValues    []domain.FairValuePoint

	// Live valuation, present only when a snapshot collaborator was
	// configured and produced a non-degraded snapshot
	Snapshot         *domain.ValuationSnapshot
	BlendedFairValue float64
}

// Key returns the company's dataset key.
func (r *Report) Key() string {
	return domain.DatasetKey(r.Exchange, r.Ticker)
}
