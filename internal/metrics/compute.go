package metrics

import (
	"math"

	"github.com/guregu/null/v6"

	"fundamentals-lab/internal/domain"
)

// Blended fair value weights. The EV-multiple signal is capital-structure
// neutral and carries half the weight; the earnings- and sales-multiple
// signals split the rest. Fixed weights, not configuration.
const (
	blendWeightEV = 0.50
	blendWeightPE = 0.25
	blendWeightPS = 0.25
)

// ComputeGrowth calculates year-over-year revenue growth for each adjacent
// record pair. Records must be pre-sorted ascending by year (Normalize
// output order).
//
//	growth = (curr.revenue - prev.revenue) / prev.revenue
//
// Growth is null, never NaN/Inf and never an error, when either revenue is
// missing or the base revenue is zero: a zero base makes the ratio
// meaningless, and a propagated infinity would corrupt downstream charts.
// The result has exactly len(rows)-1 points (0 for empty or single-row
// input); the first point corresponds to the second record.
func ComputeGrowth(rows []domain.FinancialRecord) []domain.GrowthPoint {
	if len(rows) < 2 {
		return []domain.GrowthPoint{}
	}

	points := make([]domain.GrowthPoint, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		prev, curr := rows[i-1], rows[i]
		point := domain.GrowthPoint{Year: curr.Year}
		if prev.Revenue.Valid && curr.Revenue.Valid && prev.Revenue.Float64 != 0 {
			ratio := (curr.Revenue.Float64 - prev.Revenue.Float64) / prev.Revenue.Float64
			// Finite operands can still overflow the subtraction.
			if !math.IsNaN(ratio) && !math.IsInf(ratio, 0) {
				point.Growth = null.FloatFrom(ratio)
			}
		}
		points = append(points, point)
	}
	return points
}

// ComputeFairValues projects per-year equity value and fair value per share
// at the caller's target multiple, one point per record in input order.
//
//	equityValue       = netIncome * targetMultiple
//	fairValuePerShare = equityValue / sharesOutstanding
//
// EquityValue is null when net income is null. The per-share division is
// suppressed (null) when sharesOutstanding is null or exactly 0: an
// explicit zero share count is treated the same as "not reported".
// targetMultiple is not validated here; rejecting non-finite multiples is
// the caller's responsibility.
func ComputeFairValues(rows []domain.FinancialRecord, targetMultiple float64) []domain.FairValuePoint {
	points := make([]domain.FairValuePoint, 0, len(rows))
	for _, r := range rows {
		point := domain.FairValuePoint{Year: r.Year}
		if r.NetIncome.Valid {
			point.EquityValue = null.FloatFrom(r.NetIncome.Float64 * targetMultiple)
			if r.SharesOutstanding.Valid && r.SharesOutstanding.Float64 != 0 {
				point.FairValuePerShare = null.FloatFrom(point.EquityValue.Float64 / r.SharesOutstanding.Float64)
			}
		}
		points = append(points, point)
	}
	return points
}

// ComputeBlendedFairValue combines a snapshot's per-share valuation signals
// at fixed weights: 50% EV-multiple, 25% earnings-multiple, 25%
// sales-multiple. Snapshot fields are not guarded here; the snapshot
// collaborator zero-defaults unresolved fields upstream.
func ComputeBlendedFairValue(snap domain.ValuationSnapshot) float64 {
	return blendWeightEV*snap.FairValueEV +
		blendWeightPE*snap.FairValuePE +
		blendWeightPS*snap.FairValuePS
}
