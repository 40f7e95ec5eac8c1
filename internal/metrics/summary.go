package metrics

import (
	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/stat"

	"fundamentals-lab/internal/domain"
)

// SummarizeGrowth aggregates the valid growth ratios of one company. Null
// points are excluded before computing; Mean/Min/Max need at least one
// valid ratio, StdDev (sample, n-1) needs at least two. Count is the number
// of valid ratios, not the number of points.
func SummarizeGrowth(points []domain.GrowthPoint) domain.GrowthSummary {
	values := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Growth.Valid {
			values = append(values, p.Growth.Float64)
		}
	}

	summary := domain.GrowthSummary{Count: len(values)}
	if len(values) == 0 {
		return summary
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	summary.Mean = null.FloatFrom(stat.Mean(values, nil))
	summary.Min = null.FloatFrom(min)
	summary.Max = null.FloatFrom(max)
	if len(values) >= 2 {
		summary.StdDev = null.FloatFrom(stat.StdDev(values, nil))
	}
	return summary
}
