package metrics

import (
	"math"
	"testing"

	"fundamentals-lab/internal/domain"
)

func TestSummarizeGrowth_BasicStats(t *testing.T) {
	points := []domain.GrowthPoint{
		{Year: 2021, Growth: fv(0.50)},
		{Year: 2022, Growth: fv(0.25)},
	}

	got := SummarizeGrowth(points)

	if got.Count != 2 {
		t.Errorf("expected count 2, got %d", got.Count)
	}
	// Mean = (0.50 + 0.25) / 2 = 0.375
	if !got.Mean.Valid || math.Abs(got.Mean.Float64-0.375) > 0.0001 {
		t.Errorf("expected mean 0.375, got %v", got.Mean)
	}
	// Sample stddev = sqrt(((0.125)^2 + (0.125)^2) / 1) ≈ 0.1768
	if !got.StdDev.Valid || math.Abs(got.StdDev.Float64-0.17677) > 0.0001 {
		t.Errorf("expected stddev ≈ 0.1768, got %v", got.StdDev)
	}
	if !got.Min.Valid || got.Min.Float64 != 0.25 {
		t.Errorf("expected min 0.25, got %v", got.Min)
	}
	if !got.Max.Valid || got.Max.Float64 != 0.50 {
		t.Errorf("expected max 0.50, got %v", got.Max)
	}
}

func TestSummarizeGrowth_SkipsNullPoints(t *testing.T) {
	points := []domain.GrowthPoint{
		{Year: 2021, Growth: fv(0.10)},
		{Year: 2022},
		{Year: 2023, Growth: fv(0.30)},
	}

	got := SummarizeGrowth(points)

	if got.Count != 2 {
		t.Errorf("expected count 2 (nulls excluded), got %d", got.Count)
	}
	// Mean over valid only = (0.10 + 0.30) / 2 = 0.20
	if !got.Mean.Valid || math.Abs(got.Mean.Float64-0.20) > 0.0001 {
		t.Errorf("expected mean 0.20, got %v", got.Mean)
	}
}

func TestSummarizeGrowth_SingleValue(t *testing.T) {
	points := []domain.GrowthPoint{
		{Year: 2021, Growth: fv(0.40)},
	}

	got := SummarizeGrowth(points)

	if got.Count != 1 {
		t.Errorf("expected count 1, got %d", got.Count)
	}
	if !got.Mean.Valid || got.Mean.Float64 != 0.40 {
		t.Errorf("expected mean 0.40, got %v", got.Mean)
	}
	if got.StdDev.Valid {
		t.Errorf("expected null stddev for a single value, got %v", got.StdDev)
	}
}

func TestSummarizeGrowth_Empty(t *testing.T) {
	got := SummarizeGrowth(nil)

	if got.Count != 0 {
		t.Errorf("expected count 0, got %d", got.Count)
	}
	if got.Mean.Valid || got.StdDev.Valid || got.Min.Valid || got.Max.Valid {
		t.Errorf("expected all-null summary, got %+v", got)
	}
}

func TestSummarizeGrowth_AllNull(t *testing.T) {
	points := []domain.GrowthPoint{
		{Year: 2021},
		{Year: 2022},
	}

	got := SummarizeGrowth(points)

	if got.Count != 0 {
		t.Errorf("expected count 0, got %d", got.Count)
	}
	if got.Mean.Valid {
		t.Errorf("expected null mean, got %v", got.Mean)
	}
}
