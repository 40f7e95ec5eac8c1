package reporting

import (
	"fmt"
	"strings"

	"github.com/guregu/null/v6"
)

// RenderGrowthCSV renders growth points as CSV string. Null ratios render
// as empty cells so spreadsheet consumers see gaps, not zeros.
func RenderGrowthCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("year,growth\n")
	for _, p := range r.Growth {
		sb.WriteString(fmt.Sprintf("%d,%s\n", p.Year, csvValue(p.Growth)))
	}

	return sb.String()
}

// RenderFairValueCSV renders fair value points as CSV string.
func RenderFairValueCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("year,equity_value,fair_value_per_share\n")
	for _, p := range r.FairValues {
		sb.WriteString(fmt.Sprintf("%d,%s,%s\n",
			p.Year, csvValue(p.EquityValue), csvValue(p.FairValuePerShare)))
	}

	return sb.String()
}

func csvValue(v null.Float) string {
	if !v.Valid {
		return ""
	}
	return fmt.Sprintf("%.6f", v.Float64)
}
