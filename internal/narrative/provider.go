package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/guregu/null/v6"

	"fundamentals-lab/internal/domain"
)

// ErrUpstreamUnavailable reports a failed or misconfigured language-model
// call. The service degrades it to an absent narrative; it never propagates
// to the API response.
var ErrUpstreamUnavailable = errors.New("narrative provider unavailable")

// Request carries the computed numbers the narrative comments on. All
// fields are already resolved; the provider does no computation of its own.
type Request struct {
	Ticker         string
	Exchange       string
	TargetMultiple float64
	Rows           []domain.FinancialRecord
	Growth         []domain.GrowthPoint
	GrowthSummary  domain.GrowthSummary
	FairValues     []domain.FairValuePoint
}

// Provider generates commentary for one company's computed analytics.
type Provider interface {
	Generate(ctx context.Context, req Request) (*domain.Narrative, error)
}

// promptFromRequest renders the request as a compact textual summary. The
// model only sees numbers we already computed; it is never asked to derive
// or look up figures itself.
func promptFromRequest(req Request) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Company: %s (%s)\n", req.Ticker, req.Exchange)
	fmt.Fprintf(&sb, "Target P/E multiple: %g\n", req.TargetMultiple)

	if len(req.Rows) > 0 {
		first, last := req.Rows[0], req.Rows[len(req.Rows)-1]
		fmt.Fprintf(&sb, "Fiscal years covered: %d-%d (%d records)\n", first.Year, last.Year, len(req.Rows))
		fmt.Fprintf(&sb, "Latest year %d: revenue=%s, operating income=%s, net income=%s, shares=%s\n",
			last.Year,
			formatNullable(last.Revenue),
			formatNullable(last.OperatingIncome),
			formatNullable(last.NetIncome),
			formatNullable(last.SharesOutstanding))
	}

	if len(req.Growth) > 0 {
		sb.WriteString("Year-over-year revenue growth:")
		for _, p := range req.Growth {
			if p.Growth.Valid {
				fmt.Fprintf(&sb, " %d: %.1f%%", p.Year, p.Growth.Float64*100)
			} else {
				fmt.Fprintf(&sb, " %d: n/a", p.Year)
			}
		}
		sb.WriteString("\n")
	}
	if req.GrowthSummary.Mean.Valid {
		fmt.Fprintf(&sb, "Mean growth: %.1f%% over %d valid ratios\n",
			req.GrowthSummary.Mean.Float64*100, req.GrowthSummary.Count)
	}

	if len(req.FairValues) > 0 {
		low, high, any := fairValueRange(req.FairValues)
		if any {
			fmt.Fprintf(&sb, "Fair value per share range at target multiple: %.2f to %.2f\n", low, high)
		}
	}

	return sb.String()
}

func formatNullable(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%g", v.Float64)
}

func fairValueRange(points []domain.FairValuePoint) (low, high float64, any bool) {
	for _, p := range points {
		if !p.FairValuePerShare.Valid {
			continue
		}
		v := p.FairValuePerShare.Float64
		if !any {
			low, high, any = v, v, true
			continue
		}
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	return low, high, any
}
