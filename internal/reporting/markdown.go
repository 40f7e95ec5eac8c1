package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

// RenderMarkdown renders a report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Valuation Report: %s (%s)\n\n", r.Ticker, r.Exchange))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Target P/E multiple: %g\n\n", r.TargetMultiple))

	// Financial records
	sb.WriteString("## Financial Records\n\n")
	if len(r.Rows) > 0 {
		sb.WriteString("| Year | Revenue | Operating Income | Net Income | Shares Outstanding |\n")
		sb.WriteString("|------|---------|------------------|------------|--------------------|\n")
		for _, row := range r.Rows {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
				row.Year,
				cell(row.Revenue), cell(row.OperatingIncome),
				cell(row.NetIncome), cell(row.SharesOutstanding)))
		}
	} else {
		sb.WriteString("No records available.\n")
	}
	sb.WriteString("\n")

	// Growth
	sb.WriteString("## Revenue Growth\n\n")
	if len(r.Growth) > 0 {
		sb.WriteString("| Year | Growth |\n")
		sb.WriteString("|------|--------|\n")
		for _, p := range r.Growth {
			sb.WriteString(fmt.Sprintf("| %d | %s |\n", p.Year, pctCell(p.Growth)))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Valid ratios: %d | Mean: %s | StdDev: %s | Min: %s | Max: %s\n",
			r.GrowthSummary.Count,
			pctCell(r.GrowthSummary.Mean), pctCell(r.GrowthSummary.StdDev),
			pctCell(r.GrowthSummary.Min), pctCell(r.GrowthSummary.Max)))
	} else {
		sb.WriteString("Not enough records for growth computation.\n")
	}
	sb.WriteString("\n")

	// Fair values
	sb.WriteString("## Fair Value Projection\n\n")
	if len(r.FairValues) > 0 {
		sb.WriteString("| Year | Equity Value | Fair Value / Share |\n")
		sb.WriteString("|------|--------------|--------------------|\n")
		for _, p := range r.FairValues {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s |\n",
				p.Year, cell(p.EquityValue), cell(p.FairValuePerShare)))
		}
	} else {
		sb.WriteString("No fair value projection available.\n")
	}
	sb.WriteString("\n")

	// Live valuation
	if r.Snapshot != nil {
		sb.WriteString("## Live Valuation\n\n")
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Current Price | %.2f |\n", r.Snapshot.Price))
		sb.WriteString(fmt.Sprintf("| Fair Value (EV multiple) | %.2f |\n", r.Snapshot.FairValueEV))
		sb.WriteString(fmt.Sprintf("| Fair Value (P/E multiple) | %.2f |\n", r.Snapshot.FairValuePE))
		sb.WriteString(fmt.Sprintf("| Fair Value (P/S multiple) | %.2f |\n", r.Snapshot.FairValuePS))
		sb.WriteString(fmt.Sprintf("| Blended Fair Value | %.2f |\n", r.BlendedFairValue))
		sb.WriteString(fmt.Sprintf("| Book Value / Share | %.2f |\n", r.Snapshot.BookValuePerShare))
		sb.WriteString("\n")
	}

	return sb.String()
}

// cell formats a nullable value for a Markdown table.
func cell(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v.Float64)
}

// pctCell formats a nullable ratio as a percentage.
func pctCell(v null.Float) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v.Float64*100)
}
