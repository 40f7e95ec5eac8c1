package snapshot

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"fundamentals-lab/internal/domain"
)

// FetchKeyStatistics scrapes the provider's key-statistics page as a
// fallback when the JSON endpoint fails. Values are pulled from label/value
// table rows and cleaned before parsing; anything unparseable stays 0,
// keeping this path zero-defaulting like the JSON one.
func (c *Client) FetchKeyStatistics(ctx context.Context, exchange, ticker string) (*domain.ValuationSnapshot, error) {
	if c.config.BaseURL == "" {
		return nil, fmt.Errorf("%w: no base URL configured", ErrUpstreamUnavailable)
	}

	url := fmt.Sprintf("%s/quote/%s/key-statistics", c.config.BaseURL, ticker)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: key statistics page returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse key statistics page: %v", ErrUpstreamUnavailable, err)
	}

	stats := extractLabeledValues(doc)
	if len(stats) == 0 {
		return nil, fmt.Errorf("%w: no statistics tables for %s:%s", ErrUpstreamUnavailable, exchange, ticker)
	}

	snap := &domain.ValuationSnapshot{
		Price:              stats["previous close"],
		BookValuePerShare:  stats["book value per share"],
		GrossMarginPct:     stats["gross margin"],
		OperatingMarginPct: stats["operating margin"],
		NetMarginPct:       stats["profit margin"],
	}
	// Multiply trailing fundamentals back into per-share fair values the
	// same way the JSON path does.
	snap.FairValuePE = stats["eps (ttm)"] * stats["forward p/e"]
	snap.FairValuePS = stats["revenue per share"] * stats["price/sales"]
	snap.FairValueEV = stats["1y target est"]
	return snap, nil
}

// extractLabeledValues walks every table row and maps lower-cased labels to
// parsed values. First occurrence of a label wins.
func extractLabeledValues(doc *goquery.Document) map[string]float64 {
	stats := make(map[string]float64)
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			label := strings.ToLower(strings.TrimSpace(row.Find("td").First().Text()))
			value := strings.TrimSpace(row.Find("td").Last().Text())
			if label == "" || value == "" {
				return
			}
			if _, seen := stats[label]; seen {
				return
			}
			if f, ok := parseStatValue(value); ok {
				stats[label] = f
			}
		})
	})
	return stats
}

// parseStatValue cleans a display value ($1,234.56, 12.3%, N/A, --) and
// parses it. Placeholders report ok=false so they stay out of the map.
func parseStatValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "N/A", "--", "-", "": // provider placeholders
		return 0, false
	}

	replacer := strings.NewReplacer("$", "", ",", "", "%", "")
	cleaned := replacer.Replace(s)

	// Abbreviated magnitudes appear on market cap style rows.
	multiplier := 1.0
	switch {
	case strings.HasSuffix(cleaned, "T"):
		multiplier, cleaned = 1e12, strings.TrimSuffix(cleaned, "T")
	case strings.HasSuffix(cleaned, "B"):
		multiplier, cleaned = 1e9, strings.TrimSuffix(cleaned, "B")
	case strings.HasSuffix(cleaned, "M"):
		multiplier, cleaned = 1e6, strings.TrimSuffix(cleaned, "M")
	case strings.HasSuffix(cleaned, "k"):
		multiplier, cleaned = 1e3, strings.TrimSuffix(cleaned, "k")
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil {
		return 0, false
	}
	return f * multiplier, true
}
