package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fundamentals-lab/internal/domain"
)

// quoteModules is the module list requested from the quote-summary endpoint.
const quoteModules = "price,summaryDetail,defaultKeyStatistics,financialData"

// ClientConfig configures the REST snapshot client.
type ClientConfig struct {
	// BaseURL is the provider root, e.g. https://query1.finance.yahoo.com.
	BaseURL string
	// APIKey is sent as X-Api-Key when non-empty. Public endpoints work
	// without one.
	APIKey string
	// Timeout bounds one fetch including body read.
	Timeout time.Duration
}

// DefaultClientConfig returns default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout: 30 * time.Second,
	}
}

// quoteSummaryResponse mirrors the provider's quote-summary payload. All
// numeric fields arrive as {raw, fmt} wrappers; only raw is read.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				RegularMarketPrice rawValue `json:"regularMarketPrice"`
			} `json:"price"`
			SummaryDetail struct {
				PriceToSalesTrailing12Months rawValue `json:"priceToSalesTrailing12Months"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				TrailingEps rawValue `json:"trailingEps"`
				BookValue   rawValue `json:"bookValue"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				TargetMeanPrice  rawValue `json:"targetMeanPrice"`
				RevenuePerShare  rawValue `json:"revenuePerShare"`
				GrossMargins     rawValue `json:"grossMargins"`
				OperatingMargins rawValue `json:"operatingMargins"`
				ProfitMargins    rawValue `json:"profitMargins"`
				ForwardPE        rawValue `json:"forwardPE"`
			} `json:"financialData"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"quoteSummary"`
}

// rawValue is the provider's {raw, fmt} numeric wrapper. Missing fields
// decode to the zero value, which matches this path's zero-default policy.
type rawValue struct {
	Raw float64 `json:"raw"`
}

// Client fetches point-in-time valuation snapshots from the provider's
// quote-summary JSON endpoint. Every field resolves through zero-defaulting:
// absent or unparseable values become 0, never null. That is deliberate and
// the opposite of the normalizer's policy; the blending formula downstream
// expects fully-resolved numbers.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient creates a REST snapshot client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultClientConfig().Timeout
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchSnapshot fetches the current valuation snapshot for one company.
// Transport, status, and decode failures wrap ErrUpstreamUnavailable.
func (c *Client) FetchSnapshot(ctx context.Context, exchange, ticker string) (*domain.ValuationSnapshot, error) {
	if c.config.BaseURL == "" {
		return nil, fmt.Errorf("%w: no base URL configured", ErrUpstreamUnavailable)
	}

	url := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		c.config.BaseURL, ticker, quoteModules)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	if c.config.APIKey != "" {
		req.Header.Set("X-Api-Key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var payload quoteSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstreamUnavailable, err)
	}
	if len(payload.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: empty result for %s:%s", ErrUpstreamUnavailable, exchange, ticker)
	}

	return snapshotFromSummary(payload), nil
}

// snapshotFromSummary derives the per-share valuation inputs from the raw
// summary fields. Each signal degrades to 0 when its inputs are missing:
//
//	fairValueEV = targetMeanPrice          (EV-multiple analyst target)
//	fairValuePE = trailingEps * forwardPE  (earnings-multiple)
//	fairValuePS = revenuePerShare * P/S    (sales-multiple)
func snapshotFromSummary(payload quoteSummaryResponse) *domain.ValuationSnapshot {
	result := payload.QuoteSummary.Result[0]

	return &domain.ValuationSnapshot{
		Price:              result.Price.RegularMarketPrice.Raw,
		FairValueEV:        result.FinancialData.TargetMeanPrice.Raw,
		FairValuePE:        result.DefaultKeyStatistics.TrailingEps.Raw * result.FinancialData.ForwardPE.Raw,
		FairValuePS:        result.FinancialData.RevenuePerShare.Raw * result.SummaryDetail.PriceToSalesTrailing12Months.Raw,
		BookValuePerShare:  result.DefaultKeyStatistics.BookValue.Raw,
		GrossMarginPct:     result.FinancialData.GrossMargins.Raw * 100,
		OperatingMarginPct: result.FinancialData.OperatingMargins.Raw * 100,
		NetMarginPct:       result.FinancialData.ProfitMargins.Raw * 100,
	}
}
