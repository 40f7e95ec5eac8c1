package narrative

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundamentals-lab/internal/domain"
)

type stubProvider struct {
	narrative *domain.Narrative
	err       error
	calls     int
}

func (p *stubProvider) Generate(ctx context.Context, req Request) (*domain.Narrative, error) {
	p.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.narrative, p.err
}

func TestService_Annotate(t *testing.T) {
	provider := &stubProvider{
		narrative: &domain.Narrative{Summary: "Revenue grew 50% in 2023."},
	}
	svc := NewService(ServiceOptions{Provider: provider})

	n := svc.Annotate(context.Background(), Request{Ticker: "AAPL", Exchange: "NASDAQ"})
	require.NotNil(t, n)
	assert.Equal(t, "Revenue grew 50% in 2023.", n.Summary)
}

func TestService_NilProviderReturnsNil(t *testing.T) {
	svc := NewService(ServiceOptions{})
	assert.False(t, svc.Enabled())
	assert.Nil(t, svc.Annotate(context.Background(), Request{}))
}

func TestService_ProviderErrorDegradesToNil(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("%w: quota exceeded", ErrUpstreamUnavailable)}
	svc := NewService(ServiceOptions{Provider: provider})

	assert.Nil(t, svc.Annotate(context.Background(), Request{Ticker: "AAPL"}))
	assert.Equal(t, 1, provider.calls)
}

func TestService_CanceledContextDegradesToNil(t *testing.T) {
	provider := &stubProvider{narrative: &domain.Narrative{Summary: "x"}}
	svc := NewService(ServiceOptions{Provider: provider, Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Nil(t, svc.Annotate(ctx, Request{}))
}

func TestParseNarrative(t *testing.T) {
	raw := `{"summary": "Steady growth.", "highlights": ["Revenue up 12%"], "cautions": ["Margins thinning"]}`
	n, err := parseNarrative(raw)
	require.NoError(t, err)
	assert.Equal(t, "Steady growth.", n.Summary)
	assert.Equal(t, []string{"Revenue up 12%"}, n.Highlights)
	assert.Equal(t, []string{"Margins thinning"}, n.Cautions)
}

func TestParseNarrative_RepairsSloppyJSON(t *testing.T) {
	// Trailing comma and single quotes, typical model sloppiness.
	raw := "```json\n{'summary': 'Solid year.', 'highlights': ['Record net income',],}\n```"
	n, err := parseNarrative(raw)
	require.NoError(t, err)
	assert.Equal(t, "Solid year.", n.Summary)
}

func TestParseNarrative_StripsCodeFenceFromSummary(t *testing.T) {
	raw := `{"summary": "` + "```markdown\\nGood quarter.\\n```" + `"}`
	n, err := parseNarrative(raw)
	require.NoError(t, err)
	assert.Equal(t, "Good quarter.", n.Summary)
}

func TestParseNarrative_Failures(t *testing.T) {
	for _, raw := range []string{"", "   ", `{"highlights": ["no summary"]}`} {
		_, err := parseNarrative(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestPromptFromRequest(t *testing.T) {
	req := Request{
		Ticker:         "AAPL",
		Exchange:       "NASDAQ",
		TargetMultiple: 25,
		Rows: []domain.FinancialRecord{
			{Year: 2022, Revenue: null.FloatFrom(100), NetIncome: null.FloatFrom(10)},
			{Year: 2023, Revenue: null.FloatFrom(150), NetIncome: null.FloatFrom(20)},
		},
		Growth: []domain.GrowthPoint{
			{Year: 2023, Growth: null.FloatFrom(0.5)},
		},
		GrowthSummary: domain.GrowthSummary{Count: 1, Mean: null.FloatFrom(0.5)},
		FairValues: []domain.FairValuePoint{
			{Year: 2022, FairValuePerShare: null.FloatFrom(50)},
			{Year: 2023, FairValuePerShare: null.FloatFrom(100)},
		},
	}

	prompt := promptFromRequest(req)

	assert.Contains(t, prompt, "AAPL (NASDAQ)")
	assert.Contains(t, prompt, "Fiscal years covered: 2022-2023")
	assert.Contains(t, prompt, "2023: 50.0%")
	assert.Contains(t, prompt, "50.00 to 100.00")
	// The prompt is the model's whole world: it must never ask for data.
	assert.False(t, strings.Contains(strings.ToLower(prompt), "look up"))
}

func TestPromptFromRequest_NullFieldsRenderAsNA(t *testing.T) {
	req := Request{
		Ticker: "X", Exchange: "Y",
		Rows:   []domain.FinancialRecord{{Year: 2023}},
		Growth: []domain.GrowthPoint{{Year: 2023}},
	}
	prompt := promptFromRequest(req)
	assert.Contains(t, prompt, "revenue=n/a")
	assert.Contains(t, prompt, "2023: n/a")
}
