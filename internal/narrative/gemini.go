package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"
	"google.golang.org/genai"

	"fundamentals-lab/internal/domain"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"

	systemInstruction = "You are a sell-side equity analyst writing brief, factual commentary " +
		"on annual company fundamentals. Use only the numbers given; do not invent figures, " +
		"do not give investment advice. Respond with a JSON object with keys " +
		`"summary" (Markdown string, 2-4 sentences), "highlights" (array of short strings) ` +
		`and "cautions" (array of short strings).`
)

// GeminiProvider generates narratives via Google's Gemini API.
type GeminiProvider struct {
	apiKey string
	model  string
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini provider. model may be empty to use
// the default.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{apiKey: apiKey, model: model}
}

// Generate renders the request as a prompt, calls the model in JSON mode,
// and decodes the commentary. Model output is repaired before decoding
// because models intermittently emit trailing commas and code fences.
func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*domain.Narrative, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrUpstreamUnavailable)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create client: %v", ErrUpstreamUnavailable, err)
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.2)),
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	}

	result, err := client.Models.GenerateContent(ctx, p.model, genai.Text(promptFromRequest(req)), config)
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %v", ErrUpstreamUnavailable, err)
	}

	return parseNarrative(result.Text())
}

// parseNarrative decodes model output into the narrative shape. The raw
// text goes through json-repair first; the summary is stripped of code
// fences and checked as Markdown before acceptance.
func parseNarrative(raw string) (*domain.Narrative, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty model response", ErrUpstreamUnavailable)
	}

	repaired, err := jsonrepair.RepairJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: repair response: %v", ErrUpstreamUnavailable, err)
	}

	var n domain.Narrative
	if err := json.Unmarshal([]byte(repaired), &n); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstreamUnavailable, err)
	}

	n.Summary = cleanMarkdown(n.Summary)
	if n.Summary == "" {
		return nil, fmt.Errorf("%w: response has no summary", ErrUpstreamUnavailable)
	}
	if !validMarkdown(n.Summary) {
		return nil, fmt.Errorf("%w: summary is not valid markdown", ErrUpstreamUnavailable)
	}
	return &n, nil
}

// cleanMarkdown strips outer code fences the model sometimes wraps the
// summary in despite JSON mode.
func cleanMarkdown(input string) string {
	cleaned := strings.TrimSpace(input)
	if strings.HasPrefix(cleaned, "```markdown") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```markdown")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	} else if strings.HasPrefix(cleaned, "```") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}

// validMarkdown parses the summary with goldmark. The parser is very
// permissive; this catches only structurally broken input.
func validMarkdown(input string) bool {
	parser := goldmark.DefaultParser()
	return parser.Parse(text.NewReader([]byte(input))) != nil
}
