package llmprovider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"rknowledge/internal/config"
	"rknowledge/internal/observability"
	"rknowledge/internal/relations"
)

const (
	anthropicDefaultModel     = "claude-sonnet-4-20250514"
	anthropicDefaultMaxTokens = int64(4096)
)

// AnthropicProvider extracts relations via the Anthropic Messages API.
type AnthropicProvider struct {
	sdk   anthropic.Client
	model string
}

// NewAnthropicProvider builds a provider from a provider config section,
// defaulting the model and base URL the way the original tool did.
func NewAnthropicProvider(cfg config.ProviderConfig, httpClient *http.Client) (*AnthropicProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(observability.NewHTTPClient(httpClient)),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = anthropicDefaultModel
	}

	return &AnthropicProvider{sdk: anthropic.NewClient(opts...), model: model}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) ExtractRelations(ctx context.Context, text string) ([]relations.Relation, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: anthropicDefaultMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: graphExtractionSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(text))),
		},
	}

	log := observability.LoggerWithTrace(ctx)
	resp, err := p.sdk.Messages.New(ctx, params)
	if err != nil {
		log.Error().Err(err).Str("provider", "anthropic").Str("model", p.model).Msg("relation extraction request failed")
		return nil, fmt.Errorf("anthropic: request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return relations.ParseRelations(ctx, sb.String()), nil
}
