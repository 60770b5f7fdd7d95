package llmprovider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared"

	"rknowledge/internal/config"
	"rknowledge/internal/observability"
	"rknowledge/internal/relations"
)

const openaiDefaultModel = "gpt-4o"

// OpenAIProvider extracts relations via the OpenAI chat completions API,
// and anything OpenAI-compatible that sits behind a custom base URL.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(cfg config.ProviderConfig, httpClient *http.Client) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(observability.NewHTTPClient(httpClient)),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openaiDefaultModel
	}

	return &OpenAIProvider{client: openai.NewClient(opts...), model: model}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) ExtractRelations(ctx context.Context, text string) ([]relations.Relation, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(graphExtractionSystemPrompt),
			openai.UserMessage(userPrompt(text)),
		},
		Temperature: param.NewOpt(0.0),
	}

	log := observability.LoggerWithTrace(ctx)
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Error().Err(err).Str("provider", "openai").Str("model", p.model).Msg("relation extraction request failed")
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}
	return relations.ParseRelations(ctx, resp.Choices[0].Message.Content), nil
}
