package llmprovider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	genai "google.golang.org/genai"

	"rknowledge/internal/config"
	"rknowledge/internal/observability"
	"rknowledge/internal/relations"
)

const googleDefaultModel = "gemini-2.0-flash"

// GoogleProvider extracts relations via Gemini's generateContent API.
type GoogleProvider struct {
	client *genai.Client
	model  string
}

func NewGoogleProvider(cfg config.ProviderConfig, httpClient *http.Client) (*GoogleProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("google: api key is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	httpOpts := genai.HTTPOptions{}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		httpOpts.BaseURL = strings.TrimSuffix(base, "/") + "/"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      strings.TrimSpace(cfg.APIKey),
		HTTPClient:  observability.NewHTTPClient(httpClient),
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("google: init client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = googleDefaultModel
	}

	return &GoogleProvider{client: client, model: model}, nil
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) ExtractRelations(ctx context.Context, text string) ([]relations.Relation, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: userPrompt(text)}},
		},
	}
	contentCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: graphExtractionSystemPrompt}},
		},
	}

	log := observability.LoggerWithTrace(ctx)
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, contentCfg)
	if err != nil {
		log.Error().Err(err).Str("provider", "google").Str("model", p.model).Msg("relation extraction request failed")
		return nil, fmt.Errorf("google: request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, nil
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("google: request blocked: %s", resp.PromptFeedback.BlockReason)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return nil, nil
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return relations.ParseRelations(ctx, sb.String()), nil
}
