package llmprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"rknowledge/internal/config"
	"rknowledge/internal/observability"
	"rknowledge/internal/relations"
)

const localDefaultModel = "mistral"
const localDefaultBaseURL = "http://localhost:11434"

// No SDK in the dependency pack targets Ollama's native wire format, so this
// adapter speaks it directly over net/http, the way the tool it was ported
// from did.
type LocalProvider struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

func NewLocalProvider(cfg config.ProviderConfig) *LocalProvider {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = localDefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = localDefaultModel
	}

	transport := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	client := &http.Client{
		Timeout:   300 * time.Second,
		Transport: observability.NewHTTPClient(&http.Client{Transport: transport}).Transport,
	}

	return &LocalProvider{httpClient: client, baseURL: baseURL, model: model}
}

func (p *LocalProvider) Name() string { return "ollama" }

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  ollamaOptions       `json:"options"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func (p *LocalProvider) ExtractRelations(ctx context.Context, text string) ([]relations.Relation, error) {
	reqBody := ollamaChatRequest{
		Model: p.model,
		Messages: []ollamaChatMessage{
			{Role: "system", Content: graphExtractionSystemPrompt},
			{Role: "user", Content: userPrompt(text)},
		},
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0.1,
			TopP:        0.9,
			TopK:        40,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("ollama: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log := observability.LoggerWithTrace(ctx)
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		log.Error().Err(err).Str("provider", "ollama").Msg("relation extraction request failed")
		return nil, fmt.Errorf("ollama: request failed (is Ollama running? try: ollama serve): %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().Int("status", resp.StatusCode).RawJSON("body", observability.RedactJSON(body)).Msg("ollama: api error")
		return nil, fmt.Errorf("ollama: api error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("ollama: parse response: %w", err)
	}

	return relations.ParseRelations(ctx, chatResp.Message.Content), nil
}
