package llmprovider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"rknowledge/internal/config"
	"rknowledge/internal/relations"
)

// LLMClient abstracts over the four supported providers behind a single
// extraction operation.
type LLMClient struct {
	provider Provider
}

// New resolves the named provider ("anthropic", "openai", "ollama"/"local",
// or "google"/"gemini") against its configuration section and constructs
// the matching adapter.
func New(providerName string, cfg config.Config, httpClient *http.Client) (*LLMClient, error) {
	providerCfg, ok := cfg.Provider(providerName)
	if !ok {
		return nil, fmt.Errorf("llmprovider: provider %q is not configured", providerName)
	}

	var impl Provider
	var err error
	switch strings.ToLower(providerName) {
	case "anthropic":
		impl, err = NewAnthropicProvider(providerCfg, httpClient)
	case "openai":
		impl, err = NewOpenAIProvider(providerCfg, httpClient)
	case "ollama", "local":
		impl = NewLocalProvider(providerCfg)
	case "google", "gemini":
		impl, err = NewGoogleProvider(providerCfg, httpClient)
	default:
		return nil, fmt.Errorf("llmprovider: unknown provider %q", providerName)
	}
	if err != nil {
		return nil, err
	}

	return &LLMClient{provider: impl}, nil
}

// ExtractRelations extracts relations from a chunk of text using the
// configured provider.
func (c *LLMClient) ExtractRelations(ctx context.Context, text string) ([]relations.Relation, error) {
	return c.provider.ExtractRelations(ctx, text)
}

// ProviderName returns the active provider's name.
func (c *LLMClient) ProviderName() string {
	return c.provider.Name()
}
