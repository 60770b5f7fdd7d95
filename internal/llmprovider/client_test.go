package llmprovider

import (
	"testing"

	"rknowledge/internal/config"
)

func TestNewRejectsUnconfiguredProvider(t *testing.T) {
	cfg := config.Default()
	if _, err := New("anthropic", cfg, nil); err == nil {
		t.Error("expected an error when anthropic has no configuration section")
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Ollama = &config.ProviderConfig{}
	if _, err := New("carrier-pigeon", cfg, nil); err == nil {
		t.Error("expected an error for an unrecognized provider name")
	}
}

func TestNewBuildsLocalProviderWithoutCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Ollama = &config.ProviderConfig{Model: "mistral"}
	client, err := New("ollama", cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.ProviderName() != "ollama" {
		t.Errorf("ProviderName() = %q, want ollama", client.ProviderName())
	}
}
