package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandEnvVarBraces(t *testing.T) {
	t.Setenv("TEST_VAR_A", "value_a")
	if got := expandEnvVar("${TEST_VAR_A}"); got != "value_a" {
		t.Fatalf("expandEnvVar() = %q, want value_a", got)
	}
}

func TestExpandEnvVarDollar(t *testing.T) {
	t.Setenv("TEST_VAR_B", "value_b")
	if got := expandEnvVar("$TEST_VAR_B"); got != "value_b" {
		t.Fatalf("expandEnvVar() = %q, want value_b", got)
	}
}

func TestExpandEnvVarLiteral(t *testing.T) {
	if got := expandEnvVar("literal_value"); got != "literal_value" {
		t.Fatalf("expandEnvVar() = %q, want literal_value", got)
	}
}

func TestExpandEnvVarMissingReturnsEmpty(t *testing.T) {
	if got := expandEnvVar("${DEFINITELY_NOT_SET_XYZ_123}"); got != "" {
		t.Fatalf("expandEnvVar() = %q, want empty", got)
	}
}

func TestExpandEnvVarEmptyString(t *testing.T) {
	if got := expandEnvVar(""); got != "" {
		t.Fatalf("expandEnvVar() = %q, want empty", got)
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
default_provider = "ollama"
default_model = "mistral"
chunk_size = 2000
chunk_overlap = 200

[providers.ollama]
api_key = ""
base_url = "http://localhost:11434"
model = "mistral"

[graph]
backend = "postgres"
dsn = "postgres://localhost/rknowledge"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultProvider != "ollama" {
		t.Errorf("DefaultProvider = %q, want ollama", cfg.DefaultProvider)
	}
	if cfg.DefaultModel != "mistral" {
		t.Errorf("DefaultModel = %q, want mistral", cfg.DefaultModel)
	}
	if cfg.ChunkSize != 2000 || cfg.ChunkOverlap != 200 {
		t.Errorf("chunk size/overlap = %d/%d, want 2000/200", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.Graph.DSN != "postgres://localhost/rknowledge" {
		t.Errorf("Graph.DSN = %q", cfg.Graph.DSN)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[providers]
[graph]
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultProvider != "anthropic" {
		t.Errorf("DefaultProvider = %q, want anthropic", cfg.DefaultProvider)
	}
	if cfg.ChunkSize != defaultChunkSize || cfg.ChunkOverlap != defaultChunkOverlap {
		t.Errorf("chunk defaults not applied: %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.Graph.Backend != "memory" {
		t.Errorf("Graph.Backend = %q, want memory", cfg.Graph.Backend)
	}
	if cfg.Processing.Concurrency != defaultConcurrency || cfg.Processing.BatchSize != defaultBatchSize {
		t.Errorf("processing defaults not applied: %+v", cfg.Processing)
	}
}

func TestProvider(t *testing.T) {
	cfg := Config{
		Providers: ProvidersConfig{
			Anthropic: &ProviderConfig{APIKey: "sk-test", Model: "claude"},
			Ollama:    &ProviderConfig{BaseURL: "http://localhost:11434"},
		},
	}

	if _, ok := cfg.Provider("anthropic"); !ok {
		t.Error("expected anthropic provider to be configured")
	}
	if _, ok := cfg.Provider("Ollama"); !ok {
		t.Error("expected case-insensitive lookup to find ollama provider")
	}
	if _, ok := cfg.Provider("openai"); ok {
		t.Error("expected openai provider to be absent")
	}
	if _, ok := cfg.Provider("nonexistent"); ok {
		t.Error("expected unknown provider name to be absent")
	}

	p, _ := cfg.Provider("anthropic")
	if p.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want sk-test", p.APIKey)
	}
}
