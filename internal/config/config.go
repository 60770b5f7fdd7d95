// Package config loads rknowledge's TOML configuration file: LLM provider
// credentials, chunking defaults, and the graph store connection.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	defaultProvider     = "anthropic"
	defaultChunkSize    = 1500
	defaultChunkOverlap = 150
	defaultConcurrency  = 4
	defaultBatchSize    = 5
)

// ProviderConfig holds the connection details for one LLM provider.
type ProviderConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url,omitempty"`
	Model   string `toml:"model,omitempty"`
}

// ProvidersConfig groups the four supported LLM backends.
type ProvidersConfig struct {
	Anthropic *ProviderConfig `toml:"anthropic,omitempty"`
	OpenAI    *ProviderConfig `toml:"openai,omitempty"`
	Ollama    *ProviderConfig `toml:"ollama,omitempty"`
	Google    *ProviderConfig `toml:"google,omitempty"`
}

// GraphConfig describes how to reach the property-graph store.
type GraphConfig struct {
	Backend string `toml:"backend"` // "memory" or "postgres"
	DSN     string `toml:"dsn,omitempty"`
	Tenant  string `toml:"tenant,omitempty"`
}

// ProcessingConfig tunes the batch processor.
type ProcessingConfig struct {
	Concurrency int    `toml:"concurrency"`
	BatchSize   int    `toml:"batch_size"`
	Progress    string `toml:"progress_file,omitempty"`
}

// Config is the root rknowledge configuration.
type Config struct {
	DefaultProvider string           `toml:"default_provider"`
	DefaultModel    string           `toml:"default_model,omitempty"`
	ChunkSize       int              `toml:"chunk_size"`
	ChunkOverlap    int              `toml:"chunk_overlap"`
	Providers       ProvidersConfig  `toml:"providers"`
	Graph           GraphConfig      `toml:"graph"`
	Processing      ProcessingConfig `toml:"processing"`
}

// Default returns a Config populated with the same defaults the original
// tool shipped: Anthropic as the default provider, 1500/150 token chunking.
func Default() Config {
	return Config{
		DefaultProvider: defaultProvider,
		ChunkSize:       defaultChunkSize,
		ChunkOverlap:    defaultChunkOverlap,
		Graph:           GraphConfig{Backend: "memory"},
		Processing: ProcessingConfig{
			Concurrency: defaultConcurrency,
			BatchSize:   defaultBatchSize,
		},
	}
}

// Dir returns the platform configuration directory for rknowledge, honoring
// XDG_CONFIG_HOME before falling back to os.UserConfigDir.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rknowledge"), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("determine config directory: %w", err)
	}
	return filepath.Join(base, "rknowledge"), nil
}

// Path returns the default config.toml location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads and parses the config file at path, applying defaults for any
// zero-valued field and expanding ${VAR}/$VAR references in API keys and the
// graph DSN. A .env file in the working directory, if present, is loaded
// first and overrides any existing OS environment variables, so repository/
// local configuration deterministically controls the values ${VAR}/$VAR
// expand to.
func Load(path string) (Config, error) {
	_ = godotenv.Overload()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file at %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file at %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.expandEnvVars()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DefaultProvider == "" {
		c.DefaultProvider = defaultProvider
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = defaultChunkOverlap
	}
	if c.Graph.Backend == "" {
		c.Graph.Backend = "memory"
	}
	if c.Processing.Concurrency == 0 {
		c.Processing.Concurrency = defaultConcurrency
	}
	if c.Processing.BatchSize == 0 {
		c.Processing.BatchSize = defaultBatchSize
	}
}

func (c *Config) expandEnvVars() {
	if c.Providers.Anthropic != nil {
		c.Providers.Anthropic.APIKey = expandEnvVar(c.Providers.Anthropic.APIKey)
	}
	if c.Providers.OpenAI != nil {
		c.Providers.OpenAI.APIKey = expandEnvVar(c.Providers.OpenAI.APIKey)
	}
	if c.Providers.Ollama != nil {
		c.Providers.Ollama.APIKey = expandEnvVar(c.Providers.Ollama.APIKey)
	}
	if c.Providers.Google != nil {
		c.Providers.Google.APIKey = expandEnvVar(c.Providers.Google.APIKey)
	}
	c.Graph.DSN = expandEnvVar(c.Graph.DSN)
}

// expandEnvVar resolves "${VAR}" and "$VAR" references against the process
// environment. An unset variable expands to the empty string, matching the
// permissive behavior of the tool this was ported from.
func expandEnvVar(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(value[2 : len(value)-1])
	}
	if strings.HasPrefix(value, "$") {
		return os.Getenv(value[1:])
	}
	return value
}

// Provider looks up a provider's configuration by name, case-insensitively.
func (c Config) Provider(name string) (ProviderConfig, bool) {
	var p *ProviderConfig
	switch strings.ToLower(name) {
	case "anthropic":
		p = c.Providers.Anthropic
	case "openai":
		p = c.Providers.OpenAI
	case "ollama", "local":
		p = c.Providers.Ollama
	case "google", "gemini":
		p = c.Providers.Google
	}
	if p == nil {
		return ProviderConfig{}, false
	}
	return *p, true
}
