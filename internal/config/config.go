package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig holds connection details for a remote model provider.
type ProviderConfig struct {
	BaseURL     string `yaml:"base_url,omitempty"`
	APIKeyEnv   string `yaml:"api_key_env"`
	EmbedModel  string `yaml:"embed_model,omitempty"`
	ChatModel   string `yaml:"chat_model,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`

	Temperature     float64 `yaml:"temperature,omitempty"`
	TopK            int     `yaml:"top_k,omitempty"`
	TopP            float64 `yaml:"top_p,omitempty"`
	MaxOutputTokens int     `yaml:"max_output_tokens,omitempty"`
}

// Timeout returns the request timeout as a duration.
func (p *ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// TFIDFConfig configures the offline hashed TF-IDF embedder.
type TFIDFConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string          `yaml:"type"`
	TFIDF  *TFIDFConfig    `yaml:"tfidf,omitempty"`
	Gemini *ProviderConfig `yaml:"gemini,omitempty"`
	OpenAI *ProviderConfig `yaml:"openai,omitempty"`
}

// ExtractiveConfig configures the offline extractive generator.
type ExtractiveConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	Type       string            `yaml:"type"`
	Extractive *ExtractiveConfig `yaml:"extractive,omitempty"`
	Gemini     *ProviderConfig   `yaml:"gemini,omitempty"`
	OpenAI     *ProviderConfig   `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// RetrievalConfig configures similarity search.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// PacingConfig spaces out embedding requests.
type PacingConfig struct {
	IntervalMS int `yaml:"interval_ms"`
}

// Interval returns the pause between embedding requests.
func (p PacingConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMS) * time.Millisecond
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Pacing     PacingConfig     `yaml:"pacing"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings no component can work with.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case "tfidf", "gemini", "openai":
	default:
		return fmt.Errorf("unknown embedder type %q", c.Embedder.Type)
	}
	switch c.Generator.Type {
	case "extractive", "gemini", "openai":
	default:
		return fmt.Errorf("unknown generator type %q", c.Generator.Type)
	}
	if c.Chunker.ChunkSize <= 0 {
		return fmt.Errorf("chunker.chunk_size must be positive, got %d", c.Chunker.ChunkSize)
	}
	if c.Chunker.Overlap < 0 {
		return fmt.Errorf("chunker.overlap must not be negative, got %d", c.Chunker.Overlap)
	}
	return nil
}

// ResolveAPIKey reads the API key of p from its environment variable.
func ResolveAPIKey(p *ProviderConfig) (string, error) {
	if p == nil || p.APIKeyEnv == "" {
		return "", errors.New("no api_key_env configured")
	}
	key := os.Getenv(p.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("missing API key in env %s", p.APIKeyEnv)
	}
	return key, nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:   EmbedderConfig{Type: "tfidf"},
		Generator:  GeneratorConfig{Type: "extractive"},
		Chunker:    ChunkerConfig{ChunkSize: 800, Overlap: 200},
		Retrieval:  RetrievalConfig{TopK: 3},
		Pacing:     PacingConfig{IntervalMS: 100},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 3},
		Server:     ServerConfig{Addr: ":8080"},
		Log:        LogConfig{Level: "info", Format: "text"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "extractive"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 800
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	switch cfg.Embedder.Type {
	case "tfidf":
		if cfg.Embedder.TFIDF == nil {
			cfg.Embedder.TFIDF = &TFIDFConfig{}
		}
		if cfg.Embedder.TFIDF.Dimension == 0 {
			cfg.Embedder.TFIDF.Dimension = 1024
		}
	case "gemini":
		cfg.Embedder.Gemini = geminiDefaults(cfg.Embedder.Gemini)
	case "openai":
		cfg.Embedder.OpenAI = openAIDefaults(cfg.Embedder.OpenAI)
	}
	switch cfg.Generator.Type {
	case "extractive":
		if cfg.Generator.Extractive == nil {
			cfg.Generator.Extractive = &ExtractiveConfig{}
		}
		if cfg.Generator.Extractive.MaxSentences == 0 {
			cfg.Generator.Extractive.MaxSentences = 3
		}
	case "gemini":
		cfg.Generator.Gemini = geminiDefaults(cfg.Generator.Gemini)
	case "openai":
		cfg.Generator.OpenAI = openAIDefaults(cfg.Generator.OpenAI)
	}
}

func geminiDefaults(p *ProviderConfig) *ProviderConfig {
	if p == nil {
		p = &ProviderConfig{}
	}
	if p.BaseURL == "" {
		p.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if p.APIKeyEnv == "" {
		p.APIKeyEnv = "GEMINI_API_KEY"
	}
	if p.EmbedModel == "" {
		p.EmbedModel = "text-embedding-004"
	}
	if p.ChatModel == "" {
		p.ChatModel = "gemini-2.5-flash"
	}
	if p.TimeoutSecs == 0 {
		p.TimeoutSecs = 30
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = 3
	}
	return p
}

func openAIDefaults(p *ProviderConfig) *ProviderConfig {
	if p == nil {
		p = &ProviderConfig{}
	}
	if p.BaseURL == "" {
		p.BaseURL = "https://api.openai.com/v1"
	}
	if p.APIKeyEnv == "" {
		p.APIKeyEnv = "OPENAI_API_KEY"
	}
	if p.EmbedModel == "" {
		p.EmbedModel = "text-embedding-3-small"
	}
	if p.ChatModel == "" {
		p.ChatModel = "gpt-4o-mini"
	}
	if p.TimeoutSecs == 0 {
		p.TimeoutSecs = 30
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = 2
	}
	return p
}
