package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr             string `yaml:"addr"`
	Mode             string `yaml:"mode"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs"`
}

// LogConfig sets the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type string `yaml:"type"`
	// Format is "pdf" or "text".
	Format string `yaml:"format"`
	Width  int    `yaml:"width"`
}

// ChunkStoreConfig selects and configures where chunk sets are cached.
type ChunkStoreConfig struct {
	Type string `yaml:"type"`
	Dir  string `yaml:"dir"`
	Path string `yaml:"path"`
}

// GCSConfig contains connection details for Google Cloud Storage.
type GCSConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	Endpoint        string `yaml:"endpoint"`
	Anonymous       bool   `yaml:"anonymous"`
	MaxBytes        int64  `yaml:"max_bytes"`
}

// ObjectStoreConfig selects where source documents are fetched from.
type ObjectStoreConfig struct {
	Type string     `yaml:"type"`
	Root string     `yaml:"root"`
	GCS  *GCSConfig `yaml:"gcs,omitempty"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Dimensions        int     `yaml:"dimensions"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type         string                `yaml:"type"`
	Dimension    int                   `yaml:"dimension"`
	CacheEntries int                   `yaml:"cache_entries"`
	OpenAI       *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// RankerConfig configures relevance ranking.
type RankerConfig struct {
	Policy     string `yaml:"policy"`
	AnswerTopK int    `yaml:"answer_top_k"`
	QuizTopK   int    `yaml:"quiz_top_k"`
}

// OpenAIGeneratorConfig holds configuration for the chat completions backend.
type OpenAIGeneratorConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// GeneratorConfig selects and configures the generation backend.
type GeneratorConfig struct {
	Type         string                 `yaml:"type"`
	MaxSentences int                    `yaml:"max_sentences"`
	OpenAI       *OpenAIGeneratorConfig `yaml:"openai,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	ChunkStore  ChunkStoreConfig  `yaml:"chunk_store"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Ranker      RankerConfig      `yaml:"ranker"`
	Generator   GeneratorConfig   `yaml:"generator"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/chapterqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/chapterqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := DefaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
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

// DefaultUserConfigPath is ~/.config/chapterqa/config.yaml.
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "chapterqa", "config.yaml"), nil
}

// Default returns the configuration used when no file exists: everything
// runs locally, with documents under ./documents and chunks under ./data.
func Default() *AppConfig {
	cfg := &AppConfig{
		ObjectStore: ObjectStoreConfig{Type: "fs"},
		Embedder:    EmbedderConfig{Type: "hashing"},
		Generator:   GeneratorConfig{Type: "extractive"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeoutSecs == 0 {
		cfg.Server.ReadTimeoutSecs = 30
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = 120
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "word"
	}
	if cfg.Chunker.Format == "" {
		cfg.Chunker.Format = "pdf"
	}
	if cfg.Chunker.Width == 0 {
		cfg.Chunker.Width = 1000
	}
	if cfg.ChunkStore.Type == "" {
		cfg.ChunkStore.Type = "file"
	}
	if cfg.ChunkStore.Dir == "" {
		cfg.ChunkStore.Dir = filepath.Join("data", "chunks")
	}
	if cfg.ChunkStore.Path == "" {
		cfg.ChunkStore.Path = filepath.Join("data", "chapterqa.db")
	}
	if cfg.ObjectStore.Type == "" {
		cfg.ObjectStore.Type = "gcs"
	}
	if cfg.ObjectStore.Root == "" {
		cfg.ObjectStore.Root = "documents"
	}
	if cfg.ObjectStore.Type == "gcs" && cfg.ObjectStore.GCS == nil {
		cfg.ObjectStore.GCS = &GCSConfig{}
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.CacheEntries == 0 {
		cfg.Embedder.CacheEntries = 4096
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.MaxRetries == 0 {
			o.MaxRetries = 2
		}
	}
	if cfg.Ranker.Policy == "" {
		cfg.Ranker.Policy = "filtered"
	}
	if cfg.Ranker.AnswerTopK == 0 {
		cfg.Ranker.AnswerTopK = 3
	}
	if cfg.Ranker.QuizTopK == 0 {
		cfg.Ranker.QuizTopK = 10
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "openai"
	}
	if cfg.Generator.MaxSentences == 0 {
		cfg.Generator.MaxSentences = 3
	}
	if cfg.Generator.Type == "openai" {
		if cfg.Generator.OpenAI == nil {
			cfg.Generator.OpenAI = &OpenAIGeneratorConfig{}
		}
		o := cfg.Generator.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "gpt-4o-mini"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 60
		}
		if o.MaxRetries == 0 {
			o.MaxRetries = 2
		}
	}
}

// Validate reports unknown backend types and out-of-range settings.
func (c *AppConfig) Validate() error {
	var errs []error
	check := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: unknown value %q (want %s)", field, value, strings.Join(allowed, ", ")))
	}
	check("server.mode", c.Server.Mode, "debug", "release", "test")
	check("log.format", c.Log.Format, "text", "json")
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	check("chunker.type", c.Chunker.Type, "word")
	check("chunker.format", c.Chunker.Format, "pdf", "text")
	check("chunk_store.type", c.ChunkStore.Type, "file", "sqlite", "memory")
	check("object_store.type", c.ObjectStore.Type, "gcs", "fs")
	check("embedder.type", c.Embedder.Type, "hashing", "openai")
	check("ranker.policy", c.Ranker.Policy, "filtered", "strict")
	check("generator.type", c.Generator.Type, "openai", "extractive")
	if c.Chunker.Width < 1 {
		errs = append(errs, fmt.Errorf("chunker.width must be positive, got %d", c.Chunker.Width))
	}
	if c.Ranker.AnswerTopK < 1 || c.Ranker.QuizTopK < 1 {
		errs = append(errs, errors.New("ranker top_k values must be positive"))
	}
	return errors.Join(errs...)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: unknown value %q", s)
	}
	return l, nil
}
