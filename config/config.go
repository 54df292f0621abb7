package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the legal QA tool.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CorpusConfig locates the source corpus files.
type CorpusConfig struct {
	StatutePath string   `yaml:"statute_path"`
	TermsPath   string   `yaml:"terms_path"`
	TermsGlobs  []string `yaml:"terms_globs"` // optional glob set merged over terms_path
}

// IndexConfig holds vector index configuration.
type IndexConfig struct {
	Backend           string `yaml:"backend"` // "bolt", "postgres"
	Path              string `yaml:"path"`    // bolt database file (default .lexrag/index.db)
	PostgresDSN       string `yaml:"postgres_dsn"`
	StatuteCollection string `yaml:"statute_collection"`
	TermsCollection   string `yaml:"terms_collection"`
	BatchSize         int    `yaml:"batch_size"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "ollama", "gemini", "mock"
	Model     string `yaml:"model"`       // e.g. "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // environment variable for the API key
	BaseURL   string `yaml:"base_url"`    // openai-compatible endpoint or ollama host
	Dimension int    `yaml:"dimension"`   // used by the mock provider
	CacheSize int    `yaml:"cache_size"`  // query embedding cache entries, 0 disables
}

// LLMConfig holds text generation configuration.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "openai", "ollama", "gemini"
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	PromptStyle string  `yaml:"prompt_style"` // "basic", "structured", "multistep"
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	NResults        int `yaml:"n_results"`
	MaxContextChars int `yaml:"max_context_chars"` // 0 = no budget
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			StatutePath: "data/processed/criminal_law/processed_law.json",
			TermsPath:   "data/processed/legal_terms/legal_terms.json",
		},
		Index: IndexConfig{
			Backend:           "bolt",
			StatuteCollection: "turkish_criminal_law",
			TermsCollection:   "turkish_legal_terms",
			BatchSize:         100,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			CacheSize: 256,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4-turbo-preview",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0,
			PromptStyle: "basic",
		},
		Retrieve: RetrieveConfig{
			NResults: 5,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for lexrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	// Try lexrag.yaml in the directory
	path := filepath.Join(dir, "lexrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Try .lexrag/config.yaml
	path = filepath.Join(dir, ".lexrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Return defaults
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the default path to the bolt index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".lexrag", "index.db")
}

// EnsureStateDir ensures the .lexrag directory exists.
func EnsureStateDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".lexrag"), 0755)
}
