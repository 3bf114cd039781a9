package model

import "time"

// Config is the complete claimguard configuration
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Classifier  ClassifierConfig  `yaml:"classifier" mapstructure:"classifier"`
	Memory      MemoryConfig      `yaml:"memory" mapstructure:"memory"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" mapstructure:"retrieval"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
}

// StoreConfig selects the claim store backend
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // memory, sqlite, postgres
	Path   string `yaml:"path" mapstructure:"path"`     // SQLite database file
	DSN    string `yaml:"dsn" mapstructure:"dsn"`       // Postgres connection string
}

// ClassifierConfig selects and bounds the fraud classifier
type ClassifierConfig struct {
	Kind      string        `yaml:"kind" mapstructure:"kind"`             // logistic, remote
	ModelPath string        `yaml:"model_path" mapstructure:"model_path"` // Logistic weights YAML
	Endpoint  string        `yaml:"endpoint" mapstructure:"endpoint"`     // Remote model server URL
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Breaker   BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// MemoryConfig configures the external semantic memory
type MemoryConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisAddr      string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword  string        `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB        int           `yaml:"redis_db" mapstructure:"redis_db"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	EmbeddingModel string        `yaml:"embedding_model" mapstructure:"embedding_model"`
	APIKey         string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RateLimit      float64       `yaml:"rate_limit" mapstructure:"rate_limit"` // Requests per second
	Burst          int           `yaml:"burst" mapstructure:"burst"`
	EmbeddingTTL   time.Duration `yaml:"embedding_ttl" mapstructure:"embedding_ttl"`
	Breaker        BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// LLMConfig configures the narrative generator
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, gemini, "" (disabled)
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	HTTPProxy  string `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy" mapstructure:"https_proxy"`
}

// RetrievalConfig bounds similar-case retrieval
type RetrievalConfig struct {
	MaxResults   int     `yaml:"max_results" mapstructure:"max_results"`
	MinRelevance float64 `yaml:"min_relevance" mapstructure:"min_relevance"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json, console
}

// ConcurrencyConfig bounds batch evaluation
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// BreakerConfig tunes a circuit breaker guarding an external call
type BreakerConfig struct {
	FailureThreshold uint32        `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	Interval         time.Duration `yaml:"interval" mapstructure:"interval"`
	OpenTimeout      time.Duration `yaml:"open_timeout" mapstructure:"open_timeout"`
}

// DefaultBreaker returns the breaker settings used when none are configured
func DefaultBreaker() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Interval:         60 * time.Second,
		OpenTimeout:      30 * time.Second,
	}
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "claimguard.db",
		},
		Classifier: ClassifierConfig{
			Kind:    "logistic",
			Timeout: 5 * time.Second,
			Breaker: DefaultBreaker(),
		},
		Memory: MemoryConfig{
			Enabled:        false,
			RedisAddr:      "localhost:6379",
			KeyPrefix:      "claimguard:kb",
			EmbeddingModel: "text-embedding-3-small",
			Timeout:        3 * time.Second,
			RateLimit:      10,
			Burst:          5,
			EmbeddingTTL:   24 * time.Hour,
			Breaker:        DefaultBreaker(),
		},
		LLM: LLMConfig{
			Provider:  "", // Disabled by default
			Timeout:   30,
			MaxTokens: 600,
		},
		Retrieval: RetrievalConfig{
			MaxResults:   5,
			MinRelevance: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
	}
}
