package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Judge    JudgeConfig    `mapstructure:"judge" yaml:"judge"`
	Scoring  ScoringConfig  `mapstructure:"scoring" yaml:"scoring"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// LoggingConfig holds all the configuration for the logger.
type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	File        string `mapstructure:"file" yaml:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// JudgeProvider identifies the LLM backend used for match judgments.
type JudgeProvider string

const (
	ProviderOpenAI JudgeProvider = "openai"
	ProviderGemini JudgeProvider = "gemini"
	// ProviderLexical is a deterministic offline judge built on word-overlap
	// scoring. It needs no API key and exists for dry runs and tests.
	ProviderLexical JudgeProvider = "lexical"
)

// JudgeConfig holds settings for the LLM judge client.
type JudgeConfig struct {
	Provider JudgeProvider `mapstructure:"provider" yaml:"provider"`
	Model    string        `mapstructure:"model" yaml:"model"`
	// APIKey is never written back to config files.
	APIKey         string          `mapstructure:"api_key" yaml:"-"`
	Endpoint       string          `mapstructure:"endpoint" yaml:"endpoint"`
	Temperature    float32         `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int             `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout" yaml:"request_timeout"`
	// MaxRetries bounds retries of transient failures (timeouts, 429s, 5xx).
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	// MalformedRetries bounds re-asks after an unparseable judge response.
	// Kept lower than MaxRetries because a model that answered garbage once
	// tends to keep doing so.
	MalformedRetries int             `mapstructure:"malformed_retries" yaml:"malformed_retries"`
	RateLimit        RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig caps the request rate against the judge API. The limiter
// built from it is shared by every concurrent worker in a run.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps" yaml:"rps"`
	Burst int     `mapstructure:"burst" yaml:"burst"`
}

// ScoringConfig tunes the matching pipeline.
type ScoringConfig struct {
	// Iterations is the number of independent judge passes per truth finding
	// that feed the majority vote.
	Iterations int `mapstructure:"iterations" yaml:"iterations"`
	// BatchSize is how many candidate findings are shown to the judge per call.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
	// Concurrency bounds how many truth findings are evaluated in parallel.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	// ShortCircuitExact stops scanning later batches once a batch returns an
	// exact match. Disable to always scan every batch and keep the
	// lowest-index exact match.
	ShortCircuitExact   bool    `mapstructure:"short_circuit_exact" yaml:"short_circuit_exact"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	// ExcludedSeverities lists additional severities to leave out of the
	// false positive pool. Informational findings are always excluded.
	ExcludedSeverities []string `mapstructure:"excluded_severities" yaml:"excluded_severities"`
}

// DatabaseConfig holds the database connection details. Persistence is
// optional; an empty URL disables the store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logging --
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.service_name", "scabench")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	// -- Judge --
	v.SetDefault("judge.provider", "openai")
	v.SetDefault("judge.model", "gpt-4o-mini")
	v.SetDefault("judge.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("judge.temperature", 0.0)
	v.SetDefault("judge.max_tokens", 1024)
	v.SetDefault("judge.request_timeout", "90s")
	v.SetDefault("judge.max_retries", 3)
	v.SetDefault("judge.malformed_retries", 1)
	v.SetDefault("judge.rate_limit.rps", 2.0)
	v.SetDefault("judge.rate_limit.burst", 4)

	// -- Scoring --
	v.SetDefault("scoring.iterations", 3)
	v.SetDefault("scoring.batch_size", 10)
	v.SetDefault("scoring.concurrency", 5)
	v.SetDefault("scoring.short_circuit_exact", true)
	v.SetDefault("scoring.confidence_threshold", 0.75)
	v.SetDefault("scoring.excluded_severities", []string{})
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("judge.api_key", "SCABENCH_JUDGE_API_KEY")
	v.BindEnv("database.url", "SCABENCH_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Fall back to the provider's conventional key variable.
	if cfg.Judge.APIKey == "" {
		switch cfg.Judge.Provider {
		case ProviderOpenAI:
			cfg.Judge.APIKey = os.Getenv("OPENAI_API_KEY")
		case ProviderGemini:
			cfg.Judge.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Judge.Validate(); err != nil {
		return fmt.Errorf("judge configuration invalid: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the judge client settings. The API key is deliberately not
// checked here; it is only required once a client is actually constructed.
func (j *JudgeConfig) Validate() error {
	switch j.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderLexical:
	default:
		return NewConfigurationError("judge.provider",
			fmt.Sprintf("unsupported provider %q (expected openai, gemini, or lexical)", j.Provider))
	}
	if j.Model == "" {
		return NewConfigurationError("judge.model", "must not be empty")
	}
	if j.RequestTimeout <= 0 {
		return NewConfigurationError("judge.request_timeout", "must be a positive duration")
	}
	if j.MaxRetries < 0 {
		return NewConfigurationError("judge.max_retries", "must not be negative")
	}
	if j.MalformedRetries < 0 {
		return NewConfigurationError("judge.malformed_retries", "must not be negative")
	}
	if j.RateLimit.RPS <= 0 {
		return NewConfigurationError("judge.rate_limit.rps", "must be a positive rate")
	}
	if j.RateLimit.Burst < 1 {
		return NewConfigurationError("judge.rate_limit.burst", "must be at least 1")
	}
	return nil
}

// Validate checks the scoring pipeline settings.
func (s *ScoringConfig) Validate() error {
	if s.Iterations < 1 {
		return NewConfigurationError("scoring.iterations", "must be at least 1")
	}
	if s.BatchSize < 1 {
		return NewConfigurationError("scoring.batch_size", "must be at least 1")
	}
	if s.Concurrency < 1 {
		return NewConfigurationError("scoring.concurrency", "must be at least 1")
	}
	if s.ConfidenceThreshold < 0.0 || s.ConfidenceThreshold > 1.0 {
		return NewConfigurationError("scoring.confidence_threshold", "must be between 0.0 and 1.0")
	}
	return nil
}
