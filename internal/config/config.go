package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all environmentally dependent settings for the Professor
// Oak card-retrieval service.
type Config struct {
	GeminiAPIKey       string `env:"PROFOAK_GEMINI_API_KEY"`
	EmbeddingModel     string `env:"PROFOAK_EMBEDDING_MODEL" envDefault:"text-embedding-004"`
	EmbeddingDimension int    `env:"PROFOAK_EMBEDDING_DIMENSION" envDefault:"768"`

	QdrantHost       string `env:"PROFOAK_QDRANT_HOST" envDefault:"localhost"`
	QdrantPort       int    `env:"PROFOAK_QDRANT_PORT" envDefault:"6334"`
	QdrantAPIKey     string `env:"PROFOAK_QDRANT_API_KEY"`
	QdrantCollection string `env:"PROFOAK_QDRANT_COLLECTION" envDefault:"pokemon-cards"`

	TCGdexBaseURL string `env:"PROFOAK_TCGDEX_BASE_URL" envDefault:"https://api.tcgdex.net/v2"`
	Language      string `env:"PROFOAK_LANGUAGE" envDefault:"en"`

	// Sets whose ids start with this prefix belong to the mobile game
	// this deployment indexes.
	SetPrefix string `env:"PROFOAK_SET_PREFIX" envDefault:"A"`

	CardFetchDelayMS int `env:"PROFOAK_CARD_FETCH_DELAY_MS" envDefault:"100"`
	UpsertBatchSize  int `env:"PROFOAK_UPSERT_BATCH_SIZE" envDefault:"100"`

	ReadyPollIntervalSec int `env:"PROFOAK_READY_POLL_INTERVAL_SEC" envDefault:"2"`
	ReadyMaxAttempts     int `env:"PROFOAK_READY_MAX_ATTEMPTS" envDefault:"60"`

	// Minimum similarity score for accepting a substring name match
	// during recommendation resolution.
	MatchThreshold float32 `env:"PROFOAK_MATCH_THRESHOLD" envDefault:"0.85"`
	// Maximum copies of a single card a recommendation may suggest.
	MaxQuantity int `env:"PROFOAK_MAX_QUANTITY" envDefault:"2"`

	RateLimitRequests  int `env:"PROFOAK_RATE_LIMIT_REQUESTS" envDefault:"8"`
	RateLimitWindowSec int `env:"PROFOAK_RATE_LIMIT_WINDOW_SEC" envDefault:"60"`

	LogLevel string `env:"PROFOAK_LOG_LEVEL" envDefault:"info"`
}

// Validate ensures required settings are present and in range.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("PROFOAK_GEMINI_API_KEY is required")
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("PROFOAK_EMBEDDING_DIMENSION must be positive")
	}
	if c.QdrantPort <= 0 || c.QdrantPort > 65535 {
		return fmt.Errorf("PROFOAK_QDRANT_PORT must be between 1 and 65535")
	}
	if c.UpsertBatchSize < 1 || c.UpsertBatchSize > 100 {
		return fmt.Errorf("PROFOAK_UPSERT_BATCH_SIZE must be between 1 and 100")
	}
	if c.ReadyMaxAttempts < 1 {
		return fmt.Errorf("PROFOAK_READY_MAX_ATTEMPTS must be at least 1")
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("PROFOAK_MATCH_THRESHOLD must be between 0 and 1")
	}
	if c.MaxQuantity < 1 || c.MaxQuantity > 4 {
		return fmt.Errorf("PROFOAK_MAX_QUANTITY must be between 1 and 4")
	}
	if c.RateLimitRequests < 1 {
		return fmt.Errorf("PROFOAK_RATE_LIMIT_REQUESTS must be at least 1")
	}
	return nil
}

// Load reads settings from the environment (and .env, when present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
