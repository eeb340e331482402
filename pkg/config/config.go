package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for nutriarab-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL with pgvector)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional, used for distributed session locks)
	Redis RedisConfig `yaml:"redis"`

	// AI provider configuration (embedding + breakdown)
	AI AIConfig `yaml:"ai"`

	// Resolution holds the matching policy tunables.
	Resolution ResolutionConfig `yaml:"resolution"`

	// Session behavior
	Session SessionConfig `yaml:"session"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"nutriarab"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"nutriarab_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// RedisConfig holds Redis configuration. Redis is optional: when Host is
// empty the engine falls back to in-process session locking.
type RedisConfig struct {
	Host     string        `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int           `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string        `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	LockTTL  time.Duration `yaml:"lock_ttl" env:"REDIS_LOCK_TTL" env-default:"30s"`
}

// AIConfig holds provider endpoints for the breakdown LLM and embeddings.
type AIConfig struct {
	// OpenAI-compatible chat endpoint used for food breakdown analysis.
	LLMBaseURL string `yaml:"llm_base_url" env:"AI_LLM_BASE_URL" env-default:"https://api.openai.com/v1"`
	LLMModel   string `yaml:"llm_model" env:"AI_LLM_MODEL" env-default:"gpt-4o"`
	LLMAPIKey  string `yaml:"-" env:"AI_LLM_API_KEY"` // Secret - not in YAML

	// Embedding endpoint. Defaults to the LLM endpoint when empty.
	EmbeddingBaseURL   string `yaml:"embedding_base_url" env:"AI_EMBEDDING_BASE_URL" env-default:""`
	EmbeddingModel     string `yaml:"embedding_model" env:"AI_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	EmbeddingAPIKey    string `yaml:"-" env:"AI_EMBEDDING_API_KEY"` // Secret - not in YAML
	EmbeddingDimension int    `yaml:"embedding_dimension" env:"AI_EMBEDDING_DIMENSION" env-default:"384"`

	// Anthropic configuration. When an API key is present the breakdown
	// provider uses Anthropic instead of the OpenAI-compatible endpoint.
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
	AnthropicModel  string `yaml:"anthropic_model" env:"AI_ANTHROPIC_MODEL" env-default:"claude-sonnet-4-5-20250929"`

	// RequestTimeout bounds every external provider call.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"AI_REQUEST_TIMEOUT" env-default:"30s"`
}

// EffectiveEmbeddingBaseURL returns the embedding endpoint, falling back to
// the LLM endpoint when no dedicated one is configured.
func (c *AIConfig) EffectiveEmbeddingBaseURL() string {
	if c.EmbeddingBaseURL != "" {
		return c.EmbeddingBaseURL
	}
	return c.LLMBaseURL
}

// EffectiveEmbeddingAPIKey returns the embedding API key, falling back to the
// LLM key when no dedicated one is configured.
func (c *AIConfig) EffectiveEmbeddingAPIKey() string {
	if c.EmbeddingAPIKey != "" {
		return c.EmbeddingAPIKey
	}
	return c.LLMAPIKey
}

// ResolutionConfig holds the matching policy. These are data, not code: the
// resolver derives its threshold ladder and guards from these values.
type ResolutionConfig struct {
	// SimilarityThreshold is the minimum cosine similarity for a vector
	// match to be accepted.
	SimilarityThreshold float64 `yaml:"similarity_threshold" env:"RESOLUTION_SIMILARITY_THRESHOLD" env-default:"0.6"`

	// MinConfidence gates direct catalog answers: a match below this
	// similarity falls through to the breakdown estimate even if it cleared
	// SimilarityThreshold.
	MinConfidence float64 `yaml:"min_confidence" env:"RESOLUTION_MIN_CONFIDENCE" env-default:"0.70"`

	// ThresholdFloor and ThresholdStep shape the global-search ladder:
	// thresholds are tried from SimilarityThreshold down by ThresholdStep
	// until ThresholdFloor, inclusive.
	ThresholdFloor float64 `yaml:"threshold_floor" env:"RESOLUTION_THRESHOLD_FLOOR" env-default:"0.4"`
	ThresholdStep  float64 `yaml:"threshold_step" env:"RESOLUTION_THRESHOLD_STEP" env-default:"0.1"`

	// MaxExtraTokens is the superset guard for ingredient matching: a
	// reference food whose description carries more than this many
	// meaningful tokens beyond the query is rejected as a composite product.
	MaxExtraTokens int `yaml:"max_extra_tokens" env:"RESOLUTION_MAX_EXTRA_TOKENS" env-default:"3"`

	// SearchLimit is how many nearest neighbors to fetch per vector query.
	SearchLimit int `yaml:"search_limit" env:"RESOLUTION_SEARCH_LIMIT" env-default:"10"`
}

// ThresholdLadder returns the ordered list of thresholds to try during the
// global vector phase, from SimilarityThreshold down to ThresholdFloor.
func (c *ResolutionConfig) ThresholdLadder() []float64 {
	step := c.ThresholdStep
	if step <= 0 {
		step = 0.1
	}
	var ladder []float64
	// Small epsilon so 0.6 - 0.1 - 0.1 lands on the 0.4 floor despite
	// binary float drift.
	for t := c.SimilarityThreshold; t >= c.ThresholdFloor-1e-9; t -= step {
		ladder = append(ladder, t)
	}
	if len(ladder) == 0 {
		ladder = []float64{c.SimilarityThreshold}
	}
	return ladder
}

// SessionConfig holds conversation behavior settings.
type SessionConfig struct {
	// DefaultCountry is used when neither the request nor the stored
	// session carries one.
	DefaultCountry string `yaml:"default_country" env:"SESSION_DEFAULT_COUNTRY" env-default:"lebanon"`

	// HistoryLimit is how many recent exchanges are fed back to the
	// breakdown provider as conversational context.
	HistoryLimit int `yaml:"history_limit" env:"SESSION_HISTORY_LIMIT" env-default:"3"`

	// DefaultAddWeightGrams is the weight assumed for an added ingredient
	// when the user does not state one.
	DefaultAddWeightGrams float64 `yaml:"default_add_weight_g" env:"SESSION_DEFAULT_ADD_WEIGHT_G" env-default:"100"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints the struct tags cannot express.
func (c *Config) Validate() error {
	r := c.Resolution
	if r.SimilarityThreshold <= 0 || r.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in (0, 1], got %v", r.SimilarityThreshold)
	}
	if r.ThresholdFloor > r.SimilarityThreshold {
		return fmt.Errorf("threshold_floor %v exceeds similarity_threshold %v", r.ThresholdFloor, r.SimilarityThreshold)
	}
	if r.MinConfidence < r.SimilarityThreshold {
		return fmt.Errorf("min_confidence %v below similarity_threshold %v", r.MinConfidence, r.SimilarityThreshold)
	}
	if c.AI.EmbeddingDimension <= 0 {
		return fmt.Errorf("embedding_dimension must be positive, got %d", c.AI.EmbeddingDimension)
	}
	if c.Session.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative, got %d", c.Session.HistoryLimit)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
