package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Model providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8017"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	StoreBackend     string `envconfig:"STORE_BACKEND" default:"postgres"`
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	SQLitePath       string `envconfig:"SQLITE_PATH" default:"askdocs.db"`
	MigrationsPath   string `envconfig:"MIGRATIONS_PATH" default:"migrations"`

	EmbeddingProvider    string        `envconfig:"EMBEDDING_PROVIDER" default:"ollama"`
	EmbeddingModel       string        `envconfig:"EMBEDDING_MODEL"`
	EmbeddingDimensions  int           `envconfig:"EMBEDDING_DIMENSIONS" default:"384"`
	EmbeddingTimeout     time.Duration `envconfig:"EMBEDDING_TIMEOUT" default:"30s"`
	EmbeddingConcurrency int           `envconfig:"EMBEDDING_CONCURRENCY" default:"4"`

	GenerationProvider string        `envconfig:"GENERATION_PROVIDER" default:"ollama"`
	GenerationModel    string        `envconfig:"GENERATION_MODEL"`
	GenerationTimeout  time.Duration `envconfig:"GENERATION_TIMEOUT" default:"2m"`

	OllamaURL     string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"512"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"0"`
	TopK         int `envconfig:"TOP_K" default:"3"`

	MaxUploadBytes     int64    `envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`
	RateLimitRPS       float64  `envconfig:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst     int      `envconfig:"RATE_LIMIT_BURST" default:"20"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	InboxDir      string        `envconfig:"INBOX_DIR"`
	InboxInterval time.Duration `envconfig:"INBOX_INTERVAL" default:"10s"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"askdocs-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads ASKDOCS_* variables, after loading a .env file if present, and
// validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("ASKDOCS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks backend-specific requirements and numeric bounds.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_BACKEND=postgres"))
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required when STORE_BACKEND=sqlite"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q (want postgres, sqlite or memory)", c.StoreBackend))
	}

	for name, provider := range map[string]string{
		"EMBEDDING_PROVIDER":  c.EmbeddingProvider,
		"GENERATION_PROVIDER": c.GenerationProvider,
	} {
		switch provider {
		case ProviderOllama:
			if c.OllamaURL == "" {
				errs = append(errs, fmt.Errorf("OLLAMA_URL is required when %s=ollama", name))
			}
		case ProviderOpenAI:
			if c.OpenAIAPIKey == "" {
				errs = append(errs, fmt.Errorf("OPENAI_API_KEY is required when %s=openai", name))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown %s %q (want ollama or openai)", name, provider))
		}
	}

	if c.EmbeddingDimensions < 1 {
		errs = append(errs, errors.New("EMBEDDING_DIMENSIONS must be positive"))
	}
	if c.ChunkSize < 1 {
		errs = append(errs, errors.New("CHUNK_SIZE must be positive"))
	}
	if c.ChunkOverlap < 0 {
		errs = append(errs, errors.New("CHUNK_OVERLAP cannot be negative"))
	}
	if c.InboxDir != "" && c.InboxInterval <= 0 {
		errs = append(errs, errors.New("INBOX_INTERVAL must be positive when INBOX_DIR is set"))
	}
	if c.TopK < 1 {
		errs = append(errs, errors.New("TOP_K must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasInbox() bool {
	return c.InboxDir != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

// AllowsAnyOrigin reports whether CORS is open to every origin.
func (c *Config) AllowsAnyOrigin() bool {
	for _, origin := range c.CORSAllowedOrigins {
		if strings.TrimSpace(origin) == "*" {
			return true
		}
	}
	return false
}
