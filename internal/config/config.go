package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Provider and backend names.
const (
	CacheNone  = "none"
	CacheRedis = "redis"

	BackendLocal = "local"
	BackendQueue = "queue"
)

// Config holds runtime configuration for every binary.
type Config struct {
	// Server
	Port        int      `env:"PORT" envDefault:"8080"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// Limits
	MaxTextBytes   int           `env:"MAX_TEXT_BYTES" envDefault:"2097152"`   // 2MB
	MaxUploadSize  int64         `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB
	// PreviewTimeout bounds one strategy run. Strategies poll for it between
	// steps, so a run overshoots by at most a few steps.
	PreviewTimeout time.Duration `env:"PREVIEW_TIMEOUT" envDefault:"5s"`

	// Token estimation: "heuristic" or "tiktoken"
	TokenizerBackend string `env:"TOKENIZER_BACKEND" envDefault:"heuristic"`

	// Cache: "none" or "redis"
	CacheProvider string        `env:"CACHE_PROVIDER" envDefault:"none"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"10m"`

	// Where the gateway runs previews: "local" or "queue"
	PreviewBackend string        `env:"PREVIEW_BACKEND" envDefault:"local"`
	QueueURL       string        `env:"QUEUE_URL"`
	QueueSubject   string        `env:"QUEUE_SUBJECT" envDefault:"chunks.preview"`
	QueueTimeout   time.Duration `env:"QUEUE_TIMEOUT" envDefault:"10s"`
	QueueRetries   int           `env:"QUEUE_RETRIES" envDefault:"3"`
	QueueRetryBase time.Duration `env:"QUEUE_RETRY_BASE" envDefault:"100ms"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

// Validate rejects unknown providers and missing required settings.
func (c Config) Validate() error {
	switch c.TokenizerBackend {
	case "heuristic", "tiktoken":
	default:
		return fmt.Errorf("invalid TOKENIZER_BACKEND: %s (valid options: heuristic, tiktoken)", c.TokenizerBackend)
	}
	switch c.CacheProvider {
	case CacheNone, CacheRedis:
	default:
		return fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: none, redis)", c.CacheProvider)
	}
	switch c.PreviewBackend {
	case BackendLocal:
	case BackendQueue:
		if c.QueueURL == "" {
			return fmt.Errorf("QUEUE_URL is required when PREVIEW_BACKEND=queue")
		}
	default:
		return fmt.Errorf("invalid PREVIEW_BACKEND: %s (valid options: local, queue)", c.PreviewBackend)
	}
	if c.MaxTextBytes <= 0 {
		return fmt.Errorf("MAX_TEXT_BYTES must be positive")
	}
	if c.QueueRetries <= 0 {
		return fmt.Errorf("QUEUE_RETRIES must be positive")
	}
	return nil
}
