package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// ServiceTokenHash is the sha256 hex of the bearer token presented by the
	// upstream gateway. User identity itself arrives on X-User-Id, already
	// authenticated upstream.
	ServiceTokenHash string `env:"SERVICE_TOKEN_HASH"`
	// AdminTokenHash is a bcrypt hash of the admin bearer token.
	AdminTokenHash string `env:"ADMIN_TOKEN_HASH"`

	// Feature cost table. Costs are credits per reading mode.
	CostSingleCard int64 `env:"COST_SINGLE_CARD" envDefault:"1"`
	CostThreeCard  int64 `env:"COST_THREE_CARD" envDefault:"1"`
	CostClassic10  int64 `env:"COST_CLASSIC10" envDefault:"5"`

	// RefundOnFailure credits the debited cost back when generation fails.
	RefundOnFailure bool `env:"REFUND_ON_FAILURE" envDefault:"true"`

	GenerationBaseURL        string `env:"GENERATION_BASE_URL" envDefault:"https://api.openai.com/v1"`
	GenerationAPIKey         string `env:"GENERATION_API_KEY"`
	GenerationModel          string `env:"GENERATION_MODEL" envDefault:"gpt-4o-mini"`
	GenerationTimeoutSeconds int    `env:"GENERATION_TIMEOUT_SECONDS" envDefault:"60"`

	LedgerRetentionDays int `env:"LEDGER_RETENTION_DAYS" envDefault:"90"`
	RateLimitPerMin     int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

func (c *Config) LedgerRetention() time.Duration {
	return time.Duration(c.LedgerRetentionDays) * 24 * time.Hour
}

func (c *Config) Validate(isProduction bool) error {
	if c.AdminTokenHash != "" {
		if !strings.HasPrefix(c.AdminTokenHash, "$2a$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2b$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2y$") {
			return fmt.Errorf("ADMIN_TOKEN_HASH must be a bcrypt hash (generate with: go run scripts/hash-token.go <token>)")
		}
	}

	if c.CostSingleCard < 0 || c.CostThreeCard < 0 || c.CostClassic10 < 0 {
		return fmt.Errorf("feature costs must be non-negative")
	}

	if isProduction {
		if c.ServiceTokenHash == "" {
			return fmt.Errorf("SERVICE_TOKEN_HASH is required in production")
		}
		if c.AdminTokenHash == "" {
			return fmt.Errorf("ADMIN_TOKEN_HASH is required in production")
		}
		if c.GenerationAPIKey == "" {
			log.Warn().Msg("GENERATION_API_KEY is empty in production: readings will fail")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
