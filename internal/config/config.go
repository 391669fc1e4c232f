package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Store backends selectable via STORE_BACKEND.
const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
)

// Config holds the runtime configuration for the chat API service,
// populated from environment variables.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"chat-api"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Data store selection. The memory backend keeps threads in process
	// and is the default for local development.
	StoreBackend   string        `env:"STORE_BACKEND" envDefault:"memory"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"50"`
	DBConnLifetime time.Duration `env:"DB_CONN_LIFETIME" envDefault:"30m"`

	// Authentication. When disabled every request is treated as the
	// anonymous caller, which is what local development wants.
	AuthEnabled  bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuer   string `env:"AUTH_ISSUER"`
	AuthAudience string `env:"AUTH_AUDIENCE"`
	JWKSURL      string `env:"JWKS_URL"`

	// Upstream agent (OpenAI-compatible chat completions endpoint).
	AgentAPIURL string `env:"AGENT_API_URL" envDefault:"http://localhost:11434/v1"`
	AgentModel  string `env:"AGENT_MODEL" envDefault:"gpt-4o-mini"`
	AgentAPIKey string `env:"AGENT_API_KEY"`

	// ResponseTimeout bounds a single streamed response end to end.
	// Zero disables the bound.
	ResponseTimeout time.Duration `env:"RESPONSE_TIMEOUT" envDefault:"2m"`
	// HistoryLimit caps how many prior items are replayed to the agent.
	HistoryLimit int `env:"HISTORY_LIMIT" envDefault:"100"`

	// Retention. Threads older than ThreadTTL are swept periodically.
	// Zero TTL disables the sweeper.
	ThreadTTL     time.Duration `env:"THREAD_TTL" envDefault:"0"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`

	EnableTracing bool   `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint  string `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.AuthEnabled && c.JWKSURL == "" {
		return fmt.Errorf("JWKS_URL is required when AUTH_ENABLED=true")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT %d out of range", c.HTTPPort)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("HISTORY_LIMIT must not be negative")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
