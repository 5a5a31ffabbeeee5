package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinHS256SecretBytes is the minimum decoded length of JWT_HS256_SECRET.
const MinHS256SecretBytes = 32

// Config holds all application configuration
type Config struct {
	// Server
	Port     string `env:"PORT" envDefault:"8080"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Persistence. Both are optional: without DATABASE_URL state lives in
	// memory only, without REDIS_URL rate limiting and recording state are
	// per process.
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	// JWT
	JWTHS256Secret      string `env:"JWT_HS256_SECRET,required"` // base64
	JWTAllowedIssuers   string `env:"JWT_ALLOWED_ISSUERS" envDefault:"meetspace-web"`
	JWTAudience         string `env:"JWT_AUDIENCE" envDefault:"meetspace-api"`
	JWTClockSkewSeconds int    `env:"JWT_CLOCK_SKEW_SECONDS" envDefault:"60"`
	JWTPublicKeyRS256   string `env:"JWT_PUBLIC_KEY_RS256"`
	JWTRS256Issuer      string `env:"JWT_RS256_ISSUER" envDefault:"meetspace-service"`

	// OpenTelemetry
	OTELEnabled          bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELExporterEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELServiceName      string  `env:"OTEL_SERVICE_NAME" envDefault:"meetspace-api"`
	OTELSamplingRatio    float64 `env:"OTEL_SAMPLING_RATIO" envDefault:"0.1"`

	// Prometheus
	MetricsToken string `env:"METRICS_TOKEN"`

	// Rate limiting
	RateLimitPerWorkspacePerMin int `env:"RATE_LIMIT_PER_WORKSPACE_PER_MIN" envDefault:"600"`

	// Domain
	RolesFile          string `env:"ROLES_FILE"`
	TranslationURL     string `env:"TRANSLATION_URL"`
	AuditRetentionDays int    `env:"AUDIT_RETENTION_DAYS" envDefault:"90"`
	RecordingMaxHours  int    `env:"RECORDING_MAX_HOURS" envDefault:"12"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate performs custom validation on the configuration
func (c *Config) Validate() error {
	if _, err := c.HS256Secret(); err != nil {
		return err
	}

	if len(c.GetAllowedIssuers()) == 0 {
		return fmt.Errorf("JWT_ALLOWED_ISSUERS must contain at least one valid issuer")
	}

	if strings.TrimSpace(c.JWTAudience) == "" {
		return fmt.Errorf("JWT_AUDIENCE is required")
	}

	if c.JWTClockSkewSeconds < 0 {
		return fmt.Errorf("JWT_CLOCK_SKEW_SECONDS must be non-negative")
	}

	if c.OTELSamplingRatio < 0 || c.OTELSamplingRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATIO must be between 0 and 1")
	}

	if c.RateLimitPerWorkspacePerMin <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_WORKSPACE_PER_MIN must be positive")
	}

	if c.AuditRetentionDays <= 0 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must be positive")
	}

	if c.RecordingMaxHours <= 0 {
		return fmt.Errorf("RECORDING_MAX_HOURS must be positive")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}

	return nil
}

// HS256Secret decodes JWT_HS256_SECRET.
func (c *Config) HS256Secret() ([]byte, error) {
	if c.JWTHS256Secret == "" {
		return nil, fmt.Errorf("JWT_HS256_SECRET is required")
	}
	secret, err := base64.StdEncoding.DecodeString(c.JWTHS256Secret)
	if err != nil {
		return nil, fmt.Errorf("JWT_HS256_SECRET must be valid base64: %w", err)
	}
	if len(secret) < MinHS256SecretBytes {
		return nil, fmt.Errorf("JWT_HS256_SECRET must decode to at least %d bytes, got %d", MinHS256SecretBytes, len(secret))
	}
	return secret, nil
}

// GetAllowedIssuers returns the list of allowed JWT issuers
func (c *Config) GetAllowedIssuers() []string {
	issuers := strings.Split(c.JWTAllowedIssuers, ",")
	result := make([]string, 0, len(issuers))
	for _, issuer := range issuers {
		trimmed := strings.TrimSpace(issuer)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ClockSkew returns the tolerated token clock skew.
func (c *Config) ClockSkew() time.Duration {
	return time.Duration(c.JWTClockSkewSeconds) * time.Second
}

// AuditRetention returns how long audit entries are kept.
func (c *Config) AuditRetention() time.Duration {
	return time.Duration(c.AuditRetentionDays) * 24 * time.Hour
}

// RecordingMaxDuration bounds how long a recording flag survives in Redis.
func (c *Config) RecordingMaxDuration() time.Duration {
	return time.Duration(c.RecordingMaxHours) * time.Hour
}

// TelemetryEnabled reports whether OTLP exporters should be started.
func (c *Config) TelemetryEnabled() bool {
	return c.OTELEnabled && c.OTELExporterEndpoint != ""
}

// IsDev reports whether development-only routes are served.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}
