package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	Sentry     SentryConfig
	Enrichment EnrichmentConfig
	Research   ResearchConfig
	Reasoning  ReasoningConfig
	Shortlist  ShortlistConfig
	Curation   CurationConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// SentryConfig holds error-reporting configuration.
type SentryConfig struct {
	DSN         string
	Environment string
}

// EnrichmentConfig tunes the bulk-enrichment stage.
type EnrichmentConfig struct {
	APIKey             string
	BaseURL            string
	TTL                time.Duration
	MaxPerBuild        int
	RatePerMinute      int
	PerPersonTimeout   time.Duration
}

// ResearchConfig tunes the optional web-research stage.
type ResearchConfig struct {
	Enabled          bool
	APIKey           string
	BaseURL          string
	RatePerMinute    int
	PerPersonTimeout time.Duration
	SliceSize        int
}

// ReasoningConfig tunes the four-agent reasoning ensemble.
type ReasoningConfig struct {
	AnthropicAPIKey  string
	Model            string
	PerAgentTimeout  time.Duration
	CacheTTL         time.Duration
	PromptsPath      string
}

// ShortlistConfig tunes the shortlist cache and build leases.
type ShortlistConfig struct {
	TTL                  time.Duration
	LeaseTTL             time.Duration
	LeaseRefreshInterval time.Duration
	FailedBackoff        time.Duration
}

// CurationConfig tunes the orchestrating engine.
type CurationConfig struct {
	WholeBuildDeadline     time.Duration
	DefaultLimit           int
	MaxLimit               int
	MinLimit               int
	EnrichmentSliceSize    int
	MinCandidatesToReason  int
	StaleOnErrorDefault    bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "curator"),
			Password:        getEnv("DB_PASSWORD", "curator"),
			DBName:          getEnv("DB_NAME", "curation"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Sentry: SentryConfig{
			DSN:         getEnv("SENTRY_DSN", ""),
			Environment: getEnv("SENTRY_ENVIRONMENT", getEnv("SERVER_ENV", "development")),
		},
		Enrichment: EnrichmentConfig{
			APIKey:           getEnv("ENRICHMENT_API_KEY", ""),
			BaseURL:          getEnv("ENRICHMENT_BASE_URL", ""),
			TTL:              getEnvAsDuration("ENRICHMENT_TTL", 30*24*time.Hour),
			MaxPerBuild:      getEnvAsInt("ENRICHMENT_MAX_PER_BUILD", 5),
			RatePerMinute:    getEnvAsInt("ENRICHMENT_RATE_PER_MINUTE", 60),
			PerPersonTimeout: getEnvAsDuration("ENRICHMENT_PER_PERSON_TIMEOUT", 15*time.Second),
		},
		Research: ResearchConfig{
			Enabled:          getEnvAsBool("RESEARCH_ENABLED", false),
			APIKey:           getEnv("RESEARCH_API_KEY", ""),
			BaseURL:          getEnv("RESEARCH_BASE_URL", ""),
			RatePerMinute:    getEnvAsInt("RESEARCH_RATE_PER_MINUTE", 30),
			PerPersonTimeout: getEnvAsDuration("RESEARCH_PER_PERSON_TIMEOUT", 20*time.Second),
			SliceSize:        getEnvAsInt("RESEARCH_SLICE_SIZE", 5),
		},
		Reasoning: ReasoningConfig{
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			Model:           getEnv("REASONING_MODEL", "claude-sonnet-4-5-20250929"),
			PerAgentTimeout: getEnvAsDuration("REASONING_PER_AGENT_TIMEOUT", 30*time.Second),
			CacheTTL:        getEnvAsDuration("REASONING_CACHE_TTL", time.Hour),
			PromptsPath:     getEnv("REASONING_PROMPTS_PATH", ""),
		},
		Shortlist: ShortlistConfig{
			TTL:                  getEnvAsDuration("SHORTLIST_TTL", 7*24*time.Hour),
			LeaseTTL:             getEnvAsDuration("SHORTLIST_LEASE_TTL", 2*time.Minute),
			LeaseRefreshInterval: getEnvAsDuration("SHORTLIST_LEASE_REFRESH_INTERVAL", 30*time.Second),
			FailedBackoff:        getEnvAsDuration("SHORTLIST_FAILED_BACKOFF", 5*time.Minute),
		},
		Curation: CurationConfig{
			WholeBuildDeadline:    getEnvAsDuration("CURATION_WHOLE_BUILD_DEADLINE", 5*time.Minute),
			DefaultLimit:          getEnvAsInt("CURATION_DEFAULT_LIMIT", 15),
			MaxLimit:              getEnvAsInt("CURATION_MAX_LIMIT", 50),
			MinLimit:              getEnvAsInt("CURATION_MIN_LIMIT", 1),
			EnrichmentSliceSize:   getEnvAsInt("CURATION_ENRICHMENT_SLICE_SIZE", 5),
			MinCandidatesToReason: getEnvAsInt("CURATION_MIN_CANDIDATES_TO_REASON", 1),
			StaleOnErrorDefault:   getEnvAsBool("CURATION_STALE_ON_ERROR_DEFAULT", true),
		},
	}

	return cfg, nil
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Addr returns the Redis address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
