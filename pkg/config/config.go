package config

import (
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for askdb-engine.
// Values come from config.yaml with environment variable overrides; when the
// file is absent, environment variables alone are used. Secrets (passwords,
// API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Redis    RedisConfig    `yaml:"redis"`
	MCP      MCPConfig      `yaml:"mcp"`
}

// AuthConfig holds bearer-token authentication settings.
type AuthConfig struct {
	// EnableVerification controls whether API requests must carry a valid
	// bearer token. Off by default for local development.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"false"`

	// SharedSecret signs and verifies HS256 tokens. Secret - not in YAML.
	SharedSecret string `yaml:"-" env:"AUTH_SHARED_SECRET"`
}

// DatabaseConfig holds PostgreSQL connection settings for the answer database.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"askdb"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"supply_chain"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`

	// RunMigrations applies the bundled demo schema and seed at startup.
	RunMigrations  bool   `yaml:"run_migrations" env:"PG_RUN_MIGRATIONS" env-default:"true"`
	MigrationsPath string `yaml:"migrations_path" env:"PG_MIGRATIONS_PATH" env-default:"migrations"`
}

// LLMConfig holds settings for the external generator and explainer.
type LLMConfig struct {
	// Provider selects the client implementation: "openai" (any
	// OpenAI-compatible endpoint, including OpenRouter) or "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`

	BaseURL     string  `yaml:"base_url" env:"LLM_BASE_URL" env-default:"https://openrouter.ai/api/v1"`
	Model       string  `yaml:"model" env:"LLM_MODEL" env-default:"openai/gpt-4o-mini"`
	MaxTokens   int     `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"1024"`
	Temperature float32 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0"`

	// TimeoutSeconds bounds a single provider round trip.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"60"`

	// Secrets - not in YAML.
	APIKey          string `yaml:"-" env:"LLM_API_KEY"`
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"`
}

// Timeout returns the provider round-trip budget.
func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PipelineConfig holds the validation and execution policy knobs.
type PipelineConfig struct {
	// MaxAttempts caps generator calls per request, counting the initial
	// generation. Repairs stop when the cap is reached.
	MaxAttempts int `yaml:"max_attempts" env:"PIPELINE_MAX_ATTEMPTS" env-default:"3"`

	// RowLimit caps rows returned from one query.
	RowLimit int `yaml:"row_limit" env:"PIPELINE_ROW_LIMIT" env-default:"100"`

	// TimeBudgetMS is the hard execution deadline per query.
	TimeBudgetMS int `yaml:"time_budget_ms" env:"PIPELINE_TIME_BUDGET_MS" env-default:"10000"`

	// ExplanationRows is how many result rows the explainer sees.
	ExplanationRows int `yaml:"explanation_rows" env:"PIPELINE_EXPLANATION_ROWS" env-default:"10"`

	// MaxQuestionLen rejects questions longer than this many bytes.
	MaxQuestionLen int `yaml:"max_question_len" env:"PIPELINE_MAX_QUESTION_LEN" env-default:"500"`

	// CacheTTLMinutes is how long accepted SQL stays in the answer cache.
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" env:"PIPELINE_CACHE_TTL_MINUTES" env-default:"60"`
}

// TimeBudget returns the per-query execution deadline.
func (c *PipelineConfig) TimeBudget() time.Duration {
	return time.Duration(c.TimeBudgetMS) * time.Millisecond
}

// CacheTTL returns the answer-cache entry lifetime.
func (c *PipelineConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// CatalogConfig holds schema catalog settings.
type CatalogConfig struct {
	// Schema is the PostgreSQL schema to introspect.
	Schema string `yaml:"schema" env:"CATALOG_SCHEMA" env-default:"public"`

	// CachePath points to the on-disk snapshot cache. Empty disables the
	// file cache; the catalog then requires a reachable database at startup.
	CachePath string `yaml:"cache_path" env:"CATALOG_CACHE_PATH" env-default:""`

	LoadTimeoutSeconds int `yaml:"load_timeout_seconds" env:"CATALOG_LOAD_TIMEOUT_SECONDS" env-default:"30"`
}

// LoadTimeout returns the budget for one catalog load.
func (c *CatalogConfig) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutSeconds) * time.Second
}

// RedisConfig holds the optional answer-cache backend. An empty host
// disables caching entirely.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Addr returns host:port with Docker-aware host resolution applied.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port)
}

// MCPConfig controls the MCP tool surface.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
	Path    string `yaml:"path" env:"MCP_PATH" env-default:"/mcp"`
}

// Load reads configuration from config.yaml with environment variable
// overrides; when the file does not exist, environment variables alone are
// read. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set.
	// Use HTTPS scheme if TLS is configured.
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	if cfg.Auth.EnableVerification && cfg.Auth.SharedSecret == "" {
		return nil, fmt.Errorf("AUTH_SHARED_SECRET is required when auth verification is enabled")
	}

	return cfg, nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and the files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// ConnectionString returns a PostgreSQL connection string with Docker-aware
// host resolution applied.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker reports whether the process runs inside a Docker
// container, detected via /.dockerenv. The result is cached.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker maps localhost to host.docker.internal when running
// inside Docker so the engine can reach services on the host machine.
func ResolveHostForDocker(host string) string {
	if !IsRunningInDocker() {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}
