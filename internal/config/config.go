// Package config loads application configuration from YAML and environment
// variables. Priority: ENV > YAML > env-default tags.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Retention RetentionConfig `yaml:"retention"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"PORT"                    env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
	// SecureCookies sets the Secure flag on session cookies. Turn off only for
	// plain-http local development.
	SecureCookies bool `yaml:"secure_cookies" env:"SERVER_SECURE_COOKIES" env-default:"true"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects and configures the store.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"            env:"DB_DRIVER"            env-default:"sqlite"`
	Path            string        `yaml:"path"              env:"DB_PATH"              env-default:"data/pollboard.db"`
	DSN             string        `yaml:"dsn"               env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"         env:"DB_MAX_CONNS"         env-default:"10"`
	MinConns        int32         `yaml:"min_conns"         env:"DB_MIN_CONNS"         env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME" env-default:"1h"`
}

// AuthConfig holds session and OAuth settings.
type AuthConfig struct {
	JWTSecret          string        `yaml:"jwt_secret"           env:"JWT_SECRET"           env-required:"true"`
	SessionTTL         time.Duration `yaml:"session_ttl"          env:"AUTH_SESSION_TTL"     env-default:"720h"`
	GoogleClientID     string        `yaml:"google_client_id"     env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `yaml:"google_client_secret" env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string        `yaml:"google_callback_url"  env:"GOOGLE_CALLBACK_URL"  env-default:"http://localhost:8080/auth/google/callback"`
	GitHubClientID     string        `yaml:"github_client_id"     env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `yaml:"github_client_secret" env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string        `yaml:"github_callback_url"  env:"GITHUB_CALLBACK_URL"  env-default:"http://localhost:8080/auth/github/callback"`
}

// AllowedProviders returns the OAuth providers whose credentials are present.
func (c AuthConfig) AllowedProviders() []string {
	var providers []string
	if c.GoogleClientID != "" && c.GoogleClientSecret != "" {
		providers = append(providers, "google")
	}
	if c.GitHubClientID != "" && c.GitHubClientSecret != "" {
		providers = append(providers, "github")
	}
	return providers
}

func (c AuthConfig) IsProviderAllowed(provider string) bool {
	return slices.Contains(c.AllowedProviders(), provider)
}

// RetentionConfig controls the expired-poll sweeper.
type RetentionConfig struct {
	MaxAge       time.Duration `yaml:"max_age"        env:"RETENTION_MAX_AGE"        env-default:"24h"`
	Interval     time.Duration `yaml:"interval"       env:"RETENTION_INTERVAL"       env-default:"1h"`
	SweepOnStart bool          `yaml:"sweep_on_start" env:"RETENTION_SWEEP_ON_START" env-default:"true"`
}

// MetricsConfig controls the /metrics endpoint. When PasswordHash is set the
// endpoint requires HTTP basic auth with Username and the bcrypt-hashed password.
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"       env:"METRICS_ENABLED"       env-default:"true"`
	Username     string `yaml:"username"      env:"METRICS_USERNAME"      env-default:"metrics"`
	PasswordHash string `yaml:"password_hash" env:"METRICS_PASSWORD_HASH"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Load reads configuration from a YAML file and environment variables.
//
// path comes from the --config flag; when empty, CONFIG_PATH is used, falling
// back to "./config.yaml". A missing file is only an error when the path was
// given explicitly; otherwise configuration comes from ENV + defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	explicitPath := path != ""
	if !explicitPath {
		path = "./config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

// Validate performs business-rule validation on the loaded configuration.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters (got %d)", len(c.Auth.JWTSecret))
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be > 0 (got %s)", c.Auth.SessionTTL)
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q (got %q)", DriverSQLite, DriverPostgres, c.Database.Driver)
	}

	if c.Retention.MaxAge <= 0 {
		return fmt.Errorf("retention.max_age must be > 0 (got %s)", c.Retention.MaxAge)
	}
	if c.Retention.Interval < 0 {
		return fmt.Errorf("retention.interval must be >= 0 (got %s)", c.Retention.Interval)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}

	return nil
}
