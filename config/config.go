// Package config loads the server configuration from a JSON or YAML file
// and PERGUNTA_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"github.com/ViniciusResende/PerguntaUFMG/adapters/redis"
	"github.com/ViniciusResende/PerguntaUFMG/adapters/sqlx"
	"github.com/ViniciusResende/PerguntaUFMG/backend"
	"github.com/ViniciusResende/PerguntaUFMG/notification"
	"github.com/ViniciusResende/PerguntaUFMG/utilities"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	Environment Environment `json:"environment" mapstructure:"environment" env:"PERGUNTA_ENV"`

	Server       ServerConfig       `json:"server" mapstructure:"server"`
	Backend      BackendConfig      `json:"backend" mapstructure:"backend"`
	Logging      LoggingConfig      `json:"logging" mapstructure:"logging"`
	Notification NotificationConfig `json:"notification" mapstructure:"notification"`
	Security     SecurityConfig     `json:"security" mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" mapstructure:"address" env:"PERGUNTA_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" mapstructure:"path_prefix" env:"PERGUNTA_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" mapstructure:"cors_origin" env:"PERGUNTA_SERVER_CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" mapstructure:"read_timeout" env:"PERGUNTA_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" mapstructure:"write_timeout" env:"PERGUNTA_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" mapstructure:"idle_timeout" env:"PERGUNTA_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" mapstructure:"read_header_timeout" env:"PERGUNTA_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout" env:"PERGUNTA_SERVER_SHUTDOWN_TIMEOUT"`
}

// BackendConfig selects and configures the realtime backend adapter
type BackendConfig struct {
	Adapter string       `json:"adapter" mapstructure:"adapter" env:"PERGUNTA_BACKEND_ADAPTER"`
	Name    string       `json:"name" mapstructure:"name" env:"PERGUNTA_BACKEND_NAME"`
	File    FileConfig   `json:"file" mapstructure:"file"`
	Redis   redis.Config `json:"redis" mapstructure:"redis"`
	SQL     sqlx.Config  `json:"sql" mapstructure:"sql"`
	Auth    AuthConfig   `json:"auth" mapstructure:"auth"`
}

// FileConfig holds JSON file backend configuration
type FileConfig struct {
	Path string `json:"path" mapstructure:"path" env:"PERGUNTA_BACKEND_FILE_PATH"`
}

// AuthConfig holds the backend sign-in settings. An empty secret means
// every sign-in is refused.
type AuthConfig struct {
	Secret string `json:"secret" mapstructure:"secret" env:"PERGUNTA_AUTH_SECRET"`
	Token  string `json:"token" mapstructure:"token" env:"PERGUNTA_AUTH_TOKEN"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" mapstructure:"level" env:"PERGUNTA_LOG_LEVEL"`
	Format     string            `json:"format" mapstructure:"format" env:"PERGUNTA_LOG_FORMAT"`
	Output     string            `json:"output" mapstructure:"output" env:"PERGUNTA_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" mapstructure:"attributes" env:"PERGUNTA_LOG_ATTRIBUTES"`
}

// NotificationConfig selects where user notifications go
type NotificationConfig struct {
	Service   string   `json:"service" mapstructure:"service" env:"PERGUNTA_NOTIFICATION_SERVICE"`
	Endpoints []string `json:"endpoints,omitempty" mapstructure:"endpoints" env:"PERGUNTA_NOTIFICATION_ENDPOINTS"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" mapstructure:"enable_rate_limit" env:"PERGUNTA_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit" mapstructure:"rate_limit"`
	APIKeys         []string        `json:"api_keys,omitempty" mapstructure:"api_keys" env:"PERGUNTA_SECURITY_API_KEYS"`
	IdentityStore   string          `json:"identity_store" mapstructure:"identity_store" env:"PERGUNTA_SECURITY_IDENTITY_STORE"`
	IdentityPath    string          `json:"identity_path" mapstructure:"identity_path" env:"PERGUNTA_SECURITY_IDENTITY_PATH"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute" mapstructure:"requests_per_minute" env:"PERGUNTA_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int           `json:"burst_size" mapstructure:"burst_size" env:"PERGUNTA_SECURITY_RATE_LIMIT_BURST"`
	CleanupInterval   time.Duration `json:"cleanup_interval" mapstructure:"cleanup_interval" env:"PERGUNTA_SECURITY_RATE_LIMIT_CLEANUP"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}
	cleanPath := filepath.Clean(path)
	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".json", ".yaml", ".yml":
	default:
		return errors.New("config file must have .json, .yaml or .yml extension")
	}
	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file on top of the
// defaults. Environment variables override file values.
func LoadFromFile(path string) (*Config, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Clean(path))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Backend: BackendConfig{
			Adapter: "memory",
			Name:    "default",
			File:    FileConfig{Path: "./data/pergunta.json"},
			Redis:   redis.DefaultConfig(),
			SQL:     sqlx.DefaultConfig(sqlx.DriverSQLite),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Notification: NotificationConfig{
			Service: string(notification.ServiceWeb),
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
				CleanupInterval:   5 * time.Minute,
			},
			APIKeys:       []string{},
			IdentityStore: "memory",
			IdentityPath:  "./data/identity.json",
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}
	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}
	if err := c.Backend.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("backend config: %v", err))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}
	if err := c.Notification.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notification config: %v", err))
	}
	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// LibraryConfiguration converts the backend and notification sections into
// the library configuration. APIConfig is shaped for adapters.Dial.
func (c *Config) LibraryConfiguration() (utilities.Configuration, error) {
	api := map[string]any{
		"adapter": c.Backend.Adapter,
		"name":    c.Backend.Name,
		"auth":    map[string]any{"secret": c.Backend.Auth.Secret, "token": c.Backend.Auth.Token},
	}
	switch c.Backend.Adapter {
	case "file":
		api["path"] = c.Backend.File.Path
	case "redis":
		api["redis"] = c.Backend.Redis
	case "sql":
		api["sql"] = c.Backend.SQL
	}
	var normalized map[string]any
	if err := backend.Decode(api, &normalized); err != nil {
		return utilities.Configuration{}, fmt.Errorf("encode backend config: %w", err)
	}
	return utilities.Configuration{
		APIConfig:             normalized,
		NotificationService:   notification.ServiceType(c.Notification.Service),
		NotificationEndpoints: append([]string(nil), c.Notification.Endpoints...),
	}, nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c

	if cfg.Backend.SQL.DSN != "" {
		cfg.Backend.SQL.DSN = "[REDACTED]"
	}
	if cfg.Backend.Redis.Password != "" {
		cfg.Backend.Redis.Password = "[REDACTED]"
	}
	if cfg.Backend.Auth.Secret != "" {
		cfg.Backend.Auth.Secret = "[REDACTED]"
	}
	if cfg.Backend.Auth.Token != "" {
		cfg.Backend.Auth.Token = "[REDACTED]"
	}
	if len(cfg.Security.APIKeys) > 0 {
		keys := make([]string, len(cfg.Security.APIKeys))
		for i := range keys {
			keys[i] = "[REDACTED]"
		}
		cfg.Security.APIKeys = keys
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
