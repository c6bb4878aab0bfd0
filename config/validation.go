package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/ViniciusResende/PerguntaUFMG/adapters/sqlx"
	"github.com/ViniciusResende/PerguntaUFMG/notification"
)

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	var errs []string

	if s.Address == "" {
		errs = append(errs, "address cannot be empty")
	}
	if s.PathPrefix != "" && !strings.HasPrefix(s.PathPrefix, "/") {
		errs = append(errs, "path_prefix must start with /")
	}
	if s.ReadTimeout <= 0 {
		errs = append(errs, "read_timeout must be positive")
	}
	if s.WriteTimeout <= 0 {
		errs = append(errs, "write_timeout must be positive")
	}
	if s.IdleTimeout <= 0 {
		errs = append(errs, "idle_timeout must be positive")
	}
	if s.ReadHeaderTimeout <= 0 {
		errs = append(errs, "read_header_timeout must be positive")
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, "shutdown_timeout must be positive")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Validate validates backend configuration
func (b *BackendConfig) Validate() error {
	var errs []string

	validAdapters := []string{"memory", "file", "redis", "sql"}
	if !slices.Contains(validAdapters, b.Adapter) {
		errs = append(errs, fmt.Sprintf("adapter must be one of: %s", strings.Join(validAdapters, ", ")))
	}

	switch b.Adapter {
	case "file":
		if b.File.Path == "" {
			errs = append(errs, "file config: path cannot be empty")
		}
	case "redis":
		if b.Redis.Addr == "" {
			errs = append(errs, "redis config: addr cannot be empty")
		}
		if b.Redis.DB < 0 {
			errs = append(errs, "redis config: db cannot be negative")
		}
	case "sql":
		validDrivers := []string{string(sqlx.DriverPostgres), string(sqlx.DriverMySQL), string(sqlx.DriverSQLite)}
		if !slices.Contains(validDrivers, string(b.SQL.Driver)) {
			errs = append(errs, fmt.Sprintf("sql config: driver must be one of: %s", strings.Join(validDrivers, ", ")))
		}
		if b.SQL.DSN == "" {
			errs = append(errs, "sql config: dsn cannot be empty")
		}
	}

	if b.Auth.Token != "" && b.Auth.Secret == "" {
		errs = append(errs, "auth config: token requires a secret")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	var errs []string

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, l.Level) {
		errs = append(errs, fmt.Sprintf("level must be one of: %s", strings.Join(validLevels, ", ")))
	}
	validFormats := []string{"json", "text", "console"}
	if !slices.Contains(validFormats, l.Format) {
		errs = append(errs, fmt.Sprintf("format must be one of: %s", strings.Join(validFormats, ", ")))
	}
	validOutputs := []string{"stdout", "stderr"}
	if !slices.Contains(validOutputs, l.Output) {
		errs = append(errs, fmt.Sprintf("output must be one of: %s", strings.Join(validOutputs, ", ")))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Validate validates notification configuration
func (n *NotificationConfig) Validate() error {
	if n.Service == "" {
		return nil
	}
	if _, ok := notification.Lookup(notification.ServiceType(n.Service)); !ok {
		return fmt.Errorf("unknown service %q", n.Service)
	}
	if n.Service != string(notification.ServiceWebhook) {
		return nil
	}
	if len(n.Endpoints) == 0 {
		return errors.New("webhook service needs at least one endpoint")
	}
	var errs []string
	for i, e := range n.Endpoints {
		u, err := url.Parse(e)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("endpoints[%d] is not an http(s) url", i))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Validate validates security settings.
func (s *SecurityConfig) Validate() error {
	var errs []string

	if s.EnableRateLimit {
		if s.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, "rate_limit.requests_per_minute must be > 0 when rate limiting is enabled")
		}
		if s.RateLimit.BurstSize <= 0 {
			errs = append(errs, "rate_limit.burst_size must be > 0 when rate limiting is enabled")
		}
	}
	for i, key := range s.APIKeys {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, fmt.Sprintf("api_keys[%d] is empty", i))
		}
	}
	switch s.IdentityStore {
	case "", "memory", "redis":
	case "file":
		if s.IdentityPath == "" {
			errs = append(errs, "identity_path cannot be empty for the file identity store")
		}
	default:
		errs = append(errs, "identity_store must be one of: memory, file, redis")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
