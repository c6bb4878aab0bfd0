package config

import (
	"fmt"

	"github.com/ViniciusResende/PerguntaUFMG/adapters/sqlx"
)

// LoadProfile returns the preset configuration for a deployment
// environment.
func LoadProfile(name string) (*Config, error) {
	cfg := DefaultConfig()
	switch Environment(name) {
	case EnvDevelopment:
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "console"
	case EnvTesting:
		cfg.Environment = EnvTesting
		cfg.Logging.Level = "warn"
		cfg.Notification.Service = "log"
	case EnvStaging:
		cfg.Environment = EnvStaging
		cfg.Backend.Adapter = "redis"
		cfg.Security.IdentityStore = "redis"
	case EnvProduction:
		cfg.Environment = EnvProduction
		cfg.Backend.Adapter = "sql"
		cfg.Backend.SQL = sqlx.DefaultConfig(sqlx.DriverPostgres)
		cfg.Backend.SQL.DSN = "postgres://pergunta@localhost:5432/pergunta?sslmode=disable"
		cfg.Security.EnableRateLimit = true
		cfg.Security.IdentityStore = "redis"
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", name, err)
	}
	return cfg, nil
}
