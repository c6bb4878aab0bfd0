package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ViniciusResende/PerguntaUFMG/adapters/jsonfile"
	redisAdapter "github.com/ViniciusResende/PerguntaUFMG/adapters/redis"
	"github.com/ViniciusResende/PerguntaUFMG/api/httpapi"
	"github.com/ViniciusResende/PerguntaUFMG/config"
	"github.com/ViniciusResende/PerguntaUFMG/logging"
	"github.com/ViniciusResende/PerguntaUFMG/pergunta"
	"github.com/ViniciusResende/PerguntaUFMG/realtime"
	"github.com/ViniciusResende/PerguntaUFMG/security"
	"github.com/ViniciusResende/PerguntaUFMG/utilities"
)

// App aggregates the assembled server components.
type App struct {
	Config    *config.Config
	Utilities *utilities.Utilities
	Hub       *realtime.Hub
	Lib       *pergunta.Lib
	Server    *http.Server
}

// ConfigPath is the --config flag value; empty means defaults plus env.
type ConfigPath string

func provideConfig(path ConfigPath) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFromFile(string(path))
}

func provideLogger(cfg *config.Config) logging.Logger {
	return setupLogging(cfg)
}

func provideIdentityStore(ctx context.Context, cfg *config.Config) (security.Store, func(), error) {
	switch cfg.Security.IdentityStore {
	case "file":
		return jsonfile.NewIdentityStore(cfg.Security.IdentityPath), func() {}, nil
	case "redis":
		rc := cfg.Backend.Redis
		rdb := goredis.NewClient(&goredis.Options{
			Addr:        rc.Addr,
			Password:    rc.Password,
			DB:          rc.DB,
			DialTimeout: rc.DialTimeout,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return redisAdapter.NewIdentityStore(rdb, rc.Prefix), func() { _ = rdb.Close() }, nil
	default:
		return security.NewMemoryStore(), func() {}, nil
	}
}

func provideUtilities(logger logging.Logger, store security.Store) *utilities.Utilities {
	return utilities.New(
		utilities.WithLogger(logger),
		utilities.WithIdentityStore(store),
		utilities.WithHTTPClient(&http.Client{}),
	)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideLib(ctx context.Context, cfg *config.Config, u *utilities.Utilities, hub *realtime.Hub) (*pergunta.Lib, func(), error) {
	libCfg, err := cfg.LibraryConfiguration()
	if err != nil {
		return nil, nil, err
	}
	lib := pergunta.New(ctx,
		pergunta.WithUtilities(u),
		pergunta.WithConfiguration(libCfg),
		pergunta.WithRealtime(hub),
	)
	return lib, func() { _ = lib.Close() }, nil
}

func provideHandler(lib *pergunta.Lib, hub *realtime.Hub, cfg *config.Config, u *utilities.Utilities) http.Handler {
	return httpapi.NewRouter(lib, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		RateLimitCleanup: cfg.Security.RateLimit.CleanupInterval,
		Logger:           u.Logging,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging builds the library logger from configuration. json and text
// go through slog, console through zerolog.
func setupLogging(cfg *config.Config) logging.Logger {
	var out io.Writer = os.Stdout
	if cfg.Logging.Output == "stderr" {
		out = os.Stderr
	}

	if cfg.Logging.Format == "console" {
		fields := make([]any, 0, 2*len(cfg.Logging.Attributes))
		for k, v := range cfg.Logging.Attributes {
			fields = append(fields, k, v)
		}
		return logging.NewConsole(out, parseZerologLevel(cfg.Logging.Level), fields...)
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	var handler slog.Handler
	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}
	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logging.NewSlog(logger)
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseZerologLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(level)
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	result := make([]slog.Attr, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}
