package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a JSON or YAML config file")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := BuildApp(ctx, ConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := run(ctx, app); err != nil {
		app.Utilities.Logging.Error("server stopped with error", "error", err)
		cleanup()
		os.Exit(1)
	}
	app.Utilities.Logging.Info("server stopped")
}

func run(ctx context.Context, app *App) error {
	cfg := app.Config
	log := app.Utilities.Logging
	log.Info("starting pergunta server",
		"environment", cfg.Environment,
		"address", cfg.Server.Address,
		"backend_adapter", cfg.Backend.Adapter)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "address", cfg.Server.Address)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return app.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
