// Package sandboxapi boots the local adoption backend.
package sandboxapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Apurer/pet-adoption-engine/internal/app/engine"
	"github.com/Apurer/pet-adoption-engine/internal/platform/migrations"
	platformobservability "github.com/Apurer/pet-adoption-engine/internal/platform/observability"
	platformpostgres "github.com/Apurer/pet-adoption-engine/internal/platform/postgres"
	"github.com/Apurer/pet-adoption-engine/internal/sandbox"
	sandboxpostgres "github.com/Apurer/pet-adoption-engine/internal/sandbox/postgres"
)

const serviceName = "adoption-sandbox"

// Run serves the sandbox until ctx is cancelled. PostgreSQL backs it when
// POSTGRES_DSN is reachable; otherwise state lives in memory.
func Run(ctx context.Context) error {
	cfg, err := engine.LoadConfig()
	if err != nil {
		return err
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	store, cleanup, err := buildStore(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	backend := sandbox.NewBackend(store, sandbox.WithLogger(logger))
	if err := sandbox.Seed(ctx, backend); err != nil {
		return err
	}
	router := sandbox.NewRouter(sandbox.NewAPI(backend), serviceName)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("adoption sandbox listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("adoption sandbox exited", slog.String("addr", srv.Addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func buildStore(ctx context.Context, dsn string, logger *slog.Logger) (sandbox.Store, func(), error) {
	db, cleanup := platformpostgres.ConnectOptional(ctx, dsn, logger)
	if db == nil {
		return sandbox.NewMemoryStore(), cleanup, nil
	}
	if err := migrations.Run(db); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("migrate sandbox schema: %w", err)
	}
	logger.Info("sandbox store configured with postgres")
	return sandboxpostgres.NewStore(db), cleanup, nil
}
