package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/csvgenius/internal/config"
	"github.com/JonMunkholm/csvgenius/internal/core"
	"github.com/JonMunkholm/csvgenius/internal/logging"
	"github.com/JonMunkholm/csvgenius/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if it exists; real environment variables win
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Setup structured logging based on config
	closeLog, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer closeLog()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"max_file_size", cfg.Upload.MaxFileSize,
		"max_concurrent", cfg.Process.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"audit_enabled", cfg.Audit.Enabled(),
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional operation log
	var (
		store    *core.AuditStore
		recorder core.AuditRecorder
		oplog    web.OperationLog
	)
	if cfg.Audit.Enabled() {
		pool, err := connectPool(ctx, cfg.Audit)
		if err != nil {
			return err
		}
		defer pool.Close()

		store = core.NewAuditStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		recorder, oplog = store, store
		slog.Info("operation log enabled")
	}

	policy := core.EmptyListMatchesAll
	if cfg.Process.EmptyListMatchesNone {
		policy = core.EmptyListMatchesNone
	}

	service := core.NewService(core.Options{
		Reader:          core.ReaderOptions{LazyQuotes: cfg.Process.LazyQuotes},
		Writer:          core.WriterOptions{UseCRLF: cfg.Process.UseCRLF},
		EmptyListPolicy: policy,
		ExportFileName:  cfg.Process.ExportFileName,
		MaxConcurrent:   cfg.Process.MaxConcurrent,
		MaxWait:         cfg.Process.MaxWaitTime,
	}, recorder)

	server := web.NewServer(service, cfg, oplog)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if store != nil {
		g.Go(func() error {
			store.StartRetentionScheduler(gctx, core.RetentionConfig{
				RetentionDays: cfg.Audit.RetentionDays,
				CheckInterval: cfg.Audit.CheckInterval,
			})
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Wait for in-flight files to finish
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for active pipelines", "active", status.Active)
			if err := service.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("pipelines did not finish in time", "error", err)
			}
		}
		return nil
	})

	return g.Wait()
}

// connectPool opens and verifies the audit database pool.
func connectPool(ctx context.Context, cfg config.AuditConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
