package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/authgate/authgate-go/internal/config"
	"github.com/authgate/authgate-go/internal/crypto"
	"github.com/authgate/authgate-go/internal/handler"
	"github.com/authgate/authgate-go/internal/metrics"
	"github.com/authgate/authgate-go/internal/repository"
	"github.com/authgate/authgate-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	store, db, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		slog.Error("store initialization failed", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	tokens, err := crypto.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Expiry)
	if err != nil {
		slog.Error("token issuer initialization failed", "error", err)
		os.Exit(1)
	}

	pool := crypto.NewPool(cfg.Hash.Workers)
	hasher := crypto.NewHasher(crypto.HashParams{
		Memory:      cfg.Hash.MemoryKiB,
		Iterations:  cfg.Hash.Iterations,
		Parallelism: cfg.Hash.Parallelism,
	}, pool)

	m := metrics.New()
	repo := repository.NewAccountRepository(store, cfg.Store.Timeout)
	authService := service.NewAuthService(repo, hasher, tokens, m, logger)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handler.NewRouter(handler.RouterDeps{
			Auth:    authService,
			Tokens:  tokens,
			Metrics: m,
			Logger:  logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store.Driver, "hash_workers", pool.Size())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := config.ParseLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// openStore returns the account store for the configured driver. db is nil
// for the in-memory store.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.AccountStore, *sql.DB, error) {
	if cfg.Store.Driver == config.DriverMemory {
		logger.Warn("using in-memory store, accounts are lost on restart")
		return repository.NewMemoryStore(), nil, nil
	}

	dialect, err := repository.DialectFor(cfg.Store.Driver)
	if err != nil {
		return nil, nil, err
	}
	db, err := repository.NewDB(ctx, dialect, cfg.Store.DSN)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store.Migrate {
		if err := repository.Migrate(ctx, db, dialect); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("migrations applied", "dialect", dialect.Name)
	}
	return repository.NewSQLStore(db, dialect), db, nil
}
