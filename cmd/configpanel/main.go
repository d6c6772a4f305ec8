package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/configpanel/internal/adapter/driven/aescipher"
	githubadapter "github.com/ericfisherdev/configpanel/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/configpanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/configpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/configpanel/internal/application"
	"github.com/ericfisherdev/configpanel/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"parse_interval", cfg.ParseInterval,
		"encryption_key_set", cfg.HasEncryptionKey(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	repoStore := sqliteadapter.NewConfigRepoRepo(db)
	cipher := aescipher.New(cfg.EncryptionKey)
	revisionSource := githubadapter.NewRevisionSource(cfg.GitHubToken)
	if !cfg.HasEncryptionKey() {
		slog.Info("no encryption key configured, plaintext material passwords will be rejected")
	}

	// 6. Create and start the parse service.
	parseSvc := application.NewParseService(revisionSource, repoStore, cfg.ParseInterval)
	go parseSvc.Start(ctx)

	// 7. Create the repo service and HTTP handler.
	repoSvc := application.NewRepoService(repoStore, cipher)
	apiHandler := httphandler.NewHandler(repoStore, repoSvc, parseSvc, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 8. Log startup complete.
	slog.Info("configpanel started",
		"listen_addr", cfg.ListenAddr,
		"parse_interval", cfg.ParseInterval,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
