package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RichardoC/pad-chat/internal/api"
	"github.com/RichardoC/pad-chat/internal/app"
	"github.com/RichardoC/pad-chat/internal/config"
	"github.com/RichardoC/pad-chat/internal/logging"
	"github.com/RichardoC/pad-chat/internal/session"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, !cfg.IsProduction())
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application",
			zap.Error(err),
			zap.String("backend", cfg.StorageBackend),
			zap.String("dbPath", cfg.StoragePath))
	}
	defer application.Close()

	if len(cfg.JWTSecretKey) == 0 {
		logger.Warn("JWT_SECRET_KEY not set; serving a single local user without sign-in")
	}

	handler := api.NewHandler(resolver(application), logger.Named("api"))
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: api.NewRouter(handler, []byte(cfg.JWTSecretKey)),
	}

	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

// resolver hands each signed-in user their own session.
func resolver(a *app.App) api.Resolver {
	return func(ctx context.Context, userID string) (*session.Controller, api.Credentials, error) {
		s, err := a.Session(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		return s.Controller, s.Client, nil
	}
}
