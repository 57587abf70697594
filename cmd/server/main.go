// Package main is the entrypoint for the Canvas upload API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calstateteach/canvas-upload-service/internal/api"
	"github.com/calstateteach/canvas-upload-service/internal/api/handler"
	mw "github.com/calstateteach/canvas-upload-service/internal/api/middleware"
	"github.com/calstateteach/canvas-upload-service/internal/cache"
	"github.com/calstateteach/canvas-upload-service/internal/canvas"
	"github.com/calstateteach/canvas-upload-service/internal/config"
	"github.com/calstateteach/canvas-upload-service/internal/upload"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"dispatch_mode", cfg.Dispatch.Mode,
		"folder_path", cfg.Upload.FolderPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Optional Redis cache for rate limiting
	var redisCache cache.Cache
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer rc.Close()

		if err := rc.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("redis connected")
		redisCache = rc
	}

	// 3. Canvas API client
	canvasClient := canvas.NewHTTPClient(
		cfg.Canvas.BaseURL,
		cfg.Canvas.AccessToken,
		cfg.Canvas.PerPage,
		cfg.Canvas.Timeout,
	)

	// 4. Upload orchestration
	reporter := upload.NewHTTPReporter(cfg.Upload.CallbackTimeout)
	poller := upload.NewPoller(canvasClient, reporter, cfg.Upload.PollInterval, cfg.Upload.MaxWait)

	var dispatcher upload.Dispatcher
	switch cfg.Dispatch.Mode {
	case "http":
		dispatcher = upload.NewHTTPDispatcher(cfg.Dispatch.TargetURL, cfg.Dispatch.Timeout)
	default:
		dispatcher = upload.NewLocalDispatcher(poller)
	}

	orchestrator := upload.NewOrchestrator(
		canvasClient, dispatcher, reporter, poller, cfg.Upload.FolderPath)

	// 5. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(cfg.Auth.APIKeyHashes),
		RateLimit: mw.NewRateLimit(redisCache, cfg.Auth.RequestsPerMinute),

		HealthHandler: handler.NewHealthHandler(cfg.Server.Env, redisCache),
		UploadHandler: handler.NewInvokeHandler(orchestrator.Route),
		PollHandler:   handler.NewInvokeHandler(poller.Poll),
	}

	router := api.NewRouter(deps)

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Write timeout must cover a full poll invocation, which can wait
		// close to the execution ceiling before reporting PENDING.
		WriteTimeout: cfg.Upload.ExecutionCeiling,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
