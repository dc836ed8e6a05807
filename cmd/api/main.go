package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nikhilbhutani/livehint/internal/api"
	"github.com/nikhilbhutani/livehint/internal/auth"
	"github.com/nikhilbhutani/livehint/internal/cache"
	"github.com/nikhilbhutani/livehint/internal/completion"
	"github.com/nikhilbhutani/livehint/internal/config"
	"github.com/nikhilbhutani/livehint/internal/observe"
)

func main() {
	issueFor := flag.String("issue-token", "", "print a bearer token for the given subject and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of an issued token (0 for no expiry)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Telemetry.Level()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	if *issueFor != "" {
		if cfg.Auth.JWTSecret == "" {
			slog.Error("JWT_SECRET must be set to issue tokens")
			os.Exit(1)
		}
		token, err := auth.IssueToken(cfg.Auth.JWTSecret, *issueFor, *tokenTTL)
		if err != nil {
			slog.Error("failed to issue token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	ctx := context.Background()

	telemetry, err := observe.InitProvider(cfg.Telemetry.ServiceName)
	if err != nil {
		slog.Error("failed to init telemetry", "error", err)
		os.Exit(1)
	}
	metrics, err := telemetry.Metrics()
	if err != nil {
		slog.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	deps := api.Deps{
		Metrics:        metrics,
		MetricsHandler: telemetry.Handler(),
	}

	// Redis cache (optional)
	var store completion.Store
	if cfg.Redis.Addr != "" {
		c, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, running without cache", "error", err)
		} else {
			defer c.Close()
			store = c
			deps.Cache = c
		}
	}

	provider, err := completion.New(cfg.Completion, store)
	if err != nil {
		slog.Error("failed to create completion provider", "error", err)
		os.Exit(1)
	}
	deps.Provider = provider
	slog.Info("completion provider ready", "provider", provider.Name(), "cache", store != nil)

	router := api.NewRouter(cfg, deps)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown", "error", err)
	}
	slog.Info("server stopped")
}
