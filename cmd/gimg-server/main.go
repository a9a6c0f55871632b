package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"gimg/internal/api"
	"gimg/internal/capability"
	"gimg/internal/config"
	"gimg/internal/imgio"
	"gimg/internal/ops"
	"gimg/internal/ratelimit"
	"gimg/internal/telemetry"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lmsgprefix)

	if err := imgio.Startup(); err != nil {
		logger.Fatalf("codec startup failed: %v", err)
	}
	defer imgio.Shutdown()

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), telemetry.TraceConfig{
		ServiceName:  "gimg-server",
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	}, logger)
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Printf("tracing shutdown error: %v", err)
		}
	}()

	caps := capability.Detect(cfg.Capabilities, logger)
	fonts, err := ops.LoadFonts(cfg.Capabilities.FontFile)
	if err != nil {
		logger.Fatalf("font load failed: %v", err)
	}

	registry := ops.NewRegistry(&ops.Env{
		Caps:   caps,
		Fonts:  fonts,
		Cfg:    cfg.Capabilities,
		Logger: logger,
	})

	limiter := buildLimiter(cfg, logger)
	tracer := otel.Tracer("gimg-server")

	app := api.NewServer(logger, registry, caps, limiter, tracer, cfg.Limits.MaxUploadBytes, cfg.API.TempDir)

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s", cfg.API.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Println("shutting down")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

// buildLimiter prefers the shared Redis bucket and falls back to the
// in-process one when no Redis address is configured.
func buildLimiter(cfg config.Config, logger *log.Logger) ratelimit.Limiter {
	window := time.Minute
	if cfg.RateLimit.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		limiter, err := ratelimit.NewRedisTokenBucket(client, cfg.RateLimit.PerMinute, window, "gimg:ratelimit")
		if err != nil {
			logger.Fatalf("rate limiter setup failed: %v", err)
		}
		logger.Printf("rate limiting backed by redis at %s", cfg.RateLimit.RedisAddr)
		return limiter
	}

	limiter, err := ratelimit.NewMemoryTokenBucket(cfg.RateLimit.PerMinute, window)
	if err != nil {
		logger.Fatalf("rate limiter setup failed: %v", err)
	}
	logger.Printf("rate limiting in-process (set REDIS_ADDR to share state)")
	return limiter
}
