// cmd/insight-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"insight-agent/internal/analyzer"
	"insight-agent/internal/cache"
	"insight-agent/internal/common/config"
	"insight-agent/internal/common/database"
	"insight-agent/internal/common/logger"
	"insight-agent/internal/llm"
	"insight-agent/internal/ratelimit"
	"insight-agent/internal/scraper"
	"insight-agent/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting insight server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx := context.Background()

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Wire the pipeline ---
	fetcher := scraper.New(cfg.Scraper, log)
	gateway := llm.NewGateway(cfg.LLM, log)
	store := cache.New(redis, cfg.Cache, log)
	prompts := llm.NewPromptBuilder(cfg.Scraper.MaxContentChars, cfg.LLM.HistoryTurns)

	analyzeLimiter := ratelimit.New(redis, "analyze", cfg.RateLimit.Analyze, cfg.RateLimit.FailOpen, log)
	chatLimiter := ratelimit.New(redis, "chat", cfg.RateLimit.Chat, cfg.RateLimit.FailOpen, log)

	// One request may fetch the page and then walk the whole backend chain.
	deadline := config.GetDuration(cfg.Scraper.Timeout) +
		config.GetDuration(cfg.LLM.Groq.Timeout) +
		config.GetDuration(cfg.LLM.Ollama.Timeout)

	service := analyzer.NewService(analyzer.Deps{
		Fetcher:        fetcher,
		Gateway:        gateway,
		Cache:          store,
		AnalyzeLimiter: analyzeLimiter,
		ChatLimiter:    chatLimiter,
		Prompts:        prompts,
		Deadline:       deadline,
	}, log)

	srv := server.New(cfg, service, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srv.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutdown signal received, draining...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}

	zapLog.Info("Insight server stopped")
}
