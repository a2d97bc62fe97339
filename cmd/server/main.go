package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"leadflow/internal/api"
	"leadflow/internal/api/handlers"
	"leadflow/internal/api/middleware"
	"leadflow/internal/engine/dispatch"
	"leadflow/internal/engine/queue"
	"leadflow/internal/platform/auth"
	"leadflow/internal/platform/cache"
	"leadflow/internal/platform/config"
	"leadflow/internal/platform/database"
	"leadflow/internal/platform/ratelimit"
	"leadflow/internal/platform/repositories"
	"leadflow/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Init(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	applied, err := database.Migrate(db, cfg.Database.MigrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}
	log.Info().Strs("migrations", applied).Msg("database ready")

	// Execution queue
	execQueue, err := queue.New(ctx, cfg.Queue)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Queue.Driver).Msg("Failed to initialize execution queue")
	}
	defer execQueue.Close()

	// Rate limiting
	checks := map[string]handlers.Pinger{"database": db}
	var limiter ratelimit.Limiter
	if cfg.Redis.URL != "" {
		client, err := ratelimit.Connect(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure redis")
		}
		defer client.Close()
		redisLimiter := ratelimit.NewRedisLimiter(client)
		checks["redis"] = handlers.PingFunc(redisLimiter.Ping)
		limiter = redisLimiter
	} else {
		memLimiter := ratelimit.NewMemoryLimiter()
		go memLimiter.Run(ctx)
		limiter = memLimiter
		log.Warn().Msg("redis not configured, rate limits are per instance")
	}

	// Repositories
	workflowRepo := repositories.NewWorkflowRepository(db)
	executionRepo := repositories.NewExecutionLogRepository(db)

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)

	var candidates dispatch.WorkflowStore = workflowRepo
	var workflowCache *cache.WorkflowCache
	if cfg.Dispatch.WorkflowCacheTTL > 0 {
		workflowCache = cache.NewWorkflowCache(workflowRepo, cfg.Dispatch.WorkflowCacheTTL)
		candidates = workflowCache
	}

	dispatcher := dispatch.NewDispatcher(candidates, execQueue, executionRepo, dispatch.Options{
		EnqueueTimeout: cfg.Dispatch.EnqueueTimeout,
		BatchTimeout:   cfg.Dispatch.BatchTimeout,
		MaxConcurrency: cfg.Dispatch.MaxConcurrency,
	})

	if cfg.Webhooks.SigningSecret == "" {
		log.Warn().Msg("webhook signing secret not set, signatures are not verified")
	}

	deps := &api.Dependencies{
		DispatchHandler:     handlers.NewDispatchHandler(dispatcher),
		WorkflowHandler:     handlers.NewWorkflowHandler(workflowRepo, cacheInvalidator(workflowCache)),
		ExecutionHandler:    handlers.NewExecutionHandler(executionRepo),
		HealthHandler:       handlers.NewHealthHandler(checks),
		MetricsHandler:      handlers.NewMetricsHandler(),
		AuthMiddleware:      middleware.NewAuthMiddleware(tokenSvc),
		SignatureMiddleware: middleware.NewSignatureMiddleware(cfg.Webhooks.SigningSecret),
		RateLimitMiddleware: middleware.NewRateLimitMiddleware(limiter),
		RateLimits:          cfg.RateLimit,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("queue", cfg.Queue.Driver).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// cacheInvalidator avoids handing the handler a typed nil.
func cacheInvalidator(c *cache.WorkflowCache) handlers.CacheInvalidator {
	if c == nil {
		return nil
	}
	return c
}
