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

	"github.com/phambaophuc/alt-text-relay/internal/config"
	"github.com/phambaophuc/alt-text-relay/internal/http/handlers"
	"github.com/phambaophuc/alt-text-relay/internal/http/routes"
	"github.com/phambaophuc/alt-text-relay/internal/logger"
	"github.com/phambaophuc/alt-text-relay/internal/metrics"
	"github.com/phambaophuc/alt-text-relay/internal/services/fetcher"
	"github.com/phambaophuc/alt-text-relay/internal/services/gemini"
	"github.com/phambaophuc/alt-text-relay/internal/services/orchestrator"
	"github.com/phambaophuc/alt-text-relay/internal/services/prompt"
	"github.com/phambaophuc/alt-text-relay/internal/services/queue"
	"github.com/phambaophuc/alt-text-relay/internal/services/quota"
	"github.com/phambaophuc/alt-text-relay/internal/services/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Initialize logger
	zapLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer zapLogger.Sync()

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize services
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	store, err := newQuotaStore(ctx, cfg, redisClient)
	if err != nil {
		zapLogger.Fatal("Failed to initialize quota store", zap.Error(err))
	}
	defer store.Close()

	tracker := quota.NewTracker(store, cfg.Quota.DailyLimit, zapLogger)

	storageService := storage.NewStorageService(cfg, redisClient)

	var queueService *queue.QueueService
	if cfg.RabbitMQ.URL != "" {
		queueService, err = queue.NewQueueService(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, zapLogger)
		if err != nil {
			zapLogger.Warn("Failed to initialize queue service", zap.Error(err))
			// Continue without batch events
			queueService = nil
		} else {
			defer queueService.Close()
		}
	}

	aiClient := gemini.NewRetryingClient(
		gemini.NewRESTClient(gemini.Options{
			APIKey:     cfg.Gemini.APIKey,
			BaseURL:    cfg.Gemini.BaseURL,
			APIVersion: cfg.Gemini.APIVersion,
			Model:      cfg.Gemini.Model,
			Timeout:    cfg.Gemini.Timeout,
		}),
		cfg.Gemini.RetryDelay,
		cfg.Gemini.MaxRetries,
		zapLogger,
	)

	deps := orchestrator.Deps{
		Quota: tracker,
		Fetcher: fetcher.New(fetcher.Options{
			Timeout:   cfg.Fetcher.Timeout,
			MaxSize:   cfg.Fetcher.MaxImageSize,
			UserAgent: cfg.Fetcher.UserAgent,
		}),
		Builder: prompt.NewBuilder(),
		Client:  aiClient,
		Logger:  zapLogger,
	}
	opts := orchestrator.Options{
		VisionEnabled: cfg.Orchestrator.VisionEnabled,
		ImageDelay:    cfg.Orchestrator.ImageDelay,
	}
	if cfg.Orchestrator.CacheResults && storageService.CacheEnabled() {
		deps.Cache = storageService
		opts.CacheKey = storage.GenerateCacheKey
	}
	if storageService.ArchiveEnabled() {
		deps.Archiver = storageService
	}
	if queueService != nil {
		deps.Publisher = queueService
	}
	orch := orchestrator.New(deps, opts)

	// Initialize handlers
	altTextHandler := handlers.NewAltTextHandler(orch, tracker, storageService, queueService, zapLogger, cfg)

	router := routes.NewRouter(altTextHandler, cfg, zapLogger)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      router.SetupRoutes(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zapLogger.Info("Starting server",
			zap.String("addr", server.Addr),
			zap.String("model", cfg.Gemini.Model),
			zap.String("quota_backend", cfg.Quota.Backend),
			zap.Int("daily_limit", cfg.Quota.DailyLimit))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Quota.Backend == "memory" {
		g.Go(func() error {
			return quota.NewSweeper(tracker, cfg.Quota.SweepInterval, zapLogger).Run(gctx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("Server forced to shutdown", zap.Error(err))
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		zapLogger.Error("Server stopped with error", zap.Error(err))
		zapLogger.Sync()
		os.Exit(1)
	}

	zapLogger.Info("Server exited")
}

func newQuotaStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (quota.Store, error) {
	if cfg.Quota.Backend != "redis" {
		return quota.NewMemoryStore(), nil
	}

	redisStore := quota.NewRedisStore(redisClient)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisStore.Ping(pingCtx); err != nil {
		return nil, err
	}
	return redisStore, nil
}
