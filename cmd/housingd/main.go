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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"housing-listings-backend/config"
	"housing-listings-backend/internal/api"
	"housing-listings-backend/internal/auth"
	"housing-listings-backend/internal/db"
	"housing-listings-backend/internal/feed"
	"housing-listings-backend/internal/logger"
	"housing-listings-backend/internal/mw"
	"housing-listings-backend/internal/notification"
	"housing-listings-backend/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "housingd")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("configuration loaded", zap.String("path", configPath))

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwt_secret must be configured")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	var (
		webpushOptions *webpush.Options
		pool           *notification.WorkerPool
		push           api.Dispatcher
		feedPush       feed.Dispatcher
	)
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, log)
		pool.Start(ctx)
		push, feedPush = pool, pool
		log.Info("push notifications enabled", zap.Int("workers", cfg.WorkerPool.Size))
	} else {
		log.Warn("VAPID keys not configured, push notifications disabled")
	}

	var cacheBackend mw.Backend
	switch cfg.Cache.Backend {
	case "none":
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPass,
			DB:       cfg.Cache.RedisDB,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, responses will not be cached until it recovers", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		}
		cacheBackend = mw.NewRedisBackend(client, "housing:cache:", log)
	default:
		cacheBackend = mw.NewMemoryBackend(cfg.Cache.TTL)
	}

	// Run the upstream import in the background
	feedSvc := feed.NewService(cfg.Feed, appStore, feedPush, log)
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		feedSvc.Run(ctx)
	}()

	// Initialize router
	router := api.NewRouter(
		api.NewHandler(appStore, webpushOptions, push, cfg.Pagination.DefaultLimit, log),
		api.RouterConfig{
			Verifier:       auth.NewVerifier(cfg.Auth.JWTSecret),
			PartnerOrigins: cfg.Auth.PartnerOrigins,
			RateLimit:      rate.Limit(cfg.Server.RateLimitPerSec),
			RateBurst:      cfg.Server.RateLimitBurst,
			Cache:          cacheBackend,
			CacheTTL:       cfg.Cache.TTL,
			Log:            log,
		},
	)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	log.Info("shutdown signal received, stopping services")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server Shutdown", zap.Error(err))
	}

	cancel()
	<-feedDone
	if pool != nil {
		pool.Wait()
	}

	log.Info("server gracefully stopped")
}
