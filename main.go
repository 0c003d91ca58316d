package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"rdr-dashboard/backend"
	"rdr-dashboard/cache"
	"rdr-dashboard/config"
	"rdr-dashboard/handler"
	appLogger "rdr-dashboard/logger"
	"rdr-dashboard/middleware"
	redisClient "rdr-dashboard/redis"
)

func main() {
	// Load configuration
	cfg := config.MustLoadConfig()

	// Initialize logger
	appLogger.Initialize(cfg.Log)
	log.Info().Str("backend", cfg.Backend.URL).Msg("Configuration loaded successfully")

	// Initialize in-process response cache (if enabled)
	var cacheClient *cache.Cache
	if cfg.Cache.Enabled {
		var err error
		cacheClient, err = cache.New(cfg.Cache)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize cache")
		}
	} else {
		log.Info().Msg("Cache disabled in configuration")
	}

	// Initialize shared Redis cache tier (if enabled)
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		var err error
		rdb, err = redisClient.NewClient(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
	}

	var responseCache *cache.Tiered
	var backendCache backend.ResponseCache
	if cacheClient != nil || rdb != nil {
		responseCache = cache.NewTiered(cacheClient, rdb, cfg.Redis.KeyPrefix,
			time.Duration(cfg.Cache.TTLSeconds)*time.Second,
			time.Duration(cfg.Redis.OperationTimeout)*time.Second)
		backendCache = responseCache
	}

	client, err := backend.NewClient(cfg.Backend, backendCache)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize backend client")
	}

	dashboard, err := handler.NewDashboardHandler(client, responseCache, rdb, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize dashboard")
	}

	// Set up router
	r := mux.NewRouter()

	// Apply global middleware
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	r.Use(middleware.Recover)
	r.Use(middleware.CORS)
	r.Use(middleware.RequestLogger)
	r.Use(rateLimiter.Limit)

	// Register routes
	dashboard.Register(r)

	// Configure HTTP server
	serverAddress := fmt.Sprintf("%s:%s", cfg.WebServer.IP, cfg.WebServer.Port)
	server := &http.Server{
		Addr:         serverAddress,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.WebServer.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WebServer.WriteTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("address", serverAddress).
			Str("scheme", cfg.WebServer.Scheme).
			Msg("Starting server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.WebServer.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Close cache
	if cacheClient != nil {
		cacheClient.Close()
	}

	// Close Redis connection
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}

	log.Info().Msg("Server stopped gracefully")
}
