package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hmcavoy/mutiny-chess/internal/config"
	"github.com/hmcavoy/mutiny-chess/internal/handlers"
	"github.com/hmcavoy/mutiny-chess/internal/logger"
	"github.com/hmcavoy/mutiny-chess/internal/resolver"
	"github.com/hmcavoy/mutiny-chess/internal/rng"
	"github.com/hmcavoy/mutiny-chess/internal/services"
	"github.com/hmcavoy/mutiny-chess/internal/storage"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting Mutiny Chess API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"store_backend", cfg.StoreBackend,
		"gemini_model", cfg.GeminiModel)

	var store storage.Store
	var cache services.Cache

	switch cfg.StoreBackend {
	case "memory":
		store = storage.NewMemoryStore()
		cache = services.NewMemoryCache()
		log.Info("Using in-memory storage; games will not survive a restart")
	case "redis":
		redisStore := storage.NewRedisStore(cfg.RedisURL, log)
		redisCache := services.NewRedisCache(cfg.RedisURL, log)

		connectCtx, connectCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer connectCancel()
		if err := redisStore.WaitForConnection(connectCtx); err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		if err := redisCache.WaitForConnection(connectCtx); err != nil {
			log.Error("Failed to connect to Redis cache", "error", err)
			os.Exit(1)
		}
		log.Info("Storage connection established successfully")

		store = redisStore
		cache = redisCache
	default:
		log.Error("Invalid store backend", "backend", cfg.StoreBackend, "supported", []string{"redis", "memory"})
		os.Exit(1)
	}

	// Without an API key every piece speaks from the canned corpus.
	var gen services.Generator
	if cfg.GeminiAPIKey != "" {
		gen = services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, log)
		log.Info("Using Gemini generative backend", "model", cfg.GeminiModel)
	} else {
		log.Warn("No GEMINI_API_KEY set; running on fallback responses only")
	}

	governor := services.NewGovernor(cfg.MaxCallsPerMove, cfg.MaxCallsPerGame, cfg.DailyGameLimit, log)
	ledger := services.NewCostLedger(log)
	roller := rng.New()
	orch := services.NewOrchestrator(gen, governor, ledger, cache, roller, log)
	res := resolver.New(store, orch, roller, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, cache, log)
	mux.Handle("/health", healthHandler)

	gamesHandler := handlers.NewGamesHandler(res, log)
	mux.Handle("/v1/games", gamesHandler)
	mux.Handle("/v1/games/", gamesHandler)

	usageHandler := handlers.NewUsageHandler(governor, ledger, log)
	mux.Handle("/v1/usage", usageHandler)
	mux.Handle("/v1/usage/", usageHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Bound the governor's and ledger's daily bookkeeping.
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				governor.Sweep(7)
				ledger.Sweep(90)
			case <-sweepDone:
				return
			}
		}
	}()

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")
	close(sweepDone)

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := cache.Close(); err != nil {
		log.Error("Error closing cache connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
