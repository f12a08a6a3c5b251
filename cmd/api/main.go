package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jwebster45206/druid-of-peace/internal/config"
	"github.com/jwebster45206/druid-of-peace/internal/handlers"
	"github.com/jwebster45206/druid-of-peace/internal/logger"
	"github.com/jwebster45206/druid-of-peace/internal/middleware"
	"github.com/jwebster45206/druid-of-peace/internal/services/events"
	"github.com/jwebster45206/druid-of-peace/internal/services/queue"
	"github.com/jwebster45206/druid-of-peace/internal/storage"
	"github.com/jwebster45206/druid-of-peace/pkg/game"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
	pkgstorage "github.com/jwebster45206/druid-of-peace/pkg/storage"
	"github.com/redis/go-redis/v9"
)

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Druid of Peace API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage", cfg.StorageBackend)

	lib, err := loadContent(cfg.DataDir, log)
	if err != nil {
		log.Error("Failed to load game content", "error", err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}

	store, redisClient, err := openStorage(cfg, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err, "backend", cfg.StorageBackend)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	var sink game.EventSink
	if redisClient != nil && cfg.EventsEnabled {
		sink = events.NewBroadcaster(redisClient, log)
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, lib, log)
	mux.Handle("/health", healthHandler)

	contentHandler := handlers.NewContentHandler(lib, log)
	mux.Handle("/v1/content", contentHandler)

	gameHandler := handlers.NewGameHandler(store, lib, sink, log)
	mux.Handle("/v1/games", gameHandler)
	mux.Handle("/v1/games/", gameHandler)

	if redisClient != nil && cfg.ArchiveEnabled {
		jobs := queue.NewJobQueue(queue.NewClientWithRedis(redisClient, log))
		gameHandler.SetArchiver(jobs)
		log.Info("Archive jobs enabled")
	}

	if sink != nil {
		eventsHandler := handlers.NewEventsHandler(redisClient, log)
		mux.Handle("/v1/events/games/", eventsHandler)
		log.Info("Event streaming enabled")
	}

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream holds its connection open
		IdleTimeout: 60 * time.Second,
	}

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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}

// loadContent loads the game library. Validation problems are already logged
// per problem by LoadLibrary, so a library that loaded but failed validation
// is still served; only an unreadable data directory is fatal.
func loadContent(dataDir string, log *slog.Logger) (*content.Library, error) {
	lib, err := storage.LoadLibrary(dataDir, log)
	if errors.Is(err, storage.ErrInvalidContent) {
		log.Warn("Serving content with validation problems", "error", err, "data_dir", dataDir)
		return lib, nil
	}
	return lib, err
}

// openStorage builds the configured backend. The Redis client is returned
// for event streaming and is nil for the other backends.
func openStorage(cfg *config.Config, log *slog.Logger) (pkgstorage.Storage, *redis.Client, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		rs := storage.NewRedisStorage(cfg.RedisURL, cfg.SessionTTL, log)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := rs.WaitForConnection(ctx, 10, 2*time.Second); err != nil {
			return nil, nil, err
		}
		return rs, rs.Client(), nil
	case config.BackendSQLite:
		ss, err := storage.OpenSQLite(cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		return ss, nil, nil
	default:
		return pkgstorage.NewMockStorage(), nil, nil
	}
}
