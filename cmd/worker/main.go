package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jwebster45206/druid-of-peace/internal/config"
	"github.com/jwebster45206/druid-of-peace/internal/logger"
	"github.com/jwebster45206/druid-of-peace/internal/services/queue"
	"github.com/jwebster45206/druid-of-peace/internal/storage"
	"github.com/jwebster45206/druid-of-peace/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Druid of Peace archive worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL,
		"sqlite_path", cfg.SQLitePath,
		"workers", cfg.WorkerCount)

	// Live games
	source := storage.NewRedisStorage(cfg.RedisURL, cfg.SessionTTL, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := source.WaitForConnection(storageCtx, 10, 2*time.Second); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := source.Close(); err != nil {
			log.Error("Failed to close Redis client", "error", err)
		}
	}()
	log.Info("Redis connection established successfully")

	// Durable copies
	archive, err := storage.OpenSQLite(cfg.SQLitePath, log)
	if err != nil {
		log.Error("Failed to open archive", "error", err, "path", cfg.SQLitePath)
		os.Exit(1)
	}
	defer func() {
		if err := archive.Close(); err != nil {
			log.Error("Failed to close archive", "error", err)
		}
	}()
	log.Info("Archive opened successfully")

	redisClient := source.Client()
	jobs := queue.NewJobQueue(queue.NewClientWithRedis(redisClient, log))

	workers := make([]*worker.Worker, cfg.WorkerCount)
	for i := range workers {
		id := cfg.WorkerID
		if id != "" && cfg.WorkerCount > 1 {
			id = fmt.Sprintf("%s-%d", id, i+1)
		}
		workers[i] = worker.New(jobs, source, archive, redisClient, log, id)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Start(); err != nil {
				log.Error("Worker error", "error", err, "worker_id", w.ID())
			}
		}()
	}

	log.Info("Workers started, waiting for jobs...")

	<-quit
	log.Info("Worker shutdown signal received")

	for _, w := range workers {
		w.Stop()
	}

	// Let in-flight jobs finish, bounded by the dequeue timeout
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("Timed out waiting for workers to stop")
	}

	log.Info("Worker exited")
}
