package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/internal/services/queue"
	queuePkg "github.com/jwebster45206/druid-of-peace/pkg/queue"
	"github.com/jwebster45206/druid-of-peace/pkg/storage"
	"github.com/redis/go-redis/v9"
)

const (
	workerTimeout = 5 * time.Second
	lockTTL       = 30 * time.Second
	maxAttempts   = 3
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Worker copies live games into the archive as jobs arrive
type Worker struct {
	id          string
	queue       *queue.JobQueue
	source      storage.Storage
	archive     storage.Storage
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance. source holds live games and archive
// receives the copies.
func New(jobs *queue.JobQueue, source, archive storage.Storage, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       jobs,
		source:      source,
		archive:     archive,
		redisClient: redisClient,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the worker's lock owner name
func (w *Worker) ID() string {
	return w.id
}

// Start processes jobs until Stop is called
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNextJob(); err != nil {
				w.log.Error("Error processing job", "error", err, "worker_id", w.id)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// processNextJob pulls the next job from the queue and processes it
func (w *Worker) processNextJob() error {
	job, err := w.queue.BlockingDequeue(w.ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue job: %w", err)
	}
	if job == nil {
		return nil
	}

	w.log.Info("Received job from queue",
		"worker_id", w.id,
		"job_id", job.JobID,
		"type", job.Type,
		"game_id", job.GameID.String(),
	)

	locked, err := w.acquireGameLock(job.GameID)
	if err != nil {
		return fmt.Errorf("failed to acquire game lock: %w", err)
	}
	if !locked {
		// Another worker holds this game; try again later
		w.log.Info("Game already locked, re-queueing job",
			"worker_id", w.id,
			"job_id", job.JobID,
			"game_id", job.GameID.String(),
		)
		if err := w.queue.Enqueue(w.ctx, job); err != nil {
			return fmt.Errorf("failed to re-queue job: %w", err)
		}
		return nil
	}
	defer w.releaseGameLock(job.GameID)

	if err := w.processJob(job); err != nil {
		return w.retry(job, err)
	}
	return nil
}

// retry puts a failed job back on the queue until it runs out of attempts
func (w *Worker) retry(job *queuePkg.Job, cause error) error {
	job.Attempts++
	if job.Attempts >= maxAttempts {
		w.log.Error("Dropping job after repeated failures",
			"worker_id", w.id,
			"job_id", job.JobID,
			"game_id", job.GameID.String(),
			"attempts", job.Attempts,
			"error", cause,
		)
		return nil
	}
	if err := w.queue.Enqueue(w.ctx, job); err != nil {
		return fmt.Errorf("failed to re-queue job after %v: %w", cause, err)
	}
	return fmt.Errorf("job %s failed (attempt %d): %w", job.JobID, job.Attempts, cause)
}

// acquireGameLock attempts to acquire a lock for a game
// Returns true if lock was acquired, false if already locked
func (w *Worker) acquireGameLock(gameID uuid.UUID) (bool, error) {
	return w.redisClient.SetNX(w.ctx, lockKey(gameID), w.id, lockTTL).Result()
}

// releaseGameLock releases the lock for a game if this worker owns it
func (w *Worker) releaseGameLock(gameID uuid.UUID) {
	if err := releaseScript.Run(w.ctx, w.redisClient, []string{lockKey(gameID)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release game lock", "error", err, "game_id", gameID.String())
	}
}

func lockKey(gameID uuid.UUID) string {
	return fmt.Sprintf("game-lock:%s", gameID.String())
}

func (w *Worker) processJob(job *queuePkg.Job) error {
	start := time.Now()
	switch job.Type {
	case queuePkg.JobArchiveGame:
		if err := w.archiveGame(job); err != nil {
			return err
		}
	default:
		w.log.Warn("Skipping job of unknown type", "job_id", job.JobID, "type", job.Type)
		return nil
	}
	w.log.Info("Job processed successfully",
		"worker_id", w.id,
		"job_id", job.JobID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// archiveGame copies the live game into the archive. When the live game
// has already expired, its retained history records are added to an
// earlier archived copy.
func (w *Worker) archiveGame(job *queuePkg.Job) error {
	gs, err := w.source.LoadGameState(w.ctx, job.GameID)
	if err != nil {
		return fmt.Errorf("failed to load game: %w", err)
	}
	if gs != nil {
		if err := w.archive.SaveGameState(w.ctx, job.GameID, gs); err != nil {
			return fmt.Errorf("failed to archive game: %w", err)
		}
		return nil
	}
	return w.archiveRecords(job.GameID)
}

func (w *Worker) archiveRecords(gameID uuid.UUID) error {
	from, okFrom := w.source.(storage.HistoryArchive)
	to, okTo := w.archive.(storage.HistoryArchive)
	if !okFrom || !okTo {
		w.log.Warn("Game expired before archiving", "game_id", gameID.String())
		return nil
	}
	archived, err := w.archive.LoadGameState(w.ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to load archived game: %w", err)
	}
	if archived == nil {
		// Records need their game row in the archive
		w.log.Warn("Game expired before its first archive", "game_id", gameID.String())
		return nil
	}
	records, err := from.ListRecords(w.ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	var errs []error
	for _, rec := range records {
		if err := to.ArchiveRecord(w.ctx, gameID, rec); err != nil {
			errs = append(errs, err)
		}
	}
	w.log.Info("Archived records of expired game", "game_id", gameID.String(), "records", len(records))
	return errors.Join(errs...)
}
