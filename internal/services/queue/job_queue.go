package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/pkg/queue"
	"github.com/redis/go-redis/v9"
)

const jobsKey = "jobs"

// JobQueue is the global FIFO of background jobs
type JobQueue struct {
	client *Client
}

func NewJobQueue(client *Client) *JobQueue {
	return &JobQueue{
		client: client,
	}
}

// Enqueue adds a job to the end of the queue
func (q *JobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	data, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize job: %w", err)
	}
	if err := q.client.rdb.RPush(ctx, jobsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// ArchiveGame queues a copy of the game into the archive
func (q *JobQueue) ArchiveGame(ctx context.Context, gameID uuid.UUID, records int) error {
	job := queue.NewArchiveJob(gameID, records)
	if err := q.Enqueue(ctx, job); err != nil {
		return err
	}
	q.client.logger.Debug("Queued archive job", "job_id", job.JobID, "game_id", gameID)
	return nil
}

// Dequeue removes and returns the next job.
// Returns nil if the queue is empty
func (q *JobQueue) Dequeue(ctx context.Context) (*queue.Job, error) {
	result, err := q.client.rdb.LPop(ctx, jobsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	return parseJob(result)
}

// BlockingDequeue waits up to timeout for a job. A nil job with a nil
// error means the wait timed out or ctx was cancelled.
func (q *JobQueue) BlockingDequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, jobsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	// BLPOP returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply of length %d", len(result))
	}
	return parseJob(result[1])
}

// Depth returns the number of queued jobs
func (q *JobQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, jobsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}

func parseJob(data string) (*queue.Job, error) {
	job, err := queue.FromJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse job: %w", err)
	}
	return job, nil
}
