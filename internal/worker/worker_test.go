package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/internal/services/queue"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	queuePkg "github.com/jwebster45206/druid-of-peace/pkg/queue"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
	"github.com/jwebster45206/druid-of-peace/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	mr      *miniredis.Miniredis
	jobs    *queue.JobQueue
	source  *storage.MockStorage
	archive *storage.MockStorage
	worker  *Worker
}

func setup(t *testing.T) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	client, err := queue.NewClient("redis://"+mr.Addr(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		mr:      mr,
		jobs:    queue.NewJobQueue(client),
		source:  storage.NewMockStorage(),
		archive: storage.NewMockStorage(),
	}
	f.worker = New(f.jobs, f.source, f.archive, client.GetRedisClient(), logger, "worker-test")
	t.Cleanup(f.worker.Stop)
	return f
}

func (f *fixture) depth(t *testing.T) int {
	t.Helper()
	n, err := f.jobs.Depth(context.Background())
	require.NoError(t, err)
	return n
}

func savedGame(t *testing.T, store *storage.MockStorage) *state.GameState {
	t.Helper()
	gs := state.NewGameState()
	gs.DruidID = "willow"
	gs.History.Append(history.Record{ID: "rec-1", ZoneID: "ironwood_camp", Result: "peaceful", Turns: 3})
	require.NoError(t, store.SaveGameState(context.Background(), gs.ID, gs))
	return gs
}

func TestNew_GeneratesID(t *testing.T) {
	w := New(nil, nil, nil, nil, slog.Default(), "")
	defer w.Stop()
	assert.Contains(t, w.ID(), "worker-")
}

func TestProcessNextJob_ArchivesGame(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	gs := savedGame(t, f.source)

	require.NoError(t, f.jobs.ArchiveGame(ctx, gs.ID, gs.History.Len()))
	require.NoError(t, f.worker.processNextJob())

	archived, err := f.archive.LoadGameState(ctx, gs.ID)
	require.NoError(t, err)
	require.NotNil(t, archived)
	assert.Equal(t, "willow", archived.DruidID)
	assert.Equal(t, 1, archived.History.Len())
	assert.Equal(t, 0, f.depth(t))
	assert.False(t, f.mr.Exists(lockKey(gs.ID)), "lock should be released")
}

func TestProcessNextJob_ExpiredGame(t *testing.T) {
	tests := []struct {
		name          string
		archivedFirst bool
		expectRecords int
	}{
		{"records join the earlier copy", true, 2},
		{"never archived is skipped", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			id := uuid.New()
			if tt.archivedFirst {
				gs := state.NewGameState()
				gs.ID = id
				require.NoError(t, f.archive.SaveGameState(ctx, id, gs))
			}
			require.NoError(t, f.source.ArchiveRecord(ctx, id, history.Record{ID: "rec-a", Result: "fled"}))
			require.NoError(t, f.source.ArchiveRecord(ctx, id, history.Record{ID: "rec-b", Result: "peaceful"}))

			require.NoError(t, f.jobs.ArchiveGame(ctx, id, 2))
			require.NoError(t, f.worker.processNextJob())
			assert.Equal(t, 0, f.depth(t))

			records, err := f.archive.ListRecords(ctx, id)
			require.NoError(t, err)
			require.Len(t, records, tt.expectRecords)
			if tt.expectRecords > 0 {
				assert.Equal(t, "rec-a", records[0].ID)
				assert.Equal(t, "rec-b", records[1].ID)
			}
		})
	}
}

func TestProcessNextJob_LockedGameIsRequeued(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	gs := savedGame(t, f.source)
	require.NoError(t, f.mr.Set(lockKey(gs.ID), "another-worker"))

	require.NoError(t, f.jobs.ArchiveGame(ctx, gs.ID, 1))
	require.NoError(t, f.worker.processNextJob())

	assert.Equal(t, 1, f.depth(t))
	archived, err := f.archive.LoadGameState(ctx, gs.ID)
	require.NoError(t, err)
	assert.Nil(t, archived)

	owner, err := f.mr.Get(lockKey(gs.ID))
	require.NoError(t, err)
	assert.Equal(t, "another-worker", owner, "foreign lock must not be released")
}

func TestProcessNextJob_Retries(t *testing.T) {
	tests := []struct {
		name          string
		attempts      int
		expectErr     bool
		expectDepth   int
		expectAttempt int
	}{
		{"first failure is requeued", 0, true, 1, 1},
		{"last attempt is dropped", maxAttempts - 1, false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			gs := savedGame(t, f.source)
			f.archive.SetSaveError(errors.New("disk full"))

			job := queuePkg.NewArchiveJob(gs.ID, 1)
			job.Attempts = tt.attempts
			require.NoError(t, f.jobs.Enqueue(ctx, job))

			err := f.worker.processNextJob()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Equal(t, tt.expectDepth, f.depth(t))
			if tt.expectDepth > 0 {
				requeued, err := f.jobs.Dequeue(ctx)
				require.NoError(t, err)
				assert.Equal(t, tt.expectAttempt, requeued.Attempts)
				assert.Equal(t, job.JobID, requeued.JobID)
			}
		})
	}
}

func TestProcessNextJob_UnknownTypeIsSkipped(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	job := &queuePkg.Job{JobID: "j1", Type: "compact", GameID: uuid.New()}
	require.NoError(t, f.jobs.Enqueue(ctx, job))

	assert.NoError(t, f.worker.processNextJob())
	assert.Equal(t, 0, f.depth(t))
}

func TestStartStop(t *testing.T) {
	f := setup(t)
	done := make(chan error, 1)
	go func() { done <- f.worker.Start() }()
	f.worker.Stop()
	assert.NoError(t, <-done)
}
