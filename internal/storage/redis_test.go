package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	r := NewRedisStorage("redis://"+mr.Addr(), ttl, testLogger())
	t.Cleanup(func() {
		_ = r.Close()
		mr.Close()
	})
	return r, mr
}

func TestRedisStorage_SaveLoad(t *testing.T) {
	r, mr := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	gs := state.NewGameState()
	gs.DruidID = "willow"
	gs.Seed = 77
	require.NoError(t, r.SaveGameState(ctx, gs.ID, gs))

	assert.True(t, mr.Exists("gamestate:"+gs.ID.String()))
	assert.Equal(t, time.Hour, mr.TTL("gamestate:"+gs.ID.String()))

	loaded, err := r.LoadGameState(ctx, gs.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, gs.ID, loaded.ID)
	assert.Equal(t, "willow", loaded.DruidID)
	assert.Equal(t, int64(77), loaded.Seed)
}

func TestRedisStorage_NoTTL(t *testing.T) {
	r, mr := setupTestRedis(t, 0)
	gs := state.NewGameState()
	require.NoError(t, r.SaveGameState(context.Background(), gs.ID, gs))
	assert.Equal(t, time.Duration(0), mr.TTL("gamestate:"+gs.ID.String()))
}

func TestRedisStorage_LoadMissing(t *testing.T) {
	r, _ := setupTestRedis(t, time.Hour)
	loaded, err := r.LoadGameState(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStorage_LoadCorrupt(t *testing.T) {
	r, mr := setupTestRedis(t, time.Hour)
	id := uuid.New()
	require.NoError(t, mr.Set("gamestate:"+id.String(), "{not json"))

	_, err := r.LoadGameState(context.Background(), id)
	assert.Error(t, err)
}

func TestRedisStorage_DeleteAndList(t *testing.T) {
	r, mr := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	a := state.NewGameState()
	b := state.NewGameState()
	require.NoError(t, r.SaveGameState(ctx, a.ID, a))
	require.NoError(t, r.SaveGameState(ctx, b.ID, b))
	require.NoError(t, r.ArchiveRecord(ctx, a.ID, history.Record{ID: "r1", Result: "peaceful"}))
	require.NoError(t, r.ArchiveRecord(ctx, b.ID, history.Record{ID: "r2", Result: "fled"}))

	list, err := r.ListGameStates(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, r.DeleteGameState(ctx, a.ID))
	loaded, err := r.LoadGameState(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
	assert.False(t, mr.Exists(historyKey(a.ID)), "deleting a game drops its history")

	// Expired keys are pruned from the index on listing; history survives expiry.
	mr.FastForward(2 * time.Hour)
	assert.True(t, mr.Exists(historyKey(b.ID)))

	list, err = r.ListGameStates(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	members, err := mr.Members("gamestates")
	if err == nil {
		assert.Empty(t, members)
	}
}

func TestRedisStorage_Records(t *testing.T) {
	r, _ := setupTestRedis(t, time.Hour)
	ctx := context.Background()
	id := uuid.New()

	for _, res := range []string{"peaceful", "bloodshed"} {
		require.NoError(t, r.ArchiveRecord(ctx, id, history.Record{ID: uuid.NewString(), ZoneID: "silver_lake", Result: res}))
	}
	recs, err := r.ListRecords(ctx, id)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "peaceful", recs[0].Result)
	assert.Equal(t, "bloodshed", recs[1].Result)
}

func TestRedisStorage_Ping(t *testing.T) {
	r, mr := setupTestRedis(t, time.Hour)
	require.NoError(t, r.Ping(context.Background()))
	require.NoError(t, r.WaitForConnection(context.Background(), 1, time.Millisecond))

	mr.Close()
	assert.Error(t, r.Ping(context.Background()))
}
