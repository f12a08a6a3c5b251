package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
	"github.com/jwebster45206/druid-of-peace/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// GameState operations (Redis-backed)

func (r *RedisStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}
	gs.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(gs)
	if err != nil {
		r.logger.Error("Failed to marshal gamestate", "game_id", id, "error", err)
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, gameStateKeyPrefix+id.String(), data, r.ttl)
	pipe.SAdd(ctx, gameStateIndexKey, id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to save gamestate", "game_id", id, "error", err)
		return fmt.Errorf("failed to save gamestate: %w", err)
	}

	return nil
}

func (r *RedisStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	data, err := r.client.Get(ctx, gameStateKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Gamestate not found", "game_id", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load gamestate", "game_id", id, "error", err)
		return nil, fmt.Errorf("failed to load gamestate: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		r.logger.Error("Failed to unmarshal gamestate", "game_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}

	return &gs, nil
}

// DeleteGameState removes the game and its history list. A game that only
// expires keeps its history for the archive worker.
func (r *RedisStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, gameStateKeyPrefix+id.String(), historyKey(id))
	pipe.SRem(ctx, gameStateIndexKey, id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to delete gamestate", "game_id", id, "error", err)
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}

// ListGameStates loads every indexed game. Entries whose key has expired are
// dropped from the index.
func (r *RedisStorage) ListGameStates(ctx context.Context) ([]state.Summary, error) {
	members, err := r.client.SMembers(ctx, gameStateIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list gamestates: %w", err)
	}

	summaries := make([]state.Summary, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			r.logger.Warn("Invalid game ID in index", "member", m)
			r.client.SRem(ctx, gameStateIndexKey, m)
			continue
		}
		gs, err := r.LoadGameState(ctx, id)
		if err != nil {
			return nil, err
		}
		if gs == nil {
			r.client.SRem(ctx, gameStateIndexKey, m)
			continue
		}
		summaries = append(summaries, gs.Summarize())
	}
	storage.SortSummaries(summaries)
	return summaries, nil
}
