package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	"github.com/jwebster45206/druid-of-peace/pkg/storage"
)

var _ storage.HistoryArchive = (*RedisStorage)(nil)

func historyKey(gameID uuid.UUID) string {
	return fmt.Sprintf("history:%s", gameID.String())
}

// ArchiveRecord appends a record to the game's history list. The list has
// no TTL so it outlives the game state.
func (r *RedisStorage) ArchiveRecord(ctx context.Context, gameID uuid.UUID, rec history.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := r.client.RPush(ctx, historyKey(gameID), data).Err(); err != nil {
		r.logger.Error("Failed to archive record", "game_id", gameID, "error", err)
		return fmt.Errorf("failed to archive record: %w", err)
	}
	return nil
}

// ListRecords returns the archived records oldest first.
func (r *RedisStorage) ListRecords(ctx context.Context, gameID uuid.UUID) ([]history.Record, error) {
	items, err := r.client.LRange(ctx, historyKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	out := make([]history.Record, 0, len(items))
	for _, item := range items {
		var rec history.Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			r.logger.Warn("Skipping unreadable record", "game_id", gameID, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
