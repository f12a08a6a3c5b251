package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/pkg/game"
	"github.com/redis/go-redis/v9"
)

// EventTypeGameStateUpdated is sent after every saved change to a game.
const EventTypeGameStateUpdated = "game.state_updated"

// Event is the message published on a game's channel.
type Event struct {
	Type   string `json:"type"`
	GameID string `json:"game_id,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// Ensure Broadcaster can receive session events
var _ game.EventSink = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Channel is the pub/sub channel for a game.
func Channel(gameID uuid.UUID) string {
	return fmt.Sprintf("game-events:%s", gameID.String())
}

// Publish forwards a session event to the game's channel.
func (b *Broadcaster) Publish(ctx context.Context, gameID uuid.UUID, ev game.Event) error {
	return b.publishToGame(ctx, gameID, Event{
		Type:   string(ev.Type),
		GameID: gameID.String(),
		Data:   ev.Data,
	})
}

// PublishGameStateUpdated publishes a game.state_updated event
func (b *Broadcaster) PublishGameStateUpdated(ctx context.Context, gameID uuid.UUID, zone string, inEncounter bool) error {
	return b.publishToGame(ctx, gameID, Event{
		Type:   EventTypeGameStateUpdated,
		GameID: gameID.String(),
		Data: map[string]any{
			"current_zone": zone,
			"in_encounter": inEncounter,
		},
	})
}

// publishToGame publishes an event to the game-specific channel
func (b *Broadcaster) publishToGame(ctx context.Context, gameID uuid.UUID, event Event) error {
	channel := Channel(gameID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)

	return nil
}
