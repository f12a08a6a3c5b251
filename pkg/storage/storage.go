package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
)

// Storage defines a unified interface for game persistence.
// Content is loaded separately from the data directory.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// GameState operations
	SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error
	LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	DeleteGameState(ctx context.Context, id uuid.UUID) error
	ListGameStates(ctx context.Context) ([]state.Summary, error)
}

// HistoryArchive is implemented by backends that keep finished encounter
// records after the game state itself expires.
type HistoryArchive interface {
	ArchiveRecord(ctx context.Context, gameID uuid.UUID, rec history.Record) error
	ListRecords(ctx context.Context, gameID uuid.UUID) ([]history.Record, error)
}


// EncounterCounter is implemented by backends that can aggregate archived
// encounters by result without loading every record.
type EncounterCounter interface {
	EncounterCounts(ctx context.Context, gameID uuid.UUID) (map[string]int, error)
}
