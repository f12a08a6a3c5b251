package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
)

// MockStorage is an in-memory Storage for tests. States are stored as JSON
// so callers never share pointers with the store, as with a real backend.
type MockStorage struct {
	mu         sync.RWMutex
	gamestates map[uuid.UUID][]byte
	records    map[uuid.UUID][]history.Record
	pingError  error
	saveError  error
}

// Ensure MockStorage implements both interfaces
var (
	_ Storage        = (*MockStorage)(nil)
	_ HistoryArchive = (*MockStorage)(nil)
)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		gamestates: make(map[uuid.UUID][]byte),
		records:    make(map[uuid.UUID][]history.Record),
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes every save fail with err until cleared with nil
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveGameState mocks saving a gamestate
func (m *MockStorage) SaveGameState(ctx context.Context, id uuid.UUID, gamestate *state.GameState) error {
	if gamestate == nil {
		return errors.New("gamestate cannot be nil")
	}
	data, err := json.Marshal(gamestate)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.gamestates[id] = data
	return nil
}

// LoadGameState mocks loading a gamestate
func (m *MockStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	m.mu.RLock()
	data, exists := m.gamestates[id]
	m.mu.RUnlock()
	if !exists {
		return nil, nil // Return nil for not found
	}
	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

// DeleteGameState mocks deleting a gamestate
func (m *MockStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.gamestates, id)
	delete(m.records, id)
	return nil
}

// ListGameStates mocks listing saved games, most recently updated first
func (m *MockStorage) ListGameStates(ctx context.Context) ([]state.Summary, error) {
	m.mu.RLock()
	ids := make([]uuid.UUID, 0, len(m.gamestates))
	for id := range m.gamestates {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	result := make([]state.Summary, 0, len(ids))
	for _, id := range ids {
		gs, err := m.LoadGameState(ctx, id)
		if err != nil {
			return nil, err
		}
		if gs != nil {
			result = append(result, gs.Summarize())
		}
	}
	SortSummaries(result)
	return result, nil
}

// ArchiveRecord mocks keeping an encounter record
func (m *MockStorage) ArchiveRecord(ctx context.Context, gameID uuid.UUID, rec history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[gameID] = append(m.records[gameID], rec)
	return nil
}

// ListRecords mocks listing archived records for a game
func (m *MockStorage) ListRecords(ctx context.Context, gameID uuid.UUID) ([]history.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]history.Record(nil), m.records[gameID]...), nil
}

// SortSummaries orders summaries by most recent update, then ID.
func SortSummaries(s []state.Summary) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].UpdatedAt.Equal(s[j].UpdatedAt) {
			return s[i].UpdatedAt.After(s[j].UpdatedAt)
		}
		return s[i].ID.String() < s[j].ID.String()
	})
}
