package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/game"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
	"github.com/jwebster45206/druid-of-peace/pkg/storage"
)

// StateNotifier is implemented by sinks that also announce every saved
// change to a game.
type StateNotifier interface {
	PublishGameStateUpdated(ctx context.Context, gameID uuid.UUID, zone string, inEncounter bool) error
}

// GameArchiver queues a durable copy of a game after it gains history.
type GameArchiver interface {
	ArchiveGame(ctx context.Context, gameID uuid.UUID, records int) error
}

type GameHandler struct {
	storage  storage.Storage
	lib      *content.Library
	sink     game.EventSink
	archiver GameArchiver
	logger   *slog.Logger
	locks    sync.Map // uuid.UUID -> *sync.Mutex
}

// NewGameHandler serves /v1/games. sink may be nil when events are disabled.
func NewGameHandler(store storage.Storage, lib *content.Library, sink game.EventSink, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		storage: store,
		lib:     lib,
		sink:    sink,
		logger:  logger,
	}
}

// SetArchiver enables archive jobs for games that finish encounters.
func (h *GameHandler) SetArchiver(a GameArchiver) {
	h.archiver = a
}

// ServeHTTP handles HTTP requests for games
// Routes:
// POST   /v1/games                              - Create a game
// GET    /v1/games                              - List games
// GET    /v1/games/{id}                         - Read a game
// DELETE /v1/games/{id}                         - Delete a game
// POST   /v1/games/{id}/map/advance             - Pass a map turn
// POST   /v1/games/{id}/map/travel              - Travel to a zone
// POST   /v1/games/{id}/map/items               - Use an item on the map
// POST   /v1/games/{id}/encounter               - Start the current zone's encounter
// GET    /v1/games/{id}/encounter               - Read the active or last encounter
// POST   /v1/games/{id}/encounter/actions       - Act in the encounter
// GET    /v1/games/{id}/skills                  - List visible skills
// POST   /v1/games/{id}/skills/{skill}/learn    - Learn a skill with points
// POST   /v1/games/{id}/skills/{skill}/claim    - Claim an unlocked skill
// GET    /v1/games/{id}/history                 - Encounter records and stats
// GET    /v1/games/{id}/journal                 - Encounter journal as PDF
func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/games"), "/")
	if path == "" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			h.methodNotAllowed(w, r, "POST, GET")
		}
		return
	}

	parts := strings.Split(path, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid game ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid game ID format")
		return
	}

	route := strings.Join(parts[1:], "/")
	switch {
	case route == "":
		switch r.Method {
		case http.MethodGet:
			h.handleRead(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			h.methodNotAllowed(w, r, "GET, DELETE")
		}
	case route == "map/advance":
		h.post(w, r, func() { h.handleAdvance(w, r, id) })
	case route == "map/travel":
		h.post(w, r, func() { h.handleTravel(w, r, id) })
	case route == "map/items":
		h.post(w, r, func() { h.handleMapItem(w, r, id) })
	case route == "encounter":
		switch r.Method {
		case http.MethodPost:
			h.handleStartEncounter(w, r, id)
		case http.MethodGet:
			h.handleGetEncounter(w, r, id)
		default:
			h.methodNotAllowed(w, r, "POST, GET")
		}
	case route == "encounter/actions":
		h.post(w, r, func() { h.handleAction(w, r, id) })
	case route == "skills":
		h.get(w, r, func() { h.handleSkills(w, r, id) })
	case len(parts) == 4 && parts[1] == "skills" && (parts[3] == "learn" || parts[3] == "claim"):
		h.post(w, r, func() { h.handleSkillChange(w, r, id, parts[2], parts[3]) })
	case route == "history":
		h.get(w, r, func() { h.handleHistory(w, r, id) })
	case route == "journal":
		h.get(w, r, func() { h.handleJournal(w, r, id) })
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *GameHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	h.logger.Warn("Method not allowed for games endpoint", "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Allow", allowed)
	writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: "+allowed)
}

func (h *GameHandler) post(w http.ResponseWriter, r *http.Request, fn func()) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r, "POST")
		return
	}
	fn()
}

func (h *GameHandler) get(w http.ResponseWriter, r *http.Request, fn func()) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r, "GET")
		return
	}
	fn()
}

type createRequest struct {
	Seed *int64 `json:"seed,omitempty"`
}

func (h *GameHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("Invalid create request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}

	s, err := game.NewGame(h.lib, seed, h.logger)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	defer s.Close()
	s.Sync()
	if err := h.storage.SaveGameState(r.Context(), s.State.ID, s.State); err != nil {
		writeDomainError(w, h.logger, fmt.Errorf("failed to save game: %w", err))
		return
	}
	h.publish(r.Context(), s)

	h.logger.Info("Game created", "game_id", s.State.ID, "seed", seed)
	writeJSON(w, h.logger, http.StatusCreated, s.State)
}

func (h *GameHandler) handleList(w http.ResponseWriter, r *http.Request) {
	games, err := h.storage.ListGameStates(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"games": games})
}

func (h *GameHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	gs, err := h.load(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, gs)
}

func (h *GameHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	unlock := h.lock(id)
	defer unlock()
	if _, err := h.load(r.Context(), id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if err := h.storage.DeleteGameState(r.Context(), id); err != nil {
		writeDomainError(w, h.logger, fmt.Errorf("failed to delete game: %w", err))
		return
	}
	h.locks.Delete(id)
	h.logger.Info("Game deleted", "game_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) lock(id uuid.UUID) (unlock func()) {
	v, _ := h.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (h *GameHandler) load(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	gs, err := h.storage.LoadGameState(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	if gs == nil {
		return nil, fmt.Errorf("%w: %s", errGameNotFound, id)
	}
	return gs, nil
}

// view opens a game read-only.
func (h *GameHandler) view(ctx context.Context, id uuid.UUID, fn func(*game.Session) (any, error)) (any, error) {
	gs, err := h.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s, err := game.Open(gs, h.lib, h.logger)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return fn(s)
}

// update opens a game, applies fn and saves the result when fn succeeds.
// Records added by fn are archived and buffered events are published.
func (h *GameHandler) update(ctx context.Context, id uuid.UUID, fn func(*game.Session) (any, error)) (any, error) {
	unlock := h.lock(id)
	defer unlock()

	gs, err := h.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s, err := game.Open(gs, h.lib, h.logger)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	before := gs.History.Len()
	out, err := fn(s)
	if err != nil {
		return nil, err
	}
	s.Sync()
	if err := h.storage.SaveGameState(ctx, id, gs); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}
	if added := gs.History.Records()[before:]; len(added) > 0 {
		h.archive(ctx, id, added)
		h.queueArchive(ctx, id, gs.History.Len())
	}
	h.publish(ctx, s)
	return out, nil
}

func (h *GameHandler) archive(ctx context.Context, id uuid.UUID, records []history.Record) {
	a, ok := h.storage.(storage.HistoryArchive)
	if !ok {
		return
	}
	for _, rec := range records {
		if err := a.ArchiveRecord(ctx, id, rec); err != nil {
			h.logger.Warn("Failed to archive record", "game_id", id, "record_id", rec.ID, "error", err)
		}
	}
}

func (h *GameHandler) queueArchive(ctx context.Context, id uuid.UUID, records int) {
	if h.archiver == nil {
		return
	}
	if err := h.archiver.ArchiveGame(ctx, id, records); err != nil {
		h.logger.Warn("Failed to queue archive job", "game_id", id, "error", err)
	}
}

func (h *GameHandler) publish(ctx context.Context, s *game.Session) {
	if err := s.Flush(ctx, h.sink); err != nil {
		h.logger.Warn("Failed to publish game events", "game_id", s.State.ID, "error", err)
	}
	if n, ok := h.sink.(StateNotifier); ok {
		gs := s.State
		if err := n.PublishGameStateUpdated(ctx, gs.ID, gs.Map.CurrentZone, gs.Encounter != nil); err != nil {
			h.logger.Warn("Failed to publish state update", "game_id", gs.ID, "error", err)
		}
	}
}

// respond writes out as JSON, or the mapped error.
func (h *GameHandler) respond(w http.ResponseWriter, status int, out any, err error) {
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, status, out)
}
