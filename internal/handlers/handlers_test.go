package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/data"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/encounter"
	"github.com/jwebster45206/druid-of-peace/pkg/game"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
	"github.com/jwebster45206/druid-of-peace/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func testLibrary(t *testing.T) *content.Library {
	t.Helper()
	lib, errs := content.Load(data.FS)
	require.Empty(t, errs)
	return lib
}

type recordingSink struct {
	mu      sync.Mutex
	events  []game.Event
	updates int
}

func (r *recordingSink) Publish(_ context.Context, _ uuid.UUID, ev game.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) PublishGameStateUpdated(_ context.Context, _ uuid.UUID, _ string, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	return nil
}

func (r *recordingSink) count(t game.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

type fixture struct {
	t       *testing.T
	store   *storage.MockStorage
	sink    *recordingSink
	handler *GameHandler
}

func newFixture(t *testing.T) *fixture {
	store := storage.NewMockStorage()
	sink := &recordingSink{}
	return &fixture{
		t:       t,
		store:   store,
		sink:    sink,
		handler: NewGameHandler(store, testLibrary(t), sink, testLogger()),
	}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	f.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f *fixture) create(seed int64) uuid.UUID {
	f.t.Helper()
	w := f.do(http.MethodPost, "/v1/games", fmt.Sprintf(`{"seed": %d}`, seed))
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	var gs state.GameState
	require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &gs))
	return gs.ID
}

func (f *fixture) stored(id uuid.UUID) *state.GameState {
	f.t.Helper()
	gs, err := f.store.LoadGameState(context.Background(), id)
	require.NoError(f.t, err)
	require.NotNil(f.t, gs)
	return gs
}

// activeGame returns a game whose encounter is waiting on the druid.
func (f *fixture) activeGame() uuid.UUID {
	f.t.Helper()
	for seed := int64(1); seed < 100; seed++ {
		id := f.create(seed)
		gs := f.stored(id)
		gs.Map.Current().HasEncounter = true
		require.NoError(f.t, f.store.SaveGameState(context.Background(), id, gs))

		w := f.do(http.MethodPost, "/v1/games/"+id.String()+"/encounter", "")
		require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
		var res game.ActionResult
		require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &res))
		if res.Finished == nil && res.Encounter != nil && res.Encounter.CurrentTurn == encounter.TurnDruid {
			return id
		}
	}
	f.t.Fatal("no seed produced an active encounter")
	return uuid.Nil
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name            string
		pingErr         error
		lib             *content.Library
		expectedStatus  int
		expectedHealth  string
		expectedStorage string
		expectedContent string
	}{
		{
			name:            "all healthy",
			lib:             testLibrary(t),
			expectedStatus:  http.StatusOK,
			expectedHealth:  "healthy",
			expectedStorage: "healthy",
			expectedContent: "healthy",
		},
		{
			name:            "unhealthy storage",
			pingErr:         errors.New("connection failed"),
			lib:             testLibrary(t),
			expectedStatus:  http.StatusServiceUnavailable,
			expectedHealth:  "degraded",
			expectedStorage: "unhealthy",
			expectedContent: "healthy",
		},
		{
			name:            "empty content",
			lib:             content.NewLibrary(),
			expectedStatus:  http.StatusServiceUnavailable,
			expectedHealth:  "degraded",
			expectedStorage: "healthy",
			expectedContent: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMockStorage()
			if tt.pingErr != nil {
				store.SetPingError(tt.pingErr)
			}
			handler := NewHealthHandler(store, tt.lib, testLogger())

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			if resp.Status != tt.expectedHealth {
				t.Errorf("expected health %q, got %q", tt.expectedHealth, resp.Status)
			}
			if resp.Components["storage"] != tt.expectedStorage {
				t.Errorf("expected storage %q, got %q", tt.expectedStorage, resp.Components["storage"])
			}
			if resp.Components["content"] != tt.expectedContent {
				t.Errorf("expected content %q, got %q", tt.expectedContent, resp.Components["content"])
			}
			if resp.Service != "druid-of-peace" {
				t.Errorf("expected service druid-of-peace, got %q", resp.Service)
			}
		})
	}
}

func TestContentHandler(t *testing.T) {
	handler := NewContentHandler(testLibrary(t), testLogger())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/content", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var lib content.Library
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lib))
	assert.Equal(t, "willow", lib.Druid.ID)
	assert.NotEmpty(t, lib.Zones)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/content", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestGameHandler_CreateReadDelete(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/v1/games", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var gs state.GameState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gs))
	assert.Equal(t, "willow", gs.DruidID)
	assert.Equal(t, "whispering_grove", gs.Map.CurrentZone)

	id := gs.ID.String()
	w = f.do(http.MethodGet, "/v1/games/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/v1/games", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Games []state.Summary `json:"games"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Games, 1)
	assert.Equal(t, gs.ID, list.Games[0].ID)

	w = f.do(http.MethodDelete, "/v1/games/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodGet, "/v1/games/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(http.MethodDelete, "/v1/games/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGameHandler_CreateWithSeed(t *testing.T) {
	f := newFixture(t)
	a := f.stored(f.create(7))
	b := f.stored(f.create(7))
	assert.Equal(t, int64(7), a.Seed)
	assert.Equal(t, a.Weather, b.Weather)
}

func TestGameHandler_BadRequests(t *testing.T) {
	f := newFixture(t)
	id := f.create(1).String()

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
	}{
		{"invalid create body", http.MethodPost, "/v1/games", `{"seed": "x"}`, http.StatusBadRequest},
		{"unknown create field", http.MethodPost, "/v1/games", `{"druid": "oak"}`, http.StatusBadRequest},
		{"invalid game id", http.MethodGet, "/v1/games/not-a-uuid", "", http.StatusBadRequest},
		{"unknown game", http.MethodGet, "/v1/games/" + uuid.NewString(), "", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/v1/games/" + id + "/nope", "", http.StatusNotFound},
		{"collection method", http.MethodPut, "/v1/games", "", http.StatusMethodNotAllowed},
		{"game method", http.MethodPatch, "/v1/games/" + id, "", http.StatusMethodNotAllowed},
		{"advance method", http.MethodGet, "/v1/games/" + id + "/map/advance", "", http.StatusMethodNotAllowed},
		{"travel without zone", http.MethodPost, "/v1/games/" + id + "/map/travel", `{}`, http.StatusBadRequest},
		{"travel unknown zone", http.MethodPost, "/v1/games/" + id + "/map/travel", `{"zone": "moon"}`, http.StatusBadRequest},
		{"travel not connected", http.MethodPost, "/v1/games/" + id + "/map/travel", `{"zone": "border_fort"}`, http.StatusBadRequest},
		{"item without id", http.MethodPost, "/v1/games/" + id + "/map/items", `{}`, http.StatusBadRequest},
		{"item not usable on map", http.MethodPost, "/v1/games/" + id + "/map/items", `{"item": "sleep_dust"}`, http.StatusBadRequest},
		{"no encounter to start", http.MethodPost, "/v1/games/" + id + "/encounter", "", http.StatusConflict},
		{"no encounter played", http.MethodGet, "/v1/games/" + id + "/encounter", "", http.StatusNotFound},
		{"action without encounter", http.MethodPost, "/v1/games/" + id + "/encounter/actions", `{"type": "flee"}`, http.StatusConflict},
		{"action without type", http.MethodPost, "/v1/games/" + id + "/encounter/actions", `{}`, http.StatusBadRequest},
		{"learn unknown skill", http.MethodPost, "/v1/games/" + id + "/skills/flying/learn", "", http.StatusBadRequest},
		{"claim not pending", http.MethodPost, "/v1/games/" + id + "/skills/deep_roots/claim", "", http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(tt.method, tt.path, tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			assert.NotEmpty(t, decodeError(t, w))
		})
	}
}

func TestGameHandler_Map(t *testing.T) {
	f := newFixture(t)
	id := f.create(3)
	base := "/v1/games/" + id.String()

	w := f.do(http.MethodPost, base+"/map/advance", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var adv AdvanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &adv))
	require.NotNil(t, adv.Turn)
	assert.Equal(t, 10, adv.Turn.Hour)
	assert.Equal(t, 1, adv.Map.Turn)

	w = f.do(http.MethodPost, base+"/map/travel", `{"zone": "silver_lake"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tr TravelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tr))
	assert.Equal(t, "silver_lake", tr.Map.CurrentZone)
	assert.Equal(t, 11, tr.Clock.Hour)

	gs := f.stored(id)
	assert.Equal(t, "silver_lake", gs.Map.CurrentZone)
	assert.Equal(t, 11, gs.Clock.Hour)
	assert.Positive(t, gs.RNGPosition)

	before := gs.Map.Current().Heat
	w = f.do(http.MethodPost, base+"/map/items", `{"item": "cooling_incense"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var item MapItemResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.LessOrEqual(t, item.Zone.Heat, before)
	assert.Equal(t, 0, f.stored(id).Inventory.Count("cooling_incense"))

	assert.Positive(t, f.sink.count(game.EventClock))
	assert.Positive(t, f.sink.updates)
}

func TestGameHandler_Encounter(t *testing.T) {
	f := newFixture(t)
	id := f.activeGame()
	base := "/v1/games/" + id.String()

	w := f.do(http.MethodGet, base+"/encounter", "")
	require.Equal(t, http.StatusOK, w.Code)
	var enc EncounterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &enc))
	assert.True(t, enc.Active)
	assert.Len(t, enc.Encounter.NPCs, 2)

	w = f.do(http.MethodPost, base+"/map/travel", `{"zone": "silver_lake"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, base+"/encounter/actions", `{"type": "dance"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, base+"/encounter/actions", `{"type": "flee"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res game.ActionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotNil(t, res.Finished)
	assert.Equal(t, string(encounter.OutcomeFled), res.Finished.Record.Result)

	w = f.do(http.MethodGet, base+"/encounter", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &enc))
	assert.False(t, enc.Active)
	assert.True(t, enc.Encounter.GameOver)

	w = f.do(http.MethodGet, base+"/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hist HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	require.Len(t, hist.Records, 1)
	assert.Equal(t, 1, hist.Stats.Total)
	assert.Equal(t, 1, hist.Archived)

	assert.Equal(t, 1, f.sink.count(game.EventEncounterStart))
	assert.Equal(t, 1, f.sink.count(game.EventEncounterEnd))
}

// countingStore aggregates archived records the way the SQLite backend does.
type countingStore struct {
	*storage.MockStorage
}

func (c countingStore) EncounterCounts(ctx context.Context, gameID uuid.UUID) (map[string]int, error) {
	recs, err := c.ListRecords(ctx, gameID)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, r := range recs {
		counts[r.Result]++
	}
	return counts, nil
}

func TestGameHandler_HistoryCounts(t *testing.T) {
	f := newFixture(t)
	f.handler = NewGameHandler(countingStore{f.store}, testLibrary(t), f.sink, testLogger())
	id := f.activeGame()
	base := "/v1/games/" + id.String()

	w := f.do(http.MethodPost, base+"/encounter/actions", `{"type": "flee"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodGet, base+"/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hist HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.Equal(t, 1, hist.Archived)
	assert.Equal(t, map[string]int{string(encounter.OutcomeFled): 1}, hist.ArchivedByResult)
}

type recordingArchiver struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]int
	err  error
}

func (a *recordingArchiver) ArchiveGame(_ context.Context, gameID uuid.UUID, records int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	if a.jobs == nil {
		a.jobs = make(map[uuid.UUID]int)
	}
	a.jobs[gameID] = records
	return nil
}

func TestGameHandler_Archiver(t *testing.T) {
	tests := []struct {
		name       string
		archiveErr error
		expectJob  bool
	}{
		{"queues job when history grows", nil, true},
		{"queue failure does not fail the action", errors.New("redis down"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.activeGame()
			base := "/v1/games/" + id.String()
			archiver := &recordingArchiver{err: tt.archiveErr}
			f.handler.SetArchiver(archiver)

			w := f.do(http.MethodPost, base+"/map/advance", "")
			assert.Equal(t, http.StatusConflict, w.Code)
			assert.Empty(t, archiver.jobs, "no job expected without new history")

			w = f.do(http.MethodPost, base+"/encounter/actions", `{"type": "flee"}`)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			records, ok := archiver.jobs[id]
			assert.Equal(t, tt.expectJob, ok)
			if tt.expectJob {
				assert.Equal(t, f.stored(id).History.Len(), records)
			}
		})
	}
}

func TestGameHandler_Skills(t *testing.T) {
	f := newFixture(t)
	id := f.create(5)
	base := "/v1/games/" + id.String()

	w := f.do(http.MethodGet, base+"/skills", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp SkillsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Points)
	require.NotEmpty(t, resp.Skills)

	var available string
	for _, s := range resp.Skills {
		if s.Status == "available" && s.Cost > 0 {
			available = s.ID
			break
		}
	}
	require.NotEmpty(t, available)

	w = f.do(http.MethodPost, base+"/skills/"+available+"/learn", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	gs := f.stored(id)
	gs.Skills.Points = 10
	require.NoError(t, f.store.SaveGameState(context.Background(), id, gs))

	w = f.do(http.MethodPost, base+"/skills/"+available+"/learn", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Less(t, resp.Points, 10)
	assert.True(t, f.stored(id).Skills.Learned[available])
}

func TestGameHandler_Journal(t *testing.T) {
	f := newFixture(t)
	id := f.create(9)

	w := f.do(http.MethodGet, "/v1/games/"+id.String()+"/journal", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), id.String())
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestGameHandler_SaveFailure(t *testing.T) {
	f := newFixture(t)
	id := f.create(2)
	f.store.SetSaveError(errors.New("disk full"))

	w := f.do(http.MethodPost, "/v1/games/"+id.String()+"/map/advance", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeError(t, w))
	assert.Equal(t, 0, f.stored(id).Map.Turn)
}

func TestEventsHandler_BadRequests(t *testing.T) {
	handler := NewEventsHandler(nil, testLogger())

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"wrong method", http.MethodPost, "/v1/events/games/" + uuid.NewString(), http.StatusMethodNotAllowed},
		{"wrong path", http.MethodGet, "/v1/events/gamestate/" + uuid.NewString(), http.StatusBadRequest},
		{"invalid id", http.MethodGet, "/v1/events/games/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}
