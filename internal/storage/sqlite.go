package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/pkg/history"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
	"github.com/jwebster45206/druid-of-peace/pkg/storage"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS game_states (
	id           TEXT PRIMARY KEY,
	druid_id     TEXT NOT NULL,
	current_zone TEXT NOT NULL DEFAULT '',
	payload      BLOB NOT NULL,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS encounter_history (
	id         TEXT PRIMARY KEY,
	game_id    TEXT NOT NULL REFERENCES game_states(id) ON DELETE CASCADE,
	zone_id    TEXT NOT NULL,
	result     TEXT NOT NULL,
	weather    TEXT NOT NULL DEFAULT '',
	time_phase TEXT NOT NULL DEFAULT '',
	day        INTEGER NOT NULL DEFAULT 0,
	turns      INTEGER NOT NULL DEFAULT 0,
	harm_done  INTEGER NOT NULL DEFAULT 0,
	payload    BLOB NOT NULL,
	at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS encounter_history_game ON encounter_history(game_id, at);
`

// SQLiteStorage keeps games in a local SQLite database. Encounter records
// are also written to their own table so they can be queried.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ storage.Storage          = (*SQLiteStorage)(nil)
	_ storage.HistoryArchive   = (*SQLiteStorage)(nil)
	_ storage.EncounterCounter = (*SQLiteStorage)(nil)
)

// OpenSQLite opens and migrates the database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite db: %w", err)
	}
	logger.Info("SQLite storage opened", "path", path)
	return &SQLiteStorage{db: db, logger: logger}, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveGameState upserts the game and every record in its history.
func (s *SQLiteStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if gs == nil {
		return errors.New("gamestate cannot be nil")
	}
	gs.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}
	zone := ""
	if gs.Map != nil {
		zone = gs.Map.CurrentZone
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO game_states (id, druid_id, current_zone, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			druid_id = excluded.druid_id,
			current_zone = excluded.current_zone,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		id.String(), gs.DruidID, zone, data, gs.CreatedAt.UnixMilli(), gs.UpdatedAt.UnixMilli(),
	); err != nil {
		s.logger.Error("Failed to save gamestate", "game_id", id, "error", err)
		return fmt.Errorf("failed to save gamestate: %w", err)
	}

	if gs.History != nil {
		for _, rec := range gs.History.Records() {
			if err := insertRecord(ctx, tx, id, rec); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit gamestate: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRecord(ctx context.Context, db execer, gameID uuid.UUID, rec history.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	harm := 0
	if rec.HarmDone {
		harm = 1
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO encounter_history (id, game_id, zone_id, result, weather, time_phase, day, turns, harm_done, payload, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		rec.ID, gameID.String(), rec.ZoneID, rec.Result, rec.Weather, rec.TimePhase,
		rec.Day, rec.Turns, harm, payload, rec.At.UnixMilli(),
	); err != nil {
		return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM game_states WHERE id = ?`, id.String()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load gamestate: %w", err)
	}
	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}
	return &gs, nil
}

func (s *SQLiteStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM game_states WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListGameStates(ctx context.Context) ([]state.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM game_states ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list gamestates: %w", err)
	}
	defer rows.Close()

	var summaries []state.Summary
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan gamestate: %w", err)
		}
		var gs state.GameState
		if err := json.Unmarshal(data, &gs); err != nil {
			s.logger.Warn("Skipping unreadable gamestate", "error", err)
			continue
		}
		summaries = append(summaries, gs.Summarize())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gamestates: %w", err)
	}
	storage.SortSummaries(summaries)
	return summaries, nil
}

// ArchiveRecord writes a single record. The game must already be saved.
func (s *SQLiteStorage) ArchiveRecord(ctx context.Context, gameID uuid.UUID, rec history.Record) error {
	return insertRecord(ctx, s.db, gameID, rec)
}

// ListRecords returns a game's archived records oldest first.
func (s *SQLiteStorage) ListRecords(ctx context.Context, gameID uuid.UUID) ([]history.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM encounter_history WHERE game_id = ? ORDER BY at, id`, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var out []history.Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec history.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// EncounterCounts returns how many encounters a game finished per result.
func (s *SQLiteStorage) EncounterCounts(ctx context.Context, gameID uuid.UUID) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result, COUNT(*) FROM encounter_history WHERE game_id = ? GROUP BY result`, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to count encounters: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var result string
		var n int
		if err := rows.Scan(&result, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[result] = n
	}
	return counts, rows.Err()
}
