package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zentist/clinicdesk/core"
)

// SQLiteStore persists conversation state in a local SQLite database so
// sessions survive process restarts. Expiry is enforced on read; PurgeExpired
// reclaims space and may be run periodically.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema. A non-positive ttl defaults to DefaultTTL.
func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: enable WAL: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			key        TEXT PRIMARY KEY,
			state      TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: create schema: %w", err)
	}

	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, userID, conversationID string) (core.ConversationState, bool, error) {
	key := Key(userID, conversationID)

	var raw string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT state, expires_at FROM sessions WHERE key = ?", key,
	).Scan(&raw, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ConversationState{}, false, nil
	}
	if err != nil {
		return core.ConversationState{}, false, fmt.Errorf("session: load %s: %w", key, err)
	}

	if s.now().Unix() > expiresAt {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE key = ?", key); err != nil {
			return core.ConversationState{}, false, fmt.Errorf("session: expire %s: %w", key, err)
		}
		return core.ConversationState{}, false, nil
	}

	var state core.ConversationState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return core.ConversationState{}, false, fmt.Errorf("session: decode %s: %w", key, err)
	}
	return state, true, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, userID, conversationID string, state core.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session: encode state: %w", err)
	}

	nowUnix := s.now().Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (key, state, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			state      = excluded.state,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		Key(userID, conversationID), string(data), nowUnix+int64(s.ttl.Seconds()), nowUnix,
	)
	if err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired entries and returns how many were removed.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ?", s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("session: purge: %w", err)
	}
	return res.RowsAffected()
}
