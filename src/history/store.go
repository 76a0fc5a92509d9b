// Package history archives delivered events in SQLite so rooms have a
// durable message log independent of the best-effort live channel.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id    TEXT NOT NULL DEFAULT '',
	actor_id   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	payload    BLOB NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, id);
`

// Entry is one archived event.
type Entry struct {
	ID        int64           `json:"id"`
	RoomID    string          `json:"room_id,omitempty"`
	ActorID   string          `json:"actor_id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store is a SQLite-backed message archive.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the archive at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// SQLite writes must be serialized through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Archive records one delivered event. roomID is empty for direct chat
// traffic.
func (s *Store) Archive(ctx context.Context, roomID, actorID, kind string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (room_id, actor_id, kind, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		roomID, actorID, kind, payload, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("archive event: %w", err)
	}
	return nil
}

// RoomHistory returns the most recent entries for a room, oldest first.
func (s *Store) RoomHistory(ctx context.Context, roomID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, actor_id, kind, payload, created_at
		 FROM (SELECT * FROM messages WHERE room_id = ? ORDER BY id DESC LIMIT ?)
		 ORDER BY id ASC`,
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.RoomID, &e.ActorID, &e.Kind, (*[]byte)(&e.Payload), &created); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
