package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pagelens/pagelens/src/summary"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS summary_history (
        id         TEXT PRIMARY KEY,
        source_url TEXT NOT NULL UNIQUE,
        record     TEXT NOT NULL,
        saved_at   TIMESTAMP NOT NULL
);`

// SQLiteStore persists history in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("history: sqlite path is required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (ss *SQLiteStore) Save(ctx context.Context, env Envelope) error {
	if env.Record == nil {
		return nil
	}
	recordJSON, err := json.Marshal(env.Record)
	if err != nil {
		return fmt.Errorf("history: encode record: %w", err)
	}
	_, err = ss.db.ExecContext(ctx, `
                INSERT INTO summary_history (id, source_url, record, saved_at)
                VALUES (?, ?, ?, ?)
                ON CONFLICT (source_url) DO UPDATE
                SET id = excluded.id, record = excluded.record, saved_at = excluded.saved_at;
        `, env.ID, env.Record.SourceURL, string(recordJSON), env.SavedAt)
	if err != nil {
		return err
	}
	_, err = ss.db.ExecContext(ctx, `
                DELETE FROM summary_history
                WHERE id NOT IN (
                        SELECT id FROM summary_history ORDER BY saved_at DESC LIMIT ?
                );
        `, Capacity)
	return err
}

func (ss *SQLiteStore) Get(ctx context.Context) ([]Envelope, error) {
	rows, err := ss.db.QueryContext(ctx, `
                SELECT id, record, saved_at
                FROM summary_history
                ORDER BY saved_at DESC
                LIMIT ?;
        `, Capacity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Envelope
	for rows.Next() {
		var (
			env        Envelope
			recordJSON string
			savedAt    time.Time
		)
		if err := rows.Scan(&env.ID, &recordJSON, &savedAt); err != nil {
			return nil, err
		}
		var rec summary.Record
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, fmt.Errorf("history: decode record %s: %w", env.ID, err)
		}
		env.Record = &rec
		env.SavedAt = savedAt
		out = append(out, env)
	}
	return out, rows.Err()
}

func (ss *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := ss.db.ExecContext(ctx, `DELETE FROM summary_history WHERE id = ?;`, id)
	return err
}

func (ss *SQLiteStore) Clear(ctx context.Context) error {
	_, err := ss.db.ExecContext(ctx, `DELETE FROM summary_history;`)
	return err
}

// Close closes the database handle.
func (ss *SQLiteStore) Close() error {
	return ss.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
