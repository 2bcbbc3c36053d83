package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagelens/pagelens/src/summary"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS summary_history (
        id         TEXT PRIMARY KEY,
        source_url TEXT NOT NULL UNIQUE,
        record     JSONB NOT NULL,
        saved_at   TIMESTAMPTZ NOT NULL
);`

// PostgresStore persists history in Postgres.
type PostgresStore struct {
	DB *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	if connStr == "" {
		return nil, errors.New("history: postgres connection string is required")
	}
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("history: connect postgres: %w", err)
	}
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &PostgresStore{DB: db}, nil
}

func (ps *PostgresStore) Save(ctx context.Context, env Envelope) error {
	if env.Record == nil {
		return nil
	}
	recordJSON, err := json.Marshal(env.Record)
	if err != nil {
		return fmt.Errorf("history: encode record: %w", err)
	}
	_, err = ps.DB.Exec(ctx, `
                INSERT INTO summary_history (id, source_url, record, saved_at)
                VALUES ($1, $2, $3::jsonb, $4)
                ON CONFLICT (source_url) DO UPDATE
                SET id = EXCLUDED.id, record = EXCLUDED.record, saved_at = EXCLUDED.saved_at;
        `, env.ID, env.Record.SourceURL, string(recordJSON), env.SavedAt)
	if err != nil {
		return err
	}
	_, err = ps.DB.Exec(ctx, `
                DELETE FROM summary_history
                WHERE id NOT IN (
                        SELECT id FROM summary_history ORDER BY saved_at DESC LIMIT $1
                );
        `, Capacity)
	return err
}

func (ps *PostgresStore) Get(ctx context.Context) ([]Envelope, error) {
	rows, err := ps.DB.Query(ctx, `
                SELECT id, record::text, saved_at
                FROM summary_history
                ORDER BY saved_at DESC
                LIMIT $1;
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

func (ps *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := ps.DB.Exec(ctx, `DELETE FROM summary_history WHERE id = $1;`, id)
	return err
}

func (ps *PostgresStore) Clear(ctx context.Context) error {
	_, err := ps.DB.Exec(ctx, `DELETE FROM summary_history;`)
	return err
}

// Close releases the pool.
func (ps *PostgresStore) Close() {
	if ps.DB != nil {
		ps.DB.Close()
	}
}

var _ Store = (*PostgresStore)(nil)
