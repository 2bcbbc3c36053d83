// Package history persists analyzed summaries as a bounded, most-recent-first
// list, de-duplicated by source URL. Several backends share the same
// semantics; the in-memory store is the reference implementation.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pagelens/pagelens/src/summary"
)

// Capacity bounds every backend: only the 50 most recent entries are kept.
const Capacity = 50

// Envelope wraps a stored record with its storage identity.
type Envelope struct {
	ID      string          `json:"id"`
	Record  *summary.Record `json:"record"`
	SavedAt time.Time       `json:"savedAt"`
}

// NewEnvelope assigns a fresh identity to a record about to be saved.
func NewEnvelope(rec *summary.Record) Envelope {
	return Envelope{
		ID:      uuid.NewString(),
		Record:  rec,
		SavedAt: time.Now().UTC(),
	}
}

// Store is the history contract. Save is idempotent per source URL: a second
// save for the same URL replaces the earlier entry (last write wins) and
// moves it to the front.
type Store interface {
	Get(ctx context.Context) ([]Envelope, error)
	Save(ctx context.Context, env Envelope) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
