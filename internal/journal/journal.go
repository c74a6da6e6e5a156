// Package journal stores an audit trail of rate lookups in Postgres.
// Dialogue sessions are never written here.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Outcome is the result of one lookup.
type Outcome string

const (
	OutcomeFound    Outcome = "found"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailed   Outcome = "failed"
)

// Entry is one row of rate_lookups.
type Entry struct {
	ID           uuid.UUID `db:"id"`
	ChatID       int64     `db:"chat_id"`
	LookupDate   time.Time `db:"lookup_date"`
	Currency     string    `db:"currency"`
	Outcome      Outcome   `db:"outcome"`
	UpstreamDate string    `db:"upstream_date"`
	ErrCode      string    `db:"err_code"`
	DurationMS   int64     `db:"duration_ms"`
	CreatedAt    time.Time `db:"created_at"`
}

// Store writes entries through sqlx.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open connection pool.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const insertEntry = `
INSERT INTO rate_lookups (id, chat_id, lookup_date, currency, outcome, upstream_date, err_code, duration_ms, created_at)
VALUES (:id, :chat_id, :lookup_date, :currency, :outcome, :upstream_date, :err_code, :duration_ms, :created_at)`

// Record inserts e, assigning a time-ordered id and timestamp when unset.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("journal: new id: %w", err)
		}
		e.ID = id
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.NamedExecContext(ctx, insertEntry, e); err != nil {
		return fmt.Errorf("journal: insert lookup: %w", err)
	}
	return nil
}

// Count returns the number of recorded lookups.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT count(*) FROM rate_lookups`); err != nil {
		return 0, fmt.Errorf("journal: count lookups: %w", err)
	}
	return n, nil
}
