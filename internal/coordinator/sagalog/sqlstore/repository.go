// Package sqlstore provides a SQL implementation of sagalog.Repository on
// top of the shared database package, so the log lives in the same SQLite
// file or PostgreSQL database as the service's own tables.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jcmexdev/disqueria/internal/coordinator/sagalog"
	"github.com/jcmexdev/disqueria/internal/pkg/database"
)

// Schema is the DDL for the saga log. The table is append-only: each row is
// an immutable event; the highest seq per saga_id is the current state.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS saga_logs (
		id              TEXT    PRIMARY KEY,
		saga_id         TEXT    NOT NULL,
		seq             INTEGER NOT NULL,
		status          TEXT    NOT NULL,
		current_step    TEXT    NOT NULL DEFAULT '',
		payload         TEXT,
		error_messages  TEXT    NOT NULL DEFAULT '[]',
		trace_id        TEXT    NOT NULL DEFAULT '',
		span_id         TEXT    NOT NULL DEFAULT '',
		updated_at      TEXT    NOT NULL,
		UNIQUE (saga_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_saga_logs_trace_id ON saga_logs(trace_id)`,
}

// Repository stores saga log entries in saga_logs.
type Repository struct {
	db *sqlx.DB
}

// New applies Schema and returns a Repository on db.
func New(ctx context.Context, db *sqlx.DB) (*Repository, error) {
	if err := database.Migrate(ctx, db, Schema...); err != nil {
		return nil, fmt.Errorf("sagalog: %w", err)
	}
	return &Repository{db: db}, nil
}

type row struct {
	ID            string         `db:"id"`
	SagaID        string         `db:"saga_id"`
	Seq           int            `db:"seq"`
	Status        string         `db:"status"`
	CurrentStep   string         `db:"current_step"`
	Payload       sql.NullString `db:"payload"`
	ErrorMessages string         `db:"error_messages"`
	TraceID       string         `db:"trace_id"`
	SpanID        string         `db:"span_id"`
	UpdatedAt     string         `db:"updated_at"`
}

func (r row) toDomain() (sagalog.SagaLog, error) {
	updatedAt, err := database.ParseTime(r.UpdatedAt)
	if err != nil {
		return sagalog.SagaLog{}, err
	}
	return sagalog.SagaLog{
		ID:            r.ID,
		SagaID:        r.SagaID,
		Seq:           r.Seq,
		Status:        sagalog.Status(r.Status),
		CurrentStep:   r.CurrentStep,
		Payload:       r.Payload.String,
		ErrorMessages: r.ErrorMessages,
		TraceID:       r.TraceID,
		SpanID:        r.SpanID,
		UpdatedAt:     updatedAt,
	}, nil
}

// Save appends entry. The sequence number is computed by the INSERT itself.
func (r *Repository) Save(ctx context.Context, entry *sagalog.SagaLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	q := r.db.Rebind(`
		INSERT INTO saga_logs
			(id, saga_id, seq, status, current_step, payload, error_messages, trace_id, span_id, updated_at)
		SELECT ?, ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?, ?, ?
		FROM saga_logs WHERE saga_id = ?
		RETURNING seq`)

	err := r.db.QueryRowxContext(ctx, q,
		entry.ID,
		entry.SagaID,
		string(entry.Status),
		entry.CurrentStep,
		nullableString(entry.Payload),
		entry.ErrorMessages,
		entry.TraceID,
		entry.SpanID,
		database.FormatTime(entry.UpdatedAt),
		entry.SagaID,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("sagalog: save entry for %q: %w", entry.SagaID, err)
	}
	return nil
}

// History returns the entries of sagaID in order.
func (r *Repository) History(ctx context.Context, sagaID string) ([]sagalog.SagaLog, error) {
	var rows []row
	q := r.db.Rebind(`SELECT * FROM saga_logs WHERE saga_id = ? ORDER BY seq`)
	if err := r.db.SelectContext(ctx, &rows, q, sagaID); err != nil {
		return nil, fmt.Errorf("sagalog: history of %q: %w", sagaID, err)
	}

	out := make([]sagalog.SagaLog, 0, len(rows))
	for _, rw := range rows {
		entry, err := rw.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// GetLatest returns the most recent entry for sagaID.
func (r *Repository) GetLatest(ctx context.Context, sagaID string) (*sagalog.SagaLog, error) {
	var rw row
	q := r.db.Rebind(`SELECT * FROM saga_logs WHERE saga_id = ? ORDER BY seq DESC LIMIT 1`)
	err := r.db.GetContext(ctx, &rw, q, sagaID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sagalog: saga %q not found", sagaID)
	}
	if err != nil {
		return nil, fmt.Errorf("sagalog: latest for %q: %w", sagaID, err)
	}

	entry, err := rw.toDomain()
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// nullableString stores NULL instead of an empty payload.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
