package escalation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists escalations in PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// InitSchema creates the escalations table if it does not exist.
func (r *Repository) InitSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS escalations (
			id                UUID PRIMARY KEY,
			thread_id         TEXT NOT NULL,
			escalation_type   TEXT NOT NULL,
			triggered_by_node TEXT NOT NULL DEFAULT '',
			priority          TEXT NOT NULL DEFAULT '',
			context_data      JSONB NOT NULL DEFAULT '{}',
			status            TEXT NOT NULL DEFAULT 'triggered',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			acknowledged_at   TIMESTAMPTZ,
			acknowledged_by   TEXT NOT NULL DEFAULT '',
			resolved_at       TIMESTAMPTZ,
			resolved_by       TEXT NOT NULL DEFAULT '',
			resolution_notes  TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS escalations_thread_id_idx ON escalations (thread_id)
	`)
	if err != nil {
		return fmt.Errorf("init escalation schema: %w", err)
	}
	return nil
}

// Create inserts a new escalation.
func (r *Repository) Create(ctx context.Context, rec *Record) error {
	dataJSON, err := json.Marshal(rec.ContextData)
	if err != nil {
		return fmt.Errorf("marshal context data: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO escalations (id, thread_id, escalation_type, triggered_by_node, priority, context_data, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.ThreadID, rec.EscalationType, rec.TriggeredByNode, rec.Priority, dataJSON, string(rec.Status), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert escalation: %w", err)
	}
	return nil
}

// Update writes the lifecycle columns of an existing escalation.
func (r *Repository) Update(ctx context.Context, rec *Record) error {
	_, err := r.db.Exec(ctx, `
		UPDATE escalations
		SET status = $2, acknowledged_at = $3, acknowledged_by = $4,
		    resolved_at = $5, resolved_by = $6, resolution_notes = $7
		WHERE id = $1
	`, rec.ID, string(rec.Status), rec.AcknowledgedAt, rec.AcknowledgedBy, rec.ResolvedAt, rec.ResolvedBy, rec.ResolutionNotes)
	if err != nil {
		return fmt.Errorf("update escalation: %w", err)
	}
	return nil
}

const selectEscalation = `
	SELECT id, thread_id, escalation_type, triggered_by_node, priority, context_data, status,
	       created_at, acknowledged_at, acknowledged_by, resolved_at, resolved_by, resolution_notes
	FROM escalations`

// Get retrieves an escalation by ID. Returns nil, nil if not found.
func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, selectEscalation+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get escalation: %w", err)
	}
	return rec, nil
}

// ListForThread returns the escalations of a thread, newest first.
func (r *Repository) ListForThread(ctx context.Context, threadID string) ([]Record, error) {
	rows, err := r.db.Query(ctx, selectEscalation+` WHERE thread_id = $1 ORDER BY created_at DESC`, threadID)
	if err != nil {
		return nil, fmt.Errorf("query escalations: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escalation: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var status string
	var dataJSON []byte

	err := row.Scan(&rec.ID, &rec.ThreadID, &rec.EscalationType, &rec.TriggeredByNode, &rec.Priority, &dataJSON, &status,
		&rec.CreatedAt, &rec.AcknowledgedAt, &rec.AcknowledgedBy, &rec.ResolvedAt, &rec.ResolvedBy, &rec.ResolutionNotes)
	if err != nil {
		return nil, err
	}
	rec.Status = Status(status)
	if err := json.Unmarshal(dataJSON, &rec.ContextData); err != nil {
		return nil, fmt.Errorf("unmarshal context data: %w", err)
	}
	return &rec, nil
}
