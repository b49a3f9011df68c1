package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles flow definitions, sessions, responses and analytics in PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// InitSchema creates the flow tables if they do not exist.
func (r *Repository) InitSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS flow_definitions (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL DEFAULT '',
			description   TEXT NOT NULL DEFAULT '',
			category      TEXT NOT NULL,
			version       INTEGER NOT NULL DEFAULT 1,
			is_active     BOOLEAN NOT NULL DEFAULT TRUE,
			start_node_id TEXT NOT NULL,
			nodes         JSONB NOT NULL DEFAULT '[]',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS flow_definitions_category_idx ON flow_definitions (category, version DESC);
		CREATE TABLE IF NOT EXISTS flow_sessions (
			id                  UUID PRIMARY KEY,
			thread_id           TEXT NOT NULL,
			flow_id             TEXT NOT NULL REFERENCES flow_definitions(id),
			current_node_id     TEXT NOT NULL,
			flow_state          JSONB NOT NULL DEFAULT '{}',
			is_active           BOOLEAN NOT NULL DEFAULT TRUE,
			started_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_interaction_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at        TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS flow_sessions_thread_active_idx ON flow_sessions (thread_id) WHERE is_active;
		CREATE TABLE IF NOT EXISTS flow_responses (
			id           UUID PRIMARY KEY,
			session_id   UUID NOT NULL REFERENCES flow_sessions(id),
			node_id      TEXT NOT NULL,
			response     JSONB,
			responded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS flow_analytics (
			flow_id               TEXT NOT NULL,
			node_id               TEXT NOT NULL,
			metric                TEXT NOT NULL,
			count                 BIGINT NOT NULL DEFAULT 0,
			total_elapsed_seconds BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (flow_id, node_id, metric)
		)
	`)
	if err != nil {
		return fmt.Errorf("init flow schema: %w", err)
	}
	return nil
}

// Seed inserts the given definitions, leaving existing ids untouched.
func (r *Repository) Seed(ctx context.Context, defs []Definition) error {
	for _, def := range defs {
		nodesJSON, err := json.Marshal(def.Nodes)
		if err != nil {
			return fmt.Errorf("marshal nodes of %s: %w", def.ID, err)
		}
		_, err = r.db.Exec(ctx, `
			INSERT INTO flow_definitions (id, name, description, category, version, is_active, start_node_id, nodes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING
		`, def.ID, def.Name, def.Description, def.Category, def.Version, def.IsActive, def.StartNodeID, nodesJSON)
		if err != nil {
			return fmt.Errorf("seed flow %s: %w", def.ID, err)
		}
	}
	return nil
}

const selectDefinition = `
	SELECT id, name, description, category, version, is_active, start_node_id, nodes, created_at, updated_at
	FROM flow_definitions`

// GetFlow retrieves a definition by ID. Returns nil, nil if not found.
func (r *Repository) GetFlow(ctx context.Context, id string) (*Definition, error) {
	def, err := scanDefinition(r.db.QueryRow(ctx, selectDefinition+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get flow: %w", err)
	}
	return def, nil
}

// ActiveFlowsByCategory returns the active definitions of a category, highest version first.
func (r *Repository) ActiveFlowsByCategory(ctx context.Context, category string) ([]Definition, error) {
	rows, err := r.db.Query(ctx, selectDefinition+` WHERE category = $1 AND is_active ORDER BY version DESC, id`, category)
	if err != nil {
		return nil, fmt.Errorf("query flows: %w", err)
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}

func scanDefinition(row pgx.Row) (*Definition, error) {
	var def Definition
	var nodesJSON []byte
	err := row.Scan(&def.ID, &def.Name, &def.Description, &def.Category, &def.Version, &def.IsActive,
		&def.StartNodeID, &nodesJSON, &def.CreatedAt, &def.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(nodesJSON, &def.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	return &def, nil
}

// CreateSession inserts a new session.
func (r *Repository) CreateSession(ctx context.Context, s *Session) error {
	stateJSON, err := json.Marshal(s.State)
	if err != nil {
		return fmt.Errorf("marshal flow state: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO flow_sessions (id, thread_id, flow_id, current_node_id, flow_state, is_active, started_at, last_interaction_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.ID, s.ThreadID, s.FlowID, s.CurrentNodeID, stateJSON, s.IsActive, s.StartedAt, s.LastInteractionAt, s.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// UpdateSession overwrites the mutable columns of a session.
func (r *Repository) UpdateSession(ctx context.Context, s *Session) error {
	stateJSON, err := json.Marshal(s.State)
	if err != nil {
		return fmt.Errorf("marshal flow state: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE flow_sessions
		SET current_node_id = $2, flow_state = $3, is_active = $4, last_interaction_at = $5, completed_at = $6
		WHERE id = $1
	`, s.ID, s.CurrentNodeID, stateJSON, s.IsActive, s.LastInteractionAt, s.CompletedAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update session %s: %w", s.ID, ErrSessionNotFound)
	}
	return nil
}

const selectSession = `
	SELECT id, thread_id, flow_id, current_node_id, flow_state, is_active, started_at, last_interaction_at, completed_at
	FROM flow_sessions`

// GetSession retrieves a session by ID. Returns nil, nil if not found.
func (r *Repository) GetSession(ctx context.Context, id string) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, selectSession+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// ActiveSessionForThread returns the newest active session of a thread. Returns nil, nil if none.
func (r *Repository) ActiveSessionForThread(ctx context.Context, threadID string) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, selectSession+`
		WHERE thread_id = $1 AND is_active
		ORDER BY started_at DESC
		LIMIT 1`, threadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return s, nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	var stateJSON []byte
	err := row.Scan(&s.ID, &s.ThreadID, &s.FlowID, &s.CurrentNodeID, &stateJSON, &s.IsActive,
		&s.StartedAt, &s.LastInteractionAt, &s.CompletedAt)
	if err != nil {
		return nil, err
	}
	s.State = State{}
	if err := json.Unmarshal(stateJSON, &s.State); err != nil {
		return nil, fmt.Errorf("unmarshal flow state: %w", err)
	}
	return &s, nil
}

// AppendResponse inserts an audit record.
func (r *Repository) AppendResponse(ctx context.Context, resp *Response) error {
	valueJSON, err := json.Marshal(resp.Value)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO flow_responses (id, session_id, node_id, response, responded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, resp.ID, resp.SessionID, resp.NodeID, valueJSON, resp.RespondedAt)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

// Record increments an analytics counter.
func (r *Repository) Record(ctx context.Context, flowID, nodeID string, metric Metric, elapsedSeconds *int) error {
	elapsed := 0
	if elapsedSeconds != nil {
		elapsed = *elapsedSeconds
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO flow_analytics (flow_id, node_id, metric, count, total_elapsed_seconds)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (flow_id, node_id, metric)
		DO UPDATE SET count = flow_analytics.count + 1,
		              total_elapsed_seconds = flow_analytics.total_elapsed_seconds + EXCLUDED.total_elapsed_seconds
	`, flowID, nodeID, string(metric), elapsed)
	if err != nil {
		return fmt.Errorf("record analytics: %w", err)
	}
	return nil
}

// InitDB creates the schema and, when seed is set, loads the built-in flow catalog.
// Called from main on startup.
func InitDB(ctx context.Context, pool *pgxpool.Pool, seed bool) error {
	repo := NewRepository(pool)
	if err := repo.InitSchema(ctx); err != nil {
		return err
	}
	if !seed {
		return nil
	}
	defs, err := DefaultDefinitions()
	if err != nil {
		return err
	}
	return repo.Seed(ctx, defs)
}
