// Package messagelog is the append-only chat transcript store. The
// Postgres implementation is optional; deployments without a DSN fall
// back to the noop log.
package messagelog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bitiz/tirebot-go/internal/domain"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id         TEXT PRIMARY KEY,
	origin     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id         BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES chat_sessions (id),
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	payload    JSONB,
	error_text TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS chat_messages_session_idx ON chat_messages (session_id, created_at);
`

// Postgres stores transcripts in two tables, sessions and messages.
type Postgres struct {
	db *sqlx.DB
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("messagelog connect: %w", err)
	}
	return db, nil
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Init creates the transcript tables when absent.
func (p *Postgres) Init(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("messagelog init: %w", err)
	}
	return nil
}

// EnsureSession registers a session row once; repeats are no-ops.
func (p *Postgres) EnsureSession(ctx context.Context, sessionID, origin string) error {
	const q = `INSERT INTO chat_sessions (id, origin) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	if _, err := p.db.ExecContext(ctx, q, sessionID, origin); err != nil {
		return fmt.Errorf("ensure session %s: %w", sessionID, err)
	}
	return nil
}

// AppendUser stores one inbound message.
func (p *Postgres) AppendUser(ctx context.Context, sessionID, content string) error {
	const q = `INSERT INTO chat_messages (session_id, role, content) VALUES ($1, 'user', $2)`
	if _, err := p.db.ExecContext(ctx, q, sessionID, content); err != nil {
		return fmt.Errorf("append user message: %w", err)
	}
	return nil
}

// AppendBot stores one reply with its structured payload, if any.
func (p *Postgres) AppendBot(ctx context.Context, sessionID string, resp *domain.ChatResponse, errText string) error {
	var payload []byte
	if len(resp.Dealers) > 0 || len(resp.Tires) > 0 {
		var err error
		payload, err = json.Marshal(struct {
			Dealers []domain.Dealer `json:"dealers,omitempty"`
			Tires   []domain.Tire   `json:"tires,omitempty"`
		}{Dealers: resp.Dealers, Tires: resp.Tires})
		if err != nil {
			return fmt.Errorf("marshal bot payload: %w", err)
		}
	}

	const q = `INSERT INTO chat_messages (session_id, role, content, payload, error_text) VALUES ($1, 'bot', $2, $3, $4)`
	if _, err := p.db.ExecContext(ctx, q, sessionID, resp.Message, payload, errText); err != nil {
		return fmt.Errorf("append bot message: %w", err)
	}
	return nil
}

// Ping verifies the database connection, for health reporting.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
