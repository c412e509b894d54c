package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
    id               UUID PRIMARY KEY,
    scenario         TEXT NOT NULL,
    outcome          TEXT NOT NULL,
    answer           TEXT NOT NULL DEFAULT '',
    iterations       INT  NOT NULL,
    tool_invocations INT  NOT NULL,
    error            TEXT NOT NULL DEFAULT '',
    turns            JSONB NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL
)`

// PostgresStore persists transcripts in PostgreSQL.
type PostgresStore struct {
	DB *pgxpool.Pool
}

// NewPostgresStore connects and creates the transcripts table if needed.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if _, err := db.Exec(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create transcripts table: %w", err)
	}
	log.Info().Msg("transcript store ready")
	return &PostgresStore{DB: db}, nil
}

func (ps *PostgresStore) Save(ctx context.Context, t *Transcript) error {
	turns, err := json.Marshal(t.Turns)
	if err != nil {
		return fmt.Errorf("encode turns: %w", err)
	}
	_, err = ps.DB.Exec(ctx, `
		INSERT INTO transcripts (id, scenario, outcome, answer, iterations, tool_invocations, error, turns, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)`,
		t.ID, t.Scenario, t.Outcome, t.Answer, t.Iterations, t.ToolInvocations, t.Error, string(turns), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Transcript, error) {
	var t Transcript
	var turns []byte
	err := ps.DB.QueryRow(ctx, `
		SELECT id, scenario, outcome, answer, iterations, tool_invocations, error, turns::text, created_at
		FROM transcripts WHERE id = $1`, id).
		Scan(&t.ID, &t.Scenario, &t.Outcome, &t.Answer, &t.Iterations, &t.ToolInvocations, &t.Error, &turns, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	if err := json.Unmarshal(turns, &t.Turns); err != nil {
		return nil, fmt.Errorf("decode turns: %w", err)
	}
	return &t, nil
}

func (ps *PostgresStore) Ping(ctx context.Context) error { return ps.DB.Ping(ctx) }

func (ps *PostgresStore) Close() { ps.DB.Close() }
