package transcript

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresArchive persists interview turns in PostgreSQL.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

func NewPostgresArchive(ctx context.Context, databaseURL string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresArchive{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS interview_turns (
			session_id TEXT NOT NULL,
			turn_id BIGINT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			structured_data JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (session_id, turn_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_interview_turns_session_created ON interview_turns (session_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (a *PostgresArchive) SaveTurn(ctx context.Context, sessionID string, turn Turn) error {
	var structured []byte
	if turn.StructuredData != nil {
		var err error
		structured, err = json.Marshal(turn.StructuredData)
		if err != nil {
			return fmt.Errorf("marshal structured data: %w", err)
		}
	}

	_, err := a.pool.Exec(ctx,
		`INSERT INTO interview_turns (session_id, turn_id, role, content, label, structured_data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_id, turn_id) DO NOTHING`,
		sessionID,
		turn.ID,
		string(turn.Role),
		turn.Text,
		turn.Label,
		structured,
		turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

// SessionTurns loads the archived turns of one session in insertion order.
func (a *PostgresArchive) SessionTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT turn_id, role, content, label, structured_data, created_at
		 FROM interview_turns WHERE session_id=$1 ORDER BY turn_id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query session turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			t          Turn
			role       string
			structured []byte
		)
		if err := rows.Scan(&t.ID, &role, &t.Text, &t.Label, &structured, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		t.Role = Role(role)
		if len(structured) > 0 {
			if err := json.Unmarshal(structured, &t.StructuredData); err != nil {
				return nil, fmt.Errorf("decode structured data: %w", err)
			}
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return turns, nil
}

func (a *PostgresArchive) Close() error {
	a.pool.Close()
	return nil
}
