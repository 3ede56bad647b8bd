package store

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Postgres is the durable Store, backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// EnsureSchema applies the embedded DDL. Idempotent.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ddl, err := schemaFS.ReadFile("schema/postgres.sql")
	if err != nil {
		return err
	}
	if _, err := p.pool.Exec(ctx, string(ddl)); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) CreateSession(ctx context.Context, ownerID string, mode Mode) (*Session, error) {
	sess := &Session{OwnerID: ownerID, Mode: mode}
	err := p.pool.QueryRow(ctx,
		`INSERT INTO voice_sessions (owner_id, mode) VALUES ($1, $2)
		 RETURNING id, created_at`,
		ownerID, string(mode),
	).Scan(&sess.ID, &sess.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

func (p *Postgres) AppendTurn(ctx context.Context, sessionID string, role Role, content string, meta TurnMeta) (*Turn, error) {
	turn := &Turn{
		SessionID:  sessionID,
		Role:       role,
		Content:    content,
		AudioRef:   meta.AudioRef,
		Confidence: meta.Confidence,
	}
	err := p.pool.QueryRow(ctx,
		`INSERT INTO voice_turns (session_id, role, content, audio_ref, confidence)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		 RETURNING id, created_at`,
		sessionID, string(role), content, meta.AudioRef, meta.Confidence,
	).Scan(&turn.ID, &turn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("appending turn: %w", err)
	}
	return turn, nil
}

func (p *Postgres) RecentTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, session_id, role, content, created_at,
		        COALESCE(audio_ref, ''), COALESCE(confidence, 0)
		 FROM (
		     SELECT * FROM voice_turns WHERE session_id = $1
		     ORDER BY created_at DESC LIMIT $2
		 ) recent
		 ORDER BY created_at ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Content,
			&t.CreatedAt, &t.AudioRef, &t.Confidence); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (p *Postgres) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	// Turns go with the session via ON DELETE CASCADE.
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM voice_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return false, fmt.Errorf("deleting session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) SetTitle(ctx context.Context, sessionID, title string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE voice_sessions SET title = $2 WHERE id = $1`, sessionID, title)
	if err != nil {
		return fmt.Errorf("setting title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (p *Postgres) ListSessions(ctx context.Context, ownerID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, owner_id, mode, COALESCE(title, ''), created_at
		 FROM voice_sessions WHERE owner_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Mode, &s.Title, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
