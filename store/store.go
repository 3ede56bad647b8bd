// Package store persists voice sessions and their turns. Persistence is
// best-effort by contract: the spoken conversation must never stall because
// archival failed, so callers go through BestEffort rather than using a
// Store directly.
package store

import (
	"context"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Mode string

const (
	ModePush       Mode = "push"
	ModeContinuous Mode = "continuous"
)

// Session identifies one continuous conversation. Immutable after creation
// except for Title.
type Session struct {
	ID        string
	OwnerID   string
	Mode      Mode
	Title     string
	CreatedAt time.Time
}

// Turn is one utterance by either party. Turns within a session are totally
// ordered by CreatedAt.
type Turn struct {
	ID         string
	SessionID  string
	Role       Role
	Content    string
	CreatedAt  time.Time
	AudioRef   string
	Confidence float64
}

// TurnMeta carries the optional attributes of a turn.
type TurnMeta struct {
	AudioRef   string
	Confidence float64
}

// Store is a durable append-only log of sessions and turns. Deleting a
// session cascades to its turns.
type Store interface {
	CreateSession(ctx context.Context, ownerID string, mode Mode) (*Session, error)
	AppendTurn(ctx context.Context, sessionID string, role Role, content string, meta TurnMeta) (*Turn, error)
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error)
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
	SetTitle(ctx context.Context, sessionID, title string) error
	ListSessions(ctx context.Context, ownerID string, limit int) ([]Session, error)
}
