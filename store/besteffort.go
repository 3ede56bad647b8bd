package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"colloquy/log"
)

// Outcome tells a caller whether a write reached the durable store or only
// the in-memory mirror, so tests can assert on degradation instead of
// scraping log output.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeDegraded
)

func (o Outcome) String() string {
	if o == OutcomeOK {
		return "ok"
	}
	return "degraded"
}

// BestEffort wraps an optional durable Store with an in-memory mirror.
// Every operation succeeds from the caller's point of view: durable
// failures are logged at warn level and absorbed, and the conversation
// continues against the mirror with locally generated ids.
type BestEffort struct {
	durable Store // nil when running without persistence

	mu       sync.RWMutex
	sessions map[string]*Session
	turns    map[string][]Turn
	now      func() time.Time
}

func NewBestEffort(durable Store) *BestEffort {
	return &BestEffort{
		durable:  durable,
		sessions: make(map[string]*Session),
		turns:    make(map[string][]Turn),
		now:      time.Now,
	}
}

func (b *BestEffort) CreateSession(ctx context.Context, ownerID string, mode Mode) (*Session, Outcome) {
	if b.durable != nil {
		sess, err := b.durable.CreateSession(ctx, ownerID, mode)
		if err == nil {
			b.mirrorSession(sess)
			return sess, OutcomeOK
		}
		log.For("store").Warn().Err(err).Msg("create session failed, continuing in-memory")
	}

	sess := &Session{
		ID:        "local-" + uuid.NewString(),
		OwnerID:   ownerID,
		Mode:      mode,
		CreatedAt: b.now(),
	}
	b.mirrorSession(sess)
	return sess, OutcomeDegraded
}

func (b *BestEffort) AppendTurn(ctx context.Context, sessionID string, role Role, content string, meta TurnMeta) (*Turn, Outcome) {
	if b.durable != nil && !isLocalID(sessionID) {
		turn, err := b.durable.AppendTurn(ctx, sessionID, role, content, meta)
		if err == nil {
			b.mirrorTurn(*turn)
			return turn, OutcomeOK
		}
		log.For("store").Warn().Err(err).
			Str("session_id", sessionID).
			Msg("append turn failed, continuing in-memory")
	}

	turn := Turn{
		ID:         "local-" + uuid.NewString(),
		SessionID:  sessionID,
		Role:       role,
		Content:    content,
		CreatedAt:  b.now(),
		AudioRef:   meta.AudioRef,
		Confidence: meta.Confidence,
	}
	b.mirrorTurn(turn)
	return &turn, OutcomeDegraded
}

// RecentTurns reads from the mirror: it holds the complete history of the
// live conversation even when the durable store has been failing.
func (b *BestEffort) RecentTurns(sessionID string, limit int) []Turn {
	b.mu.RLock()
	defer b.mu.RUnlock()

	turns := b.turns[sessionID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

func (b *BestEffort) DeleteSession(ctx context.Context, sessionID string) (bool, Outcome) {
	outcome := OutcomeOK
	if b.durable != nil && !isLocalID(sessionID) {
		if _, err := b.durable.DeleteSession(ctx, sessionID); err != nil {
			log.For("store").Warn().Err(err).
				Str("session_id", sessionID).
				Msg("delete session failed")
			outcome = OutcomeDegraded
		}
	}

	b.mu.Lock()
	_, existed := b.sessions[sessionID]
	delete(b.sessions, sessionID)
	delete(b.turns, sessionID)
	b.mu.Unlock()
	return existed, outcome
}

func (b *BestEffort) SetTitle(ctx context.Context, sessionID, title string) Outcome {
	outcome := OutcomeOK
	if b.durable != nil && !isLocalID(sessionID) {
		if err := b.durable.SetTitle(ctx, sessionID, title); err != nil {
			log.For("store").Warn().Err(err).
				Str("session_id", sessionID).
				Msg("set title failed")
			outcome = OutcomeDegraded
		}
	}

	b.mu.Lock()
	if sess, ok := b.sessions[sessionID]; ok {
		sess.Title = title
	}
	b.mu.Unlock()
	return outcome
}

func (b *BestEffort) mirrorSession(sess *Session) {
	cp := *sess
	b.mu.Lock()
	b.sessions[cp.ID] = &cp
	b.mu.Unlock()
}

func (b *BestEffort) mirrorTurn(turn Turn) {
	b.mu.Lock()
	b.turns[turn.SessionID] = append(b.turns[turn.SessionID], turn)
	b.mu.Unlock()
}

// isLocalID reports whether a session id was generated during an outage and
// therefore has no durable row to write against.
func isLocalID(id string) bool {
	return len(id) > 6 && id[:6] == "local-"
}
