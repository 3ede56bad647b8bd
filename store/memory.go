package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Memory is an in-process Store. It backs tests and the degraded mode of
// BestEffort.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	turns    map[string][]Turn
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*Session),
		turns:    make(map[string][]Turn),
		now:      time.Now,
	}
}

func (m *Memory) CreateSession(_ context.Context, ownerID string, mode Mode) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := &Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Mode:      mode,
		CreatedAt: m.now(),
	}
	m.sessions[sess.ID] = sess
	return sess, nil
}

func (m *Memory) AppendTurn(_ context.Context, sessionID string, role Role, content string, meta TurnMeta) (*Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return nil, ErrSessionNotFound
	}
	turn := Turn{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Role:       role,
		Content:    content,
		CreatedAt:  m.now(),
		AudioRef:   meta.AudioRef,
		Confidence: meta.Confidence,
	}
	m.turns[sessionID] = append(m.turns[sessionID], turn)
	return &turn, nil
}

func (m *Memory) RecentTurns(_ context.Context, sessionID string, limit int) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	turns := m.turns[sessionID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *Memory) DeleteSession(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(m.sessions, sessionID)
	delete(m.turns, sessionID)
	return true, nil
}

func (m *Memory) SetTitle(_ context.Context, sessionID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Title = title
	return nil
}

// ListSessions returns newest-first, matching the durable store's ordering.
func (m *Memory) ListSessions(_ context.Context, ownerID string, limit int) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Session
	for _, sess := range m.sessions {
		if sess.OwnerID == ownerID {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
