// Package transcript merges turns arriving from independent capture paths
// into one deduplicated, time-ordered list. The same spoken turn can be
// observed twice when two listeners react to the same turn-completion event,
// and network double-delivery can interleave turns from the other role
// between the duplicates, so dedup is window-based rather than adjacency-only.
package transcript

import (
	"sort"
	"strings"
	"time"

	"colloquy/store"
)

// DedupWindow bounds the backward scan: a candidate only dedups against
// committed turns whose timestamps fall within this distance.
const DedupWindow = 2 * time.Second

var punctReplacer = strings.NewReplacer(
	" .", ".", " ,", ",", " !", "!", " ?", "?", " ;", ";", " :", ":",
)

// Normalize collapses internal whitespace, strips space before punctuation
// and trims. Committed turns always carry normalized content.
func Normalize(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	return punctReplacer.Replace(collapsed)
}

// Log is the single source of truth for a session's visible transcript.
// Not safe for concurrent use; callers serialize through the engine.
type Log struct {
	window time.Duration
	turns  []store.Turn
}

func NewLog() *Log {
	return &Log{window: DedupWindow}
}

// Append commits a candidate turn unless it duplicates a recently committed
// turn of the same role. Returns whether the turn was committed.
func (l *Log) Append(turn store.Turn) bool {
	turn.Content = Normalize(turn.Content)
	if turn.Content == "" {
		return false
	}

	// Cheap check first: the last committed turn, when it has the same role.
	if n := len(l.turns); n > 0 {
		last := l.turns[n-1]
		if last.Role == turn.Role && strings.EqualFold(last.Content, turn.Content) {
			return false
		}
	}

	// Bounded backward scan. Turns from the other role may sit between the
	// duplicates, so keep scanning while timestamps stay within the window.
	for i := len(l.turns) - 1; i >= 0; i-- {
		prev := l.turns[i]
		if turn.CreatedAt.Sub(prev.CreatedAt) > l.window {
			break
		}
		if prev.Role == turn.Role && strings.EqualFold(prev.Content, turn.Content) {
			return false
		}
	}

	l.turns = append(l.turns, turn)
	return true
}

// Turns returns a copy of the committed transcript in commit order.
func (l *Log) Turns() []store.Turn {
	out := make([]store.Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

func (l *Log) Len() int { return len(l.turns) }

// Reset drops the transcript for a fresh session.
func (l *Log) Reset() {
	l.turns = nil
}

// Reconcile merges an arbitrary turn list into a deduplicated, time-ordered
// transcript. Idempotent: reconciling an already-reconciled list returns it
// unchanged.
func Reconcile(turns []store.Turn) []store.Turn {
	sorted := make([]store.Turn, len(turns))
	copy(sorted, turns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	l := NewLog()
	for _, t := range sorted {
		l.Append(t)
	}
	return l.Turns()
}
