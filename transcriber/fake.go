package transcriber

import (
	"context"
	"sync"
)

// Fake is a scriptable Client for tests. Each Transcribe call pops the next
// scripted result; once the script runs out the last entry repeats.
type Fake struct {
	mu     sync.Mutex
	script []Result
	err    error
	calls  int
	turns  [][]byte
}

func NewFake(text string, err error) *Fake {
	return &Fake{script: []Result{{Text: text, Confidence: 0.95}}, err: err}
}

// Script replaces the response sequence.
func (f *Fake) Script(texts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = f.script[:0]
	for _, t := range texts {
		f.script = append(f.script, Result{Text: t, Confidence: 0.95})
	}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Transcribe(ctx context.Context, pcm []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, append([]byte(nil), pcm...))
	f.calls++
	if f.err != nil {
		return Result{}, f.err
	}
	i := min(f.calls-1, len(f.script)-1)
	if i < 0 {
		return Result{}, nil
	}
	return f.script[i], nil
}

// Calls reports how many turns were submitted.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Turn returns the PCM submitted on the i-th call.
func (f *Fake) Turn(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.turns[i]
}
