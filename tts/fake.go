package tts

import (
	"context"
	"sync"
)

// FakeSynth returns a fixed-size silent PCM buffer per sentence and records
// what it was asked to say.
type FakeSynth struct {
	mu        sync.Mutex
	pcmBytes  int
	err       error
	sentences []string
}

func NewFakeSynth(pcmBytes int) *FakeSynth {
	return &FakeSynth{pcmBytes: pcmBytes}
}

func (f *FakeSynth) Name() string { return "fake" }

func (f *FakeSynth) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *FakeSynth) Sentences() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sentences...)
}

func (f *FakeSynth) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sentences = append(f.sentences, text)
	return make([]byte, f.pcmBytes), nil
}
