package router

import (
	"context"
	"sync"
)

// FakeBackend records requests and returns a fixed reply. Tests can swap
// the reply or inject an error between calls.
type FakeBackend struct {
	mu    sync.Mutex
	reply string
	err   error

	LastSystem   string
	LastMessages []Message
	calls        int
}

func NewFakeBackend(reply string) *FakeBackend {
	return &FakeBackend{reply: reply}
}

func (f *FakeBackend) Name() string { return "fake" }

func (f *FakeBackend) SetReply(reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
}

func (f *FakeBackend) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *FakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeBackend) Complete(ctx context.Context, system string, messages []Message, temperature float64, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.LastSystem = system
	f.LastMessages = append([]Message(nil), messages...)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}
