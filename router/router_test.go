package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func jsonDecode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func TestGenerateInjectsPersona(t *testing.T) {
	fb := NewFakeBackend("consideration is the price of a promise")
	r := New(fb)

	got := r.Generate(context.Background(), "sess-1", []Message{
		{Role: "user", Content: "what is consideration"},
	}, "")

	if got != "consideration is the price of a promise" {
		t.Errorf("Generate = %q", got)
	}
	if !strings.Contains(fb.LastSystem, "study companion") {
		t.Error("system prompt not passed to backend")
	}
	if len(fb.LastMessages) != 1 {
		t.Fatalf("LastMessages = %d, want 1", len(fb.LastMessages))
	}
}

func TestGeneratePrefaceInstruction(t *testing.T) {
	fb := NewFakeBackend("ok")
	r := New(fb)

	preface := "I can help you think through this, but remember to develop your own analysis."
	r.Generate(context.Background(), "sess-1", []Message{
		{Role: "user", Content: "help me structure my essay"},
	}, preface)

	last := fb.LastMessages[len(fb.LastMessages)-1]
	if last.Role != "system" {
		t.Fatalf("last message role = %q, want system", last.Role)
	}
	if !strings.Contains(last.Content, preface) {
		t.Errorf("preface instruction missing: %q", last.Content)
	}
}

func TestGeneratePrefaceDoesNotMutateInput(t *testing.T) {
	fb := NewFakeBackend("ok")
	r := New(fb)

	messages := make([]Message, 1, 4)
	messages[0] = Message{Role: "user", Content: "hello"}

	r.Generate(context.Background(), "sess-1", messages, "some preface")
	if len(messages) != 1 {
		t.Errorf("caller slice grew to %d", len(messages))
	}
}

func TestGenerateApologyOnFailure(t *testing.T) {
	fb := NewFakeBackend("")
	fb.Fail(errors.New("upstream 500"))
	r := New(fb)

	got := r.Generate(context.Background(), "sess-1", []Message{{Role: "user", Content: "hi"}}, "")
	if got != Apology {
		t.Errorf("Generate = %q, want apology", got)
	}
}

func TestGenerateApologyOnEmptyReply(t *testing.T) {
	fb := NewFakeBackend("   ")
	r := New(fb)

	got := r.Generate(context.Background(), "sess-1", []Message{{Role: "user", Content: "hi"}}, "")
	if got != Apology {
		t.Errorf("Generate = %q, want apology", got)
	}
}

func TestGenerateNoRetry(t *testing.T) {
	fb := NewFakeBackend("")
	fb.Fail(errors.New("boom"))
	r := New(fb)

	r.Generate(context.Background(), "sess-1", []Message{{Role: "user", Content: "hi"}}, "")
	if fb.Calls() != 1 {
		t.Errorf("backend called %d times, want 1", fb.Calls())
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer oa-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"choices": [{"message": {"content": "hello there"}}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("oa-key")
	o.apiURL = srv.URL

	got, err := o.Complete(context.Background(), "persona", []Message{{Role: "user", Content: "hi"}}, 0.7, 100)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hello there" {
		t.Errorf("Complete = %q", got)
	}
}

func TestAnthropicCompleteFoldsSystemMessages(t *testing.T) {
	var gotBody struct {
		System   string    `json:"system"`
		Messages []Message `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "an-key" {
			t.Errorf("X-API-Key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != anthropicVersion {
			t.Errorf("anthropic-version = %q", got)
		}
		if err := jsonDecode(r, &gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Write([]byte(`{"content": [{"type": "text", "text": "reply text"}]}`))
	}))
	defer srv.Close()

	a := NewAnthropic("an-key")
	a.apiURL = srv.URL

	got, err := a.Complete(context.Background(), "persona", []Message{
		{Role: "user", Content: "hi"},
		{Role: "system", Content: "prefix instruction"},
	}, 0.7, 100)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "reply text" {
		t.Errorf("Complete = %q", got)
	}
	if !strings.Contains(gotBody.System, "prefix instruction") {
		t.Error("system message not folded into system field")
	}
	for _, m := range gotBody.Messages {
		if m.Role == "system" {
			t.Error("system role leaked into messages array")
		}
	}
}

func TestAnthropicAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewAnthropic("an-key")
	a.apiURL = srv.URL

	if _, err := a.Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, 0.7, 100); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestNewBackendSelection(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "oa")
	t.Setenv("ANTHROPIC_API_KEY", "an")

	b, err := NewBackend()
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.Name() != "openai" {
		t.Errorf("Name() = %q, want openai", b.Name())
	}

	t.Setenv("OPENAI_API_KEY", "")
	b, err = NewBackend()
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.Name() != "anthropic" {
		t.Errorf("Name() = %q, want anthropic", b.Name())
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := NewBackend(); err == nil {
		t.Error("expected error with no provider keys")
	}
}
