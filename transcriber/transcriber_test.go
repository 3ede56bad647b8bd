package transcriber

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"colloquy/encoder"
)

func tonePCM(seconds float64) []byte {
	n := int(seconds * float64(encoder.SampleRate))
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16((i % 64) * 100)
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(v >> 8)
	}
	return pcm
}

func TestFirstNonEmpty(t *testing.T) {
	h := http.Header{}
	h.Set("X-Rate-Limit", "100")

	if got := firstNonEmpty(h, "X-Missing", "X-Rate-Limit"); got != "100" {
		t.Errorf("got %q, want %q", got, "100")
	}
	if got := firstNonEmpty(h, "X-A", "X-B"); got != "?" {
		t.Errorf("got %q, want %q", got, "?")
	}
}

func TestGroqTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-large-v3-turbo" {
			t.Errorf("model = %q", got)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		file.Close()
		if !strings.HasPrefix(header.Filename, "audio.") {
			t.Errorf("filename = %q", header.Filename)
		}
		w.Write([]byte(`{
			"text": "what is consideration in contract law",
			"duration": 2.5,
			"segments": [{"text": "what is consideration in contract law", "no_speech_prob": 0.01, "avg_logprob": -0.2}]
		}`))
	}))
	defer srv.Close()

	g := NewGroq("test-key")
	g.apiURL = srv.URL

	res, err := g.Transcribe(context.Background(), tonePCM(1))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "what is consideration in contract law" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Duration != 2.5 {
		t.Errorf("Duration = %v", res.Duration)
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		t.Errorf("Confidence = %v, want in (0,1]", res.Confidence)
	}
}

func TestGroqAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGroq("test-key")
	g.apiURL = srv.URL

	if _, err := g.Transcribe(context.Background(), tonePCM(0.5)); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestDeepgramTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token dg-key" {
			t.Errorf("Authorization = %q", got)
		}
		ct := r.Header.Get("Content-Type")
		if ct != "audio/flac" && ct != "audio/wav" {
			t.Errorf("Content-Type = %q", ct)
		}
		w.Write([]byte(`{
			"metadata": {"duration": 1.8},
			"results": {"channels": [{"alternatives": [
				{"transcript": "explain the postal rule", "confidence": 0.97}
			]}]}
		}`))
	}))
	defer srv.Close()

	d := NewDeepgram("dg-key")
	d.apiURL = srv.URL

	res, err := d.Transcribe(context.Background(), tonePCM(1))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "explain the postal rule" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Confidence != 0.97 {
		t.Errorf("Confidence = %v", res.Confidence)
	}
}

func TestDeepgramEmptyChannels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"metadata": {"duration": 0}, "results": {"channels": []}}`))
	}))
	defer srv.Close()

	d := NewDeepgram("dg-key")
	d.apiURL = srv.URL

	res, err := d.Transcribe(context.Background(), tonePCM(0.5))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "" {
		t.Errorf("Text = %q, want empty", res.Text)
	}
}

func TestNewPrefersDeepgram(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "dg")
	t.Setenv("GROQ_API_KEY", "gq")
	t.Setenv("COLLOQUY_STT_STREAMING", "")

	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Name() != "deepgram" {
		t.Errorf("Name() = %q, want deepgram", c.Name())
	}

	t.Setenv("COLLOQUY_STT_STREAMING", "1")
	c, err = New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Name() != "deepgram-stream" {
		t.Errorf("Name() = %q, want deepgram-stream", c.Name())
	}

	t.Setenv("DEEPGRAM_API_KEY", "")
	c, err = New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Name() != "groq" {
		t.Errorf("Name() = %q, want groq", c.Name())
	}

	t.Setenv("GROQ_API_KEY", "")
	if _, err := New(); err == nil {
		t.Error("expected error with no API keys set")
	}
}

func TestFakeScript(t *testing.T) {
	f := NewFake("hello", nil)
	f.Script("first turn", "second turn")

	r1, err := f.Transcribe(context.Background(), []byte{1, 2})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	r2, _ := f.Transcribe(context.Background(), []byte{3, 4})
	r3, _ := f.Transcribe(context.Background(), []byte{5, 6})

	if r1.Text != "first turn" || r2.Text != "second turn" {
		t.Errorf("script order wrong: %q, %q", r1.Text, r2.Text)
	}
	if r3.Text != "second turn" {
		t.Errorf("exhausted script should repeat last entry, got %q", r3.Text)
	}
	if f.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", f.Calls())
	}
	if string(f.Turn(1)) != "\x03\x04" {
		t.Errorf("Turn(1) = %v", f.Turn(1))
	}
}

func TestFakeError(t *testing.T) {
	wantErr := errors.New("no network")
	f := NewFake("", wantErr)
	if _, err := f.Transcribe(context.Background(), nil); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}
