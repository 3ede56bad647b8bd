// Package transcriber turns captured PCM turns into text.
package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"os"
)

// Result is a single finished transcription.
type Result struct {
	Text       string
	Confidence float64
	Duration   float64
}

// Client transcribes one complete turn of 16kHz mono 16-bit PCM.
type Client interface {
	Name() string
	Transcribe(ctx context.Context, pcm []byte) (Result, error)
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

// New picks a backend from the environment. Deepgram wins when both
// keys are set; COLLOQUY_STT_STREAMING=1 selects the websocket path.
func New() (Client, error) {
	dgKey := os.Getenv("DEEPGRAM_API_KEY")
	groqKey := os.Getenv("GROQ_API_KEY")

	if dgKey != "" {
		if os.Getenv("COLLOQUY_STT_STREAMING") == "1" {
			return NewDeepgramStream(dgKey), nil
		}
		return NewDeepgram(dgKey), nil
	}
	if groqKey != "" {
		return NewGroq(groqKey), nil
	}

	return nil, fmt.Errorf("set DEEPGRAM_API_KEY or GROQ_API_KEY environment variable")
}
