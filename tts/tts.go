// Package tts synthesizes reply text to speech and plays it back.
package tts

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Synthesizer renders text as 16 kHz mono 16-bit little-endian PCM.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// New picks a synthesizer from the environment.
func New() (Synthesizer, error) {
	if key := os.Getenv("ELEVENLABS_API_KEY"); key != "" {
		return NewElevenLabs(key), nil
	}
	return nil, fmt.Errorf("set ELEVENLABS_API_KEY environment variable")
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)

// SplitSentences breaks a reply into sentences so long answers can be
// synthesized and played piecewise. Punctuation stays attached; text
// without terminal punctuation comes back as a single chunk.
func SplitSentences(text string) []string {
	var out []string
	for _, m := range sentenceRe.FindAllString(text, -1) {
		if s := strings.TrimSpace(m); s != "" {
			out = append(out, s)
		}
	}
	return out
}
