// Package router produces the assistant's reply to a finished user turn.
package router

import (
	"context"
	"fmt"
	"os"
	"strings"

	"colloquy/log"
)

// Message is one entry of conversation context sent to a backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Backend is a single chat completion provider.
type Backend interface {
	Name() string
	Complete(ctx context.Context, system string, messages []Message, temperature float64, maxTokens int) (string, error)
}

// Apology is spoken when the configured backend fails. The engine never
// sees backend errors; a session should keep flowing past a bad request.
const Apology = "I apologize, but I encountered an error processing your request. Please try again."

const systemPrompt = `You are a warm, ethical voice study companion for law students. You help students understand law, develop critical thinking, and maintain academic integrity.

CORE PRINCIPLES:
- You are supportive, concise, and conversational (this is voice chat)
- You explain legal concepts clearly but never write assignments
- You follow OSCOLA citation standards when referencing sources
- You refuse all forms of academic misconduct assistance
- You encourage students to consult tutors and official resources

VOICE CHAT GUIDELINES:
- Keep responses conversational and under 200 words typically
- Use natural speech patterns, not formal written language
- Break complex topics into digestible explanations
- Ask clarifying questions to understand what the student needs

ACADEMIC INTEGRITY:
- Never write essays, assignments, or exam answers
- Explain concepts generally, not for specific coursework
- Always encourage original thinking and proper attribution
- Redirect misconduct requests to ethical alternatives

Remember: You're a study companion, not an assignment writer. Guide thinking, don't provide answers.`

// Router wraps one backend with the voice persona and failure handling.
// There is deliberately no cross-backend retry: a degraded provider should
// surface as a spoken apology, not a silent provider switch.
type Router struct {
	backend     Backend
	temperature float64
	maxTokens   int
}

func New(backend Backend) *Router {
	return &Router{backend: backend, temperature: 0.7, maxTokens: 1000}
}

// Generate returns the reply text for the given conversation context.
// A non-empty preface is a safety instruction the reply must open with.
// Never returns an error: backend failures become the apology string.
func (r *Router) Generate(ctx context.Context, sessionID string, messages []Message, preface string) string {
	full := messages
	if preface != "" {
		full = append(append([]Message(nil), messages...), Message{
			Role:    "system",
			Content: fmt.Sprintf("IMPORTANT: Prefix your response with: %q", preface),
		})
	}

	text, err := r.backend.Complete(ctx, systemPrompt, full, r.temperature, r.maxTokens)
	if err != nil {
		log.For("router").Warn().Err(err).
			Str("session", sessionID).Str("backend", r.backend.Name()).
			Msg("completion failed")
		return Apology
	}
	if strings.TrimSpace(text) == "" {
		log.For("router").Warn().
			Str("session", sessionID).Str("backend", r.backend.Name()).
			Msg("empty completion")
		return Apology
	}
	return text
}

func (r *Router) BackendName() string { return r.backend.Name() }

// NewBackend picks a provider from the environment, OpenAI first.
func NewBackend() (Backend, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return NewOpenAI(key), nil
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return NewAnthropic(key), nil
	}
	return nil, fmt.Errorf("set OPENAI_API_KEY or ANTHROPIC_API_KEY environment variable")
}
