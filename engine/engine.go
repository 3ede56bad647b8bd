// Package engine runs the continuous voice conversation loop: capture,
// voice activity detection, transcription, safety gating, response
// generation and spoken playback, supervised by one state machine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"colloquy/audio"
	"colloquy/encoder"
	"colloquy/guardrails"
	"colloquy/log"
	"colloquy/router"
	"colloquy/store"
	"colloquy/transcriber"
	"colloquy/transcript"
	"colloquy/tts"
	"colloquy/vad"
)

type Status int

const (
	StatusIdle Status = iota
	StatusListening
	StatusProcessing
	StatusThinking
	StatusSpeaking
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusListening:
		return "listening"
	case StatusProcessing:
		return "processing"
	case StatusThinking:
		return "thinking"
	case StatusSpeaking:
		return "speaking"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// VoiceSettings tunes playback and turn detection. The engine snapshots the
// settings at Start; changes made mid-session apply to the next session.
type VoiceSettings struct {
	VoiceID           string
	Speed             float64
	Volume            float64
	VADThreshold      float64
	VADHangoverMs     int
	GuardrailsEnabled bool
}

func DefaultSettings() VoiceSettings {
	return VoiceSettings{
		Speed:             1.0,
		Volume:            0.8,
		VADThreshold:      vad.DefaultThreshold,
		VADHangoverMs:     int(vad.DefaultHangover / time.Millisecond),
		GuardrailsEnabled: true,
	}
}

// Summary is what EndChat hands to the transcript surface.
type Summary struct {
	SessionID string
	Turns     []store.Turn
	Duration  time.Duration
}

// Speaker is the playback half of the pipeline. tts.Speaker implements it;
// tests inject failures through it.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop()
}

const (
	defaultTick         = 16 * time.Millisecond
	defaultMinTurnBytes = 1024 // roughly half a second of speech
	defaultRecoverDelay = 2 * time.Second
)

type Config struct {
	Audio       audio.Context
	Transcriber transcriber.Client
	Gate        *guardrails.Gate
	Router      *router.Router
	Synth       tts.Synthesizer
	Store       *store.BestEffort
	OwnerID     string
	Settings    VoiceSettings

	// Speaker overrides the tts.Speaker the engine would otherwise build
	// from Synth at Start. Used by tests.
	Speaker Speaker

	Tick         time.Duration
	MinTurnBytes int
	RecoverDelay time.Duration
}

// Engine is one conversation. Construct a fresh instance per session; all
// collaborators are injected so instances never share state.
type Engine struct {
	cfg Config
	log *zerolog.Logger

	meter *audio.LevelMeter
	rec   *Recorder

	generation atomic.Int64

	mu         sync.Mutex
	status     Status
	statusFn   func(Status)
	running    bool
	continuous bool
	settings   VoiceSettings
	sessionID  string
	startedAt  time.Time
	tlog       *transcript.Log
	det        *vad.Detector
	capture    audio.CaptureDevice
	player     *tts.Player
	speaker    Speaker
	cancel     context.CancelFunc
	done       chan struct{}

	textCh chan string
}

func New(cfg Config) *Engine {
	if cfg.Tick <= 0 {
		cfg.Tick = defaultTick
	}
	if cfg.MinTurnBytes <= 0 {
		cfg.MinTurnBytes = defaultMinTurnBytes
	}
	if cfg.RecoverDelay <= 0 {
		cfg.RecoverDelay = defaultRecoverDelay
	}
	return &Engine{
		cfg:    cfg,
		log:    log.For("engine"),
		meter:  &audio.LevelMeter{},
		rec:    &Recorder{},
		status: StatusIdle,
		tlog:   transcript.NewLog(),
		textCh: make(chan string, 4),
	}
}

// OnStatus registers a callback invoked on every state transition. Must be
// set before Start.
func (e *Engine) OnStatus(fn func(Status)) {
	e.mu.Lock()
	e.statusFn = fn
	e.mu.Unlock()
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// AudioLevel is the current normalized microphone energy, for dashboards.
func (e *Engine) AudioLevel() float64 { return e.meter.Level() }

func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// Turns returns the reconciled transcript so far.
func (e *Engine) Turns() []store.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tlog.Turns()
}

// Start opens the capture and playback devices and begins the continuous
// listen-respond loop. No-op when already running.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	settings := e.cfg.Settings
	e.settings = settings
	e.mu.Unlock()

	capture, err := e.cfg.Audio.NewCapture(nil, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		e.setStatus(StatusError)
		return fmt.Errorf("open capture device: %w", err)
	}
	if audio.IsBluetooth(capture.DeviceName()) {
		log.Warnf("bluetooth input device %q may degrade voice detection", capture.DeviceName())
	}
	capture.SetCallback(func(data []byte, _ uint32) {
		e.meter.Feed(data)
		e.rec.Feed(data)
	})
	if err := capture.Start(); err != nil {
		capture.Close()
		e.setStatus(StatusError)
		return fmt.Errorf("start capture: %w", err)
	}

	speaker := e.cfg.Speaker
	var player *tts.Player
	if speaker == nil {
		player, err = tts.NewPlayer(e.cfg.Audio, audio.PlaybackConfig{
			SampleRate: encoder.SampleRate,
			Channels:   encoder.Channels,
			Volume:     settings.Volume,
		})
		if err != nil {
			capture.Stop()
			capture.Close()
			e.setStatus(StatusError)
			return fmt.Errorf("open playback device: %w", err)
		}
		speaker = tts.NewSpeaker(e.cfg.Synth, player, settings.VoiceID)
	}

	sess, outcome := e.cfg.Store.CreateSession(ctx, e.cfg.OwnerID, store.ModeContinuous)
	log.SessionStart(e.cfg.Transcriber.Name(), e.cfg.Router.BackendName(), e.cfg.Synth.Name())
	e.log.Info().
		Str("session_id", sess.ID).
		Str("persistence", outcome.String()).
		Msg("session started")

	runCtx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	e.running = true
	e.continuous = true
	e.sessionID = sess.ID
	e.startedAt = time.Now()
	e.capture = capture
	e.player = player
	e.speaker = speaker
	e.cancel = cancel
	e.done = make(chan struct{})
	e.det = vad.New(vad.Config{
		Threshold: settings.VADThreshold,
		Hangover:  time.Duration(settings.VADHangoverMs) * time.Millisecond,
	})
	e.tlog.Reset()
	done := e.done
	e.mu.Unlock()

	go e.run(runCtx, done)
	return nil
}

// Stop ends continuous mode, releases the devices and returns to idle. Any
// in-flight network result is discarded via the generation guard.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.continuous = false
	cancel := e.cancel
	done := e.done
	capture := e.capture
	player := e.player
	speaker := e.speaker
	e.capture = nil
	e.player = nil
	e.mu.Unlock()

	e.generation.Add(1)
	if speaker != nil {
		speaker.Stop()
	}
	cancel()
	<-done

	e.rec.Stop()
	capture.Stop()
	capture.Close()
	if player != nil {
		player.Close()
	}
	e.meter.Reset()
	e.setStatus(StatusIdle)
}

// BargeIn interrupts assistant speech immediately. The loop re-arms
// listening (continuous mode) or falls back to idle on its own.
func (e *Engine) BargeIn() {
	e.mu.Lock()
	speaker := e.speaker
	e.mu.Unlock()
	if speaker != nil {
		speaker.Stop()
	}
	e.log.Debug().Msg("barge-in")
}

// SubmitText feeds an externally produced user message into the
// conversation, bypassing capture and transcription. The reply is spoken
// like any other. Returns false when the engine is not running or the
// queue is full.
func (e *Engine) SubmitText(text string) bool {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if !running || strings.TrimSpace(text) == "" {
		return false
	}
	select {
	case e.textCh <- text:
		return true
	default:
		return false
	}
}

// EndChat stops the engine and hands back the session transcript, clearing
// engine state for the next conversation.
func (e *Engine) EndChat() Summary {
	e.Stop()

	e.mu.Lock()
	turns := e.tlog.Turns()
	id := e.sessionID
	started := e.startedAt
	e.tlog.Reset()
	e.sessionID = ""
	e.mu.Unlock()

	dur := time.Duration(0)
	if !started.IsZero() {
		dur = time.Since(started)
	}
	if id != "" {
		if title := sessionTitle(turns); title != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			e.cfg.Store.SetTitle(ctx, id, title)
			cancel()
		}
		log.SessionEnd(id, len(turns), dur)
	}
	return Summary{SessionID: id, Turns: turns, Duration: dur}
}

// sessionTitle derives a short label from the first user turn.
func sessionTitle(turns []store.Turn) string {
	for _, t := range turns {
		if t.Role != store.RoleUser {
			continue
		}
		title := t.Content
		if r := []rune(title); len(r) > 60 {
			title = strings.TrimSpace(string(r[:60])) + "…"
		}
		return title
	}
	return ""
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	if e.status == s {
		e.mu.Unlock()
		return
	}
	old := e.status
	e.status = s
	fn := e.statusFn
	e.mu.Unlock()

	e.log.Debug().Str("from", old.String()).Str("to", s.String()).Msg("state")
	if fn != nil {
		fn(s)
	}
}

func (e *Engine) isContinuous() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.continuous
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.cfg.Tick)
	defer ticker.Stop()

	e.armListening()

	for {
		select {
		case <-ctx.Done():
			return

		case text := <-e.textCh:
			gen := e.generation.Load()
			e.rec.Stop()
			e.setStatus(StatusProcessing)
			e.respond(ctx, gen, strings.TrimSpace(text), 0)

		case now := <-ticker.C:
			if e.Status() != StatusListening {
				continue
			}
			e.mu.Lock()
			det := e.det
			e.mu.Unlock()

			switch det.Sample(e.meter.Level(), now) {
			case vad.EventSpeechStarted:
				e.log.Debug().Msg("speech detected")
			case vad.EventTurnComplete:
				pcm := e.rec.Stop()
				if len(pcm) < e.cfg.MinTurnBytes {
					e.log.Debug().Int("bytes", len(pcm)).Msg("turn too short, discarding")
					e.armListening()
					continue
				}
				e.processTurn(ctx, pcm)
			}
		}
	}
}

// armListening resets the detector and recorder for the next turn. Runs only
// on the loop goroutine.
func (e *Engine) armListening() {
	e.mu.Lock()
	if e.det != nil {
		e.det.Reset()
	}
	e.mu.Unlock()
	e.rec.Start()
	e.setStatus(StatusListening)
}

func (e *Engine) processTurn(ctx context.Context, pcm []byte) {
	gen := e.generation.Load()
	e.setStatus(StatusProcessing)

	res, err := e.cfg.Transcriber.Transcribe(ctx, pcm)
	if err != nil {
		// Fail closed: a transcription outage becomes an empty turn.
		e.log.Warn().Err(err).Msg("transcription failed")
		res = transcriber.Result{}
	}
	if e.stale(ctx, gen) {
		return
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		e.armListening()
		return
	}
	audioSeconds := float64(len(pcm)) / float64(encoder.BytesPerSecond)
	e.log.Info().
		Float64("audio_s", audioSeconds).
		Float64("confidence", res.Confidence).
		Msg("turn transcribed")

	e.respond(ctx, gen, text, res.Confidence)
}

// respond runs the gate-generate-speak tail of the pipeline for one user
// turn, whether it came from the microphone or SubmitText.
func (e *Engine) respond(ctx context.Context, gen int64, text string, confidence float64) {
	if text == "" {
		e.afterSpeaking()
		return
	}
	e.commitTurn(ctx, store.RoleUser, text, store.TurnMeta{Confidence: confidence})
	e.setStatus(StatusThinking)

	var preface string
	if e.settingsSnapshot().GuardrailsEnabled && e.cfg.Gate != nil {
		r := e.cfg.Gate.Check(e.gateMessages())
		if !r.Allowed {
			e.log.Info().
				Str("severity", string(r.Severity)).
				Str("reason", r.Reason).
				Msg("turn blocked by safety gate")
			reply := r.Suggestion
			if reply == "" {
				reply = "I cannot assist with this request."
			}
			e.speakReply(ctx, gen, reply)
			return
		}
		if guardrails.NeedsPrelude(r) {
			preface = guardrails.Prelude(r.Severity)
		}
	}

	reply := e.cfg.Router.Generate(ctx, e.SessionID(), e.contextMessages(), preface)
	if e.stale(ctx, gen) {
		return
	}
	e.speakReply(ctx, gen, reply)
}

func (e *Engine) speakReply(ctx context.Context, gen int64, reply string) {
	e.commitTurn(ctx, store.RoleAssistant, reply, store.TurnMeta{})
	e.setStatus(StatusSpeaking)

	e.mu.Lock()
	speaker := e.speaker
	e.mu.Unlock()

	err := speaker.Speak(ctx, reply)
	if e.stale(ctx, gen) {
		return
	}
	switch {
	case err == nil, errors.Is(err, tts.ErrStopped):
		e.afterSpeaking()
	default:
		e.enterError(ctx, err)
	}
}

func (e *Engine) afterSpeaking() {
	if e.isContinuous() {
		e.armListening()
	} else {
		e.setStatus(StatusIdle)
	}
}

// enterError surfaces a transient failure as the error state, then
// auto-recovers to listening when continuous mode is still on.
func (e *Engine) enterError(ctx context.Context, err error) {
	e.log.Error().Err(err).Msg("pipeline error")
	e.setStatus(StatusError)
	if !e.isContinuous() {
		return
	}
	select {
	case <-ctx.Done():
		return
	case <-time.After(e.cfg.RecoverDelay):
	}
	if e.isContinuous() {
		e.armListening()
	}
}

// stale reports whether this pipeline's results belong to a conversation
// that has since been stopped or superseded.
func (e *Engine) stale(ctx context.Context, gen int64) bool {
	return ctx.Err() != nil || e.generation.Load() != gen
}

func (e *Engine) commitTurn(ctx context.Context, role store.Role, content string, meta store.TurnMeta) {
	e.mu.Lock()
	sessionID := e.sessionID
	turn := store.Turn{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	committed := e.tlog.Append(turn)
	e.mu.Unlock()

	if !committed {
		e.log.Debug().Str("role", string(role)).Msg("duplicate turn discarded")
		return
	}
	e.cfg.Store.AppendTurn(ctx, sessionID, role, transcript.Normalize(content), meta)
}

func (e *Engine) settingsSnapshot() VoiceSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

func (e *Engine) contextMessages() []router.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	turns := e.tlog.Turns()
	out := make([]router.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, router.Message{Role: string(t.Role), Content: t.Content})
	}
	return out
}

func (e *Engine) gateMessages() []guardrails.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	turns := e.tlog.Turns()
	out := make([]guardrails.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, guardrails.Message{Role: string(t.Role), Content: t.Content})
	}
	return out
}
