package tts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"colloquy/audio"
	"colloquy/log"
)

// ErrStopped reports that playback was cut short by Stop, the engine's
// barge-in path.
var ErrStopped = errors.New("playback stopped")

// Player owns the single playback device. One Play runs at a time; Stop
// abandons whatever is pending immediately.
type Player struct {
	dev audio.PlaybackDevice

	mu      sync.Mutex
	stop    chan struct{}
	playing bool
}

func NewPlayer(actx audio.Context, cfg audio.PlaybackConfig) (*Player, error) {
	dev, err := actx.NewPlayback(cfg)
	if err != nil {
		return nil, fmt.Errorf("open playback device: %w", err)
	}
	return &Player{dev: dev}, nil
}

// Play blocks until the PCM is handed to the device in full, Stop is
// called, or ctx is canceled.
func (p *Player) Play(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}

	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return fmt.Errorf("player busy")
	}
	stop := make(chan struct{})
	p.stop = stop
	p.playing = true
	p.mu.Unlock()

	defer func() {
		p.dev.ClearSource()
		p.dev.Stop()
		p.mu.Lock()
		p.playing = false
		p.stop = nil
		p.mu.Unlock()
	}()

	done := make(chan struct{})
	var offset atomic.Int64
	var once sync.Once
	p.dev.SetSource(func(out []byte) int {
		off := int(offset.Load())
		if off >= len(pcm) {
			once.Do(func() { close(done) })
			return 0
		}
		n := copy(out, pcm[off:])
		offset.Store(int64(off + n))
		if off+n >= len(pcm) {
			once.Do(func() { close(done) })
		}
		return n
	})

	if err := p.dev.Start(); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}

	select {
	case <-done:
		return nil
	case <-stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop halts the in-flight Play, if any. Safe to call at any time from any
// goroutine.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

func (p *Player) Close() {
	p.Stop()
	p.dev.Close()
}

// Speaker pairs a synthesizer with the player and speaks whole replies,
// one sentence at a time so barge-in never waits on a long synthesis.
type Speaker struct {
	synth   Synthesizer
	player  *Player
	voice   string
	stopped atomic.Bool
}

func NewSpeaker(synth Synthesizer, player *Player, voice string) *Speaker {
	return &Speaker{synth: synth, player: player, voice: voice}
}

// Speak synthesizes and plays text sentence by sentence. A sentence that
// fails to synthesize is skipped; Stop or ctx cancellation ends the reply
// early with ErrStopped or the ctx error.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	s.stopped.Store(false)
	for _, sentence := range SplitSentences(text) {
		if s.stopped.Load() {
			return ErrStopped
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		pcm, err := s.synth.Synthesize(ctx, sentence, s.voice)
		if err != nil {
			log.For("tts").Warn().Err(err).Msg("synthesis failed, skipping sentence")
			continue
		}
		if err := s.player.Play(ctx, pcm); err != nil {
			return err
		}
	}
	return nil
}

// Stop cuts off the current sentence and drains the remainder of the reply.
func (s *Speaker) Stop() {
	s.stopped.Store(true)
	s.player.Stop()
}
