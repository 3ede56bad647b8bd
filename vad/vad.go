// Package vad decides when a spoken turn has ended, using an energy
// threshold with a silence hangover. The hangover absorbs natural pauses
// mid-sentence while still bounding end-of-turn latency.
package vad

import "time"

type Event int

const (
	EventNone Event = iota
	EventSpeechStarted
	EventTurnComplete
)

const (
	DefaultThreshold = 0.01
	DefaultHangover  = 1500 * time.Millisecond
)

type Config struct {
	Threshold float64       // energy level above which a sample counts as speech
	Hangover  time.Duration // silence required after speech before the turn ends
}

// Detector consumes energy samples on a fixed cadence and fires
// EventTurnComplete once speech has been followed by enough silence.
// After firing it stays latched until Reset re-arms it for the next turn.
// Not safe for concurrent use; the engine samples from a single loop.
type Detector struct {
	cfg Config

	hasDetectedSpeech bool
	silenceStartedAt  time.Time
	done              bool
}

func New(cfg Config) *Detector {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Hangover <= 0 {
		cfg.Hangover = DefaultHangover
	}
	return &Detector{cfg: cfg}
}

// Sample feeds one energy reading taken at the given instant.
func (d *Detector) Sample(level float64, now time.Time) Event {
	if d.done {
		return EventNone
	}

	if level > d.cfg.Threshold {
		started := !d.hasDetectedSpeech
		d.hasDetectedSpeech = true
		d.silenceStartedAt = time.Time{}
		if started {
			return EventSpeechStarted
		}
		return EventNone
	}

	if !d.hasDetectedSpeech {
		return EventNone
	}
	if d.silenceStartedAt.IsZero() {
		d.silenceStartedAt = now
		return EventNone
	}
	if now.Sub(d.silenceStartedAt) > d.cfg.Hangover {
		d.done = true
		return EventTurnComplete
	}
	return EventNone
}

// SpeechDetected reports whether any speech was heard since the last Reset.
// A turn that completes without speech is pure silence and must be discarded
// rather than transcribed.
func (d *Detector) SpeechDetected() bool {
	return d.hasDetectedSpeech
}

// Reset re-arms the detector for the next listening window.
func (d *Detector) Reset() {
	d.hasDetectedSpeech = false
	d.silenceStartedAt = time.Time{}
	d.done = false
}
