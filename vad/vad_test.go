package vad

import (
	"testing"
	"time"
)

const tick = 10 * time.Millisecond

// feed pushes a constant level for n ticks, returning the last non-None event
// and the time cursor after the run.
func feed(d *Detector, level float64, n int, start time.Time) (Event, time.Time) {
	last := EventNone
	now := start
	for i := 0; i < n; i++ {
		if ev := d.Sample(level, now); ev != EventNone {
			last = ev
		}
		now = now.Add(tick)
	}
	return last, now
}

func TestPureSilenceNeverCompletes(t *testing.T) {
	d := New(Config{Threshold: 0.05, Hangover: 100 * time.Millisecond})
	ev, _ := feed(d, 0.0, 1000, time.Unix(0, 0))
	if ev != EventNone {
		t.Fatalf("event on pure silence = %v, want none", ev)
	}
	if d.SpeechDetected() {
		t.Fatal("speech detected on pure silence")
	}
}

func TestSpeechStartedFiresOnce(t *testing.T) {
	d := New(Config{Threshold: 0.05, Hangover: 100 * time.Millisecond})
	now := time.Unix(0, 0)
	if ev := d.Sample(0.5, now); ev != EventSpeechStarted {
		t.Fatalf("first loud sample = %v, want speech started", ev)
	}
	if ev := d.Sample(0.5, now.Add(tick)); ev != EventNone {
		t.Fatalf("second loud sample = %v, want none", ev)
	}
}

func TestTurnCompletesAfterHangover(t *testing.T) {
	hangover := 100 * time.Millisecond
	d := New(Config{Threshold: 0.05, Hangover: hangover})
	now := time.Unix(0, 0)

	_, now = feed(d, 0.5, 5, now) // speech

	// First silent sample starts the silence clock; the turn must complete on
	// the first sample strictly past the hangover and not before.
	silenceStart := now
	var completed time.Time
	for i := 0; i < 100; i++ {
		if ev := d.Sample(0.0, now); ev == EventTurnComplete {
			completed = now
			break
		}
		now = now.Add(tick)
	}
	if completed.IsZero() {
		t.Fatal("turn never completed")
	}
	elapsed := completed.Sub(silenceStart)
	if elapsed <= hangover || elapsed > hangover+2*tick {
		t.Fatalf("completed after %v of silence, want just past %v", elapsed, hangover)
	}
}

func TestMidSentencePauseDoesNotEndTurn(t *testing.T) {
	d := New(Config{Threshold: 0.05, Hangover: 200 * time.Millisecond})
	now := time.Unix(0, 0)

	_, now = feed(d, 0.5, 5, now)
	// 150ms pause, under the hangover
	ev, now := feed(d, 0.0, 15, now)
	if ev != EventNone {
		t.Fatalf("event during short pause = %v, want none", ev)
	}
	// Speech resumes, clearing the silence clock
	_, now = feed(d, 0.5, 5, now)
	// Another short pause still does not complete
	ev, _ = feed(d, 0.0, 15, now)
	if ev != EventNone {
		t.Fatalf("event after resumed speech = %v, want none", ev)
	}
}

func TestDetectorLatchesAfterTurnComplete(t *testing.T) {
	d := New(Config{Threshold: 0.05, Hangover: 50 * time.Millisecond})
	now := time.Unix(0, 0)
	_, now = feed(d, 0.5, 3, now)
	ev, now := feed(d, 0.0, 20, now)
	if ev != EventTurnComplete {
		t.Fatalf("event = %v, want turn complete", ev)
	}
	// Further samples, loud or silent, are ignored until Reset.
	if ev := d.Sample(0.9, now); ev != EventNone {
		t.Fatalf("post-completion sample = %v, want none", ev)
	}
}

func TestResetReArms(t *testing.T) {
	d := New(Config{Threshold: 0.05, Hangover: 50 * time.Millisecond})
	now := time.Unix(0, 0)
	_, now = feed(d, 0.5, 3, now)
	_, now = feed(d, 0.0, 20, now)

	d.Reset()
	if d.SpeechDetected() {
		t.Fatal("speech flag survived reset")
	}
	if ev := d.Sample(0.5, now); ev != EventSpeechStarted {
		t.Fatalf("sample after reset = %v, want speech started", ev)
	}
}

func TestDefaultsApplied(t *testing.T) {
	d := New(Config{})
	if d.cfg.Threshold != DefaultThreshold {
		t.Errorf("threshold = %v, want %v", d.cfg.Threshold, DefaultThreshold)
	}
	if d.cfg.Hangover != DefaultHangover {
		t.Errorf("hangover = %v, want %v", d.cfg.Hangover, DefaultHangover)
	}
}
