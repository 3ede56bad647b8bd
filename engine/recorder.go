package engine

import (
	"bytes"
	"sync"
)

// Recorder buffers capture frames into one turn-sized PCM unit. At most one
// recording is active at a time; Start while recording is a no-op so a
// re-armed listening loop can never double-capture.
type Recorder struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	recording bool
}

func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return
	}
	r.buf.Reset()
	r.recording = true
}

// Feed appends a capture frame. Frames arriving while not recording are
// dropped.
func (r *Recorder) Feed(pcm []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	r.buf.Write(pcm)
}

// Stop finalizes and returns the captured turn. Returns nil if no recording
// was active.
func (r *Recorder) Stop() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return nil
	}
	r.recording = false
	out := make([]byte, r.buf.Len())
	copy(out, r.buf.Bytes())
	r.buf.Reset()
	return out
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Len reports the bytes captured so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Len()
}
