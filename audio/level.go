package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// LevelMeter tracks the normalized RMS energy of the most recent PCM frame.
// Feed runs on the capture callback; Level is safe to poll at any frequency
// and returns 0 until the first frame arrives.
type LevelMeter struct {
	mu    sync.Mutex
	level float64
}

func (m *LevelMeter) Feed(pcm []byte) {
	n := len(pcm) / 2
	if n == 0 {
		return
	}
	var sumSquares float64
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	rms := math.Sqrt(sumSquares / float64(n))
	if rms > 1 {
		rms = 1
	}
	m.mu.Lock()
	m.level = rms
	m.mu.Unlock()
}

func (m *LevelMeter) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

func (m *LevelMeter) Reset() {
	m.mu.Lock()
	m.level = 0
	m.mu.Unlock()
}
