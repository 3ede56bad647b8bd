package audio

import (
	"sync"
	"time"
)

// FakeContext is an in-process audio backend for tests. Capture frames are
// pushed by the test instead of arriving from a microphone, and playback
// drains sources on a fast timer instead of real speakers.
type FakeContext struct {
	mu       sync.Mutex
	captures []*FakeCapture
}

func NewFakeContext() *FakeContext { return &FakeContext{} }

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake mic"}}, nil
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	c := &FakeCapture{}
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

func (f *FakeContext) NewPlayback(config PlaybackConfig) (PlaybackDevice, error) {
	return &FakePlayback{}, nil
}

func (f *FakeContext) Close() {}

// Capture returns the most recently created capture device.
func (f *FakeContext) Capture() *FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.captures) == 0 {
		return nil
	}
	return f.captures[len(f.captures)-1]
}

type FakeCapture struct {
	mu      sync.Mutex
	cb      DataCallback
	running bool
	closed  bool
}

func (c *FakeCapture) Start() error {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	return nil
}

func (c *FakeCapture) Stop() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

func (c *FakeCapture) Close() {
	c.mu.Lock()
	c.running = false
	c.closed = true
	c.mu.Unlock()
}

func (c *FakeCapture) SetCallback(cb DataCallback) {
	c.mu.Lock()
	c.cb = cb
	c.mu.Unlock()
}

func (c *FakeCapture) ClearCallback() {
	c.mu.Lock()
	c.cb = nil
	c.mu.Unlock()
}

func (c *FakeCapture) DeviceName() string { return "fake mic" }

func (c *FakeCapture) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *FakeCapture) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Push delivers one PCM frame to the registered callback, as if the
// microphone produced it. Frames pushed while stopped are dropped.
func (c *FakeCapture) Push(pcm []byte) {
	c.mu.Lock()
	cb := c.cb
	running := c.running
	c.mu.Unlock()
	if cb != nil && running {
		cb(pcm, uint32(len(pcm)/2))
	}
}

type FakePlayback struct {
	mu     sync.Mutex
	fill   FillCallback
	stop   chan struct{}
	closed bool
}

func (p *FakePlayback) Start() error {
	p.mu.Lock()
	if p.stop != nil {
		p.mu.Unlock()
		return nil
	}
	stop := make(chan struct{})
	p.stop = stop
	p.mu.Unlock()

	go func() {
		buf := make([]byte, 1024)
		for {
			select {
			case <-stop:
				return
			case <-time.After(100 * time.Microsecond):
			}
			p.mu.Lock()
			fill := p.fill
			p.mu.Unlock()
			if fill != nil {
				fill(buf)
			}
		}
	}()
	return nil
}

func (p *FakePlayback) Stop() {
	p.mu.Lock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.mu.Unlock()
}

func (p *FakePlayback) Close() {
	p.Stop()
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *FakePlayback) SetSource(fill FillCallback) {
	p.mu.Lock()
	p.fill = fill
	p.mu.Unlock()
}

func (p *FakePlayback) ClearSource() {
	p.mu.Lock()
	p.fill = nil
	p.mu.Unlock()
}
