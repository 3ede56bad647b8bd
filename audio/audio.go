// Package audio abstracts microphone capture and speaker playback behind
// small interfaces so the conversation engine can run against real devices
// or test fakes.
package audio

import "strings"

// DataCallback receives interleaved 16-bit little-endian PCM from a capture
// device. It runs on the audio thread and must not block.
type DataCallback func(data []byte, frameCount uint32)

// FillCallback supplies PCM to a playback device. It fills out with up to
// len(out) bytes and returns how many were written; a short fill means the
// source is drained and the device goes quiet.
type FillCallback func(out []byte) int

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type PlaybackConfig struct {
	SampleRate uint32
	Channels   uint32
	Volume     float64 // 0..1, applied per sample
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	NewPlayback(config PlaybackConfig) (PlaybackDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

type PlaybackDevice interface {
	Start() error
	Stop()
	Close()
	SetSource(fill FillCallback)
	ClearSource()
}

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth reports whether a device name looks like a Bluetooth headset.
// BT codecs add enough latency and compression to throw off energy-based
// voice detection, so callers surface a warning.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
