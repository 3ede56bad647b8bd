// Package encoder packages captured PCM turns for upload to a transcription
// service. All engine audio is 16 kHz mono 16-bit little-endian.
package encoder

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// BytesPerSecond is the raw PCM data rate, used to derive durations from
// buffer sizes.
const BytesPerSecond = SampleRate * Channels * BitsPerSample / 8

// Format identifies the container a turn was encoded into.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatFLAC Format = "flac"
)

// Encode converts a raw PCM turn into the requested container. FLAC roughly
// halves upload size; WAV is the fallback when FLAC encoding fails.
func Encode(pcm []byte, format Format) ([]byte, Format) {
	if format == FormatFLAC {
		if data, err := EncodeFLAC(pcm); err == nil {
			return data, FormatFLAC
		}
	}
	return EncodeWAV(pcm), FormatWAV
}
