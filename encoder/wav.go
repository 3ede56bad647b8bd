package encoder

import "encoding/binary"

const wavHeaderSize = 44

// EncodeWAV wraps raw PCM in a canonical 44-byte RIFF header.
func EncodeWAV(pcm []byte) []byte {
	out := make([]byte, wavHeaderSize+len(pcm))
	h := out[:wavHeaderSize]

	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+len(pcm)))
	copy(h[8:12], "WAVE")

	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], Channels)
	binary.LittleEndian.PutUint32(h[24:28], SampleRate)
	binary.LittleEndian.PutUint32(h[28:32], uint32(BytesPerSecond))
	binary.LittleEndian.PutUint16(h[32:34], Channels*BitsPerSample/8)
	binary.LittleEndian.PutUint16(h[34:36], BitsPerSample)

	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(len(pcm)))

	copy(out[wavHeaderSize:], pcm)
	return out
}
