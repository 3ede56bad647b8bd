package audio

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/gen2brain/malgo"
)

func TestDeviceIDRoundTrip(t *testing.T) {
	var id malgo.DeviceID
	for i := range id {
		id[i] = byte(i * 7)
	}

	encoded := hex.EncodeToString(id[:])
	decoded, err := hex.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var back malgo.DeviceID
	copy(back[:], decoded)
	if back != id {
		t.Error("device id did not survive the round trip")
	}
}

func TestAttenuateHalvesSamples(t *testing.T) {
	pcm := make([]byte, 4)
	pos, neg := int16(10000), int16(-10000)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(pos))
	binary.LittleEndian.PutUint16(pcm[2:], uint16(neg))

	attenuate(pcm, 0.5)

	if got := int16(binary.LittleEndian.Uint16(pcm[0:])); got != 5000 {
		t.Errorf("sample 0 = %d, want 5000", got)
	}
	if got := int16(binary.LittleEndian.Uint16(pcm[2:])); got != -5000 {
		t.Errorf("sample 1 = %d, want -5000", got)
	}
}

func TestAttenuateZeroVolumeSilences(t *testing.T) {
	pcm := genTone(16000, 64)
	attenuate(pcm, 0)
	if !bytes.Equal(pcm, make([]byte, len(pcm))) {
		t.Error("zero volume left audible samples")
	}
}
