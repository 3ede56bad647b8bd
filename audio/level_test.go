package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func genTone(amplitude int16, samples int) []byte {
	buf := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		s := int16(float64(amplitude) * math.Sin(2*math.Pi*440*float64(i)/16000))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestLevelMeterZeroBeforeFirstFrame(t *testing.T) {
	var m LevelMeter
	if got := m.Level(); got != 0 {
		t.Fatalf("level before feed = %v, want 0", got)
	}
}

func TestLevelMeterSilence(t *testing.T) {
	var m LevelMeter
	m.Feed(make([]byte, 640))
	if got := m.Level(); got != 0 {
		t.Fatalf("level on silence = %v, want 0", got)
	}
}

func TestLevelMeterToneInRange(t *testing.T) {
	var m LevelMeter
	m.Feed(genTone(16000, 320))
	got := m.Level()
	if got <= 0 || got > 1 {
		t.Fatalf("level = %v, want in (0,1]", got)
	}
	// A half-scale sine has RMS near amplitude/sqrt(2).
	want := (16000.0 / 32768.0) / math.Sqrt2
	if math.Abs(got-want) > 0.05 {
		t.Errorf("level = %v, want ~%v", got, want)
	}
}

func TestLevelMeterLouderIsHigher(t *testing.T) {
	var m LevelMeter
	m.Feed(genTone(2000, 320))
	quiet := m.Level()
	m.Feed(genTone(28000, 320))
	loud := m.Level()
	if loud <= quiet {
		t.Fatalf("loud level %v not above quiet level %v", loud, quiet)
	}
}

func TestLevelMeterReset(t *testing.T) {
	var m LevelMeter
	m.Feed(genTone(16000, 320))
	m.Reset()
	if got := m.Level(); got != 0 {
		t.Fatalf("level after reset = %v, want 0", got)
	}
}

func TestIsBluetooth(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Sony WH-1000XM4", true},
		{"Built-in Microphone", false},
		{"USB Audio Device", false},
	}
	for _, c := range cases {
		if got := IsBluetooth(c.name); got != c.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}
