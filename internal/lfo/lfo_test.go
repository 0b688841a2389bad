package lfo

import (
	"math"
	"testing"

	"github.com/cbegin/wavesynth-go/internal/envelope"
	"github.com/cbegin/wavesynth-go/internal/waveform"
)

func TestLFOSineLevelFollowsPhase(t *testing.T) {
	l := New(waveform.Sine, 1, 0.5)
	if got := l.Level(); math.Abs(got) > 1e-6 {
		t.Fatalf("level at phase 0 = %f, want 0", got)
	}
	// A quarter second at 1 Hz lands on the sine peak.
	l.Advance(250)
	if got := l.Level(); math.Abs(got-0.5) > 1e-3 {
		t.Fatalf("level at quarter cycle = %f, want 0.5", got)
	}
	l.Advance(500)
	if got := l.Level(); math.Abs(got+0.5) > 1e-3 {
		t.Fatalf("level at three quarters = %f, want -0.5", got)
	}
}

func TestLFOPhaseWraps(t *testing.T) {
	l := New(waveform.Saw1, 3, 1)
	for i := 0; i < 1000; i++ {
		l.Advance(17)
		if l.phase < 0 || l.phase >= waveform.NominalSize {
			t.Fatalf("phase %f escaped table after %d steps", l.phase, i)
		}
	}
	// 1000 * 17 ms at 3 Hz is exactly 51 cycles.
	if math.Abs(l.phase) > 1e-6 && math.Abs(l.phase-waveform.NominalSize) > 1e-6 {
		t.Fatalf("phase after whole cycles = %f", l.phase)
	}
}

func TestLFOSetClampsRate(t *testing.T) {
	l := New(waveform.Sine, 100, 1)
	if l.Freq() != MaxFreq {
		t.Fatalf("freq = %f, want %f", l.Freq(), MaxFreq)
	}
	l.Set(-1, math.NaN())
	if l.Freq() != 0 || l.Depth() != 0 {
		t.Fatal("invalid inputs should disable the LFO")
	}
}

func TestLFOSwapKeepsPhaseInRange(t *testing.T) {
	l := New(waveform.Noise, 20, 1)
	l.Advance(3000)
	l.SetWaveform(waveform.New(waveform.Triangle, 0.5))
	if got := l.Level(); got < -1 || got > 1 {
		t.Fatalf("level after swap = %f", got)
	}
	l.SetWaveform(nil)
	if l.WaveType() != waveform.Triangle {
		t.Fatal("nil table should be ignored")
	}
}

func TestLFOReset(t *testing.T) {
	l := New(waveform.Sine, 1, 1)
	l.Advance(250)
	l.Reset()
	if got := l.Level(); math.Abs(got) > 1e-6 {
		t.Fatalf("level after reset = %f", got)
	}
}

func TestSettingsPackRoundTrip(t *testing.T) {
	s := Settings{
		Wave:      waveform.Triangle,
		Freq:      7.5,
		VolumeEnv: envelope.Envelope{Delay: 1000, Attack: 2000, Peak: 0.5, Decay: 2000, Sustain: 0.2, Release: 2000},
		PitchEnv:  envelope.Flat(),
		PWMEnv:    envelope.Default(),
	}
	buf := make([]byte, SettingsSize)
	if n := s.Pack(buf); n != SettingsSize {
		t.Fatalf("Pack wrote %d bytes, want %d", n, SettingsSize)
	}
	if buf[0] != byte(waveform.Triangle) {
		t.Fatalf("wave byte = %d", buf[0])
	}

	var got Settings
	got.Unpack(buf)
	if got.Wave != s.Wave {
		t.Fatalf("wave = %s", got.Wave)
	}
	if math.Abs(float64(got.Freq-s.Freq)) > MaxFreq/127 {
		t.Fatalf("freq = %f, want ~%f", got.Freq, s.Freq)
	}
	if math.Abs(float64(got.VolumeEnv.Sustain-0.2)) > 1.0/127 || got.PitchEnv.Sustain != 1 {
		t.Fatalf("envelopes not restored: %+v", got)
	}
	if got.FilterEnv != (envelope.Envelope{}) {
		t.Fatalf("filter env = %+v, want zero", got.FilterEnv)
	}
}

func TestDefaultSettingsDisabled(t *testing.T) {
	s := DefaultSettings()
	if s.Wave != waveform.None || s.Freq != 1 {
		t.Fatalf("defaults = %+v", s)
	}
}

func TestLFOCycleLengthIndependentOfTable(t *testing.T) {
	for _, wt := range []waveform.Type{waveform.Sine, waveform.Noise} {
		t.Run(wt.String(), func(t *testing.T) {
			l := New(wt, 2, 1)
			// A quarter second at 2 Hz is half a cycle.
			l.Advance(250)
			want := waveform.NominalSize / 2.0
			if math.Abs(l.phase-want) > 1e-6 {
				t.Fatalf("phase = %f, want %f", l.phase, want)
			}
			l.Advance(500)
			if l.phase >= waveform.NominalSize {
				t.Fatalf("phase %f not wrapped at %d", l.phase, waveform.NominalSize)
			}
		})
	}
}
