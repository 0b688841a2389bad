package lfo

import (
	"github.com/cbegin/wavesynth-go/internal/envelope"
	"github.com/cbegin/wavesynth-go/internal/waveform"
	"github.com/cbegin/wavesynth-go/internal/wire"
)

// MaxFreq is the fastest LFO rate in Hz; packed rates are fractions of it.
const MaxFreq = 20.0

// SettingsSize is the packed size of Settings: wave, rate, four envelopes.
const SettingsSize = 2 + 4*envelope.PackedSize

// Settings is a per-axis LFO description: a shape, a rate and one depth
// envelope per modulated parameter. Patches carry their own flat LFO fields
// and do not embed Settings.
type Settings struct {
	Wave      waveform.Type
	Freq      float32
	VolumeEnv envelope.Envelope
	PitchEnv  envelope.Envelope
	FilterEnv envelope.Envelope
	PWMEnv    envelope.Envelope
}

// DefaultSettings is disabled (wave None) at 1 Hz with silent envelopes.
func DefaultSettings() Settings {
	return Settings{Wave: waveform.None, Freq: 1}
}

func (s *Settings) envs() [4]*envelope.Envelope {
	return [4]*envelope.Envelope{&s.VolumeEnv, &s.PitchEnv, &s.FilterEnv, &s.PWMEnv}
}

// Pack writes SettingsSize bytes into dst.
func (s Settings) Pack(dst []byte) int {
	_ = dst[SettingsSize-1]
	dst[0] = byte(s.Wave) & wire.ScaleMax
	dst[1] = wire.PackScaled(s.Freq / MaxFreq)
	off := 2
	for _, e := range s.envs() {
		off += e.Pack(dst[off:])
	}
	return off
}

// Unpack replaces s with the values packed in src.
func (s *Settings) Unpack(src []byte) {
	_ = src[SettingsSize-1]
	s.Wave = waveform.Type(src[0] & wire.ScaleMax)
	s.Freq = wire.UnpackScaled(src[1]) * MaxFreq
	off := 2
	for _, e := range s.envs() {
		e.Unpack(src[off:])
		off += envelope.PackedSize
	}
}
