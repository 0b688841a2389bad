package patch

import (
	"github.com/cbegin/wavesynth-go/internal/envelope"
	"github.com/cbegin/wavesynth-go/internal/waveform"
	"github.com/cbegin/wavesynth-go/internal/wire"
)

// OscillatorSize is the packed size of one oscillator block.
const OscillatorSize = 52

// Byte offsets inside an oscillator block.
const (
	oscWave   = 0
	oscDuty   = 1
	oscDetune = 2
	oscEnv    = 4  // volume, pitch, filter, pwm
	oscLFOEnv = 28 // volume, pitch, filter, pwm
)

// packedEnvs is how many envelopes of each kind travel in a patch record.
// The Mod envelope exists in memory only.
const packedEnvs = 4

// Oscillator describes one sound source of a patch: a wave shape, a duty
// cycle, a detune and one envelope per modulation axis, plus the matching
// depth envelopes for the global LFO.
type Oscillator struct {
	Wave   waveform.Type
	Duty   float32 // 0..1
	Detune float32 // -1..1, in percent of the note frequency
	Env    [envelope.NumTypes]envelope.Envelope
	LFOEnv [envelope.NumTypes]envelope.Envelope
}

// DefaultOscillator is a plain sine at full volume with a slow LFO swell.
func DefaultOscillator() Oscillator {
	o := Oscillator{Wave: waveform.Sine, Duty: 0.5}
	o.Env[envelope.Volume] = envelope.Flat()
	o.Env[envelope.Filter] = envelope.Flat()
	o.LFOEnv[envelope.Volume] = envelope.Envelope{
		Delay: 1000, Attack: 2000, Peak: 0.5, Decay: 2000, Sustain: 0.2, Release: 2000,
	}
	return o
}

// Clamp bounds every field to what a patch record can carry.
func (o *Oscillator) Clamp() {
	if !o.Wave.Valid() {
		o.Wave = waveform.None
	}
	o.Duty = clamp32(o.Duty, 0, 1)
	o.Detune = clamp32(o.Detune, -1, 1)
	for i := range o.Env {
		o.Env[i].Clamp()
		o.LFOEnv[i].Clamp()
	}
}

// Pack writes OscillatorSize bytes into dst.
func (o *Oscillator) Pack(dst []byte) int {
	_ = dst[OscillatorSize-1]
	dst[oscWave] = byte(o.Wave) & wire.ScaleMax
	dst[oscDuty] = wire.PackScaled(o.Duty)
	dst[oscDetune] = wire.PackScaled((o.Detune + 1) * 0.5)
	dst[3] = 0
	for i := 0; i < packedEnvs; i++ {
		o.Env[i].Pack(dst[oscEnv+i*envelope.PackedSize:])
		o.LFOEnv[i].Pack(dst[oscLFOEnv+i*envelope.PackedSize:])
	}
	return OscillatorSize
}

// Unpack replaces the packed fields of o with the values in src.
func (o *Oscillator) Unpack(src []byte) {
	_ = src[OscillatorSize-1]
	o.Wave = waveform.Type(src[oscWave] & wire.ScaleMax)
	o.Duty = wire.UnpackScaled(src[oscDuty])
	o.Detune = wire.UnpackScaled(src[oscDetune])*2 - 1
	for i := 0; i < packedEnvs; i++ {
		o.Env[i].Unpack(src[oscEnv+i*envelope.PackedSize:])
		o.LFOEnv[i].Unpack(src[oscLFOEnv+i*envelope.PackedSize:])
	}
}
