// Package envelope implements the delay/ADSR level generator used for every
// per-voice modulation axis.
package envelope

import "github.com/cbegin/wavesynth-go/internal/wire"

// MaxTime is the longest delay, attack, decay or release in milliseconds.
const MaxTime = 10000.0

// PackedSize is the number of bytes one envelope occupies in a patch record.
const PackedSize = 6

// Type selects which parameter an envelope drives.
type Type int

const (
	Volume Type = iota
	Pitch
	Filter
	PWM
	Mod
	NumTypes
)

func (t Type) String() string {
	switch t {
	case Volume:
		return "volume"
	case Pitch:
		return "pitch"
	case Filter:
		return "filter"
	case PWM:
		return "pwm"
	case Mod:
		return "mod"
	}
	return "unknown"
}

// Envelope holds times in milliseconds and normalized peak/sustain levels.
type Envelope struct {
	Delay   float32
	Attack  float32
	Peak    float32
	Decay   float32
	Sustain float32
	Release float32
}

// Default returns the envelope a freshly constructed patch field starts with.
func Default() Envelope {
	return Envelope{Delay: 0, Attack: 50, Peak: 0.9, Decay: 100, Sustain: 0.7, Release: 200}
}

// Flat is full level from note-on with no release tail.
func Flat() Envelope {
	return Envelope{Peak: 1, Sustain: 1}
}

// Level returns the envelope output for the time since note-on, or since
// note-off when released is set.
//
// The release ramp starts from Sustain rather than from the level actually
// reached when the note was released, so releasing mid-attack jumps.
func (e Envelope) Level(elapsed float32, released bool) float32 {
	if released {
		if elapsed < e.Release {
			return (1 - elapsed/e.Release) * e.Sustain
		}
		return 0
	}
	if elapsed < e.Delay {
		return 0
	}
	t := elapsed - e.Delay
	if t < e.Attack {
		return e.Peak * (t / e.Attack)
	}
	if t < e.Attack+e.Decay {
		return e.Peak - ((t-e.Attack)/e.Decay)*(e.Peak-e.Sustain)
	}
	return e.Sustain
}

// Clamp bounds every field to its representable range.
func (e *Envelope) Clamp() {
	e.Delay = clampTime(e.Delay)
	e.Attack = clampTime(e.Attack)
	e.Decay = clampTime(e.Decay)
	e.Release = clampTime(e.Release)
	e.Peak = clampLevel(e.Peak)
	e.Sustain = clampLevel(e.Sustain)
}

// Pack writes the envelope into the first PackedSize bytes of dst.
func (e Envelope) Pack(dst []byte) int {
	_ = dst[PackedSize-1]
	dst[0] = wire.PackScaled(e.Delay / MaxTime)
	dst[1] = wire.PackScaled(e.Attack / MaxTime)
	dst[2] = wire.PackScaled(e.Peak)
	dst[3] = wire.PackScaled(e.Decay / MaxTime)
	dst[4] = wire.PackScaled(e.Sustain)
	dst[5] = wire.PackScaled(e.Release / MaxTime)
	return PackedSize
}

// Unpack replaces the envelope with the values packed in src.
func (e *Envelope) Unpack(src []byte) {
	_ = src[PackedSize-1]
	e.Delay = wire.UnpackScaled(src[0]) * MaxTime
	e.Attack = wire.UnpackScaled(src[1]) * MaxTime
	e.Peak = wire.UnpackScaled(src[2])
	e.Decay = wire.UnpackScaled(src[3]) * MaxTime
	e.Sustain = wire.UnpackScaled(src[4])
	e.Release = wire.UnpackScaled(src[5]) * MaxTime
}

func clampTime(v float32) float32 {
	if v != v || v < 0 {
		return 0
	}
	if v > MaxTime {
		return MaxTime
	}
	return v
}

func clampLevel(v float32) float32 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
