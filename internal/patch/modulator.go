package patch

import "github.com/cbegin/wavesynth-go/internal/wire"

// ModulatorSize is the packed size of one modulator block (two bytes plus
// padding).
const ModulatorSize = 4

// Target is the parameter a controller routes to.
type Target int

const (
	TargetVolume Target = iota
	TargetPitch
	TargetPWM
	TargetFilter
)

func (t Target) String() string {
	switch t {
	case TargetVolume:
		return "volume"
	case TargetPitch:
		return "pitch"
	case TargetPWM:
		return "pwm"
	case TargetFilter:
		return "filter"
	}
	return "unknown"
}

// Modulator routes a performance controller to a target with a range.
type Modulator struct {
	Target Target
	Range  int8 // 0..127
}

func (m Modulator) Pack(dst []byte) int {
	_ = dst[ModulatorSize-1]
	r := m.Range
	if r < 0 {
		r = 0
	}
	dst[0] = byte(r)
	dst[1] = byte(m.Target) & wire.ScaleMax
	dst[2], dst[3] = 0, 0
	return ModulatorSize
}

func (m *Modulator) Unpack(src []byte) {
	_ = src[1]
	m.Range = int8(src[0] & wire.ScaleMax)
	m.Target = Target(src[1] & wire.ScaleMax)
}
