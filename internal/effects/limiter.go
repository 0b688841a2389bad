package effects

// Limiter knees in 16-bit sample units.
const (
	Knee1  = 20000
	Ratio1 = 0.7
	Knee2  = 26000
	Ratio2 = 0.2

	// ClipWarn is the magnitude past which a compressed sample is reported.
	ClipWarn = 32700
)

// Clip reports which rail a compressed sample got close to.
type Clip int

const (
	NoClip Clip = iota
	Overflow
	Underflow
)

// CompressSample applies the two-stage soft knee to a sample already
// scaled to 16-bit range.
func CompressSample(v float64) (float64, Clip) {
	if v > Knee1 {
		v = Knee1 + (v-Knee1)*Ratio1
		if v > Knee2 {
			v = Knee2 + (v-Knee2)*Ratio2
		}
	} else if v < -Knee1 {
		v = -Knee1 + (v+Knee1)*Ratio1
		if v < -Knee2 {
			v = -Knee2 + (v+Knee2)*Ratio2
		}
	}
	switch {
	case v > ClipWarn:
		return v, Overflow
	case v < -ClipWarn:
		return v, Underflow
	}
	return v, NoClip
}

// ToInt16 truncates toward zero, saturating at the int16 rails.
func ToInt16(v float64) int16 {
	if v != v {
		return 0
	}
	if v >= 32767 {
		return 32767
	}
	if v <= -32768 {
		return -32768
	}
	return int16(v)
}
