// Package filter provides the output low-pass filters.
package filter

import "math"

const twoPi = math.Pi * 2

const defaultSampleRate = 48000

// Filter is a stateful streaming low-pass filter. Apply must see buffers in
// the order they are played.
type Filter interface {
	SetCutoff(hz float64)
	SetResonance(r float64)
	Apply(buf []float64)
	Reset()
}

// Kind selects a filter implementation.
type Kind int

const (
	OnePole Kind = iota
	Moog
)

func (k Kind) String() string {
	switch k {
	case OnePole:
		return "onepole"
	case Moog:
		return "moog"
	}
	return "unknown"
}

// New builds a filter of the given kind.
func New(kind Kind, sampleRate int, cutoff float64) Filter {
	switch kind {
	case OnePole:
		return NewOnePole(sampleRate, cutoff)
	default:
		return NewMoog(sampleRate, cutoff)
	}
}

// ClampCutoff bounds a cutoff to [20 Hz, Nyquist].
func ClampCutoff(hz float64, sampleRate int) float64 {
	sr := sanitizeRate(sampleRate)
	if hz != hz || hz < 20 {
		return 20
	}
	if hz > sr/2 {
		return sr / 2
	}
	return hz
}

func sanitizeRate(sampleRate int) float64 {
	if sampleRate <= 0 {
		return defaultSampleRate
	}
	return float64(sampleRate)
}

// OnePoleLP is a -6 dB/octave low-pass. Resonance is not supported.
type OnePoleLP struct {
	sampleRate float64
	a, b       float64
	prev       float64
}

func NewOnePole(sampleRate int, cutoff float64) *OnePoleLP {
	f := &OnePoleLP{sampleRate: sanitizeRate(sampleRate)}
	f.SetCutoff(cutoff)
	return f
}

func (f *OnePoleLP) SetCutoff(hz float64) {
	k := math.Exp(-twoPi * hz / f.sampleRate)
	f.a = 1 - k
	f.b = -k
}

func (f *OnePoleLP) SetResonance(float64) {}

func (f *OnePoleLP) Apply(buf []float64) {
	prev := f.prev
	for i, x := range buf {
		prev = f.a*x - f.b*prev
		buf[i] = prev
	}
	f.prev = prev
}

func (f *OnePoleLP) Reset() { f.prev = 0 }

// MoogLP is a 4-pole ladder low-pass with resonant feedback from the last
// stage. Coefficients use an empirical fit of the cutoff warping.
type MoogLP struct {
	sampleRate float64
	cutoff     float64
	resonance  float64

	k, p, r float64

	prevX          float64
	prevY1, prevY2 float64
	prevY3, y4     float64
}

func NewMoog(sampleRate int, cutoff float64) *MoogLP {
	f := &MoogLP{sampleRate: sanitizeRate(sampleRate), resonance: 0.5}
	f.SetCutoff(cutoff)
	return f
}

func (f *MoogLP) SetCutoff(hz float64) {
	f.cutoff = hz
	fc := 2 * hz / f.sampleRate
	f.k = 3.6*fc - 1.6*fc*fc - 1
	f.p = (f.k + 1) * 0.5
	f.r = f.resonance * math.Exp(1-f.p) * 1.386249
}

// SetResonance sets the feedback amount, clamped to [0, 1).
func (f *MoogLP) SetResonance(r float64) {
	if r != r || r < 0 {
		r = 0
	}
	if r > 0.99 {
		r = 0.99
	}
	f.resonance = r
	f.SetCutoff(f.cutoff)
}

// Cutoff returns the current cutoff in Hz.
func (f *MoogLP) Cutoff() float64 { return f.cutoff }

// Resonance returns the current resonance.
func (f *MoogLP) Resonance() float64 { return f.resonance }

func (f *MoogLP) Apply(buf []float64) {
	k, p, r := f.k, f.p, f.r
	px, py1, py2, py3, y4 := f.prevX, f.prevY1, f.prevY2, f.prevY3, f.y4
	for i, in := range buf {
		x := in - r*y4
		y1 := x*p + px*p - k*py1
		y2 := y1*p + py1*p - k*py2
		y3 := y2*p + py2*p - k*py3
		y4 = y3*p + py3*p - k*y4
		buf[i] = y4
		px, py1, py2, py3 = x, y1, y2, y3
	}
	f.prevX, f.prevY1, f.prevY2, f.prevY3, f.y4 = px, py1, py2, py3, y4
}

func (f *MoogLP) Reset() {
	f.prevX, f.prevY1, f.prevY2, f.prevY3, f.y4 = 0, 0, 0, 0, 0
}
