// Package effects holds the post-mix stages of the output chain: the
// feedback reverb and the output limiter.
package effects

import "github.com/cwbudde/algo-dsp/dsp/delay"

// BufferLength is the reverb delay line size, about 10 s at 48 kHz.
const BufferLength = 480000

const (
	maxDecay   = 0.99
	maxDelayMs = 10000
)

// Reverb is a single feedback delay line. Each output sample is the dry
// input plus Mix times the line tapped Delay ms in the past; the output,
// scaled by Decay, is written back at the head.
type Reverb struct {
	line  *delay.Line
	delay float64
	decay float64
	mix   float64
}

// NewReverb creates a reverb with a full send level.
func NewReverb(delayMs, decay float64) *Reverb {
	line, err := delay.New(BufferLength)
	if err != nil {
		panic(err) // BufferLength is positive
	}
	r := &Reverb{line: line, mix: 1}
	r.SetDelay(delayMs)
	r.SetDecay(decay)
	return r
}

// SetDelay sets the tap distance in milliseconds.
func (r *Reverb) SetDelay(ms float64) { r.delay = clamp(ms, 0, maxDelayMs) }

// SetDecay sets the feedback gain, kept below 1.
func (r *Reverb) SetDecay(d float64) { r.decay = clamp(d, 0, maxDecay) }

// SetMix sets the send level in [0, 1].
func (r *Reverb) SetMix(m float64) { r.mix = clamp(m, 0, 1) }

func (r *Reverb) Delay() float64 { return r.delay }
func (r *Reverb) Decay() float64 { return r.decay }
func (r *Reverb) Mix() float64   { return r.mix }

// Lag returns how many samples the read head trails the write head.
func (r *Reverb) Lag(sampleRate int) int {
	if sampleRate <= 0 {
		return 0
	}
	n := int(r.delay / 1000 * float64(sampleRate))
	if n >= r.line.Len() {
		n = r.line.Len() - 1
	}
	return n
}

// Apply runs the reverb over buf in place. The tap is read before the
// head sample is overwritten.
func (r *Reverb) Apply(buf []float64, sampleRate int) {
	lag := r.Lag(sampleRate)
	mix, decay := r.mix, r.decay
	for i, in := range buf {
		out := mix*r.line.Read(lag) + in
		buf[i] = out
		r.line.Write(out * decay)
	}
}

func (r *Reverb) Reset() { r.line.Reset() }

func clamp(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
