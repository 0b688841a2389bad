// Package lfo holds the low-frequency oscillator shared by all voices and
// the standalone LFO settings record.
package lfo

import (
	"math"

	"github.com/cbegin/wavesynth-go/internal/waveform"
)

// LFO is a table-driven low-frequency oscillator. It is shared across all
// voices of a mixer (global LFO) and advanced once per rendered buffer.
type LFO struct {
	wave  *waveform.Waveform
	freq  float64 // Hz
	depth float64
	phase float64 // table position in samples
}

// New returns an LFO playing a table of the given shape.
func New(t waveform.Type, freq, depth float64) *LFO {
	l := &LFO{}
	l.SetWaveform(waveform.New(t, 0.5))
	l.Set(freq, depth)
	return l
}

// Set configures rate and depth. Rates are clamped to [0, MaxFreq].
func (l *LFO) Set(freq, depth float64) {
	if freq != freq || freq < 0 {
		freq = 0
	}
	if freq > MaxFreq {
		freq = MaxFreq
	}
	if depth != depth {
		depth = 0
	}
	l.freq = freq
	l.depth = depth
}

// SetWaveform swaps in a prepared table. The phase is kept and wrapped on
// the next read.
func (l *LFO) SetWaveform(w *waveform.Waveform) {
	if w == nil || w.Len() == 0 {
		return
	}
	l.wave = w
}

func (l *LFO) Freq() float64  { return l.freq }
func (l *LFO) Depth() float64 { return l.depth }

// WaveType returns the shape of the current table.
func (l *LFO) WaveType() waveform.Type { return l.wave.Type }

// Level returns depth times the table value at the current phase.
func (l *LFO) Level() float64 {
	n := l.span()
	i := int(l.phase) % n
	if i < 0 {
		i += n
	}
	return l.depth * float64(l.wave.Samples[i])
}

// Advance moves the phase forward by ms milliseconds of playback.
func (l *LFO) Advance(ms float64) {
	n := float64(l.span())
	l.phase += l.freq * (ms / 1000) * n
	if l.phase >= n {
		l.phase = math.Mod(l.phase, n)
	}
}

// span is the cycle length in table samples. Longer tables such as noise
// are only read over their first NominalSize samples so the rate in Hz
// means the same for every shape.
func (l *LFO) span() int {
	return min(l.wave.Len(), waveform.NominalSize)
}

// Reset zeros the LFO phase.
func (l *LFO) Reset() {
	l.phase = 0
}
