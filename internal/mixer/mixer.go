// Package mixer renders the voice pool into 16-bit mono audio.
package mixer

import (
	"math"
	"math/rand/v2"
	"sync/atomic"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cbegin/wavesynth-go/internal/effects"
	"github.com/cbegin/wavesynth-go/internal/envelope"
	"github.com/cbegin/wavesynth-go/internal/filter"
	"github.com/cbegin/wavesynth-go/internal/lfo"
	"github.com/cbegin/wavesynth-go/internal/patch"
	"github.com/cbegin/wavesynth-go/internal/waveform"
)

const (
	// NumVoices is the size of the voice pool.
	NumVoices = 32
	// MaxBufferSamples is the largest block rendered in one pass. Longer
	// requests are split.
	MaxBufferSamples = 4096

	defaultSampleRate = 48000
	bendSmoothing     = 0.3
	maxStartPhase     = 16
)

// Params controls the mixer output chain.
type Params struct {
	MasterVolume    float64
	FilterKind      filter.Kind
	FilterCutoff    float64 // Hz, 0 = Nyquist
	FilterResonance float64
	ReverbDelayMs   float64
	ReverbDecay     float64
	ReverbMix       float64
	LFOWave         waveform.Type
	LFOFreq         float64
	LFODepth        float64
	OutputScale     float64 // mix units to 16-bit sample units
	Seed            uint64  // start phase randomization
}

// DefaultParams returns the stock output chain.
func DefaultParams() Params {
	return Params{
		MasterVolume:    0.75,
		FilterKind:      filter.Moog,
		FilterCutoff:    0,
		FilterResonance: 0.5,
		ReverbDelayMs:   100,
		ReverbDecay:     0.6,
		ReverbMix:       1,
		LFOWave:         waveform.Sine,
		LFOFreq:         1,
		LFODepth:        0.5,
		OutputScale:     8000,
		Seed:            1,
	}
}

// Mixer owns the voice pool and the output chain. It is not safe for
// concurrent use: every method except the counter accessors must run on
// the goroutine that calls FillBuffer.
type Mixer struct {
	sampleRate int
	params     Params
	voices     [NumVoices]Voice
	lfo        *lfo.LFO
	filter     filter.Filter
	reverb     *effects.Reverb
	bend       float64
	targetBend float64
	mix        []float64
	gain       []float64 // OutputScale per sample
	rng        *rand.Rand

	active    atomic.Int32
	dropped   atomic.Uint64
	overflow  atomic.Uint64
	underflow atomic.Uint64
}

// New creates a mixer for the given output rate.
func New(sampleRate int, params Params) *Mixer {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	if params.OutputScale == 0 {
		params.OutputScale = DefaultParams().OutputScale
	}
	cutoff := params.FilterCutoff
	if cutoff <= 0 {
		cutoff = float64(sampleRate) / 2
	}
	m := &Mixer{
		sampleRate: sampleRate,
		params:     params,
		lfo:        lfo.New(params.LFOWave, params.LFOFreq, params.LFODepth),
		filter:     filter.New(params.FilterKind, sampleRate, filter.ClampCutoff(cutoff, sampleRate)),
		reverb:     effects.NewReverb(params.ReverbDelayMs, params.ReverbDecay),
		bend:       1,
		targetBend: 1,
		mix:        make([]float64, MaxBufferSamples),
		gain:       make([]float64, MaxBufferSamples),
		rng:        rand.New(rand.NewPCG(params.Seed, params.Seed^0x9e3779b97f4a7c15)),
	}
	m.filter.SetResonance(params.FilterResonance)
	m.reverb.SetMix(params.ReverbMix)
	for i := range m.gain {
		m.gain[i] = params.OutputScale
	}
	for i := range m.voices {
		m.voices[i] = newVoice()
	}
	return m
}

func (m *Mixer) SampleRate() int { return m.sampleRate }

// Voice returns voice i of the pool.
func (m *Mixer) Voice(i int) *Voice { return &m.voices[i] }

// FreeVoice returns the first inactive voice, or nil.
func (m *Mixer) FreeVoice() *Voice {
	for i := range m.voices {
		if !m.voices[i].Active() {
			return &m.voices[i]
		}
	}
	return nil
}

// VoiceForNote returns the first active voice holding note, or nil.
func (m *Mixer) VoiceForNote(note int) *Voice {
	for i := range m.voices {
		if m.voices[i].Active() && m.voices[i].Note == note {
			return &m.voices[i]
		}
	}
	return nil
}

// NoteOn starts osc on a free voice. When the pool is exhausted the note is
// dropped, counted, and NoteOn returns false.
func (m *Mixer) NoteOn(osc *patch.Oscillator, note int, volume float32) bool {
	v := m.FreeVoice()
	if v == nil {
		m.dropped.Add(1)
		return false
	}
	v.NoteOn(osc, note, volume, m.rng.IntN(maxStartPhase))
	m.countActive()
	return true
}

// NoteOff releases every voice holding note.
func (m *Mixer) NoteOff(note int) {
	for i := range m.voices {
		if m.voices[i].Active() && m.voices[i].Note == note {
			m.voices[i].NoteOff()
		}
	}
}

// AllNotesOff stops every voice at once.
func (m *Mixer) AllNotesOff() {
	for i := range m.voices {
		m.voices[i].Stop()
	}
	m.countActive()
}

// Update reaps voices whose release has finished.
func (m *Mixer) Update(ms float32) {
	for i := range m.voices {
		m.voices[i].Update(ms)
	}
	m.countActive()
}

// SetBendRatio sets the pitch ratio the bend glides toward.
func (m *Mixer) SetBendRatio(r float64) {
	if r != r || r <= 0 {
		r = 1
	}
	m.targetBend = r
}

func (m *Mixer) BendRatio() float64 { return m.bend }

// SetCutoff moves the output filter cutoff, clamped to [20 Hz, Nyquist].
func (m *Mixer) SetCutoff(hz float64) {
	m.filter.SetCutoff(filter.ClampCutoff(hz, m.sampleRate))
}

func (m *Mixer) SetResonance(r float64) { m.filter.SetResonance(r) }

// Filter exposes the output filter for inspection.
func (m *Mixer) Filter() filter.Filter { return m.filter }

func (m *Mixer) SetReverbMix(level float64) { m.reverb.SetMix(level) }

func (m *Mixer) ReverbMix() float64 { return m.reverb.Mix() }

// SetLFO installs a prepared table and rate for the global LFO. Building
// the table is left to the caller so the render goroutine never allocates.
func (m *Mixer) SetLFO(table *waveform.Waveform, freq, depth float64) {
	m.lfo.SetWaveform(table)
	m.lfo.Set(freq, depth)
}

// LFO exposes the global LFO for inspection.
func (m *Mixer) LFO() *lfo.LFO { return m.lfo }

// ActiveVoiceCount is safe to call from any goroutine.
func (m *Mixer) ActiveVoiceCount() int { return int(m.active.Load()) }

// Dropped returns how many note-ons found no free voice. Safe from any
// goroutine.
func (m *Mixer) Dropped() uint64 { return m.dropped.Load() }

// TakeClipCounts returns and resets the overflow and underflow counts of
// the limiter. Safe from any goroutine.
func (m *Mixer) TakeClipCounts() (overflow, underflow uint64) {
	return m.overflow.Swap(0), m.underflow.Swap(0)
}

// Reset silences every voice and clears the effect state.
func (m *Mixer) Reset() {
	m.AllNotesOff()
	m.filter.Reset()
	m.reverb.Reset()
	m.lfo.Reset()
	m.bend, m.targetBend = 1, 1
}

func (m *Mixer) countActive() {
	n := int32(0)
	for i := range m.voices {
		if m.voices[i].Active() {
			n++
		}
	}
	m.active.Store(n)
}

// FillBuffer renders len(out) samples at sampleRate. It does not allocate
// and does not block.
func (m *Mixer) FillBuffer(out []int16, sampleRate int) {
	if sampleRate <= 0 {
		clear(out)
		return
	}
	for len(out) > 0 {
		n := min(len(out), MaxBufferSamples)
		m.fill(out[:n], sampleRate)
		out = out[n:]
	}
	m.countActive()
}

func (m *Mixer) fill(out []int16, sampleRate int) {
	periodMs := 1000 * float64(len(out)) / float64(sampleRate)

	m.bend += (m.targetBend - m.bend) * bendSmoothing
	lfoLevel := m.lfo.Level()

	mix := m.mix[:len(out)]
	clear(mix)

	for i := range m.voices {
		v := &m.voices[i]
		if !v.Active() {
			continue
		}
		m.renderVoice(v, mix, sampleRate, lfoLevel)
		v.Elapsed += float32(periodMs)
	}

	m.lfo.Advance(periodMs)

	m.reverb.Apply(mix, sampleRate)
	m.filter.Apply(mix)

	vecmath.MulBlockInPlace(mix, m.gain[:len(mix)])
	for i, s := range mix {
		c, clip := effects.CompressSample(s)
		switch clip {
		case effects.Overflow:
			m.overflow.Add(1)
		case effects.Underflow:
			m.underflow.Add(1)
		}
		out[i] = effects.ToInt16(c)
	}
}

// renderVoice accumulates one voice into mix. The table is read through a
// duty-cycle phase warp: the first duty fraction of each period sweeps the
// first half of the table and the rest sweeps the second half.
func (m *Mixer) renderVoice(v *Voice, mix []float64, sampleRate int, lfoLevel float64) {
	envVol := float64(v.EnvelopeLevel(envelope.Volume))
	lfoVol := float64(v.LFOEnvelopeLevel(envelope.Volume))
	vol := m.params.MasterVolume*float64(v.Volume)*envVol + lfoLevel*lfoVol

	envPitch := float64(v.EnvelopeLevel(envelope.Pitch))
	lfoPitch := float64(v.LFOEnvelopeLevel(envelope.Pitch))
	freq := float64(v.Freq) / float64(sampleRate)
	freq *= 1 + envPitch + lfoLevel*lfoPitch
	freq *= m.bend

	table := v.wave.Samples
	n := len(table)
	duty := 0.5
	if v.osc != nil {
		duty = clampDuty(float64(v.osc.Duty))
	}
	dy1 := 0.5 / duty
	dy2 := 0.5 / (1 - duty)
	l1 := int(duty * float64(n))
	half := n / 2
	step := freq * float64(n)

	x := v.WavePos
	for i := range mix {
		off := int(x) % n
		if off < 0 {
			off += n
		}
		var idx int
		if off < l1 {
			idx = int(float64(off) * dy1)
		} else {
			idx = half + int(float64(off-l1)*dy2)
		}
		if idx >= n {
			idx = n - 1
		}
		mix[i] += vol * float64(table[idx])
		x += step
	}
	x = math.Mod(x, float64(n))
	if x < 0 {
		x += float64(n)
	}
	v.WavePos = x
}

func clampDuty(d float64) float64 {
	if d != d {
		return 0.5
	}
	return min(max(d, 0.01), 0.99)
}
