package mixer

import (
	"github.com/chewxy/math32"

	"github.com/cbegin/wavesynth-go/internal/envelope"
	"github.com/cbegin/wavesynth-go/internal/patch"
	"github.com/cbegin/wavesynth-go/internal/waveform"
)

// NoteFrequency converts a MIDI note number to Hz (A4 = 69 = 440 Hz).
func NoteFrequency(note int) float32 {
	return 440 * math32.Pow(2, float32(note-69)/12)
}

// Voice plays one oscillator of one note.
//
// A voice is inactive while WavePos is -1, playing until NoteOff and
// releasing after it. Elapsed counts from note-on while playing and from
// note-off while releasing.
type Voice struct {
	osc  *patch.Oscillator // read-only snapshot
	wave *waveform.Waveform

	WavePos  float64
	Freq     float32
	Volume   float32
	Elapsed  float32 // ms
	Released bool
	Note     int
}

func newVoice() Voice {
	return Voice{wave: waveform.Shared(waveform.Square), WavePos: -1, Freq: 440, Volume: 0.75}
}

// Active reports whether the voice is producing sound.
func (v *Voice) Active() bool { return v.WavePos > -1 }

// Oscillator returns the snapshot the voice is playing.
func (v *Voice) Oscillator() *patch.Oscillator { return v.osc }

// NoteOn (re)starts the voice. The oscillator must not be modified while
// the voice holds it. phase picks the starting table offset.
func (v *Voice) NoteOn(osc *patch.Oscillator, note int, volume float32, phase int) {
	if osc != nil {
		v.osc = osc
		if v.wave.Type != osc.Wave {
			v.wave = waveform.Shared(osc.Wave)
		}
	}
	v.Freq = NoteFrequency(note)
	if v.osc != nil {
		v.Freq += v.Freq * v.osc.Detune * 0.01
	}
	v.Volume = volume
	v.Elapsed = 0
	v.Released = false
	v.Note = note
	v.WavePos = float64(phase)
}

// NoteOff starts the release. Repeated calls do not restart it.
func (v *Voice) NoteOff() {
	if !v.Released {
		v.Elapsed = 0
		v.Released = true
	}
}

// Update stops a released voice once its volume release has run out.
// Elapsed time itself is advanced by the render loop.
func (v *Voice) Update(ms float32) {
	_ = ms
	if v.Active() && v.osc != nil && v.Released && v.Elapsed > v.osc.Env[envelope.Volume].Release {
		v.Stop()
	}
}

// Stop silences the voice immediately.
func (v *Voice) Stop() {
	v.WavePos = -1
	v.Note = 0
}

// EnvelopeLevel returns the current level of the oscillator envelope t.
func (v *Voice) EnvelopeLevel(t envelope.Type) float32 {
	if v.osc == nil {
		return 0
	}
	return v.osc.Env[t].Level(v.Elapsed, v.Released)
}

// LFOEnvelopeLevel returns the current LFO depth envelope level for t.
func (v *Voice) LFOEnvelopeLevel(t envelope.Type) float32 {
	if v.osc == nil {
		return 0
	}
	return v.osc.LFOEnv[t].Level(v.Elapsed, v.Released)
}
