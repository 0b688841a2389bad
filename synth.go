// Package wavesynth is a polyphonic wavetable synthesizer driven by MIDI
// style messages.
package wavesynth

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/wavesynth-go/internal/message"
	"github.com/cbegin/wavesynth-go/internal/mixer"
	"github.com/cbegin/wavesynth-go/internal/patch"
	"github.com/cbegin/wavesynth-go/internal/patchfile"
	"github.com/cbegin/wavesynth-go/internal/waveform"
)

const (
	// NumPatches is the size of the patch bank.
	NumPatches = 32
	// ZeroVolumeTolerance is the note-on volume below which the note is
	// treated as a note-off.
	ZeroVolumeTolerance = 0.01
	// WorkPatchIndex selects the editable work patch in NoteOn.
	WorkPatchIndex = -1
)

// Controller numbers understood by ProcessMessage.
const (
	CCModWheel    = 1
	CCResonance   = 71
	CCCutoff      = 74
	CCReverb      = 91
	CCStorePatch  = 102
	CCAllSoundOff = 120
	CCPatchInfo   = 103
	CCAllNotesOff = 123
)

const (
	bendCenter    = 8192
	bendUpperDead = 8200
	bendLowerDead = 8184
	bendUpRange   = 0.059463 // one semitone up at full travel
	bendDownBase  = 0.943874
	bendDownRange = 0.056125

	modWheelBase    = 2000
	cutoffCCRange   = 2000
	controllerRange = 127
)

var ErrNoPatchFile = errors.New("wavesynth: no patch file configured")

type SynthOption func(*synthConfig)

type synthConfig struct {
	mixer     mixer.Params
	logger    *slog.Logger
	replier   message.Replier
	patchFile string
}

func defaultSynthConfig() synthConfig {
	return synthConfig{
		mixer:   mixer.DefaultParams(),
		logger:  slog.Default(),
		replier: message.Discard,
	}
}

func WithMixerParams(p mixer.Params) SynthOption {
	return func(cfg *synthConfig) {
		cfg.mixer = p
	}
}

func WithLogger(l *slog.Logger) SynthOption {
	return func(cfg *synthConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithReplier sets where patch data replies go.
func WithReplier(r message.Replier) SynthOption {
	return func(cfg *synthConfig) {
		if r != nil {
			cfg.replier = r
		}
	}
}

// WithPatchFile sets the bank file used by LoadPatches and SavePatches.
func WithPatchFile(path string) SynthOption {
	return func(cfg *synthConfig) {
		cfg.patchFile = path
	}
}

// WithSeed seeds the voice start phase randomization.
func WithSeed(seed uint64) SynthOption {
	return func(cfg *synthConfig) {
		cfg.mixer.Seed = seed
	}
}

// Synth owns the patch bank and the mixer. Render belongs to the audio
// goroutine; every other method may be called from any goroutine.
type Synth struct {
	mu         sync.Mutex
	sampleRate int
	bank       [NumPatches]*patch.Patch
	work       *patch.Patch
	current    int

	mixer     *mixer.Mixer
	queue     commandQueue
	log       *slog.Logger
	replier   message.Replier
	patchFile string

	// counters already reported by Update
	seenDropped      uint64
	seenQueueDropped uint64
}

func NewSynth(sampleRate int, opts ...SynthOption) (*Synth, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultSynthConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Synth{
		sampleRate: sampleRate,
		work:       patch.New(),
		mixer:      mixer.New(sampleRate, cfg.mixer),
		log:        cfg.logger,
		replier:    cfg.replier,
		patchFile:  cfg.patchFile,
	}
	for i := range s.bank {
		s.bank[i] = patch.New()
	}
	return s, nil
}

func (s *Synth) SampleRate() int { return s.sampleRate }

// NoteOn starts note on both oscillators of a patch. A negative or out of
// range index plays the work patch. Volumes below ZeroVolumeTolerance
// release the note instead.
func (s *Synth) NoteOn(patchIndex, note int, volume float32) {
	if volume < ZeroVolumeTolerance {
		s.NoteOff(note)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.work
	if patchIndex >= 0 && patchIndex < NumPatches {
		p = s.bank[patchIndex]
	}
	vol := volume * p.MixLevel()
	for i := range 2 {
		osc := *p.Osc(i)
		if osc.Wave == waveform.None {
			continue
		}
		s.queue.push(command{kind: cmdNoteOn, note: note, volume: vol, osc: &osc})
	}
}

// NoteOff releases every voice playing note.
func (s *Synth) NoteOff(note int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.push(command{kind: cmdNoteOff, note: note})
}

// AllNotesOff silences every voice immediately.
func (s *Synth) AllNotesOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.push(command{kind: cmdAllNotesOff})
}

// AllSoundOff stops every voice and clears the filter, reverb tail, LFO
// phase and pitch bend.
func (s *Synth) AllSoundOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.push(command{kind: cmdReset})
}

// PlayOscillator starts note on a single oscillator outside the bank.
func (s *Synth) PlayOscillator(osc patch.Oscillator, note int, volume float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.push(command{kind: cmdNoteOn, note: note, volume: volume, osc: &osc})
}

// ProcessMessage routes one incoming message. Messages that are too short
// for their status byte, or that this instrument does not use, are ignored.
func (s *Synth) ProcessMessage(msg midi.Message) {
	if len(msg) == 0 {
		return
	}
	status := msg[0]
	if status == 0xF0 {
		s.processPatchData(msg)
		return
	}
	if len(msg) < messageLength(status) {
		return
	}
	var ch, key, vel, ctl, val, prog uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteOn(&ch, &key, &vel):
		s.NoteOn(WorkPatchIndex, int(key), float32(vel)/controllerRange)
	case status&0xF0 == 0x90:
		// note on with zero velocity
		s.NoteOff(int(msg[1]))
	case msg.GetNoteOff(&ch, &key, &vel):
		s.NoteOff(int(key))
	case msg.GetControlChange(&ch, &ctl, &val):
		s.controlChange(ctl, val)
	case msg.GetProgramChange(&ch, &prog):
		s.SelectPatch(int(prog))
	case msg.GetPitchBend(&ch, &rel, &abs):
		s.SetBendRatio(BendRatio(int(abs)))
	}
}

// messageLength is the number of bytes a channel message needs, or a
// value no message can reach for data and system bytes.
func messageLength(status byte) int {
	switch status & 0xF0 {
	case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
		return 3
	case 0xC0, 0xD0:
		return 2
	}
	return 1 << 30
}

// BendRatio converts a 14-bit pitch wheel value to a frequency ratio. Values
// just around the center map to exactly 1.
func BendRatio(bend int) float64 {
	switch {
	case bend > bendUpperDead:
		return 1 + bendUpRange*float64(bend-bendCenter)/bendCenter
	case bend < bendLowerDead:
		return bendDownBase + bendDownRange*float64(bend)/bendCenter
	}
	return 1
}

func (s *Synth) controlChange(ctl, val uint8) {
	v := float64(val) / controllerRange
	switch ctl {
	case CCModWheel:
		s.SetCutoff(modWheelBase + cutoffCCRange*v)
	case CCCutoff:
		s.SetCutoff(cutoffCCRange * v)
	case CCResonance:
		s.SetResonance(v)
	case CCReverb:
		s.SetReverbMix(v)
	case CCStorePatch:
		if val != 1 {
			return
		}
		s.mu.Lock()
		cur := s.current
		s.mu.Unlock()
		s.StoreWorkPatch(cur)
		if err := s.SavePatches(); err != nil && !errors.Is(err, ErrNoPatchFile) {
			s.log.Error("save patches", "err", err)
		}
	case CCPatchInfo:
		s.sendPatchInfo(int(val))
	case CCAllSoundOff:
		s.AllSoundOff()
	case CCAllNotesOff:
		s.AllNotesOff()
	}
}

func (s *Synth) SetCutoff(hz float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.push(command{kind: cmdCutoff, a: hz})
}

func (s *Synth) SetResonance(r float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.push(command{kind: cmdResonance, a: r})
}

func (s *Synth) SetReverbMix(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Info("reverb level", "mix", level)
	s.queue.push(command{kind: cmdReverbMix, a: level})
}

func (s *Synth) SetBendRatio(r float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Debug("pitch bend", "ratio", r)
	s.queue.push(command{kind: cmdBend, a: r})
}

func (s *Synth) sendPatchInfo(index int) {
	if index < 0 || index >= NumPatches {
		return
	}
	s.mu.Lock()
	msg := message.Deliver(s.bank[index])
	s.mu.Unlock()
	s.replier.Reply(msg)
}

func (s *Synth) processPatchData(msg midi.Message) {
	pd, err := message.ParsePatchData(msg)
	if err != nil {
		if message.IsPatchData(msg) {
			s.log.Warn("patch data", "err", err)
		}
		return
	}
	switch pd.Command {
	case message.CmdDeliver:
		s.mu.Lock()
		n := pd.Apply(s.work)
		s.work.Clamp()
		s.pushLFO(s.work)
		s.mu.Unlock()
		s.log.Debug("patch data received", "addr", pd.Addr, "size", pd.Size, "applied", n)
	case message.CmdRequest:
		s.replier.Reply(s.workPatchData(pd.Addr, pd.Size))
	}
}

// workPatchData packs the requested range of the work patch into a DT1
// frame. The range is clipped to the record.
func (s *Synth) workPatchData(addr, size int) midi.Message {
	var buf [patch.AddrEnd]byte
	s.mu.Lock()
	s.work.Pack(buf[:])
	s.mu.Unlock()
	addr = min(max(addr, 0), patch.AddrEnd)
	end := min(addr+max(size, 0), patch.AddrEnd)
	return message.EncodePatchData(message.CmdDeliver, addr, 0, buf[addr:end])
}

// SelectPatch copies bank[i] into the work patch and makes i current. The
// patch LFO settings go to the mixer.
func (s *Synth) SelectPatch(i int) {
	if i < 0 || i >= NumPatches {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.work.CopyFrom(s.bank[i])
	s.current = i
	s.pushLFO(s.work)
	s.log.Info("patch selected", "index", i, "name", s.work.Name())
}

// StoreWorkPatch copies the work patch into bank[i].
func (s *Synth) StoreWorkPatch(i int) {
	if i < 0 || i >= NumPatches {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bank[i].CopyFrom(s.work)
	s.log.Info("patch stored", "index", i, "name", s.work.Name())
}

func (s *Synth) pushLFO(p *patch.Patch) {
	s.queue.push(command{
		kind:  cmdLFO,
		table: waveform.Shared(p.LFOWave),
		a:     float64(p.LFOFreq),
		b:     float64(p.LFODepth),
	})
}

// LoadPatches reads the bank from the configured patch file. A missing file
// keeps the defaults and returns an error matching fs.ErrNotExist.
func (s *Synth) LoadPatches() error {
	if s.patchFile == "" {
		return ErrNoPatchFile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := patchfile.Load(s.patchFile, s.bank[:])
	if err == nil {
		s.log.Info("patches loaded", "path", s.patchFile)
	}
	return err
}

// SavePatches writes the bank to the configured patch file.
func (s *Synth) SavePatches() error {
	if s.patchFile == "" {
		return ErrNoPatchFile
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := patchfile.Save(s.patchFile, s.bank[:]); err != nil {
		return fmt.Errorf("wavesynth: save bank: %w", err)
	}
	s.log.Info("patches saved", "path", s.patchFile)
	return nil
}

// Update schedules reaping of finished voices and reports the diagnostic
// counters gathered since the last call.
func (s *Synth) Update(ms float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.push(command{kind: cmdUpdate, a: float64(ms)})

	over, under := s.mixer.TakeClipCounts()
	if over > 0 || under > 0 {
		s.log.Warn("output clipping", "overflow", over, "underflow", under)
	}
	if d := s.mixer.Dropped(); d != s.seenDropped {
		s.log.Warn("voice pool exhausted", "dropped", d-s.seenDropped)
		s.seenDropped = d
	}
	if d := s.queue.dropped.Load(); d != s.seenQueueDropped {
		s.log.Warn("command queue full", "dropped", d-s.seenQueueDropped)
		s.seenQueueDropped = d
	}
}

// Render fills out with the next mono samples. It is the only method the
// audio goroutine calls.
func (s *Synth) Render(out []int16) {
	s.queue.drain(s.apply)
	s.mixer.FillBuffer(out, s.sampleRate)
}

func (s *Synth) apply(c *command) {
	m := s.mixer
	switch c.kind {
	case cmdNoteOn:
		m.NoteOn(c.osc, c.note, c.volume)
	case cmdNoteOff:
		m.NoteOff(c.note)
	case cmdAllNotesOff:
		m.AllNotesOff()
	case cmdReset:
		m.Reset()
	case cmdUpdate:
		m.Update(float32(c.a))
	case cmdCutoff:
		m.SetCutoff(c.a)
	case cmdResonance:
		m.SetResonance(c.a)
	case cmdReverbMix:
		m.SetReverbMix(c.a)
	case cmdBend:
		m.SetBendRatio(c.a)
	case cmdLFO:
		m.SetLFO(c.table, c.a, c.b)
	}
}

// ActiveVoiceCount returns the number of sounding voices as of the last
// render.
func (s *Synth) ActiveVoiceCount() int { return s.mixer.ActiveVoiceCount() }

// DroppedNotes counts note-ons that found no free voice or no queue room.
func (s *Synth) DroppedNotes() uint64 {
	return s.mixer.Dropped() + s.queue.dropped.Load()
}

// Patch returns a copy of bank[i], or nil when i is out of range.
func (s *Synth) Patch(i int) *patch.Patch {
	if i < 0 || i >= NumPatches {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank[i].Clone()
}

// SetPatch replaces bank[i] with a copy of p.
func (s *Synth) SetPatch(i int, p *patch.Patch) {
	if i < 0 || i >= NumPatches || p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bank[i].CopyFrom(p)
	s.bank[i].Clamp()
}

// WorkPatch returns a copy of the work patch.
func (s *Synth) WorkPatch() *patch.Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.work.Clone()
}

// CurrentPatch returns the index of the last selected patch.
func (s *Synth) CurrentPatch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
