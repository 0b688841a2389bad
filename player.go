package wavesynth

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"time"

	intaudio "github.com/cbegin/wavesynth-go/internal/audio"
	"github.com/cbegin/wavesynth-go/internal/envelope"
	"github.com/cbegin/wavesynth-go/internal/patch"
	"github.com/cbegin/wavesynth-go/internal/waveform"
)

// Backend names the audio device library a Player uses.
type Backend = intaudio.Backend

const (
	BackendEbiten = intaudio.BackendEbiten
	BackendOto    = intaudio.BackendOto
)

const (
	DefaultUpdateInterval = 10 * time.Millisecond

	beepNote     = 72
	beepVolume   = 0.5
	beepDuration = 500 * time.Millisecond
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	backend        Backend
	bufferSamples  int
	updateInterval time.Duration
	synthOpts      []SynthOption
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{backend: BackendEbiten, updateInterval: DefaultUpdateInterval}
}

func WithBackend(b Backend) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.backend = b
	}
}

// WithBufferSamples sets the device buffer length in samples. 0 keeps the
// backend default.
func WithBufferSamples(n int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.bufferSamples = max(n, 0)
	}
}

// WithUpdateInterval sets how often the control loop reaps voices.
func WithUpdateInterval(d time.Duration) PlayerOption {
	return func(cfg *playerConfig) {
		if d > 0 {
			cfg.updateInterval = d
		}
	}
}

// WithSynthOptions passes options through to the Synth.
func WithSynthOptions(opts ...SynthOption) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.synthOpts = append(cfg.synthOpts, opts...)
	}
}

// Player ties a Synth to an audio device and runs its control loop.
type Player struct {
	mu       sync.Mutex
	synth    *Synth
	out      intaudio.Output
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	closed   bool
}

// NewPlayer builds the synth, loads its bank and opens the device. A
// missing patch file leaves the default bank in place.
func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	waveform.Init()
	synth, err := NewSynth(sampleRate, cfg.synthOpts...)
	if err != nil {
		return nil, err
	}
	if err := synth.LoadPatches(); err != nil {
		switch {
		case errors.Is(err, ErrNoPatchFile):
		case errors.Is(err, fs.ErrNotExist):
			synth.log.Info("no patch file, using defaults", "path", synth.patchFile)
		default:
			synth.log.Warn("load patches", "err", err)
		}
	}
	synth.SelectPatch(0)
	out, err := intaudio.Open(cfg.backend, sampleRate, cfg.bufferSamples, synth)
	if err != nil {
		return nil, err
	}
	return &Player{synth: synth, out: out, interval: cfg.updateInterval}, nil
}

func (p *Player) Synth() *Synth { return p.synth }

// Start begins playback and the control loop. The loop stops when ctx is
// done or Close is called.
func (p *Player) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("wavesynth: player closed")
	}
	if p.cancel != nil {
		return errors.New("wavesynth: player already started")
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.out.Play()
	go runUpdates(ctx, p.synth, p.interval, p.done)
	return nil
}

func runUpdates(ctx context.Context, s *Synth, interval time.Duration, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(interval)
	defer t.Stop()
	ms := float32(interval) / float32(time.Millisecond)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Update(ms)
		}
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out.Pause()
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out.Play()
}

// Close stops the control loop and the device, then saves the bank.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	err := p.out.Close()
	if serr := p.synth.SavePatches(); serr != nil && !errors.Is(serr, ErrNoPatchFile) {
		err = errors.Join(err, serr)
	}
	return err
}

// StartupBeep plays a short square chime.
func (p *Player) StartupBeep() {
	startupBeep(p.synth, time.AfterFunc)
}

func startupBeep(s *Synth, after func(time.Duration, func()) *time.Timer) {
	s.PlayOscillator(BeepOscillator(), beepNote, beepVolume)
	after(beepDuration, func() { s.NoteOff(beepNote) })
}

// BeepOscillator is the oscillator of the start-up chime.
func BeepOscillator() patch.Oscillator {
	osc := patch.DefaultOscillator()
	osc.Wave = waveform.Square
	osc.Env[envelope.Volume] = envelope.Envelope{Attack: 100, Peak: 0.9, Decay: 100, Sustain: 0.7, Release: 2000}
	osc.LFOEnv[envelope.Volume] = envelope.Envelope{}
	return osc
}
