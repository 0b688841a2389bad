package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/cbegin/wavesynth-go"
	"github.com/cbegin/wavesynth-go/internal/audio"
	"github.com/cbegin/wavesynth-go/internal/mixer"
	"github.com/cbegin/wavesynth-go/internal/patch"
	"github.com/cbegin/wavesynth-go/internal/patchfile"
)

var (
	sampleRate    int
	patchFile     string
	verbose       bool
	backendName   string
	bufferSamples int
	volume        float64
	noBeep        bool
	holdMs        int

	renderNote    int
	renderPatch   int
	renderSeconds float64
	renderVel     int
	releaseMs     int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wavesynth",
	Short: "Polyphonic wavetable synthesizer",
	Long: `wavesynth plays two-oscillator wavetable patches from a 32 slot bank.

Patches are kept in a key=value bank file that is loaded at start and
saved on exit.`,
	SilenceUsage: true,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the synth from the terminal keyboard",
	Long: `Play notes with the computer keyboard.

  a w s e d f t g y h u j k   notes C to C
  z / x                       octave down / up
  1 .. 9                      select patch 1 to 9
  q                           quit`,
	RunE: runPlay,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one note offline and report its level and pitch",
	RunE:  runRender,
}

var patchesCmd = &cobra.Command{
	Use:   "patches",
	Short: "List the patch bank",
	RunE:  runPatches,
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(patchesCmd)

	rootCmd.PersistentFlags().IntVar(&sampleRate, "sample-rate", 48000, "output sample rate")
	rootCmd.PersistentFlags().StringVarP(&patchFile, "patches", "p", patchfile.DefaultName, "patch bank file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	playCmd.Flags().StringVar(&backendName, "backend", "ebiten", "audio backend: ebiten|oto")
	playCmd.Flags().IntVar(&bufferSamples, "buffer", 0, "device buffer in samples (0 = backend default)")
	playCmd.Flags().Float64Var(&volume, "volume", mixer.DefaultParams().MasterVolume, "master volume")
	playCmd.Flags().BoolVar(&noBeep, "no-beep", false, "skip the start-up chime")
	playCmd.Flags().IntVar(&holdMs, "hold", 400, "ms a key press holds its note")

	renderCmd.Flags().IntVarP(&renderNote, "note", "n", 69, "MIDI note number")
	renderCmd.Flags().IntVar(&renderPatch, "patch", 0, "bank slot to play")
	renderCmd.Flags().Float64VarP(&renderSeconds, "seconds", "s", 1, "length to render")
	renderCmd.Flags().IntVar(&renderVel, "velocity", 100, "note velocity (1-127)")
	renderCmd.Flags().IntVar(&releaseMs, "release-after", 0, "send note off after this many ms (0 = hold)")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func synthOptions(logger *slog.Logger) []wavesynth.SynthOption {
	params := mixer.DefaultParams()
	params.MasterVolume = volume
	if params.MasterVolume <= 0 {
		params.MasterVolume = mixer.DefaultParams().MasterVolume
	}
	return []wavesynth.SynthOption{
		wavesynth.WithLogger(logger),
		wavesynth.WithPatchFile(patchFile),
		wavesynth.WithMixerParams(params),
		wavesynth.WithSeed(uint64(time.Now().UnixNano())),
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	backend, err := audio.ParseBackend(backendName)
	if err != nil {
		return err
	}
	pl, err := wavesynth.NewPlayer(sampleRate,
		wavesynth.WithBackend(backend),
		wavesynth.WithBufferSamples(bufferSamples),
		wavesynth.WithSynthOptions(synthOptions(logger)...))
	if err != nil {
		return fmt.Errorf("open player: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := pl.Start(ctx); err != nil {
		pl.Close()
		return err
	}
	if !noBeep {
		pl.StartupBeep()
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		old, err := term.MakeRaw(fd)
		if err != nil {
			pl.Close()
			return fmt.Errorf("raw mode: %w", err)
		}
		defer term.Restore(fd, old)
	}

	kb := newKeyboard(time.Duration(holdMs) * time.Millisecond)
	keys := make(chan byte)
	go readStdin(keys)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return playKeys(gctx, kb, keys, pl.Synth())
	})
	g.Go(func() error {
		return reportVoices(gctx, pl.Synth(), logger)
	})
	err = g.Wait()
	if cerr := pl.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

// readStdin forwards stdin bytes until it fails. It is left running on exit.
func readStdin(out chan<- byte) {
	defer close(out)
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			out <- buf[0]
		}
		if err != nil {
			return
		}
	}
}

func playKeys(ctx context.Context, kb *keyboard, keys <-chan byte, s *wavesynth.Synth) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case b, ok := <-keys:
			if !ok {
				return nil
			}
			act := kb.press(b)
			if act.quit {
				return nil
			}
			if act.msg != nil {
				s.ProcessMessage(act.msg)
			}
			if act.release != nil {
				off := act.release
				time.AfterFunc(kb.hold, func() { s.ProcessMessage(off) })
			}
		}
	}
}

func reportVoices(ctx context.Context, s *wavesynth.Synth, logger *slog.Logger) error {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	last := -1
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := s.ActiveVoiceCount(); n != last {
				logger.Debug("voices", "active", n, "dropped", s.DroppedNotes())
				last = n
			}
		}
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	s, err := wavesynth.NewSynth(sampleRate, append(synthOptions(logger), wavesynth.WithSeed(1))...)
	if err != nil {
		return err
	}
	if err := s.LoadPatches(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("load patches", "err", err)
	}
	s.SelectPatch(renderPatch)

	frames := int(float64(sampleRate) * renderSeconds)
	s.ProcessMessage(midi.NoteOn(0, uint8(renderNote&0x7F), uint8(min(max(renderVel, 1), 127))))
	var out []int16
	if releaseMs > 0 {
		held := min(frames, sampleRate*releaseMs/1000)
		out = wavesynth.RenderSamples(s, held, wavesynth.DefaultBlockSize)
		s.ProcessMessage(midi.NoteOff(0, uint8(renderNote&0x7F)))
		out = append(out, renderUpdating(s, frames-held)...)
	} else {
		out = renderUpdating(s, frames)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "patch %d %q note %d\n", renderPatch, s.WorkPatch().Name(), renderNote)
	fmt.Fprintf(w, "samples:   %d\n", len(out))
	fmt.Fprintf(w, "peak:      %d\n", wavesynth.Peak(out))
	fmt.Fprintf(w, "frequency: %.1f Hz (expected %.1f Hz)\n",
		wavesynth.EstimateFrequency(out, sampleRate), mixer.NoteFrequency(renderNote))
	return nil
}

// renderUpdating renders in device sized blocks and runs the voice update
// after each, as the player's control loop would.
func renderUpdating(s *wavesynth.Synth, frames int) []int16 {
	out := make([]int16, 0, max(frames, 0))
	block := wavesynth.DefaultBlockSize
	ms := float32(1000*block) / float32(sampleRate)
	for len(out) < frames {
		n := min(block, frames-len(out))
		out = append(out, wavesynth.RenderSamples(s, n, n)...)
		s.Update(ms)
	}
	return out
}

func runPatches(cmd *cobra.Command, args []string) error {
	bank := make([]*patch.Patch, wavesynth.NumPatches)
	for i := range bank {
		bank[i] = patch.New()
	}
	if err := patchfile.Load(patchFile, bank); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no bank at %s", patchFile)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-4s %-20s %-9s %-9s %s\n", "slot", "name", "osc1", "osc2", "mix")
	for i, p := range bank {
		fmt.Fprintf(w, "%-4d %-20s %-9s %-9s %.2f\n", i, p.Name(), p.Osc1.Wave, p.Osc2.Wave, p.MixLevel())
	}
	return nil
}
