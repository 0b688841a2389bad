// Package patchfile reads and writes the patch bank as key=value text.
//
// Each "patch=<n>" line selects the bank slot the following keys apply to.
// Keys name a patch field, for example "name", "lfo.freq", "osc1.duty" or
// "osc2.volenvA" (envelope suffixes are DL, A, P, D, S and R).
package patchfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cbegin/wavesynth-go/internal/envelope"
	"github.com/cbegin/wavesynth-go/internal/patch"
	"github.com/cbegin/wavesynth-go/internal/waveform"
)

// DefaultName is the bank file used when none is configured.
const DefaultName = "patches.dat"

const slotKey = "patch"

type field struct {
	key string
	get func(p *patch.Patch) string
	set func(p *patch.Patch, v string) error
}

var (
	fields = buildFields()
	byKey  = indexFields(fields)
)

var envKeys = [...]string{"volenv", "pitchenv", "filterenv", "pwmenv"}
var lfoEnvKeys = [...]string{"LFOVolenv", "LFOPitchenv", "LFOFilterenv", "LFOPWMenv"}

func buildFields() []field {
	fs := []field{
		{"name",
			func(p *patch.Patch) string { return p.Name() },
			func(p *patch.Patch, v string) error { p.SetName(v); return nil }},
		{"mixlevel",
			func(p *patch.Patch) string { return formatLevel(p.MixLevel()) },
			func(p *patch.Patch, v string) error {
				f, err := parseFloat(v)
				if err == nil {
					p.SetMixLevel(f)
				}
				return err
			}},
		{"lfo.wavetype",
			func(p *patch.Patch) string { return strconv.Itoa(int(p.LFOWave)) },
			func(p *patch.Patch, v string) error { return setWave(&p.LFOWave, v) }},
		floatField("lfo.freq", func(p *patch.Patch) *float32 { return &p.LFOFreq }),
		floatField("lfo.depth", func(p *patch.Patch) *float32 { return &p.LFODepth }),
	}
	for i := 0; i < 2; i++ {
		prefix := fmt.Sprintf("osc%d.", i+1)
		osc := func(p *patch.Patch) *patch.Oscillator { return p.Osc(i) }
		fs = append(fs,
			field{prefix + "wavetype",
				func(p *patch.Patch) string { return strconv.Itoa(int(osc(p).Wave)) },
				func(p *patch.Patch, v string) error { return setWave(&osc(p).Wave, v) }},
			floatField(prefix+"duty", func(p *patch.Patch) *float32 { return &osc(p).Duty }),
			floatField(prefix+"detune", func(p *patch.Patch) *float32 { return &osc(p).Detune }),
		)
		for e, name := range envKeys {
			fs = append(fs, envFields(prefix+name, func(p *patch.Patch) *envelope.Envelope { return &osc(p).Env[e] })...)
		}
		for e, name := range lfoEnvKeys {
			fs = append(fs, envFields(prefix+name, func(p *patch.Patch) *envelope.Envelope { return &osc(p).LFOEnv[e] })...)
		}
	}
	return fs
}

func indexFields(fs []field) map[string]*field {
	m := make(map[string]*field, len(fs))
	for i := range fs {
		m[fs[i].key] = &fs[i]
	}
	return m
}

func floatField(key string, ref func(p *patch.Patch) *float32) field {
	return field{key,
		func(p *patch.Patch) string { return formatLevel(*ref(p)) },
		func(p *patch.Patch, v string) error {
			f, err := parseFloat(v)
			if err == nil {
				*ref(p) = f
			}
			return err
		}}
}

func envFields(prefix string, ref func(p *patch.Patch) *envelope.Envelope) []field {
	time := func(suffix string, sel func(e *envelope.Envelope) *float32) field {
		return field{prefix + suffix,
			func(p *patch.Patch) string { return strconv.Itoa(int(*sel(ref(p)))) },
			func(p *patch.Patch, v string) error {
				f, err := parseFloat(v)
				if err == nil {
					*sel(ref(p)) = f
				}
				return err
			}}
	}
	level := func(suffix string, sel func(e *envelope.Envelope) *float32) field {
		return floatField(prefix+suffix, func(p *patch.Patch) *float32 { return sel(ref(p)) })
	}
	return []field{
		time("DL", func(e *envelope.Envelope) *float32 { return &e.Delay }),
		time("A", func(e *envelope.Envelope) *float32 { return &e.Attack }),
		level("P", func(e *envelope.Envelope) *float32 { return &e.Peak }),
		time("D", func(e *envelope.Envelope) *float32 { return &e.Decay }),
		level("S", func(e *envelope.Envelope) *float32 { return &e.Sustain }),
		time("R", func(e *envelope.Envelope) *float32 { return &e.Release }),
	}
}

func formatLevel(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}

func parseFloat(v string) (float32, error) {
	f, err := strconv.ParseFloat(v, 32)
	return float32(f), err
}

// parseLeadingInt reads the leading decimal integer of v. Older bank files
// carry a stray suffix after some integers ("3f").
func parseLeadingInt(v string) (int, error) {
	end := 0
	for end < len(v) && (v[end] >= '0' && v[end] <= '9' || end == 0 && (v[end] == '-' || v[end] == '+')) {
		end++
	}
	return strconv.Atoi(v[:end])
}

func setWave(dst *waveform.Type, v string) error {
	n, err := parseLeadingInt(v)
	if err != nil {
		return err
	}
	*dst = waveform.Type(n)
	return nil
}

// Read applies the bank text in r to bank. Unknown keys are ignored. Bad
// values are skipped and reported together once the whole input is read.
// Patches in the bank are clamped to their valid ranges afterwards.
func Read(r io.Reader, bank []*patch.Patch) error {
	if len(bank) == 0 {
		return errors.New("patchfile: empty bank")
	}
	var errs []error
	cur := bank[0]
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == slotKey {
			n, err := parseLeadingInt(strings.TrimSpace(value))
			if err != nil {
				errs = append(errs, fmt.Errorf("line %d: %s: %w", line, key, err))
				continue
			}
			cur = bank[min(max(n, 0), len(bank)-1)]
			continue
		}
		f, ok := byKey[key]
		if !ok {
			continue
		}
		if key != "name" {
			value = strings.TrimSpace(value)
		}
		if err := f.set(cur, value); err != nil {
			errs = append(errs, fmt.Errorf("line %d: %s: %w", line, key, err))
		}
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, err)
	}
	for _, p := range bank {
		p.Clamp()
	}
	if len(errs) > 0 {
		return fmt.Errorf("patchfile: %w", errors.Join(errs...))
	}
	return nil
}

// Write stores every patch of bank in order.
func Write(w io.Writer, bank []*patch.Patch) error {
	bw := bufio.NewWriter(w)
	for i, p := range bank {
		fmt.Fprintf(bw, "%s=%d\n", slotKey, i)
		for _, f := range fields {
			fmt.Fprintf(bw, "%s=%s\n", f.key, f.get(p))
		}
	}
	return bw.Flush()
}

// Load reads the bank file at path. A missing file yields an error that
// matches fs.ErrNotExist and leaves bank untouched.
func Load(path string, bank []*patch.Patch) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("patchfile: open: %w", err)
	}
	defer f.Close()
	return Read(f, bank)
}

// Save writes the bank to a temporary file next to path and renames it
// into place.
func Save(path string, bank []*patch.Patch) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".patches-*")
	if err != nil {
		return fmt.Errorf("patchfile: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if err = Write(tmp, bank); err != nil {
		return fmt.Errorf("patchfile: write: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("patchfile: close: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("patchfile: rename: %w", err)
	}
	return nil
}
