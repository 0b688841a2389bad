// Package patch holds the sound program model (patches, oscillators,
// modulators) and its fixed-layout binary record.
package patch

import (
	"bytes"

	"github.com/cbegin/wavesynth-go/internal/lfo"
	"github.com/cbegin/wavesynth-go/internal/waveform"
	"github.com/cbegin/wavesynth-go/internal/wire"
)

// Patch record layout. Addresses are byte offsets from the patch base.
const (
	AddrName   = 0
	AddrMixVol = 20
	AddrOsc1   = 22
	AddrOsc2   = 74
	AddrLFO    = 126
	AddrMod1   = 146
	AddrMod2   = 150
	AddrEnd    = 154

	// NameSize includes the terminating zero byte.
	NameSize = AddrMixVol - AddrName
)

// Block is one sub-block of the patch record.
type Block struct {
	Name   string
	Addr   int
	Size   int
	pack   func(p *Patch, dst []byte)
	unpack func(p *Patch, src []byte)
}

// Blocks lists the record in address order. Sizes include padding.
var Blocks = [...]Block{
	{"name", AddrName, AddrMixVol - AddrName, packName, unpackName},
	{"mixvol", AddrMixVol, AddrOsc1 - AddrMixVol, packMix, unpackMix},
	{"osc1", AddrOsc1, AddrOsc2 - AddrOsc1,
		func(p *Patch, b []byte) { p.Osc1.Pack(b) },
		func(p *Patch, b []byte) { p.Osc1.Unpack(b) }},
	{"osc2", AddrOsc2, AddrLFO - AddrOsc2,
		func(p *Patch, b []byte) { p.Osc2.Pack(b) },
		func(p *Patch, b []byte) { p.Osc2.Unpack(b) }},
	{"lfo", AddrLFO, AddrMod1 - AddrLFO, packLFO, unpackLFO},
	{"mod1", AddrMod1, AddrMod2 - AddrMod1,
		func(p *Patch, b []byte) { p.Mod[0].Pack(b) },
		func(p *Patch, b []byte) { p.Mod[0].Unpack(b) }},
	{"mod2", AddrMod2, AddrEnd - AddrMod2,
		func(p *Patch, b []byte) { p.Mod[1].Pack(b) },
		func(p *Patch, b []byte) { p.Mod[1].Unpack(b) }},
}

// Patch is one sound program: two oscillators, two controller routings and
// the settings pushed to the global LFO when the patch is selected.
type Patch struct {
	name     string
	mixLevel float32

	Osc1 Oscillator
	Osc2 Oscillator
	Mod  [2]Modulator

	LFOWave  waveform.Type
	LFOFreq  float32 // Hz, 0..lfo.MaxFreq
	LFODepth float32 // 0..1
}

// New returns a default patch.
func New() *Patch {
	p := &Patch{
		mixLevel: 1,
		Osc1:     DefaultOscillator(),
		Osc2:     DefaultOscillator(),
		LFOWave:  waveform.Sine,
		LFOFreq:  1,
		LFODepth: 1,
	}
	p.Mod[0] = Modulator{Target: TargetPitch, Range: 24}
	p.Mod[1] = Modulator{Target: TargetFilter, Range: 127}
	return p
}

func (p *Patch) Name() string { return p.name }

// SetName stores name, cut to fit the record with its terminator.
func (p *Patch) SetName(name string) {
	if i := bytes.IndexByte([]byte(name), 0); i >= 0 {
		name = name[:i]
	}
	if len(name) > NameSize-1 {
		name = name[:NameSize-1]
	}
	p.name = name
}

func (p *Patch) MixLevel() float32 { return p.mixLevel }

// SetMixLevel sets the output level, clamped to [0, 1].
func (p *Patch) SetMixLevel(level float32) {
	p.mixLevel = clamp32(level, 0, 1)
}

// Osc returns oscillator 0 or 1.
func (p *Patch) Osc(i int) *Oscillator {
	if i == 0 {
		return &p.Osc1
	}
	return &p.Osc2
}

// Clone returns an independent copy.
func (p *Patch) Clone() *Patch {
	c := *p
	return &c
}

// CopyFrom overwrites p with src.
func (p *Patch) CopyFrom(src *Patch) {
	*p = *src
}

// Clamp bounds every field to what the record can carry.
func (p *Patch) Clamp() {
	p.SetName(p.name)
	p.SetMixLevel(p.mixLevel)
	p.Osc1.Clamp()
	p.Osc2.Clamp()
	if !p.LFOWave.Valid() {
		p.LFOWave = waveform.None
	}
	p.LFOFreq = clamp32(p.LFOFreq, 0, lfo.MaxFreq)
	p.LFODepth = clamp32(p.LFODepth, 0, 1)
	for i := range p.Mod {
		if p.Mod[i].Range < 0 {
			p.Mod[i].Range = 0
		}
	}
}

// Pack zeroes dst[:AddrEnd] and writes the full record.
func (p *Patch) Pack(dst []byte) int {
	dst = dst[:AddrEnd]
	for i := range dst {
		dst[i] = 0
	}
	for _, b := range Blocks {
		b.pack(p, dst[b.Addr:b.Addr+b.Size])
	}
	return AddrEnd
}

// Unpack applies size bytes of record data that start at record address
// addr. Sub-blocks are consumed in order while the running address lands
// exactly on the next block start and a whole block of data remains; any
// mismatch stops parsing, keeping the blocks already applied. It returns
// the number of bytes consumed.
func (p *Patch) Unpack(src []byte, addr, size int) int {
	if size > len(src) {
		size = len(src)
	}
	consumed := 0
	for _, b := range Blocks {
		if b.Addr < addr {
			continue
		}
		if b.Addr != addr || size-consumed < b.Size {
			break
		}
		b.unpack(p, src[consumed:consumed+b.Size])
		consumed += b.Size
		addr += b.Size
	}
	return consumed
}

func packName(p *Patch, dst []byte) {
	copy(dst[:NameSize-1], p.name)
}

func unpackName(p *Patch, src []byte) {
	p.SetName(string(src[:NameSize]))
}

func packMix(p *Patch, dst []byte) {
	dst[0] = wire.PackScaled(p.mixLevel)
}

func unpackMix(p *Patch, src []byte) {
	p.mixLevel = wire.UnpackScaled(src[0])
}

func packLFO(p *Patch, dst []byte) {
	dst[0] = byte(p.LFOWave) & wire.ScaleMax
	dst[1] = wire.PackScaled(p.LFOFreq / lfo.MaxFreq)
	dst[2] = wire.PackScaled(p.LFODepth)
}

func unpackLFO(p *Patch, src []byte) {
	p.LFOWave = waveform.Type(src[0] & wire.ScaleMax)
	p.LFOFreq = wire.UnpackScaled(src[1]) * lfo.MaxFreq
	p.LFODepth = wire.UnpackScaled(src[2])
}

func clamp32(v, lo, hi float32) float32 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
