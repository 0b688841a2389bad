// Package waveform builds the single-cycle sample tables voices play back.
package waveform

import (
	"errors"
	"math"
	"sync"

	"github.com/chewxy/math32"
)

const (
	// NominalSize is the table length of every periodic shape.
	NominalSize = 4096
	// NoiseSize is the length of the shared noise table, about 10 s at 48 kHz.
	NoiseSize = 480000

	minCustomSize = 20
	maxCustomSize = 1000000
)

// Type selects a wave shape. The numeric values are part of the patch record.
type Type int

const (
	None Type = iota
	Square
	Saw1
	Saw2
	Triangle
	Sine
	Noise
	Custom
	NumTypes
)

func (t Type) String() string {
	switch t {
	case None:
		return "NONE"
	case Square:
		return "SQUARE"
	case Saw1:
		return "SAW1"
	case Saw2:
		return "SAW2"
	case Triangle:
		return "TRIANGLE"
	case Sine:
		return "SINE"
	case Noise:
		return "NOISE"
	case Custom:
		return "CUSTOM"
	}
	return "bad!"
}

// Valid reports whether t is a known wave type.
func (t Type) Valid() bool {
	return t >= None && t < NumTypes
}

var ErrCustomLength = errors.New("waveform: custom sample count out of range")

var (
	noiseOnce  sync.Once
	noiseTable []float32

	sharedOnce   sync.Once
	sharedTables [NumTypes]*Waveform
)

// Init builds the shared noise table and the shared per-shape tables.
// Calling it at startup keeps the one-off cost away from the first note.
func Init() {
	noiseOnce.Do(buildNoise)
	sharedOnce.Do(buildShared)
}

// Shared returns a process-wide read-only table for shape t. Voices play
// these instead of owning a copy, so starting a note never allocates.
// Custom and unknown shapes get the square table.
func Shared(t Type) *Waveform {
	Init()
	if t < None || t >= NumTypes {
		t = None
	}
	return sharedTables[t]
}

func buildShared() {
	for t := None; t < NumTypes; t++ {
		sharedTables[t] = New(t, 0.5)
	}
}

// NoiseTable returns the process-wide noise table. Callers must not modify it.
func NoiseTable() []float32 {
	noiseOnce.Do(buildNoise)
	return noiseTable
}

func buildNoise() {
	noiseTable = make([]float32, NoiseSize)
	seed := uint32(5323)
	for i := range noiseTable {
		seed = 8253729*seed + 2396403
		r := int32(seed % 32767)
		noiseTable[i] = float32(r-16384) / 16384
	}
}

// Waveform is a sample table tagged with the shape it was built from.
// Noise waveforms alias the shared table; every other shape owns its samples.
type Waveform struct {
	Type    Type
	Samples []float32
}

// New returns a waveform of the given shape.
func New(t Type, duty float32) *Waveform {
	w := &Waveform{}
	w.Set(t, duty)
	return w
}

// Len returns the table length.
func (w *Waveform) Len() int {
	return len(w.Samples)
}

// Set regenerates the table for shape t. The duty cycle is applied at
// playback time by the mixer's phase warp, so it does not alter the table.
// Unknown shapes (and None) produce square samples.
func (w *Waveform) Set(t Type, duty float32) {
	_ = duty
	w.Type = t
	switch t {
	case Noise:
		w.Samples = NoiseTable()
		return
	case Sine:
		w.fill(func(x float32) float32 { return math32.Sin(2 * math32.Pi * x) })
	case Saw1:
		w.fill(func(x float32) float32 { return 2*x - 1 })
	case Saw2:
		w.fill(func(x float32) float32 { return 1 - 2*x })
	case Triangle:
		w.makeTriangle()
	default:
		w.fill(softSquare)
	}
}

// SetCustom installs caller-provided samples. Tables that are too short or
// too long are rejected and replaced by a square wave.
func (w *Waveform) SetCustom(samples []float32) error {
	if len(samples) <= minCustomSize || len(samples) > maxCustomSize {
		w.Set(Square, 0.5)
		return ErrCustomLength
	}
	w.Type = Custom
	w.Samples = make([]float32, len(samples))
	copy(w.Samples, samples)
	return nil
}

// fill allocates a fresh nominal table so a table handed out earlier is never
// rewritten in place (it may still alias the shared noise table).
func (w *Waveform) fill(shape func(x float32) float32) {
	w.Samples = make([]float32, NominalSize)
	for i := range w.Samples {
		w.Samples[i] = shape(float32(i) / NominalSize)
	}
}

func (w *Waveform) makeTriangle() {
	w.Samples = make([]float32, NominalSize)
	q := NominalSize / 4
	for i := 0; i < q; i++ {
		f := float32(i) / float32(q)
		w.Samples[i] = f
		w.Samples[i+q] = 1 - f
		w.Samples[i+2*q] = -f
		w.Samples[i+3*q] = -1 + f
	}
}

func softSquare(x float32) float32 {
	return float32(math.Tanh(float64(10 * math32.Sin(2*math32.Pi*x))))
}
