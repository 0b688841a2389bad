// Package audio connects a mono 16-bit sample source to an output device.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// SampleSource fills out with mono 16-bit samples. It is called from the
// device's playback goroutine.
type SampleSource interface {
	Render(out []int16)
}

// Backend selects the device library.
type Backend int

const (
	BackendEbiten Backend = iota
	BackendOto
)

func (b Backend) String() string {
	switch b {
	case BackendEbiten:
		return "ebiten"
	case BackendOto:
		return "oto"
	}
	return "unknown"
}

// ParseBackend maps a backend name to its value.
func ParseBackend(name string) (Backend, error) {
	switch name {
	case "ebiten", "":
		return BackendEbiten, nil
	case "oto":
		return BackendOto, nil
	}
	return 0, fmt.Errorf("audio: unknown backend %q", name)
}

// Output is a running device stream.
type Output interface {
	Play()
	Pause()
	Close() error
}

var ErrSampleRate = errors.New("audio: sampleRate must be positive")

// Open starts a device stream pulling from source. bufferSamples sizes the
// device buffer where the backend allows it; 0 keeps the backend default.
func Open(backend Backend, sampleRate, bufferSamples int, source SampleSource) (Output, error) {
	if sampleRate <= 0 {
		return nil, ErrSampleRate
	}
	switch backend {
	case BackendEbiten:
		return openEbiten(sampleRate, bufferSamples, source)
	case BackendOto:
		return openOto(sampleRate, bufferSamples, source)
	}
	return nil, fmt.Errorf("audio: unknown backend %d", backend)
}

// StreamReader renders the source into interleaved float32 stereo little
// endian frames, the format of ebiten's float32 players.
type StreamReader struct {
	source SampleSource
	buf    []int16
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	r.buf = grow(r.buf, frames)
	r.source.Render(r.buf)
	for i, s := range r.buf {
		u := math.Float32bits(float32(s) / 32768)
		binary.LittleEndian.PutUint32(p[i*8:], u)
		binary.LittleEndian.PutUint32(p[i*8+4:], u)
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }

// MonoReader renders the source as signed 16-bit mono little endian.
type MonoReader struct {
	source SampleSource
	buf    []int16
}

func NewMonoReader(source SampleSource) *MonoReader {
	return &MonoReader{source: source}
}

func (r *MonoReader) Read(p []byte) (int, error) {
	n := len(p) / 2
	if n == 0 {
		return 0, nil
	}
	r.buf = grow(r.buf, n)
	r.source.Render(r.buf)
	for i, s := range r.buf {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(s))
	}
	return n * 2, nil
}

// grow reuses buf when it is large enough.
func grow(buf []int16, n int) []int16 {
	if cap(buf) < n {
		return make([]int16, n)
	}
	return buf[:n]
}

type ebitenOutput struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func openEbiten(sampleRate, bufferSamples int, source SampleSource) (*ebitenOutput, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	if bufferSamples > 0 {
		pl.SetBufferSize(bufferDuration(sampleRate, bufferSamples))
	}
	return &ebitenOutput{player: pl, reader: reader}, nil
}

func (o *ebitenOutput) Play()  { o.player.Play() }
func (o *ebitenOutput) Pause() { o.player.Pause() }

func (o *ebitenOutput) Close() error {
	o.player.Pause()
	if err := o.player.Close(); err != nil {
		return err
	}
	return o.reader.Close()
}
