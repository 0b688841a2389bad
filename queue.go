package wavesynth

import (
	"sync/atomic"

	"github.com/cbegin/wavesynth-go/internal/patch"
	"github.com/cbegin/wavesynth-go/internal/waveform"
)

// queueSize must be a power of two.
const queueSize = 256

type commandKind uint8

const (
	cmdNoteOn commandKind = iota
	cmdNoteOff
	cmdAllNotesOff
	cmdUpdate
	cmdCutoff
	cmdResonance
	cmdReverbMix
	cmdBend
	cmdLFO
	cmdReset
)

// command is one control change handed to the render goroutine. Pointers
// it carries are immutable once queued.
type command struct {
	kind   commandKind
	note   int
	volume float32
	osc    *patch.Oscillator
	table  *waveform.Waveform
	a, b   float64
}

// commandQueue is a bounded single-producer single-consumer ring. The
// control side pushes under Synth.mu; the render goroutine pops.
type commandQueue struct {
	buf     [queueSize]command
	head    atomic.Uint64 // next slot to read
	tail    atomic.Uint64 // next slot to write
	dropped atomic.Uint64
}

// push enqueues c. A full queue drops c and counts it.
func (q *commandQueue) push(c command) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() >= queueSize {
		q.dropped.Add(1)
		return false
	}
	q.buf[tail&(queueSize-1)] = c
	q.tail.Store(tail + 1)
	return true
}

// drain calls fn for every queued command in order.
func (q *commandQueue) drain(fn func(*command)) {
	head := q.head.Load()
	tail := q.tail.Load()
	for ; head != tail; head++ {
		c := &q.buf[head&(queueSize-1)]
		fn(c)
		*c = command{}
	}
	q.head.Store(head)
}

func (q *commandQueue) len() int {
	return int(q.tail.Load() - q.head.Load())
}
