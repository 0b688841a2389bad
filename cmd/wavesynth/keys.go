package main

import (
	"time"

	"gitlab.com/gomidi/midi/v2"
)

const (
	noteKeys   = "awsedftgyhujk"
	baseNote   = 60
	minOctave  = -4
	maxOctave  = 4
	ctrlC      = 0x03
	keyChannel = 0
	keyVel     = 100
)

type keyAction struct {
	msg     midi.Message
	release midi.Message
	quit    bool
}

// keyboard maps terminal keys to messages. Terminals report no key up, so
// each note is released after hold.
type keyboard struct {
	octave int
	hold   time.Duration
}

func newKeyboard(hold time.Duration) *keyboard {
	if hold <= 0 {
		hold = 400 * time.Millisecond
	}
	return &keyboard{hold: hold}
}

func (k *keyboard) press(b byte) keyAction {
	switch {
	case b == 'q' || b == ctrlC:
		return keyAction{quit: true}
	case b == 'z':
		k.octave = max(k.octave-1, minOctave)
		return keyAction{}
	case b == 'x':
		k.octave = min(k.octave+1, maxOctave)
		return keyAction{}
	case b >= '1' && b <= '9':
		return keyAction{msg: midi.ProgramChange(keyChannel, b-'1')}
	}
	for i := 0; i < len(noteKeys); i++ {
		if noteKeys[i] != b {
			continue
		}
		note := baseNote + 12*k.octave + i
		if note < 0 || note > 127 {
			return keyAction{}
		}
		return keyAction{
			msg:     midi.NoteOn(keyChannel, uint8(note), keyVel),
			release: midi.NoteOff(keyChannel, uint8(note)),
		}
	}
	return keyAction{}
}
