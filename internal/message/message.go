// Package message encodes and decodes the bulk patch data system exclusive
// frames exchanged with an editor.
//
// A frame is
//
//	F0 7D 01 01 <cmd> 00 <addr> <size> <data...> <checksum> F7
//
// where cmd is DT1 (deliver data) or RQ1 (request data), addr and size
// locate the data inside the patch record and data is present for DT1
// only.
//
// addr and size are raw 8-bit bytes, not 7-bit SysEx data. A full record
// delivery has size 154 (0x9A), which sets the high bit; editors for this
// instrument read both fields as plain bytes.
package message

import (
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/wavesynth-go/internal/patch"
)

const (
	Manufacturer = 0x7D // non-commercial / educational ID
	Device       = 0x01
	Model        = 0x01

	CmdRequest = 0x11 // RQ1
	CmdDeliver = 0x12 // DT1

	headerSize = 8
	// MinLength is the shortest well-formed frame: header, checksum and F7.
	MinLength = headerSize + 2

	sysExStart = 0xF0
	sysExEnd   = 0xF7
)

var (
	ErrNotPatchData = errors.New("message: not a patch data frame")
	ErrShort        = errors.New("message: patch data frame too short")
)

// PatchData is a decoded frame.
type PatchData struct {
	Command byte
	Addr    int
	Size    int
	Data    []byte // aliases the frame; empty for requests
}

// IsPatchData reports whether msg is a system exclusive frame addressed to
// this instrument.
func IsPatchData(msg midi.Message) bool {
	return len(msg) >= 2 && msg[0] == sysExStart && msg[1] == Manufacturer
}

// ParsePatchData decodes a frame. The checksum is not verified. Data is cut
// to Size when the frame carries more.
func ParsePatchData(msg midi.Message) (PatchData, error) {
	if !IsPatchData(msg) {
		return PatchData{}, ErrNotPatchData
	}
	if len(msg) < MinLength {
		return PatchData{}, fmt.Errorf("%w: %d bytes", ErrShort, len(msg))
	}
	pd := PatchData{
		Command: msg[4],
		Addr:    int(msg[6]),
		Size:    int(msg[7]),
	}
	switch pd.Command {
	case CmdDeliver:
		data := msg[headerSize : len(msg)-2]
		if len(data) > pd.Size {
			data = data[:pd.Size]
		}
		pd.Data = data
	case CmdRequest:
	default:
		return PatchData{}, fmt.Errorf("message: unknown patch data command %#02x", pd.Command)
	}
	return pd, nil
}

// EncodePatchData builds a frame. For requests payload is nil and size is
// the number of bytes asked for; for deliveries size is len(payload).
func EncodePatchData(cmd byte, addr, size int, payload []byte) midi.Message {
	if cmd == CmdDeliver {
		size = len(payload)
	}
	msg := make([]byte, 0, MinLength+len(payload))
	msg = append(msg, sysExStart, Manufacturer, Device, Model, cmd, 0x00, byte(addr), byte(size))
	msg = append(msg, payload...)
	msg = append(msg, checksum(msg[6:]), sysExEnd)
	return midi.Message(msg)
}

// Request asks for size bytes of the patch record starting at addr.
func Request(addr, size int) midi.Message {
	return EncodePatchData(CmdRequest, addr, size, nil)
}

// Deliver packs the whole of p into a DT1 frame.
func Deliver(p *patch.Patch) midi.Message {
	var buf [patch.AddrEnd]byte
	n := p.Pack(buf[:])
	return EncodePatchData(CmdDeliver, patch.AddrName, n, buf[:n])
}

// Apply unpacks a DT1 frame into p and returns the number of record bytes
// consumed.
func (pd PatchData) Apply(p *patch.Patch) int {
	if pd.Command != CmdDeliver {
		return 0
	}
	return p.Unpack(pd.Data, pd.Addr, pd.Size)
}

// checksum is the two's complement of the 7-bit sum of address, size and
// data bytes.
func checksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum += c
	}
	return (0x80 - sum&0x7F) & 0x7F
}

// Replier carries frames back to whoever is editing the instrument.
type Replier interface {
	Reply(msg midi.Message)
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(msg midi.Message)

func (f ReplierFunc) Reply(msg midi.Message) { f(msg) }

// Discard drops every reply.
var Discard Replier = ReplierFunc(func(midi.Message) {})
