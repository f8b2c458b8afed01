// Package wire implements the 4-byte frame protocol spoken between the two
// keyboard halves: a direction tag ('P' or 'R'), the row, the column and a
// '\n' terminator. There is no acknowledgement, retransmission or escaping.
package wire

import (
	"errors"

	"github.com/Alia5/splitkb/event"
)

// FrameSize is the length of every frame on the link.
const FrameSize = 4

const (
	tagPress   = 'P'
	tagRelease = 'R'
	terminator = '\n'
)

// ErrMalformedFrame is returned for any byte pattern that is not a frame.
var ErrMalformedFrame = errors.New("wire: malformed frame")

// Encode serializes e into one frame.
func Encode(e event.Event) [FrameSize]byte {
	tag := byte(tagPress)
	if e.IsRelease() {
		tag = tagRelease
	}
	return [FrameSize]byte{tag, e.Row, e.Col, terminator}
}

// AppendFrame appends the frame for e to dst.
func AppendFrame(dst []byte, e event.Event) []byte {
	f := Encode(e)
	return append(dst, f[:]...)
}

// Decode parses exactly one frame.
func Decode(b []byte) (event.Event, error) {
	if len(b) != FrameSize || b[3] != terminator {
		return event.Event{}, ErrMalformedFrame
	}
	switch b[0] {
	case tagPress:
		return event.NewPress(b[1], b[2]), nil
	case tagRelease:
		return event.NewRelease(b[1], b[2]), nil
	}
	return event.Event{}, ErrMalformedFrame
}

// Receiver reassembles frames from a byte stream. It holds a single frame
// worth of bytes and resynchronizes after corruption within one frame.
type Receiver struct {
	buf [FrameSize]byte
}

// Push shifts b into the window. When b is the terminator and the window
// holds a valid frame, the decoded event is returned.
func (r *Receiver) Push(b byte) (event.Event, bool) {
	copy(r.buf[:], r.buf[1:])
	r.buf[FrameSize-1] = b
	if b != terminator {
		return event.Event{}, false
	}
	e, err := Decode(r.buf[:])
	if err != nil {
		return event.Event{}, false
	}
	return e, true
}

// Feed pushes every byte of p and returns the decoded events in order.
func (r *Receiver) Feed(p []byte) []event.Event {
	var out []event.Event
	for _, b := range p {
		if e, ok := r.Push(b); ok {
			out = append(out, e)
		}
	}
	return out
}
