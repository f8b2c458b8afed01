// Package hid builds USB HID boot keyboard reports and implements the
// keyboard class driver that hands them to the bus.
package hid

import (
	"fmt"
	"io"

	"github.com/Alia5/splitkb/keycode"
)

// ReportSize is the length of a boot keyboard input report.
const ReportSize = 8

// MaxKeys is the number of keycode slots in a boot report.
const MaxKeys = 6

// Report is a boot keyboard input report.
//
// Report layout (8 bytes):
//
//	Byte 0: Modifiers (LCtrl, LShift, LAlt, LGui, RCtrl, RShift, RAlt, RGui)
//	Byte 1: Reserved (0x00)
//	Bytes 2-7: Keycode slots, unused slots are 0
type Report struct {
	Modifiers uint8
	Keys      [MaxKeys]keycode.KeyCode
}

// FromKeycodes packs codes into a report. Modifier codes set their mask bit,
// No and duplicates are skipped, and codes beyond the sixth slot are
// dropped.
func FromKeycodes(codes []keycode.KeyCode) Report {
	var r Report
	n := 0
	for _, k := range codes {
		switch {
		case k == keycode.No:
		case k.IsModifier():
			r.Modifiers |= k.ModifierBit()
		case r.has(k):
		case n < MaxKeys:
			r.Keys[n] = k
			n++
		}
	}
	return r
}

func (r Report) has(k keycode.KeyCode) bool {
	for _, c := range r.Keys {
		if c == k {
			return true
		}
	}
	return false
}

// Pressed returns the occupied keycode slots.
func (r Report) Pressed() []keycode.KeyCode {
	var out []keycode.KeyCode
	for _, k := range r.Keys {
		if k != keycode.No {
			out = append(out, k)
		}
	}
	return out
}

// BuildReport encodes the report into its 8-byte wire form.
func (r Report) BuildReport() []byte {
	b := make([]byte, ReportSize)
	b[0] = r.Modifiers
	for i, k := range r.Keys {
		b[2+i] = uint8(k)
	}
	return b
}

// UnmarshalBinary decodes an 8-byte boot report.
func (r *Report) UnmarshalBinary(data []byte) error {
	if len(data) < ReportSize {
		return io.ErrUnexpectedEOF
	}
	r.Modifiers = data[0]
	for i := range r.Keys {
		r.Keys[i] = keycode.KeyCode(data[2+i])
	}
	return nil
}

func (r Report) String() string {
	return fmt.Sprintf("mods=%02x keys=%v", r.Modifiers, r.Pressed())
}

// LEDState represents the keyboard LEDs controlled by the host.
type LEDState struct {
	NumLock    bool
	CapsLock   bool
	ScrollLock bool
	Compose    bool
	Kana       bool
}

// UnmarshalBinary decodes a 1-byte LED bitmask into LEDState.
func (st *LEDState) UnmarshalBinary(data []byte) error {
	if len(data) < 1 {
		return io.ErrUnexpectedEOF
	}
	b := data[0]
	st.NumLock = b&keycode.LEDNumLock != 0
	st.CapsLock = b&keycode.LEDCapsLock != 0
	st.ScrollLock = b&keycode.LEDScrollLock != 0
	st.Compose = b&keycode.LEDCompose != 0
	st.Kana = b&keycode.LEDKana != 0
	return nil
}
