// Package keycode lists USB HID keyboard usage codes (Keyboard/Keypad page).
package keycode

// KeyCode is a HID keyboard usage code.
type KeyCode uint8

// Modifier key bitmasks as they appear in the report modifier byte.
const (
	ModLeftCtrl   = 0x01
	ModLeftShift  = 0x02
	ModLeftAlt    = 0x04
	ModLeftGUI    = 0x08 // Windows/Command key
	ModRightCtrl  = 0x10
	ModRightShift = 0x20
	ModRightAlt   = 0x40
	ModRightGUI   = 0x80
)

// LED bitmasks of the host output report.
const (
	LEDNumLock    = 0x01
	LEDCapsLock   = 0x02
	LEDScrollLock = 0x04
	LEDCompose    = 0x08
	LEDKana       = 0x10
)

const (
	No             KeyCode = 0x00
	ErrorRollOver  KeyCode = 0x01
	PostFail       KeyCode = 0x02
	ErrorUndefined KeyCode = 0x03

	// Letters A-Z
	A KeyCode = 0x04
	B KeyCode = 0x05
	C KeyCode = 0x06
	D KeyCode = 0x07
	E KeyCode = 0x08
	F KeyCode = 0x09
	G KeyCode = 0x0A
	H KeyCode = 0x0B
	I KeyCode = 0x0C
	J KeyCode = 0x0D
	K KeyCode = 0x0E
	L KeyCode = 0x0F
	M KeyCode = 0x10
	N KeyCode = 0x11
	O KeyCode = 0x12
	P KeyCode = 0x13
	Q KeyCode = 0x14
	R KeyCode = 0x15
	S KeyCode = 0x16
	T KeyCode = 0x17
	U KeyCode = 0x18
	V KeyCode = 0x19
	W KeyCode = 0x1A
	X KeyCode = 0x1B
	Y KeyCode = 0x1C
	Z KeyCode = 0x1D

	// Numbers 1-0 (top row)
	Kb1 KeyCode = 0x1E
	Kb2 KeyCode = 0x1F
	Kb3 KeyCode = 0x20
	Kb4 KeyCode = 0x21
	Kb5 KeyCode = 0x22
	Kb6 KeyCode = 0x23
	Kb7 KeyCode = 0x24
	Kb8 KeyCode = 0x25
	Kb9 KeyCode = 0x26
	Kb0 KeyCode = 0x27

	Enter      KeyCode = 0x28
	Escape     KeyCode = 0x29
	Backspace  KeyCode = 0x2A
	Tab        KeyCode = 0x2B
	Space      KeyCode = 0x2C
	Minus      KeyCode = 0x2D // - and _
	Equal      KeyCode = 0x2E // = and +
	LeftBrace  KeyCode = 0x2F // [ and {
	RightBrace KeyCode = 0x30 // ] and }
	Backslash  KeyCode = 0x31 // \ and |
	NonUSHash  KeyCode = 0x32 // Non-US # and ~
	Semicolon  KeyCode = 0x33 // ; and :
	Apostrophe KeyCode = 0x34 // ' and "
	Grave      KeyCode = 0x35 // ` and ~
	Comma      KeyCode = 0x36 // , and <
	Period     KeyCode = 0x37 // . and >
	Slash      KeyCode = 0x38 // / and ?
	CapsLock   KeyCode = 0x39

	F1  KeyCode = 0x3A
	F2  KeyCode = 0x3B
	F3  KeyCode = 0x3C
	F4  KeyCode = 0x3D
	F5  KeyCode = 0x3E
	F6  KeyCode = 0x3F
	F7  KeyCode = 0x40
	F8  KeyCode = 0x41
	F9  KeyCode = 0x42
	F10 KeyCode = 0x43
	F11 KeyCode = 0x44
	F12 KeyCode = 0x45

	PrintScreen KeyCode = 0x46
	ScrollLock  KeyCode = 0x47
	Pause       KeyCode = 0x48
	Insert      KeyCode = 0x49
	Home        KeyCode = 0x4A
	PageUp      KeyCode = 0x4B
	Delete      KeyCode = 0x4C
	End         KeyCode = 0x4D
	PageDown    KeyCode = 0x4E

	Right KeyCode = 0x4F
	Left  KeyCode = 0x50
	Down  KeyCode = 0x51
	Up    KeyCode = 0x52

	NumLock    KeyCode = 0x53
	KpSlash    KeyCode = 0x54
	KpAsterisk KeyCode = 0x55
	KpMinus    KeyCode = 0x56
	KpPlus     KeyCode = 0x57
	KpEnter    KeyCode = 0x58
	Kp1        KeyCode = 0x59
	Kp2        KeyCode = 0x5A
	Kp3        KeyCode = 0x5B
	Kp4        KeyCode = 0x5C
	Kp5        KeyCode = 0x5D
	Kp6        KeyCode = 0x5E
	Kp7        KeyCode = 0x5F
	Kp8        KeyCode = 0x60
	Kp9        KeyCode = 0x61
	Kp0        KeyCode = 0x62
	KpDot      KeyCode = 0x63

	NonUSBackslash KeyCode = 0x64
	Application    KeyCode = 0x65 // Windows Menu key
	Power          KeyCode = 0x66
	KpEqual        KeyCode = 0x67

	F13 KeyCode = 0x68
	F14 KeyCode = 0x69
	F15 KeyCode = 0x6A
	F16 KeyCode = 0x6B
	F17 KeyCode = 0x6C
	F18 KeyCode = 0x6D
	F19 KeyCode = 0x6E
	F20 KeyCode = 0x6F
	F21 KeyCode = 0x70
	F22 KeyCode = 0x71
	F23 KeyCode = 0x72
	F24 KeyCode = 0x73

	Execute    KeyCode = 0x74
	Help       KeyCode = 0x75
	Menu       KeyCode = 0x76
	Select     KeyCode = 0x77
	Stop       KeyCode = 0x78
	Again      KeyCode = 0x79
	Undo       KeyCode = 0x7A
	Cut        KeyCode = 0x7B
	Copy       KeyCode = 0x7C
	Paste      KeyCode = 0x7D
	Find       KeyCode = 0x7E
	Mute       KeyCode = 0x7F
	VolumeUp   KeyCode = 0x80
	VolumeDown KeyCode = 0x81

	// Modifiers
	LCtrl  KeyCode = 0xE0
	LShift KeyCode = 0xE1
	LAlt   KeyCode = 0xE2
	LGui   KeyCode = 0xE3
	RCtrl  KeyCode = 0xE4
	RShift KeyCode = 0xE5
	RAlt   KeyCode = 0xE6
	RGui   KeyCode = 0xE7
)

// IsModifier reports whether k is one of LCtrl..RGui.
func (k KeyCode) IsModifier() bool {
	return k >= LCtrl && k <= RGui
}

// ModifierBit returns the report modifier bit for k, or 0 when k is not a
// modifier.
func (k KeyCode) ModifierBit() uint8 {
	if !k.IsModifier() {
		return 0
	}
	return 1 << (k - LCtrl)
}
