package keycode

import (
	"fmt"
	"strings"
)

// names maps codes to canonical names. Parse accepts these
// case-insensitively, plus the aliases below.
var names = map[KeyCode]string{
	No: "No",

	A: "A", B: "B", C: "C", D: "D", E: "E", F: "F", G: "G",
	H: "H", I: "I", J: "J", K: "K", L: "L", M: "M", N: "N",
	O: "O", P: "P", Q: "Q", R: "R", S: "S", T: "T", U: "U",
	V: "V", W: "W", X: "X", Y: "Y", Z: "Z",

	Kb1: "Kb1", Kb2: "Kb2", Kb3: "Kb3", Kb4: "Kb4", Kb5: "Kb5",
	Kb6: "Kb6", Kb7: "Kb7", Kb8: "Kb8", Kb9: "Kb9", Kb0: "Kb0",

	Enter:      "Enter",
	Escape:     "Escape",
	Backspace:  "Backspace",
	Tab:        "Tab",
	Space:      "Space",
	Minus:      "Minus",
	Equal:      "Equal",
	LeftBrace:  "LeftBrace",
	RightBrace: "RightBrace",
	Backslash:  "Backslash",
	NonUSHash:  "NonUSHash",
	Semicolon:  "Semicolon",
	Apostrophe: "Apostrophe",
	Grave:      "Grave",
	Comma:      "Comma",
	Period:     "Period",
	Slash:      "Slash",
	CapsLock:   "CapsLock",

	F1: "F1", F2: "F2", F3: "F3", F4: "F4", F5: "F5", F6: "F6",
	F7: "F7", F8: "F8", F9: "F9", F10: "F10", F11: "F11", F12: "F12",
	F13: "F13", F14: "F14", F15: "F15", F16: "F16", F17: "F17", F18: "F18",
	F19: "F19", F20: "F20", F21: "F21", F22: "F22", F23: "F23", F24: "F24",

	PrintScreen: "PrintScreen",
	ScrollLock:  "ScrollLock",
	Pause:       "Pause",
	Insert:      "Insert",
	Home:        "Home",
	PageUp:      "PageUp",
	Delete:      "Delete",
	End:         "End",
	PageDown:    "PageDown",

	Right: "Right",
	Left:  "Left",
	Down:  "Down",
	Up:    "Up",

	NumLock:    "NumLock",
	KpSlash:    "KpSlash",
	KpAsterisk: "KpAsterisk",
	KpMinus:    "KpMinus",
	KpPlus:     "KpPlus",
	KpEnter:    "KpEnter",
	Kp1:        "Kp1",
	Kp2:        "Kp2",
	Kp3:        "Kp3",
	Kp4:        "Kp4",
	Kp5:        "Kp5",
	Kp6:        "Kp6",
	Kp7:        "Kp7",
	Kp8:        "Kp8",
	Kp9:        "Kp9",
	Kp0:        "Kp0",
	KpDot:      "KpDot",

	NonUSBackslash: "NonUSBackslash",
	Application:    "Application",
	Power:          "Power",
	KpEqual:        "KpEqual",

	Execute:    "Execute",
	Help:       "Help",
	Menu:       "Menu",
	Select:     "Select",
	Stop:       "Stop",
	Again:      "Again",
	Undo:       "Undo",
	Cut:        "Cut",
	Copy:       "Copy",
	Paste:      "Paste",
	Find:       "Find",
	Mute:       "Mute",
	VolumeUp:   "VolumeUp",
	VolumeDown: "VolumeDown",

	LCtrl:  "LCtrl",
	LShift: "LShift",
	LAlt:   "LAlt",
	LGui:   "LGui",
	RCtrl:  "RCtrl",
	RShift: "RShift",
	RAlt:   "RAlt",
	RGui:   "RGui",
}

var aliases = map[string]KeyCode{
	"bspace":   Backspace,
	"esc":      Escape,
	"lbracket": LeftBrace,
	"rbracket": RightBrace,
	"bslash":   Backslash,
	"scolon":   Semicolon,
	"quote":    Apostrophe,
	"dot":      Period,
	"pgup":     PageUp,
	"pgdown":   PageDown,
	"pscreen":  PrintScreen,
	"ins":      Insert,
	"del":      Delete,
	"1":        Kb1, "2": Kb2, "3": Kb3, "4": Kb4, "5": Kb5,
	"6": Kb6, "7": Kb7, "8": Kb8, "9": Kb9, "0": Kb0,
}

var byName = func() map[string]KeyCode {
	m := make(map[string]KeyCode, len(names)+len(aliases))
	for k, n := range names {
		m[strings.ToLower(n)] = k
	}
	for n, k := range aliases {
		m[n] = k
	}
	return m
}()

// Name returns the canonical name of k, or its hex value when unnamed.
func (k KeyCode) Name() string {
	if n, ok := names[k]; ok {
		return n
	}
	return fmt.Sprintf("0x%02X", uint8(k))
}

func (k KeyCode) String() string { return k.Name() }

// Parse resolves a key name (case-insensitive, aliases allowed).
func Parse(name string) (KeyCode, error) {
	if k, ok := byName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	return No, fmt.Errorf("unknown key %q", name)
}
