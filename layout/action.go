package layout

import (
	"fmt"
	"strings"

	"github.com/Alia5/splitkb/keycode"
)

// DefaultTimeout is the hold-tap timeout, in ticks, used when an action
// leaves it at zero.
const DefaultTimeout uint16 = 200

// Action is what a coordinate does on a given layer.
type Action interface {
	fmt.Stringer
	action()
}

// Trans falls through to the next active layer below.
type Trans struct{}

// Key emits one keycode while held.
type Key struct {
	Code keycode.KeyCode
}

// Layer activates a layer while held.
type Layer struct {
	Index int
}

// Macro emits every listed keycode while held.
type Macro struct {
	Codes []keycode.KeyCode
}

// HoldTapConfig selects how a pending hold-tap is interpreted.
type HoldTapConfig uint8

const (
	// Default resolves to hold only on timeout; other events wait.
	Default HoldTapConfig = iota
	// HoldOnOtherKeyPress resolves to hold as soon as another key is
	// pressed.
	HoldOnOtherKeyPress
)

func (c HoldTapConfig) String() string {
	switch c {
	case Default:
		return "default"
	case HoldOnOtherKeyPress:
		return "hold_on_other_key_press"
	default:
		return fmt.Sprintf("config(%d)", uint8(c))
	}
}

// ParseHoldTapConfig parses the names produced by HoldTapConfig.String.
func ParseHoldTapConfig(s string) (HoldTapConfig, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return Default, nil
	case "hold_on_other_key_press", "hold-on-other-key-press":
		return HoldOnOtherKeyPress, nil
	}
	return Default, fmt.Errorf("unknown hold-tap config %q", s)
}

// HoldTap acts as Hold when held past Timeout ticks and as Tap when released
// earlier.
type HoldTap struct {
	Timeout uint16
	Config  HoldTapConfig
	Hold    Action
	Tap     Action
}

func (Trans) action()   {}
func (Key) action()     {}
func (Layer) action()   {}
func (Macro) action()   {}
func (HoldTap) action() {}

func (Trans) String() string   { return "trans" }
func (k Key) String() string   { return "k(" + k.Code.Name() + ")" }
func (l Layer) String() string { return fmt.Sprintf("l(%d)", l.Index) }

func (m Macro) String() string {
	names := make([]string, len(m.Codes))
	for i, c := range m.Codes {
		names[i] = c.Name()
	}
	return "m(" + strings.Join(names, ",") + ")"
}

func (h HoldTap) String() string {
	return fmt.Sprintf("ht(%d,%s,%s,%s)", h.Timeout, h.Config, h.Hold, h.Tap)
}

// K is shorthand for Key{code}.
func K(code keycode.KeyCode) Action { return Key{Code: code} }

// L is shorthand for Layer{index}.
func L(index int) Action { return Layer{Index: index} }

// M is shorthand for Macro{codes}.
func M(codes ...keycode.KeyCode) Action { return Macro{Codes: codes} }

// T is the transparent action.
var T Action = Trans{}
