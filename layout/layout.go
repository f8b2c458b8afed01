// Package layout resolves key events through a stack of layers into the set
// of keycodes currently held down.
//
// A Layout is driven by Event for every debounced transition and by Tick
// once per scan period. Hold-tap actions stay pending until their timeout
// expires, the key is released, or (with HoldOnOtherKeyPress) another key
// is pressed. Events arriving while a hold-tap is pending are buffered and
// replayed once it resolves.
package layout

import (
	"fmt"
	"slices"

	"github.com/Alia5/splitkb/event"
	"github.com/Alia5/splitkb/keycode"
)

// BufferSize bounds the events held back while a hold-tap is pending. The
// oldest event is dropped on overflow.
const BufferSize = 16

// Layers is indexed as [layer][row][col]. A nil action is treated as Trans.
type Layers [][][]Action

type state struct {
	coord     event.Coord
	codes     []keycode.KeyCode
	layer     int
	momentary bool
	reported  bool
}

type waiting struct {
	coord     event.Coord
	remaining uint16
	config    HoldTapConfig
	hold, tap Action
}

// Layout is the layer/hold-tap state machine. It is not safe for
// concurrent use.
type Layout struct {
	layers     Layers
	rows, cols int

	states  []state
	waiting *waiting
	buffer  []event.Event
}

// New validates layers and returns an idle Layout.
func New(layers Layers) (*Layout, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("layout: no layers")
	}
	rows := len(layers[0])
	if rows == 0 {
		return nil, fmt.Errorf("layout: layer 0 has no rows")
	}
	cols := len(layers[0][0])
	if cols == 0 {
		return nil, fmt.Errorf("layout: layer 0 has no columns")
	}
	for li, layer := range layers {
		if len(layer) != rows {
			return nil, fmt.Errorf("layout: layer %d has %d rows, want %d", li, len(layer), rows)
		}
		for r, row := range layer {
			if len(row) != cols {
				return nil, fmt.Errorf("layout: layer %d row %d has %d columns, want %d", li, r, len(row), cols)
			}
			for c, a := range row {
				if err := validate(a, len(layers), false); err != nil {
					return nil, fmt.Errorf("layout: layer %d (%d,%d): %w", li, r, c, err)
				}
			}
		}
	}
	return &Layout{layers: layers, rows: rows, cols: cols}, nil
}

func validate(a Action, nlayers int, nested bool) error {
	switch a := a.(type) {
	case nil, Trans, Key, Macro:
		return nil
	case Layer:
		if a.Index < 0 || a.Index >= nlayers {
			return fmt.Errorf("layer %d out of range [0,%d)", a.Index, nlayers)
		}
		return nil
	case HoldTap:
		if nested {
			return fmt.Errorf("nested hold-tap")
		}
		if err := validate(a.Hold, nlayers, true); err != nil {
			return fmt.Errorf("hold: %w", err)
		}
		if err := validate(a.Tap, nlayers, true); err != nil {
			return fmt.Errorf("tap: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported action %T", a)
	}
}

// Rows returns the number of rows of every layer.
func (l *Layout) Rows() int { return l.rows }

// Cols returns the number of columns of every layer.
func (l *Layout) Cols() int { return l.cols }

// Event feeds one debounced transition. Coordinates outside the table are
// ignored.
func (l *Layout) Event(e event.Event) {
	if int(e.Row) >= l.rows || int(e.Col) >= l.cols {
		return
	}
	if w := l.waiting; w != nil {
		switch {
		case e.IsRelease() && e.Coord == w.coord:
			l.resolve(false)
			return
		case e.IsPress() && w.config == HoldOnOtherKeyPress:
			l.resolve(true)
			l.Event(e)
			return
		}
		if len(l.buffer) == BufferSize {
			l.buffer = l.buffer[1:]
		}
		l.buffer = append(l.buffer, e)
		return
	}

	if e.IsRelease() {
		l.states = slices.DeleteFunc(l.states, func(s state) bool {
			return s.coord == e.Coord && !s.momentary
		})
		return
	}
	l.apply(e.Coord, l.lookup(e.Coord), false)
}

// Tick advances time by one scan period: momentary taps reported on the
// previous tick are cleared, and pending hold-taps count down and resolve
// as hold when they expire.
func (l *Layout) Tick() {
	l.states = slices.DeleteFunc(l.states, func(s state) bool {
		return s.momentary && s.reported
	})
	if w := l.waiting; w != nil {
		w.remaining--
		if w.remaining == 0 {
			l.resolve(true)
		}
	}
	for i := range l.states {
		if l.states[i].momentary {
			l.states[i].reported = true
		}
	}
}

// resolve settles the pending hold-tap and replays buffered events.
func (l *Layout) resolve(hold bool) {
	w := l.waiting
	l.waiting = nil
	if hold {
		l.apply(w.coord, w.hold, false)
	} else {
		l.apply(w.coord, w.tap, true)
	}
	pending := l.buffer
	l.buffer = nil
	for _, e := range pending {
		l.Event(e)
	}
}

func (l *Layout) apply(c event.Coord, a Action, momentary bool) {
	switch a := a.(type) {
	case Key:
		if a.Code != keycode.No {
			l.states = append(l.states, state{coord: c, codes: []keycode.KeyCode{a.Code}, layer: -1, momentary: momentary})
		}
	case Macro:
		l.states = append(l.states, state{coord: c, codes: a.Codes, layer: -1, momentary: momentary})
	case Layer:
		l.states = append(l.states, state{coord: c, layer: a.Index, momentary: momentary})
	case HoldTap:
		timeout := a.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		l.waiting = &waiting{coord: c, remaining: timeout, config: a.Config, hold: a.Hold, tap: a.Tap}
	}
}

// lookup returns the first non-transparent action for c from the topmost
// active layer down to layer 0.
func (l *Layout) lookup(c event.Coord) Action {
	active := l.ActiveLayers()
	for i := len(active) - 1; i >= 0; i-- {
		switch a := l.layers[active[i]][c.Row][c.Col].(type) {
		case nil, Trans:
		default:
			return a
		}
	}
	return nil
}

// ActiveLayers returns the layer stack bottom-up. Layer 0 is always first.
func (l *Layout) ActiveLayers() []int {
	active := []int{0}
	for _, s := range l.states {
		if s.layer >= 0 {
			active = append(active, s.layer)
		}
	}
	return active
}

// Keycodes returns the deduplicated keycodes currently held, in the order
// their keys became active.
func (l *Layout) Keycodes() []keycode.KeyCode {
	var out []keycode.KeyCode
	for _, s := range l.states {
		for _, k := range s.codes {
			if !slices.Contains(out, k) {
				out = append(out, k)
			}
		}
	}
	return out
}

// Modifiers returns the report modifier mask of the held keycodes.
func (l *Layout) Modifiers() uint8 {
	var mask uint8
	for _, k := range l.Keycodes() {
		mask |= k.ModifierBit()
	}
	return mask
}

// Pending returns the number of unresolved hold-taps.
func (l *Layout) Pending() int {
	if l.waiting != nil {
		return 1
	}
	return 0
}

// Buffered returns the number of events held back by a pending hold-tap.
func (l *Layout) Buffered() int { return len(l.buffer) }
