// Package event defines key events and the coordinate transform applied to
// events generated by the local keyboard half.
package event

import "fmt"

// Kind discriminates a Press from a Release.
type Kind uint8

const (
	Press Kind = iota
	Release
)

func (k Kind) String() string {
	switch k {
	case Press:
		return "press"
	case Release:
		return "release"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Coord is a (row, column) matrix coordinate, physical or logical.
type Coord struct {
	Row uint8
	Col uint8
}

// Event is a debounced key transition at one coordinate.
type Event struct {
	Kind Kind
	Coord
}

// NewPress returns a Press event at (row, col).
func NewPress(row, col uint8) Event {
	return Event{Kind: Press, Coord: Coord{Row: row, Col: col}}
}

// NewRelease returns a Release event at (row, col).
func NewRelease(row, col uint8) Event {
	return Event{Kind: Release, Coord: Coord{Row: row, Col: col}}
}

// IsPress reports whether e is a Press.
func (e Event) IsPress() bool { return e.Kind == Press }

// IsRelease reports whether e is a Release.
func (e Event) IsRelease() bool { return e.Kind == Release }

// Map returns e with its coordinate passed through fn.
func (e Event) Map(fn func(row, col uint8) (uint8, uint8)) Event {
	e.Row, e.Col = fn(e.Row, e.Col)
	return e
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%d,%d)", e.Kind, e.Row, e.Col)
}
