package event

import "fmt"

// Side identifies which physical half this unit is.
type Side uint8

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// ParseSide parses "left" or "right".
func ParseSide(s string) (Side, error) {
	switch s {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return Left, fmt.Errorf("unknown side %q", s)
}

// Transform maps a locally generated event into the logical coordinate space
// shared by both halves. It is selected once at boot and never changes.
type Transform func(Event) Event

// Identity leaves events untouched.
func Identity(e Event) Event { return e }

// Mirror returns a transform mapping col to maxCol-col. Applying it twice
// yields the original column for every col in [0, maxCol].
func Mirror(maxCol uint8) Transform {
	return func(e Event) Event {
		return e.Map(func(row, col uint8) (uint8, uint8) {
			return row, maxCol - col
		})
	}
}

// ForSide selects the transform for a half. The right half is wired
// flipped, so its columns are mirrored onto the upper part of the logical
// matrix.
func ForSide(side Side, maxCol uint8) Transform {
	if side == Right {
		return Mirror(maxCol)
	}
	return Identity
}
