// Package debounce turns raw matrix scans into stable press/release events.
package debounce

import (
	"fmt"

	"github.com/Alia5/splitkb/event"
	"github.com/Alia5/splitkb/matrix"
)

// DefaultThreshold is the number of consecutive agreeing scans required
// before a state change is reported.
const DefaultThreshold = 5

// Debouncer keeps, per coordinate, the last reported stable state and the
// number of consecutive scans that disagreed with it.
type Debouncer struct {
	threshold int
	stable    matrix.Snapshot
	count     [][]uint16
}

// New returns a Debouncer for a rows x cols matrix. All switches start
// released.
func New(rows, cols, threshold int) *Debouncer {
	if threshold < 1 {
		threshold = 1
	}
	count := make([][]uint16, rows)
	for i := range count {
		count[i] = make([]uint16, cols)
	}
	return &Debouncer{
		threshold: threshold,
		stable:    matrix.NewSnapshot(rows, cols),
		count:     count,
	}
}

// Threshold returns the configured stability window in scans.
func (d *Debouncer) Threshold() int { return d.threshold }

// Stable returns the last reported stable state.
func (d *Debouncer) Stable() matrix.Snapshot { return d.stable }

// Events feeds one scan and returns the confirmed transitions in row-major
// order. A coordinate emits at most one event per call.
func (d *Debouncer) Events(raw matrix.Snapshot) []event.Event {
	if raw.Rows() != d.stable.Rows() || raw.Cols() != d.stable.Cols() {
		panic(fmt.Sprintf("debounce: snapshot is %dx%d, want %dx%d",
			raw.Rows(), raw.Cols(), d.stable.Rows(), d.stable.Cols()))
	}
	var out []event.Event
	for i := 0; i < raw.Rows(); i++ {
		for j := 0; j < raw.Cols(); j++ {
			pressed := raw.Pressed(i, j)
			if pressed == d.stable.Pressed(i, j) {
				d.count[i][j] = 0
				continue
			}
			d.count[i][j]++
			if int(d.count[i][j]) < d.threshold {
				continue
			}
			d.count[i][j] = 0
			d.stable.Set(i, j, pressed)
			if pressed {
				out = append(out, event.NewPress(uint8(i), uint8(j)))
			} else {
				out = append(out, event.NewRelease(uint8(i), uint8(j)))
			}
		}
	}
	return out
}
