package matrix

import "strings"

// Snapshot is a rows x cols bitset of pressed switches, one word per row.
type Snapshot struct {
	cols int
	rows []uint32
}

// NewSnapshot returns an all-released snapshot.
func NewSnapshot(rows, cols int) Snapshot {
	return Snapshot{cols: cols, rows: make([]uint32, rows)}
}

// Rows returns the row count.
func (s Snapshot) Rows() int { return len(s.rows) }

// Cols returns the column count.
func (s Snapshot) Cols() int { return s.cols }

// Pressed reports whether the switch at (row, col) is closed.
func (s Snapshot) Pressed(row, col int) bool {
	return s.rows[row]&(1<<uint(col)) != 0
}

// Clone returns an independent copy.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{cols: s.cols, rows: append([]uint32(nil), s.rows...)}
}

// Set records the state of the switch at (row, col).
func (s Snapshot) Set(row, col int, pressed bool) {
	if pressed {
		s.rows[row] |= 1 << uint(col)
	} else {
		s.rows[row] &^= 1 << uint(col)
	}
}

// Equal reports whether both snapshots have the same shape and bits.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.cols != o.cols || len(s.rows) != len(o.rows) {
		return false
	}
	for i := range s.rows {
		if s.rows[i] != o.rows[i] {
			return false
		}
	}
	return true
}

// String renders the snapshot as rows of '#' (pressed) and '.'.
func (s Snapshot) String() string {
	var b strings.Builder
	for i := range s.rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j := 0; j < s.cols; j++ {
			if s.Pressed(i, j) {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
	}
	return b.String()
}
