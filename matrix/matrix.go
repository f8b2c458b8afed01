// Package matrix reads the raw electrical state of a switch matrix.
package matrix

import (
	"errors"
	"fmt"
)

// MaxCols is the widest matrix a Snapshot can hold.
const MaxCols = 32

// InputPin is a digital input capability. Reads cannot fail on the
// supported hardware, so the contract has no error outcome.
type InputPin interface {
	IsLow() bool
}

// OutputPin is a digital output capability. Writes cannot fail on the
// supported hardware.
type OutputPin interface {
	SetLow()
	SetHigh()
}

// Matrix scans rows by driving each one low and sampling every column.
// Columns are pulled up, so a pressed switch reads low.
type Matrix struct {
	cols []InputPin
	rows []OutputPin
}

// New builds a Matrix over the given pins and parks every row inactive.
func New(cols []InputPin, rows []OutputPin) (*Matrix, error) {
	if len(cols) == 0 || len(rows) == 0 {
		return nil, errors.New("matrix needs at least one row and one column")
	}
	if len(cols) > MaxCols {
		return nil, fmt.Errorf("matrix supports at most %d columns, got %d", MaxCols, len(cols))
	}
	for _, r := range rows {
		r.SetHigh()
	}
	return &Matrix{cols: cols, rows: rows}, nil
}

// Rows returns the number of row pins.
func (m *Matrix) Rows() int { return len(m.rows) }

// Cols returns the number of column pins.
func (m *Matrix) Cols() int { return len(m.cols) }

// Get performs one full scan and returns a fresh snapshot.
func (m *Matrix) Get() Snapshot {
	s := NewSnapshot(len(m.rows), len(m.cols))
	for i, row := range m.rows {
		row.SetLow()
		for j, col := range m.cols {
			if col.IsLow() {
				s.Set(i, j, true)
			}
		}
		row.SetHigh()
	}
	return s
}
