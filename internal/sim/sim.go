// Package sim provides software pins and a switch matrix that stand in for
// GPIO when a half runs on a workstation.
package sim

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Alia5/splitkb/matrix"
)

// Pin is a single digital line usable as input or output.
type Pin struct {
	low atomic.Bool
}

// NewPin returns a pin at the given initial level.
func NewPin(low bool) *Pin {
	p := &Pin{}
	p.low.Store(low)
	return p
}

func (p *Pin) IsLow() bool  { return p.low.Load() }
func (p *Pin) IsHigh() bool { return !p.low.Load() }
func (p *Pin) SetLow()      { p.low.Store(true) }
func (p *Pin) SetHigh()     { p.low.Store(false) }

// Matrix simulates a diode-free switch matrix. A column reads low while any
// driven (low) row has a closed switch on it.
type Matrix struct {
	mu      sync.Mutex
	rows    int
	cols    int
	closed  []bool
	latched []bool
	driven  []bool
}

// NewMatrix returns an open matrix of rows x cols switches.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{
		rows:    rows,
		cols:    cols,
		closed:  make([]bool, rows*cols),
		latched: make([]bool, rows*cols),
		driven:  make([]bool, rows),
	}
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

// RowPins returns the row outputs the scanner drives.
func (m *Matrix) RowPins() []matrix.OutputPin {
	pins := make([]matrix.OutputPin, m.rows)
	for i := range pins {
		pins[i] = rowPin{m: m, row: i}
	}
	return pins
}

// ColPins returns the column inputs the scanner samples.
func (m *Matrix) ColPins() []matrix.InputPin {
	pins := make([]matrix.InputPin, m.cols)
	for i := range pins {
		pins[i] = colPin{m: m, col: i}
	}
	return pins
}

// Press closes the switch at (row, col).
func (m *Matrix) Press(row, col int) error { return m.set(row, col, true) }

// Release opens the switch at (row, col) unless it is latched.
func (m *Matrix) Release(row, col int) error { return m.set(row, col, false) }

// Latch toggles a switch that stays closed until latched again. It returns
// the new state.
func (m *Matrix) Latch(row, col int) (bool, error) {
	if err := m.check(row, col); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := row*m.cols + col
	m.latched[i] = !m.latched[i]
	m.closed[i] = m.latched[i]
	return m.latched[i], nil
}

// Closed reports whether the switch at (row, col) is closed.
func (m *Matrix) Closed(row, col int) bool {
	if m.check(row, col) != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed[row*m.cols+col]
}

// Snapshot returns the switch states as a matrix snapshot.
func (m *Matrix) Snapshot() matrix.Snapshot {
	s := matrix.NewSnapshot(m.rows, m.cols)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.closed {
		if c {
			s.Set(i/m.cols, i%m.cols, true)
		}
	}
	return s
}

func (m *Matrix) set(row, col int, closed bool) error {
	if err := m.check(row, col); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := row*m.cols + col
	if !closed && m.latched[i] {
		return nil
	}
	m.closed[i] = closed
	return nil
}

func (m *Matrix) check(row, col int) error {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		return fmt.Errorf("switch (%d,%d) outside %dx%d matrix", row, col, m.rows, m.cols)
	}
	return nil
}

type rowPin struct {
	m   *Matrix
	row int
}

func (p rowPin) SetLow()  { p.drive(true) }
func (p rowPin) SetHigh() { p.drive(false) }

func (p rowPin) drive(low bool) {
	p.m.mu.Lock()
	p.m.driven[p.row] = low
	p.m.mu.Unlock()
}

type colPin struct {
	m   *Matrix
	col int
}

func (p colPin) IsLow() bool {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	for r, d := range p.m.driven {
		if d && p.m.closed[r*p.m.cols+p.col] {
			return true
		}
	}
	return false
}
