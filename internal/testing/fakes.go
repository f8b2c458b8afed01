package testing

import (
	"fmt"
	"sync"
)

// SwitchCall records one call on FakeSwitches.
type SwitchCall struct {
	Op       string
	Row, Col int
}

// FakeSwitches records presses and releases on a rows x cols matrix.
type FakeSwitches struct {
	Rows, Cols int

	mu    sync.Mutex
	calls []SwitchCall
}

func (f *FakeSwitches) Press(row, col int) error   { return f.record("press", row, col) }
func (f *FakeSwitches) Release(row, col int) error { return f.record("release", row, col) }

func (f *FakeSwitches) record(op string, row, col int) error {
	if row < 0 || row >= f.Rows || col < 0 || col >= f.Cols {
		return fmt.Errorf("switch (%d,%d) outside %dx%d matrix", row, col, f.Rows, f.Cols)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, SwitchCall{Op: op, Row: row, Col: col})
	return nil
}

// Calls returns the recorded calls in order.
func (f *FakeSwitches) Calls() []SwitchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SwitchCall(nil), f.calls...)
}

// FakeBus records suspend and resume signals.
type FakeBus struct {
	Host bool

	mu     sync.Mutex
	events []string
}

func (b *FakeBus) Attached() bool { return b.Host }

func (b *FakeBus) Suspend() { b.add("suspend") }
func (b *FakeBus) Resume()  { b.add("resume") }

func (b *FakeBus) add(ev string) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

// Events returns the recorded signals in order.
func (b *FakeBus) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}
