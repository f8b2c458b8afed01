package firmware

import (
	"time"

	"github.com/Alia5/splitkb/debounce"
	"github.com/Alia5/splitkb/event"
	"github.com/Alia5/splitkb/hid"
	"github.com/Alia5/splitkb/layout"
	"github.com/Alia5/splitkb/matrix"
	"github.com/Alia5/splitkb/sched"
	"github.com/Alia5/splitkb/usb"
)

// Status is a snapshot of the core published by the idle task.
type Status struct {
	Side     event.Side
	USB      usb.State
	Address  uint8
	Layers   []int
	Report   hid.Report
	LEDs     hid.LEDState
	Pending  int
	Buffered int
	Matrix   matrix.Snapshot
	Queue    int
	Halted   bool

	Ticks          uint64
	Frames         uint64
	ReportsSent    uint64
	ReportsDropped uint64
	Runs           map[string]uint64
	At             time.Time
}

// Status returns the latest snapshot. Before the first idle pass it only
// carries the side.
func (f *Firmware) Status() Status {
	if st := f.status.Load(); st != nil {
		out := *st
		out.Halted = out.Halted || f.core.Halted()
		return out
	}
	return Status{Side: f.side, Halted: f.core.Halted()}
}

// idle publishes a status snapshot at most every statusInterval.
func (f *Firmware) idle(x *sched.Context) {
	now := time.Now()
	if now.Sub(f.lastStatus) < statusInterval {
		return
	}
	f.lastStatus = now

	st := Status{
		Side:           f.side,
		Queue:          f.events.Len(),
		Halted:         f.core.Halted(),
		Ticks:          f.ticks.Load(),
		Frames:         f.frames.Load(),
		ReportsSent:    f.sent.Load(),
		ReportsDropped: f.dropped.Load(),
		Runs:           f.core.Runs(),
		At:             now,
	}
	f.keyboard.Lock(x, func(k *usbState) {
		st.USB = k.dev.State()
		st.Address = k.dev.Address()
		st.Report = k.class.Report()
		st.LEDs = k.class.LEDs()
	})
	f.layout.Lock(x, func(l **layout.Layout) {
		st.Layers = (*l).ActiveLayers()
		st.Pending = (*l).Pending()
		st.Buffered = (*l).Buffered()
	})
	f.debouncer.Lock(x, func(d **debounce.Debouncer) {
		st.Matrix = (*d).Stable().Clone()
	})
	f.status.Store(&st)
}
