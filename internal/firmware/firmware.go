// Package firmware assembles the control core of one keyboard half: it
// binds the scanner, debouncer, wire codec, layout engine and HID class to
// the task scheduler.
package firmware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Alia5/splitkb/debounce"
	"github.com/Alia5/splitkb/event"
	"github.com/Alia5/splitkb/hid"
	"github.com/Alia5/splitkb/layout"
	"github.com/Alia5/splitkb/matrix"
	"github.com/Alia5/splitkb/sched"
	"github.com/Alia5/splitkb/usb"
	"github.com/Alia5/splitkb/wire"
)

// Task priorities, highest first.
const (
	PrioRx    sched.Priority = 5
	PrioUSB   sched.Priority = 4
	PrioEvent sched.Priority = 3
	PrioTick  sched.Priority = 2
)

const (
	DefaultScanPeriod    = time.Millisecond
	DefaultDebounce      = 5
	DefaultQueueCapacity = 8
	DefaultWriteRetries  = 50000

	statusInterval = 10 * time.Millisecond
)

// Config tunes the core. Zero values select the defaults.
type Config struct {
	ScanPeriod    time.Duration `help:"Matrix scan period" default:"1ms" env:"SPLITKB_SCAN_PERIOD"`
	Debounce      int           `help:"Consecutive scans a switch change must persist" default:"5" env:"SPLITKB_DEBOUNCE"`
	QueueCapacity int           `help:"Capacity of the event queue" default:"8" env:"SPLITKB_QUEUE_CAPACITY"`
	WriteRetries  int           `help:"Attempts to hand a report to a busy endpoint before dropping it" default:"50000" env:"SPLITKB_WRITE_RETRIES"`
}

func (c Config) withDefaults() Config {
	if c.ScanPeriod <= 0 {
		c.ScanPeriod = DefaultScanPeriod
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.WriteRetries <= 0 {
		c.WriteRetries = DefaultWriteRetries
	}
	return c
}

// Serial is the UART joining the halves.
type Serial interface {
	SetIRQ(fn func())
	// Read pops one received byte; ok is false when none is waiting.
	Read() (b byte, ok bool)
	// Send blocks until p is handed to the line.
	Send(p []byte)
}

// Bus is the USB peripheral with its interrupt line.
type Bus interface {
	usb.Bus
	SetIRQ(fn func())
	Descriptor() *usb.Descriptor
}

// Board collects the hardware capabilities of one half.
type Board struct {
	Cols []matrix.InputPin
	Rows []matrix.OutputPin
	// Orientation reads low on the half that is wired flipped.
	Orientation matrix.InputPin
	StatusLED   matrix.OutputPin
	PowerLED    matrix.OutputPin
	Serial      Serial
	USB         Bus
}

// message feeds handle_event: a key event, or the tick marker.
type message struct {
	ev   event.Event
	tick bool
}

type usbState struct {
	dev   *usb.Device
	class *hid.Class
}

// Firmware is one initialized half. Create it with New and start it with
// Run.
type Firmware struct {
	cfg    Config
	logger *slog.Logger
	core   *sched.Core
	side   event.Side

	// owned by tick
	matrix    *matrix.Matrix
	transform event.Transform
	serial    Serial

	// owned by rx
	receiver wire.Receiver

	debouncer *sched.Resource[*debounce.Debouncer]
	keyboard  *sched.Resource[usbState]
	layout    *sched.Resource[*layout.Layout]
	events    *sched.Spawner[message]

	status     atomic.Pointer[Status]
	lastStatus time.Time

	ticks   atomic.Uint64
	frames  atomic.Uint64
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// New runs the init sequence: it reads the orientation pin, selects the
// transform, lights the LEDs and registers every task.
func New(cfg Config, b Board, l *layout.Layout, logger *slog.Logger) (*Firmware, error) {
	cfg = cfg.withDefaults()
	if b.Orientation == nil || b.Serial == nil || b.USB == nil {
		return nil, errors.New("firmware: board needs an orientation pin, a serial port and a USB bus")
	}
	if l == nil {
		return nil, errors.New("firmware: no layout")
	}
	m, err := matrix.New(b.Cols, b.Rows)
	if err != nil {
		return nil, fmt.Errorf("firmware: %w", err)
	}
	if l.Rows() != m.Rows() || l.Cols() != 2*m.Cols() {
		return nil, fmt.Errorf("firmware: layout is %dx%d, two %dx%d halves need %dx%d",
			l.Rows(), l.Cols(), m.Rows(), m.Cols(), m.Rows(), 2*m.Cols())
	}

	side := event.Left
	if b.Orientation.IsLow() {
		side = event.Right
	}
	if b.StatusLED != nil {
		if side == event.Right {
			b.StatusLED.SetHigh()
		} else {
			b.StatusLED.SetLow()
		}
	}
	if b.PowerLED != nil {
		b.PowerLED.SetHigh()
	}

	f := &Firmware{
		cfg:       cfg,
		logger:    logger,
		core:      sched.New(logger),
		side:      side,
		matrix:    m,
		transform: event.ForSide(side, uint8(l.Cols()-1)),
		serial:    b.Serial,
	}

	class := hid.NewClass(b.USB)
	dev := usb.NewDevice(b.USB, b.USB.Descriptor(), logger)

	f.debouncer = sched.NewResource(f.core, "debouncer",
		debounce.New(m.Rows(), m.Cols(), cfg.Debounce), PrioTick, 0)
	f.keyboard = sched.NewResource(f.core, "usb", usbState{dev: dev, class: class}, PrioUSB, PrioEvent, 0)
	f.layout = sched.NewResource(f.core, "layout", l, PrioEvent, 0)

	rxLine := f.core.HardwareTask("rx", PrioRx, f.rx)
	usbLine := f.core.HardwareTask("usb", PrioUSB, f.usbTask)
	f.events = sched.SoftwareTask(f.core, "handle_event", PrioEvent, cfg.QueueCapacity, f.handleEvent)
	tickLine := f.core.HardwareTask("tick", PrioTick, f.tick)
	f.core.Periodic(tickLine, cfg.ScanPeriod)
	f.core.SetIdle(f.idle)
	f.core.OnFault(func(fe *sched.FaultError) {
		f.logger.Error("Core halted", "task", fe.Task, "error", fe.Err)
	})

	b.Serial.SetIRQ(func() { f.core.Interrupt(rxLine) })
	b.USB.SetIRQ(func() { f.core.Interrupt(usbLine) })

	logger.Info("Firmware initialized", "side", side, "rows", m.Rows(), "cols", m.Cols(),
		"scan", cfg.ScanPeriod, "debounce", cfg.Debounce)
	return f, nil
}

// Run dispatches tasks until ctx ends. A fault halts the core and is
// returned as *sched.FaultError.
func (f *Firmware) Run(ctx context.Context) error {
	return f.core.Run(ctx)
}

// Side returns the orientation read at init.
func (f *Firmware) Side() event.Side { return f.side }

// Halted reports whether a fault stopped the core.
func (f *Firmware) Halted() bool { return f.core.Halted() }

// rx drains the UART and forwards every complete frame.
func (f *Firmware) rx(x *sched.Context) {
	for {
		b, ok := f.serial.Read()
		if !ok {
			return
		}
		e, ok := f.receiver.Push(b)
		if !ok {
			continue
		}
		f.frames.Add(1)
		if f.events.Spawn(x, message{ev: e}) != nil {
			return
		}
	}
}

// usbTask services the USB peripheral.
func (f *Firmware) usbTask(x *sched.Context) {
	f.keyboard.Lock(x, func(k *usbState) {
		k.dev.Poll(k.class)
	})
}

// tick scans the matrix, sends confirmed events to the peer and queues
// them, then queues the tick marker.
func (f *Firmware) tick(x *sched.Context) {
	f.ticks.Add(1)
	raw := f.matrix.Get()
	var evs []event.Event
	f.debouncer.Lock(x, func(d **debounce.Debouncer) {
		evs = (*d).Events(raw)
	})
	for _, e := range evs {
		e = f.transform(e)
		frame := wire.Encode(e)
		f.serial.Send(frame[:])
		if f.events.Spawn(x, message{ev: e}) != nil {
			return
		}
	}
	if f.events.Spawn(x, message{tick: true}) != nil {
		return
	}
}

// handleEvent feeds key events to the layout. On the tick marker it ticks
// the layout and publishes the resulting report.
func (f *Firmware) handleEvent(x *sched.Context, m message) {
	if !m.tick {
		f.layout.Lock(x, func(l **layout.Layout) {
			(*l).Event(m.ev)
		})
		return
	}

	var report hid.Report
	f.layout.Lock(x, func(l **layout.Layout) {
		(*l).Tick()
		report = hid.FromKeycodes((*l).Keycodes())
	})
	f.sendReport(x, report)
}

// sendReport writes r when it changed and the device is configured. A busy
// endpoint is retried, yielding between attempts, until the retry budget is
// spent; the report is then dropped.
func (f *Firmware) sendReport(x *sched.Context, r hid.Report) {
	data := r.BuildReport()
	for attempt := 0; attempt < f.cfg.WriteRetries; attempt++ {
		var (
			n    int
			err  error
			skip bool
		)
		f.keyboard.Lock(x, func(k *usbState) {
			if attempt == 0 && (!k.class.SetReport(r) || k.dev.State() != usb.StateConfigured) {
				skip = true
				return
			}
			n, err = k.class.Write(data)
		})
		switch {
		case skip:
			return
		case err != nil:
			f.logger.Debug("Report write failed", "error", err)
			return
		case n > 0:
			f.sent.Add(1)
			return
		}
		x.Yield()
	}
	f.dropped.Add(1)
	f.logger.Debug("Report dropped, endpoint busy", "report", r)
}
