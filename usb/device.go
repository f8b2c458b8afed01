package usb

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// State is the device state as seen by the host.
type State uint32

const (
	StateDefault State = iota
	StateAddressed
	StateConfigured
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateDefault:
		return "default"
	case StateAddressed:
		return "addressed"
	case StateConfigured:
		return "configured"
	case StateSuspended:
		return "suspended"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

// EventKind classifies a bus event.
type EventKind uint8

const (
	EventReset EventKind = iota
	EventAddress
	EventConfigure
	EventSuspend
	EventResume
	EventOut        // data received on an OUT endpoint
	EventInComplete // host collected the packet queued on an IN endpoint
)

// Event is one occurrence reported by the bus peripheral.
type Event struct {
	Kind EventKind
	// Value is the address for EventAddress and the configuration value
	// for EventConfigure (0 deconfigures).
	Value uint8
	// Endpoint is the endpoint number, without direction bit.
	Endpoint uint8
	Data     []byte
}

// Bus is the USB peripheral the device runs on.
type Bus interface {
	// Next pops the oldest pending bus event.
	Next() (Event, bool)
	// Write queues data on an IN endpoint. It returns 0 without error while
	// the endpoint still holds a packet the host has not collected.
	Write(ep uint8, data []byte) (int, error)
}

// Class is a class driver attached to the device.
type Class interface {
	// Reset is called on bus reset and deconfiguration.
	Reset()
	// Handle receives endpoint events. It returns true when the event was
	// addressed to one of the class's endpoints.
	Handle(ev Event) bool
}

// Device tracks enumeration state and dispatches endpoint events to
// classes. It is owned by one task; State may be read concurrently.
type Device struct {
	bus    Bus
	desc   *Descriptor
	logger *slog.Logger

	state   atomic.Uint32
	resume  State
	address uint8
}

// NewDevice returns a device in the Default state.
func NewDevice(bus Bus, desc *Descriptor, logger *slog.Logger) *Device {
	return &Device{bus: bus, desc: desc, logger: logger}
}

// Descriptor returns the static descriptor set.
func (d *Device) Descriptor() *Descriptor { return d.desc }

// State returns the current device state.
func (d *Device) State() State { return State(d.state.Load()) }

// Address returns the address assigned by the host.
func (d *Device) Address() uint8 { return d.address }

func (d *Device) setState(s State) {
	if old := d.State(); old != s {
		d.state.Store(uint32(s))
		d.logger.Debug("USB state", "from", old, "to", s)
	}
}

// Poll drains pending bus events, updating the state machine and handing
// endpoint events to classes. It returns true when any class handled an
// event.
func (d *Device) Poll(classes ...Class) bool {
	handled := false
	for {
		ev, ok := d.bus.Next()
		if !ok {
			return handled
		}
		switch ev.Kind {
		case EventReset:
			d.address = 0
			d.setState(StateDefault)
			for _, c := range classes {
				c.Reset()
			}
		case EventAddress:
			d.address = ev.Value
			d.setState(StateAddressed)
		case EventConfigure:
			if ev.Value == 0 {
				d.setState(StateAddressed)
				for _, c := range classes {
					c.Reset()
				}
				continue
			}
			d.setState(StateConfigured)
		case EventSuspend:
			if s := d.State(); s != StateSuspended {
				d.resume = s
				d.setState(StateSuspended)
			}
		case EventResume:
			if d.State() == StateSuspended {
				d.setState(d.resume)
			}
		case EventOut, EventInComplete:
			for _, c := range classes {
				if c.Handle(ev) {
					handled = true
					break
				}
			}
		}
	}
}
