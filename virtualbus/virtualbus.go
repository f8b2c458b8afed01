// Package virtualbus emulates the USB peripheral of one keyboard half. The
// firmware sees it as a usb.Bus; the USB/IP server drives its host side.
package virtualbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Alia5/splitkb/usb"
	"github.com/Alia5/splitkb/usbip"
)

const basepath = "/sys/devices/pci0000:00/0000:00:08.1/0000:00:04:00.3/usb"

var (
	allocatedBusIds = make(map[uint32]bool)
	globalMutex     sync.Mutex
)

// ErrAttached is returned when a second host tries to import the device.
var ErrAttached = errors.New("virtualbus: device already attached")

// VirtualBus carries exactly one exported device.
type VirtualBus struct {
	mutex  sync.Mutex
	busId  uint32
	meta   usbip.ExportMeta
	desc   *usb.Descriptor
	irq    func()
	events []usb.Event

	in      map[uint8][]byte // packets waiting for the host, per IN endpoint
	last    map[uint8][]byte // last packet the host collected
	inReady chan struct{}

	config uint8
	cancel context.CancelFunc
}

// New allocates bus number busID (0 picks the lowest free one) and exports
// a device with desc on it.
func New(busID uint32, desc *usb.Descriptor) (*VirtualBus, error) {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	if busID == 0 {
		for busID = 1; allocatedBusIds[busID]; busID++ {
		}
	}
	if allocatedBusIds[busID] {
		return nil, fmt.Errorf("bus number %d already allocated", busID)
	}
	allocatedBusIds[busID] = true

	return &VirtualBus{
		busId:   busID,
		meta:    usbip.NewExportMeta(basepath, busID, 1),
		desc:    desc,
		in:      make(map[uint8][]byte),
		last:    make(map[uint8][]byte),
		inReady: make(chan struct{}, 1),
	}, nil
}

// SetIRQ installs the function called after every posted bus event.
func (vb *VirtualBus) SetIRQ(fn func()) {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	vb.irq = fn
}

// BusID returns the bus number.
func (vb *VirtualBus) BusID() uint32 { return vb.busId }

// Meta returns the USB/IP export identity of the device.
func (vb *VirtualBus) Meta() usbip.ExportMeta { return vb.meta }

// Descriptor returns the exported device's descriptors.
func (vb *VirtualBus) Descriptor() *usb.Descriptor { return vb.desc }

// Close frees the bus number.
func (vb *VirtualBus) Close() error {
	vb.Detach()
	globalMutex.Lock()
	defer globalMutex.Unlock()
	delete(allocatedBusIds, vb.busId)
	return nil
}

func (vb *VirtualBus) post(evs ...usb.Event) {
	vb.mutex.Lock()
	vb.events = append(vb.events, evs...)
	irq := vb.irq
	vb.mutex.Unlock()
	if irq != nil {
		irq()
	}
}

// Next implements usb.Bus.
func (vb *VirtualBus) Next() (usb.Event, bool) {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	if len(vb.events) == 0 {
		return usb.Event{}, false
	}
	ev := vb.events[0]
	vb.events = vb.events[1:]
	return ev, true
}

// Write implements usb.Bus. The endpoint holds one packet; it is busy
// until the host collects it.
func (vb *VirtualBus) Write(ep uint8, data []byte) (int, error) {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	if _, busy := vb.in[ep]; busy {
		return 0, nil
	}
	vb.in[ep] = append([]byte(nil), data...)
	select {
	case vb.inReady <- struct{}{}:
	default:
	}
	return len(data), nil
}

// Attach connects a host. The returned context ends on Detach.
func (vb *VirtualBus) Attach() (context.Context, error) {
	vb.mutex.Lock()
	if vb.cancel != nil {
		vb.mutex.Unlock()
		return nil, ErrAttached
	}
	ctx, cancel := context.WithCancel(context.Background())
	vb.cancel = cancel
	vb.config = 0
	clear(vb.in)
	clear(vb.last)
	vb.mutex.Unlock()

	vb.post(
		usb.Event{Kind: usb.EventReset},
		usb.Event{Kind: usb.EventAddress, Value: uint8(vb.meta.DevId)},
	)
	return ctx, nil
}

// Detach disconnects the host, which looks like a bus reset to the device.
func (vb *VirtualBus) Detach() {
	vb.mutex.Lock()
	cancel := vb.cancel
	vb.cancel = nil
	vb.config = 0
	clear(vb.in)
	vb.mutex.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	vb.post(usb.Event{Kind: usb.EventReset})
}

// Attached reports whether a host is connected.
func (vb *VirtualBus) Attached() bool {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	return vb.cancel != nil
}

// Configure applies SET_CONFIGURATION from the host.
func (vb *VirtualBus) Configure(value uint8) {
	vb.mutex.Lock()
	vb.config = value
	vb.mutex.Unlock()
	vb.post(usb.Event{Kind: usb.EventConfigure, Value: value})
}

// Configuration returns the value for GET_CONFIGURATION.
func (vb *VirtualBus) Configuration() uint8 {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	return vb.config
}

// Suspend signals bus suspend.
func (vb *VirtualBus) Suspend() { vb.post(usb.Event{Kind: usb.EventSuspend}) }

// Resume signals bus resume.
func (vb *VirtualBus) Resume() { vb.post(usb.Event{Kind: usb.EventResume}) }

// Out delivers host data for an OUT endpoint.
func (vb *VirtualBus) Out(ep uint8, data []byte) {
	vb.post(usb.Event{Kind: usb.EventOut, Endpoint: ep, Data: append([]byte(nil), data...)})
}

// TakeIn serves an IN transfer. It waits up to wait for a queued packet and
// falls back to repeating the last collected one, since the device has
// nothing new to say.
func (vb *VirtualBus) TakeIn(ctx context.Context, ep uint8, wait time.Duration) []byte {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		vb.mutex.Lock()
		data, ok := vb.in[ep]
		if ok {
			delete(vb.in, ep)
			vb.last[ep] = data
		}
		last := vb.last[ep]
		vb.mutex.Unlock()

		if ok {
			vb.post(usb.Event{Kind: usb.EventInComplete, Endpoint: ep})
			return data
		}
		select {
		case <-vb.inReady:
		case <-timer.C:
			return last
		case <-ctx.Done():
			return last
		}
	}
}
