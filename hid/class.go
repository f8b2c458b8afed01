package hid

import (
	"sync/atomic"

	"github.com/Alia5/splitkb/usb"
)

// Endpoint numbers used by the keyboard interface.
const (
	EndpointIn  = 1 // 0x81, input reports
	EndpointOut = 1 // 0x01, LED output reports
)

// bootReportDescriptor is the boot keyboard report descriptor with one LED
// output report and a full-range keycode array.
var bootReportDescriptor = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x06, // Usage (Keyboard)
	0xA1, 0x01, // Collection (Application)
	0x05, 0x07, //   Usage Page (Keyboard)
	0x19, 0xE0, //   Usage Minimum (Left Control)
	0x29, 0xE7, //   Usage Maximum (Right GUI)
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x75, 0x01, //   Report Size (1)
	0x95, 0x08, //   Report Count (8)
	0x81, 0x02, //   Input (Data, Var, Abs)
	0x95, 0x01, //   Report Count (1)
	0x75, 0x08, //   Report Size (8)
	0x81, 0x01, //   Input (Const)
	0x05, 0x08, //   Usage Page (LEDs)
	0x19, 0x01, //   Usage Minimum (Num Lock)
	0x29, 0x05, //   Usage Maximum (Kana)
	0x95, 0x05, //   Report Count (5)
	0x75, 0x01, //   Report Size (1)
	0x91, 0x02, //   Output (Data, Var, Abs)
	0x95, 0x01, //   Report Count (1)
	0x75, 0x03, //   Report Size (3)
	0x91, 0x01, //   Output (Const)
	0x95, 0x06, //   Report Count (6)
	0x75, 0x08, //   Report Size (8)
	0x15, 0x00, //   Logical Minimum (0)
	0x26, 0xFF, 0x00, // Logical Maximum (255)
	0x05, 0x07, //   Usage Page (Keyboard)
	0x19, 0x00, //   Usage Minimum (0)
	0x2A, 0xFF, 0x00, // Usage Maximum (255)
	0x81, 0x00, //   Input (Data, Array)
	0xC0, // End Collection
}

// ReportDescriptor returns a copy of the boot keyboard report descriptor.
func ReportDescriptor() []byte {
	return append([]byte(nil), bootReportDescriptor...)
}

// Class is the keyboard class driver. SetReport and Write are called from
// the report-producing task, Handle and Reset from the USB task; LEDs may
// be read from anywhere.
type Class struct {
	bus usb.Bus

	pending  Report
	accepted Report
	leds     atomic.Uint32
}

// NewClass returns a keyboard class writing through bus.
func NewClass(bus usb.Bus) *Class {
	return &Class{bus: bus}
}

// Interface returns the descriptors of the keyboard interface at number n.
func (c *Class) Interface(n uint8) usb.InterfaceConfig { return KeyboardInterface(n) }

// KeyboardInterface returns the boot keyboard interface descriptors at
// interface number n.
func KeyboardInterface(n uint8) usb.InterfaceConfig {
	return usb.InterfaceConfig{
		Descriptor: usb.InterfaceDescriptor{
			BInterfaceNumber:   n,
			BNumEndpoints:      2,
			BInterfaceClass:    0x03, // HID
			BInterfaceSubClass: 0x01, // Boot
			BInterfaceProtocol: 0x01, // Keyboard
		},
		HIDDescriptor: usb.HIDDescriptor{
			BcdHID:            0x0111,
			WDescriptorLength: uint16(len(bootReportDescriptor)),
		}.Bytes(),
		HIDReport: ReportDescriptor(),
		Endpoints: []usb.EndpointDescriptor{
			{
				BEndpointAddress: 0x80 | EndpointIn,
				BMAttributes:     0x03, // Interrupt
				WMaxPacketSize:   ReportSize,
				BInterval:        0x01, // 1 ms
			},
			{
				BEndpointAddress: EndpointOut,
				BMAttributes:     0x03, // Interrupt
				WMaxPacketSize:   ReportSize,
				BInterval:        0x0A,
			},
		},
	}
}

// SetReport records r as the report to send and reports whether it differs
// from the last report the endpoint accepted.
func (c *Class) SetReport(r Report) bool {
	c.pending = r
	return r != c.accepted
}

// Report returns the last report handed to SetReport.
func (c *Class) Report() Report { return c.pending }

// Write queues data on the IN endpoint. It returns 0 while the endpoint is
// busy. A fully accepted boot report becomes the baseline for SetReport.
func (c *Class) Write(data []byte) (int, error) {
	n, err := c.bus.Write(EndpointIn, data)
	if err != nil || n != len(data) {
		return n, err
	}
	var r Report
	if r.UnmarshalBinary(data) == nil {
		c.accepted = r
	}
	return n, nil
}

// Reset forgets the host-side state after a bus reset or deconfiguration.
func (c *Class) Reset() {
	c.accepted = Report{}
	c.leds.Store(0)
}

// Handle consumes LED output reports and IN completions.
func (c *Class) Handle(ev usb.Event) bool {
	switch {
	case ev.Kind == usb.EventOut && ev.Endpoint == EndpointOut:
		if len(ev.Data) >= 1 {
			c.leds.Store(uint32(ev.Data[0]))
		}
		return true
	case ev.Kind == usb.EventInComplete && ev.Endpoint == EndpointIn:
		return true
	}
	return false
}

// LEDs returns the LED state last set by the host.
func (c *Class) LEDs() LEDState {
	var st LEDState
	_ = st.UnmarshalBinary([]byte{uint8(c.leds.Load())})
	return st
}

// LEDBits returns the raw LED bitmask last set by the host.
func (c *Class) LEDBits() uint8 { return uint8(c.leds.Load()) }
