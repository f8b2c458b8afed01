package usb_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/splitkb/usb"
)

type queueBus struct{ events []usb.Event }

func (b *queueBus) Next() (usb.Event, bool) {
	if len(b.events) == 0 {
		return usb.Event{}, false
	}
	ev := b.events[0]
	b.events = b.events[1:]
	return ev, true
}

func (b *queueBus) Write(uint8, []byte) (int, error) { return 0, nil }

type recordingClass struct {
	resets  int
	handled []usb.Event
}

func (c *recordingClass) Reset() { c.resets++ }

func (c *recordingClass) Handle(ev usb.Event) bool {
	if ev.Endpoint != 1 {
		return false
	}
	c.handled = append(c.handled, ev)
	return true
}

func newDevice(bus usb.Bus) *usb.Device {
	return usb.NewDevice(bus, &usb.Descriptor{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDeviceStates(t *testing.T) {
	bus := &queueBus{}
	dev := newDevice(bus)
	cls := &recordingClass{}
	assert.Equal(t, usb.StateDefault, dev.State())

	steps := []struct {
		ev       usb.Event
		expected usb.State
	}{
		{ev: usb.Event{Kind: usb.EventReset}, expected: usb.StateDefault},
		{ev: usb.Event{Kind: usb.EventAddress, Value: 7}, expected: usb.StateAddressed},
		{ev: usb.Event{Kind: usb.EventConfigure, Value: 1}, expected: usb.StateConfigured},
		{ev: usb.Event{Kind: usb.EventSuspend}, expected: usb.StateSuspended},
		{ev: usb.Event{Kind: usb.EventResume}, expected: usb.StateConfigured},
		{ev: usb.Event{Kind: usb.EventConfigure, Value: 0}, expected: usb.StateAddressed},
		{ev: usb.Event{Kind: usb.EventReset}, expected: usb.StateDefault},
	}
	for _, step := range steps {
		bus.events = append(bus.events, step.ev)
		assert.False(t, dev.Poll(cls))
		assert.Equal(t, step.expected, dev.State(), "after %v", step.ev.Kind)
	}
	assert.Equal(t, 3, cls.resets)
}

func TestDevicePollRoutesEndpointEvents(t *testing.T) {
	bus := &queueBus{events: []usb.Event{
		{Kind: usb.EventOut, Endpoint: 2, Data: []byte{1}},
		{Kind: usb.EventOut, Endpoint: 1, Data: []byte{2}},
		{Kind: usb.EventInComplete, Endpoint: 1},
	}}
	dev := newDevice(bus)
	cls := &recordingClass{}

	require.True(t, dev.Poll(cls))
	assert.Len(t, cls.handled, 2)
	assert.False(t, dev.Poll(cls))
}

func TestConfigDescriptor(t *testing.T) {
	desc := usb.Descriptor{
		Interfaces: []usb.InterfaceConfig{{
			Descriptor:    usb.InterfaceDescriptor{BNumEndpoints: 1, BInterfaceClass: 0x03},
			HIDDescriptor: usb.HIDDescriptor{BcdHID: 0x0111, WDescriptorLength: 63}.Bytes(),
			Endpoints:     []usb.EndpointDescriptor{{BEndpointAddress: 0x81, BMAttributes: 0x03, WMaxPacketSize: 8, BInterval: 1}},
		}},
	}
	data := desc.ConfigBytes()
	total := usb.ConfigDescLen + usb.InterfaceDescLen + usb.HIDDescLen + usb.EndpointDescLen
	require.Len(t, data, total)
	assert.Equal(t, byte(total), data[2])
	assert.Equal(t, byte(1), data[4], "interface count")
	assert.Equal(t, byte(usb.HIDDescType), data[usb.ConfigDescLen+usb.InterfaceDescLen+1])
}

func TestStringDescriptors(t *testing.T) {
	desc := usb.Descriptor{Strings: map[uint8]string{0: "\x09\x04", 1: "Hi"}}

	assert.Equal(t, []byte{4, usb.StringDescType, 0x09, 0x04}, desc.StringBytes(0))
	assert.Equal(t, []byte{6, usb.StringDescType, 'H', 0, 'i', 0}, desc.StringBytes(1))
	assert.Nil(t, desc.StringBytes(2))
	assert.Len(t, desc.Bytes(), usb.DeviceDescLen)
}
