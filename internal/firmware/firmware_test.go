package firmware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/splitkb/event"
	"github.com/Alia5/splitkb/hid"
	"github.com/Alia5/splitkb/internal/firmware"
	"github.com/Alia5/splitkb/internal/keymap"
	"github.com/Alia5/splitkb/internal/link"
	"github.com/Alia5/splitkb/internal/sim"
	"github.com/Alia5/splitkb/keycode"
	"github.com/Alia5/splitkb/layout"
	"github.com/Alia5/splitkb/sched"
	"github.com/Alia5/splitkb/usb"
	"github.com/Alia5/splitkb/virtualbus"
	"github.com/Alia5/splitkb/wire"
)

type fakeSerial struct {
	mu  sync.Mutex
	irq func()
	rx  []byte
	tx  []byte
}

func (s *fakeSerial) SetIRQ(fn func()) {
	s.mu.Lock()
	s.irq = fn
	s.mu.Unlock()
}

func (s *fakeSerial) Read() (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rx) == 0 {
		return 0, false
	}
	b := s.rx[0]
	s.rx = s.rx[1:]
	return b, true
}

func (s *fakeSerial) Send(p []byte) {
	s.mu.Lock()
	s.tx = append(s.tx, p...)
	s.mu.Unlock()
}

func (s *fakeSerial) inject(p []byte) {
	s.mu.Lock()
	s.rx = append(s.rx, p...)
	irq := s.irq
	s.mu.Unlock()
	irq()
}

func (s *fakeSerial) sent() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.tx...)
}

type half struct {
	fw        *firmware.Firmware
	switches  *sim.Matrix
	serial    *fakeSerial
	bus       *virtualbus.VirtualBus
	statusLED *sim.Pin
	powerLED  *sim.Pin
}

func newHalf(t *testing.T, side event.Side, cfg firmware.Config) *half {
	t.Helper()
	serial := &fakeSerial{}
	h := newHalfOn(t, side, cfg, serial)
	h.serial = serial
	return h
}

// newHalfOn builds a half whose UART is serial.
func newHalfOn(t *testing.T, side event.Side, cfg firmware.Config, serial firmware.Serial) *half {
	t.Helper()
	bus, err := virtualbus.New(0, firmware.Descriptor("TEST"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	l, err := keymap.Default().Layout()
	require.NoError(t, err)

	h := &half{
		switches:  sim.NewMatrix(keymap.Rows, keymap.Cols/2),
		bus:       bus,
		statusLED: sim.NewPin(true),
		powerLED:  sim.NewPin(true),
	}
	h.fw, err = firmware.New(cfg, firmware.Board{
		Cols:        h.switches.ColPins(),
		Rows:        h.switches.RowPins(),
		Orientation: sim.NewPin(side == event.Right),
		StatusLED:   h.statusLED,
		PowerLED:    h.powerLED,
		Serial:      serial,
		USB:         bus,
	}, l, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return h
}

// run starts the core; the returned channel yields Run's result.
func (h *half) run(t *testing.T) <-chan error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		result <- h.fw.Run(ctx)
		close(finished)
	}()
	t.Cleanup(func() {
		cancel()
		<-finished
	})
	return result
}

func (h *half) configure(t *testing.T) context.Context {
	t.Helper()
	ctx, err := h.bus.Attach()
	require.NoError(t, err)
	h.bus.Configure(usb.ConfigValue)
	require.Eventually(t, func() bool { return h.fw.Status().USB == usb.StateConfigured },
		time.Second, time.Millisecond)
	return ctx
}

// waitReport collects IN packets until one satisfies pred.
func (h *half) waitReport(t *testing.T, ctx context.Context, pred func(hid.Report) bool) hid.Report {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data := h.bus.TakeIn(ctx, hid.EndpointIn, 20*time.Millisecond)
		var r hid.Report
		if r.UnmarshalBinary(data) == nil && pred(r) {
			return r
		}
	}
	t.Fatal("no matching report")
	return hid.Report{}
}

func hasKey(k keycode.KeyCode) func(hid.Report) bool {
	return func(r hid.Report) bool { return r.Keys[0] == k }
}

func TestInitOrientation(t *testing.T) {
	left := newHalf(t, event.Left, firmware.Config{})
	assert.Equal(t, event.Left, left.fw.Side())
	assert.True(t, left.statusLED.IsLow())
	assert.True(t, left.powerLED.IsHigh())

	right := newHalf(t, event.Right, firmware.Config{})
	assert.Equal(t, event.Right, right.fw.Side())
	assert.True(t, right.statusLED.IsHigh())
	assert.True(t, right.powerLED.IsHigh())
}

func TestLocalKeyReachesHost(t *testing.T) {
	h := newHalf(t, event.Left, firmware.Config{})
	h.run(t)
	ctx := h.configure(t)

	require.NoError(t, h.switches.Press(1, 1))
	h.waitReport(t, ctx, hasKey(keycode.Q))

	press := wire.Encode(event.NewPress(1, 1))
	assert.Equal(t, press[:], h.serial.sent())

	require.NoError(t, h.switches.Release(1, 1))
	h.waitReport(t, ctx, func(r hid.Report) bool { return r == hid.Report{} })

	release := wire.Encode(event.NewRelease(1, 1))
	assert.Equal(t, append(press[:], release[:]...), h.serial.sent())
	assert.Eventually(t, func() bool { return h.fw.Status().ReportsSent == 2 }, time.Second, time.Millisecond)
}

func TestRightHalfMirrors(t *testing.T) {
	h := newHalf(t, event.Right, firmware.Config{})
	h.run(t)
	ctx := h.configure(t)

	require.NoError(t, h.switches.Press(1, 1))
	h.waitReport(t, ctx, hasKey(keycode.P))

	frame := wire.Encode(event.NewPress(1, 10))
	assert.Equal(t, frame[:], h.serial.sent())
}

func TestPeerFramesMerge(t *testing.T) {
	h := newHalf(t, event.Left, firmware.Config{})
	h.run(t)
	ctx := h.configure(t)

	// Noise ahead of the frame is skipped by the receiver.
	frame := wire.Encode(event.NewPress(2, 10))
	h.serial.inject(append([]byte{0x00, 'x'}, frame[:]...))
	h.waitReport(t, ctx, hasKey(keycode.Escape))

	// A local hold-tap resolves to hold on the peer's next press.
	h.serial.inject(wire.AppendFrame(nil, event.NewRelease(2, 10)))
	require.NoError(t, h.switches.Press(4, 4))
	require.Eventually(t, func() bool { return h.fw.Status().Pending == 1 }, time.Second, time.Millisecond)
	h.serial.inject(wire.AppendFrame(nil, event.NewPress(1, 8)))
	h.waitReport(t, ctx, hasKey(keycode.Up))

	assert.Eventually(t, func() bool {
		st := h.fw.Status()
		return st.Frames == 3 && assert.ObjectsAreEqual([]int{0, 1}, st.Layers)
	}, time.Second, time.Millisecond)
}

func TestUnconfiguredSkipsWrites(t *testing.T) {
	h := newHalf(t, event.Left, firmware.Config{})
	h.run(t)

	require.NoError(t, h.switches.Press(1, 1))
	require.Eventually(t, func() bool {
		return h.fw.Status().Report.Keys[0] == keycode.Q
	}, time.Second, time.Millisecond)
	assert.Zero(t, h.fw.Status().ReportsSent)
	assert.Equal(t, usb.StateDefault, h.fw.Status().USB)
}

func TestBusyEndpointDropsAfterRetries(t *testing.T) {
	h := newHalf(t, event.Left, firmware.Config{WriteRetries: 10})
	h.run(t)
	h.configure(t)

	// Nobody collects IN packets: the first report fills the endpoint.
	require.NoError(t, h.switches.Press(1, 1))
	require.Eventually(t, func() bool { return h.fw.Status().ReportsSent == 1 }, time.Second, time.Millisecond)

	require.NoError(t, h.switches.Release(1, 1))
	require.Eventually(t, func() bool { return h.fw.Status().ReportsDropped > 0 }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(1), h.fw.Status().ReportsSent)
}

func TestHostLEDs(t *testing.T) {
	h := newHalf(t, event.Left, firmware.Config{})
	h.run(t)
	h.configure(t)

	h.bus.Out(hid.EndpointOut, []byte{keycode.LEDCapsLock | keycode.LEDNumLock})
	assert.Eventually(t, func() bool {
		leds := h.fw.Status().LEDs
		return leds.CapsLock && leds.NumLock && !leds.ScrollLock
	}, time.Second, time.Millisecond)
}

func TestQueueOverflowHalts(t *testing.T) {
	h := newHalf(t, event.Left, firmware.Config{QueueCapacity: 8})
	done := h.run(t)

	var burst []byte
	for col := range uint8(9) {
		burst = wire.AppendFrame(burst, event.NewPress(1, col+1))
	}
	h.serial.inject(burst)

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, sched.ErrQueueFull))
		var fe *sched.FaultError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "handle_event", fe.Task)
		assert.True(t, h.fw.Halted())
		assert.True(t, h.fw.Status().Halted)
	case <-time.After(2 * time.Second):
		t.Fatal("core did not halt")
	}
}

func TestPeerChordOverTCP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ld, err := link.NewDialer(link.Config{Transport: link.TransportTCPListen, Addr: "127.0.0.1:0"}, event.Left)
	require.NoError(t, err)
	addr := ld.(interface{ Addr() net.Addr }).Addr().String()
	rd, err := link.NewDialer(link.Config{Transport: link.TransportTCPDial, Addr: addr}, event.Right)
	require.NoError(t, err)

	lu := link.New(ld, link.DefaultBaud, 10*time.Millisecond, logger, nil)
	ru := link.New(rd, link.DefaultBaud, 10*time.Millisecond, logger, nil)
	go lu.Run(ctx)
	go ru.Run(ctx)
	require.Eventually(t, func() bool { return lu.Connected() && ru.Connected() }, 2*time.Second, time.Millisecond)

	left := newHalfOn(t, event.Left, firmware.Config{}, lu)
	right := newHalfOn(t, event.Right, firmware.Config{}, ru)
	left.run(t)
	right.run(t)

	// Twelve switches close within one scan, more than the event queue holds.
	for row := 1; row <= 2; row++ {
		for col := range keymap.Cols / 2 {
			require.NoError(t, right.switches.Press(row, col))
		}
	}
	require.Eventually(t, func() bool { return left.fw.Status().Frames == 12 }, 2*time.Second, time.Millisecond)

	for row := 1; row <= 2; row++ {
		for col := range keymap.Cols / 2 {
			require.NoError(t, right.switches.Release(row, col))
		}
	}
	require.Eventually(t, func() bool { return left.fw.Status().Frames == 24 }, 2*time.Second, time.Millisecond)

	assert.False(t, left.fw.Halted())
	assert.False(t, right.fw.Halted())
	assert.Equal(t, uint64(24*wire.FrameSize), lu.Stats().RxBytes)
	assert.Zero(t, lu.Stats().Overruns)
}

func TestLayoutShapeMismatch(t *testing.T) {
	bus, err := virtualbus.New(0, firmware.Descriptor("TEST"))
	require.NoError(t, err)
	defer bus.Close()

	l, err := layout.New(layout.Layers{{{layout.K(keycode.A)}}})
	require.NoError(t, err)

	sw := sim.NewMatrix(5, 6)
	_, err = firmware.New(firmware.Config{}, firmware.Board{
		Cols:        sw.ColPins(),
		Rows:        sw.RowPins(),
		Orientation: sim.NewPin(false),
		Serial:      &fakeSerial{},
		USB:         bus,
	}, l, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "layout is 1x1")
}

func TestDescriptor(t *testing.T) {
	desc := firmware.Descriptor("ABC")
	assert.Equal(t, uint16(firmware.VendorID), desc.Device.IDVendor)
	require.Len(t, desc.Interfaces, 1)
	assert.Equal(t, uint8(0x03), desc.Interfaces[0].Descriptor.BInterfaceClass)
	assert.Equal(t, "ABC", desc.Strings[3])

	serial := firmware.SerialNumber()
	assert.NotEmpty(t, serial)
	assert.LessOrEqual(t, len(serial), 16)
}
