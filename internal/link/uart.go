// Package link models the UART joining the two keyboard halves and carries
// its byte stream over a serial device, TCP or MQTT.
package link

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Alia5/splitkb/internal/log"
)

// RXBufferSize bounds the receive FIFO. Bytes arriving while it is full are
// lost and counted as overruns.
const RXBufferSize = 256

// Stats counts link traffic.
type Stats struct {
	Connected bool   `json:"connected"`
	RxBytes   uint64 `json:"rxBytes"`
	TxBytes   uint64 `json:"txBytes"`
	Overruns  uint64 `json:"overruns"`
	Dropped   uint64 `json:"dropped"`
}

// UART is the serial peripheral as the firmware sees it: a receive FIFO
// with an interrupt per received byte and a blocking transmitter.
type UART struct {
	dialer   Dialer
	logger   *slog.Logger
	raw      log.RawLogger
	retry    time.Duration
	byteTime time.Duration

	// owned by the reader goroutine
	next time.Time

	mu   sync.Mutex
	fifo []byte
	port io.ReadWriteCloser
	irq  func()

	rxBytes  atomic.Uint64
	txBytes  atomic.Uint64
	overruns atomic.Uint64
	dropped  atomic.Uint64
}

// New returns a UART that reaches its peer through d. Received bytes enter
// the FIFO no faster than baud allows, whatever the transport delivers at
// once. raw may be nil.
func New(d Dialer, baud int, retry time.Duration, logger *slog.Logger, raw log.RawLogger) *UART {
	if baud <= 0 {
		baud = DefaultBaud
	}
	if retry <= 0 {
		retry = time.Second
	}
	return &UART{
		dialer:   d,
		logger:   logger,
		raw:      raw,
		retry:    retry,
		byteTime: ByteTime(baud),
		fifo:     make([]byte, 0, RXBufferSize),
	}
}

// ByteTime is the time one 8N1 character (10 bits) occupies the line.
func ByteTime(baud int) time.Duration {
	return time.Duration(10 * int64(time.Second) / int64(baud))
}

// SetIRQ registers the receive interrupt. It fires once per received byte,
// from the reader goroutine.
func (u *UART) SetIRQ(fn func()) {
	u.mu.Lock()
	u.irq = fn
	u.mu.Unlock()
}

// Run keeps the link connected until ctx ends.
func (u *UART) Run(ctx context.Context) error {
	defer u.dialer.Close()
	for {
		port, err := u.dialer.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			u.logger.Debug("link dial failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(u.retry):
			}
			continue
		}

		u.setPort(port)
		u.logger.Info("link connected")
		err = u.readLoop(ctx, port)
		u.setPort(nil)
		_ = port.Close()
		if ctx.Err() != nil {
			return nil
		}
		u.logger.Warn("link lost", "error", err)
	}
}

func (u *UART) setPort(p io.ReadWriteCloser) {
	u.mu.Lock()
	u.port = p
	u.mu.Unlock()
}

func (u *UART) readLoop(ctx context.Context, port io.ReadWriteCloser) error {
	stop := context.AfterFunc(ctx, func() { _ = port.Close() })
	defer stop()

	pace := time.NewTimer(0)
	defer pace.Stop()

	buf := make([]byte, 64)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			if u.raw != nil {
				u.raw.Log(true, buf[:n])
			}
			if perr := u.deliver(ctx, pace, buf[:n]); perr != nil {
				return perr
			}
		}
		if err != nil {
			return err
		}
	}
}

// deliver releases p into the FIFO one byte per byte time. A delayed byte
// pushes the following ones back instead of letting them catch up, so
// interrupts stay at least one byte time apart.
func (u *UART) deliver(ctx context.Context, pace *time.Timer, p []byte) error {
	for _, b := range p {
		if wait := time.Until(u.next); wait > 0 {
			pace.Reset(wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace.C:
			}
		}
		u.receive(b)
		u.next = time.Now().Add(u.byteTime)
	}
	return nil
}

func (u *UART) receive(b byte) {
	u.rxBytes.Add(1)

	u.mu.Lock()
	if len(u.fifo) == RXBufferSize {
		u.overruns.Add(1)
		u.mu.Unlock()
		return
	}
	u.fifo = append(u.fifo, b)
	irq := u.irq
	u.mu.Unlock()

	if irq != nil {
		irq()
	}
}

// Read pops one received byte. ok is false when the FIFO is empty.
func (u *UART) Read() (b byte, ok bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.fifo) == 0 {
		return 0, false
	}
	b = u.fifo[0]
	u.fifo = append(u.fifo[:0], u.fifo[1:]...)
	return b, true
}

// Send transmits p, blocking until the transport took it. While no peer is
// connected the bytes are lost, as on an unplugged cable.
func (u *UART) Send(p []byte) {
	u.mu.Lock()
	port := u.port
	u.mu.Unlock()

	if port == nil {
		u.dropped.Add(uint64(len(p)))
		return
	}
	if u.raw != nil {
		u.raw.Log(false, p)
	}
	n, err := port.Write(p)
	u.txBytes.Add(uint64(n))
	if err != nil {
		u.dropped.Add(uint64(len(p) - n))
		u.logger.Debug("link write failed", "error", err)
	}
}

// Connected reports whether a peer connection is up.
func (u *UART) Connected() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.port != nil
}

// Stats returns the traffic counters.
func (u *UART) Stats() Stats {
	return Stats{
		Connected: u.Connected(),
		RxBytes:   u.rxBytes.Load(),
		TxBytes:   u.txBytes.Load(),
		Overruns:  u.overruns.Load(),
		Dropped:   u.dropped.Load(),
	}
}
