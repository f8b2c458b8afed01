package link

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/Alia5/splitkb/event"
)

// Dialer opens connections to the peer half. The UART dials again whenever
// a connection fails.
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
	Close() error
}

// NewDialer builds the dialer for cfg.Transport. side names the local half
// and only matters for transports that address halves by name.
func NewDialer(cfg Config, side event.Side) (Dialer, error) {
	switch cfg.Transport {
	case TransportNone, "":
		return noneDialer{}, nil
	case TransportTTY:
		baud := cfg.Baud
		if baud == 0 {
			baud = DefaultBaud
		}
		return &ttyDialer{device: cfg.Device, baud: baud}, nil
	case TransportTCPDial:
		return &tcpDialer{addr: cfg.Addr}, nil
	case TransportTCPListen:
		ln, err := net.Listen("tcp", cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("link listen %s: %w", cfg.Addr, err)
		}
		return &tcpListener{ln: ln}, nil
	case TransportMQTT:
		return newMQTTDialer(cfg, side)
	default:
		return nil, fmt.Errorf("unknown link transport %q", cfg.Transport)
	}
}

// noneDialer never connects. A half without a peer still scans and reports
// its own keys.
type noneDialer struct{}

func (noneDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (noneDialer) Close() error { return nil }

type tcpDialer struct {
	addr string
	d    net.Dialer
}

func (t *tcpDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	return t.d.DialContext(ctx, "tcp", t.addr)
}

func (t *tcpDialer) Close() error { return nil }

type tcpListener struct {
	ln net.Listener
}

// Addr returns the bound listen address.
func (t *tcpListener) Addr() net.Addr { return t.ln.Addr() }

func (t *tcpListener) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	if tl, ok := t.ln.(*net.TCPListener); ok {
		stop := context.AfterFunc(ctx, func() { _ = tl.SetDeadline(time.Now()) })
		defer func() {
			stop()
			_ = tl.SetDeadline(time.Time{})
		}()
	}
	conn, err := t.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

func (t *tcpListener) Close() error { return t.ln.Close() }

// Pipe returns two dialers joined by an in-memory full-duplex line. Each
// side hands out its end once; later dials block until ctx ends.
func Pipe() (Dialer, Dialer) {
	a, b := net.Pipe()
	return &pipeDialer{conn: a}, &pipeDialer{conn: b}
}

type pipeDialer struct {
	mu   sync.Mutex
	conn net.Conn
}

func (p *pipeDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()
	if conn != nil {
		return conn, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (p *pipeDialer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
