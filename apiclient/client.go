package apiclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	apitypes "github.com/Alia5/splitkb/apitypes"
)

// Config controls dial and I/O timeouts.
type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func defaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Transport carries one request to the control API and returns the reply
// line without its trailing newline.
type Transport interface {
	RoundTrip(ctx context.Context, req Request) (string, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) (string, error)

func (f TransportFunc) RoundTrip(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// TCP opens one connection per request. The server answers with a single
// line and closes the connection, so the reply is read until EOF.
type TCP struct {
	addr string
	cfg  Config
}

// NewTCP returns a TCP transport to addr. A nil cfg selects the default
// timeouts.
func NewTCP(addr string, cfg *Config) *TCP {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	return &TCP{addr: addr, cfg: c}
}

func (t *TCP) RoundTrip(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("dial: %w", err)
	}
	d := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return "", fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			slog.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}

	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	if _, err := conn.Write(req.Line()); err != nil {
		return "", fmt.Errorf("write %s: %w", req.Path, err)
	}
	if t.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}
	resp, err := io.ReadAll(conn)
	if err != nil && len(resp) == 0 {
		return "", fmt.Errorf("read %s: %w", req.Path, err)
	}
	return strings.TrimSuffix(string(resp), "\n"), nil
}

// Client is the typed control API of a running half.
type Client struct{ transport Transport }

// New returns a client for the control API at addr (host:port).
func New(addr string) *Client { return NewWithConfig(addr, nil) }

// NewWithConfig returns a client with custom timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTCP(addr, cfg)}
}

// WithTransport returns a client that sends its requests through t.
func WithTransport(t Transport) *Client { return &Client{transport: t} }

func call[T any](ctx context.Context, c *Client, req Request, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	line, err := c.transport.RoundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	return Decode[T](line)
}

// Ping returns the version and identity of the server.
func (c *Client) Ping() (*apitypes.PingResponse, error) {
	return c.PingCtx(context.Background())
}

// PingCtx is the context-aware version of Ping.
func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	return call[apitypes.PingResponse](ctx, c, PingRequest, nil)
}

// Status returns the state of the half: USB state, layer stack, report,
// host LEDs, debounced matrix and link counters.
func (c *Client) Status() (*apitypes.StatusResponse, error) {
	return c.StatusCtx(context.Background())
}

func (c *Client) StatusCtx(ctx context.Context) (*apitypes.StatusResponse, error) {
	return call[apitypes.StatusResponse](ctx, c, StatusRequest, nil)
}

// Press closes the local switch at (row, col) until Release.
func (c *Client) Press(row, col int) (*apitypes.SwitchResponse, error) {
	return c.PressCtx(context.Background(), row, col)
}

func (c *Client) PressCtx(ctx context.Context, row, col int) (*apitypes.SwitchResponse, error) {
	req, err := SwitchRequest(row, col, SwitchPress, 0)
	return call[apitypes.SwitchResponse](ctx, c, req, err)
}

// Release opens the local switch at (row, col).
func (c *Client) Release(row, col int) (*apitypes.SwitchResponse, error) {
	return c.ReleaseCtx(context.Background(), row, col)
}

func (c *Client) ReleaseCtx(ctx context.Context, row, col int) (*apitypes.SwitchResponse, error) {
	req, err := SwitchRequest(row, col, SwitchRelease, 0)
	return call[apitypes.SwitchResponse](ctx, c, req, err)
}

// Tap presses and releases the switch at (row, col). A zero hold uses the
// server default.
func (c *Client) Tap(row, col int, hold time.Duration) (*apitypes.SwitchResponse, error) {
	return c.TapCtx(context.Background(), row, col, hold)
}

func (c *Client) TapCtx(ctx context.Context, row, col int, hold time.Duration) (*apitypes.SwitchResponse, error) {
	req, err := SwitchRequest(row, col, SwitchTap, hold)
	return call[apitypes.SwitchResponse](ctx, c, req, err)
}

// Suspend signals USB suspend to the device.
func (c *Client) Suspend() (*apitypes.USBResponse, error) {
	return c.SuspendCtx(context.Background())
}

func (c *Client) SuspendCtx(ctx context.Context) (*apitypes.USBResponse, error) {
	req, err := USBRequestFor(USBSuspend)
	return call[apitypes.USBResponse](ctx, c, req, err)
}

// Resume signals USB resume to the device.
func (c *Client) Resume() (*apitypes.USBResponse, error) {
	return c.ResumeCtx(context.Background())
}

func (c *Client) ResumeCtx(ctx context.Context) (*apitypes.USBResponse, error) {
	req, err := USBRequestFor(USBResume)
	return call[apitypes.USBResponse](ctx, c, req, err)
}
