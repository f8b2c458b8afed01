package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/Alia5/splitkb/event"
)

const mqttTimeout = 5 * time.Second

// MQTTTopics returns the topic a half publishes its frames on and the topic
// it receives its peer's frames from.
func MQTTTopics(prefix string, side event.Side) (pub, sub string) {
	peer := event.Right
	if side == event.Right {
		peer = event.Left
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return prefix + "/" + side.String() + "/tx", prefix + "/" + peer.String() + "/tx"
}

// ClientOptions builds paho options from a broker URL. The mqtt scheme maps
// to plain tcp; user info becomes the credentials.
func ClientOptions(brokerURL, clientID string) (*paho.ClientOptions, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("broker URL %q has no host", brokerURL)
	}
	scheme := u.Scheme
	if scheme == "" || scheme == "mqtt" {
		scheme = "tcp"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(scheme + "://" + u.Host).
		SetClientID(clientID).
		SetAutoReconnect(false).
		SetCleanSession(true).
		SetConnectTimeout(mqttTimeout)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if id := u.Query().Get("client-id"); id != "" {
		opts.SetClientID(id)
	}
	return opts, nil
}

type mqttDialer struct {
	opts     *paho.ClientOptions
	pub, sub string
}

func newMQTTDialer(cfg Config, side event.Side) (*mqttDialer, error) {
	opts, err := ClientOptions(cfg.Broker, "splitkb-"+side.String())
	if err != nil {
		return nil, fmt.Errorf("mqtt broker: %w", err)
	}
	pub, sub := MQTTTopics(cfg.Topic, side)
	return &mqttDialer{opts: opts, pub: pub, sub: sub}, nil
}

func (d *mqttDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	c := &mqttConn{
		pub:  d.pub,
		rx:   make(chan []byte, 64),
		done: make(chan struct{}),
	}
	d.opts.SetConnectionLostHandler(func(_ paho.Client, err error) { c.fail(err) })
	c.client = paho.NewClient(d.opts)

	if err := wait(ctx, c.client.Connect()); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	if err := wait(ctx, c.client.Subscribe(d.sub, 0, c.onMessage)); err != nil {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("mqtt subscribe %s: %w", d.sub, err)
	}
	return c, nil
}

func (d *mqttDialer) Close() error { return nil }

func wait(ctx context.Context, tok paho.Token) error {
	deadline := time.Now().Add(mqttTimeout)
	for !tok.WaitTimeout(50 * time.Millisecond) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return errors.New("timeout")
		}
	}
	return tok.Error()
}

// mqttConn carries the byte stream as one message per write.
type mqttConn struct {
	client paho.Client
	pub    string
	rx     chan []byte
	buf    []byte

	once sync.Once
	done chan struct{}
	err  error
}

func (c *mqttConn) onMessage(_ paho.Client, msg paho.Message) {
	payload := append([]byte(nil), msg.Payload()...)
	select {
	case c.rx <- payload:
	case <-c.done:
	default:
		// A full receive queue loses the message like a UART overrun.
	}
}

func (c *mqttConn) Read(p []byte) (int, error) {
	for len(c.buf) == 0 {
		select {
		case b := <-c.rx:
			c.buf = b
		case <-c.done:
			if c.err != nil {
				return 0, c.err
			}
			return 0, io.EOF
		}
	}
	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}

func (c *mqttConn) Write(p []byte) (int, error) {
	select {
	case <-c.done:
		return 0, io.ErrClosedPipe
	default:
	}
	tok := c.client.Publish(c.pub, 0, false, append([]byte(nil), p...))
	if !tok.WaitTimeout(mqttTimeout) {
		return 0, errors.New("mqtt publish timeout")
	}
	if err := tok.Error(); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *mqttConn) fail(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

func (c *mqttConn) Close() error {
	c.fail(nil)
	c.client.Disconnect(50)
	return nil
}
