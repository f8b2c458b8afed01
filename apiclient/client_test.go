package apiclient_test

import (
	"context"
	"errors"
	"testing"
	"time"

	apiclient "github.com/Alia5/splitkb/apiclient"
	apitypes "github.com/Alia5/splitkb/apitypes"
	"github.com/Alia5/splitkb/internal/server/api"
	"github.com/Alia5/splitkb/internal/server/api/handler"
	th "github.com/Alia5/splitkb/internal/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient constructs a client backed by an in-memory responder keyed by
// request path. If err is non-nil, every request returns it, simulating dial
// failures. Sent requests are appended to seen when it is non-nil.
func testClient(responses map[string]string, err error, seen *[]apiclient.Request) *apiclient.Client {
	return apiclient.WithTransport(apiclient.TransportFunc(func(_ context.Context, req apiclient.Request) (string, error) {
		if seen != nil {
			*seen = append(*seen, req)
		}
		if err != nil {
			return "", err
		}
		return responses[req.Path], nil
	}))
}

func TestHighLevelClient(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(responses map[string]string) (err error)
		call       func(c *apiclient.Client) (any, error)
		wantErr    string
		assertFunc func(t *testing.T, got any)
	}{
		{
			name:  "ping",
			setup: func(responses map[string]string) error { responses["ping"] = `{"server":"splitkb","version":"dev"}`; return nil },
			call:  func(c *apiclient.Client) (any, error) { return c.Ping() },
			assertFunc: func(t *testing.T, got any) {
				assert.Equal(t, &apitypes.PingResponse{Server: "splitkb", Version: "dev"}, got)
			},
		},
		{
			name: "status",
			setup: func(responses map[string]string) error {
				responses["status"] = `{"side":"left","usb":"configured","address":1,"layers":[0,1],"modifiers":2,"keys":["A"],` +
					`"leds":{"numLock":true,"capsLock":false,"scrollLock":false,"compose":false,"kana":false},"pending":0,"buffered":0,` +
					`"matrix":["#....."],"queue":0,"halted":false,"ticks":10,"frames":1,"reportsSent":3,"reportsDropped":0}`
				return nil
			},
			call: func(c *apiclient.Client) (any, error) { return c.Status() },
			assertFunc: func(t *testing.T, got any) {
				resp := got.(*apitypes.StatusResponse)
				assert.Equal(t, "left", resp.Side)
				assert.Equal(t, []int{0, 1}, resp.Layers)
				assert.Equal(t, []string{"A"}, resp.Keys)
				assert.True(t, resp.LEDs.NumLock)
				assert.Nil(t, resp.Link)
			},
		},
		{
			name: "press",
			setup: func(responses map[string]string) error {
				responses["switch/1/2/press"] = `{"row":1,"col":2,"action":"press"}`
				return nil
			},
			call: func(c *apiclient.Client) (any, error) { return c.Press(1, 2) },
			assertFunc: func(t *testing.T, got any) {
				assert.Equal(t, &apitypes.SwitchResponse{Row: 1, Col: 2, Action: "press"}, got)
			},
		},
		{
			name: "switch error structured",
			setup: func(responses map[string]string) error {
				responses["switch/9/9/release"] = `{"status":400,"title":"Bad Request","detail":"switch (9,9) outside 5x6 matrix"}`
				return nil
			},
			call:    func(c *apiclient.Client) (any, error) { return c.Release(9, 9) },
			wantErr: "400 Bad Request: switch (9,9) outside 5x6 matrix",
		},
		{
			name:  "suspend",
			setup: func(responses map[string]string) error { responses["usb/suspend"] = `{"attached":true,"action":"suspend"}`; return nil },
			call:  func(c *apiclient.Client) (any, error) { return c.Suspend() },
			assertFunc: func(t *testing.T, got any) {
				assert.Equal(t, &apitypes.USBResponse{Attached: true, Action: "suspend"}, got)
			},
		},
		{
			name: "resume without host",
			setup: func(responses map[string]string) error {
				responses["usb/resume"] = `{"status":409,"title":"Conflict","detail":"no host attached"}`
				return nil
			},
			call:    func(c *apiclient.Client) (any, error) { return c.Resume() },
			wantErr: "409 Conflict",
		},
		{
			name:    "transport failure",
			setup:   func(responses map[string]string) error { return errors.New("dial fail") },
			call:    func(c *apiclient.Client) (any, error) { return c.Status() },
			wantErr: "dial fail",
		},
		{
			name:    "blank response error",
			setup:   func(responses map[string]string) error { return nil },
			call:    func(c *apiclient.Client) (any, error) { return c.Ping() },
			wantErr: "empty response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := map[string]string{}
			errInject := error(nil)
			if tt.setup != nil {
				if e := tt.setup(responses); e != nil {
					errInject = e
				}
			}
			c := testClient(responses, errInject, nil)
			got, err := tt.call(c)
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
			if tt.assertFunc != nil {
				tt.assertFunc(t, got)
			}
		})
	}
}

func TestTapPayload(t *testing.T) {
	var seen []apiclient.Request
	responses := map[string]string{"switch/3/4/tap": `{"row":3,"col":4,"action":"tap"}`}
	c := testClient(responses, nil, &seen)

	_, err := c.Tap(3, 4, 0)
	assert.NoError(t, err)
	_, err = c.Tap(3, 4, 120*time.Millisecond)
	assert.NoError(t, err)

	assert.Equal(t, []apiclient.Request{
		{Path: "switch/3/4/tap"},
		{Path: "switch/3/4/tap", Payload: "120ms"},
	}, seen)
}

func TestInvalidSwitchNotSent(t *testing.T) {
	var seen []apiclient.Request
	c := testClient(nil, nil, &seen)

	_, err := c.Press(-1, 0)
	assert.ErrorContains(t, err, "negative coordinate")
	_, err = c.Tap(0, 0, -time.Second)
	assert.ErrorContains(t, err, "negative hold")
	assert.Empty(t, seen)
}

func TestContextCancellation(t *testing.T) {
	c := apiclient.New("127.0.0.1:9") // address irrelevant due to early cancel
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.StatusCtx(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientOverTCP(t *testing.T) {
	sw := &th.FakeSwitches{Rows: 5, Cols: 6}
	bus := &th.FakeBus{Host: true}
	addr, done := th.StartAPIServer(t, func(r *api.Router) {
		r.Register("ping", handler.Ping("1.2.3"))
		r.Register("switch/{row}/{col}/press", handler.Switch(sw, "press"))
		r.Register("switch/{row}/{col}/release", handler.Switch(sw, "release"))
		r.Register("switch/{row}/{col}/tap", handler.Switch(sw, "tap"))
		r.Register("usb/suspend", handler.USBSuspend(bus))
	})
	defer done()

	c := apiclient.New(addr)

	ping, err := c.Ping()
	require.NoError(t, err)
	assert.Equal(t, &apitypes.PingResponse{Server: "splitkb", Version: "1.2.3"}, ping)

	pressed, err := c.Press(1, 2)
	require.NoError(t, err)
	assert.Equal(t, &apitypes.SwitchResponse{Row: 1, Col: 2, Action: "press"}, pressed)

	_, err = c.Tap(4, 5, 5*time.Millisecond)
	require.NoError(t, err)

	_, err = c.Release(5, 0)
	var problem *apitypes.ApiError
	require.True(t, errors.As(err, &problem))
	assert.Equal(t, 400, problem.Status)

	usb, err := c.Suspend()
	require.NoError(t, err)
	assert.Equal(t, &apitypes.USBResponse{Attached: true, Action: "suspend"}, usb)

	assert.Equal(t, []th.SwitchCall{
		{Op: "press", Row: 1, Col: 2},
		{Op: "press", Row: 4, Col: 5},
		{Op: "release", Row: 4, Col: 5},
	}, sw.Calls())
	assert.Equal(t, []string{"suspend"}, bus.Events())

	line, err := apiclient.NewTCP(addr, nil).RoundTrip(context.Background(), apiclient.Request{Path: "nope"})
	require.NoError(t, err)
	assert.Contains(t, line, `"status":404`)
}

func TestStrictJSONDecode(t *testing.T) {
	responses := map[string]string{}
	responses["ping"] = `{"server":"splitkb","version":"dev","extra":true}` // extra field should cause decode error
	c := testClient(responses, nil, nil)
	_, err := c.Ping()
	assert.Error(t, err)
}
