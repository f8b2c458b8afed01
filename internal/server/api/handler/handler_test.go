package handler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/splitkb/apiclient"
	"github.com/Alia5/splitkb/event"
	"github.com/Alia5/splitkb/hid"
	"github.com/Alia5/splitkb/internal/firmware"
	"github.com/Alia5/splitkb/internal/link"
	"github.com/Alia5/splitkb/internal/server/api"
	"github.com/Alia5/splitkb/internal/server/api/handler"
	th "github.com/Alia5/splitkb/internal/testing"
	"github.com/Alia5/splitkb/keycode"
	"github.com/Alia5/splitkb/matrix"
	"github.com/Alia5/splitkb/usb"
)

type fakeStatus struct{ st firmware.Status }

func (f fakeStatus) Status() firmware.Status { return f.st }

type fakeLink struct{ st link.Stats }

func (f fakeLink) Stats() link.Stats { return f.st }

func TestStatusResponse(t *testing.T) {
	m := matrix.NewSnapshot(2, 3)
	m.Set(0, 1, true)
	m.Set(1, 2, true)
	st := firmware.Status{
		Side:        event.Right,
		USB:         usb.StateConfigured,
		Address:     3,
		Layers:      []int{0, 2},
		Report:      hid.Report{Modifiers: keycode.ModLeftShift, Keys: [6]keycode.KeyCode{keycode.A, keycode.Escape}},
		LEDs:        hid.LEDState{CapsLock: true},
		Matrix:      m,
		Ticks:       40,
		Frames:      2,
		ReportsSent: 5,
	}

	tests := []struct {
		name     string
		link     handler.LinkSource
		expected string
	}{
		{
			name: "without link",
			expected: `{"side":"right","usb":"configured","address":3,"layers":[0,2],"modifiers":2,"keys":["A","Escape"],` +
				`"leds":{"numLock":false,"capsLock":true,"scrollLock":false,"compose":false,"kana":false},` +
				`"pending":0,"buffered":0,"matrix":[".#.","..#"],"queue":0,"halted":false,"ticks":40,"frames":2,` +
				`"reportsSent":5,"reportsDropped":0}`,
		},
		{
			name: "with link",
			link: fakeLink{st: link.Stats{Connected: true, RxBytes: 8, TxBytes: 12, Overruns: 1}},
			expected: `{"side":"right","usb":"configured","address":3,"layers":[0,2],"modifiers":2,"keys":["A","Escape"],` +
				`"leds":{"numLock":false,"capsLock":true,"scrollLock":false,"compose":false,"kana":false},` +
				`"pending":0,"buffered":0,"matrix":[".#.","..#"],"queue":0,"halted":false,"ticks":40,"frames":2,` +
				`"reportsSent":5,"reportsDropped":0,` +
				`"link":{"transport":"tcp-dial","connected":true,"rxBytes":8,"txBytes":12,"overruns":1,"dropped":0}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, done := th.StartAPIServer(t, func(r *api.Router) {
				r.Register("status", handler.Status(fakeStatus{st: st}, link.TransportTCPDial, tt.link))
			})
			defer done()

			line, err := apiclient.NewTCP(addr, nil).RoundTrip(context.Background(), apiclient.StatusRequest)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, line)
		})
	}
}

func TestStatusBeforeFirstSnapshot(t *testing.T) {
	out := handler.StatusResponse(firmware.Status{Side: event.Left})
	assert.Equal(t, []int{0}, out.Layers)
	assert.Equal(t, []string{}, out.Keys)
	assert.Equal(t, []string{}, out.Matrix)
	assert.Equal(t, "default", out.USB)
}

func TestSwitchHandlers(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		payload   string
		expected  string
		wantCalls []th.SwitchCall
	}{
		{
			name:      "press",
			path:      "switch/1/2/press",
			expected:  `{"row":1,"col":2,"action":"press"}`,
			wantCalls: []th.SwitchCall{{Op: "press", Row: 1, Col: 2}},
		},
		{
			name:      "release",
			path:      "switch/4/5/release",
			expected:  `{"row":4,"col":5,"action":"release"}`,
			wantCalls: []th.SwitchCall{{Op: "release", Row: 4, Col: 5}},
		},
		{
			name:      "tap default hold",
			path:      "switch/0/0/tap",
			expected:  `{"row":0,"col":0,"action":"tap"}`,
			wantCalls: []th.SwitchCall{{Op: "press", Row: 0, Col: 0}, {Op: "release", Row: 0, Col: 0}},
		},
		{
			name:      "tap explicit hold",
			path:      "switch/2/3/tap",
			payload:   "5ms",
			expected:  `{"row":2,"col":3,"action":"tap"}`,
			wantCalls: []th.SwitchCall{{Op: "press", Row: 2, Col: 3}, {Op: "release", Row: 2, Col: 3}},
		},
		{
			name:     "tap bad hold",
			path:     "switch/2/3/tap",
			payload:  "forever",
			expected: `{"status":400,"title":"Bad Request","detail":"invalid hold duration \"forever\""}`,
		},
		{
			name:     "tap hold too long",
			path:     "switch/2/3/tap",
			payload:  "1m",
			expected: `{"status":400,"title":"Bad Request","detail":"invalid hold duration \"1m\""}`,
		},
		{
			name:     "out of bounds",
			path:     "switch/5/0/press",
			expected: `{"status":400,"title":"Bad Request","detail":"switch (5,0) outside 5x6 matrix"}`,
		},
		{
			name:     "non numeric row",
			path:     "switch/x/0/press",
			expected: `{"status":400,"title":"Bad Request","detail":"invalid row: strconv.Atoi: parsing \"x\": invalid syntax"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sw := &th.FakeSwitches{Rows: 5, Cols: 6}
			addr, done := th.StartAPIServer(t, func(r *api.Router) {
				handler.Register(r, "test", fakeStatus{}, link.TransportNone, nil, sw, &th.FakeBus{})
			})
			defer done()

			req := apiclient.Request{Path: tt.path, Payload: tt.payload}
			line, err := apiclient.NewTCP(addr, nil).RoundTrip(context.Background(), req)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, line)
			assert.Equal(t, tt.wantCalls, sw.Calls())
		})
	}
}

func TestUSBPower(t *testing.T) {
	tests := []struct {
		name       string
		host       bool
		path       string
		expected   string
		wantEvents []string
	}{
		{
			name:       "suspend",
			host:       true,
			path:       "usb/suspend",
			expected:   `{"attached":true,"action":"suspend"}`,
			wantEvents: []string{"suspend"},
		},
		{
			name:       "resume",
			host:       true,
			path:       "usb/resume",
			expected:   `{"attached":true,"action":"resume"}`,
			wantEvents: []string{"resume"},
		},
		{
			name:     "no host",
			path:     "usb/suspend",
			expected: `{"status":409,"title":"Conflict","detail":"no host attached"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := &th.FakeBus{Host: tt.host}
			addr, done := th.StartAPIServer(t, func(r *api.Router) {
				handler.Register(r, "test", fakeStatus{}, link.TransportNone, nil, &th.FakeSwitches{}, bus)
			})
			defer done()

			line, err := apiclient.NewTCP(addr, nil).RoundTrip(context.Background(), apiclient.Request{Path: tt.path})
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, line)
			assert.Equal(t, tt.wantEvents, bus.Events())
		})
	}
}

func TestPing(t *testing.T) {
	addr, done := th.StartAPIServer(t, func(r *api.Router) {
		r.Register("ping", handler.Ping("1.2.3"))
	})
	defer done()

	resp, err := apiclient.New(addr).Ping()
	require.NoError(t, err)
	assert.Equal(t, "splitkb", resp.Server)
	assert.Equal(t, "1.2.3", resp.Version)
}
