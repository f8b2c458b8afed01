package api_test

import (
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/splitkb/internal/server/api"
	th "github.com/Alia5/splitkb/internal/testing"
)

func rawRequest(t *testing.T, addr, req string) string {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c.Close()
	_, err = io.WriteString(c, req)
	require.NoError(t, err)
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	b, err := io.ReadAll(c)
	require.NoError(t, err)
	return strings.TrimSuffix(string(b), "\n")
}

func TestServerRequests(t *testing.T) {
	echo := func(req *api.Request, res *api.Response, _ *slog.Logger) error {
		res.JSON = `{"row":"` + req.Params["row"] + `","payload":"` + req.Payload + `"}`
		return nil
	}
	empty := func(req *api.Request, res *api.Response, _ *slog.Logger) error { return nil }
	failing := func(req *api.Request, res *api.Response, _ *slog.Logger) error {
		return io.ErrUnexpectedEOF
	}

	addr, done := th.StartAPIServer(t, func(r *api.Router) {
		r.Register("echo/{row}", echo)
		r.Register("empty", empty)
		r.Register("fail", failing)
	})
	defer done()

	tests := []struct {
		name     string
		req      string
		expected string
	}{
		{name: "params and payload", req: "echo/3 50ms\x00", expected: `{"row":"3","payload":"50ms"}`},
		{name: "path is case insensitive", req: "ECHO/7\x00", expected: `{"row":"7","payload":""}`},
		{name: "empty ok", req: "empty\x00", expected: ""},
		{name: "unknown path", req: "nope\x00", expected: `{"status":404,"title":"Not Found","detail":"unknown path: nope"}`},
		{name: "empty request", req: "\x00", expected: `{"status":400,"title":"Bad Request","detail":"empty request"}`},
		{name: "empty path", req: " payload\x00", expected: `{"status":400,"title":"Bad Request","detail":"empty path"}`},
		{name: "handler error", req: "fail\x00", expected: `{"status":500,"title":"Internal Server Error","detail":"unexpected EOF"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rawRequest(t, addr, tt.req)
			if tt.expected == "" {
				assert.Empty(t, got)
				return
			}
			assert.JSONEq(t, tt.expected, got)
		})
	}
}

func TestServerDropsUnterminatedRequest(t *testing.T) {
	srv := api.New(api.ServerConfig{Addr: "127.0.0.1:0", ConnectionTimeout: 100 * time.Millisecond}, th.DiscardLogger())
	require.NoError(t, srv.Start())
	defer srv.Close()

	c, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	_, err = io.WriteString(c, "status")
	require.NoError(t, err)

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	b, err := io.ReadAll(c)
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestRouterMatch(t *testing.T) {
	r := api.NewRouter()
	h := func(req *api.Request, res *api.Response, _ *slog.Logger) error { return nil }
	r.Register("switch/{row}/{col}/press", h)

	got, params := r.Match("switch/1/4/press")
	assert.NotNil(t, got)
	assert.Equal(t, map[string]string{"row": "1", "col": "4"}, params)

	got, params = r.Match("switch/1/press")
	assert.Nil(t, got)
	assert.Nil(t, params)
}
