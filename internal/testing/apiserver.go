// Package testing holds helpers shared by package tests.
package testing

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Alia5/splitkb/internal/server/api"
)

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// StartAPIServer starts a control API on a free loopback port with the
// routes installed by register. done stops it.
func StartAPIServer(t *testing.T, register func(r *api.Router)) (addr string, done func()) {
	t.Helper()
	srv := api.New(api.ServerConfig{Addr: "127.0.0.1:0"}, DiscardLogger())
	if register != nil {
		register(srv.Router())
	}
	require.NoError(t, srv.Start())
	return srv.Addr().String(), srv.Close
}
