package api

import "time"

// ServerConfig configures the control API.
type ServerConfig struct {
	Addr              string        `help:"Control API listen address; empty disables it" default:"127.0.0.1:3242" env:"SPLITKB_API_ADDR"`
	ConnectionTimeout time.Duration `help:"Time a client has to send its request" default:"5s" env:"SPLITKB_API_CONNECTION_TIMEOUT"`
}
