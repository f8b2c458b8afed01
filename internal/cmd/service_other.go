//go:build !linux

package cmd

import (
	"errors"
	"log/slog"
)

var errNoService = errors.New("service management is only supported on linux")

func install(*slog.Logger, []string) error { return errNoService }

func uninstall(*slog.Logger) error { return errNoService }
