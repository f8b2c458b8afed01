//go:build !linux

package link

import (
	"context"
	"errors"
	"io"
)

type ttyDialer struct {
	device string
	baud   int
}

func (t *ttyDialer) Dial(context.Context) (io.ReadWriteCloser, error) {
	return nil, errors.New("tty transport is only supported on linux")
}

func (t *ttyDialer) Close() error { return nil }
