//go:build !linux

package usb

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Alia5/splitkb/usbip"
)

func attachLocalhostClientImpl(context.Context, usbip.ExportMeta, uint16, *slog.Logger) error {
	return errors.New("auto-attach is only supported on linux")
}

// CheckAutoAttachPrerequisites always fails off linux.
func CheckAutoAttachPrerequisites(logger *slog.Logger) bool {
	logger.Warn("Auto-attach is only supported on linux")
	return false
}
