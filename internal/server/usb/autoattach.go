package usb

import (
	"context"
	"log/slog"

	"github.com/Alia5/splitkb/usbip"
)

// AttachLocalhostClient imports the exported keyboard into the local kernel
// through the usbip tool.
func AttachLocalhostClient(ctx context.Context, meta usbip.ExportMeta, usbipServerPort uint16, logger *slog.Logger) error {
	logger.Info("Auto-attaching localhost client", "busid", meta.BusIDString())
	return attachLocalhostClientImpl(ctx, meta, usbipServerPort, logger)
}
