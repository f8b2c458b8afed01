//go:build linux

package usb

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strconv"

	"github.com/Alia5/splitkb/usbip"
)

func attachLocalhostClientImpl(ctx context.Context, meta usbip.ExportMeta, usbipServerPort uint16, logger *slog.Logger) error {
	cmd := exec.CommandContext(
		ctx,
		"usbip",
		"--tcp-port",
		strconv.FormatUint(uint64(usbipServerPort), 10),
		"attach",
		"-r", "localhost",
		"-b", meta.BusIDString(),
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		logger.Error("Failed to attach device",
			"error", err,
			"port", usbipServerPort,
			"output", string(output))
		return err
	}
	logger.Debug("usbip attach output", "output", string(output))
	return nil
}

// CheckAutoAttachPrerequisites reports whether the usbip tool and the
// vhci-hcd kernel module are available, logging hints when they are not.
func CheckAutoAttachPrerequisites(logger *slog.Logger) bool {
	allOk := true

	if _, err := exec.LookPath("usbip"); err != nil {
		logger.Warn("USB/IP tool 'usbip' not found in PATH")
		logger.Info("Install usbip:")
		logger.Info("  Ubuntu/Debian: sudo apt install linux-tools-generic")
		logger.Info("  Arch Linux:    sudo pacman -S usbip")
		allOk = false
	}

	data, err := os.ReadFile("/proc/modules")
	if err != nil {
		logger.Debug("Could not read /proc/modules", "error", err)
	} else if !bytes.Contains(data, []byte("vhci_hcd")) {
		logger.Warn("USB/IP kernel module 'vhci-hcd' is not loaded")
		logger.Info("To load the module now, run:")
		logger.Info("  sudo modprobe vhci-hcd")
		allOk = false
	}

	return allOk
}
