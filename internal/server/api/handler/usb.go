package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/Alia5/splitkb/apitypes"
	"github.com/Alia5/splitkb/internal/server/api"
)

// PowerBus is the host side of the USB bus.
type PowerBus interface {
	Attached() bool
	Suspend()
	Resume()
}

// USBSuspend returns a handler signalling bus suspend to the device.
func USBSuspend(bus PowerBus) api.HandlerFunc {
	return usbPower(bus, "suspend", bus.Suspend)
}

// USBResume returns a handler signalling bus resume to the device.
func USBResume(bus PowerBus) api.HandlerFunc {
	return usbPower(bus, "resume", bus.Resume)
}

func usbPower(bus PowerBus, action string, fn func()) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		if !bus.Attached() {
			return api.ErrConflict("no host attached")
		}
		fn()
		b, err := json.Marshal(apitypes.USBResponse{Attached: true, Action: action})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}

// Register installs every control route.
func Register(r *api.Router, version string, fw StatusSource, transport string, lk LinkSource, sw Switches, bus PowerBus) {
	r.Register("ping", Ping(version))
	r.Register("status", Status(fw, transport, lk))
	r.Register("switch/{row}/{col}/press", Switch(sw, ActionPress))
	r.Register("switch/{row}/{col}/release", Switch(sw, ActionRelease))
	r.Register("switch/{row}/{col}/tap", Switch(sw, ActionTap))
	r.Register("usb/suspend", USBSuspend(bus))
	r.Register("usb/resume", USBResume(bus))
}
