package usb

import "time"

// ServerConfig configures the USB/IP export of the keyboard.
type ServerConfig struct {
	Addr              string        `help:"USB-IP server listen address; empty disables the export" default:":3240" env:"SPLITKB_USB_ADDR"`
	BusID             uint32        `help:"USB-IP bus number of the exported keyboard (0 picks one)" default:"0" env:"SPLITKB_USB_BUS_ID"`
	InWait            time.Duration `help:"How long an interrupt IN transfer waits for a new report" default:"10ms" env:"SPLITKB_USB_IN_WAIT"`
	AutoAttach        bool          `help:"Run 'usbip attach' against the local server once it listens" default:"false" env:"SPLITKB_USB_AUTO_ATTACH"`
	ConnectionTimeout time.Duration `kong:"-"`
}
