package firmware

import (
	"strings"

	"github.com/denisbrodbeck/machineid"

	"github.com/Alia5/splitkb/hid"
	"github.com/Alia5/splitkb/usb"
)

// USB identity of the keyboard.
const (
	VendorID     = 0x16C0
	ProductID    = 0x27DB
	Manufacturer = "splitkb"
	Product      = "splitkb split keyboard"
)

const serialLen = 16

// SerialNumber derives a stable serial string from the host machine ID.
// The ID is hashed with the application name so the raw machine ID never
// leaves the host.
func SerialNumber() string {
	id, err := machineid.ProtectedID("splitkb")
	if err != nil || id == "" {
		return strings.Repeat("0", serialLen)
	}
	if len(id) > serialLen {
		id = id[:serialLen]
	}
	return strings.ToUpper(id)
}

// Descriptor returns the descriptor set of a single-interface boot
// keyboard with the given serial number.
func Descriptor(serial string) *usb.Descriptor {
	return &usb.Descriptor{
		Device: usb.DeviceDescriptor{
			BcdUSB:             0x0200,
			BMaxPacketSize0:    0x40,
			IDVendor:           VendorID,
			IDProduct:          ProductID,
			BcdDevice:          0x0100,
			IManufacturer:      0x01,
			IProduct:           0x02,
			ISerialNumber:      0x03,
			BNumConfigurations: 0x01,
			Speed:              2, // Full speed
		},
		Interfaces: []usb.InterfaceConfig{hid.KeyboardInterface(0)},
		Strings: map[uint8]string{
			0: "\x09\x04", // en-US
			1: Manufacturer,
			2: Product,
			3: serial,
		},
	}
}
