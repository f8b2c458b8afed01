// Package usb contains USB descriptor encoding and the device-level state
// machine that sits between a bus peripheral and its class drivers.
package usb

import (
	"bytes"
	"encoding/binary"
)

// USB descriptor type constants
const (
	DeviceDescType    = 0x01
	ConfigDescType    = 0x02
	StringDescType    = 0x03
	InterfaceDescType = 0x04
	EndpointDescType  = 0x05
	HIDDescType       = 0x21
	ReportDescType    = 0x22
)

// Descriptor lengths in bytes (fixed values from USB spec)
const (
	DeviceDescLen    = 18
	ConfigDescLen    = 9
	InterfaceDescLen = 9
	EndpointDescLen  = 7
	HIDDescLen       = 9
)

// Configuration attributes used by this device.
const (
	ConfigValue         = 1
	ConfigAttrBusPower  = 0x80
	ConfigAttrWakeup    = 0x20
	ConfigMaxPower100mA = 50 // in units of 2mA
)

// Descriptor holds all static descriptor data of a device.
type Descriptor struct {
	Device     DeviceDescriptor
	Interfaces []InterfaceConfig
	Strings    map[uint8]string
}

// InterfaceConfig holds the descriptors of one interface.
type InterfaceConfig struct {
	Descriptor    InterfaceDescriptor
	Endpoints     []EndpointDescriptor
	HIDDescriptor []byte // optional HID class descriptor (0x21)
	HIDReport     []byte // optional HID report descriptor (0x22)
}

// DeviceDescriptor represents the standard USB device descriptor.
// BLength and BDescriptorType are implied.
type DeviceDescriptor struct {
	BcdUSB             uint16
	BDeviceClass       uint8
	BDeviceSubClass    uint8
	BDeviceProtocol    uint8
	BMaxPacketSize0    uint8
	IDVendor           uint16
	IDProduct          uint16
	BcdDevice          uint16
	IManufacturer      uint8
	IProduct           uint8
	ISerialNumber      uint8
	BNumConfigurations uint8
	Speed              uint32 // 1=low, 2=full, 3=high, 4=super
}

// Bytes encodes the device descriptor.
func (d Descriptor) Bytes() []byte {
	var b bytes.Buffer
	dev := d.Device
	b.Write([]byte{DeviceDescLen, DeviceDescType})
	_ = binary.Write(&b, binary.LittleEndian, dev.BcdUSB)
	b.Write([]byte{dev.BDeviceClass, dev.BDeviceSubClass, dev.BDeviceProtocol, dev.BMaxPacketSize0})
	_ = binary.Write(&b, binary.LittleEndian, dev.IDVendor)
	_ = binary.Write(&b, binary.LittleEndian, dev.IDProduct)
	_ = binary.Write(&b, binary.LittleEndian, dev.BcdDevice)
	b.Write([]byte{dev.IManufacturer, dev.IProduct, dev.ISerialNumber, dev.BNumConfigurations})
	return b.Bytes()
}

// ConfigBytes encodes the full configuration descriptor: header, then for
// each interface its descriptor, HID class descriptor and endpoints.
func (d Descriptor) ConfigBytes() []byte {
	var b bytes.Buffer
	b.Write([]byte{ConfigDescLen, ConfigDescType, 0, 0}) // wTotalLength patched below
	b.Write([]byte{
		uint8(len(d.Interfaces)),
		ConfigValue,
		0, // iConfiguration
		ConfigAttrBusPower | ConfigAttrWakeup,
		ConfigMaxPower100mA,
	})
	for _, iface := range d.Interfaces {
		iface.Descriptor.Write(&b)
		b.Write(iface.HIDDescriptor)
		for _, ep := range iface.Endpoints {
			ep.Write(&b)
		}
	}
	data := b.Bytes()
	binary.LittleEndian.PutUint16(data[2:4], uint16(len(data)))
	return data
}

// StringBytes returns the string descriptor at index, or nil when absent.
// Index 0 carries the raw language ID list.
func (d Descriptor) StringBytes(index uint8) []byte {
	s, ok := d.Strings[index]
	if !ok {
		return nil
	}
	if index == 0 {
		return append([]byte{uint8(2 + len(s)), StringDescType}, s...)
	}
	return EncodeStringDescriptor(s)
}

// EncodeStringDescriptor converts a UTF-8 string to a USB string descriptor:
// bLength, bDescriptorType (0x03), then the UTF-16LE code units.
func EncodeStringDescriptor(s string) []byte {
	runes := []rune(s)
	buf := make([]byte, 2+len(runes)*2)
	buf[0] = uint8(len(buf))
	buf[1] = StringDescType
	for i, r := range runes {
		buf[2+i*2] = uint8(r)
		buf[2+i*2+1] = uint8(r >> 8)
	}
	return buf
}

// InterfaceDescriptor (9 bytes) for each interface altsetting.
type InterfaceDescriptor struct {
	BInterfaceNumber   uint8
	BAlternateSetting  uint8
	BNumEndpoints      uint8
	BInterfaceClass    uint8
	BInterfaceSubClass uint8
	BInterfaceProtocol uint8
	IInterface         uint8
}

func (i InterfaceDescriptor) Write(b *bytes.Buffer) {
	b.Write([]byte{
		InterfaceDescLen, InterfaceDescType,
		i.BInterfaceNumber, i.BAlternateSetting, i.BNumEndpoints,
		i.BInterfaceClass, i.BInterfaceSubClass, i.BInterfaceProtocol,
		i.IInterface,
	})
}

// EndpointDescriptor (7 bytes) for each endpoint.
type EndpointDescriptor struct {
	BEndpointAddress uint8
	BMAttributes     uint8
	WMaxPacketSize   uint16
	BInterval        uint8
}

func (e EndpointDescriptor) Write(b *bytes.Buffer) {
	b.Write([]byte{EndpointDescLen, EndpointDescType, e.BEndpointAddress, e.BMAttributes})
	_ = binary.Write(b, binary.LittleEndian, e.WMaxPacketSize)
	b.WriteByte(e.BInterval)
}

// HIDDescriptor is the HID class descriptor (0x21) with one subordinate
// report descriptor.
type HIDDescriptor struct {
	BcdHID            uint16
	BCountryCode      uint8
	WDescriptorLength uint16 // report descriptor length
}

// Bytes encodes the HID class descriptor.
func (h HIDDescriptor) Bytes() []byte {
	var b bytes.Buffer
	b.Write([]byte{HIDDescLen, HIDDescType})
	_ = binary.Write(&b, binary.LittleEndian, h.BcdHID)
	b.Write([]byte{h.BCountryCode, 1, ReportDescType})
	_ = binary.Write(&b, binary.LittleEndian, h.WDescriptorLength)
	return b.Bytes()
}
