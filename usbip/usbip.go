// Package usbip encodes the USB/IP wire protocol: the management operations
// used to list and import a device, and the URB submit/unlink stream that
// follows an import. All integers are big-endian.
package usbip

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Wire constants
const (
	Version = 0x0111

	// Management commands
	OpReqDevlist = 0x8005
	OpRepDevlist = 0x0005
	OpReqImport  = 0x8003
	OpRepImport  = 0x0003

	// URB transfer commands
	CmdSubmitCode = 0x00000001
	CmdUnlinkCode = 0x00000002
	RetSubmitCode = 0x00000003
	RetUnlinkCode = 0x00000004

	// Directions used in HeaderBasic.Dir
	DirOut = 0x00000000
	DirIn  = 0x00000001

	// URBHeaderSize is the fixed size of every URB command and reply header.
	URBHeaderSize = 0x30

	// BusIDSize is the size of the bus ID field of an import request.
	BusIDSize = 32
)

// Status values for RetSubmit/RetUnlink.
const (
	StatusOK        = 0
	StatusConnReset = -104 // -ECONNRESET
	StatusPipe      = -32  // -EPIPE, stalled control request
)

// MgmtHeader is the 8-byte header for management ops (devlist/import).
type MgmtHeader struct {
	Version uint16
	Command uint16
	Status  uint32
}

func (h *MgmtHeader) Write(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, h)
}

// ReadMgmtHeader reads a management header.
func ReadMgmtHeader(r io.Reader) (MgmtHeader, error) {
	var h MgmtHeader
	err := binary.Read(r, binary.BigEndian, &h)
	return h, err
}

// ExportMeta carries USB-IP bus identity for an exported device.
type ExportMeta struct {
	Path     [256]byte
	USBBusId [32]byte
	BusId    uint32
	DevId    uint32
}

// BusIDString returns USBBusId without its NUL padding.
func (m *ExportMeta) BusIDString() string {
	if i := bytes.IndexByte(m.USBBusId[:], 0); i >= 0 {
		return string(m.USBBusId[:i])
	}
	return string(m.USBBusId[:])
}

// NewExportMeta fills an ExportMeta for device devID on bus busID below
// the sysfs-like base path.
func NewExportMeta(basePath string, busID, devID uint32) ExportMeta {
	busDevID := fmt.Sprintf("%d-%d", busID, devID)
	var m ExportMeta
	copy(m.Path[:], fmt.Sprintf("%s%d/%s", basePath, busID, busDevID))
	copy(m.USBBusId[:], busDevID)
	m.BusId = busID
	m.DevId = devID
	return m
}

// DeviceInfo is the fixed part of a device entry in devlist/import replies.
type DeviceInfo struct {
	ExportMeta
	Speed uint32

	IDVendor            uint16
	IDProduct           uint16
	BcdDevice           uint16
	BDeviceClass        uint8
	BDeviceSubClass     uint8
	BDeviceProtocol     uint8
	BConfigurationValue uint8
	BNumConfigurations  uint8
	BNumInterfaces      uint8
}

// InterfaceDesc is one interface triplet of a devlist entry.
type InterfaceDesc struct {
	Class    uint8
	SubClass uint8
	Protocol uint8
	_        uint8
}

// ExportedDevice describes one exported device.
type ExportedDevice struct {
	DeviceInfo
	Interfaces []InterfaceDesc
}

// WriteDevlist writes the entry for OP_REP_DEVLIST, interfaces included.
func (d *ExportedDevice) WriteDevlist(w io.Writer) error {
	if err := d.WriteImport(w); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, d.Interfaces)
}

// WriteImport writes the entry for OP_REP_IMPORT, which ends at
// bNumInterfaces.
func (d *ExportedDevice) WriteImport(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, &d.DeviceInfo)
}

// HeaderBasic is common to all URB cmds and replies.
type HeaderBasic struct {
	Command uint32
	Seqnum  uint32
	Devid   uint32
	Dir     uint32
	Ep      uint32
}

// CmdSubmit is the USBIP_CMD_SUBMIT header.
type CmdSubmit struct {
	Basic             HeaderBasic
	TransferFlags     uint32
	TransferBufferLen uint32
	StartFrame        uint32
	NumberOfPackets   uint32
	Interval          uint32
	Setup             [8]byte
}

// RetSubmit is the USBIP_RET_SUBMIT header.
type RetSubmit struct {
	Basic           HeaderBasic
	Status          int32
	ActualLength    uint32
	StartFrame      uint32
	NumberOfPackets uint32
	ErrorCount      uint32
	Padding         [8]byte
}

// CmdUnlink is the USBIP_CMD_UNLINK header.
type CmdUnlink struct {
	Basic        HeaderBasic
	UnlinkSeqnum uint32
	Padding      [24]byte
}

// RetUnlink is the USBIP_RET_UNLINK header.
type RetUnlink struct {
	Basic   HeaderBasic
	Status  int32
	Padding [24]byte
}

func (c *CmdSubmit) Write(w io.Writer) error { return binary.Write(w, binary.BigEndian, c) }
func (r *RetSubmit) Write(w io.Writer) error { return binary.Write(w, binary.BigEndian, r) }
func (c *CmdUnlink) Write(w io.Writer) error { return binary.Write(w, binary.BigEndian, c) }
func (r *RetUnlink) Write(w io.Writer) error { return binary.Write(w, binary.BigEndian, r) }

// URB is one decoded command from the URB stream. Exactly one of Submit
// and Unlink is set.
type URB struct {
	Submit *CmdSubmit
	Unlink *CmdUnlink
	// Data is the OUT payload of a submit.
	Data []byte
}

// ReadURB reads one command header and, for OUT submits, its payload.
func ReadURB(r io.Reader) (URB, error) {
	var hdr [URBHeaderSize]byte
	if err := ReadExactly(r, hdr[:]); err != nil {
		return URB{}, err
	}
	switch cmd := binary.BigEndian.Uint32(hdr[0:4]); cmd {
	case CmdSubmitCode:
		var c CmdSubmit
		_ = binary.Read(bytes.NewReader(hdr[:]), binary.BigEndian, &c)
		u := URB{Submit: &c}
		if c.Basic.Dir == DirOut && c.TransferBufferLen > 0 {
			u.Data = make([]byte, c.TransferBufferLen)
			if err := ReadExactly(r, u.Data); err != nil {
				return URB{}, fmt.Errorf("read OUT payload: %w", err)
			}
		}
		return u, nil
	case CmdUnlinkCode:
		var c CmdUnlink
		_ = binary.Read(bytes.NewReader(hdr[:]), binary.BigEndian, &c)
		return URB{Unlink: &c}, nil
	default:
		return URB{}, fmt.Errorf("unsupported URB command %#x", cmd)
	}
}

// ReadExactly fills buf from r.
func ReadExactly(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}
