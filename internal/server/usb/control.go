package usb

import (
	"context"
	"encoding/binary"

	"github.com/Alia5/splitkb/usb"
	"github.com/Alia5/splitkb/usbip"
)

// processSubmit serves one URB: EP0 control requests are answered here,
// interrupt endpoints go through the bus.
func (s *Server) processSubmit(ctx context.Context, cmd *usbip.CmdSubmit, out []byte) ([]byte, error) {
	ep := uint8(cmd.Basic.Ep)
	if ep != 0 {
		if cmd.Basic.Dir == usbip.DirIn {
			return s.bus.TakeIn(ctx, ep, s.config.InWait), nil
		}
		s.bus.Out(ep, out)
		return nil, nil
	}

	setup := cmd.Setup[:]
	bm := setup[0]
	breq := setup[1]
	wValue := binary.LittleEndian.Uint16(setup[2:4])
	wIndex := binary.LittleEndian.Uint16(setup[4:6])
	wLength := binary.LittleEndian.Uint16(setup[6:8])
	desc := s.bus.Descriptor()

	var data []byte
	switch {
	case bm == reqTypeStandardFromDevice && breq == usbReqGetDescriptor:
		switch uint8(wValue >> 8) {
		case usb.DeviceDescType:
			data = desc.Bytes()
		case usb.ConfigDescType:
			data = desc.ConfigBytes()
		case usb.StringDescType:
			data = desc.StringBytes(uint8(wValue))
		}
		if data == nil {
			return nil, errStall
		}
	case bm == reqTypeStandardFromInterface && breq == usbReqGetDescriptor:
		iface, ok := s.iface(wIndex)
		if ok {
			switch uint8(wValue >> 8) {
			case usb.HIDDescType:
				data = iface.HIDDescriptor
			case usb.ReportDescType:
				data = iface.HIDReport
			}
		}
		if data == nil {
			return nil, errStall
		}
	case bm == reqTypeStandardToDevice && breq == usbReqSetAddress:
		// vhci handles addressing on the host side
	case bm == reqTypeStandardToDevice && breq == usbReqSetConfiguration:
		s.logger.Info("SET_CONFIGURATION", "value", uint8(wValue))
		s.bus.Configure(uint8(wValue))
	case bm == reqTypeStandardFromDevice && breq == usbReqGetConfiguration:
		data = []byte{s.bus.Configuration()}
	case bm&0x80 != 0 && breq == usbReqGetStatus:
		data = []byte{0, 0}
	case bm&0x60 == 0 && (breq == usbReqClearFeature || breq == usbReqSetFeature):
	case bm == reqTypeStandardFromInterface && breq == usbReqGetInterface:
		data = []byte{0}
	case bm == reqTypeStandardToInterface && breq == usbReqSetInterface:
	case bm == reqTypeClassToInterface && breq == hidReqSetIdle:
		s.idle = uint8(wValue >> 8)
	case bm == reqTypeClassFromInterface && breq == hidReqGetIdle:
		data = []byte{s.idle}
	case bm == reqTypeClassToInterface && breq == hidReqSetProtocol:
		s.protocol = uint8(wValue)
	case bm == reqTypeClassFromInterface && breq == hidReqGetProtocol:
		data = []byte{s.protocol}
	case bm == reqTypeClassToInterface && breq == hidReqSetReport:
		if ep, ok := s.outEndpoint(wIndex); ok {
			s.bus.Out(ep, out)
		}
	case bm == reqTypeClassFromInterface && breq == hidReqGetReport:
		data = make([]byte, wLength)
	default:
		return nil, errStall
	}
	if int(wLength) < len(data) {
		data = data[:wLength]
	}
	return data, nil
}

func (s *Server) iface(index uint16) (usb.InterfaceConfig, bool) {
	ifaces := s.bus.Descriptor().Interfaces
	if int(index&0xff) >= len(ifaces) {
		return usb.InterfaceConfig{}, false
	}
	return ifaces[index&0xff], true
}

// outEndpoint returns the interrupt OUT endpoint of the interface, where
// SET_REPORT output data is delivered.
func (s *Server) outEndpoint(index uint16) (uint8, bool) {
	iface, ok := s.iface(index)
	if !ok {
		return 0, false
	}
	for _, ep := range iface.Endpoints {
		if ep.BEndpointAddress&0x80 == 0 {
			return ep.BEndpointAddress & 0x0f, true
		}
	}
	return 0, false
}
