package usbip_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/splitkb/usbip"
)

func TestHeaderSizes(t *testing.T) {
	tests := []struct {
		name  string
		write func(*bytes.Buffer) error
	}{
		{name: "CmdSubmit", write: func(b *bytes.Buffer) error { return (&usbip.CmdSubmit{}).Write(b) }},
		{name: "RetSubmit", write: func(b *bytes.Buffer) error { return (&usbip.RetSubmit{}).Write(b) }},
		{name: "CmdUnlink", write: func(b *bytes.Buffer) error { return (&usbip.CmdUnlink{}).Write(b) }},
		{name: "RetUnlink", write: func(b *bytes.Buffer) error { return (&usbip.RetUnlink{}).Write(b) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b bytes.Buffer
			require.NoError(t, tt.write(&b))
			assert.Equal(t, usbip.URBHeaderSize, b.Len())
		})
	}
}

func TestReadURBSubmitOut(t *testing.T) {
	var b bytes.Buffer
	cmd := usbip.CmdSubmit{
		Basic:             usbip.HeaderBasic{Command: usbip.CmdSubmitCode, Seqnum: 9, Dir: usbip.DirOut, Ep: 1},
		TransferBufferLen: 1,
	}
	require.NoError(t, cmd.Write(&b))
	b.WriteByte(0x02)

	u, err := usbip.ReadURB(&b)
	require.NoError(t, err)
	require.NotNil(t, u.Submit)
	assert.Nil(t, u.Unlink)
	assert.Equal(t, uint32(9), u.Submit.Basic.Seqnum)
	assert.Equal(t, []byte{0x02}, u.Data)
}

func TestReadURBUnlink(t *testing.T) {
	var b bytes.Buffer
	cmd := usbip.CmdUnlink{Basic: usbip.HeaderBasic{Command: usbip.CmdUnlinkCode, Seqnum: 3}, UnlinkSeqnum: 2}
	require.NoError(t, cmd.Write(&b))

	u, err := usbip.ReadURB(&b)
	require.NoError(t, err)
	require.NotNil(t, u.Unlink)
	assert.Equal(t, uint32(2), u.Unlink.UnlinkSeqnum)
}

func TestReadURBRejectsUnknown(t *testing.T) {
	var hdr [usbip.URBHeaderSize]byte
	hdr[3] = 0x7F
	_, err := usbip.ReadURB(bytes.NewReader(hdr[:]))
	assert.Error(t, err)
}

func TestExportedDeviceEncoding(t *testing.T) {
	d := usbip.ExportedDevice{
		DeviceInfo: usbip.DeviceInfo{
			ExportMeta:     usbip.NewExportMeta("/sys/devices/usb", 1, 1),
			IDVendor:       0x1209,
			BNumInterfaces: 1,
		},
		Interfaces: []usbip.InterfaceDesc{{Class: 3, SubClass: 1, Protocol: 1}},
	}
	assert.Equal(t, "1-1", d.BusIDString())

	var imp, list bytes.Buffer
	require.NoError(t, d.WriteImport(&imp))
	require.NoError(t, d.WriteDevlist(&list))
	assert.Equal(t, 312, imp.Len())
	assert.Equal(t, imp.Len()+4, list.Len())
	assert.Equal(t, []byte{3, 1, 1, 0}, list.Bytes()[imp.Len():])
}
