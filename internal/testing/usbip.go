package testing

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Alia5/splitkb/usbip"
)

// USBIPClient imports the exported keyboard the way the kernel vhci driver
// does and drives its endpoints.
type USBIPClient struct {
	address string
	seq     uint32
}

func NewUSBIPClient(t *testing.T, addr string) *USBIPClient {
	t.Helper()
	return &USBIPClient{address: addr}
}

func (c *USBIPClient) nextSeq() uint32 {
	return atomic.AddUint32(&c.seq, 1)
}

// Import attaches to busID. The returned connection carries URBs.
func (c *USBIPClient) Import(busID string) (net.Conn, usbip.DeviceInfo, error) {
	var info usbip.DeviceInfo
	conn, err := net.Dial("tcp", c.address)
	if err != nil {
		return nil, info, err
	}

	if err := (&usbip.MgmtHeader{Version: usbip.Version, Command: usbip.OpReqImport}).Write(conn); err != nil {
		conn.Close()
		return nil, info, err
	}
	var bus [usbip.BusIDSize]byte
	copy(bus[:], busID)
	if _, err := conn.Write(bus[:]); err != nil {
		conn.Close()
		return nil, info, err
	}

	rep, err := usbip.ReadMgmtHeader(conn)
	if err != nil {
		conn.Close()
		return nil, info, err
	}
	if rep.Command != usbip.OpRepImport {
		conn.Close()
		return nil, info, fmt.Errorf("unexpected reply command %x", rep.Command)
	}
	if rep.Status != 0 {
		conn.Close()
		return nil, info, fmt.Errorf("import status %d", rep.Status)
	}
	if err := binary.Read(conn, binary.BigEndian, &info); err != nil {
		conn.Close()
		return nil, info, err
	}
	return conn, info, nil
}

// Submit sends one URB and returns the IN payload.
func (c *USBIPClient) Submit(conn net.Conn, dir, ep uint32, setup [8]byte, length uint32, out []byte, timeout time.Duration) ([]byte, error) {
	cmd := usbip.CmdSubmit{
		Basic:             usbip.HeaderBasic{Command: usbip.CmdSubmitCode, Seqnum: c.nextSeq(), Dir: dir, Ep: ep},
		TransferBufferLen: length,
		Setup:             setup,
	}
	var b bytes.Buffer
	if err := cmd.Write(&b); err != nil {
		return nil, err
	}
	b.Write(out)

	_ = conn.SetDeadline(time.Now().Add(timeout))
	defer func() { _ = conn.SetDeadline(time.Time{}) }()
	if _, err := conn.Write(b.Bytes()); err != nil {
		return nil, err
	}

	var ret usbip.RetSubmit
	if err := binary.Read(conn, binary.BigEndian, &ret); err != nil {
		return nil, err
	}
	if ret.Basic.Command != usbip.RetSubmitCode {
		return nil, fmt.Errorf("unexpected ret cmd %x", ret.Basic.Command)
	}
	if ret.Status != 0 {
		return nil, fmt.Errorf("ret status %d", ret.Status)
	}
	data := []byte{}
	if dir == usbip.DirIn && ret.ActualLength > 0 {
		data = make([]byte, ret.ActualLength)
		if err := usbip.ReadExactly(conn, data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// SetConfiguration selects configuration value on EP0.
func (c *USBIPClient) SetConfiguration(conn net.Conn, value uint8) error {
	setup := [8]byte{0x00, 0x09, value}
	_, err := c.Submit(conn, usbip.DirOut, 0, setup, 0, nil, time.Second)
	return err
}

// ReadInputReport polls the interrupt IN endpoint once.
func (c *USBIPClient) ReadInputReport(conn net.Conn) ([]byte, error) {
	return c.Submit(conn, usbip.DirIn, 1, [8]byte{}, 64, nil, time.Second)
}

// PollInputReport reads reports until one equals want or timeout passes,
// returning the last report seen.
func (c *USBIPClient) PollInputReport(conn net.Conn, want []byte, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	var last []byte
	for {
		got, err := c.ReadInputReport(conn)
		if err != nil {
			return nil, err
		}
		if len(got) > 0 {
			last = got
		}
		if bytes.Equal(got, want) {
			return got, nil
		}
		if time.Now().After(deadline) {
			return last, nil
		}
		time.Sleep(time.Millisecond)
	}
}
