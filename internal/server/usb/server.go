// Package usb serves a virtual bus over USB/IP so the host OS can import the
// keyboard like a physical device.
package usb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Alia5/splitkb/internal/log"
	"github.com/Alia5/splitkb/usbip"
	"github.com/Alia5/splitkb/virtualbus"
)

const (
	// USB standard request codes
	usbReqGetStatus        = 0x00
	usbReqClearFeature     = 0x01
	usbReqSetFeature       = 0x03
	usbReqSetAddress       = 0x05
	usbReqGetDescriptor    = 0x06
	usbReqGetConfiguration = 0x08
	usbReqSetConfiguration = 0x09
	usbReqGetInterface     = 0x0A
	usbReqSetInterface     = 0x0B

	// HID class request codes
	hidReqGetReport   = 0x01
	hidReqGetIdle     = 0x02
	hidReqGetProtocol = 0x03
	hidReqSetReport   = 0x09
	hidReqSetIdle     = 0x0A
	hidReqSetProtocol = 0x0B

	// bmRequestType values
	reqTypeStandardToDevice      = 0x00
	reqTypeStandardToInterface   = 0x01
	reqTypeStandardFromDevice    = 0x80
	reqTypeStandardFromInterface = 0x81
	reqTypeClassToInterface      = 0x21
	reqTypeClassFromInterface    = 0xA1

	headerPeekSize = 8
)

// errStall marks a control request the device does not support.
var errStall = errors.New("stall")

type Server struct {
	config    *ServerConfig
	logger    *slog.Logger
	rawLogger log.RawLogger
	bus       *virtualbus.VirtualBus
	ready     chan struct{}
	readyOnce sync.Once
	ln        net.Listener

	idle     uint8
	protocol uint8
}

func New(config ServerConfig, bus *virtualbus.VirtualBus, logger *slog.Logger, rawLogger log.RawLogger) *Server {
	return &Server{
		config:    &config,
		logger:    logger,
		rawLogger: rawLogger,
		bus:       bus,
		ready:     make(chan struct{}),
		protocol:  1, // report protocol
	}
}

// ListenAndServe starts the USB-IP server and handles incoming connections.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.readyOnce.Do(func() { close(s.ready) })
	s.logger.Info("USBIP server listening", "addr", ln.Addr().String(), "busid", s.busID())
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.logger.Info("USBIP server stopped")
				return nil
			}
			s.logger.Error("Accept error", "error", err)
			continue
		}
		s.logger.Info("Client connected", "remote", c.RemoteAddr())
		go func() {
			if err := s.handleConn(c); err != nil {
				if isClientDisconnect(err) {
					s.logger.Info("Client disconnected", "error", err)
				} else {
					s.logger.Error("Connection handler error", "error", err)
				}
			}
		}()
	}
}

// Ready returns a channel that is closed once the server listens.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Close stops the USB server by closing its listener.
func (s *Server) Close() error {
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

// Addr returns the bound listen address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// GetListenPort returns the bound port, falling back to the configured one.
func (s *Server) GetListenPort() uint16 {
	addr := s.config.Addr
	if a := s.Addr(); a != nil {
		addr = a.String()
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(port)
}

func (s *Server) busID() string {
	meta := s.bus.Meta()
	return meta.BusIDString()
}

func (s *Server) handleConn(conn net.Conn) error {
	defer conn.Close()
	conn = &logConn{Conn: conn, s: s}
	if s.config.ConnectionTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(s.config.ConnectionTimeout)); err != nil {
			s.logger.Warn("Failed to set deadline", "error", err)
		}
	}

	hdr, err := usbip.ReadMgmtHeader(conn)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if hdr.Version != usbip.Version {
		return fmt.Errorf("unsupported USBIP version %#04x", hdr.Version)
	}
	switch hdr.Command {
	case usbip.OpReqDevlist:
		s.logger.Debug("OP_REQ_DEVLIST")
		return s.handleDevList(conn)
	case usbip.OpReqImport:
		s.logger.Debug("OP_REQ_IMPORT")
		if err := s.handleImport(conn); err != nil {
			return fmt.Errorf("handle import: %w", err)
		}
		return s.handleUrbStream(conn)
	}
	return fmt.Errorf("protocol violation: unexpected op %#04x", hdr.Command)
}

func (s *Server) exportedDevice() usbip.ExportedDevice {
	desc := s.bus.Descriptor()
	exp := usbip.ExportedDevice{DeviceInfo: usbip.DeviceInfo{
		ExportMeta:          s.bus.Meta(),
		Speed:               desc.Device.Speed,
		IDVendor:            desc.Device.IDVendor,
		IDProduct:           desc.Device.IDProduct,
		BcdDevice:           desc.Device.BcdDevice,
		BDeviceClass:        desc.Device.BDeviceClass,
		BDeviceSubClass:     desc.Device.BDeviceSubClass,
		BDeviceProtocol:     desc.Device.BDeviceProtocol,
		BConfigurationValue: s.bus.Configuration(),
		BNumConfigurations:  desc.Device.BNumConfigurations,
		BNumInterfaces:      uint8(len(desc.Interfaces)),
	}}
	for _, iface := range desc.Interfaces {
		exp.Interfaces = append(exp.Interfaces, usbip.InterfaceDesc{
			Class:    iface.Descriptor.BInterfaceClass,
			SubClass: iface.Descriptor.BInterfaceSubClass,
			Protocol: iface.Descriptor.BInterfaceProtocol,
		})
	}
	return exp
}

func (s *Server) handleDevList(conn net.Conn) error {
	var buf bytes.Buffer
	rep := usbip.MgmtHeader{Version: usbip.Version, Command: usbip.OpRepDevlist}
	_ = rep.Write(&buf)
	_ = binary.Write(&buf, binary.BigEndian, uint32(1))
	exp := s.exportedDevice()
	_ = exp.WriteDevlist(&buf)
	if _, err := conn.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write devlist: %w", err)
	}
	return nil
}

func (s *Server) handleImport(conn net.Conn) error {
	var req [usbip.BusIDSize]byte
	if err := usbip.ReadExactly(conn, req[:]); err != nil {
		return fmt.Errorf("read import busid: %w", err)
	}
	end := bytes.IndexByte(req[:], 0)
	if end < 0 {
		end = len(req)
	}
	reqBus := string(req[:end])
	s.logger.Info("Import request", "busid", reqBus)

	var buf bytes.Buffer
	rep := usbip.MgmtHeader{Version: usbip.Version, Command: usbip.OpRepImport}
	if reqBus != s.busID() {
		rep.Status = 1
		_ = rep.Write(&buf)
		_, _ = conn.Write(buf.Bytes())
		return fmt.Errorf("no device matches busid %s", reqBus)
	}
	if s.bus.Attached() {
		rep.Status = 1
		_ = rep.Write(&buf)
		_, _ = conn.Write(buf.Bytes())
		return virtualbus.ErrAttached
	}
	_ = rep.Write(&buf)
	exp := s.exportedDevice()
	_ = exp.WriteImport(&buf)
	if _, err := conn.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write import reply failed: %w", err)
	}
	return nil
}

type logConn struct {
	net.Conn
	s *Server
}

func (lc *logConn) Read(p []byte) (int, error) {
	n, err := lc.Conn.Read(p)
	if n > 0 && lc.s.rawLogger != nil {
		lc.s.rawLogger.Log(true, p[:n])
	}
	return n, err
}

func (lc *logConn) Write(p []byte) (int, error) {
	n, err := lc.Conn.Write(p)
	if n > 0 && lc.s.rawLogger != nil {
		lc.s.rawLogger.Log(false, p[:n])
	}
	return n, err
}

func (s *Server) handleUrbStream(conn net.Conn) error {
	_ = conn.SetDeadline(time.Time{})

	ctx, err := s.bus.Attach()
	if err != nil {
		return err
	}
	defer s.bus.Detach()
	s.logger.Info("Keyboard attached", "busid", s.busID())
	defer s.logger.Info("Keyboard detached", "busid", s.busID())

	go func() {
		// Unblock the read below once the bus drops the host.
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	for {
		urb, err := usbip.ReadURB(conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read URB: %w", err)
		}
		if u := urb.Unlink; u != nil {
			s.logger.Debug("USBIP_CMD_UNLINK", "seq", u.Basic.Seqnum, "unlink", u.UnlinkSeqnum)
			ret := usbip.RetUnlink{
				Basic:  usbip.HeaderBasic{Command: usbip.RetUnlinkCode, Seqnum: u.Basic.Seqnum},
				Status: usbip.StatusConnReset,
			}
			if err := ret.Write(conn); err != nil {
				return fmt.Errorf("write RET_UNLINK: %w", err)
			}
			continue
		}

		cmd := urb.Submit
		status := int32(usbip.StatusOK)
		resp, err := s.processSubmit(ctx, cmd, urb.Data)
		if errors.Is(err, errStall) {
			s.logger.Debug("Control request stalled", "setup", fmt.Sprintf("% x", cmd.Setup))
			status = usbip.StatusPipe
		}
		if cmd.Basic.Dir == usbip.DirIn && uint32(len(resp)) > cmd.TransferBufferLen {
			resp = resp[:cmd.TransferBufferLen]
		}
		actual := uint32(len(resp))
		if cmd.Basic.Dir == usbip.DirOut {
			actual = uint32(len(urb.Data))
			resp = nil
		}

		ret := usbip.RetSubmit{
			Basic:        usbip.HeaderBasic{Command: usbip.RetSubmitCode, Seqnum: cmd.Basic.Seqnum},
			Status:       status,
			ActualLength: actual,
		}
		var out bytes.Buffer
		_ = ret.Write(&out)
		out.Write(resp)
		if _, err := conn.Write(out.Bytes()); err != nil {
			return fmt.Errorf("write RET_SUBMIT: %w", err)
		}
	}
}

// isClientDisconnect tests whether an error represents a normal client
// disconnect (EOF, ECONNRESET or broken pipe).
func isClientDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	e := strings.ToLower(err.Error())
	return strings.Contains(e, "connection reset by peer") || strings.Contains(e, "forcibly closed")
}
