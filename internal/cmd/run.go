package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/Alia5/splitkb/event"
	"github.com/Alia5/splitkb/internal/firmware"
	"github.com/Alia5/splitkb/internal/keymap"
	"github.com/Alia5/splitkb/internal/link"
	"github.com/Alia5/splitkb/internal/log"
	"github.com/Alia5/splitkb/internal/server/api"
	"github.com/Alia5/splitkb/internal/server/api/handler"
	"github.com/Alia5/splitkb/internal/server/usb"
	"github.com/Alia5/splitkb/internal/sim"
	"github.com/Alia5/splitkb/internal/tui"
	"github.com/Alia5/splitkb/virtualbus"
)

// TUI modes.
const (
	TUIAuto = "auto"
	TUIOn   = "on"
	TUIOff  = "off"
)

// Run starts one half on a simulated matrix, links it to its peer and
// exports its keyboard over USB-IP.
type Run struct {
	Side              string           `help:"Which half this is; the right half is wired flipped" enum:"left,right" default:"left" env:"SPLITKB_SIDE"`
	Keymap            string           `help:"Keymap file (json, yaml or toml); empty uses the built-in layout" type:"path" env:"SPLITKB_KEYMAP"`
	TUI               string           `name:"tui" help:"Terminal UI" enum:"auto,on,off" default:"auto" env:"SPLITKB_TUI"`
	Core              firmware.Config  `embed:"" prefix:"core."`
	Link              link.Config      `embed:"" prefix:"link."`
	UsbServerConfig   usb.ServerConfig `embed:"" prefix:"usb."`
	ApiServerConfig   api.ServerConfig `embed:"" prefix:"api."`
	ConnectionTimeout time.Duration    `help:"Network operation timeout" default:"30s" env:"SPLITKB_CONNECTION_TIMEOUT"`
}

// TUIActive reports whether the run draws the terminal UI, which takes
// over stdout.
func (r *Run) TUIActive() bool {
	switch r.TUI {
	case TUIOn:
		return true
	case TUIOff:
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.Start(ctx, logger, rawLogger)
}

// Half is a fully wired half on a simulated matrix.
type Half struct {
	Firmware *firmware.Firmware
	Matrix   *sim.Matrix
	UART     *link.UART
	Bus      *virtualbus.VirtualBus

	dialer link.Dialer
}

// Close releases the link and the bus.
func (h *Half) Close() {
	_ = h.dialer.Close()
	_ = h.Bus.Close()
}

// Build wires the core of one half without starting it.
func (r *Run) Build(logger *slog.Logger, rawLogger log.RawLogger) (*Half, error) {
	side, err := event.ParseSide(r.Side)
	if err != nil {
		return nil, err
	}

	km := keymap.Default()
	if r.Keymap != "" {
		if km, err = keymap.Load(r.Keymap); err != nil {
			return nil, err
		}
	}
	lay, err := km.Layout()
	if err != nil {
		return nil, fmt.Errorf("keymap: %w", err)
	}

	m := sim.NewMatrix(lay.Rows(), lay.Cols()/2)

	dialer, err := link.NewDialer(r.Link, side)
	if err != nil {
		return nil, err
	}
	uart := link.New(dialer, r.Link.Baud, r.Link.Retry, logger.With("component", "link"), log.Labeled(rawLogger, "link"))

	bus, err := virtualbus.New(r.UsbServerConfig.BusID, firmware.Descriptor(firmware.SerialNumber()))
	if err != nil {
		_ = dialer.Close()
		return nil, err
	}

	fw, err := firmware.New(r.Core, firmware.Board{
		Cols: m.ColPins(),
		Rows: m.RowPins(),
		// The orientation strap pulls low on the right half.
		Orientation: sim.NewPin(side == event.Right),
		StatusLED:   sim.NewPin(true),
		PowerLED:    sim.NewPin(true),
		Serial:      uart,
		USB:         bus,
	}, lay, logger.With("component", "core"))
	if err != nil {
		_ = dialer.Close()
		_ = bus.Close()
		return nil, err
	}
	return &Half{Firmware: fw, Matrix: m, UART: uart, Bus: bus, dialer: dialer}, nil
}

// Start runs the half until ctx ends or the core faults.
func (r *Run) Start(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	r.UsbServerConfig.ConnectionTimeout = r.ConnectionTimeout
	r.ApiServerConfig.ConnectionTimeout = r.ConnectionTimeout

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	half, err := r.Build(logger, rawLogger)
	if err != nil {
		return err
	}
	defer half.Close()

	logger.Info("Starting splitkb half", "side", half.Firmware.Side(), "link", r.Link.Transport, "version", Version)

	go half.UART.Run(ctx)

	fwErrCh := make(chan error, 1)
	go func() {
		fwErrCh <- half.Firmware.Run(ctx)
	}()

	var usbSrv *usb.Server
	usbErrCh := make(chan error, 1)
	if r.UsbServerConfig.Addr != "" {
		usbSrv = usb.New(r.UsbServerConfig, half.Bus, logger.With("component", "usbip"), rawLogger)
		go func() {
			usbErrCh <- usbSrv.ListenAndServe()
		}()
		select {
		case err := <-usbErrCh:
			return err
		case <-usbSrv.Ready():
		}
		defer func() { _ = usbSrv.Close() }()

		if r.UsbServerConfig.AutoAttach {
			if !usb.CheckAutoAttachPrerequisites(logger) {
				logger.Warn("Auto-attach prerequisites not met")
			} else {
				go func() {
					if err := usb.AttachLocalhostClient(ctx, half.Bus.Meta(), usbSrv.GetListenPort(), logger); err != nil {
						logger.Error("Auto-attach failed", "error", err)
					}
				}()
			}
		}
	}

	if r.ApiServerConfig.Addr != "" {
		apiSrv := api.New(r.ApiServerConfig, logger.With("component", "api"))
		handler.Register(apiSrv.Router(), Version, half.Firmware, r.Link.Transport, half.UART, half.Matrix, half.Bus)
		if err := apiSrv.Start(); err != nil {
			logger.Error("failed to start API server", "error", err)
			return err
		}
		defer apiSrv.Close()
	}

	tuiErrCh := make(chan error, 1)
	if r.TUIActive() {
		go func() {
			err := tui.Run(tui.Config{
				Status:   half.Firmware,
				Link:     half.UART,
				Switches: half.Matrix,
			}, tea.WithContext(ctx))
			if errors.Is(err, tea.ErrProgramKilled) {
				err = nil
			}
			tuiErrCh <- err
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		cancel()
		<-fwErrCh
		return nil
	case err := <-fwErrCh:
		return err
	case err := <-usbErrCh:
		return err
	case err := <-tuiErrCh:
		cancel()
		<-fwErrCh
		return err
	}
}
