package cmd

import (
	"encoding/json"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/Alia5/splitkb/apiclient"
)

// CtlCommand talks to the control API of a running half.
type CtlCommand struct {
	Addr    string        `help:"Control API address" default:"127.0.0.1:3242" env:"SPLITKB_CTL_ADDR"`
	Timeout time.Duration `help:"Request timeout" default:"5s" env:"SPLITKB_CTL_TIMEOUT"`

	Status  CtlStatus  `cmd:"" help:"Print the status of the half"`
	Press   CtlPress   `cmd:"" help:"Close a switch until released"`
	Release CtlRelease `cmd:"" help:"Open a switch"`
	Tap     CtlTap     `cmd:"" help:"Press and release a switch"`
	Suspend CtlSuspend `cmd:"" help:"Signal USB suspend"`
	Resume  CtlResume  `cmd:"" help:"Signal USB resume"`
}

// AfterApply binds a client for the subcommands.
func (c *CtlCommand) AfterApply(ctx *kong.Context) error {
	ctx.Bind(apiclient.NewWithConfig(c.Addr, &apiclient.Config{
		DialTimeout:  c.Timeout,
		ReadTimeout:  c.Timeout,
		WriteTimeout: c.Timeout,
	}))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type CtlStatus struct{}

func (CtlStatus) Run(c *apiclient.Client) error {
	st, err := c.Status()
	if err != nil {
		return err
	}
	return printJSON(st)
}

// CtlSwitch addresses one switch of the local half.
type CtlSwitch struct {
	Row int `arg:"" help:"Matrix row"`
	Col int `arg:"" help:"Matrix column of the local half"`
}

type CtlPress struct {
	CtlSwitch `embed:""`
}

func (p *CtlPress) Run(c *apiclient.Client) error {
	out, err := c.Press(p.Row, p.Col)
	if err != nil {
		return err
	}
	return printJSON(out)
}

type CtlRelease struct {
	CtlSwitch `embed:""`
}

func (r *CtlRelease) Run(c *apiclient.Client) error {
	out, err := c.Release(r.Row, r.Col)
	if err != nil {
		return err
	}
	return printJSON(out)
}

type CtlTap struct {
	CtlSwitch `embed:""`
	Hold time.Duration `help:"How long the switch stays closed; zero uses the server default"`
}

func (t *CtlTap) Run(c *apiclient.Client) error {
	out, err := c.Tap(t.Row, t.Col, t.Hold)
	if err != nil {
		return err
	}
	return printJSON(out)
}

type CtlSuspend struct{}

func (CtlSuspend) Run(c *apiclient.Client) error {
	out, err := c.Suspend()
	if err != nil {
		return err
	}
	return printJSON(out)
}

type CtlResume struct{}

func (CtlResume) Run(c *apiclient.Client) error {
	out, err := c.Resume()
	if err != nil {
		return err
	}
	return printJSON(out)
}
