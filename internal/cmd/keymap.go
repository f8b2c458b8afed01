package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Alia5/splitkb/internal/configpaths"
	"github.com/Alia5/splitkb/internal/keymap"
)

// KeymapCommand groups keymap subcommands.
type KeymapCommand struct {
	Dump  KeymapDump  `cmd:"" help:"Write the built-in keymap"`
	Check KeymapCheck `cmd:"" help:"Load and validate a keymap file"`
}

// KeymapDump writes the built-in keymap as a starting point for a custom one.
type KeymapDump struct {
	Format string `help:"Output format" enum:"json,yaml,toml" default:"yaml"`
	Output string `help:"Destination file path; empty writes to stdout" type:"path"`
	Force  bool   `help:"Overwrite if the file already exists"`
}

func (d *KeymapDump) Run(logger *slog.Logger) error {
	data, err := keymap.Marshal(keymap.Default(), d.Format)
	if err != nil {
		return err
	}
	if d.Output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if !d.Force {
		if _, err := os.Stat(d.Output); err == nil {
			return fmt.Errorf("%s exists; use --force to overwrite", d.Output)
		}
	}
	if err := configpaths.EnsureDir(d.Output); err != nil {
		return err
	}
	if err := os.WriteFile(d.Output, data, 0o644); err != nil {
		return err
	}
	logger.Info("Wrote keymap", "path", d.Output, "format", d.Format)
	return nil
}

// KeymapCheck validates a keymap file and prints its shape.
type KeymapCheck struct {
	File string `arg:"" help:"Keymap file" type:"existingfile"`
}

func (c *KeymapCheck) Run() error {
	return checkKeymap(os.Stdout, c.File)
}

func checkKeymap(w io.Writer, path string) error {
	f, err := keymap.Load(path)
	if err != nil {
		return err
	}
	l, err := f.Layout()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	_, err = fmt.Fprintf(w, "%s: %d layers, %dx%d, %d hold-taps\n", path, len(f.Layers), l.Rows(), l.Cols(), len(f.HoldTaps))
	return err
}
