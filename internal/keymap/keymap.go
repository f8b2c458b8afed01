// Package keymap loads keymap files and compiles them into layout layers.
//
// A keymap file lists layers of rows of action strings plus a table of named
// hold-tap definitions. Action syntax:
//
//	trans            fall through to the layer below
//	k(Name)          keycode, e.g. k(Q), k(BSpace)
//	l(N)             hold layer N
//	m(A,B,...)       several keycodes at once
//	s(Name), c(Name) shorthand for m(LShift,Name) and m(LCtrl,Name)
//	ht(NAME)         hold-tap from the hold_taps table
package keymap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/splitkb/internal/configpaths"
	"github.com/Alia5/splitkb/keycode"
	"github.com/Alia5/splitkb/layout"
)

// File is the on-disk keymap.
type File struct {
	HoldTaps map[string]HoldTapDef `json:"hold_taps,omitempty" yaml:"hold_taps,omitempty" toml:"hold_taps,omitempty"`
	Layers   []LayerDef            `json:"layers" yaml:"layers" toml:"layers"`
}

// HoldTapDef defines a named hold-tap action.
type HoldTapDef struct {
	Timeout uint16 `json:"timeout" yaml:"timeout" toml:"timeout"`
	Config  string `json:"config" yaml:"config" toml:"config"`
	Hold    string `json:"hold" yaml:"hold" toml:"hold"`
	Tap     string `json:"tap" yaml:"tap" toml:"tap"`
}

// LayerDef is one layer, row-major.
type LayerDef struct {
	Name string     `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Rows [][]string `json:"rows" yaml:"rows" toml:"rows"`
}

// Load reads a keymap file, picking the decoder from the extension.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	f, err := Unmarshal(data, configpaths.FormatOf(path))
	if err != nil {
		return File{}, fmt.Errorf("keymap %s: %w", path, err)
	}
	return f, nil
}

// Unmarshal decodes a keymap in format json, yaml or toml.
func Unmarshal(data []byte, format string) (File, error) {
	var f File
	var err error
	switch format {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &f)
	case "toml":
		err = toml.Unmarshal(data, &f)
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&f)
	default:
		return File{}, fmt.Errorf("unsupported format %q", format)
	}
	return f, err
}

// Marshal encodes f in format json, yaml or toml.
func Marshal(f File, format string) ([]byte, error) {
	switch format {
	case "yaml", "yml":
		return yaml.Marshal(f)
	case "toml":
		return toml.Marshal(f)
	case "json":
		return json.MarshalIndent(f, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Compile resolves every action string and returns the layers.
func (f File) Compile() (layout.Layers, error) {
	holdTaps := make(map[string]layout.Action, len(f.HoldTaps))
	for name, def := range f.HoldTaps {
		ht, err := def.compile()
		if err != nil {
			return nil, fmt.Errorf("hold-tap %s: %w", name, err)
		}
		holdTaps[name] = ht
	}

	layers := make(layout.Layers, len(f.Layers))
	for li, ld := range f.Layers {
		layers[li] = make([][]layout.Action, len(ld.Rows))
		for r, row := range ld.Rows {
			layers[li][r] = make([]layout.Action, len(row))
			for c, s := range row {
				a, err := parseAction(s, holdTaps)
				if err != nil {
					return nil, fmt.Errorf("layer %d (%s) row %d col %d: %w", li, ld.Name, r, c, err)
				}
				layers[li][r][c] = a
			}
		}
	}
	return layers, nil
}

// Layout compiles f and validates it into a ready layout engine.
func (f File) Layout() (*layout.Layout, error) {
	layers, err := f.Compile()
	if err != nil {
		return nil, err
	}
	return layout.New(layers)
}

func (d HoldTapDef) compile() (layout.Action, error) {
	cfg, err := layout.ParseHoldTapConfig(d.Config)
	if err != nil {
		return nil, err
	}
	hold, err := parseAction(d.Hold, nil)
	if err != nil {
		return nil, fmt.Errorf("hold: %w", err)
	}
	tap, err := parseAction(d.Tap, nil)
	if err != nil {
		return nil, fmt.Errorf("tap: %w", err)
	}
	timeout := d.Timeout
	if timeout == 0 {
		timeout = layout.DefaultTimeout
	}
	return layout.HoldTap{Timeout: timeout, Config: cfg, Hold: hold, Tap: tap}, nil
}

// parseAction parses one action string. holdTaps is nil where ht() is not
// allowed.
func parseAction(s string, holdTaps map[string]layout.Action) (layout.Action, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "trans") {
		return layout.T, nil
	}
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("malformed action %q", s)
	}
	fn := strings.ToLower(s[:open])
	arg := s[open+1 : len(s)-1]

	switch fn {
	case "k":
		k, err := keycode.Parse(arg)
		if err != nil {
			return nil, err
		}
		return layout.K(k), nil
	case "l":
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return nil, fmt.Errorf("layer index %q: %w", arg, err)
		}
		return layout.L(n), nil
	case "m":
		var codes []keycode.KeyCode
		for _, name := range strings.Split(arg, ",") {
			k, err := keycode.Parse(name)
			if err != nil {
				return nil, err
			}
			codes = append(codes, k)
		}
		return layout.M(codes...), nil
	case "s", "c":
		k, err := keycode.Parse(arg)
		if err != nil {
			return nil, err
		}
		mod := keycode.LShift
		if fn == "c" {
			mod = keycode.LCtrl
		}
		return layout.M(mod, k), nil
	case "ht":
		if holdTaps == nil {
			return nil, fmt.Errorf("hold-tap %q not allowed here", arg)
		}
		a, ok := holdTaps[strings.TrimSpace(arg)]
		if !ok {
			return nil, fmt.Errorf("unknown hold-tap %q", arg)
		}
		return a, nil
	}
	return nil, fmt.Errorf("unknown action %q", s)
}
