package cmd_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/splitkb/event"
	"github.com/Alia5/splitkb/internal/cmd"
	"github.com/Alia5/splitkb/internal/keymap"
	"github.com/Alia5/splitkb/internal/link"
	"github.com/Alia5/splitkb/internal/log"
	th "github.com/Alia5/splitkb/internal/testing"
)

func TestConfigInitTemplate(t *testing.T) {
	tests := []struct {
		format string
		decode func([]byte, any) error
	}{
		{format: "json", decode: json.Unmarshal},
		{format: "yaml", decode: yaml.Unmarshal},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "splitkb."+tt.format)
			c := &cmd.ConfigInit{Command: "run", Format: tt.format, Output: dest}
			require.NoError(t, c.Run(th.DiscardLogger()))

			data, err := os.ReadFile(dest)
			require.NoError(t, err)
			var got map[string]any
			require.NoError(t, tt.decode(data, &got))

			assert.Equal(t, "left", got["side"])
			assert.Equal(t, "auto", got["tui"])
			assert.Equal(t, "30s", got["connection-timeout"])
			linkCfg, ok := got["link"].(map[string]any)
			require.True(t, ok, "link section")
			assert.Equal(t, "none", linkCfg["transport"])
			assert.Equal(t, "127.0.0.1:3241", linkCfg["addr"])
			core, ok := got["core"].(map[string]any)
			require.True(t, ok, "core section")
			assert.Equal(t, "1ms", core["scan-period"])
			assert.EqualValues(t, 8, core["queue-capacity"])
			usbCfg, ok := got["usb"].(map[string]any)
			require.True(t, ok, "usb section")
			assert.Equal(t, ":3240", usbCfg["addr"])
			assert.NotContains(t, usbCfg, "connection-timeout")

			err = c.Run(th.DiscardLogger())
			assert.Error(t, err, "existing file without --force")
			c.Force = true
			assert.NoError(t, c.Run(th.DiscardLogger()))
		})
	}
}

func TestKeymapDumpThenCheck(t *testing.T) {
	for _, format := range []string{"json", "yaml", "toml"} {
		t.Run(format, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "keymap."+format)
			d := &cmd.KeymapDump{Format: format, Output: dest}
			require.NoError(t, d.Run(th.DiscardLogger()))

			f, err := keymap.Load(dest)
			require.NoError(t, err)
			assert.Equal(t, keymap.Default(), f)

			assert.NoError(t, (&cmd.KeymapCheck{File: dest}).Run())
		})
	}
}

func TestKeymapCheckRejectsBadAction(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(dest, []byte("layers:\n  - name: base\n    rows:\n      - [\"k(Nope)\"]\n"), 0o644))
	err := (&cmd.KeymapCheck{File: dest}).Run()
	assert.ErrorContains(t, err, "layer 0")
}

func TestBuildHalf(t *testing.T) {
	tests := []struct {
		side string
		want event.Side
	}{
		{side: "left", want: event.Left},
		{side: "right", want: event.Right},
	}
	for _, tt := range tests {
		t.Run(tt.side, func(t *testing.T) {
			r := &cmd.Run{Side: tt.side, Link: link.Config{Transport: link.TransportNone}}
			half, err := r.Build(th.DiscardLogger(), log.NewRaw(nil))
			require.NoError(t, err)
			defer half.Close()

			assert.Equal(t, tt.want, half.Firmware.Side())
			assert.Equal(t, keymap.Rows, half.Matrix.Rows())
			assert.Equal(t, keymap.Cols/2, half.Matrix.Cols())
		})
	}
}

func TestBuildHalfErrors(t *testing.T) {
	_, err := (&cmd.Run{Side: "middle"}).Build(th.DiscardLogger(), log.NewRaw(nil))
	assert.Error(t, err)

	_, err = (&cmd.Run{Side: "left", Keymap: filepath.Join(t.TempDir(), "missing.yaml")}).Build(th.DiscardLogger(), log.NewRaw(nil))
	assert.Error(t, err)

	_, err = (&cmd.Run{Side: "left", Link: link.Config{Transport: "carrier-pigeon"}}).Build(th.DiscardLogger(), log.NewRaw(nil))
	assert.Error(t, err)
}
