package configpaths_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/splitkb/internal/configpaths"
)

func TestConfigCandidatePathsOrder(t *testing.T) {
	t.Setenv(configpaths.EnvConfig, "/tmp/env.toml")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths("/tmp/user.yml")

	require.NotEmpty(t, yamlPaths)
	assert.Equal(t, "/tmp/user.yml", yamlPaths[0])
	require.NotEmpty(t, tomlPaths)
	assert.Equal(t, "/tmp/env.toml", tomlPaths[0])
	assert.Contains(t, jsonPaths, filepath.Join("/xdg", "splitkb", "splitkb.json"))
}

func TestFormatHelpers(t *testing.T) {
	tests := []struct {
		path   string
		format string
	}{
		{path: "a.yml", format: "yaml"},
		{path: "a.yaml", format: "yaml"},
		{path: "a.toml", format: "toml"},
		{path: "a.json", format: "json"},
		{path: "a", format: "json"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.format, configpaths.FormatOf(tt.path))
		})
	}
	assert.Equal(t, "yaml", configpaths.Ext("yml"))
	assert.Equal(t, "json", configpaths.Ext(""))
}

func TestDefaultNamedConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	p, err := configpaths.DefaultNamedConfigPath("keymap", "toml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "splitkb", "keymap.toml"), p)
}
