// Package configpaths locates splitkb configuration and keymap files.
package configpaths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// EnvConfig names the environment variable holding an explicit config path.
const EnvConfig = "SPLITKB_CONFIG"

const systemDir = "/etc/splitkb"

// configBases are the file base names probed in every directory.
var configBases = []string{"splitkb", "config", "run"}

// DefaultConfigDir returns the platform-specific configuration directory.
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("AppData"); appdata != "" {
			return filepath.Join(appdata, "splitkb"), nil
		}
		return "", errors.New("AppData not set")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "splitkb"), nil
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".config", "splitkb"), nil
		}
		return "", errors.New("HOME not set")
	}
}

// DefaultNamedConfigPath returns the default path for base name and format
// (e.g. "keymap", "yaml") inside the configuration directory.
func DefaultNamedConfigPath(baseName, format string) (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, baseName+"."+Ext(format)), nil
}

// Ext maps a format name to its file extension.
func Ext(format string) string {
	switch format {
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return "json"
	}
}

// FormatOf infers a format name from a file extension, defaulting to json.
func FormatOf(path string) string {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return "json"
	}
}

// EnsureDir ensures the directory for a given file path exists.
func EnsureDir(filePath string) error {
	return os.MkdirAll(filepath.Dir(filePath), 0o755)
}

// ConfigCandidatePaths builds candidate paths for config files per format,
// in priority order: userPath, $SPLITKB_CONFIG, the working directory, the
// user config directory, then /etc/splitkb.
func ConfigCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	addFile := func(p string) {
		switch FormatOf(p) {
		case "yaml":
			yamlPaths = append(yamlPaths, p)
		case "toml":
			tomlPaths = append(tomlPaths, p)
		default:
			jsonPaths = append(jsonPaths, p)
		}
	}
	addDir := func(dir string) {
		for _, base := range configBases {
			jsonPaths = append(jsonPaths, filepath.Join(dir, base+".json"))
			yamlPaths = append(yamlPaths, filepath.Join(dir, base+".yaml"), filepath.Join(dir, base+".yml"))
			tomlPaths = append(tomlPaths, filepath.Join(dir, base+".toml"))
		}
	}

	if userPath != "" {
		addFile(userPath)
	}
	if env := os.Getenv(EnvConfig); env != "" {
		addFile(env)
	}
	if wd, err := os.Getwd(); err == nil {
		addDir(wd)
	}
	if dir, err := DefaultConfigDir(); err == nil {
		addDir(dir)
	}
	if runtime.GOOS != "windows" {
		addDir(systemDir)
	}
	return
}
