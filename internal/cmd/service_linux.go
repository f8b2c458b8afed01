//go:build linux

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	serviceName = "splitkb.service"
	servicePath = "/etc/systemd/system/splitkb.service"
)

func install(logger *slog.Logger, args []string) error {
	exePath, err := os.Executable()
	if err != nil {
		return err
	}
	if exePath, err = filepath.EvalSymlinks(exePath); err != nil {
		return err
	}

	unit := systemdUnitContent(exePath, args)
	if err := os.WriteFile(servicePath, []byte(unit), 0o644); err != nil {
		return err
	}

	steps := [][]string{
		{"daemon-reload"},
		{"enable", serviceName},
		{"restart", serviceName},
	}

	for _, args := range steps {
		if err := runSystemctl(args...); err != nil {
			return err
		}
	}

	logger.Info("splitkb systemd service installed", "path", servicePath, "exe", exePath)
	return nil
}

func uninstall(logger *slog.Logger) error {
	var errs []error

	if err := runSystemctl("stop", serviceName); err != nil {
		errs = append(errs, err)
	}
	if err := runSystemctl("disable", serviceName); err != nil {
		errs = append(errs, err)
	}

	if err := os.Remove(servicePath); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}

	if err := runSystemctl("daemon-reload"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logger.Info("splitkb systemd service removed", "path", servicePath)
	return nil
}

func systemdUnitContent(exePath string, args []string) string {
	workingDir := filepath.Dir(exePath)
	execStart := strconv.Quote(exePath) + " run --tui=off"
	for _, a := range args {
		execStart += " " + strconv.Quote(a)
	}
	return fmt.Sprintf(`[Unit]
Description=splitkb keyboard half
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=%s
WorkingDirectory=%s
Restart=on-failure

[Install]
WantedBy=multi-user.target
`, execStart, workingDir)
}

func runSystemctl(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s failed: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return nil
}
