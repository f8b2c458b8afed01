package cmd

import "log/slog"

// ServiceCommand installs the run command as a system service.
type ServiceCommand struct {
	Install   ServiceInstall   `cmd:"" help:"Install and start the service"`
	Uninstall ServiceUninstall `cmd:"" help:"Stop and remove the service"`
}

// ServiceInstall writes a unit that runs this binary with the given
// arguments appended to "run".
type ServiceInstall struct {
	Args []string `arg:"" optional:"" help:"Extra arguments for the run command"`
}

func (s *ServiceInstall) Run(logger *slog.Logger) error { return install(logger, s.Args) }

type ServiceUninstall struct{}

func (ServiceUninstall) Run(logger *slog.Logger) error { return uninstall(logger) }
