// Package cmd holds the kong command tree of the splitkb binary.
package cmd

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

// Log configures the process logger.
type Log struct {
	Level   string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"SPLITKB_LOG_LEVEL"`
	File    string `help:"Also write logs to this file" type:"path" env:"SPLITKB_LOG_FILE"`
	RawFile string `help:"Hex-dump link and USB-IP traffic to this file" type:"path" env:"SPLITKB_LOG_RAW_FILE"`
}

// CLI is the root of the command tree.
type CLI struct {
	ConfigFile string `name:"config" help:"Configuration file (json, yaml or toml)" type:"path" env:"SPLITKB_CONFIG"`
	Log        Log    `embed:"" prefix:"log."`

	Run     Run            `cmd:"" help:"Run one keyboard half" default:"withargs"`
	Config  ConfigCommand  `cmd:"" help:"Configuration helpers"`
	Keymap  KeymapCommand  `cmd:"" help:"Inspect and validate keymaps"`
	Ctl     CtlCommand     `cmd:"" help:"Drive a running half through its control API"`
	Service ServiceCommand `cmd:"" help:"Manage the systemd service"`
}
