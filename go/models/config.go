package models

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
	"github.com/xyproto/env/v2"
)

// environment overrides
const (
	EnvCmdline = "BOOTCORN_CMDLINE"
	EnvLevel   = "BOOTCORN_LEVEL"
	EnvColor   = "BOOTCORN_COLOR"
	EnvBackend = "BOOTCORN_BACKEND"
)

// CmdlineFile is read from the per-user config folder when no command line was given.
const CmdlineFile = "cmdline"

type Config struct {
	// handed to the entry point the way a boot protocol would
	Magic      uint64
	InfoPtr    uint64
	LoadOffset int64
	Cmdline    string

	Level      string
	Backend    string
	Color      bool
	Verbose    bool
	SymbolFile string
	Snapshot   string
	Serial     string

	Output io.Writer
}

func NewConfig() *Config {
	return &Config{
		Level:   "info",
		Backend: "sim",
		Serial:  "stdout",
		Output:  os.Stderr,
	}
}

// ApplyEnv overrides fields from BOOTCORN_* environment variables.
func (c *Config) ApplyEnv() {
	if env.Has(EnvCmdline) {
		c.Cmdline = env.Str(EnvCmdline)
	}
	c.Level = env.Str(EnvLevel, c.Level)
	c.Backend = env.Str(EnvBackend, c.Backend)
	if env.Has(EnvColor) {
		c.Color = env.Bool(EnvColor)
	}
}

// LoadCmdline fills an empty command line from the first config folder holding a cmdline file.
func (c *Config) LoadCmdline(dirs configdir.ConfigDir) {
	if c.Cmdline != "" {
		return
	}
	for _, folder := range dirs.QueryFolders(configdir.All) {
		if data, err := folder.ReadFile(CmdlineFile); err == nil {
			c.Cmdline = strings.TrimSpace(string(data))
			return
		}
	}
}

func (c *Config) Validate() error {
	switch c.Backend {
	case "sim", "unicorn":
	default:
		return errors.Errorf("unknown backend %q (want sim or unicorn)", c.Backend)
	}
	switch c.Serial {
	case "stdout", "tty", "none":
	default:
		return errors.Errorf("unknown serial sink %q (want stdout, tty or none)", c.Serial)
	}
	if c.LoadOffset%(2<<20) != 0 {
		return errors.Errorf("load offset %#x is not 2 MiB aligned", c.LoadOffset)
	}
	return nil
}
