package models

import (
	"os"
	"testing"
)

func TestConfigEnv(t *testing.T) {
	c := NewConfig()
	os.Setenv(EnvCmdline, "--loggers=serial")
	os.Setenv(EnvLevel, "trace")
	os.Setenv(EnvColor, "1")
	defer func() {
		os.Unsetenv(EnvCmdline)
		os.Unsetenv(EnvLevel)
		os.Unsetenv(EnvColor)
	}()
	c.ApplyEnv()
	if c.Cmdline != "--loggers=serial" || c.Level != "trace" || !c.Color {
		t.Fatalf("env not applied: %+v", c)
	}
	if c.Backend != "sim" {
		t.Fatalf("unset variable changed backend to %q", c.Backend)
	}
}

func TestConfigValidate(t *testing.T) {
	c := NewConfig()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	c.LoadOffset = -0x200000
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	c.LoadOffset = 0x1000
	if err := c.Validate(); err == nil {
		t.Fatal("unaligned offset accepted")
	}
	c = NewConfig()
	c.Backend = "qemu"
	if err := c.Validate(); err == nil {
		t.Fatal("unknown backend accepted")
	}
	c = NewConfig()
	c.Serial = "file"
	if err := c.Validate(); err == nil {
		t.Fatal("unknown serial sink accepted")
	}
}
