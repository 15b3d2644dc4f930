package cmd

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"

	bootcorn "github.com/lunixbochs/bootcorn/go"
	"github.com/lunixbochs/bootcorn/go/models"
)

type testCmd struct {
	*BootCmd
	stdout, stderr bytes.Buffer
	dir            string
}

func newTestCmd(t *testing.T) *testCmd {
	dir, err := ioutil.TempDir("", "bootcorn-cmd")
	if err != nil {
		t.Fatal(err)
	}
	tc := &testCmd{BootCmd: NewBootCmd(), dir: dir}
	tc.Stdout, tc.Stderr = &tc.stdout, &tc.stderr
	tc.ConfigDirs = configdir.New("bootcorn-test", "boot-test")
	tc.ConfigDirs.LocalPath = dir
	return tc
}

func (tc *testCmd) cleanup() { os.RemoveAll(tc.dir) }

func TestRun(t *testing.T) {
	tc := newTestCmd(t)
	defer tc.cleanup()
	if err := tc.Run([]string{"boot", "-color=false", "-serial", "none", "-level", "info"}); err != nil {
		t.Fatal(err)
	}
	out := tc.stdout.String()
	if !strings.Contains(out, "Not implemented yet! =(\n") {
		t.Fatalf("boot output:\n%s", out)
	}
	if strings.Contains(out, "stack usage") {
		t.Fatalf("debug records at info level:\n%s", out)
	}
	if tc.stderr.String() != "halt: kernel loading not implemented\n" {
		t.Fatalf("stderr: %q", tc.stderr.String())
	}
	if tc.Boot == nil || tc.Boot.Halted() == nil {
		t.Fatal("boot not recorded")
	}
}

func TestRunFatal(t *testing.T) {
	tc := newTestCmd(t)
	defer tc.cleanup()
	err := tc.Run([]string{"boot", "-color=false", "-serial", "none", "-magic", "0x1badb002"})
	if err != models.ExitStatus(1) {
		t.Fatalf("unknown magic returned %v", err)
	}
	if !strings.Contains(tc.stdout.String(), "PANIC: cannot identify boot environment") {
		t.Fatalf("panic not on debugcon:\n%s", tc.stdout.String())
	}
	if !strings.HasPrefix(tc.stderr.String(), "fatal halt: ") {
		t.Fatalf("stderr: %q", tc.stderr.String())
	}
	if tc.Exit(err) != 1 {
		t.Fatal("fatal halt did not exit 1")
	}
}

func TestRunVerbose(t *testing.T) {
	tc := newTestCmd(t)
	defer tc.cleanup()
	if err := tc.Run([]string{"boot", "-v", "-color=false", "-serial", "none", "-offset", "0x200000"}); err != nil {
		t.Fatal(err)
	}
	errOut := tc.stderr.String()
	for _, want := range []string{"[stage] ", "[entry]\n", "[halt] pc=", "[stack] "} {
		if !strings.Contains(errOut, want) {
			t.Errorf("missing %q in verbose output:\n%s", want, errOut)
		}
	}
}

func TestRunOutputFile(t *testing.T) {
	tc := newTestCmd(t)
	defer tc.cleanup()
	path := filepath.Join(tc.dir, "verbose.log")
	if err := tc.Run([]string{"boot", "-v", "-color=false", "-serial", "none", "-o", path}); err != nil {
		t.Fatal(err)
	}
	if tc.outFile != nil {
		t.Fatal("output file left open")
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[halt] pc=") {
		t.Fatalf("verbose output not written to file:\n%s", data)
	}
	if strings.Contains(tc.stderr.String(), "[stage]") {
		t.Fatal("verbose output went to stderr")
	}
}

func TestRunCmdlineFile(t *testing.T) {
	tc := newTestCmd(t)
	defer tc.cleanup()
	path := filepath.Join(tc.dir, models.CmdlineFile)
	if err := ioutil.WriteFile(path, []byte("--loggers=serial\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := tc.Run([]string{"boot", "-color=false", "-serial", "stdout"}); err != nil {
		t.Fatal(err)
	}
	// only the UART translates line endings
	if !strings.Contains(tc.stdout.String(), "Not implemented yet! =(\r\n") {
		t.Fatalf("serial logger not selected:\n%q", tc.stdout.String())
	}
}

func TestRunSnapshot(t *testing.T) {
	tc := newTestCmd(t)
	defer tc.cleanup()
	path := filepath.Join(tc.dir, "boot.snap")
	if err := tc.Run([]string{"boot", "-color=false", "-serial", "none", "-snapshot", path}); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	snap, err := models.Load(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Mappings) != 1 || snap.Mappings[0].Size != 0x200000 {
		t.Fatalf("snapshot mappings: %+v", snap.Mappings)
	}
}

func TestRunBadConfig(t *testing.T) {
	for _, argv := range [][]string{
		{"boot", "-backend", "unicorn"},
		{"boot", "-serial", "lpt1"},
		{"boot", "-offset", "0x1000"},
		{"boot", "-level", "loud"},
		{"boot", "-symbols", "/nonexistent/loader.elf"},
	} {
		tc := newTestCmd(t)
		err := tc.Run(argv)
		tc.cleanup()
		if err == nil {
			t.Errorf("%v accepted", argv)
		}
		if tc.stdout.Len() != 0 {
			t.Errorf("%v booted anyway:\n%s", argv, tc.stdout.String())
		}
	}
}

func TestRunHelp(t *testing.T) {
	tc := newTestCmd(t)
	defer tc.cleanup()
	err := tc.Run([]string{"boot", "-h"})
	if err != models.ExitStatus(0) {
		t.Fatalf("help returned %v", err)
	}
	if !strings.Contains(tc.stderr.String(), "-offset") {
		t.Fatalf("usage:\n%s", tc.stderr.String())
	}
}

func TestSetupHooks(t *testing.T) {
	tc := newTestCmd(t)
	defer tc.cleanup()
	var flagged *bool
	tc.SetupFlags = func() error {
		flagged = tc.Flags.Bool("extra", false, "")
		return nil
	}
	tc.SetupBoot = func(b *bootcorn.Boot) error {
		b.BreakStack = *flagged
		return nil
	}
	err := tc.Run([]string{"boot", "-color=false", "-serial", "none", "-extra"})
	if err != models.ExitStatus(1) {
		t.Fatalf("broken stack returned %v", err)
	}
	if !strings.Contains(tc.stderr.String(), "canary clobbered") {
		t.Fatalf("stderr: %s", tc.stderr.String())
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, errors.New("boom"))
	out := buf.String()
	if !strings.Contains(out, "Error: boom\n") || !strings.Contains(out, "cmd_test.go") {
		t.Fatalf("error output:\n%s", out)
	}
}

func TestExit(t *testing.T) {
	tc := newTestCmd(t)
	defer tc.cleanup()
	if tc.Exit(nil) != 0 || tc.Exit(models.ExitStatus(3)) != 3 {
		t.Fatal("bad exit status")
	}
	if tc.Exit(errors.New("oops")) != 1 || !strings.Contains(tc.stderr.String(), "Error: oops") {
		t.Fatalf("unexpected error not printed: %s", tc.stderr.String())
	}
}
