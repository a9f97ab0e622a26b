package smoketest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type programSpec struct {
	version string
	help    string
	// initBody is the shell run for `init`.
	initBody string
}

func goodInit() string {
	return `read pw; read confirm
[ "$pw" = "$confirm" ] || { echo "passwords do not match" >&2; exit 1; }
mkdir -p "$HOME/.pass-cli"
echo "vault created"
`
}

// writeProgram creates a fake pass-cli in a temp dir.
func writeProgram(t *testing.T, p programSpec) string {
	t.Helper()

	script := "#!/bin/sh\n" +
		"case \"$1\" in\n" +
		"version) echo \"pass-cli " + p.version + "\" ;;\n" +
		"--help) echo \"" + p.help + "\" ;;\n" +
		"init)\n" + p.initBody + "\n;;\n" +
		"*) echo \"unknown command $1\" >&2; exit 2 ;;\n" +
		"esac\n"

	path := filepath.Join(t.TempDir(), "pass-cli")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake program: %v", err)
	}
	return path
}

func checkByName(t *testing.T, r *Report, name string) CheckResult {
	t.Helper()
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s not in report", name)
	return CheckResult{}
}

func TestRun_AllPass(t *testing.T) {
	bin := writeProgram(t, programSpec{
		version:  "1.0.0",
		help:     "Pass-CLI is a secure CLI password manager",
		initBody: goodInit(),
	})

	report := Run(context.Background(), Options{Binary: bin, Version: "1.0.0"})

	if report.Failed() {
		t.Fatalf("Failed() = true: %v", report.Err())
	}
	if err := report.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}

	var names []string
	for _, c := range report.Checks {
		names = append(names, c.Name)
	}
	if got := strings.Join(names, ","); got != "version,help,init" {
		t.Errorf("check order = %s", got)
	}
}

func TestRun_ChecksAreIndependent(t *testing.T) {
	bin := writeProgram(t, programSpec{
		version:  "0.9.0",
		help:     "something else entirely",
		initBody: goodInit(),
	})

	report := Run(context.Background(), Options{Binary: bin, Version: "1.0.0"})

	if len(report.Checks) != 3 {
		t.Fatalf("ran %d checks, want 3", len(report.Checks))
	}
	if checkByName(t, report, CheckVersion).Passed {
		t.Error("version check passed with wrong version")
	}
	if checkByName(t, report, CheckHelp).Passed {
		t.Error("help check passed without the description")
	}
	if !checkByName(t, report, CheckInit).Passed {
		t.Errorf("init check failed: %s", checkByName(t, report, CheckInit).Detail)
	}

	var checkErr *CheckError
	if !errors.As(report.Err(), &checkErr) {
		t.Fatalf("Err() = %v, want *CheckError", report.Err())
	}
	if !strings.Contains(report.Err().Error(), "help check failed") {
		t.Errorf("Err() = %v", report.Err())
	}
}

func TestRun_HelpMatchIgnoresCase(t *testing.T) {
	bin := writeProgram(t, programSpec{
		version:  "1.0.0",
		help:     "pass-cli - a SECURE cli PASSWORD manager",
		initBody: goodInit(),
	})

	report := Run(context.Background(), Options{Binary: bin, Version: "1.0.0"})
	if c := checkByName(t, report, CheckHelp); !c.Passed {
		t.Errorf("help check failed: %s", c.Detail)
	}
}

func TestRun_InitFailures(t *testing.T) {
	tests := []struct {
		name     string
		initBody string
		detail   string
	}{
		{
			name:     "no vault created",
			initBody: "echo done",
			detail:   "was not created",
		},
		{
			name:     "vault is a file",
			initBody: `touch "$HOME/.pass-cli"`,
			detail:   "is not a directory",
		},
		{
			name:     "init exits non-zero",
			initBody: `echo "vault already exists" >&2; exit 1`,
			detail:   "exit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := writeProgram(t, programSpec{version: "1.0.0", help: DefaultHelpSubstring, initBody: tt.initBody})

			report := Run(context.Background(), Options{Binary: bin, Version: "1.0.0"})

			c := checkByName(t, report, CheckInit)
			if c.Passed {
				t.Fatal("init check passed")
			}
			if !strings.Contains(c.Detail, tt.detail) {
				t.Errorf("Detail = %q, want substring %q", c.Detail, tt.detail)
			}
		})
	}
}

func TestRun_ReportsExtraEntries(t *testing.T) {
	bin := writeProgram(t, programSpec{
		version:  "1.0.0",
		help:     DefaultHelpSubstring,
		initBody: `mkdir -p "$HOME/.pass-cli" "$HOME/.cache"`,
	})

	report := Run(context.Background(), Options{Binary: bin, Version: "1.0.0"})

	c := checkByName(t, report, CheckInit)
	if !c.Passed {
		t.Fatalf("init check failed: %s", c.Detail)
	}
	if !strings.Contains(c.Detail, ".cache") {
		t.Errorf("Detail = %q, want extra entry listed", c.Detail)
	}
}

func TestRun_StrictHomeRejectsExtraEntries(t *testing.T) {
	tests := []struct {
		name     string
		initBody string
		passed   bool
	}{
		{name: "vault only", initBody: `mkdir -p "$HOME/.pass-cli"`, passed: true},
		{name: "extra entry", initBody: `mkdir -p "$HOME/.pass-cli"; touch "$HOME/notes.txt"`, passed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := writeProgram(t, programSpec{
				version:  "1.0.0",
				help:     DefaultHelpSubstring,
				initBody: tt.initBody,
			})

			report := Run(context.Background(), Options{Binary: bin, Version: "1.0.0", StrictHome: true})

			c := checkByName(t, report, CheckInit)
			if c.Passed != tt.passed {
				t.Fatalf("Passed = %v, want %v (detail %q)", c.Passed, tt.passed, c.Detail)
			}
			if !tt.passed && !strings.Contains(c.Detail, "notes.txt") {
				t.Errorf("Detail = %q, want extra entry listed", c.Detail)
			}
		})
	}
}

func TestRun_IsolatesHome(t *testing.T) {
	record := filepath.Join(t.TempDir(), "home")
	bin := writeProgram(t, programSpec{
		version:  "1.0.0",
		help:     DefaultHelpSubstring,
		initBody: `echo "$HOME" > "` + record + `"; mkdir -p "$HOME/.pass-cli"`,
	})
	homeBefore := os.Getenv("HOME")

	report := Run(context.Background(), Options{Binary: bin, Version: "1.0.0"})
	if report.Failed() {
		t.Fatalf("run failed: %v", report.Err())
	}

	if got := os.Getenv("HOME"); got != homeBefore {
		t.Errorf("parent HOME changed to %q", got)
	}

	data, err := os.ReadFile(record)
	if err != nil {
		t.Fatalf("child did not record HOME: %v", err)
	}
	childHome := strings.TrimSpace(string(data))
	if childHome == homeBefore {
		t.Error("child saw the real HOME")
	}
	if _, err := os.Stat(childHome); !os.IsNotExist(err) {
		t.Errorf("sandbox %s not removed", childHome)
	}
}

func TestRun_MissingBinary(t *testing.T) {
	report := Run(context.Background(), Options{
		Binary:  filepath.Join(t.TempDir(), "absent"),
		Version: "1.0.0",
	})

	if len(report.Checks) != 3 {
		t.Fatalf("ran %d checks, want 3", len(report.Checks))
	}
	for _, c := range report.Checks {
		if c.Passed {
			t.Errorf("%s passed without a binary", c.Name)
		}
	}
}

func TestRun_NoExpectedVersion(t *testing.T) {
	bin := writeProgram(t, programSpec{version: "1.0.0", help: DefaultHelpSubstring, initBody: goodInit()})

	report := Run(context.Background(), Options{Binary: bin})
	if c := checkByName(t, report, CheckVersion); c.Passed {
		t.Error("version check passed with no expected version")
	}
}

func TestReport_Render(t *testing.T) {
	report := &Report{Checks: []CheckResult{
		{Name: CheckVersion, Passed: true},
		{Name: CheckHelp, Passed: false, Detail: "output does not contain it"},
		{Name: CheckInit, Passed: true},
	}}

	var buf bytes.Buffer
	if err := report.Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{"version", "help", "output does not contain it", "2/3 checks passed"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() output missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 4 {
		t.Errorf("Render() wrote %d lines, want 4", lines)
	}
}

func TestSandbox(t *testing.T) {
	s, err := NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox() error = %v", err)
	}

	if s.VaultPath() != filepath.Join(s.Home, ".pass-cli") {
		t.Errorf("VaultPath() = %s", s.VaultPath())
	}
	if env := s.Env(); len(env) != 1 || env[0] != "HOME="+s.Home {
		t.Errorf("Env() = %v", env)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(s.Home); !os.IsNotExist(err) {
		t.Error("sandbox not removed")
	}

	var nilSandbox *Sandbox
	if err := nilSandbox.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}
