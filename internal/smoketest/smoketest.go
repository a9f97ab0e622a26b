// Package smoketest checks an installed pass-cli binary without touching the
// operator's vault.
//
// Every check runs, in order, whatever the outcome of the previous one. The
// program always sees a temporary HOME; the installer's own environment is
// left alone.
package smoketest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/advisory"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/logger"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/runner"
)

// VaultDir is the vault directory the init check expects under HOME.
const VaultDir = advisory.VaultDir

// DefaultHelpSubstring identifies the program in its --help output.
const DefaultHelpSubstring = "A secure CLI password manager"

// DefaultInitInput answers the master password prompt and its confirmation.
const DefaultInitInput = "Sm0ke-Test-Passw0rd!\nSm0ke-Test-Passw0rd!\n"

// Check names.
const (
	CheckVersion = "version"
	CheckHelp    = "help"
	CheckInit    = "init"
)

// Options configures a smoke test run.
type Options struct {
	// Binary is the installed program.
	Binary string
	// Version must appear verbatim in the version output.
	Version string
	// HelpSubstring must appear in --help output, ignoring case.
	HelpSubstring string
	// InitInput is fed to init on stdin.
	InitInput string
	// StrictHome fails init when it creates top-level entries besides the
	// vault directory. By default extras pass and are listed in Detail.
	StrictHome bool
	// Runner defaults to runner.New().
	Runner runner.Runner
}

func (o *Options) setDefaults() {
	if o.HelpSubstring == "" {
		o.HelpSubstring = DefaultHelpSubstring
	}
	if o.InitInput == "" {
		o.InitInput = DefaultInitInput
	}
	if o.Runner == nil {
		o.Runner = runner.New()
	}
}

// Run executes the version, help and init checks and reports each one. It
// never returns early; a failed check is recorded and the next one runs.
func Run(ctx context.Context, opts Options) *Report {
	opts.setDefaults()
	ctx = logger.WithName(ctx, "smoketest")

	report := &Report{Binary: opts.Binary}

	sandbox, sandboxErr := NewSandbox()
	if sandboxErr == nil {
		defer func() {
			if err := sandbox.Close(); err != nil {
				logger.WarnKV(ctx, "failed to remove sandbox", "path", sandbox.Home, "error", err)
			}
		}()
		logger.DebugKV(ctx, "sandbox ready", "home", sandbox.Home)
	}

	var env []string
	if sandbox != nil {
		env = sandbox.Env()
	}

	report.add(ctx, checkVersion(ctx, opts, env))
	report.add(ctx, checkHelp(ctx, opts, env))
	if sandboxErr != nil {
		report.add(ctx, CheckResult{Name: CheckInit, Detail: sandboxErr.Error()})
	} else {
		report.add(ctx, checkInit(ctx, opts, sandbox))
	}

	return report
}

func checkVersion(ctx context.Context, opts Options, env []string) CheckResult {
	c := CheckResult{Name: CheckVersion, Command: "version"}
	if opts.Version == "" {
		c.Detail = "no expected version given"
		return c
	}

	out, err := run(ctx, opts, runner.Command{Path: opts.Binary, Args: []string{"version"}, Env: env})
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	if !strings.Contains(out, opts.Version) {
		c.Detail = fmt.Sprintf("output does not contain version %q", opts.Version)
		return c
	}
	c.Passed = true
	return c
}

func checkHelp(ctx context.Context, opts Options, env []string) CheckResult {
	c := CheckResult{Name: CheckHelp, Command: "--help"}

	out, err := run(ctx, opts, runner.Command{Path: opts.Binary, Args: []string{"--help"}, Env: env})
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	if !strings.Contains(strings.ToLower(out), strings.ToLower(opts.HelpSubstring)) {
		c.Detail = fmt.Sprintf("output does not contain %q", opts.HelpSubstring)
		return c
	}
	c.Passed = true
	return c
}

func checkInit(ctx context.Context, opts Options, sandbox *Sandbox) CheckResult {
	c := CheckResult{Name: CheckInit, Command: "init"}

	_, err := run(ctx, opts, runner.Command{
		Path:  opts.Binary,
		Args:  []string{"init"},
		Env:   sandbox.Env(),
		Stdin: strings.NewReader(opts.InitInput),
		Dir:   sandbox.Home,
	})
	if err != nil {
		c.Detail = err.Error()
		return c
	}

	info, err := os.Stat(sandbox.VaultPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.Detail = fmt.Sprintf("vault directory ~/%s was not created", VaultDir)
		return c
	case err != nil:
		c.Detail = err.Error()
		return c
	case !info.IsDir():
		c.Detail = fmt.Sprintf("~/%s is not a directory", VaultDir)
		return c
	}

	extra := extraEntries(sandbox.Home)
	if len(extra) > 0 {
		c.Detail = "also created: " + strings.Join(extra, ", ")
	}
	c.Passed = len(extra) == 0 || !opts.StrictHome
	return c
}

// run executes cmd and returns its combined output.
func run(ctx context.Context, opts Options, cmd runner.Command) (string, error) {
	res, err := opts.Runner.Run(ctx, cmd)
	return res.Output(), err
}

// extraEntries lists top-level sandbox entries other than the vault.
func extraEntries(home string) []string {
	entries, err := os.ReadDir(home)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.Name() != VaultDir {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}
