// Package runner executes the installed program as a child process with a
// scrubbed environment and captured output.
//
// The parent process environment is never modified: overrides such as HOME
// apply to the child only.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/logger"
)

// passthroughEnv are the parent variables a child inherits.
var passthroughEnv = []string{"HOME", "PATH", "USER", "LANG", "LC_ALL", "TMPDIR", "TERM"}

// Command describes one child process invocation.
type Command struct {
	Path string
	Args []string
	// Env entries (KEY=VALUE) override the scrubbed parent environment.
	Env []string
	// Stdin is fed to the child; nil means no input.
	Stdin io.Reader
	// Dir is the working directory; empty inherits the parent's.
	Dir string
}

// String renders the command line for messages.
func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Result holds the captured output of a finished child.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Output returns stdout followed by stderr.
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	return string(r.Stdout) + string(r.Stderr)
}

// Runner runs child processes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Exec is the os/exec backed Runner.
type Exec struct{}

// New returns the default Runner.
func New() *Exec {
	return &Exec{}
}

// Run starts cmd, waits for it and captures its output. A child that cannot
// be started or exits non-zero yields a *SubprocessError; the Result is
// returned alongside whenever the child ran.
func (e *Exec) Run(ctx context.Context, cmd Command) (*Result, error) {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Env = BuildEnv(os.Environ(), cmd.Env)
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	logger.DebugKV(ctx, "running", "command", cmd.String())

	err := c.Run()
	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: -1}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}

	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, &SubprocessError{Command: cmd.String(), ExitCode: res.ExitCode, Output: redact(res.Output()), Err: ctxErr}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &SubprocessError{
			Command:  cmd.String(),
			ExitCode: res.ExitCode,
			Output:   redact(res.Output()),
			Err:      err,
		}
	}

	// Never started (missing binary, not executable) or output capture failed.
	return nil, &SubprocessError{Command: cmd.String(), ExitCode: -1, Err: err}
}

// BuildEnv keeps only the passthrough variables from base and applies
// overrides on top. Later overrides win.
func BuildEnv(base, overrides []string) []string {
	values := make(map[string]string, len(passthroughEnv)+len(overrides))
	var order []string

	set := func(kv string) {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return
		}
		if _, seen := values[key]; !seen {
			order = append(order, key)
		}
		values[key] = value
	}

	keep := make(map[string]bool, len(passthroughEnv))
	for _, k := range passthroughEnv {
		keep[k] = true
	}
	for _, kv := range base {
		if key, _, ok := strings.Cut(kv, "="); ok && keep[key] {
			set(kv)
		}
	}
	for _, kv := range overrides {
		set(kv)
	}

	env := make([]string, 0, len(order))
	for _, k := range order {
		env = append(env, k+"="+values[k])
	}
	return env
}

// SubprocessError reports a child that could not be launched or captured
// (ExitCode -1) or that exited non-zero.
type SubprocessError struct {
	Command  string
	ExitCode int
	// Output is the child's combined output, trimmed and redacted.
	Output string
	Err    error
}

// Launched reports whether the child ran to an exit status.
func (e *SubprocessError) Launched() bool {
	return e.ExitCode >= 0
}

func (e *SubprocessError) Error() string {
	switch {
	case !e.Launched():
		return fmt.Sprintf("run %s: %v", e.Command, e.Err)
	case e.Output != "":
		return fmt.Sprintf("%s exited with status %d: %s", e.Command, e.ExitCode, e.Output)
	default:
		return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	}
}

func (e *SubprocessError) Unwrap() error {
	return e.Err
}

var (
	homePattern  = regexp.MustCompile(`/home/[^/\s]+`)
	usersPattern = regexp.MustCompile(`/Users/[^/\s]+`)
)

// redact trims child output for error messages and hides user home paths.
func redact(msg string) string {
	const maxLen = 200

	msg = strings.TrimSpace(msg)
	if len(msg) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" && home != "/" {
		msg = strings.ReplaceAll(msg, home, "$HOME")
	}
	msg = homePattern.ReplaceAllString(msg, "/home/<user>")
	msg = usersPattern.ReplaceAllString(msg, "/Users/<user>")

	return msg
}
