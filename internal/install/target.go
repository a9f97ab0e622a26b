// Package install places a verified payload onto the host: the program
// binary, its shell completions and its documentation.
//
// Only the binary is essential. Completion failures are collected as
// warnings and leave the installed binary in place; documentation is copied
// only when the archive ships it.
package install

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Target is where one install writes. Build it fresh per install.
type Target struct {
	// BinaryPath is the installed program, e.g. <prefix>/bin/pass-cli.
	BinaryPath string
	// CompletionsRoot is the root of the completion tree (the prefix).
	CompletionsRoot string
	// DocsDir receives README.md and LICENSE.
	DocsDir string
}

// NewTarget lays out the conventional tree under prefix.
func NewTarget(prefix, program string) Target {
	return Target{
		BinaryPath:      filepath.Join(prefix, "bin", program),
		CompletionsRoot: prefix,
		DocsDir:         filepath.Join(prefix, "share", "doc", program),
	}
}

// Program returns the installed program name.
func (t Target) Program() string {
	return filepath.Base(t.BinaryPath)
}

// Validate checks that every location is an absolute path.
func (t Target) Validate() error {
	for name, p := range map[string]string{
		"binary path":      t.BinaryPath,
		"completions root": t.CompletionsRoot,
		"docs dir":         t.DocsDir,
	} {
		if p == "" {
			return fmt.Errorf("%s is required", name)
		}
		if !filepath.IsAbs(p) {
			return fmt.Errorf("%s must be absolute: %s", name, p)
		}
	}
	return nil
}

// Install steps named by FilesystemError.
const (
	StepBinary     = "binary"
	StepCompletion = "completion"
	StepDocs       = "docs"
)

// FilesystemError reports a failed write into the target.
type FilesystemError struct {
	Step string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("install %s to %s: %v", e.Step, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// errEmptyCompletion is wrapped when a completion command prints nothing.
var errEmptyCompletion = errors.New("completion command produced no output")

// CompletionError is the warning recorded for a shell whose completion could
// not be installed. Err is a *runner.SubprocessError, a *FilesystemError or
// an empty-output error.
type CompletionError struct {
	Shell string
	Err   error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s completion not installed: %v", e.Shell, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}
