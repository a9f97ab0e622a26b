package install

import (
	"bytes"
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
	ps "github.com/mitchellh/go-ps"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/fetch"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/logger"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/runner"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/shell"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/transaction"
)

const (
	// BinaryMode is the permission of the installed program.
	BinaryMode os.FileMode = 0o755
	// DataMode is the permission of completion and documentation files.
	DataMode os.FileMode = 0o644
)

// Options configures an Installer.
type Options struct {
	// Runner executes the installed binary to generate completions.
	Runner runner.Runner
	// LockDir holds install lock files. Empty uses <tmp>/passcli-installer.
	LockDir string
	// Shells to install completions for. Empty means shell.Supported().
	Shells []shell.ShellType
}

// Installer places payloads into targets.
type Installer struct {
	runner  runner.Runner
	lockDir string
	shells  []shell.ShellType
}

// New creates an installer.
func New(opts Options) *Installer {
	i := &Installer{
		runner:  opts.Runner,
		lockDir: opts.LockDir,
		shells:  opts.Shells,
	}
	if i.runner == nil {
		i.runner = runner.New()
	}
	if i.lockDir == "" {
		i.lockDir = filepath.Join(os.TempDir(), "passcli-installer")
	}
	if len(i.shells) == 0 {
		i.shells = shell.Supported()
	}
	return i
}

// Result describes a finished install.
type Result struct {
	Target Target
	// Completions maps each installed shell to its completion file.
	Completions map[shell.ShellType]string
	// Docs lists the documentation files written.
	Docs []string
	// Running lists pids of program instances that were running during the
	// install and still use the old binary.
	Running []int
	// Warnings are non-fatal step failures.
	Warnings []error
}

// Partial reports whether the binary was installed but some optional step
// failed.
func (r *Result) Partial() bool {
	return len(r.Warnings) > 0
}

// Install writes p into t. A returned error is fatal; the Result is still
// returned when the binary was placed.
func (i *Installer) Install(ctx context.Context, p *fetch.Payload, t Target) (*Result, error) {
	ctx = logger.WithName(ctx, "install")

	if p == nil || p.BinaryPath == "" {
		return nil, fmt.Errorf("payload has no binary")
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target: %w", err)
	}

	lock, err := transaction.AcquireLock(ctx, i.lockDir, transaction.LockName(t.CompletionsRoot))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.WarnKV(ctx, "failed to release install lock", "path", lock.Path(), "error", err)
		}
	}()

	res := &Result{
		Target:      t,
		Completions: make(map[shell.ShellType]string, len(i.shells)),
	}

	res.Running = runningInstances(ctx, t.Program())
	if len(res.Running) > 0 {
		logger.WarnKV(ctx, "program is running; restart it to use the new version",
			"program", t.Program(), "pids", res.Running)
	}

	if err := i.installBinary(ctx, p.BinaryPath, t.BinaryPath); err != nil {
		return nil, err
	}
	logger.InfoKV(ctx, "binary installed", "path", t.BinaryPath)

	for _, s := range i.shells {
		path, err := i.installCompletion(ctx, t, s)
		if err != nil {
			logger.WarnKV(ctx, "completion not installed", "shell", s.String(), "error", err)
			res.Warnings = append(res.Warnings, &CompletionError{Shell: s.String(), Err: err})
			continue
		}
		res.Completions[s] = path
	}

	for _, doc := range p.Docs {
		dest := filepath.Join(t.DocsDir, filepath.Base(doc))
		if err := copyFile(doc, dest, DataMode); err != nil {
			return res, &FilesystemError{Step: StepDocs, Path: dest, Err: err}
		}
		res.Docs = append(res.Docs, dest)
	}
	if len(res.Docs) > 0 {
		logger.InfoKV(ctx, "documentation installed", "dir", t.DocsDir, "files", len(res.Docs))
	}

	return res, nil
}

// installBinary atomically replaces dest with src, checking the written
// bytes against src's digest.
func (i *Installer) installBinary(ctx context.Context, src, dest string) (retErr error) {
	fail := func(err error) error {
		return &FilesystemError{Step: StepBinary, Path: dest, Err: err}
	}

	digest, err := fetch.FileSHA256(src)
	if err != nil {
		return fail(fmt.Errorf("hash payload binary: %w", err))
	}
	checksum, err := hex.DecodeString(digest)
	if err != nil {
		return fail(err)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fail(fmt.Errorf("read payload binary: %w", err))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fail(err)
	}

	// go-update swaps via rename, so the target has to exist first.
	created := false
	if _, err := os.Stat(dest); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY, BinaryMode)
		if err != nil {
			return fail(err)
		}
		f.Close()
		created = true
	}
	defer func() {
		if retErr != nil && created {
			os.Remove(dest)
		}
	}()

	logger.DebugKV(ctx, "applying binary", "dest", dest, "sha256", digest)
	if err := goupdate.Apply(bytes.NewReader(data), goupdate.Options{
		TargetPath: dest,
		TargetMode: BinaryMode,
		Checksum:   checksum,
		Hash:       crypto.SHA256,
	}); err != nil {
		return fail(err)
	}

	oldPath := filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".old")
	if _, err := os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	if err := os.Chmod(dest, BinaryMode); err != nil {
		return fail(err)
	}
	return nil
}

// installCompletion runs `<binary> completion <shell>` and writes the output
// to the shell's completion path.
func (i *Installer) installCompletion(ctx context.Context, t Target, s shell.ShellType) (string, error) {
	path, err := shell.CompletionPath(t.CompletionsRoot, s, t.Program())
	if err != nil {
		return "", err
	}

	res, err := i.runner.Run(ctx, runner.Command{
		Path: t.BinaryPath,
		Args: []string{"completion", s.String()},
	})
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(res.Stdout)) == 0 {
		return "", errEmptyCompletion
	}

	if err := writeFileAtomic(path, res.Stdout, DataMode); err != nil {
		return "", &FilesystemError{Step: StepCompletion, Path: path, Err: err}
	}
	return path, nil
}

// runningInstances returns pids of other processes named program. Listing
// failures are logged and ignored.
func runningInstances(ctx context.Context, program string) []int {
	procs, err := ps.Processes()
	if err != nil {
		logger.DebugKV(ctx, "cannot list processes", "error", err)
		return nil
	}

	self := os.Getpid()
	var pids []int
	for _, proc := range procs {
		if proc.Pid() != self && proc.Executable() == program {
			pids = append(pids, proc.Pid())
		}
	}
	return pids
}

// writeFileAtomic writes data to a temp file beside path and renames it.
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, mode); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Chmod(path, mode)
}

// copyFile copies src to dest atomically.
func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	return writeFileAtomic(dest, data, mode)
}
