package install

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/fetch"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/runner"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/shell"
	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/transaction"
)

// fakeProgram answers `completion <shell>` like the real binary. Shells
// listed in failing exit non-zero.
func fakeProgram(failing ...string) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("if [ \"$1\" = completion ]; then\n")
	b.WriteString("  case \"$2\" in\n")
	for _, s := range failing {
		b.WriteString("    " + s + ") echo \"no completion for $2\" >&2; exit 1 ;;\n")
	}
	b.WriteString("    --) ;;\n")
	b.WriteString("  esac\n")
	b.WriteString("  echo \"# $2 completion for pass-cli\"\n")
	b.WriteString("  exit 0\n")
	b.WriteString("fi\n")
	b.WriteString("echo \"pass-cli 1.0.0\"\n")
	return b.String()
}

// testPayload lays out an extracted payload in a temp dir.
func testPayload(t *testing.T, program string, docs ...string) *fetch.Payload {
	t.Helper()

	dir := t.TempDir()
	p := &fetch.Payload{Dir: dir, BinaryPath: filepath.Join(dir, "pass-cli")}
	if err := os.WriteFile(p.BinaryPath, []byte(program), 0o755); err != nil {
		t.Fatalf("write payload binary: %v", err)
	}
	for _, name := range docs {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(name+" contents\n"), 0o644); err != nil {
			t.Fatalf("write payload doc: %v", err)
		}
		p.Docs = append(p.Docs, path)
	}
	return p
}

func newTestInstaller(t *testing.T) *Installer {
	t.Helper()
	return New(Options{Runner: runner.New(), LockDir: t.TempDir()})
}

func readString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestNewTarget(t *testing.T) {
	tgt := NewTarget("/opt/pc", "pass-cli")

	if tgt.BinaryPath != "/opt/pc/bin/pass-cli" {
		t.Errorf("BinaryPath = %s", tgt.BinaryPath)
	}
	if tgt.CompletionsRoot != "/opt/pc" {
		t.Errorf("CompletionsRoot = %s", tgt.CompletionsRoot)
	}
	if tgt.DocsDir != "/opt/pc/share/doc/pass-cli" {
		t.Errorf("DocsDir = %s", tgt.DocsDir)
	}
	if tgt.Program() != "pass-cli" {
		t.Errorf("Program() = %s", tgt.Program())
	}
	if err := tgt.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestTargetValidate(t *testing.T) {
	tests := []struct {
		name   string
		target Target
	}{
		{"empty binary", Target{CompletionsRoot: "/p", DocsDir: "/p/doc"}},
		{"relative binary", Target{BinaryPath: "bin/pass-cli", CompletionsRoot: "/p", DocsDir: "/p/doc"}},
		{"relative docs", Target{BinaryPath: "/p/bin/pass-cli", CompletionsRoot: "/p", DocsDir: "doc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.target.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestInstall_Complete(t *testing.T) {
	prefix := t.TempDir()
	tgt := NewTarget(prefix, "pass-cli")
	payload := testPayload(t, fakeProgram(), "README.md", "LICENSE")

	res, err := newTestInstaller(t).Install(context.Background(), payload, tgt)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if res.Partial() {
		t.Errorf("Partial() = true, warnings: %v", res.Warnings)
	}

	info, err := os.Stat(tgt.BinaryPath)
	if err != nil {
		t.Fatalf("binary not installed: %v", err)
	}
	if info.Mode().Perm() != BinaryMode {
		t.Errorf("binary mode = %v, want %v", info.Mode().Perm(), BinaryMode)
	}
	if got := readString(t, tgt.BinaryPath); got != fakeProgram() {
		t.Error("installed binary differs from payload")
	}

	for _, s := range shell.Supported() {
		want, err := shell.CompletionPath(prefix, s, "pass-cli")
		if err != nil {
			t.Fatalf("CompletionPath(%s) error = %v", s, err)
		}
		if res.Completions[s] != want {
			t.Errorf("Completions[%s] = %q, want %q", s, res.Completions[s], want)
		}
		if got := readString(t, want); !strings.Contains(got, "# "+s.String()+" completion") {
			t.Errorf("%s completion = %q", s, got)
		}
	}

	if len(res.Docs) != 2 {
		t.Fatalf("Docs = %v, want 2 files", res.Docs)
	}
	if got := readString(t, filepath.Join(tgt.DocsDir, "LICENSE")); got != "LICENSE contents\n" {
		t.Errorf("LICENSE = %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(tgt.BinaryPath))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("bin dir = %v, want only pass-cli", names)
	}
}

func TestInstall_ReplacesExistingBinary(t *testing.T) {
	prefix := t.TempDir()
	tgt := NewTarget(prefix, "pass-cli")
	inst := newTestInstaller(t)

	if err := os.MkdirAll(filepath.Dir(tgt.BinaryPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tgt.BinaryPath, []byte("#!/bin/sh\necho old\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := inst.Install(context.Background(), testPayload(t, fakeProgram()), tgt); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if got := readString(t, tgt.BinaryPath); got != fakeProgram() {
		t.Errorf("binary not replaced: %q", got)
	}
	if _, err := os.Stat(filepath.Join(prefix, "bin", ".pass-cli.old")); !os.IsNotExist(err) {
		t.Error("backup of the old binary left behind")
	}

	// A second run is a plain reinstall.
	if _, err := inst.Install(context.Background(), testPayload(t, fakeProgram()), tgt); err != nil {
		t.Fatalf("second Install() error = %v", err)
	}
}

func TestInstall_CompletionFailureIsWarning(t *testing.T) {
	prefix := t.TempDir()
	tgt := NewTarget(prefix, "pass-cli")

	res, err := newTestInstaller(t).Install(context.Background(), testPayload(t, fakeProgram("fish")), tgt)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if !res.Partial() {
		t.Fatal("Partial() = false, want true")
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want 1", res.Warnings)
	}

	var compErr *CompletionError
	if !errors.As(res.Warnings[0], &compErr) || compErr.Shell != "fish" {
		t.Fatalf("warning = %v, want fish CompletionError", res.Warnings[0])
	}
	var subErr *runner.SubprocessError
	if !errors.As(res.Warnings[0], &subErr) || subErr.ExitCode != 1 {
		t.Errorf("warning does not carry the subprocess failure: %v", res.Warnings[0])
	}

	if _, ok := res.Completions[shell.ShellFish]; ok {
		t.Error("fish completion recorded despite failure")
	}
	if _, ok := res.Completions[shell.ShellBash]; !ok {
		t.Error("bash completion missing")
	}
	if _, err := os.Stat(tgt.BinaryPath); err != nil {
		t.Errorf("binary removed after completion failure: %v", err)
	}
}

func TestInstall_EmptyCompletionIsWarning(t *testing.T) {
	tgt := NewTarget(t.TempDir(), "pass-cli")
	program := "#!/bin/sh\nexit 0\n"

	res, err := New(Options{LockDir: t.TempDir(), Shells: []shell.ShellType{shell.ShellZsh}}).
		Install(context.Background(), testPayload(t, program), tgt)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if len(res.Warnings) != 1 || !errors.Is(res.Warnings[0], errEmptyCompletion) {
		t.Errorf("Warnings = %v, want empty completion", res.Warnings)
	}
}

func TestInstall_NoDocs(t *testing.T) {
	tgt := NewTarget(t.TempDir(), "pass-cli")

	res, err := newTestInstaller(t).Install(context.Background(), testPayload(t, fakeProgram()), tgt)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if len(res.Docs) != 0 {
		t.Errorf("Docs = %v, want none", res.Docs)
	}
	if _, err := os.Stat(tgt.DocsDir); !os.IsNotExist(err) {
		t.Error("docs dir created without docs")
	}
}

func TestInstall_DocsFailureIsFatal(t *testing.T) {
	prefix := t.TempDir()
	blocker := filepath.Join(prefix, "share")
	if err := os.WriteFile(blocker, []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}
	tgt := Target{
		BinaryPath:      filepath.Join(prefix, "bin", "pass-cli"),
		CompletionsRoot: prefix,
		DocsDir:         filepath.Join(blocker, "doc", "pass-cli"),
	}
	inst := New(Options{LockDir: t.TempDir(), Shells: []shell.ShellType{shell.ShellBash}})

	res, err := inst.Install(context.Background(), testPayload(t, fakeProgram(), "README.md"), tgt)

	var fsErr *FilesystemError
	if !errors.As(err, &fsErr) {
		t.Fatalf("Install() error = %v, want *FilesystemError", err)
	}
	if fsErr.Step != StepDocs {
		t.Errorf("Step = %s, want %s", fsErr.Step, StepDocs)
	}
	if res == nil {
		t.Fatal("Result is nil after the binary was placed")
	}
	if _, err := os.Stat(tgt.BinaryPath); err != nil {
		t.Errorf("binary missing: %v", err)
	}
}

func TestInstall_BinaryFailure(t *testing.T) {
	prefix := t.TempDir()
	if err := os.WriteFile(filepath.Join(prefix, "bin"), []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}
	tgt := NewTarget(prefix, "pass-cli")

	res, err := newTestInstaller(t).Install(context.Background(), testPayload(t, fakeProgram()), tgt)

	var fsErr *FilesystemError
	if !errors.As(err, &fsErr) || fsErr.Step != StepBinary {
		t.Fatalf("Install() error = %v, want binary FilesystemError", err)
	}
	if res != nil {
		t.Errorf("Result = %+v, want nil", res)
	}
	if _, err := os.Stat(filepath.Join(prefix, "share")); !os.IsNotExist(err) {
		t.Error("completions written after binary failure")
	}
}

func TestInstall_LockHeld(t *testing.T) {
	prefix := t.TempDir()
	lockDir := t.TempDir()

	held, err := transaction.AcquireLock(context.Background(), lockDir, transaction.LockName(prefix))
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	defer held.Release()

	inst := New(Options{LockDir: lockDir})
	_, err = inst.Install(context.Background(), testPayload(t, fakeProgram()), NewTarget(prefix, "pass-cli"))
	if !errors.Is(err, transaction.ErrLockExists) {
		t.Fatalf("Install() error = %v, want ErrLockExists", err)
	}
	if _, err := os.Stat(filepath.Join(prefix, "bin")); !os.IsNotExist(err) {
		t.Error("install proceeded while locked")
	}
}

func TestInstall_ReleasesLock(t *testing.T) {
	prefix := t.TempDir()
	lockDir := t.TempDir()
	inst := New(Options{LockDir: lockDir})

	if _, err := inst.Install(context.Background(), testPayload(t, fakeProgram()), NewTarget(prefix, "pass-cli")); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	lock, err := transaction.AcquireLock(context.Background(), lockDir, transaction.LockName(prefix))
	if err != nil {
		t.Fatalf("lock still held after install: %v", err)
	}
	lock.Release()
}

func TestInstall_InvalidInput(t *testing.T) {
	inst := newTestInstaller(t)

	if _, err := inst.Install(context.Background(), nil, NewTarget(t.TempDir(), "pass-cli")); err == nil {
		t.Error("Install(nil payload) = nil error")
	}
	if _, err := inst.Install(context.Background(), testPayload(t, fakeProgram()), NewTarget("rel", "pass-cli")); err == nil {
		t.Error("Install(relative target) = nil error")
	}
}
