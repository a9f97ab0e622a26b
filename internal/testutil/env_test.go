package testutil_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	if got := os.Getenv("HOME"); got != env.Home {
		t.Errorf("HOME = %q, want %q", got, env.Home)
	}
	if got := os.Getenv("XDG_CONFIG_HOME"); got != env.ConfigHome {
		t.Errorf("XDG_CONFIG_HOME = %q, want %q", got, env.ConfigHome)
	}
	if got := os.Getenv("PASSCLI_INSTALL_PREFIX"); got != "" {
		t.Errorf("PASSCLI_INSTALL_PREFIX = %q, want empty", got)
	}

	for _, dir := range []string{env.Home, env.ConfigHome, env.Prefix, env.Cache} {
		if !filepath.IsAbs(dir) {
			t.Errorf("path %s is not absolute", dir)
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("directory %s does not exist", dir)
		}
	}
}

func TestSetupTestEnv_Isolation(t *testing.T) {
	env1 := testutil.SetupTestEnv(t)

	t.Run("subtest", func(t *testing.T) {
		env2 := testutil.SetupTestEnv(t)
		if env1.Home == env2.Home {
			t.Error("expected different temp directories for different test contexts")
		}
	})
}

func TestFakeProgram(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	bin := testutil.WriteFakeProgram(t, t.TempDir(), "pass-cli", testutil.FakeProgram{
		Version:        "1.2.3",
		FailCompletion: []string{"fish"},
	})

	run := func(stdin string, args ...string) (string, error) {
		cmd := exec.Command(bin, args...)
		cmd.Stdin = strings.NewReader(stdin)
		out, err := cmd.CombinedOutput()
		return string(out), err
	}

	if out, err := run("", "version"); err != nil || !strings.Contains(out, "1.2.3") {
		t.Errorf("version = %q, %v", out, err)
	}
	if out, err := run("", "--help"); err != nil || !strings.Contains(out, "secure CLI password manager") {
		t.Errorf("--help = %q, %v", out, err)
	}
	if out, err := run("", "completion", "zsh"); err != nil || !strings.Contains(out, "# zsh completion") {
		t.Errorf("completion zsh = %q, %v", out, err)
	}
	if _, err := run("", "completion", "fish"); err == nil {
		t.Error("completion fish succeeded, want failure")
	}
	if out, err := run("pw\npw\n", "init"); err != nil {
		t.Errorf("init = %q, %v", out, err)
	}
	if info, err := os.Stat(filepath.Join(env.Home, ".pass-cli")); err != nil || !info.IsDir() {
		t.Errorf("init did not create the vault dir: %v", err)
	}
}

func TestReleaseArchive(t *testing.T) {
	data := testutil.ReleaseArchive(t,
		testutil.ArchiveFile{Name: "pass-cli", Body: "#!/bin/sh\n", Mode: 0o755},
		testutil.ArchiveFile{Name: "README.md", Body: "readme"},
	)
	if len(data) == 0 {
		t.Fatal("empty archive")
	}
	if got := testutil.SHA256Hex(data); len(got) != 64 {
		t.Errorf("SHA256Hex() = %q", got)
	}
}
