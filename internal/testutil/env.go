// Package testutil provides helpers for testing the installer in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env is an isolated environment created by SetupTestEnv.
type Env struct {
	// Home is the fake user home directory.
	Home string
	// ConfigHome is XDG_CONFIG_HOME.
	ConfigHome string
	// Prefix is a clean install prefix.
	Prefix string
	// Cache is a scratch directory for downloads and locks.
	Cache string
}

// installerEnv are settings variables cleared for every test.
var installerEnv = []string{
	"PASSCLI_INSTALL_PREFIX",
	"PASSCLI_INSTALL_CACHE_DIR",
	"PASSCLI_INSTALL_DESCRIPTOR",
	"PASSCLI_INSTALL_KEYRING",
	"PASSCLI_INSTALL_LOG_LEVEL",
	"PASSCLI_INSTALL_PROGRESS",
}

// SetupTestEnv points HOME and XDG_CONFIG_HOME at a temp dir and clears
// installer settings from the environment, so tests never read or write the
// operator's settings, prefix or vault.
//
// Cleanup is handled by t.TempDir and t.Setenv.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := &Env{
		Home:       filepath.Join(tmpDir, "home"),
		ConfigHome: filepath.Join(tmpDir, "home", ".config"),
		Prefix:     filepath.Join(tmpDir, "prefix"),
		Cache:      filepath.Join(tmpDir, "cache"),
	}

	for _, dir := range []string{env.Home, env.ConfigHome, env.Prefix, env.Cache} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	t.Setenv("HOME", env.Home)
	t.Setenv("XDG_CONFIG_HOME", env.ConfigHome)
	for _, name := range installerEnv {
		t.Setenv(name, "")
	}

	return env
}
