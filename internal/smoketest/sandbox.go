package smoketest

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sandbox is a throwaway HOME for the program under test.
type Sandbox struct {
	Home string
}

// NewSandbox creates an empty temporary home directory.
func NewSandbox() (*Sandbox, error) {
	dir, err := os.MkdirTemp("", "passcli-smoke-")
	if err != nil {
		return nil, fmt.Errorf("create sandbox home: %w", err)
	}
	return &Sandbox{Home: dir}, nil
}

// Env returns the child environment overrides that point HOME at the
// sandbox.
func (s *Sandbox) Env() []string {
	return []string{"HOME=" + s.Home}
}

// VaultPath is where the program creates its vault under this sandbox.
func (s *Sandbox) VaultPath() string {
	return filepath.Join(s.Home, VaultDir)
}

// Close removes the sandbox and everything the program wrote into it.
func (s *Sandbox) Close() error {
	if s == nil || s.Home == "" {
		return nil
	}
	return os.RemoveAll(s.Home)
}
