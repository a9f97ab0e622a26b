package shell

import (
	"fmt"
	"path/filepath"
)

// CompletionPath returns the completion file for program and shell under
// root (the install prefix).
func CompletionPath(root string, s ShellType, program string) (string, error) {
	switch s {
	case ShellBash:
		return filepath.Join(root, "etc", "bash_completion.d", program), nil
	case ShellZsh:
		return filepath.Join(root, "share", "zsh", "site-functions", "_"+program), nil
	case ShellFish:
		return filepath.Join(root, "share", "fish", "vendor_completions.d", program+".fish"), nil
	default:
		return "", &UnsupportedShellError{Shell: s.String()}
	}
}

// ActivationHint returns the line a user adds to their shell configuration
// so the shell picks up completions installed under root.
func ActivationHint(root string, s ShellType, program string) (string, error) {
	path, err := CompletionPath(root, s, program)
	if err != nil {
		return "", err
	}

	switch s {
	case ShellBash:
		return fmt.Sprintf("[ -r %q ] && . %q", path, path), nil
	case ShellZsh:
		return fmt.Sprintf("fpath=(%q $fpath)  # before compinit", filepath.Dir(path)), nil
	default:
		return fmt.Sprintf("set -p fish_complete_path %q", filepath.Dir(path)), nil
	}
}

// RCFile returns the configuration file conventionally edited for s,
// relative to the home directory.
func RCFile(s ShellType) string {
	switch s {
	case ShellBash:
		return ".bashrc"
	case ShellZsh:
		return ".zshrc"
	case ShellFish:
		return filepath.Join(".config", "fish", "config.fish")
	default:
		return ""
	}
}
