package shell

import (
	"os"
	"path/filepath"
	"strings"

	ps "github.com/mitchellh/go-ps"
)

// parentProcess returns the executable name of the parent process.
// Replaced in tests.
var parentProcess = func() (string, error) {
	proc, err := ps.FindProcess(os.Getppid())
	if err != nil || proc == nil {
		return "", err
	}
	return proc.Executable(), nil
}

// DetectShell reports the user's interactive shell: $SHELL first, then the
// process that launched the installer. It never fails; an undetectable
// shell yields ShellUnknown with confidence "none".
func DetectShell() (*DetectionResult, error) {
	candidates := []struct {
		method     string
		confidence string
		lookup     func() string
	}{
		{"$SHELL environment variable", "high", func() string { return os.Getenv("SHELL") }},
		{"parent process", "medium", func() string {
			name, err := parentProcess()
			if err != nil {
				return ""
			}
			return name
		}},
	}

	for _, c := range candidates {
		path := c.lookup()
		if path == "" {
			continue
		}
		if s := parseShellFromPath(path); s.IsValid() {
			return &DetectionResult{Shell: s, Method: c.method, ShellPath: path, Confidence: c.confidence}, nil
		}
	}

	return &DetectionResult{Shell: ShellUnknown, Method: "detection failed", Confidence: "none"}, nil
}

// parseShellFromPath extracts the shell type from a shell binary path
// Examples:
//   - /bin/bash -> bash
//   - /usr/bin/zsh -> zsh
//   - -zsh (login shell) -> zsh
func parseShellFromPath(shellPath string) ShellType {
	baseName := strings.ToLower(filepath.Base(shellPath))
	baseName = strings.TrimPrefix(baseName, "-")

	switch baseName {
	case "bash":
		return ShellBash
	case "zsh":
		return ShellZsh
	case "fish":
		return ShellFish
	default:
		return ShellUnknown
	}
}
