package shell

import (
	"fmt"
	"strings"
)

// ShellType represents a supported shell
type ShellType string

const (
	// ShellBash represents the Bash shell
	ShellBash ShellType = "bash"
	// ShellZsh represents the Z shell
	ShellZsh ShellType = "zsh"
	// ShellFish represents the Fish shell
	ShellFish ShellType = "fish"
	// ShellUnknown represents an unknown or unsupported shell
	ShellUnknown ShellType = "unknown"
)

// String returns the string representation of the shell type
func (s ShellType) String() string {
	return string(s)
}

// IsValid returns true if the shell type is supported
func (s ShellType) IsValid() bool {
	switch s {
	case ShellBash, ShellZsh, ShellFish:
		return true
	default:
		return false
	}
}

// Supported returns the shells completions are generated for, in install
// order.
func Supported() []ShellType {
	return []ShellType{ShellBash, ShellZsh, ShellFish}
}

// Parse converts a shell name to a ShellType.
func Parse(name string) (ShellType, error) {
	s := ShellType(strings.ToLower(strings.TrimSpace(name)))
	if !s.IsValid() {
		return ShellUnknown, &UnsupportedShellError{Shell: name}
	}
	return s, nil
}

// DetectionResult contains the result of shell detection
type DetectionResult struct {
	// Shell is the detected shell type
	Shell ShellType
	// Method describes how the shell was detected
	Method string
	// ShellPath is the filesystem path to the shell binary
	ShellPath string
	// Confidence is the confidence level (high, medium, none)
	Confidence string
}

// UnsupportedShellError represents an unsupported shell error
type UnsupportedShellError struct {
	Shell string
}

func (e *UnsupportedShellError) Error() string {
	return fmt.Sprintf("unsupported shell: %s (supported: bash, zsh, fish)", e.Shell)
}
