// Package config loads installer settings.
//
// Settings come from three layers, later layers winning:
//
//  1. built-in defaults (prefix ~/.local, embedded descriptor, auto progress),
//  2. an optional YAML file (default $XDG_CONFIG_HOME/passcli-installer/settings.yaml),
//  3. PASSCLI_INSTALL_* environment variables.
//
// Command-line flags are applied on top by the CLI.
package config
