// Package shell knows the shells pass-cli ships completions for and where
// each shell's completion file lives under an install prefix.
//
// The layout follows the conventional package-manager tree:
//   - bash: <prefix>/etc/bash_completion.d/pass-cli
//   - zsh:  <prefix>/share/zsh/site-functions/_pass-cli
//   - fish: <prefix>/share/fish/vendor_completions.d/pass-cli.fish
//
// # Shell Detection
//
// DetectShell tries:
//  1. $SHELL environment variable (most reliable)
//  2. Parent process name (fallback)
//
// Detection only selects which activation hint to print after an install;
// completions are always written for every supported shell.
package shell
