// Package advisory holds the first-run guidance shown after an install.
package advisory

import (
	"fmt"
	"io"
	"strings"
)

// VaultDir is where the installed program keeps its vault, relative to HOME.
const VaultDir = ".pass-cli"

const caveats = `Pass-CLI is a secure password manager that stores credentials locally.

To get started:
  1. Initialize your vault: %[1]s init
  2. Add a credential: %[1]s add myservice
  3. Retrieve it: %[1]s get myservice

Your vault is stored at: ~/%[2]s/

For more information, run: %[1]s --help
`

// Caveats returns the guidance text for the named program. It does not
// depend on the installed version or any runtime state.
func Caveats(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "pass-cli"
	}
	return fmt.Sprintf(caveats, name, VaultDir)
}

// Write prints the guidance to w.
func Write(w io.Writer, name string) error {
	_, err := io.WriteString(w, Caveats(name))
	return err
}
