package fetch

import (
	"errors"
	"fmt"
	"os"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/catalog"
)

// VerificationMethod indicates how an archive was verified
type VerificationMethod int

const (
	// VerificationNone indicates no verification (never returned by Fetch)
	VerificationNone VerificationMethod = iota
	// VerificationSHA256 indicates the archive digest matched
	VerificationSHA256
	// VerificationGPG indicates the digest matched and the detached OpenPGP
	// signature verified
	VerificationGPG
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationGPG:
		return "GPG+SHA256"
	case VerificationSHA256:
		return "SHA256"
	case VerificationNone:
		return "None"
	default:
		return "Unknown"
	}
}

// ErrNotFound is wrapped when the transport reports the archive is missing.
var ErrNotFound = errors.New("archive not found")

// Payload is a verified, unpacked archive. It owns Dir until Close.
type Payload struct {
	Artifact catalog.Artifact
	// Dir is the scoped working directory holding the archive and its contents.
	Dir string
	// ArchivePath is the downloaded archive inside Dir.
	ArchivePath string
	// BinaryPath is the extracted program binary.
	BinaryPath string
	// Docs lists the optional documentation files found (README.md, LICENSE).
	Docs []string
	// SHA256 is the verified digest of the archive.
	SHA256   string
	Verified VerificationMethod
}

// Close removes the payload's working directory.
func (p *Payload) Close() error {
	if p == nil || p.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(p.Dir); err != nil {
		return fmt.Errorf("remove payload dir: %w", err)
	}
	return nil
}

// IntegrityError reports an archive that failed verification, or an
// artifact whose expected digest cannot be trusted.
type IntegrityError struct {
	Artifact catalog.Artifact
	Method   VerificationMethod
	Expected string
	Actual   string
	Err      error
}

func (e *IntegrityError) Error() string {
	subject := fmt.Sprintf("%s %s %s", e.Artifact.Name, e.Artifact.Version, e.Artifact.Key())
	switch {
	case e.Actual != "":
		return fmt.Sprintf("integrity check failed for %s: %s mismatch (expected %s, got %s)",
			subject, e.Method, e.Expected, e.Actual)
	case e.Err != nil:
		return fmt.Sprintf("integrity check failed for %s (%s): %v", subject, e.Method, e.Err)
	default:
		return fmt.Sprintf("integrity check failed for %s (%s)", subject, e.Method)
	}
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}
