package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

var (
	// ErrChecksumUnset is wrapped when an artifact carries no usable digest.
	ErrChecksumUnset = errors.New("expected sha256 is unset or a placeholder")
	// ErrKeyringEmpty is returned for a keyring file with no keys.
	ErrKeyringEmpty = errors.New("keyring is empty")
)

// ValidateChecksum reports whether s is a 64-digit hex SHA256 digest.
// Release placeholders such as "REPLACE_WITH_ACTUAL_SHA256_FOR_LINUX_AMD64"
// are rejected.
func ValidateChecksum(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%w: empty", ErrChecksumUnset)
	}
	if len(s) != sha256.Size*2 {
		return fmt.Errorf("%w: %q is not a %d-digit hex digest", ErrChecksumUnset, s, sha256.Size*2)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return fmt.Errorf("%w: %q is not hex", ErrChecksumUnset, s)
	}
	return nil
}

// Verifier checks archive digests and detached OpenPGP signatures.
type Verifier struct {
	keyringPath string
}

// NewVerifier creates a verifier. An empty keyringPath disables signature
// checks.
func NewVerifier(keyringPath string) *Verifier {
	return &Verifier{keyringPath: keyringPath}
}

// HasKeyring reports whether signature verification is configured.
func (v *Verifier) HasKeyring() bool {
	return v.keyringPath != ""
}

// VerifySHA256 compares the file digest with expected (case-insensitive)
// and returns the actual digest.
func (v *Verifier) VerifySHA256(path, expected string) (string, error) {
	actual, err := calculateSHA256(path)
	if err != nil {
		return "", fmt.Errorf("calculate checksum: %w", err)
	}

	if !strings.EqualFold(actual, strings.TrimSpace(expected)) {
		return actual, fmt.Errorf("checksum mismatch")
	}

	return actual, nil
}

// VerifySignature checks the detached signature at signaturePath against
// the file at path. Armored and binary signatures are accepted.
func (v *Verifier) VerifySignature(path, signaturePath string) error {
	keyring, err := LoadKeyring(v.keyringPath)
	if err != nil {
		return fmt.Errorf("load keyring: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	sigFile, err := os.Open(signaturePath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sigFile.Close()

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, file, sigFile, nil)
	if err != nil {
		if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("rewind archive: %w", seekErr)
		}
		if _, seekErr := sigFile.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("rewind signature: %w", seekErr)
		}
		_, err = openpgp.CheckDetachedSignature(keyring, file, sigFile, nil)
	}
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}

	return nil
}

// LoadKeyring reads an armored or binary OpenPGP public keyring.
func LoadKeyring(path string) (openpgp.EntityList, error) {
	keyringFile, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer keyringFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyringFile)
	if err != nil {
		if _, seekErr := keyringFile.Seek(0, io.SeekStart); seekErr != nil {
			return nil, fmt.Errorf("rewind keyring: %w", seekErr)
		}
		keyring, err = openpgp.ReadKeyRing(keyringFile)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, ErrKeyringEmpty
	}

	return keyring, nil
}

// calculateSHA256 calculates the SHA256 checksum of a file
func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// FileSHA256 returns the hex SHA256 digest of the file at path.
func FileSHA256(path string) (string, error) {
	return calculateSHA256(path)
}
