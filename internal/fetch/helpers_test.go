package fetch

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"

	"github.com/ZebulonRouseFrantzich/passcli-installer/internal/catalog"
)

// tarEntry describes one archive member for buildTarGz.
type tarEntry struct {
	Name     string
	Body     string
	Mode     int64
	Type     byte
	Linkname string
}

// buildTarGz returns a gzip-compressed tar archive of entries.
func buildTarGz(t *testing.T, entries []tarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, e := range entries {
		typ := e.Type
		if typ == 0 {
			typ = tar.TypeReg
		}
		mode := e.Mode
		if mode == 0 {
			mode = 0o644
		}
		header := &tar.Header{
			Name:     e.Name,
			Mode:     mode,
			Typeflag: typ,
			Linkname: e.Linkname,
		}
		if typ == tar.TypeReg {
			header.Size = int64(len(e.Body))
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			t.Fatalf("failed to write header for %s: %v", e.Name, err)
		}
		if typ == tar.TypeReg {
			if _, err := tarWriter.Write([]byte(e.Body)); err != nil {
				t.Fatalf("failed to write content for %s: %v", e.Name, err)
			}
		}
	}

	if err := tarWriter.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	if err := gzipWriter.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return buf.Bytes()
}

// writeTestFile writes data under dir and returns the path.
func writeTestFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// releaseArchive is a minimal pass-cli release archive.
func releaseArchive(t *testing.T, withDocs bool) []byte {
	t.Helper()

	entries := []tarEntry{
		{Name: "pass-cli", Body: "#!/bin/sh\necho pass-cli\n", Mode: 0o755},
	}
	if withDocs {
		entries = append(entries,
			tarEntry{Name: "README.md", Body: "# pass-cli\n"},
			tarEntry{Name: "LICENSE", Body: "MIT\n"},
		)
	}
	return buildTarGz(t, entries)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func testArtifact(url, digest string) catalog.Artifact {
	return catalog.Artifact{
		Name:    "pass-cli",
		Version: "1.0.0",
		OS:      "linux",
		Arch:    "amd64",
		URL:     url,
		SHA256:  digest,
	}
}

// testSigner is a throwaway OpenPGP identity.
type testSigner struct {
	entity *openpgp.Entity
}

func newTestSigner(t *testing.T) *testSigner {
	t.Helper()

	entity, err := openpgp.NewEntity("Release Bot", "test", "release@example.com", nil)
	if err != nil {
		t.Fatalf("failed to create test key: %v", err)
	}
	return &testSigner{entity: entity}
}

// armoredKeyring writes the armored public key to dir and returns its path.
func (s *testSigner) armoredKeyring(t *testing.T, dir string) string {
	t.Helper()

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("failed to start armor: %v", err)
	}
	if err := s.entity.Serialize(w); err != nil {
		t.Fatalf("failed to serialize key: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close armor: %v", err)
	}
	return writeTestFile(t, dir, "release.asc", buf.Bytes())
}

// binaryKeyring writes the unarmored public key to dir and returns its path.
func (s *testSigner) binaryKeyring(t *testing.T, dir string) string {
	t.Helper()

	var buf bytes.Buffer
	if err := s.entity.Serialize(&buf); err != nil {
		t.Fatalf("failed to serialize key: %v", err)
	}
	return writeTestFile(t, dir, "release.gpg", buf.Bytes())
}

// sign returns an armored detached signature over data.
func (s *testSigner) sign(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&buf, s.entity, bytes.NewReader(data), nil); err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	return buf.Bytes()
}

// signBinary returns an unarmored detached signature over data.
func (s *testSigner) signBinary(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := openpgp.DetachSign(&buf, s.entity, bytes.NewReader(data), nil); err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	return buf.Bytes()
}
