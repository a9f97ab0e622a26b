package testutil

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// FakeProgram describes a shell script standing in for pass-cli.
type FakeProgram struct {
	// Version is printed by `version`.
	Version string
	// Help is printed by `--help`.
	Help string
	// FailCompletion lists shells whose `completion` call exits 1.
	FailCompletion []string
	// SkipVault makes `init` succeed without creating ~/.pass-cli.
	SkipVault bool
}

// DefaultHelp is the description the real program prints.
const DefaultHelp = "Pass-CLI is a secure CLI password manager with AES-256-GCM encryption"

// Script renders the program as a POSIX shell script.
func (p FakeProgram) Script() string {
	help := p.Help
	if help == "" {
		help = DefaultHelp
	}

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("case \"$1\" in\n")
	b.WriteString("version) echo \"pass-cli version " + p.Version + "\" ;;\n")
	b.WriteString("--help) echo \"" + help + "\" ;;\n")
	b.WriteString("completion)\n  case \"$2\" in\n")
	for _, s := range p.FailCompletion {
		b.WriteString("  " + s + ") echo \"completion failed\" >&2; exit 1 ;;\n")
	}
	b.WriteString("  --) ;;\n  esac\n")
	b.WriteString("  echo \"# $2 completion for pass-cli\" ;;\n")
	b.WriteString("init)\n  read pw; read confirm\n")
	b.WriteString("  [ \"$pw\" = \"$confirm\" ] || { echo \"passwords do not match\" >&2; exit 1; }\n")
	if !p.SkipVault {
		b.WriteString("  mkdir -p \"$HOME/.pass-cli\"\n")
	}
	b.WriteString("  echo \"vault initialized\" ;;\n")
	b.WriteString("*) echo \"unknown command: $1\" >&2; exit 2 ;;\n")
	b.WriteString("esac\n")
	return b.String()
}

// WriteFakeProgram writes p as an executable named name in dir and returns
// its path.
func WriteFakeProgram(t *testing.T, dir, name string, p FakeProgram) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(p.Script()), 0o755); err != nil {
		t.Fatalf("failed to write fake program: %v", err)
	}
	return path
}

// ArchiveFile is one regular file in a release archive.
type ArchiveFile struct {
	Name string
	Body string
	Mode int64
}

// ReleaseArchive builds a tar.gz release archive holding files.
func ReleaseArchive(t *testing.T, files ...ArchiveFile) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, f := range files {
		mode := f.Mode
		if mode == 0 {
			mode = 0o644
		}
		hdr := &tar.Header{
			Name:     f.Name,
			Mode:     mode,
			Size:     int64(len(f.Body)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write tar header: %v", err)
		}
		if _, err := tw.Write([]byte(f.Body)); err != nil {
			t.Fatalf("failed to write tar entry: %v", err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return buf.Bytes()
}

// SHA256Hex returns the hex digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
