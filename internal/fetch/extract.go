package fetch

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// maxEntrySize caps a single extracted file; pass-cli archives are a few MB.
const maxEntrySize = 512 << 20

// Extractor handles archive extraction
type Extractor struct{}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractTarGz extracts a .tar.gz archive to a destination directory.
// Entries that would land outside destDir are rejected.
func (e *Extractor) ExtractTarGz(archivePath, destDir string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}
	root := filepath.Clean(destDir) + string(os.PathSeparator)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target := filepath.Join(destDir, header.Name)
		if target == filepath.Clean(destDir) {
			continue
		}
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("illegal file path: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := writeEntry(target, tarReader, header); err != nil {
				return err
			}

		case tar.TypeSymlink:
			link := header.Linkname
			if filepath.IsAbs(link) || !strings.HasPrefix(filepath.Join(filepath.Dir(target), link), root) {
				return fmt.Errorf("illegal symlink %s -> %s", header.Name, link)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			if err := os.Symlink(link, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}

		default:
			// Hard links, devices and FIFOs have no place in a release archive.
			continue
		}
	}

	return nil
}

func writeEntry(target string, r io.Reader, header *tar.Header) error {
	if header.Size > maxEntrySize {
		return fmt.Errorf("entry %s too large: %d bytes", header.Name, header.Size)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	mode := os.FileMode(header.Mode).Perm()
	if mode == 0 {
		mode = 0o644
	}

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}

	if _, err := io.Copy(outFile, io.LimitReader(r, maxEntrySize)); err != nil {
		outFile.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}

	if err := outFile.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	return nil
}

// FindFile returns the shallowest regular file under root whose base name is
// name, or "" when there is none.
func FindFile(root, name string) (string, error) {
	found := ""
	foundDepth := -1

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || d.Name() != name {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		depth := strings.Count(rel, string(os.PathSeparator))
		if foundDepth < 0 || depth < foundDepth {
			found, foundDepth = path, depth
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search %s: %w", name, err)
	}

	return found, nil
}
